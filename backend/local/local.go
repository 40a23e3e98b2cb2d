//go:build !windows && !plan9 && !js

// Package local provides a backend on the OS filesystem. Database files are
// ordinary files; cross-process locking uses POSIX byte-range locks on the
// engine's canonical lock page, and the WAL-index lives in a sidecar file
// next to the database.
package local

import (
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/sqlitevfs/sqlitevfs/fs"
	"github.com/sqlitevfs/sqlitevfs/lib/random"
)

// Fs represents a directory on the local filesystem.
type Fs struct {
	root string
}

// NewFs constructs a local Fs rooted at root. Relative names are resolved
// against it; absolute names are used as given.
func NewFs(root string) (*Fs, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve root")
	}
	return &Fs{root: abs}, nil
}

// String converts this Fs to a string for debug output
func (f *Fs) String() string {
	return "Local " + f.root
}

// localPath resolves name against the root.
func (f *Fs) localPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(f.root, name)
}

// Open opens the named file per opts.
func (f *Fs) Open(name string, opts fs.OpenOptions) (fs.File, error) {
	path := f.localPath(name)
	osFlags := os.O_RDONLY
	switch opts.Access {
	case fs.AccessWrite:
		osFlags = os.O_RDWR
	case fs.AccessCreate:
		osFlags = os.O_RDWR | os.O_CREATE
	case fs.AccessCreateNew:
		osFlags = os.O_RDWR | os.O_CREATE | os.O_EXCL
	}
	fd, err := os.OpenFile(path, osFlags, 0644)
	if err != nil {
		return nil, err
	}
	fs.Debugf(f, "open %q (%v, %v)", name, opts.Kind, opts.Access)
	return &File{
		fs:       f,
		file:     fd,
		path:     path,
		readOnly: opts.Access == fs.AccessRead,
	}, nil
}

// Delete removes the named file.
func (f *Fs) Delete(name string) error {
	return os.Remove(f.localPath(name))
}

// Exists reports whether the named file exists.
func (f *Fs) Exists(name string) (bool, error) {
	_, err := os.Stat(f.localPath(name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// TempName generates a name for a temporary file.
func (f *Fs) TempName() string {
	return filepath.Join(os.TempDir(), "etilqs_"+random.String(16))
}

// Random fills p with random bytes.
func (f *Fs) Random(p []byte) {
	_, _ = rand.Read(p)
}

// Sleep pauses for d.
func (f *Fs) Sleep(d time.Duration) time.Duration {
	time.Sleep(d)
	return d
}

// Access reports whether the named file can be read, or read and written.
func (f *Fs) Access(name string, write bool) (bool, error) {
	mode := uint32(unix.R_OK)
	if write {
		mode |= unix.W_OK
	}
	if err := unix.Access(f.localPath(name), mode); err != nil {
		return false, nil
	}
	return true, nil
}

// FullPath resolves name to an absolute path.
func (f *Fs) FullPath(name string) (string, error) {
	return filepath.Abs(f.localPath(name))
}

// ------------------------------------------------------------

// File is a handle on a local file.
type File struct {
	fs       *Fs
	file     *os.File
	path     string
	readOnly bool

	mu        sync.Mutex // guards level
	level     fs.LockLevel
	chunkSize int
}

// String converts this File to a string for debug output
func (f *File) String() string {
	return f.path
}

// Close releases the handle. The OS drops any remaining fcntl locks with it.
func (f *File) Close() error {
	return f.file.Close()
}

// Size returns the current size of the file.
func (f *File) Size() (int64, error) {
	fi, err := f.file.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// ReadAt reads exactly len(p) bytes at off. A read past the end reports
// io.ErrUnexpectedEOF after filling what is available.
func (f *File) ReadAt(p []byte, off int64) error {
	n, err := f.file.ReadAt(p, off)
	if err == io.EOF && n < len(p) {
		return errors.Wrapf(io.ErrUnexpectedEOF, "short read of %d of %d bytes", n, len(p))
	}
	return err
}

// WriteAt writes all of p at off. A full filesystem reports
// io.ErrShortWrite.
func (f *File) WriteAt(p []byte, off int64) error {
	_, err := f.file.WriteAt(p, off)
	if err != nil && errors.Is(err, unix.ENOSPC) {
		return errors.Wrap(io.ErrShortWrite, "filesystem full")
	}
	return err
}

// Truncate sets the file to size. Growth zero-fills, per ftruncate.
func (f *File) Truncate(size int64) error {
	return f.file.Truncate(size)
}

// SetChunkSize records the allocation granularity hint.
func (f *File) SetChunkSize(size int) error {
	f.mu.Lock()
	f.chunkSize = size
	f.mu.Unlock()
	return nil
}

// Moved reports whether the path now names a different file (or none) than
// the one this handle has open.
func (f *File) Moved() (bool, error) {
	var pathStat unix.Stat_t
	if err := unix.Stat(f.path, &pathStat); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return true, nil
		}
		return false, errors.Wrap(err, "stat failed")
	}
	var fdStat unix.Stat_t
	if err := unix.Fstat(int(f.file.Fd()), &fdStat); err != nil {
		return false, errors.Wrap(err, "fstat failed")
	}
	return pathStat.Dev != fdStat.Dev || pathStat.Ino != fdStat.Ino, nil
}

// WalIndex opens the sidecar index file next to the database.
func (f *File) WalIndex(readonly bool) (fs.WalIndex, error) {
	path := f.path + "-shm"
	osFlags := os.O_RDWR | os.O_CREATE
	if readonly {
		osFlags = os.O_RDONLY
	}
	fd, err := os.OpenFile(path, osFlags, 0644)
	if err != nil {
		return nil, err
	}
	return &WalIndex{file: fd, path: path, readonly: readonly}, nil
}

// Check the interfaces are satisfied
var (
	_ fs.Fs   = &Fs{}
	_ fs.File = &File{}
)
