// Package vfs adapts a pluggable storage backend to the virtual-file-system
// contract of an embedded relational database engine.
//
// The engine reaches storage through a fixed entry-point table. This package
// implements those entry points against the typed capability interfaces of
// package fs: it resolves opens, carries per-file state across calls,
// implements the five-level file-lock ladder and the shared-memory WAL-index
// protocol, and translates typed errors into the engine's integer status
// codes while stashing the human-readable diagnostic for later retrieval.
//
// Everything in this package is plain Go. The companion package cvfs owns the
// C-shaped tables and pointer marshalling.
package vfs

import (
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sqlitevfs/sqlitevfs/fs"
)

// errorSlot is the shared (status, diagnostic) pair consulted by
// get-last-error. One slot is shared between a VFS and all its open files.
type errorSlot struct {
	mu   sync.Mutex
	set  bool
	code int
	err  error
}

func (s *errorSlot) store(code int, err error) int {
	s.mu.Lock()
	s.set, s.code, s.err = true, code, err
	s.mu.Unlock()
	return code
}

func (s *errorSlot) load() (code int, err error, ok bool) {
	s.mu.Lock()
	code, err, ok = s.code, s.err, s.set
	s.mu.Unlock()
	return code, err, ok
}

// VFS is the state behind one registered VFS instance.
type VFS struct {
	name string
	fsys fs.Fs
	errs *errorSlot

	mu     sync.Mutex // guards nextID
	nextID uint64
}

// New creates the state for a VFS registered under name, serving files from
// fsys. The name must not contain a NUL byte.
func New(name string, fsys fs.Fs) (*VFS, error) {
	if strings.ContainsRune(name, 0) {
		return nil, ErrInteriorNul
	}
	return &VFS{
		name: name,
		fsys: fsys,
		errs: &errorSlot{},
	}, nil
}

// Name returns the name the VFS was registered under.
func (v *VFS) Name() string {
	return v.name
}

// String converts this VFS to a string for debug output
func (v *VFS) String() string {
	return "vfs " + v.name
}

// StoreError stashes (code, err) in the shared error slot and returns code.
func (v *VFS) StoreError(code int, err error) int {
	fs.Debugf(v, "error %d: %v", code, err)
	return v.errs.store(code, err)
}

func journalKind(kind fs.OpenKind) bool {
	return kind == fs.OpenSuperJournal || kind == fs.OpenMainJournal || kind == fs.OpenWal
}

// Open resolves an engine open request. An empty name requests an anonymous
// temporary file. psow is the initial powersafe-overwrite setting (true
// unless the engine's URI parameters said otherwise). It returns the
// initialized file, the re-encoded (possibly downgraded) flags to report
// back, and the status code.
func (v *VFS) Open(name string, flags int, psow bool) (f *File, outFlags int, rc int) {
	fs.Debugf(v, "open name=%q flags=%#x", name, flags)

	opts, ok := OpenOptionsFromFlags(flags)
	if !ok {
		return nil, 0, v.StoreError(CANTOPEN, ErrInvalidOpenFlags)
	}

	// The engine must not ask for a permanent anonymous file.
	if name == "" && !opts.DeleteOnClose {
		return nil, 0, v.StoreError(CANTOPEN, ErrInvalidOpenFlags)
	}
	if name == "" {
		name = v.fsys.TempName()
	}

	handle, err := v.fsys.Open(name, opts)
	if err != nil && errors.Is(err, os.ErrPermission) {
		// Creating a journal in a directory we cannot write to is
		// reported specially so the engine can fall back to
		// journal-less modes.
		if journalKind(opts.Kind) && opts.Access >= fs.AccessCreate {
			if exists, eerr := v.fsys.Exists(name); eerr != nil || !exists {
				return nil, 0, v.StoreError(READONLY_DIRECTORY, err)
			}
		}
		// Try again readonly.
		if opts.Access != fs.AccessRead {
			opts.Access = fs.AccessRead
			handle, err = v.fsys.Open(name, opts)
		}
	}
	if err != nil {
		return nil, 0, v.StoreError(CANTOPEN, err)
	}

	v.mu.Lock()
	id := v.nextID
	v.nextID++ // wraps on overflow
	v.mu.Unlock()

	f = &File{
		vfs:                v,
		handle:             handle,
		name:               name,
		id:                 id,
		deleteOnClose:      opts.DeleteOnClose,
		powersafeOverwrite: psow,
		errs:               v.errs,
	}
	fs.Debugf(f, "opened kind=%v access=%v", opts.Kind, opts.Access)
	return f, OpenOptionsToFlags(opts), OK
}

// Delete removes the named file.
func (v *VFS) Delete(name string) int {
	fs.Debugf(v, "delete name=%q", name)
	err := v.fsys.Delete(name)
	if err == nil {
		return OK
	}
	if errors.Is(err, os.ErrNotExist) {
		return IOERR_DELETE_NOENT
	}
	return v.StoreError(DELETE, err)
}

// Access answers an engine access probe. flags selects the probe mode
// (ACCESS_EXISTS, ACCESS_READ or ACCESS_READWRITE).
func (v *VFS) Access(name string, flags int) (res bool, rc int) {
	fs.Debugf(v, "access name=%q flags=%d", name, flags)
	var err error
	switch flags {
	case ACCESS_EXISTS:
		res, err = v.fsys.Exists(name)
	case ACCESS_READ:
		res, err = v.fsys.Access(name, false)
	case ACCESS_READWRITE:
		res, err = v.fsys.Access(name, true)
	default:
		return false, IOERR_ACCESS
	}
	if err != nil {
		return false, v.StoreError(IOERR_ACCESS, err)
	}
	return res, OK
}

// FullPathname resolves name to its full canonical form. The result plus a
// terminating NUL must fit both the engine's buffer of bufSize bytes and the
// system maximum.
func (v *VFS) FullPathname(name string, bufSize int) (string, int) {
	fs.Debugf(v, "full_pathname name=%q", name)
	full, err := v.fsys.FullPath(name)
	if err != nil {
		return "", v.StoreError(ERROR, err)
	}
	if len(full)+1 > bufSize || len(full)+1 > MaxPathname {
		return "", v.StoreError(CANTOPEN, ErrPathTooLong)
	}
	return full, OK
}

// Randomness fills p from the backend's random source and returns the number
// of bytes written.
func (v *VFS) Randomness(p []byte) int {
	v.fsys.Random(p)
	return len(p)
}

// Sleep pauses for roughly d and returns the duration actually slept.
func (v *VFS) Sleep(d time.Duration) time.Duration {
	return v.fsys.Sleep(d)
}

// unixEpochOffset is the number of milliseconds between the Julian day epoch
// and the Unix epoch.
const unixEpochOffset = 24405875 * 8640000

// CurrentTimeInt64 returns the engine's integer clock reading: the Unix time
// in seconds plus unixEpochOffset. The offset is in milliseconds while the
// Unix time is in seconds.
func (v *VFS) CurrentTimeInt64() int64 {
	return time.Now().Unix() + unixEpochOffset
}

// CurrentTime returns CurrentTimeInt64 divided by 86400000, the number of
// milliseconds in a day.
func (v *VFS) CurrentTime() float64 {
	return float64(v.CurrentTimeInt64()) / 86400000.0
}

// GetLastError copies the stashed diagnostic into buf, NUL-terminated, and
// returns the stashed status code. It returns OK if no error was recorded and
// ERROR if the diagnostic does not fit in buf.
func (v *VFS) GetLastError(buf []byte) int {
	code, err, ok := v.errs.load()
	if !ok {
		return OK
	}
	msg := err.Error()
	if len(msg)+1 > len(buf) {
		return ERROR
	}
	n := copy(buf, msg)
	buf[n] = 0
	return code
}
