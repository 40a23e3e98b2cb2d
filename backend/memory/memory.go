// Package memory provides an in-memory backend. Databases live for the life
// of the Fs they were created on and are shared between every handle opened
// from it, which gives the full lock-ladder and WAL-index semantics without
// touching storage. It is used by the tests and is handy for ephemeral
// databases.
package memory

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sqlitevfs/sqlitevfs/fs"
	"github.com/sqlitevfs/sqlitevfs/lib/random"
)

// Fs represents an in-memory file system. The zero value is not usable; use
// NewFs.
type Fs struct {
	name string
	mu   sync.Mutex
	dbs  map[string]*memDB
}

// NewFs constructs an in-memory Fs. Handles opened from the same Fs share
// their databases; distinct Fs instances are fully isolated.
func NewFs(name string) *Fs {
	return &Fs{
		name: name,
		dbs:  make(map[string]*memDB, 4),
	}
}

// String converts this Fs to a string for debug output
func (f *Fs) String() string {
	return fmt.Sprintf("Memory %s", f.name)
}

// memDB holds the data and lock table of a single database, shared between
// all handles opened on it.
type memDB struct {
	mu        sync.Mutex
	data      []byte
	shared    int   // handles holding LockShared or above
	reserved  *File // holder of the reserved lock, if any
	pending   *File // holder of the pending lock, if any
	exclusive *File // holder of the exclusive lock, if any
	wal       *memWal
}

// File is a handle on an in-memory database.
type File struct {
	fs       *Fs
	db       *memDB
	name     string
	readOnly bool
	level    fs.LockLevel
}

// String converts this File to a string for debug output
func (f *File) String() string {
	return f.name
}

// ------------------------------------------------------------

// Open opens the named database per opts.
func (f *Fs) Open(name string, opts fs.OpenOptions) (fs.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	db := f.dbs[name]
	switch opts.Access {
	case fs.AccessCreateNew:
		if db != nil {
			return nil, fmt.Errorf("%s: %w", name, os.ErrExist)
		}
		db = &memDB{}
		f.dbs[name] = db
	case fs.AccessCreate:
		if db == nil {
			db = &memDB{}
			f.dbs[name] = db
		}
	default:
		if db == nil {
			return nil, fmt.Errorf("%s: %w", name, os.ErrNotExist)
		}
	}
	fs.Debugf(f, "open %q (%v, %v)", name, opts.Kind, opts.Access)
	return &File{
		fs:       f,
		db:       db,
		name:     name,
		readOnly: opts.Access == fs.AccessRead,
	}, nil
}

// Delete removes the named database.
func (f *Fs) Delete(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.dbs[name]; !ok {
		return fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}
	delete(f.dbs, name)
	return nil
}

// Exists reports whether the named database exists.
func (f *Fs) Exists(name string) (bool, error) {
	f.mu.Lock()
	_, ok := f.dbs[name]
	f.mu.Unlock()
	return ok, nil
}

// TempName generates a name for a temporary database.
func (f *Fs) TempName() string {
	return "etilqs_" + random.String(16)
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

// Access reports whether the named database is accessible. Everything in
// memory is.
func (f *Fs) Access(name string, write bool) (bool, error) {
	return true, nil
}

// FullPath returns the canonical name, which in memory is the name itself.
func (f *Fs) FullPath(name string) (string, error) {
	return name, nil
}

// ------------------------------------------------------------

// Close releases the handle and any locks it still holds.
func (f *File) Close() error {
	_, err := f.Unlock(fs.LockNone)
	return err
}

// Size returns the current size of the database.
func (f *File) Size() (int64, error) {
	f.db.mu.Lock()
	n := len(f.db.data)
	f.db.mu.Unlock()
	return int64(n), nil
}

// ReadAt reads exactly len(p) bytes at off. Reads past the end fill what is
// available and report io.ErrUnexpectedEOF.
func (f *File) ReadAt(p []byte, off int64) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if off >= int64(len(f.db.data)) {
		return fmt.Errorf("read at %d past end of %d byte file: %w", off, len(f.db.data), io.ErrUnexpectedEOF)
	}
	n := copy(p, f.db.data[off:])
	if n < len(p) {
		return fmt.Errorf("short read of %d of %d bytes: %w", n, len(p), io.ErrUnexpectedEOF)
	}
	return nil
}

// WriteAt writes all of p at off, extending the database with zero bytes if
// the write starts past the end.
func (f *File) WriteAt(p []byte, off int64) error {
	if f.readOnly {
		return fmt.Errorf("write to read-only handle: %w", os.ErrPermission)
	}
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if need := off + int64(len(p)); need > int64(len(f.db.data)) {
		grown := make([]byte, need)
		copy(grown, f.db.data)
		f.db.data = grown
	}
	copy(f.db.data[off:], p)
	return nil
}

// Sync is a no-op: there is no storage below the memory.
func (f *File) Sync(dataOnly bool) error {
	return nil
}

// Truncate sets the database to size, zero-filling when growing.
func (f *File) Truncate(size int64) error {
	if f.readOnly {
		return fmt.Errorf("truncate of read-only handle: %w", os.ErrPermission)
	}
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	switch {
	case size <= int64(len(f.db.data)):
		f.db.data = f.db.data[:size]
	default:
		grown := make([]byte, size)
		copy(grown, f.db.data)
		f.db.data = grown
	}
	return nil
}

// Lock attempts to raise this handle's lock to level.
func (f *File) Lock(level fs.LockLevel) (bool, error) {
	db := f.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if level <= f.level {
		return true, nil
	}
	switch level {
	case fs.LockShared:
		if (db.pending != nil && db.pending != f) || (db.exclusive != nil && db.exclusive != f) {
			return false, nil
		}
		db.shared++
	case fs.LockReserved:
		if db.reserved != nil || db.pending != nil || db.exclusive != nil {
			return false, nil
		}
		db.reserved = f
	case fs.LockPending, fs.LockExclusive:
		if db.reserved != nil && db.reserved != f {
			return false, nil
		}
		if (db.pending != nil && db.pending != f) || db.exclusive != nil {
			return false, nil
		}
		db.pending = f
		others := db.shared
		if f.level >= fs.LockShared {
			others--
		}
		if others > 0 {
			// Readers still present. The pending marker stays so no
			// new readers start while the engine retries.
			f.level = fs.LockPending
			return false, nil
		}
		if level == fs.LockExclusive {
			db.exclusive = f
		}
	}
	f.level = level
	return true, nil
}

// Unlock lowers this handle's lock to level.
func (f *File) Unlock(level fs.LockLevel) (bool, error) {
	db := f.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if level >= f.level {
		return true, nil
	}
	if db.exclusive == f {
		db.exclusive = nil
	}
	if db.pending == f {
		db.pending = nil
	}
	if level < fs.LockReserved && db.reserved == f {
		db.reserved = nil
	}
	if level < fs.LockShared && f.level >= fs.LockShared {
		db.shared--
	}
	f.level = level
	return true, nil
}

// Reserved reports whether any handle holds the reserved lock or above.
func (f *File) Reserved() (bool, error) {
	db := f.db
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.reserved != nil || db.pending != nil || db.exclusive != nil, nil
}

// CurrentLock returns this handle's current lock level.
func (f *File) CurrentLock() (fs.LockLevel, error) {
	f.db.mu.Lock()
	level := f.level
	f.db.mu.Unlock()
	return level, nil
}

// SetChunkSize is a no-op: memory does not fragment.
func (f *File) SetChunkSize(size int) error {
	return nil
}

// Moved reports false: in-memory databases cannot move.
func (f *File) Moved() (bool, error) {
	return false, nil
}

// WalIndex returns a per-handle view of the shared WAL-index.
func (f *File) WalIndex(readonly bool) (fs.WalIndex, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.wal == nil {
		f.db.wal = newMemWal(f.db)
	}
	return &WalIndex{wal: f.db.wal}, nil
}

// Check the interfaces are satisfied
var (
	_ fs.Fs   = &Fs{}
	_ fs.File = &File{}
)
