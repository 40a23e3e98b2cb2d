//go:build !windows && !plan9 && !js

package local

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/sqlitevfs/sqlitevfs/fs"
)

// The engine's canonical lock page. Every process cooperating on a database
// file locks the same byte ranges, so locks taken here interoperate with
// other implementations on the same file.
//
// Note the usual POSIX caveat: fcntl locks are held per (process, inode), so
// a process should open each database file through at most one handle.
const (
	pendingByte  = 0x40000000
	reservedByte = pendingByte + 1
	sharedFirst  = pendingByte + 2
	sharedSize   = 510
)

// rangeLock applies one fcntl lock. A refusal by another lock holder is
// reported as (false, nil); real failures as an error.
func rangeLock(fd uintptr, typ int16, start, length int64) (bool, error) {
	flk := unix.Flock_t{
		Type:   typ,
		Whence: 0, // SEEK_SET
		Start:  start,
		Len:    length,
	}
	err := unix.FcntlFlock(fd, unix.F_SETLK, &flk)
	if err == nil {
		return true, nil
	}
	if err == unix.EAGAIN || err == unix.EACCES || err == unix.EBUSY {
		return false, nil
	}
	return false, errors.Wrap(err, "fcntl lock failed")
}

// Lock attempts to raise this handle's lock to level.
func (f *File) Lock(level fs.LockLevel) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if level <= f.level {
		return true, nil
	}
	fd := f.file.Fd()
	switch level {
	case fs.LockShared:
		// The pending byte is taken shared first so a pending writer
		// blocks new readers.
		ok, err := rangeLock(fd, unix.F_RDLCK, pendingByte, 1)
		if !ok || err != nil {
			return ok, err
		}
		ok, err = rangeLock(fd, unix.F_RDLCK, sharedFirst, sharedSize)
		if _, uerr := rangeLock(fd, unix.F_UNLCK, pendingByte, 1); uerr != nil {
			return false, uerr
		}
		if !ok || err != nil {
			return ok, err
		}
	case fs.LockReserved:
		ok, err := rangeLock(fd, unix.F_WRLCK, reservedByte, 1)
		if !ok || err != nil {
			return ok, err
		}
	case fs.LockPending, fs.LockExclusive:
		ok, err := rangeLock(fd, unix.F_WRLCK, pendingByte, 1)
		if !ok || err != nil {
			return ok, err
		}
		// The pending byte is ours; readers drain from here on.
		f.level = fs.LockPending
		if level == fs.LockExclusive {
			ok, err = rangeLock(fd, unix.F_WRLCK, sharedFirst, sharedSize)
			if !ok || err != nil {
				return ok, err
			}
		}
	}
	f.level = level
	return true, nil
}

// Unlock lowers this handle's lock to level.
func (f *File) Unlock(level fs.LockLevel) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if level >= f.level {
		return true, nil
	}
	fd := f.file.Fd()
	if level == fs.LockShared {
		if ok, err := rangeLock(fd, unix.F_RDLCK, sharedFirst, sharedSize); !ok || err != nil {
			return ok, err
		}
		if _, err := rangeLock(fd, unix.F_UNLCK, pendingByte, 2); err != nil {
			return false, err
		}
	} else {
		if _, err := rangeLock(fd, unix.F_UNLCK, 0, 0); err != nil {
			return false, err
		}
	}
	f.level = level
	return true, nil
}

// Reserved reports whether any handle holds a reserved or higher lock on the
// file.
func (f *File) Reserved() (bool, error) {
	f.mu.Lock()
	level := f.level
	f.mu.Unlock()
	if level >= fs.LockReserved {
		return true, nil
	}
	flk := unix.Flock_t{
		Type:   unix.F_WRLCK,
		Whence: 0,
		Start:  reservedByte,
		Len:    1,
	}
	if err := unix.FcntlFlock(f.file.Fd(), unix.F_GETLK, &flk); err != nil {
		return false, errors.Wrap(err, "fcntl probe failed")
	}
	return flk.Type != unix.F_UNLCK, nil
}

// CurrentLock returns this handle's current lock level.
func (f *File) CurrentLock() (fs.LockLevel, error) {
	f.mu.Lock()
	level := f.level
	f.mu.Unlock()
	return level, nil
}
