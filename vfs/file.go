package vfs

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sqlitevfs/sqlitevfs/fs"
	"github.com/sqlitevfs/sqlitevfs/lib/mmap"
)

// File is the adapter's per-file state. One File exists per slot the engine
// has opened and lives until the slot is closed.
//
// The engine serializes calls on a single file, with one exception: ShmLock
// and ShmBarrier may race with the other methods. shmMu covers the state
// those calls touch.
type File struct {
	vfs    *VFS
	handle fs.File
	name   string
	id     uint64
	errs   *errorSlot

	deleteOnClose      bool
	persistWal         bool
	powersafeOverwrite bool
	chunkSize          int
	lastErrno          int

	shmMu            sync.Mutex
	hasExclusiveLock bool
	walIndex         fs.WalIndex
	walReadonly      bool
	regions          map[uint32][]byte // region id -> pinned buffer
	shmLocks         map[uint8]fs.WalIndexLockMode
}

// String converts this File to a string for debug output
func (f *File) String() string {
	return fmt.Sprintf("file[%d] %s", f.id, f.name)
}

// Name returns the logical name the file was opened under.
func (f *File) Name() string {
	return f.name
}

// ID returns the adapter's identifier for this file.
func (f *File) ID() uint64 {
	return f.id
}

// StoreError stashes (code, err) in the shared error slot, records code as
// this file's last errno, and returns code.
func (f *File) StoreError(code int, err error) int {
	fs.Debugf(f, "error %d: %v", code, err)
	f.lastErrno = code
	return f.errs.store(code, err)
}

// Close tears the file down, deleting it first if it was opened
// delete-on-close.
func (f *File) Close() int {
	fs.Debugf(f, "close")
	if f.deleteOnClose {
		if err := f.vfs.fsys.Delete(f.name); err != nil {
			return f.StoreError(DELETE, err)
		}
	}
	f.shmMu.Lock()
	f.freeRegions()
	f.shmLocks = nil
	f.walIndex = nil
	f.shmMu.Unlock()
	if err := f.handle.Close(); err != nil {
		return f.StoreError(IOERR_CLOSE, err)
	}
	f.handle = nil
	return OK
}

// ReadAt reads len(p) bytes at off. A read past the end of the file returns
// IOERR_SHORT_READ, which the engine treats as end-of-file rather than an
// error, so no last-error is recorded for it.
func (f *File) ReadAt(p []byte, off int64) int {
	fs.Debugf(f, "read offset=%d len=%d", off, len(p))
	err := f.handle.ReadAt(p, off)
	if err == nil {
		return OK
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return IOERR_SHORT_READ
	}
	return f.StoreError(IOERR_READ, err)
}

// WriteAt writes all of p at off. A full destination returns FULL.
func (f *File) WriteAt(p []byte, off int64) int {
	fs.Debugf(f, "write offset=%d len=%d", off, len(p))
	err := f.handle.WriteAt(p, off)
	if err == nil {
		return OK
	}
	if errors.Is(err, io.ErrShortWrite) {
		return FULL
	}
	return f.StoreError(IOERR_WRITE, err)
}

// roundToChunk rounds size up to the next multiple of the chunk size hint.
func (f *File) roundToChunk(size int64) int64 {
	if f.chunkSize <= 0 {
		return size
	}
	c := int64(f.chunkSize)
	return (size + c - 1) / c * c
}

// Truncate sets the file length to size, rounded up per the chunk-size hint.
func (f *File) Truncate(size int64) int {
	size = f.roundToChunk(size)
	fs.Debugf(f, "truncate size=%d", size)
	if err := f.handle.Truncate(size); err != nil {
		return f.StoreError(IOERR_TRUNCATE, err)
	}
	return OK
}

// Sync commits outstanding writes to storage.
func (f *File) Sync(flags int) int {
	fs.Debugf(f, "sync")
	if err := f.handle.Sync(flags&SYNC_DATAONLY > 0); err != nil {
		return f.StoreError(IOERR_FSYNC, err)
	}
	return OK
}

// FileSize returns the current size of the file.
func (f *File) FileSize() (int64, int) {
	fs.Debugf(f, "file_size")
	size, err := f.handle.Size()
	if err != nil {
		return 0, f.StoreError(IOERR_FSTAT, err)
	}
	return size, OK
}

// Lock attempts to raise the file lock to level. A refused transition
// returns BUSY and the engine retries through its busy-handler.
func (f *File) Lock(level fs.LockLevel) int {
	ok, err := f.handle.Lock(level)
	if err != nil {
		return f.StoreError(IOERR_LOCK, err)
	}
	if !ok {
		fs.Debugf(f, "busy (denied %v)", level)
		return BUSY
	}
	fs.Debugf(f, "lock=%v", level)

	f.shmMu.Lock()
	defer f.shmMu.Unlock()
	f.hasExclusiveLock = level == fs.LockExclusive

	// Just acquired the exclusive database lock while not holding any
	// exclusive lock on the wal index: make sure the wal index is up to
	// date. Pull failures do not fail the lock.
	if f.hasExclusiveLock && !f.holdsExclusiveSlot() && f.walIndex != nil {
		fs.Debugf(f, "acquired exclusive db lock, pulling wal index changes")
		for region, p := range f.regions {
			if err := f.walIndex.Pull(region, p); err != nil {
				fs.Errorf(f, "pulling wal index changes failed: %v", err)
			}
		}
	}
	return OK
}

// Unlock lowers the file lock to level.
func (f *File) Unlock(level fs.LockLevel) int {
	ok, err := f.handle.Unlock(level)
	if err != nil {
		return f.StoreError(IOERR_UNLOCK, err)
	}
	if !ok {
		return BUSY
	}
	fs.Debugf(f, "unlock=%v", level)
	f.shmMu.Lock()
	f.hasExclusiveLock = level == fs.LockExclusive
	f.shmMu.Unlock()
	return OK
}

// CheckReserved reports whether any handle holds a reserved or higher lock
// on this file.
func (f *File) CheckReserved() (bool, int) {
	fs.Debugf(f, "check_reserved_lock")
	reserved, err := f.handle.Reserved()
	if err != nil {
		return false, f.StoreError(IOERR_CHECKRESERVEDLOCK, err)
	}
	return reserved, OK
}

// SectorSize returns the advertised sector size.
func (f *File) SectorSize() int {
	return SectorSize
}

// DeviceCharacteristics advertises powersafe-overwrite iff the file's flag
// is set.
func (f *File) DeviceCharacteristics() int {
	if f.powersafeOverwrite {
		return IOCAP_POWERSAFE_OVERWRITE
	}
	return 0
}

// FileControl handles an engine file-control opcode. arg carries the
// engine's untyped argument as the Go type the opcode calls for (*int32,
// *int64, *string or string); a nil interface means the engine passed no
// argument. Unrecognised opcodes return NOTFOUND.
func (f *File) FileControl(op int, arg interface{}) int {
	fs.Debugf(f, "file_control op=%d", op)
	switch op {
	case FCNTL_LOCKSTATE:
		level, err := f.handle.CurrentLock()
		if err != nil {
			return f.StoreError(ERROR, err)
		}
		if p, ok := arg.(*int32); ok && p != nil {
			*p = int32(LockLevelToCode(level))
		}
		return OK

	case FCNTL_LAST_ERRNO:
		if p, ok := arg.(*int32); ok && p != nil {
			*p = int32(f.lastErrno)
		}
		return OK

	case FCNTL_SIZE_HINT:
		p, ok := arg.(*int64)
		if !ok || p == nil || *p < 0 {
			return f.StoreError(NOTFOUND, &ExpectedArgError{Name: "size hint"})
		}
		hint := *p
		current, err := f.handle.Size()
		if err != nil {
			return f.StoreError(ERROR, err)
		}
		if current >= hint {
			return OK
		}
		if err := f.handle.Truncate(f.roundToChunk(hint)); err != nil {
			return f.StoreError(IOERR_TRUNCATE, err)
		}
		return OK

	case FCNTL_CHUNK_SIZE:
		p, ok := arg.(*int32)
		if !ok || p == nil || *p < 0 {
			return f.StoreError(NOTFOUND, &ExpectedArgError{Name: "chunk size"})
		}
		if err := f.handle.SetChunkSize(int(*p)); err != nil {
			return f.StoreError(ERROR, err)
		}
		f.chunkSize = int(*p)
		return OK

	case FCNTL_PERSIST_WAL:
		if p, ok := arg.(*int32); ok && p != nil {
			if *p < 0 {
				// query current setting
				*p = boolToInt32(f.persistWal)
			} else {
				f.persistWal = *p == 1
			}
		}
		return OK

	case FCNTL_POWERSAFE_OVERWRITE:
		if p, ok := arg.(*int32); ok && p != nil {
			if *p < 0 {
				// query current setting
				*p = boolToInt32(f.powersafeOverwrite)
			} else {
				f.powersafeOverwrite = *p == 1
			}
		}
		return OK

	case FCNTL_VFSNAME:
		if p, ok := arg.(*string); ok && p != nil {
			*p = f.vfs.name
		}
		return OK

	case FCNTL_TEMPFILENAME:
		if p, ok := arg.(*string); ok && p != nil {
			*p = f.vfs.fsys.TempName()
		}
		return OK

	case FCNTL_TRACE:
		if s, ok := arg.(string); ok {
			fs.Debugf(f, "%s", s)
		}
		return OK

	case FCNTL_HAS_MOVED:
		moved, err := f.handle.Moved()
		if err != nil {
			return f.StoreError(ERROR, err)
		}
		if p, ok := arg.(*int32); ok && p != nil {
			*p = boolToInt32(moved)
		}
		return OK

	case FCNTL_SYNC, FCNTL_COMMIT_PHASETWO, FCNTL_CKPT_DONE, FCNTL_CKPT_START:
		// Notifications the adapter has nothing to do for.
		return OK
	}
	return NOTFOUND
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// holdsExclusiveSlot reports whether any wal-index slot is held in exclusive
// mode. Callers hold shmMu.
func (f *File) holdsExclusiveSlot() bool {
	for _, mode := range f.shmLocks {
		if mode == fs.WalLockExclusive {
			return true
		}
	}
	return false
}

// freeRegions releases the pinned region buffers. Callers hold shmMu.
func (f *File) freeRegions() {
	for region, p := range f.regions {
		if err := mmap.Free(p); err != nil {
			fs.Errorf(f, "freeing region %d failed: %v", region, err)
		}
	}
	f.regions = nil
}
