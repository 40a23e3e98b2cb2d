// Package fs is the backend contract consumed by the VFS adapter.
//
// A backend provides three capabilities: an Fs (the file system), Files
// opened from it, and optionally a WalIndex obtained from a File. All blocking
// operations may take arbitrarily long; the adapter never imposes timeouts.
package fs

import (
	"time"
)

// Fs is the file-system capability of a backend.
//
// Implementations signal failure classes with the stdlib sentinels: a missing
// file matches os.ErrNotExist, an authorization refusal matches
// os.ErrPermission.
type Fs interface {
	// Open opens (or creates, per opts.Access) the named file.
	Open(name string, opts OpenOptions) (File, error)

	// Delete removes the named file.
	Delete(name string) error

	// Exists reports whether the named file exists.
	Exists(name string) (bool, error)

	// TempName generates a name for a temporary file.
	TempName() string

	// Random fills p with random bytes.
	Random(p []byte)

	// Sleep pauses for roughly d and returns the duration actually slept.
	Sleep(d time.Duration) time.Duration

	// Access reports whether the named file can be read (write=false) or
	// read and written (write=true).
	Access(name string, write bool) (bool, error)

	// FullPath returns the full canonical name for name.
	FullPath(name string) (string, error)
}

// File is the capability of a single open file.
type File interface {
	// Close releases the handle. The file itself stays; deleting it is a
	// separate Fs.Delete call.
	Close() error

	// Size returns the current size of the file in bytes.
	Size() (int64, error)

	// ReadAt reads exactly len(p) bytes starting at off. If the file ends
	// before the buffer is filled it returns an error matching
	// io.ErrUnexpectedEOF.
	ReadAt(p []byte, off int64) error

	// WriteAt writes all of p starting at off. If the destination is full
	// it returns an error matching io.ErrShortWrite.
	WriteAt(p []byte, off int64) error

	// Sync commits outstanding writes to the underlying storage. When
	// dataOnly is set only the data needs to be synced, not the metadata.
	Sync(dataOnly bool) error

	// Truncate sets the file to size, extending with zero bytes or
	// shrinking as needed.
	Truncate(size int64) error

	// Lock attempts to move this handle's lock to level, reporting whether
	// the lock was acquired. The engine never skips from LockNone above
	// LockShared, never requests LockPending explicitly, and always holds
	// LockShared when requesting LockReserved.
	Lock(level LockLevel) (bool, error)

	// Unlock lowers this handle's lock to level.
	Unlock(level LockLevel) (bool, error)

	// Reserved reports whether any handle holds a lock at LockReserved or
	// above on this file.
	Reserved() (bool, error)

	// CurrentLock returns the level currently held by this handle.
	CurrentLock() (LockLevel, error)

	// SetChunkSize advises the backend of the allocation granularity.
	SetChunkSize(size int) error

	// Moved reports whether the underlying file was renamed, replaced or
	// deleted since it was opened.
	Moved() (bool, error)

	// WalIndex returns the shared WAL-index for this file.
	WalIndex(readonly bool) (WalIndex, error)
}

// WalIndexRegionSize is the fixed size of a WAL-index region in bytes.
const WalIndexRegionSize = 32768

// WalIndex is a shared-memory structure mirroring WAL metadata between the
// connections of a database. It is divided into regions of exactly
// WalIndexRegionSize bytes, coordinated by a byte-indexed array of lock slots.
type WalIndex interface {
	// Enabled reports whether this index can be used at all. It is a
	// static property of the implementation.
	Enabled() bool

	// Map returns the current content of the given region, exactly
	// WalIndexRegionSize bytes, creating the region if necessary.
	Map(region uint32) ([]byte, error)

	// Lock sets the slots in [start, end) to mode, reporting whether the
	// transition was possible.
	Lock(start, end uint8, mode WalIndexLockMode) (bool, error)

	// Delete removes the index from the backend.
	Delete() error

	// Pull refreshes p (WalIndexRegionSize bytes) from the shared copy of
	// the given region.
	Pull(region uint32, p []byte) error

	// Push publishes p (WalIndexRegionSize bytes) to the shared copy of
	// the given region.
	Push(region uint32, p []byte) error
}
