package vfs

import (
	"errors"
	"os"

	"github.com/sqlitevfs/sqlitevfs/fs"
	"github.com/sqlitevfs/sqlitevfs/lib/mmap"
)

// ensureWalIndexLocked obtains the WAL-index capability if the slot is still
// empty, retrying readonly when the backend refuses read-write access.
// Callers hold shmMu.
func (f *File) ensureWalIndexLocked() int {
	if f.walIndex != nil {
		return OK
	}
	wal, err := f.handle.WalIndex(false)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			// Try again as readonly.
			if ro, roErr := f.handle.WalIndex(true); roErr == nil {
				f.walIndex, f.walReadonly = ro, true
				return OK
			}
		}
		return f.StoreError(IOERR_SHMMAP, err)
	}
	f.walIndex, f.walReadonly = wal, false
	return OK
}

// ShmMap materializes a WAL-index region and returns its pinned buffer. The
// buffer's address is stable until the region is unmapped; re-mapping the
// same region returns the same buffer. A readonly index reports READONLY
// instead of OK.
func (f *File) ShmMap(region uint32, regionSize int, extend bool) ([]byte, int) {
	f.shmMu.Lock()
	defer f.shmMu.Unlock()
	fs.Debugf(f, "shm_map pg=%d sz=%d extend=%v", region, regionSize, extend)

	if rc := f.ensureWalIndexLocked(); rc != OK {
		return nil, rc
	}
	if !f.walIndex.Enabled() {
		return nil, IOERR_SHMLOCK
	}
	if regionSize != fs.WalIndexRegionSize {
		return nil, f.StoreError(IOERR_SHMMAP, &RegionSizeError{Size: regionSize})
	}

	p, ok := f.regions[region]
	if !ok {
		initial, err := f.walIndex.Map(region)
		if err != nil {
			return nil, f.StoreError(IOERR_SHMMAP, err)
		}
		// The engine retains raw pointers into the region, so the
		// buffer comes from mmap and never moves.
		p, err = mmap.Alloc(fs.WalIndexRegionSize)
		if err != nil {
			return nil, f.StoreError(NOMEM, err)
		}
		copy(p, initial)
		if f.regions == nil {
			f.regions = make(map[uint32][]byte)
		}
		f.regions[region] = p
	}

	if f.walReadonly {
		return p, READONLY
	}
	return p, OK
}

// ShmLock acquires or releases a range of WAL-index lock slots. Before an
// acquisition by a handle holding no exclusive slot, every materialized
// region is pulled from the backend; before a release that gives up an
// exclusive slot, every materialized region is pushed unless the index is
// readonly.
func (f *File) ShmLock(offset, n int, flags int) int {
	f.shmMu.Lock()
	defer f.shmMu.Unlock()

	locking := flags&SHM_LOCK > 0
	exclusive := flags&SHM_EXCLUSIVE > 0
	fs.Debugf(f, "shm_lock offset=%d n=%d lock=%v exclusive=%v (flags=%d)", offset, n, locking, exclusive, flags)

	var mode fs.WalIndexLockMode
	switch {
	case locking && exclusive:
		mode = fs.WalLockExclusive
	case locking:
		mode = fs.WalLockShared
	default:
		mode = fs.WalLockNone
	}

	if f.walIndex == nil {
		return f.StoreError(IOERR_SHMLOCK, ErrWalIndexNotMapped)
	}
	start, end := uint8(offset), uint8(offset+n)

	if locking {
		// A reader is about to enter a new epoch: refresh its view
		// first.
		if !f.holdsExclusiveSlot() {
			fs.Debugf(f, "does not have wal index write lock, pulling changes")
			for region, p := range f.regions {
				if err := f.walIndex.Pull(region, p); err != nil {
					return f.StoreError(IOERR_SHMLOCK, err)
				}
			}
		}
	} else {
		releasesExclusive := false
		for slot := start; slot < end; slot++ {
			if f.shmLocks[slot] == fs.WalLockExclusive {
				releasesExclusive = true
				break
			}
		}
		// A writer is about to give up exclusivity: publish its
		// changes first.
		if releasesExclusive && !f.walReadonly {
			fs.Debugf(f, "releasing an exclusive lock, pushing wal index changes")
			for region, p := range f.regions {
				if err := f.walIndex.Push(region, p); err != nil {
					return f.StoreError(IOERR_SHMLOCK, err)
				}
			}
		}
	}

	ok, err := f.walIndex.Lock(start, end, mode)
	if err != nil {
		return f.StoreError(IOERR_SHMLOCK, err)
	}
	if !ok {
		return BUSY
	}
	if f.shmLocks == nil {
		f.shmLocks = make(map[uint8]fs.WalIndexLockMode)
	}
	for slot := start; slot < end; slot++ {
		f.shmLocks[slot] = mode
	}
	return OK
}

// ShmBarrier synchronizes the materialized regions with the backend: a
// writer holding the exclusive database lock pushes, a reader holding no
// exclusive slot pulls. Failures are logged and do not surface to the
// engine (the call has no return channel).
func (f *File) ShmBarrier() {
	f.shmMu.Lock()
	defer f.shmMu.Unlock()
	fs.Debugf(f, "shm_barrier")

	if f.walIndex == nil {
		return
	}
	if f.hasExclusiveLock && !f.walReadonly {
		fs.Debugf(f, "has exclusive db lock, pushing wal index changes")
		for region, p := range f.regions {
			if err := f.walIndex.Push(region, p); err != nil {
				fs.Errorf(f, "pushing wal index changes failed: %v", err)
			}
		}
		return
	}
	if !f.holdsExclusiveSlot() {
		fs.Debugf(f, "does not have wal index write lock, pulling changes")
		for region, p := range f.regions {
			if err := f.walIndex.Pull(region, p); err != nil {
				fs.Errorf(f, "pulling wal index changes failed: %v", err)
			}
		}
	}
}

// ShmUnmap releases the materialized regions and the slot map. With del set
// the index itself is deleted from the backend (unless it was readonly).
func (f *File) ShmUnmap(del bool) int {
	f.shmMu.Lock()
	defer f.shmMu.Unlock()
	fs.Debugf(f, "shm_unmap delete=%v", del)

	f.freeRegions()
	f.shmLocks = nil

	if del && f.walIndex != nil {
		wal, readonly := f.walIndex, f.walReadonly
		f.walIndex, f.walReadonly = nil, false
		if !readonly {
			if err := wal.Delete(); err != nil {
				return f.StoreError(ERROR, err)
			}
		}
	}
	return OK
}
