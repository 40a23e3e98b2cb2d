//go:build !windows && !plan9 && !js

package local

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/sqlitevfs/sqlitevfs/fs"
)

// walLockOffset is where the lock bytes live in the sidecar file, matching
// the engine's shared-memory layout so the slot locks interoperate.
const walLockOffset = 120

// WalIndex keeps the WAL-index in a "-shm" sidecar file next to the
// database. Regions are plain 32 KiB stretches of the file; slot locks are
// fcntl locks on the lock bytes.
type WalIndex struct {
	mu       sync.Mutex
	file     *os.File
	path     string
	readonly bool
}

// Enabled reports that the index can be used.
func (w *WalIndex) Enabled() bool { return true }

// regionOffset returns where a region's content lives. As in the engine's
// own shm layout, the lock bytes fall inside the first region.
func regionOffset(region uint32) int64 {
	return int64(region) * fs.WalIndexRegionSize
}

// Map returns the current content of region, growing the sidecar if needed.
func (w *WalIndex) Map(region uint32) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	end := regionOffset(region) + fs.WalIndexRegionSize
	if !w.readonly {
		fi, err := w.file.Stat()
		if err != nil {
			return nil, err
		}
		if fi.Size() < end {
			if err := w.file.Truncate(end); err != nil {
				return nil, errors.Wrap(err, "growing wal index failed")
			}
		}
	}
	p := make([]byte, fs.WalIndexRegionSize)
	n, err := w.file.ReadAt(p, regionOffset(region))
	if err != nil && err != io.EOF {
		return nil, err
	}
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return p, nil
}

// Lock sets the slots in [start, end) to mode with one fcntl lock over the
// contiguous byte range.
func (w *WalIndex) Lock(start, end uint8, mode fs.WalIndexLockMode) (bool, error) {
	var typ int16
	switch mode {
	case fs.WalLockShared:
		typ = unix.F_RDLCK
	case fs.WalLockExclusive:
		typ = unix.F_WRLCK
	default:
		typ = unix.F_UNLCK
	}
	flk := unix.Flock_t{
		Type:   typ,
		Whence: 0,
		Start:  walLockOffset + int64(start),
		Len:    int64(end) - int64(start),
	}
	err := unix.FcntlFlock(w.file.Fd(), unix.F_SETLK, &flk)
	if err == nil {
		return true, nil
	}
	if err == unix.EAGAIN || err == unix.EACCES || err == unix.EBUSY {
		return false, nil
	}
	return false, errors.Wrap(err, "fcntl lock failed")
}

// Delete removes the sidecar file.
func (w *WalIndex) Delete() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Close(); err != nil {
		return err
	}
	err := os.Remove(w.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Pull refreshes p from the sidecar copy of region, zero-filling past the
// end of the file.
func (w *WalIndex) Pull(region uint32, p []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.file.ReadAt(p, regionOffset(region))
	if err != nil && err != io.EOF {
		return err
	}
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return nil
}

// Push publishes p as the sidecar copy of region.
func (w *WalIndex) Push(region uint32, p []byte) error {
	if w.readonly {
		return errors.Wrap(os.ErrPermission, "wal index opened readonly")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := w.file.WriteAt(p, regionOffset(region))
	return err
}

// Check the interfaces are satisfied
var _ fs.WalIndex = &WalIndex{}
