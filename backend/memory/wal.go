package memory

import (
	"sync"

	"github.com/sqlitevfs/sqlitevfs/fs"
)

// memWal is the WAL-index shared between all handles of one database: the
// region slabs holding the published content and the slot table coordinating
// readers and writers.
type memWal struct {
	db      *memDB
	mu      sync.Mutex
	regions map[uint32][]byte
	slots   map[uint8]*walSlot
}

type walSlot struct {
	readers map[*WalIndex]bool
	writer  *WalIndex
}

func newMemWal(db *memDB) *memWal {
	return &memWal{
		db:      db,
		regions: make(map[uint32][]byte, 2),
		slots:   make(map[uint8]*walSlot, 8),
	}
}

func (w *memWal) slot(i uint8) *walSlot {
	s := w.slots[i]
	if s == nil {
		s = &walSlot{readers: make(map[*WalIndex]bool, 2)}
		w.slots[i] = s
	}
	return s
}

// region returns the slab for a region, creating it zero-filled if needed.
// Callers hold w.mu.
func (w *memWal) region(i uint32) []byte {
	p := w.regions[i]
	if p == nil {
		p = make([]byte, fs.WalIndexRegionSize)
		w.regions[i] = p
	}
	return p
}

// WalIndex is one handle's view of the shared index. The handle identity is
// what makes shared/exclusive slot compatibility decidable.
type WalIndex struct {
	wal *memWal
}

// Enabled reports that the index can be used.
func (h *WalIndex) Enabled() bool { return true }

// Map returns a copy of the current content of region.
func (h *WalIndex) Map(region uint32) ([]byte, error) {
	h.wal.mu.Lock()
	defer h.wal.mu.Unlock()
	p := make([]byte, fs.WalIndexRegionSize)
	copy(p, h.wal.region(region))
	return p, nil
}

// Lock sets the slots in [start, end) to mode. The transition is applied
// all-or-nothing: if any slot refuses, nothing changes.
func (h *WalIndex) Lock(start, end uint8, mode fs.WalIndexLockMode) (bool, error) {
	w := h.wal
	w.mu.Lock()
	defer w.mu.Unlock()

	// Check every slot first.
	for i := start; i < end; i++ {
		s := w.slot(i)
		switch mode {
		case fs.WalLockShared:
			if s.writer != nil && s.writer != h {
				return false, nil
			}
		case fs.WalLockExclusive:
			if s.writer != nil && s.writer != h {
				return false, nil
			}
			others := len(s.readers)
			if s.readers[h] {
				others--
			}
			if others > 0 {
				return false, nil
			}
		}
	}

	// Then apply.
	for i := start; i < end; i++ {
		s := w.slot(i)
		switch mode {
		case fs.WalLockShared:
			s.readers[h] = true
			if s.writer == h {
				s.writer = nil
			}
		case fs.WalLockExclusive:
			s.writer = h
			delete(s.readers, h)
		case fs.WalLockNone:
			delete(s.readers, h)
			if s.writer == h {
				s.writer = nil
			}
		}
	}
	return true, nil
}

// Delete removes the index from the database so the next WalIndex call
// starts fresh.
func (h *WalIndex) Delete() error {
	db := h.wal.db
	db.mu.Lock()
	if db.wal == h.wal {
		db.wal = nil
	}
	db.mu.Unlock()
	return nil
}

// Pull refreshes p from the published copy of region.
func (h *WalIndex) Pull(region uint32, p []byte) error {
	h.wal.mu.Lock()
	copy(p, h.wal.region(region))
	h.wal.mu.Unlock()
	return nil
}

// Push publishes p as the shared copy of region.
func (h *WalIndex) Push(region uint32, p []byte) error {
	h.wal.mu.Lock()
	copy(h.wal.region(region), p)
	h.wal.mu.Unlock()
	return nil
}

// Check the interfaces are satisfied
var _ fs.WalIndex = &WalIndex{}
