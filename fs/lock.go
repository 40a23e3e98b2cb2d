package fs

import "fmt"

// LockLevel is one level of the engine's five-level file-lock ladder.
//
// The levels are totally ordered: LockNone < LockShared < LockReserved <
// LockPending < LockExclusive.
type LockLevel int

// The lock ladder.
const (
	// LockNone - no lock is held. The file may be neither read nor
	// written through this handle.
	LockNone LockLevel = iota

	// LockShared - the file may be read but not written. Any number of
	// handles can hold shared locks at the same time.
	LockShared

	// LockReserved - the holder plans to write at some point. A single
	// reserved lock coexists with any number of shared locks.
	LockReserved

	// LockPending - the holder wants to write as soon as the current
	// shared locks clear. No new shared locks are granted.
	LockPending

	// LockExclusive - required to write. No other lock of any kind may
	// coexist with it.
	LockExclusive
)

// String converts the LockLevel to a string for debug output
func (l LockLevel) String() string {
	switch l {
	case LockNone:
		return "none"
	case LockShared:
		return "shared"
	case LockReserved:
		return "reserved"
	case LockPending:
		return "pending"
	case LockExclusive:
		return "exclusive"
	}
	return fmt.Sprintf("LockLevel(%d)", int(l))
}

// WalIndexLockMode is the mode a WAL-index lock slot is held in.
type WalIndexLockMode int

// WAL-index slot modes.
const (
	WalLockNone WalIndexLockMode = iota
	WalLockShared
	WalLockExclusive
)

// String converts the WalIndexLockMode to a string for debug output
func (m WalIndexLockMode) String() string {
	switch m {
	case WalLockNone:
		return "none"
	case WalLockShared:
		return "shared"
	case WalLockExclusive:
		return "exclusive"
	}
	return fmt.Sprintf("WalIndexLockMode(%d)", int(m))
}
