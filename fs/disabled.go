package fs

import "errors"

var errWalDisabled = errors.New("wal is disabled")

// DisabledWalIndex is the WalIndex of backends that do not support a WAL.
// Files of such backends return it from WalIndex; the adapter refuses all
// shared-memory operations on it.
type DisabledWalIndex struct{}

// Enabled reports that the index cannot be used.
func (DisabledWalIndex) Enabled() bool { return false }

// Map always fails.
func (DisabledWalIndex) Map(region uint32) ([]byte, error) { return nil, errWalDisabled }

// Lock always fails.
func (DisabledWalIndex) Lock(start, end uint8, mode WalIndexLockMode) (bool, error) {
	return false, errWalDisabled
}

// Delete succeeds trivially.
func (DisabledWalIndex) Delete() error { return nil }

// Pull succeeds trivially.
func (DisabledWalIndex) Pull(region uint32, p []byte) error { return nil }

// Push succeeds trivially.
func (DisabledWalIndex) Push(region uint32, p []byte) error { return nil }

var _ WalIndex = DisabledWalIndex{}
