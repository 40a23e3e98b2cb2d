package vfs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlitevfs/sqlitevfs/fs"
)

// Every (kind, access, deleteOnClose) combination survives a round trip
// through the engine's flag bitset.
func TestOpenOptionsRoundTrip(t *testing.T) {
	kinds := []fs.OpenKind{
		fs.OpenMainDb, fs.OpenMainJournal, fs.OpenTempDb, fs.OpenTempJournal,
		fs.OpenTransientDb, fs.OpenSubJournal, fs.OpenSuperJournal, fs.OpenWal,
	}
	accesses := []fs.OpenAccess{fs.AccessRead, fs.AccessWrite, fs.AccessCreate, fs.AccessCreateNew}

	for _, kind := range kinds {
		for _, access := range accesses {
			for _, doc := range []bool{false, true} {
				opts := fs.OpenOptions{Kind: kind, Access: access, DeleteOnClose: doc}
				name := fmt.Sprintf("%v/%v/doc=%v", kind, access, doc)

				got, ok := OpenOptionsFromFlags(OpenOptionsToFlags(opts))
				require.True(t, ok, name)
				assert.Equal(t, opts, got, name)
			}
		}
	}
}

func TestOpenOptionsFromFlags(t *testing.T) {
	for _, test := range []struct {
		flags int
		want  fs.OpenOptions
		ok    bool
	}{
		{OPEN_MAIN_DB | OPEN_READWRITE | OPEN_CREATE, fs.OpenOptions{Kind: fs.OpenMainDb, Access: fs.AccessCreate}, true},
		{OPEN_MAIN_DB | OPEN_READONLY, fs.OpenOptions{Kind: fs.OpenMainDb, Access: fs.AccessRead}, true},
		{OPEN_WAL | OPEN_READWRITE | OPEN_CREATE | OPEN_EXCLUSIVE, fs.OpenOptions{Kind: fs.OpenWal, Access: fs.AccessCreateNew}, true},
		{OPEN_TEMP_JOURNAL | OPEN_READWRITE | OPEN_DELETEONCLOSE, fs.OpenOptions{Kind: fs.OpenTempJournal, Access: fs.AccessWrite, DeleteOnClose: true}, true},
		{OPEN_READWRITE, fs.OpenOptions{}, false}, // no kind
		{OPEN_MAIN_DB, fs.OpenOptions{}, false},   // no access
		{0, fs.OpenOptions{}, false},
	} {
		got, ok := OpenOptionsFromFlags(test.flags)
		assert.Equal(t, test.ok, ok, "flags %#x", test.flags)
		if test.ok {
			assert.Equal(t, test.want, got, "flags %#x", test.flags)
		}
	}
}

func TestLockLevelCodes(t *testing.T) {
	for code, want := range map[int]fs.LockLevel{
		LOCK_NONE:      fs.LockNone,
		LOCK_SHARED:    fs.LockShared,
		LOCK_RESERVED:  fs.LockReserved,
		LOCK_PENDING:   fs.LockPending,
		LOCK_EXCLUSIVE: fs.LockExclusive,
	} {
		got, ok := LockLevelFromCode(code)
		require.True(t, ok, code)
		assert.Equal(t, want, got)
		assert.Equal(t, code, LockLevelToCode(got))
	}

	_, ok := LockLevelFromCode(5)
	assert.False(t, ok)
	_, ok = LockLevelFromCode(-1)
	assert.False(t, ok)
}
