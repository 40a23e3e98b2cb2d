package vfs

import (
	"github.com/sqlitevfs/sqlitevfs/fs"
)

// OpenOptionsFromFlags decodes the engine's open flag bitset. It reports
// ok=false unless the flags carry both an object kind and an access mode.
func OpenOptionsFromFlags(flags int) (opts fs.OpenOptions, ok bool) {
	kind, ok := openKindFromFlags(flags)
	if !ok {
		return opts, false
	}
	access, ok := openAccessFromFlags(flags)
	if !ok {
		return opts, false
	}
	return fs.OpenOptions{
		Kind:          kind,
		Access:        access,
		DeleteOnClose: flags&OPEN_DELETEONCLOSE > 0,
	}, true
}

// OpenOptionsToFlags re-encodes opts into the engine's flag bitset. It is the
// inverse of OpenOptionsFromFlags.
func OpenOptionsToFlags(opts fs.OpenOptions) (flags int) {
	flags = openKindToFlags(opts.Kind) | openAccessToFlags(opts.Access)
	if opts.DeleteOnClose {
		flags |= OPEN_DELETEONCLOSE
	}
	return flags
}

func openKindFromFlags(flags int) (fs.OpenKind, bool) {
	switch {
	case flags&OPEN_MAIN_DB > 0:
		return fs.OpenMainDb, true
	case flags&OPEN_MAIN_JOURNAL > 0:
		return fs.OpenMainJournal, true
	case flags&OPEN_TEMP_DB > 0:
		return fs.OpenTempDb, true
	case flags&OPEN_TEMP_JOURNAL > 0:
		return fs.OpenTempJournal, true
	case flags&OPEN_TRANSIENT_DB > 0:
		return fs.OpenTransientDb, true
	case flags&OPEN_SUBJOURNAL > 0:
		return fs.OpenSubJournal, true
	case flags&OPEN_SUPER_JOURNAL > 0:
		return fs.OpenSuperJournal, true
	case flags&OPEN_WAL > 0:
		return fs.OpenWal, true
	}
	return 0, false
}

func openKindToFlags(kind fs.OpenKind) int {
	switch kind {
	case fs.OpenMainDb:
		return OPEN_MAIN_DB
	case fs.OpenMainJournal:
		return OPEN_MAIN_JOURNAL
	case fs.OpenTempDb:
		return OPEN_TEMP_DB
	case fs.OpenTempJournal:
		return OPEN_TEMP_JOURNAL
	case fs.OpenTransientDb:
		return OPEN_TRANSIENT_DB
	case fs.OpenSubJournal:
		return OPEN_SUBJOURNAL
	case fs.OpenSuperJournal:
		return OPEN_SUPER_JOURNAL
	case fs.OpenWal:
		return OPEN_WAL
	}
	return 0
}

func openAccessFromFlags(flags int) (fs.OpenAccess, bool) {
	switch {
	case flags&OPEN_CREATE > 0 && flags&OPEN_EXCLUSIVE > 0:
		return fs.AccessCreateNew, true
	case flags&OPEN_CREATE > 0:
		return fs.AccessCreate, true
	case flags&OPEN_READWRITE > 0:
		return fs.AccessWrite, true
	case flags&OPEN_READONLY > 0:
		return fs.AccessRead, true
	}
	return 0, false
}

func openAccessToFlags(access fs.OpenAccess) int {
	switch access {
	case fs.AccessRead:
		return OPEN_READONLY
	case fs.AccessWrite:
		return OPEN_READWRITE
	case fs.AccessCreate:
		return OPEN_READWRITE | OPEN_CREATE
	case fs.AccessCreateNew:
		return OPEN_READWRITE | OPEN_CREATE | OPEN_EXCLUSIVE
	}
	return 0
}

// LockLevelFromCode decodes an engine lock level. It reports ok=false for an
// out-of-range code.
func LockLevelFromCode(code int) (fs.LockLevel, bool) {
	if code < LOCK_NONE || code > LOCK_EXCLUSIVE {
		return 0, false
	}
	return fs.LockLevel(code), true
}

// LockLevelToCode encodes a lock level for the engine.
func LockLevelToCode(level fs.LockLevel) int {
	return int(level)
}
