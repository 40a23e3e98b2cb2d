package fs

import "fmt"

// OpenOptions describes how a file is to be opened.
type OpenOptions struct {
	// Kind is the object type that is being opened.
	Kind OpenKind

	// Access is the access the object is opened with.
	Access OpenAccess

	// DeleteOnClose requests that the file is deleted when it is closed.
	DeleteOnClose bool
}

// OpenKind is the object type that is being opened.
type OpenKind int

// Object types an engine opens through the adapter.
const (
	OpenMainDb OpenKind = iota
	OpenMainJournal
	OpenTempDb
	OpenTempJournal
	OpenTransientDb
	OpenSubJournal
	OpenSuperJournal
	OpenWal
)

// String converts the OpenKind to a string for debug output
func (k OpenKind) String() string {
	switch k {
	case OpenMainDb:
		return "main-db"
	case OpenMainJournal:
		return "main-journal"
	case OpenTempDb:
		return "temp-db"
	case OpenTempJournal:
		return "temp-journal"
	case OpenTransientDb:
		return "transient-db"
	case OpenSubJournal:
		return "sub-journal"
	case OpenSuperJournal:
		return "super-journal"
	case OpenWal:
		return "wal"
	}
	return fmt.Sprintf("OpenKind(%d)", int(k))
}

// OpenAccess is the access an object is opened with.
type OpenAccess int

// Access modes in increasing capability order.
const (
	// AccessRead opens for reading only.
	AccessRead OpenAccess = iota

	// AccessWrite opens for reading and writing.
	AccessWrite

	// AccessCreate opens for reading and writing, creating the file if it
	// does not exist.
	AccessCreate

	// AccessCreateNew creates the file for reading and writing, failing if
	// it already exists.
	AccessCreateNew
)

// String converts the OpenAccess to a string for debug output
func (a OpenAccess) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessCreate:
		return "create"
	case AccessCreateNew:
		return "create-new"
	}
	return fmt.Sprintf("OpenAccess(%d)", int(a))
}
