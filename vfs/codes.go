package vfs

// Status codes returned to the engine. The values are those of the engine's
// C header.
const (
	OK        = 0
	ERROR     = 1
	PERM      = 3
	BUSY      = 5
	NOMEM     = 7
	READONLY  = 8
	IOERR     = 10
	NOTFOUND  = 12
	FULL      = 13
	CANTOPEN  = 14
	DELETE    = 9 // engine code reported for failed deletions

	IOERR_READ              = IOERR | 1<<8
	IOERR_SHORT_READ        = IOERR | 2<<8
	IOERR_WRITE             = IOERR | 3<<8
	IOERR_FSYNC             = IOERR | 4<<8
	IOERR_DIR_FSYNC         = IOERR | 5<<8
	IOERR_TRUNCATE          = IOERR | 6<<8
	IOERR_FSTAT             = IOERR | 7<<8
	IOERR_UNLOCK            = IOERR | 8<<8
	IOERR_RDLOCK            = IOERR | 9<<8
	IOERR_DELETE            = IOERR | 10<<8
	IOERR_ACCESS            = IOERR | 13<<8
	IOERR_CHECKRESERVEDLOCK = IOERR | 14<<8
	IOERR_LOCK              = IOERR | 15<<8
	IOERR_CLOSE             = IOERR | 16<<8
	IOERR_SHMOPEN           = IOERR | 18<<8
	IOERR_SHMSIZE           = IOERR | 19<<8
	IOERR_SHMLOCK           = IOERR | 20<<8
	IOERR_SHMMAP            = IOERR | 21<<8
	IOERR_SEEK              = IOERR | 22<<8
	IOERR_DELETE_NOENT      = IOERR | 23<<8

	READONLY_DIRECTORY = READONLY | 6<<8
)

// Open flags as passed by the engine.
const (
	OPEN_READONLY      = 0x00000001
	OPEN_READWRITE     = 0x00000002
	OPEN_CREATE        = 0x00000004
	OPEN_DELETEONCLOSE = 0x00000008
	OPEN_EXCLUSIVE     = 0x00000010
	OPEN_AUTOPROXY     = 0x00000020
	OPEN_URI           = 0x00000040
	OPEN_MEMORY        = 0x00000080
	OPEN_MAIN_DB       = 0x00000100
	OPEN_TEMP_DB       = 0x00000200
	OPEN_TRANSIENT_DB  = 0x00000400
	OPEN_MAIN_JOURNAL  = 0x00000800
	OPEN_TEMP_JOURNAL  = 0x00001000
	OPEN_SUBJOURNAL    = 0x00002000
	OPEN_SUPER_JOURNAL = 0x00004000
	OPEN_NOMUTEX       = 0x00008000
	OPEN_FULLMUTEX     = 0x00010000
	OPEN_SHAREDCACHE   = 0x00020000
	OPEN_PRIVATECACHE  = 0x00040000
	OPEN_WAL           = 0x00080000
	OPEN_NOFOLLOW      = 0x01000000
)

// File lock levels as passed by the engine.
const (
	LOCK_NONE      = 0
	LOCK_SHARED    = 1
	LOCK_RESERVED  = 2
	LOCK_PENDING   = 3
	LOCK_EXCLUSIVE = 4
)

// Access probe modes.
const (
	ACCESS_EXISTS    = 0
	ACCESS_READWRITE = 1
	ACCESS_READ      = 2
)

// Sync flags.
const (
	SYNC_NORMAL   = 0x00002
	SYNC_FULL     = 0x00003
	SYNC_DATAONLY = 0x00010
)

// Shared-memory lock flags.
const (
	SHM_UNLOCK    = 1
	SHM_LOCK      = 2
	SHM_SHARED    = 4
	SHM_EXCLUSIVE = 8
)

// Device characteristics.
const (
	IOCAP_POWERSAFE_OVERWRITE = 0x00001000
)

// File-control opcodes.
const (
	FCNTL_LOCKSTATE             = 1
	FCNTL_GET_LOCKPROXYFILE     = 2
	FCNTL_SET_LOCKPROXYFILE     = 3
	FCNTL_LAST_ERRNO            = 4
	FCNTL_SIZE_HINT             = 5
	FCNTL_CHUNK_SIZE            = 6
	FCNTL_FILE_POINTER          = 7
	FCNTL_SYNC_OMITTED          = 8
	FCNTL_WIN32_AV_RETRY        = 9
	FCNTL_PERSIST_WAL           = 10
	FCNTL_OVERWRITE             = 11
	FCNTL_VFSNAME               = 12
	FCNTL_POWERSAFE_OVERWRITE   = 13
	FCNTL_PRAGMA                = 14
	FCNTL_BUSYHANDLER           = 15
	FCNTL_TEMPFILENAME          = 16
	FCNTL_MMAP_SIZE             = 18
	FCNTL_TRACE                 = 19
	FCNTL_HAS_MOVED             = 20
	FCNTL_SYNC                  = 21
	FCNTL_COMMIT_PHASETWO       = 22
	FCNTL_WIN32_SET_HANDLE      = 23
	FCNTL_WAL_BLOCK             = 24
	FCNTL_ZIPVFS                = 25
	FCNTL_RBU                   = 26
	FCNTL_VFS_POINTER           = 27
	FCNTL_JOURNAL_POINTER       = 28
	FCNTL_WIN32_GET_HANDLE      = 29
	FCNTL_PDB                   = 30
	FCNTL_BEGIN_ATOMIC_WRITE    = 31
	FCNTL_COMMIT_ATOMIC_WRITE   = 32
	FCNTL_ROLLBACK_ATOMIC_WRITE = 33
	FCNTL_LOCK_TIMEOUT          = 34
	FCNTL_DATA_VERSION          = 35
	FCNTL_SIZE_LIMIT            = 36
	FCNTL_CKPT_DONE             = 37
	FCNTL_RESERVE_BYTES         = 38
	FCNTL_CKPT_START            = 39
	FCNTL_EXTERNAL_READER       = 40
	FCNTL_CKSM_FILE             = 41
)

// MaxPathname is the longest logical path the adapter supports, in bytes,
// counting the terminating NUL.
const MaxPathname = 512

// SectorSize is the sector size advertised for every file.
const SectorSize = 1024
