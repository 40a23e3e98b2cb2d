package vfs

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlitevfs/sqlitevfs/fs"
)

// openTestFile opens a main database on a stub backend.
func openTestFile(t *testing.T) (*VFS, *File, *stubFile) {
	v, s := newTestVFS(t)
	f, _, rc := v.Open("test.db", OPEN_MAIN_DB|OPEN_READWRITE|OPEN_CREATE, true)
	require.Equal(t, OK, rc)
	return v, f, s.files["test.db"]
}

func lastError(v *VFS) (int, string) {
	buf := make([]byte, 256)
	rc := v.GetLastError(buf)
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	return rc, string(buf[:n])
}

func TestRead(t *testing.T) {
	_, f, sf := openTestFile(t)
	sf.data = []byte("hello world")

	p := make([]byte, 5)
	assert.Equal(t, OK, f.ReadAt(p, 6))
	assert.Equal(t, "world", string(p))
}

// A short read tells the engine it hit end-of-file; it is not an error and
// must not mark a last-error.
func TestReadShort(t *testing.T) {
	v, f, sf := openTestFile(t)
	sf.data = []byte("abc")

	p := make([]byte, 8)
	assert.Equal(t, IOERR_SHORT_READ, f.ReadAt(p, 0))

	rc, _ := lastError(v)
	assert.Equal(t, OK, rc)
}

func TestReadError(t *testing.T) {
	v, f, sf := openTestFile(t)
	sf.readErr = errors.New("disk on fire")

	assert.Equal(t, IOERR_READ, f.ReadAt(make([]byte, 4), 0))
	rc, msg := lastError(v)
	assert.Equal(t, IOERR_READ, rc)
	assert.Contains(t, msg, "disk on fire")
}

func TestWrite(t *testing.T) {
	_, f, sf := openTestFile(t)
	assert.Equal(t, OK, f.WriteAt([]byte("hello"), 3))
	assert.Equal(t, []byte("\x00\x00\x00hello"), sf.data)
}

func TestWriteFull(t *testing.T) {
	v, f, sf := openTestFile(t)
	sf.writeErr = io.ErrShortWrite

	assert.Equal(t, FULL, f.WriteAt([]byte("hello"), 0))

	// A full destination is reported through the status code alone.
	rc, _ := lastError(v)
	assert.Equal(t, OK, rc)
}

func TestWriteError(t *testing.T) {
	_, f, sf := openTestFile(t)
	sf.writeErr = errors.New("broken pipe")
	assert.Equal(t, IOERR_WRITE, f.WriteAt([]byte("hello"), 0))
}

func TestTruncate(t *testing.T) {
	_, f, sf := openTestFile(t)
	assert.Equal(t, OK, f.Truncate(100))
	assert.Equal(t, []int64{100}, sf.truncates)
}

// With a chunk size set, truncation rounds up to the next chunk multiple.
func TestTruncateChunked(t *testing.T) {
	_, f, sf := openTestFile(t)

	chunk := int32(4096)
	require.Equal(t, OK, f.FileControl(FCNTL_CHUNK_SIZE, &chunk))
	assert.Equal(t, []int{4096}, sf.chunks)

	assert.Equal(t, OK, f.Truncate(5000))
	assert.Equal(t, []int64{8192}, sf.truncates)

	assert.Equal(t, OK, f.Truncate(4096))
	assert.Equal(t, []int64{8192, 4096}, sf.truncates)
}

func TestSync(t *testing.T) {
	_, f, sf := openTestFile(t)

	assert.Equal(t, OK, f.Sync(SYNC_NORMAL))
	assert.Equal(t, OK, f.Sync(SYNC_FULL|SYNC_DATAONLY))
	assert.Equal(t, []bool{false, true}, sf.syncs)

	sf.syncErr = errors.New("no sync")
	assert.Equal(t, IOERR_FSYNC, f.Sync(SYNC_NORMAL))
}

func TestFileSize(t *testing.T) {
	_, f, sf := openTestFile(t)
	sf.data = make([]byte, 4096)

	size, rc := f.FileSize()
	assert.Equal(t, OK, rc)
	assert.Equal(t, int64(4096), size)

	sf.sizeErr = errors.New("no stat")
	_, rc = f.FileSize()
	assert.Equal(t, IOERR_FSTAT, rc)
}

func TestLockUnlock(t *testing.T) {
	_, f, sf := openTestFile(t)

	assert.Equal(t, OK, f.Lock(fs.LockShared))
	assert.Equal(t, []fs.LockLevel{fs.LockShared}, sf.locks)
	assert.False(t, f.hasExclusiveLock)

	assert.Equal(t, OK, f.Lock(fs.LockExclusive))
	assert.True(t, f.hasExclusiveLock)

	assert.Equal(t, OK, f.Unlock(fs.LockShared))
	assert.Equal(t, []fs.LockLevel{fs.LockShared}, sf.unlocks)
	assert.False(t, f.hasExclusiveLock)
}

func TestLockBusy(t *testing.T) {
	_, f, sf := openTestFile(t)
	sf.refuse = true
	assert.Equal(t, BUSY, f.Lock(fs.LockShared))
}

func TestLockError(t *testing.T) {
	_, f, sf := openTestFile(t)
	sf.lockErr = errors.New("lost lease")
	assert.Equal(t, IOERR_LOCK, f.Lock(fs.LockShared))
	assert.Equal(t, IOERR_UNLOCK, f.Unlock(fs.LockNone))
}

// Taking the exclusive database lock without holding an exclusive wal-index
// slot refreshes every materialized region first. Pull failures are logged
// but do not fail the lock.
func TestLockExclusivePullsWalIndex(t *testing.T) {
	_, f, sf := openTestFile(t)
	mapTestRegions(t, f, 0, 1)
	wal := sf.wal
	wal.log = nil

	require.Equal(t, OK, f.Lock(fs.LockExclusive))
	assert.ElementsMatch(t, []string{"pull 0", "pull 1"}, wal.log)

	// Failures do not fail the lock.
	wal.log = nil
	wal.pullErr = errors.New("pull failed")
	require.Equal(t, OK, f.Unlock(fs.LockNone))
	require.Equal(t, OK, f.Lock(fs.LockExclusive))
}

func TestCheckReserved(t *testing.T) {
	_, f, sf := openTestFile(t)

	res, rc := f.CheckReserved()
	assert.Equal(t, OK, rc)
	assert.False(t, res)

	sf.reserved = true
	res, rc = f.CheckReserved()
	assert.Equal(t, OK, rc)
	assert.True(t, res)

	sf.resErr = errors.New("probe broken")
	_, rc = f.CheckReserved()
	assert.Equal(t, IOERR_CHECKRESERVEDLOCK, rc)
}

func TestSectorSize(t *testing.T) {
	_, f, _ := openTestFile(t)
	assert.Equal(t, 1024, f.SectorSize())
}

func TestDeviceCharacteristics(t *testing.T) {
	v, _ := newTestVFS(t)

	f, _, rc := v.Open("a.db", OPEN_MAIN_DB|OPEN_READWRITE|OPEN_CREATE, true)
	require.Equal(t, OK, rc)
	assert.Equal(t, IOCAP_POWERSAFE_OVERWRITE, f.DeviceCharacteristics())

	f, _, rc = v.Open("b.db", OPEN_MAIN_DB|OPEN_READWRITE|OPEN_CREATE, false)
	require.Equal(t, OK, rc)
	assert.Equal(t, 0, f.DeviceCharacteristics())
}

func TestClose(t *testing.T) {
	v, s := newTestVFS(t)
	f, _, rc := v.Open("test.db", OPEN_MAIN_DB|OPEN_READWRITE|OPEN_CREATE, true)
	require.Equal(t, OK, rc)
	assert.Equal(t, OK, f.Close())
	assert.Empty(t, s.deleted)
	assert.True(t, s.files["test.db"].closed)
}

func TestCloseDeleteOnClose(t *testing.T) {
	v, s := newTestVFS(t)
	f, _, rc := v.Open("temp.db", OPEN_TEMP_DB|OPEN_READWRITE|OPEN_CREATE|OPEN_DELETEONCLOSE, true)
	require.Equal(t, OK, rc)
	assert.Equal(t, OK, f.Close())
	assert.Equal(t, []string{"temp.db"}, s.deleted)
}

func TestCloseDeleteFails(t *testing.T) {
	v, s := newTestVFS(t)
	f, _, rc := v.Open("temp.db", OPEN_TEMP_DB|OPEN_READWRITE|OPEN_CREATE|OPEN_DELETEONCLOSE, true)
	require.Equal(t, OK, rc)
	s.deleteErr = errors.New("nope")
	assert.Equal(t, DELETE, f.Close())
}

// ------------------------------------------------------------

func TestFileControlLockState(t *testing.T) {
	_, f, sf := openTestFile(t)
	sf.current = fs.LockReserved

	var out int32 = -1
	assert.Equal(t, OK, f.FileControl(FCNTL_LOCKSTATE, &out))
	assert.Equal(t, int32(LOCK_RESERVED), out)
}

func TestFileControlLastErrno(t *testing.T) {
	_, f, sf := openTestFile(t)
	sf.readErr = errors.New("bad read")
	require.Equal(t, IOERR_READ, f.ReadAt(make([]byte, 1), 0))

	var out int32
	assert.Equal(t, OK, f.FileControl(FCNTL_LAST_ERRNO, &out))
	assert.Equal(t, int32(IOERR_READ), out)
}

func TestFileControlSizeHint(t *testing.T) {
	v, f, sf := openTestFile(t)

	// Grow to the hint.
	hint := int64(5000)
	assert.Equal(t, OK, f.FileControl(FCNTL_SIZE_HINT, &hint))
	assert.Equal(t, []int64{5000}, sf.truncates)

	// Already at least as large: nothing to do.
	sf.truncates = nil
	hint = 4000
	assert.Equal(t, OK, f.FileControl(FCNTL_SIZE_HINT, &hint))
	assert.Empty(t, sf.truncates)

	// With a chunk size the growth is rounded up.
	sf.data = nil
	chunk := int32(4096)
	require.Equal(t, OK, f.FileControl(FCNTL_CHUNK_SIZE, &chunk))
	hint = 5000
	assert.Equal(t, OK, f.FileControl(FCNTL_SIZE_HINT, &hint))
	assert.Equal(t, []int64{8192}, sf.truncates)

	// A missing argument is an error.
	assert.Equal(t, NOTFOUND, f.FileControl(FCNTL_SIZE_HINT, nil))
	rc, msg := lastError(v)
	assert.Equal(t, NOTFOUND, rc)
	assert.Contains(t, msg, "expect size hint arg")
}

func TestFileControlChunkSizeMissingArg(t *testing.T) {
	_, f, _ := openTestFile(t)
	assert.Equal(t, NOTFOUND, f.FileControl(FCNTL_CHUNK_SIZE, nil))
}

func TestFileControlPersistWal(t *testing.T) {
	_, f, _ := openTestFile(t)

	query := int32(-1)
	assert.Equal(t, OK, f.FileControl(FCNTL_PERSIST_WAL, &query))
	assert.Equal(t, int32(0), query)

	set := int32(1)
	assert.Equal(t, OK, f.FileControl(FCNTL_PERSIST_WAL, &set))

	query = -1
	assert.Equal(t, OK, f.FileControl(FCNTL_PERSIST_WAL, &query))
	assert.Equal(t, int32(1), query)
}

func TestFileControlPowersafeOverwrite(t *testing.T) {
	_, f, _ := openTestFile(t)

	query := int32(-1)
	assert.Equal(t, OK, f.FileControl(FCNTL_POWERSAFE_OVERWRITE, &query))
	assert.Equal(t, int32(1), query)

	set := int32(0)
	assert.Equal(t, OK, f.FileControl(FCNTL_POWERSAFE_OVERWRITE, &set))
	assert.Equal(t, 0, f.DeviceCharacteristics())
}

// The registered name comes back through VFSNAME.
func TestFileControlVFSName(t *testing.T) {
	_, f, _ := openTestFile(t)

	var name string
	assert.Equal(t, OK, f.FileControl(FCNTL_VFSNAME, &name))
	assert.Equal(t, "example", name)
}

func TestFileControlTempFilename(t *testing.T) {
	v, s := newTestVFS(t)
	s.temp = "temp-123"
	f, _, rc := v.Open("test.db", OPEN_MAIN_DB|OPEN_READWRITE|OPEN_CREATE, true)
	require.Equal(t, OK, rc)

	var name string
	assert.Equal(t, OK, f.FileControl(FCNTL_TEMPFILENAME, &name))
	assert.Equal(t, "temp-123", name)
}

func TestFileControlTrace(t *testing.T) {
	_, f, _ := openTestFile(t)
	assert.Equal(t, OK, f.FileControl(FCNTL_TRACE, "SELECT * FROM t;"))
}

func TestFileControlHasMoved(t *testing.T) {
	_, f, sf := openTestFile(t)

	var out int32 = -1
	assert.Equal(t, OK, f.FileControl(FCNTL_HAS_MOVED, &out))
	assert.Equal(t, int32(0), out)

	sf.moved = true
	assert.Equal(t, OK, f.FileControl(FCNTL_HAS_MOVED, &out))
	assert.Equal(t, int32(1), out)
}

func TestFileControlSilentlySucceeds(t *testing.T) {
	_, f, _ := openTestFile(t)
	for _, op := range []int{FCNTL_SYNC, FCNTL_COMMIT_PHASETWO, FCNTL_CKPT_DONE, FCNTL_CKPT_START} {
		assert.Equal(t, OK, f.FileControl(op, nil), "op %d", op)
	}
}

func TestFileControlNotFound(t *testing.T) {
	_, f, _ := openTestFile(t)
	for _, op := range []int{
		FCNTL_FILE_POINTER, FCNTL_VFS_POINTER, FCNTL_JOURNAL_POINTER,
		FCNTL_DATA_VERSION, FCNTL_RESERVE_BYTES, FCNTL_SYNC_OMITTED,
		FCNTL_GET_LOCKPROXYFILE, FCNTL_SET_LOCKPROXYFILE,
		FCNTL_WIN32_AV_RETRY, FCNTL_OVERWRITE, FCNTL_PRAGMA,
		FCNTL_BUSYHANDLER, FCNTL_MMAP_SIZE, FCNTL_WIN32_SET_HANDLE,
		FCNTL_WAL_BLOCK, FCNTL_ZIPVFS, FCNTL_RBU,
		FCNTL_WIN32_GET_HANDLE, FCNTL_PDB, FCNTL_BEGIN_ATOMIC_WRITE,
		FCNTL_COMMIT_ATOMIC_WRITE, FCNTL_ROLLBACK_ATOMIC_WRITE,
		FCNTL_LOCK_TIMEOUT, FCNTL_SIZE_LIMIT, FCNTL_EXTERNAL_READER,
		FCNTL_CKSM_FILE, 9999,
	} {
		assert.Equal(t, NOTFOUND, f.FileControl(op, nil), "op %d", op)
	}
}
