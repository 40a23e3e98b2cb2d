package cvfs

/*
#include "cvfs.h"
*/
import "C"

import (
	"unsafe"

	"github.com/sqlitevfs/sqlitevfs/fs"
	"github.com/sqlitevfs/sqlitevfs/vfs"
)

//export cvfsFileClose
func cvfsFileClose(p *C.sqlite3_file) (rc C.int) {
	defer recoverStatus(&rc)
	f := lookupFile(p)
	if f == nil {
		// Closing a slot that was never initialized is a no-op.
		return C.int(vfs.OK)
	}
	status := f.Close()
	if status != vfs.OK {
		return C.int(status)
	}
	cf := (*C.cvfsFile)(unsafe.Pointer(p))
	mu.Lock()
	delete(fileByID, uint64(cf.id))
	mu.Unlock()
	cf.id = 0
	return C.int(vfs.OK)
}

//export cvfsFileRead
func cvfsFileRead(p *C.sqlite3_file, zBuf unsafe.Pointer, iAmt C.int, iOfst C.sqlite3_int64) (rc C.int) {
	defer recoverStatus(&rc)
	f := lookupFile(p)
	if f == nil || zBuf == nil {
		return C.int(vfs.IOERR_READ)
	}
	buf := unsafe.Slice((*byte)(zBuf), int(iAmt))
	return C.int(f.ReadAt(buf, int64(iOfst)))
}

//export cvfsFileWrite
func cvfsFileWrite(p *C.sqlite3_file, zBuf unsafe.Pointer, iAmt C.int, iOfst C.sqlite3_int64) (rc C.int) {
	defer recoverStatus(&rc)
	f := lookupFile(p)
	if f == nil || zBuf == nil {
		return C.int(vfs.IOERR_WRITE)
	}
	buf := unsafe.Slice((*byte)(zBuf), int(iAmt))
	return C.int(f.WriteAt(buf, int64(iOfst)))
}

//export cvfsFileTruncate
func cvfsFileTruncate(p *C.sqlite3_file, size C.sqlite3_int64) (rc C.int) {
	defer recoverStatus(&rc)
	f := lookupFile(p)
	if f == nil {
		return C.int(vfs.IOERR_TRUNCATE)
	}
	return C.int(f.Truncate(int64(size)))
}

//export cvfsFileSync
func cvfsFileSync(p *C.sqlite3_file, flags C.int) (rc C.int) {
	defer recoverStatus(&rc)
	f := lookupFile(p)
	if f == nil {
		return C.int(vfs.IOERR_FSYNC)
	}
	return C.int(f.Sync(int(flags)))
}

//export cvfsFileFileSize
func cvfsFileFileSize(p *C.sqlite3_file, pSize *C.sqlite3_int64) (rc C.int) {
	defer recoverStatus(&rc)
	f := lookupFile(p)
	if f == nil {
		return C.int(vfs.IOERR_FSTAT)
	}
	size, status := f.FileSize()
	if status != vfs.OK {
		return C.int(status)
	}
	if pSize == nil {
		return C.int(f.StoreError(vfs.IOERR_FSTAT, vfs.ErrNullPtr))
	}
	*pSize = C.sqlite3_int64(size)
	return C.int(vfs.OK)
}

//export cvfsFileLock
func cvfsFileLock(p *C.sqlite3_file, eLock C.int) (rc C.int) {
	defer recoverStatus(&rc)
	f := lookupFile(p)
	if f == nil {
		return C.int(vfs.IOERR_LOCK)
	}
	level, ok := vfs.LockLevelFromCode(int(eLock))
	if !ok {
		return C.int(vfs.IOERR_LOCK)
	}
	return C.int(f.Lock(level))
}

//export cvfsFileUnlock
func cvfsFileUnlock(p *C.sqlite3_file, eLock C.int) (rc C.int) {
	defer recoverStatus(&rc)
	f := lookupFile(p)
	if f == nil {
		return C.int(vfs.IOERR_UNLOCK)
	}
	level, ok := vfs.LockLevelFromCode(int(eLock))
	if !ok {
		return C.int(vfs.IOERR_UNLOCK)
	}
	return C.int(f.Unlock(level))
}

//export cvfsFileCheckReservedLock
func cvfsFileCheckReservedLock(p *C.sqlite3_file, pResOut *C.int) (rc C.int) {
	defer recoverStatus(&rc)
	f := lookupFile(p)
	if f == nil {
		return C.int(vfs.IOERR_CHECKRESERVEDLOCK)
	}
	reserved, status := f.CheckReserved()
	if status != vfs.OK {
		return C.int(status)
	}
	if pResOut == nil {
		return C.int(f.StoreError(vfs.IOERR_CHECKRESERVEDLOCK, vfs.ErrNullPtr))
	}
	if reserved {
		*pResOut = 1
	} else {
		*pResOut = 0
	}
	return C.int(vfs.OK)
}

//export cvfsFileFileControl
func cvfsFileFileControl(p *C.sqlite3_file, op C.int, pArg unsafe.Pointer) (rc C.int) {
	defer recoverStatus(&rc)
	f := lookupFile(p)
	if f == nil {
		return C.int(vfs.NOTFOUND)
	}
	var arg interface{}
	switch int(op) {
	case vfs.FCNTL_LOCKSTATE, vfs.FCNTL_LAST_ERRNO, vfs.FCNTL_CHUNK_SIZE,
		vfs.FCNTL_PERSIST_WAL, vfs.FCNTL_POWERSAFE_OVERWRITE, vfs.FCNTL_HAS_MOVED:
		if pArg != nil {
			arg = (*int32)(pArg)
		}
	case vfs.FCNTL_SIZE_HINT:
		if pArg != nil {
			arg = (*int64)(pArg)
		}
	case vfs.FCNTL_VFSNAME, vfs.FCNTL_TEMPFILENAME:
		var s string
		status := f.FileControl(int(op), &s)
		if status == vfs.OK && pArg != nil {
			// The engine retains the pointer, so the copy is
			// deliberately never freed.
			*(**C.char)(pArg) = C.CString(s)
		}
		return C.int(status)
	case vfs.FCNTL_TRACE:
		if pArg != nil {
			arg = C.GoString((*C.char)(pArg))
		}
	}
	return C.int(f.FileControl(int(op), arg))
}

//export cvfsFileSectorSize
func cvfsFileSectorSize(p *C.sqlite3_file) C.int {
	return C.int(vfs.SectorSize)
}

//export cvfsFileDeviceCharacteristics
func cvfsFileDeviceCharacteristics(p *C.sqlite3_file) C.int {
	f := lookupFile(p)
	if f == nil {
		return 0
	}
	return C.int(f.DeviceCharacteristics())
}

//export cvfsFileShmMap
func cvfsFileShmMap(p *C.sqlite3_file, iPg C.int, pgsz C.int, bExtend C.int, pp *unsafe.Pointer) (rc C.int) {
	defer recoverStatus(&rc)
	f := lookupFile(p)
	if f == nil {
		return C.int(vfs.IOERR_SHMMAP)
	}
	buf, status := f.ShmMap(uint32(iPg), int(pgsz), bExtend != 0)
	if buf != nil && pp != nil {
		// buf is mmap-backed, so handing its address to the engine is
		// safe: it never moves until the region is unmapped.
		*pp = unsafe.Pointer(&buf[0])
	}
	return C.int(status)
}

//export cvfsFileShmLock
func cvfsFileShmLock(p *C.sqlite3_file, offset C.int, n C.int, flags C.int) (rc C.int) {
	defer recoverStatus(&rc)
	f := lookupFile(p)
	if f == nil {
		return C.int(vfs.IOERR_SHMLOCK)
	}
	return C.int(f.ShmLock(int(offset), int(n), int(flags)))
}

//export cvfsFileShmBarrier
func cvfsFileShmBarrier(p *C.sqlite3_file) {
	defer func() {
		// No status channel to report through.
		if r := recover(); r != nil {
			fs.Errorf(nil, "panic in shm_barrier: %v", r)
		}
	}()
	f := lookupFile(p)
	if f == nil {
		return
	}
	f.ShmBarrier()
}

//export cvfsFileShmUnmap
func cvfsFileShmUnmap(p *C.sqlite3_file, deleteFlag C.int) (rc C.int) {
	defer recoverStatus(&rc)
	f := lookupFile(p)
	if f == nil {
		return C.int(vfs.OK)
	}
	return C.int(f.ShmUnmap(deleteFlag != 0))
}
