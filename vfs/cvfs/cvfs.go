// Package cvfs installs the adapter into the engine.
//
// It owns the C-shaped entry-point tables the engine calls through and the
// marshalling between the engine's pointer-and-int ABI and the typed core in
// package vfs. The engine's fixed-size file slot carries only a handle id;
// the real per-file state lives in a Go-side registry keyed by that id, which
// keeps Go memory out of reach of the collector-unaware engine.
//
// Registration deliberately leaks the sqlite3_vfs allocation and the name
// copy: the engine retains both for the life of the process.
package cvfs

/*
#cgo LDFLAGS: -lsqlite3

#include <stdlib.h>
#include "cvfs.h"
*/
import "C"

import (
	"sync"
	"time"
	"unicode/utf8"
	"unsafe"

	"github.com/sqlitevfs/sqlitevfs/fs"
	"github.com/sqlitevfs/sqlitevfs/vfs"
)

var (
	mu         sync.Mutex
	vfsByID    = map[uint64]*vfs.VFS{}
	fileByID   = map[uint64]*vfs.File{}
	nextVFSID  uint64 = 1
	nextFileID uint64 = 1
)

// psowParam is the URI parameter controlling the initial powersafe-overwrite
// setting.
var psowParam = C.CString("psow")

// Register installs a VFS serving files from fsys under name. With asDefault
// set the engine will use it for connections that do not name a VFS
// explicitly.
func Register(name string, fsys fs.Fs, asDefault bool) error {
	v, err := vfs.New(name, fsys)
	if err != nil {
		return err
	}
	mu.Lock()
	id := nextVFSID
	nextVFSID++
	vfsByID[id] = v
	mu.Unlock()

	cName := C.CString(name) // retained by the engine, never freed
	defaultFlag := C.int(0)
	if asDefault {
		defaultFlag = 1
	}
	if rc := C.cvfs_register(cName, C.sqlite3_uint64(id), defaultFlag); rc != C.SQLITE_OK {
		mu.Lock()
		delete(vfsByID, id)
		mu.Unlock()
		C.free(unsafe.Pointer(cName))
		return &vfs.RegistrationError{Code: int(rc)}
	}
	fs.Infof(v, "registered (default=%v)", asDefault)
	return nil
}

// lookupVFS recovers the Go state behind an engine VFS pointer.
func lookupVFS(p *C.sqlite3_vfs) *vfs.VFS {
	if p == nil {
		return nil
	}
	id := uint64(uintptr(p.pAppData))
	mu.Lock()
	v := vfsByID[id]
	mu.Unlock()
	return v
}

// lookupFile recovers the Go state behind an engine file slot.
func lookupFile(p *C.sqlite3_file) *vfs.File {
	if p == nil {
		return nil
	}
	cf := (*C.cvfsFile)(unsafe.Pointer(p))
	if cf.id == 0 {
		return nil
	}
	mu.Lock()
	f := fileByID[uint64(cf.id)]
	mu.Unlock()
	return f
}

// recoverStatus converts a panic into the engine's generic error status.
// Panics must not unwind across the ABI boundary.
func recoverStatus(rc *C.int) {
	if r := recover(); r != nil {
		fs.Errorf(nil, "panic in vfs entry point: %v", r)
		*rc = C.int(vfs.ERROR)
	}
}

// goName decodes a possibly-NULL engine path. ok is false if the bytes are
// not valid UTF-8.
func goName(z *C.char) (name string, ok bool) {
	if z == nil {
		return "", true
	}
	name = C.GoString(z)
	return name, utf8.ValidString(name)
}

//export cvfsOpen
func cvfsOpen(p *C.sqlite3_vfs, zName *C.char, pFile *C.sqlite3_file, flags C.int, pOutFlags *C.int) (rc C.int) {
	defer recoverStatus(&rc)
	v := lookupVFS(p)
	if v == nil {
		return C.int(vfs.ERROR)
	}
	name, ok := goName(zName)
	if !ok {
		return C.int(v.StoreError(vfs.CANTOPEN, &vfs.InvalidNameError{Name: []byte(name)}))
	}
	if pFile == nil {
		return C.int(v.StoreError(vfs.CANTOPEN, vfs.ErrInvalidFilePtr))
	}

	psow := true
	if int(flags)&vfs.OPEN_URI != 0 && zName != nil {
		psow = C.sqlite3_uri_boolean(zName, psowParam, 1) != 0
	}

	f, outFlags, status := v.Open(name, int(flags), psow)
	if status != vfs.OK {
		return C.int(status)
	}

	mu.Lock()
	id := nextFileID
	nextFileID++
	fileByID[id] = f
	mu.Unlock()

	cf := (*C.cvfsFile)(unsafe.Pointer(pFile))
	cf.id = C.sqlite3_uint64(id)
	cf.base.pMethods = C.cvfs_io_methods()
	if pOutFlags != nil {
		*pOutFlags = C.int(outFlags)
	}
	return C.int(vfs.OK)
}

//export cvfsDelete
func cvfsDelete(p *C.sqlite3_vfs, zName *C.char, syncDir C.int) (rc C.int) {
	defer recoverStatus(&rc)
	v := lookupVFS(p)
	if v == nil {
		return C.int(vfs.DELETE)
	}
	name, ok := goName(zName)
	if !ok {
		return C.int(v.StoreError(vfs.ERROR, &vfs.InvalidNameError{Name: []byte(name)}))
	}
	return C.int(v.Delete(name))
}

//export cvfsAccess
func cvfsAccess(p *C.sqlite3_vfs, zName *C.char, flags C.int, pResOut *C.int) (rc C.int) {
	defer recoverStatus(&rc)
	v := lookupVFS(p)
	if v == nil {
		return C.int(vfs.ERROR)
	}
	name, ok := goName(zName)
	if !ok {
		// The engine treats access-probe failures as "no".
		fs.Logf(v, "access failed: name must be valid utf8 (received %q)", name)
		if pResOut != nil {
			*pResOut = 0
		}
		return C.int(vfs.OK)
	}
	res, status := v.Access(name, int(flags))
	if status != vfs.OK {
		return C.int(status)
	}
	if pResOut == nil {
		return C.int(v.StoreError(vfs.IOERR_ACCESS, vfs.ErrNullPtr))
	}
	if res {
		*pResOut = 1
	} else {
		*pResOut = 0
	}
	return C.int(vfs.OK)
}

//export cvfsFullPathname
func cvfsFullPathname(p *C.sqlite3_vfs, zName *C.char, nOut C.int, zOut *C.char) (rc C.int) {
	defer recoverStatus(&rc)
	v := lookupVFS(p)
	if v == nil {
		return C.int(vfs.ERROR)
	}
	name, ok := goName(zName)
	if !ok {
		return C.int(v.StoreError(vfs.ERROR, &vfs.InvalidNameError{Name: []byte(name)}))
	}
	full, status := v.FullPathname(name, int(nOut))
	if status != vfs.OK {
		return C.int(status)
	}
	if zOut == nil {
		return C.int(v.StoreError(vfs.ERROR, vfs.ErrNullPtr))
	}
	out := unsafe.Slice((*byte)(unsafe.Pointer(zOut)), int(nOut))
	n := copy(out, full)
	out[n] = 0
	return C.int(vfs.OK)
}

//export cvfsRandomness
func cvfsRandomness(p *C.sqlite3_vfs, nByte C.int, zOut *C.char) (rc C.int) {
	defer recoverStatus(&rc)
	v := lookupVFS(p)
	if v == nil || zOut == nil || nByte <= 0 {
		return 0
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(zOut)), int(nByte))
	return C.int(v.Randomness(buf))
}

//export cvfsSleep
func cvfsSleep(p *C.sqlite3_vfs, microseconds C.int) (rc C.int) {
	defer recoverStatus(&rc)
	v := lookupVFS(p)
	if v == nil {
		return C.int(vfs.ERROR)
	}
	slept := v.Sleep(time.Duration(microseconds) * time.Microsecond)
	return C.int(slept / time.Microsecond)
}

//export cvfsCurrentTime
func cvfsCurrentTime(p *C.sqlite3_vfs, pTimeOut *C.double) (rc C.int) {
	defer recoverStatus(&rc)
	v := lookupVFS(p)
	if v == nil {
		return C.int(vfs.ERROR)
	}
	if pTimeOut != nil {
		*pTimeOut = C.double(v.CurrentTime())
	}
	return C.int(vfs.OK)
}

//export cvfsCurrentTimeInt64
func cvfsCurrentTimeInt64(p *C.sqlite3_vfs, pTimeOut *C.sqlite3_int64) (rc C.int) {
	defer recoverStatus(&rc)
	v := lookupVFS(p)
	if v == nil {
		return C.int(vfs.ERROR)
	}
	if pTimeOut != nil {
		*pTimeOut = C.sqlite3_int64(v.CurrentTimeInt64())
	}
	return C.int(vfs.OK)
}

//export cvfsGetLastError
func cvfsGetLastError(p *C.sqlite3_vfs, nByte C.int, zErrMsg *C.char) (rc C.int) {
	defer recoverStatus(&rc)
	v := lookupVFS(p)
	if v == nil {
		return C.int(vfs.ERROR)
	}
	var buf []byte
	if zErrMsg != nil && nByte > 0 {
		buf = unsafe.Slice((*byte)(unsafe.Pointer(zErrMsg)), int(nByte))
	}
	return C.int(v.GetLastError(buf))
}
