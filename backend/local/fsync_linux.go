//go:build linux

package local

import "golang.org/x/sys/unix"

// Sync commits outstanding writes to storage. With dataOnly set the metadata
// (size, times) need not reach the disk, which fdatasync provides.
func (f *File) Sync(dataOnly bool) error {
	if dataOnly {
		return unix.Fdatasync(int(f.file.Fd()))
	}
	return f.file.Sync()
}
