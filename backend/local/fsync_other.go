//go:build !windows && !plan9 && !js && !linux

package local

// Sync commits outstanding writes to storage. Platforms without fdatasync
// get a full fsync either way.
func (f *File) Sync(dataOnly bool) error {
	return f.file.Sync()
}
