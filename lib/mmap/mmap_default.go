//go:build plan9 || windows || js

package mmap

// Alloc allocates size bytes and returns a slice containing them.  If
// the allocation fails it will return with an error.
func Alloc(size int) ([]byte, error) {
	return make([]byte, size), nil
}

// Free frees buffers allocated by Alloc.  Note it should be passed the
// same slice (not a derived slice) that Alloc returned.
func Free(mem []byte) error {
	return nil
}
