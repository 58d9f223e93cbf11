//go:build !linux
// +build !linux

package driver

import "os"

// growPipeBuffer is a no-op outside Linux: F_SETPIPE_SZ has no portable
// equivalent, and the default OS pipe buffer is used as-is.
func growPipeBuffer(f *os.File, size int) error {
	return nil
}
