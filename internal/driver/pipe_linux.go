package driver

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/allisonkarlitskaya/s3-streamer/internal/debug"
)

// growPipeBuffer enlarges the pipe's kernel buffer to at least size
// bytes, per spec.md §4.5 ("the pipe buffer enlarged to 1 MiB"). Only
// Linux exposes F_SETPIPE_SZ; other platforms size their pipe buffers
// fixed at creation and this is a no-op there.
func growPipeBuffer(f *os.File, size int) error {
	n, err := unix.FcntlInt(f.Fd(), unix.F_SETPIPE_SZ, size)
	if err != nil {
		return err
	}
	debug.Log("grew pipe buffer to %d bytes", n)
	return nil
}
