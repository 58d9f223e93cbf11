//go:build unix

package driver

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// setNonblock puts f's file descriptor into non-blocking mode, per
// spec.md §4.5 ("sets the pipe to non-blocking mode").
func setNonblock(f *os.File) error {
	return unix.SetNonblock(int(f.Fd()), true)
}

// nonblockingRead attempts a single non-blocking read of up to
// len(buf) bytes. A would-block condition is reported as (0, nil) per
// spec.md §4.5 step 3 ("on would-block, treat as empty").
func nonblockingRead(f *os.File, buf []byte) (int, error) {
	n, err := unix.Read(int(f.Fd()), buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}
