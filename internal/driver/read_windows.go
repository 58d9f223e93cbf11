//go:build windows

package driver

import (
	"errors"
	"os"
	"time"
)

// setNonblock is a no-op on windows; non-blocking behaviour is emulated
// in nonblockingRead via a zero read deadline instead.
func setNonblock(f *os.File) error {
	return nil
}

// nonblockingRead emulates a non-blocking read by setting an
// already-elapsed read deadline: a read that would otherwise block
// returns a timeout error instead, which is reported as an empty read.
func nonblockingRead(f *os.File, buf []byte) (int, error) {
	if err := f.SetReadDeadline(time.Now()); err != nil {
		return 0, err
	}
	n, err := f.Read(buf)
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}
