package errors

import "fmt"

// fatalError is used to report an error condition that should terminate
// the driver immediately rather than be retried or recovered from.
type fatalError string

func (e fatalError) Error() string {
	return string(e)
}

// Fatal creates a new fatal error from message. This is intended for
// errors that are not retryable: storage-permanent failures, a broken
// decoder, bad CLI arguments.
func Fatal(message string) error {
	return fatalError(message)
}

// Fatalf creates a new fatal error based on a format string and values.
func Fatalf(format string, args ...interface{}) error {
	return fatalError(fmt.Sprintf(format, args...))
}

// IsFatal checks whether err is a fatal error that should be reported to
// the user directly.
func IsFatal(err error) bool {
	_, ok := Cause(err).(fatalError)
	return ok
}
