// Package backend defines the storage capability this module builds on:
// an object store that supports only whole-object PUT and DELETE. The
// local and s3 subpackages provide the two realisations; retry wraps
// either with a client-side backoff mirror of the adapter's own retries.
package backend

import "context"

// Backend is a narrow three-operation sink: has, write (overwrites),
// delete. All operations are synchronous from the caller's viewpoint —
// they return only once the store has accepted the write.
//
// Has need not be implemented by every adapter: a caller that always
// wraps the adapter in an indexed storage (internal/index) tracks
// membership itself and never calls Has on the bare adapter.
type Backend interface {
	// Has reports whether name exists in the store.
	Has(ctx context.Context, name string) (bool, error)

	// Write stores data under name, overwriting any existing object of
	// that name.
	Write(ctx context.Context, name string, data []byte) error

	// Delete removes the named objects. Removing a name that does not
	// exist is not an error.
	Delete(ctx context.Context, names ...string) error
}

// IsPermanentError reports whether err should never be retried, for
// backends that can tell a permanent failure (4xx) from a transient one
// (5xx, network). Backends that can't tell return false always, meaning
// every error is retried until the retry budget in
// internal/backend/retry is exhausted.
type PermanentErrorChecker interface {
	IsPermanentError(err error) bool
}
