// Package retry wraps a backend.Backend with a client-side mirror of the
// storage-transient retry policy from spec.md §7: 10 attempts, doubling
// delay starting at 1s.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/allisonkarlitskaya/s3-streamer/internal/backend"
	"github.com/allisonkarlitskaya/s3-streamer/internal/debug"
	"github.com/allisonkarlitskaya/s3-streamer/internal/errors"
)

// Backend retries operations on the wrapped backend with an exponential
// backoff, classifying errors as permanent (abort immediately) or
// transient (retry) via the wrapped backend's IsPermanentError, if it
// implements backend.PermanentErrorChecker.
type Backend struct {
	backend.Backend
	// Report, if set, is called with a description and the error every
	// time an operation fails and will be retried.
	Report func(op string, err error, delay time.Duration)
}

var _ backend.Backend = &Backend{}

const maxAttempts = 10

// fastRetries shrinks the backoff intervals for this process's tests,
// mirroring restic's own integration-test speedup knob.
var fastRetries = false

// New wraps be with a backend that retries transient failures.
func New(be backend.Backend, report func(op string, err error, delay time.Duration)) *Backend {
	return &Backend{Backend: be, Report: report}
}

func (b *Backend) isPermanent(err error) bool {
	if checker, ok := b.Backend.(backend.PermanentErrorChecker); ok {
		return checker.IsPermanentError(errors.Cause(err))
	}
	return false
}

func (b *Backend) retry(ctx context.Context, op string, f func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.Multiplier = 2
	if fastRetries {
		bo.InitialInterval = 1 * time.Millisecond
	}
	policy := backoff.WithMaxRetries(backoff.WithContext(bo, ctx), maxAttempts-1)

	return backoff.RetryNotify(func() error {
		err := f()
		if err == nil {
			return nil
		}
		if b.isPermanent(err) {
			return backoff.Permanent(errors.Fatalf("%s: permanent storage error: %v", op, err))
		}
		return err
	}, policy, func(err error, delay time.Duration) {
		debug.Log("%s: retrying after %v: %v", op, delay, err)
		if b.Report != nil {
			b.Report(op, err, delay)
		}
	})
}

// Has reports whether name exists, retrying transient failures.
func (b *Backend) Has(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := b.retry(ctx, "has "+name, func() error {
		var err error
		ok, err = b.Backend.Has(ctx, name)
		return err
	})
	return ok, err
}

// Write stores data under name, retrying transient failures. A
// permanent failure is returned as an errors.Fatal without retrying.
func (b *Backend) Write(ctx context.Context, name string, data []byte) error {
	return b.retry(ctx, "write "+name, func() error {
		return b.Backend.Write(ctx, name, data)
	})
}

// Delete removes the named objects, retrying transient failures.
func (b *Backend) Delete(ctx context.Context, names ...string) error {
	return b.retry(ctx, "delete", func() error {
		return b.Backend.Delete(ctx, names...)
	})
}
