// Package local is a backend storing objects as files in a local
// directory.
package local

import (
	"context"
	"os"
	"path/filepath"

	"github.com/allisonkarlitskaya/s3-streamer/internal/backend"
	"github.com/allisonkarlitskaya/s3-streamer/internal/debug"
	"github.com/allisonkarlitskaya/s3-streamer/internal/errors"
)

// Local is a backend in a local directory.
type Local struct {
	Path string
}

var _ backend.Backend = &Local{}

// Open opens (and creates, if necessary) the local backend at dir.
func Open(dir string) (*Local, error) {
	debug.Log("open local backend at %v", dir)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "local.Open")
	}

	return &Local{Path: dir}, nil
}

func (b *Local) filename(name string) string {
	return filepath.Join(b.Path, filepath.Base(name))
}

// Has reports whether name exists in the store.
func (b *Local) Has(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(b.filename(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "local.Has")
	}
	return true, nil
}

// Write stores data under name, overwriting any existing object of that
// name. The write is made atomic by writing to a temp file in the same
// directory and renaming it into place, so a concurrent reader never
// observes a partial object.
func (b *Local) Write(_ context.Context, name string, data []byte) error {
	debug.Log("write %v (%d bytes)", name, len(data))

	dest := b.filename(name)

	tmp, err := os.CreateTemp(b.Path, ".tmp-"+filepath.Base(name)+"-*")
	if err != nil {
		return errors.Wrap(err, "local.Write")
	}
	tmpname := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpname)
		return errors.Wrap(err, "local.Write")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpname)
		return errors.Wrap(err, "local.Write")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpname)
		return errors.Wrap(err, "local.Write")
	}

	if err := os.Rename(tmpname, dest); err != nil {
		os.Remove(tmpname)
		return errors.Wrap(err, "local.Write")
	}

	return nil
}

// Delete removes the named objects. Removing a name that does not exist
// is not an error.
func (b *Local) Delete(_ context.Context, names ...string) error {
	debug.Log("delete %v", names)

	for _, name := range names {
		if err := os.Remove(b.filename(name)); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "local.Delete %v", name)
		}
	}
	return nil
}

// IsPermanentError reports whether err is a permanent (non-retryable)
// filesystem failure: missing file or directory, or permission denied.
// Every other error (including a full disk) returns false here and is
// retried by internal/backend/retry.
func (b *Local) IsPermanentError(err error) bool {
	return os.IsPermission(errors.Cause(err)) || os.IsNotExist(errors.Cause(err))
}
