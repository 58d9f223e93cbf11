// Package attachments scans a local directory for new files written by
// the child process and uploads any not yet present in the index.
package attachments

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/allisonkarlitskaya/s3-streamer/internal/debug"
	"github.com/allisonkarlitskaya/s3-streamer/internal/errors"
	"github.com/allisonkarlitskaya/s3-streamer/internal/index"
)

// Scanner uploads new regular files appearing in Dir to Index. Files are
// assumed immutable once the child has created them; a name is uploaded
// at most once.
type Scanner struct {
	Dir   string
	Index *index.Indexed
}

// New returns a Scanner watching dir, uploading through ix.
func New(dir string, ix *index.Indexed) *Scanner {
	return &Scanner{Dir: dir, Index: ix}
}

// Scan enumerates regular files in Dir (not following symbolic links)
// and uploads any whose name is not already present in the index. A
// second Scan of an unchanged directory performs no writes.
func (s *Scanner) Scan(ctx context.Context) error {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "attachments.Scan")
	}

	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink != 0 || !entry.Type().IsRegular() {
			continue
		}

		name := entry.Name()
		have, err := s.Index.Has(ctx, name)
		if err != nil {
			return errors.Wrapf(err, "attachments.Scan %v", name)
		}
		if have {
			continue
		}

		if err := s.upload(ctx, name); err != nil {
			return err
		}
	}

	return nil
}

// upload writes data to a collision-free staging name first, promotes it
// to name (which is what makes it visible in the index and the
// directory listing), then removes the staging object. The staging
// write means two overlapping Scan calls racing to upload the same new
// file never contend for the same object name before the promoting
// write.
func (s *Scanner) upload(ctx context.Context, name string) error {
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		return errors.Wrapf(err, "attachments.upload %v", name)
	}

	staging := fmt.Sprintf("%s.staging-%s", name, uuid.New())
	debug.Log("uploading attachment %v (%d bytes) via staging name %v", name, len(data), staging)

	if err := s.Index.Backend.Write(ctx, staging, data); err != nil {
		return errors.Wrapf(err, "attachments.upload %v: staging write", name)
	}

	if err := s.Index.Write(ctx, name, data); err != nil {
		return errors.Wrapf(err, "attachments.upload %v", name)
	}

	if err := s.Index.Backend.Delete(ctx, staging); err != nil {
		return errors.Wrapf(err, "attachments.upload %v: removing staging object", name)
	}
	return nil
}
