// Package s3 is a backend storing objects in an S3-compatible bucket with
// a public-read ACL, matching the spec's requirement that a browser
// client can poll and fetch objects directly.
package s3

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/allisonkarlitskaya/s3-streamer/internal/backend"
	"github.com/allisonkarlitskaya/s3-streamer/internal/debug"
	"github.com/allisonkarlitskaya/s3-streamer/internal/errors"
)

// Backend stores objects on an S3-compatible endpoint.
type Backend struct {
	client *minio.Client
	cfg    Config
}

var _ backend.Backend = &Backend{}

// Open connects to the bucket named by cfg. It does not verify the
// bucket exists; a missing bucket first shows up as a 404 error from
// Write, which IsPermanentError does not classify as permanent.
func Open(cfg Config) (*Backend, error) {
	debug.Log("open s3 backend at %v/%v", cfg.Endpoint, cfg.Bucket)

	creds := credentials.NewEnvAWS()
	if cfg.KeyID != "" || cfg.Secret != "" {
		creds = credentials.NewStaticV4(cfg.KeyID, cfg.Secret, "")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: !cfg.UseHTTP,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "s3.Open")
	}

	return &Backend{client: client, cfg: cfg}, nil
}

func (b *Backend) key(name string) string {
	if b.cfg.Prefix == "" {
		return name
	}
	return path.Join(b.cfg.Prefix, name)
}

// contentType derives a MIME type from the object's name suffix, per
// spec.md §4.1: .html -> text/html, .chunks -> text/plain, else
// text/plain.
func contentType(name string) string {
	switch {
	case strings.HasSuffix(name, ".html"):
		return "text/html"
	case strings.HasSuffix(name, ".chunks"):
		return "text/plain"
	default:
		return "text/plain"
	}
}

// Has reports whether name exists in the bucket.
func (b *Backend) Has(ctx context.Context, name string) (bool, error) {
	_, err := b.client.StatObject(ctx, b.cfg.Bucket, b.key(name), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "s3.Has")
	}
	return true, nil
}

// Write uploads data under name with a public-read ACL and a
// content-type derived from the name suffix.
func (b *Backend) Write(ctx context.Context, name string, data []byte) error {
	debug.Log("write %v (%d bytes)", name, len(data))

	opts := minio.PutObjectOptions{
		ContentType: contentType(name),
		UserMetadata: map[string]string{
			"x-amz-acl": "public-read",
		},
	}

	_, err := b.client.PutObject(ctx, b.cfg.Bucket, b.key(name), bytes.NewReader(data), int64(len(data)), opts)
	return errors.Wrap(err, "s3.Write")
}

// Delete removes the named objects.
func (b *Backend) Delete(ctx context.Context, names ...string) error {
	debug.Log("delete %v", names)

	objectsCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for _, name := range names {
			objectsCh <- minio.ObjectInfo{Key: b.key(name)}
		}
	}()

	for result := range b.client.RemoveObjects(ctx, b.cfg.Bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if result.Err != nil && !isNotFound(result.Err) {
			return errors.Wrapf(result.Err, "s3.Delete %v", result.ObjectName)
		}
	}
	return nil
}

// IsPermanentError reports whether err is a 4xx response other than
// "not found" during a poll, which the client protocol treats as an
// expected terminal signal rather than a failure.
func (b *Backend) IsPermanentError(err error) bool {
	resp := minio.ToErrorResponse(errors.Cause(err))
	return resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != 404
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.StatusCode == 404 || resp.Code == "NoSuchKey"
}

