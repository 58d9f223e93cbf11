// Package chunked implements the logarithmic chunking protocol: pending
// bytes are flushed into immutable, content-addressed chunk objects
// whose block counts follow a doubling/merge discipline, with a JSON
// manifest describing the current layout, so that a polling client can
// catch up in O(log n) requests and O(n log n) total bytes over the
// life of the stream.
package chunked

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"time"

	"github.com/allisonkarlitskaya/s3-streamer/internal/debug"
	"github.com/allisonkarlitskaya/s3-streamer/internal/errors"
	"github.com/allisonkarlitskaya/s3-streamer/internal/index"
	"github.com/allisonkarlitskaya/s3-streamer/internal/textstream"
)

const (
	sizeLimit = 1_000_000
	timeLimit = 10 * time.Second
)

//go:embed static
var staticAssets embed.FS

// Uploader consumes a stream of byte blocks from the driver and
// maintains the logarithmic chunk tree, writing immutable chunk objects
// and the mutable manifest through an indexed storage, and on
// finalisation writing a single consolidated object and deleting the
// chunks.
type Uploader struct {
	filename string
	index    *index.Indexed
	decoder  *textstream.Decoder

	pending  []byte
	chunks   []chunk
	sendAt   time.Time
	suffixes map[string]struct{}

	now func() time.Time
}

// New creates an Uploader targeting {filename} in ix, decoding the
// stream from sourceEncoding (see textstream.New). It writes an empty
// manifest and runs the static-asset scan before returning, per spec.md
// §4.4 Initialisation.
func New(ctx context.Context, ix *index.Indexed, filename, sourceEncoding string) (*Uploader, error) {
	decoder, err := textstream.New(sourceEncoding)
	if err != nil {
		return nil, err
	}

	u := &Uploader{
		filename: filename,
		index:    ix,
		decoder:  decoder,
		suffixes: make(map[string]struct{}),
		now:      time.Now,
	}

	if err := u.writeManifest(ctx); err != nil {
		return nil, errors.Wrap(err, "chunked.New")
	}

	if err := u.scanStaticAssets(ctx); err != nil {
		return nil, errors.Wrap(err, "chunked.New")
	}

	return u, nil
}

func (u *Uploader) scanStaticAssets(ctx context.Context) error {
	return fs.WalkDir(staticAssets, "static", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		data, err := staticAssets.ReadFile(path)
		if err != nil {
			return err
		}

		name := path[len("static/"):]
		return u.index.Write(ctx, name, data)
	})
}

func (u *Uploader) manifestName() string {
	return u.filename + ".chunks"
}

func (u *Uploader) chunkName(start, end int) string {
	return fmt.Sprintf("%s.%d-%d", u.filename, start, end)
}

func (u *Uploader) writeManifest(ctx context.Context) error {
	data, err := json.Marshal(sizes(u.chunks))
	if err != nil {
		return errors.Wrap(err, "chunked.writeManifest")
	}
	return u.index.Write(ctx, u.manifestName(), data)
}

// Write feeds data (in the uploader's configured source encoding)
// through the decoder, and, if the resulting pending bytes cross the
// time or size flush threshold, promotes them into a new chunk. If
// final is true, it instead concatenates everything flushed so far with
// the pending bytes, writes the consolidated object, and deletes every
// chunk object and the manifest.
func (u *Uploader) Write(ctx context.Context, data []byte, final bool) error {
	decoded, err := u.decoder.Decode(data, final)
	if err != nil {
		return errors.Fatalf("chunked.Write: decoder error: %v", err)
	}
	u.pending = append(u.pending, decoded...)

	if final {
		return u.finalize(ctx)
	}

	return u.maybeFlush(ctx)
}

func (u *Uploader) maybeFlush(ctx context.Context) error {
	if len(u.pending) == 0 {
		return nil
	}

	now := u.now()
	if u.sendAt.IsZero() {
		u.sendAt = now.Add(timeLimit)
	}

	if now.Before(u.sendAt) && len(u.pending) < sizeLimit {
		return nil
	}

	block := u.pending
	u.pending = nil
	u.sendAt = time.Time{}

	return u.appendBlock(ctx, block)
}

// appendBlock is the "2048 merge" of spec.md §4.4: it appends a new
// singleton chunk and merges the last two chunks while they hold equal
// block counts. Only the last chunk can have changed as a result, so
// only it is (re)written, and it is acknowledged before the manifest
// that names it is written.
func (u *Uploader) appendBlock(ctx context.Context, block []byte) error {
	u.chunks = appendBlock(u.chunks, block)

	chunkSizes := sizes(u.chunks)
	start := 0
	for _, s := range chunkSizes[:len(chunkSizes)-1] {
		start += s
	}
	end := start + chunkSizes[len(chunkSizes)-1]

	name := u.chunkName(start, end)
	debug.Log("append_block: %d blocks flushed, chunk list has %d entries, writing %v", totalBlocks(u.chunks), len(u.chunks), name)

	if err := u.index.Write(ctx, name, u.chunks[len(u.chunks)-1].bytes()); err != nil {
		return errors.Wrap(err, "chunked.appendBlock")
	}
	u.suffixes[fmt.Sprintf("%d-%d", start, end)] = struct{}{}

	return u.writeManifest(ctx)
}

func (u *Uploader) finalize(ctx context.Context) error {
	full := make([]byte, 0)
	for _, c := range u.chunks {
		full = append(full, c.bytes()...)
	}
	full = append(full, u.pending...)
	u.pending = nil

	debug.Log("finalize: writing %v (%d bytes)", u.filename, len(full))

	if err := u.index.Write(ctx, u.filename, full); err != nil {
		return errors.Wrap(err, "chunked.finalize")
	}

	toDelete := make([]string, 0, len(u.suffixes)+1)
	for suffix := range u.suffixes {
		toDelete = append(toDelete, fmt.Sprintf("%s.%s", u.filename, suffix))
	}
	toDelete = append(toDelete, u.manifestName())

	if err := u.index.Delete(ctx, toDelete...); err != nil {
		return errors.Wrap(err, "chunked.finalize")
	}

	u.chunks = nil
	u.suffixes = make(map[string]struct{})

	return nil
}
