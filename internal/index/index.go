// Package index wraps a backend.Backend, tracking the set of names that
// have been written so that it can answer Has without a round trip and
// periodically regenerate a human-facing index.html directory listing.
package index

import (
	"context"
	"html/template"
	"sort"
	"strings"
	"sync"

	"github.com/allisonkarlitskaya/s3-streamer/internal/backend"
	"github.com/allisonkarlitskaya/s3-streamer/internal/debug"
	"github.com/allisonkarlitskaya/s3-streamer/internal/errors"
)

const indexName = "index.html"

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html><head><title>index</title></head><body><ul>
{{range .}}<li><a href="{{.}}">{{.}}</a></li>
{{end}}</ul></body></html>
`))

// Indexed wraps a backend.Backend and tracks the names it has written.
type Indexed struct {
	backend.Backend

	mu    sync.Mutex
	names map[string]struct{}
	dirty bool
}

var _ backend.Backend = &Indexed{}

// New wraps be, starting with an empty name set.
func New(be backend.Backend) *Indexed {
	return &Indexed{
		Backend: be,
		names:   make(map[string]struct{}),
	}
}

// Has answers from the in-memory set, never touching the wrapped
// backend.
func (ix *Indexed) Has(_ context.Context, name string) (bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, ok := ix.names[name]
	return ok, nil
}

// Write delegates to the wrapped backend and, on success, records name
// as known and marks the index dirty.
func (ix *Indexed) Write(ctx context.Context, name string, data []byte) error {
	if err := ix.Backend.Write(ctx, name, data); err != nil {
		return err
	}

	ix.mu.Lock()
	ix.names[name] = struct{}{}
	ix.dirty = true
	ix.mu.Unlock()

	return nil
}

// Delete delegates names to the wrapped backend and, on success, removes
// them from the in-memory set. It forwards names only — never the
// Indexed value itself — to the wrapped Backend.Delete.
func (ix *Indexed) Delete(ctx context.Context, names ...string) error {
	if err := ix.Backend.Delete(ctx, names...); err != nil {
		return err
	}

	ix.mu.Lock()
	for _, name := range names {
		delete(ix.names, name)
	}
	ix.dirty = true
	ix.mu.Unlock()

	return nil
}

// Sync rewrites index.html with a sorted listing of all known names, if
// the set has changed since the last Sync.
func (ix *Indexed) Sync(ctx context.Context) error {
	ix.mu.Lock()
	if !ix.dirty {
		ix.mu.Unlock()
		return nil
	}

	names := make([]string, 0, len(ix.names))
	for name := range ix.names {
		if name == indexName {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	ix.mu.Unlock()

	var buf strings.Builder
	if err := indexTemplate.Execute(&buf, names); err != nil {
		return errors.Wrap(err, "index.Sync")
	}

	debug.Log("sync index.html (%d entries)", len(names))

	if err := ix.Backend.Write(ctx, indexName, []byte(buf.String())); err != nil {
		return err
	}

	ix.mu.Lock()
	ix.names[indexName] = struct{}{}
	ix.dirty = false
	ix.mu.Unlock()

	return nil
}
