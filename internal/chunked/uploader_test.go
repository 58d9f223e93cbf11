package chunked

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	memtest "github.com/allisonkarlitskaya/s3-streamer/internal/backend/test"
	"github.com/allisonkarlitskaya/s3-streamer/internal/index"
)

func manifest(t *testing.T, mem *memtest.Memory, filename string) []int {
	t.Helper()
	data, ok := mem.Get(filename + ".chunks")
	if !ok {
		t.Fatalf("manifest %s.chunks not present", filename)
	}
	var sizes []int
	if err := json.Unmarshal(data, &sizes); err != nil {
		t.Fatalf("invalid manifest JSON: %v", err)
	}
	return sizes
}

func newUploader(t *testing.T, filename string) (*Uploader, *memtest.Memory, *index.Indexed) {
	t.Helper()
	mem := memtest.New()
	ix := index.New(mem)
	u, err := New(context.Background(), ix, filename, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	u.now = time.Now
	return u, mem, ix
}

// forceFlush promotes whatever is currently pending into a new chunk,
// bypassing the time/size threshold check — used by tests that want to
// control exactly when a flush happens.
func forceFlush(t *testing.T, u *Uploader) {
	t.Helper()
	if len(u.pending) == 0 {
		return
	}
	block := u.pending
	u.pending = nil
	u.sendAt = time.Time{}
	if err := u.appendBlock(context.Background(), block); err != nil {
		t.Fatalf("appendBlock: %v", err)
	}
}

func TestEmptyStream(t *testing.T) {
	u, mem, _ := newUploader(t, "log")

	if sz := manifest(t, mem, "log"); len(sz) != 0 {
		t.Fatalf("initial manifest = %v, want []", sz)
	}

	if err := u.Write(context.Background(), nil, true); err != nil {
		t.Fatalf("Write(final): %v", err)
	}

	data, ok := mem.Get("log")
	if !ok || len(data) != 0 {
		t.Fatalf("consolidated object = %q, ok=%v, want empty", data, ok)
	}
	if _, ok := mem.Get("log.chunks"); ok {
		t.Fatalf("manifest should be deleted after finalisation")
	}
}

func TestSingleSmallLine(t *testing.T) {
	u, mem, _ := newUploader(t, "log")

	if err := u.Write(context.Background(), []byte("hello\n"), false); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Below size/time limits: nothing flushed yet.
	if _, ok := mem.Get("log.0-6"); ok {
		t.Fatalf("chunk published before flush threshold")
	}

	// Force the flush deterministically rather than waiting out the
	// real time limit.
	forceFlush(t, u)

	data, ok := mem.Get("log.0-6")
	if !ok || string(data) != "hello\n" {
		t.Fatalf("chunk log.0-6 = %q, ok=%v", data, ok)
	}
	if diff := manifest(t, mem, "log"); len(diff) != 1 || diff[0] != 6 {
		t.Fatalf("manifest = %v, want [6]", diff)
	}

	if err := u.Write(context.Background(), nil, true); err != nil {
		t.Fatalf("Write(final): %v", err)
	}

	full, ok := mem.Get("log")
	if !ok || string(full) != "hello\n" {
		t.Fatalf("consolidated = %q, ok=%v", full, ok)
	}
	if _, ok := mem.Get("log.0-6"); ok {
		t.Fatalf("chunk should be deleted after finalisation")
	}
	if _, ok := mem.Get("log.chunks"); ok {
		t.Fatalf("manifest should be deleted after finalisation")
	}
}

func TestSizeTriggeredFlush(t *testing.T) {
	u, mem, _ := newUploader(t, "log")

	big := bytes.Repeat([]byte("x"), sizeLimit)
	if err := u.Write(context.Background(), big, false); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, ok := mem.Get("log.0-1000000")
	if !ok || len(data) != sizeLimit {
		t.Fatalf("chunk log.0-1000000 missing or wrong size: ok=%v len=%d", ok, len(data))
	}
	if diff := manifest(t, mem, "log"); len(diff) != 1 || diff[0] != sizeLimit {
		t.Fatalf("manifest = %v, want [%d]", diff, sizeLimit)
	}
	if len(u.pending) != 0 {
		t.Fatalf("pending should be empty after size-triggered flush, got %d bytes", len(u.pending))
	}
}

func TestTimeTriggeredFlush(t *testing.T) {
	u, mem, _ := newUploader(t, "log")

	now := time.Unix(1000, 0)
	u.now = func() time.Time { return now }

	if err := u.Write(context.Background(), []byte("a"), false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, ok := mem.Get("log.0-1"); ok {
		t.Fatalf("chunk published before the time limit elapsed")
	}

	// 11 idle ticks (seconds) pass.
	now = now.Add(11 * time.Second)
	if err := u.maybeFlush(context.Background()); err != nil {
		t.Fatalf("maybeFlush: %v", err)
	}

	data, ok := mem.Get("log.0-1")
	if !ok || string(data) != "a" {
		t.Fatalf("chunk log.0-1 = %q, ok=%v", data, ok)
	}
}

func TestReconstructibility(t *testing.T) {
	u, mem, _ := newUploader(t, "log")
	u.now = func() time.Time { return time.Unix(0, 0) }

	input := strings.Repeat("0123456789", 50)
	for i := 0; i < len(input); i += 7 {
		end := i + 7
		if end > len(input) {
			end = len(input)
		}
		if err := u.Write(context.Background(), []byte(input[i:end]), false); err != nil {
			t.Fatalf("Write: %v", err)
		}
		// flush eagerly each time, to exercise many merges
		forceFlush(t, u)
	}

	if err := u.Write(context.Background(), nil, true); err != nil {
		t.Fatalf("Write(final): %v", err)
	}

	full, ok := mem.Get("log")
	if !ok {
		t.Fatalf("consolidated object missing")
	}
	if string(full) != input {
		t.Fatalf("reconstructed stream mismatch: got %d bytes, want %d", len(full), len(input))
	}
}

func TestChunkWriteImmediatelyPrecedesManifestWrite(t *testing.T) {
	u, mem, _ := newUploader(t, "log")
	u.now = func() time.Time { return time.Unix(0, 0) }

	for _, c := range "abcd" {
		if err := u.Write(context.Background(), []byte(string(c)), false); err != nil {
			t.Fatalf("Write: %v", err)
		}
		forceFlush(t, u)
	}

	// Every chunk write must be immediately followed by a manifest
	// write in mem.Writes (the chunk object is acked before the
	// manifest that names it, per spec.md §4.4 Ordering guarantee).
	for i, w := range mem.Writes {
		if strings.Contains(w.Name, "-") && !strings.HasSuffix(w.Name, ".chunks") {
			if i+1 >= len(mem.Writes) || !strings.HasSuffix(mem.Writes[i+1].Name, ".chunks") {
				t.Fatalf("chunk write %v at index %d not immediately followed by a manifest write", w.Name, i)
			}
		}
	}
}
