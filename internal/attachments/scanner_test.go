package attachments_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/allisonkarlitskaya/s3-streamer/internal/attachments"
	memtest "github.com/allisonkarlitskaya/s3-streamer/internal/backend/test"
	"github.com/allisonkarlitskaya/s3-streamer/internal/index"
)

func TestScanUploadsNewFilesOnce(t *testing.T) {
	dir := t.TempDir()
	mem := memtest.New()
	ix := index.New(mem)
	s := attachments.New(dir, ix)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := s.Scan(ctx); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	data, ok := mem.Get("a.txt")
	if !ok || string(data) != "hello" {
		t.Fatalf("a.txt = %q, ok=%v", data, ok)
	}

	writesBefore := len(mem.Writes)
	if err := s.Scan(ctx); err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if len(mem.Writes) != writesBefore {
		t.Fatalf("idempotence violated: second Scan of an unchanged directory issued %d new writes", len(mem.Writes)-writesBefore)
	}
}

func TestScanSkipsSymlinksAndDirectories(t *testing.T) {
	dir := t.TempDir()
	mem := memtest.New()
	ix := index.New(mem)
	s := attachments.New(dir, ix)
	ctx := context.Background()

	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "real.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Symlink(filepath.Join(dir, "real.txt"), filepath.Join(dir, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported in this environment: %v", err)
	}

	if err := s.Scan(ctx); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if _, ok := mem.Get("subdir"); ok {
		t.Fatalf("directory was uploaded as an attachment")
	}
	if _, ok := mem.Get("link.txt"); ok {
		t.Fatalf("symlink was uploaded as an attachment")
	}
	if _, ok := mem.Get("real.txt"); !ok {
		t.Fatalf("real.txt was not uploaded")
	}
}

func TestScanAppearsBeforeReferencingLogLine(t *testing.T) {
	// Mirrors spec.md §8 scenario 6: attachment uploaded strictly
	// before a chunk referencing it.
	dir := t.TempDir()
	mem := memtest.New()
	ix := index.New(mem)
	s := attachments.New(dir, ix)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("data"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := s.Scan(ctx); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	attachmentWriteIndex := len(mem.Writes) - 1

	if err := ix.Write(ctx, "log.0-9", []byte("see a.txt")); err != nil {
		t.Fatalf("Write log chunk: %v", err)
	}
	logWriteIndex := len(mem.Writes) - 1

	if attachmentWriteIndex >= logWriteIndex {
		t.Fatalf("attachment write (%d) did not precede log chunk write (%d)", attachmentWriteIndex, logWriteIndex)
	}
}
