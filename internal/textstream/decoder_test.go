package textstream_test

import (
	"strings"
	"testing"

	"github.com/allisonkarlitskaya/s3-streamer/internal/textstream"
)

func TestEmptyNameIsPassthroughUTF8(t *testing.T) {
	d, err := textstream.New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out, err := d.Decode([]byte("hello, \xe4\xb8\x96\xe7\x95\x8c\n"), true)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(out) != "hello, \xe4\xb8\x96\xe7\x95\x8c\n" {
		t.Fatalf("got %q", out)
	}
}

func TestUnknownEncodingIsRejected(t *testing.T) {
	if _, err := textstream.New("not-a-real-encoding"); err == nil {
		t.Fatalf("expected an error for an unknown encoding")
	}
}

func TestSingleByteEncodingTranscodesToUTF8(t *testing.T) {
	d, err := textstream.New("windows-1252")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// 0xe9 in windows-1252 is U+00E9 (é), which is the two-byte UTF-8
	// sequence 0xc3 0xa9.
	out, err := d.Decode([]byte{'r', 0xe9, 's', 'u', 'm', 0xe9}, true)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(out) != "r\xc3\xa9sum\xc3\xa9" {
		t.Fatalf("got %q, want %q", out, "r\xc3\xa9sum\xc3\xa9")
	}
}

// TestMultiByteCharacterSplitAcrossFlushes feeds a UTF-16LE encoded
// character one byte at a time across two Decode calls, the way the
// driver's buffered-read loop can split any multi-byte source
// character across two flushes (spec.md §4.4 state (1)). The decoder
// must buffer the dangling byte rather than emitting mojibake or
// erroring out early.
func TestMultiByteCharacterSplitAcrossFlushes(t *testing.T) {
	d, err := textstream.New("utf-16le")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// "A" in UTF-16LE is the two bytes 0x41 0x00.
	first, err := d.Decode([]byte{0x41}, false)
	if err != nil {
		t.Fatalf("Decode(first half): %v", err)
	}
	if len(first) != 0 {
		t.Fatalf("expected nothing decoded from a half code unit, got %q", first)
	}

	second, err := d.Decode([]byte{0x00}, true)
	if err != nil {
		t.Fatalf("Decode(second half): %v", err)
	}
	if string(second) != "A" {
		t.Fatalf("got %q, want %q", second, "A")
	}
}

func TestTruncatedSequenceAtFinalIsAnError(t *testing.T) {
	d, err := textstream.New("utf-16le")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = d.Decode([]byte{0x41}, true)
	if err == nil {
		t.Fatalf("expected an error for a truncated sequence at end of stream")
	}
	if !strings.Contains(err.Error(), "offset 0") {
		t.Fatalf("error %q does not report the offending byte offset", err)
	}
}

// TestDecodeErrorReportsOffsetAfterPriorBytes confirms the offset
// reported in a decode error accounts for bytes consumed on earlier
// Decode calls, not just the call that failed.
func TestDecodeErrorReportsOffsetAfterPriorBytes(t *testing.T) {
	d, err := textstream.New("utf-16le")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// "AB" in UTF-16LE, decoded cleanly first.
	if _, err := d.Decode([]byte{0x41, 0x00, 0x42, 0x00}, false); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	// A dangling half code unit at the end of the stream: the error
	// should report offset 4, the position where the truncated
	// sequence begins.
	_, err = d.Decode([]byte{0x43}, true)
	if err == nil {
		t.Fatalf("expected an error for a truncated sequence at end of stream")
	}
	if !strings.Contains(err.Error(), "offset 4") {
		t.Fatalf("error %q does not report offset 4", err)
	}
}
