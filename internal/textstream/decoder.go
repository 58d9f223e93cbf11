// Package textstream incrementally decodes a child process's stdout from
// its declared source encoding to UTF-8, one write at a time, as
// spec.md §4.4 state (1) requires. Chunk boundaries are then drawn on
// the UTF-8 byte stream produced here, which may split a multi-byte
// character across two flushes; reassembly is purely byte
// concatenation, never character-indexed.
package textstream

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/allisonkarlitskaya/s3-streamer/internal/errors"
)

// Decoder incrementally transcodes bytes in a source encoding to UTF-8,
// buffering any trailing bytes of a not-yet-complete source character
// across calls.
type Decoder struct {
	transformer transform.Transformer
	leftover    []byte

	// offset is the number of source-encoding bytes consumed so far,
	// across all calls to Decode. It is reported in decode errors so
	// the offending byte position in the child's output can be
	// identified.
	offset int64
}

// New returns a Decoder for the named encoding (as recognised by
// golang.org/x/text/encoding/htmlindex, e.g. "utf-8", "iso-8859-1",
// "windows-1252"). An empty name defaults to UTF-8.
func New(name string) (*Decoder, error) {
	var enc encoding.Encoding
	if name == "" {
		enc = encoding.Nop
	} else {
		var err error
		enc, err = htmlindex.Get(name)
		if err != nil {
			return nil, errors.Wrapf(err, "textstream.New: unknown encoding %q", name)
		}
	}

	return &Decoder{transformer: enc.NewDecoder()}, nil
}

// Decode feeds data through the decoder, returning the UTF-8 bytes
// produced so far. Source bytes that end mid-character are kept for the
// next call; when final is true they are reported as a truncated-sequence
// error instead.
func (d *Decoder) Decode(data []byte, final bool) ([]byte, error) {
	src := data
	if len(d.leftover) > 0 {
		src = append(append([]byte(nil), d.leftover...), data...)
		d.leftover = nil
	}

	dst := make([]byte, growEstimate(len(src)))
	pos := 0

	for {
		// atEOF stays false so that a trailing partial character comes
		// back as ErrShortSrc rather than being replaced with U+FFFD.
		nDst, nSrc, err := d.transformer.Transform(dst[pos:], src, false)
		pos += nDst
		src = src[nSrc:]
		d.offset += int64(nSrc)

		switch err {
		case transform.ErrShortDst:
			dst = append(dst, make([]byte, len(dst)+64)...)
			continue
		case transform.ErrShortSrc:
			if final {
				return dst[:pos], errors.Errorf("textstream.Decode: truncated byte sequence at offset %d at end of stream", d.offset)
			}
			// src ends mid-character; keep the unconsumed tail for
			// the next Decode call.
			d.leftover = append([]byte(nil), src...)
			return dst[:pos], nil
		case nil:
			return dst[:pos], nil
		default:
			return dst[:pos], errors.Wrapf(err, "textstream.Decode: at offset %d", d.offset)
		}
	}
}

// growEstimate bounds how much a decode of n source bytes can expand
// when re-encoded to UTF-8 (generously over-provisioned for multi-byte
// legacy encodings).
func growEstimate(n int) int {
	return n*4 + 64
}
