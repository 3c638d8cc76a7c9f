package codec

import (
	"bytes"
	"io"
	"strings"
)

// Reader is the read cursor the decoders consume: sequential byte access
// plus the number of bytes remaining. The length lets fixed-width decodes
// pre-check their input, so they advance the cursor only on success, and
// lets the range decoder reject a length prefix promising more elements
// than the remaining input could possibly contain.
//
// *bytes.Reader and *strings.Reader both satisfy Reader. To decode a
// framed region of a stream, read the frame into memory and wrap it in a
// bytes.Reader.
type Reader interface {
	io.ByteReader

	// Len returns the number of bytes remaining before the end bound.
	Len() int
}

var (
	_ Reader = (*bytes.Reader)(nil)
	_ Reader = (*strings.Reader)(nil)
)
