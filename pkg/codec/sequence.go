package codec

import (
	"fmt"
	"io"
)

// EncodeFunc encodes a single element to the write cursor. EncodeFixed
// and EncodeCompact instantiated for T both qualify.
type EncodeFunc[T Integer] func(io.ByteWriter, T) error

// DecodeFunc decodes a single element from the read cursor. DecodeFixed
// and DecodeCompact instantiated for T both qualify.
type DecodeFunc[T Integer] func(Reader) (T, error)

// EncodeN encodes exactly the first n elements of elems with enc, writing
// no length marker. The decoder must be given the same n out-of-band; a
// mismatch is undetectable at this layer and is a precondition, not an
// error it can catch. n > len(elems) panics like the slice expression it
// is.
func EncodeN[T Integer](w io.ByteWriter, elems []T, n int, enc EncodeFunc[T]) error {
	for i, v := range elems[:n] {
		if err := enc(w, v); err != nil {
			return fmt.Errorf("element %d of %d: %w", i, n, err)
		}
	}
	return nil
}

// DecodeN decodes exactly n elements with dec, appending each to *out. It
// fails the moment any single-element decode fails; elements already
// appended stay appended, the operation is not transactional.
func DecodeN[T Integer](r Reader, n int, out *[]T, dec DecodeFunc[T]) error {
	for i := 0; i < n; i++ {
		v, err := dec(r)
		if err != nil {
			return fmt.Errorf("element %d of %d: %w", i, n, err)
		}
		*out = append(*out, v)
	}
	return nil
}

// EncodeCompactRange writes the compact-encoded element count followed by
// each element compact-encoded in order. An empty slice encodes as the
// single byte 0x00.
func EncodeCompactRange[T Integer](w io.ByteWriter, elems []T) error {
	if err := EncodeCompact(w, uint64(len(elems))); err != nil {
		return fmt.Errorf("length prefix: %w", err)
	}
	for i, v := range elems {
		if err := EncodeCompact(w, v); err != nil {
			return fmt.Errorf("element %d of %d: %w", i, len(elems), err)
		}
	}
	return nil
}

// DecodeCompactRange decodes a compact length prefix k and then k
// elements via the single-value compact codec, appending each to *out. It
// returns the number of elements appended; together with the advanced
// reader that makes both input consumed and output produced observable.
// It fails if the prefix is malformed, if k exceeds the bytes remaining
// (every element takes at least one byte, so such a prefix cannot be
// honest), or if any element decode fails. Elements appended before the
// failure stay appended.
func DecodeCompactRange[T Integer](r Reader, out *[]T) (int, error) {
	count, err := DecodeCompact[uint64](r)
	if err != nil {
		return 0, fmt.Errorf("length prefix: %w", err)
	}
	if remain := uint64(r.Len()); count > remain {
		return 0, overflowf("decode compact range", "count %d exceeds %d remaining bytes", count, remain)
	}
	for n := 0; n < int(count); n++ {
		v, err := DecodeCompact[T](r)
		if err != nil {
			return n, fmt.Errorf("element %d of %d: %w", n, count, err)
		}
		*out = append(*out, v)
	}
	return int(count), nil
}
