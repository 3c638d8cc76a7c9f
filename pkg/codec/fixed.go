package codec

import (
	"io"
	"unsafe"
)

// Integer constrains the codecs to Go's integer types, signed and
// unsigned. Note that ~int and ~uint encode at their native width (8
// bytes on 64-bit builds); data meant to move between platforms should
// use an explicit-width type.
type Integer interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint
}

// width returns the encoded byte width of T.
func width[T Integer]() int {
	var v T
	return int(unsafe.Sizeof(v))
}

// mask returns a bitmask covering T's width: all 8*sizeof(T) low bits set.
func mask[T Integer]() uint64 {
	w := width[T]()
	if w >= 8 {
		return ^uint64(0)
	}
	return uint64(1)<<(8*w) - 1
}

// FixedLen returns the exact number of bytes EncodeFixed emits for T.
func FixedLen[T Integer]() int {
	return width[T]()
}

// EncodeFixed writes v as exactly sizeof(T) bytes, least significant byte
// first; byte i holds value bits [8i, 8i+8). Signed values are written as
// their two's-complement bit pattern. For an appending writer such as
// *bytes.Buffer the returned error is always nil; a non-nil error only
// propagates the writer's own failure.
func EncodeFixed[T Integer](w io.ByteWriter, v T) error {
	u := uint64(v)
	for i := 0; i < width[T](); i++ {
		if err := w.WriteByte(byte(u >> (8 * i))); err != nil {
			return err
		}
	}
	return nil
}

// DecodeFixed reads exactly sizeof(T) bytes from the front of r and
// reconstructs the value as the sum of byte[i] << 8i. If fewer than
// sizeof(T) bytes remain it fails with a Truncated error and consumes
// nothing; the cursor advances only on success.
func DecodeFixed[T Integer](r Reader) (T, error) {
	w := width[T]()
	if remain := r.Len(); remain < w {
		return 0, truncatedf("decode fixed", "need %d bytes, have %d", w, remain)
	}
	var u uint64
	for i := 0; i < w; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, truncatedf("decode fixed", "input ended at byte %d of %d", i, w)
		}
		u |= uint64(b) << (8 * i)
	}
	return T(u), nil
}
