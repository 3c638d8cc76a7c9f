package codec

import "io"

// maxGroups bounds a compact decode for T: beyond ceil(8*sizeof(T)/7)+1
// groups the value cannot fit no matter what the continuation bits
// promise, so longer inputs are rejected rather than scanned forever.
func maxGroups[T Integer]() int {
	return (width[T]()*8+6)/7 + 1
}

// CompactLen returns the exact number of bytes EncodeCompact emits for v
// without encoding: max(1, ceil(bitlen/7)).
func CompactLen[T Integer](v T) int {
	u := uint64(v) & mask[T]()
	n := 1
	for u >>= 7; u != 0; u >>= 7 {
		n++
	}
	return n
}

// EncodeCompact writes v as a minimal sequence of 7-bit groups, least
// significant group first. Each emitted byte carries 7 payload bits; bit 7
// is set while more groups follow. At least one byte is always emitted, so
// 0 encodes as the single byte 0x00. Signed values encode as their
// two's-complement bit pattern at the width of T, which keeps non-negative
// signed values byte-identical to their unsigned counterparts. The error
// only propagates the writer's own failure.
func EncodeCompact[T Integer](w io.ByteWriter, v T) error {
	u := uint64(v) & mask[T]()
	for {
		b := byte(u & 0x7f)
		u >>= 7
		if u != 0 {
			b |= 0x80
		}
		if err := w.WriteByte(b); err != nil {
			return err
		}
		if u == 0 {
			return nil
		}
	}
}

// DecodeCompact reads groups from r one byte at a time, accumulating
// payload << 7i, until a byte with the continuation bit clear terminates
// the value. It fails Truncated if the input ends while the continuation
// bit is still set, and Overflow if the accumulated value has set bits
// beyond T's width or the group count exceeds the bound for that width.
// Individual groups are only 7 bits, but enough of them still overflow a
// narrow T, so the fit check is unconditional.
func DecodeCompact[T Integer](r Reader) (T, error) {
	var u uint64
	limit := maxGroups[T]()
	for group := 0; group < limit; group++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, truncatedf("decode compact", "input ended with continuation bit set after %d bytes", group)
		}
		if payload := uint64(b & 0x7f); payload != 0 {
			shift := 7 * group
			if shift >= 64 || payload<<shift>>shift != payload {
				return 0, overflowf("decode compact", "group %d exceeds 64 bits", group)
			}
			u |= payload << shift
		}
		if b&0x80 == 0 {
			if u&^mask[T]() != 0 {
				return 0, overflowf("decode compact", "value %#x exceeds %d-bit target", u, width[T]()*8)
			}
			return T(u), nil
		}
	}
	return 0, overflowf("decode compact", "value does not terminate within %d groups", limit)
}
