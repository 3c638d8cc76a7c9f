// Package codec provides integer serialization and deserialization for Muninn.
//
// The codec package implements the two binary encodings every byte of Muninn
// state travels in: a fixed-width little-endian form and a variable-length
// "compact" form built from 7-bit groups. Sequence helpers layer on top of
// both. This is the foundation for Muninn's replay states, its run log, and
// its archive format.
//
// # Fixed-Width Encoding
//
// A value of integer type T encodes as exactly unsafe.Sizeof(T) bytes,
// least significant byte first. Byte i holds value bits [8i, 8i+8). The
// width is statically known on both sides, so the wire carries no length
// information:
//
//	EncodeFixed[uint32](w, 300)  // emits 2C 01 00 00
//
// # Compact Encoding
//
// A compact integer is a sequence of one or more groups. Each group is one
// byte: the low 7 bits carry payload (least significant group first) and
// bit 7 is a continuation flag, set when more groups follow. Encoding is
// minimal, max(1, ceil(bitlen/7)) bytes, and the value 0 encodes as the
// single byte 0x00:
//
//	EncodeCompact[uint32](w, 300)  // emits AC 02
//	EncodeCompact[uint32](w, 0)    // emits 00
//
// Signed values are encoded as their two's-complement bit pattern at the
// width of T, so non-negative signed values encode identically to their
// unsigned counterparts. Small magnitudes are the common case for counters,
// lengths and shrink paths, which is exactly what the 7-bit grouping is
// cheap for.
//
// # Sequences
//
// EncodeN and DecodeN handle runs whose length both sides already know; no
// length marker is written. EncodeCompactRange and DecodeCompactRange write
// a self-describing sequence: a compact-encoded element count followed by
// each element compact-encoded in order. Element codecs are passed in as
// functions, so callers choose fixed or compact per element type.
//
// # Cursors
//
// Encoders write through io.ByteWriter; *bytes.Buffer and *bufio.Writer
// both qualify, and for an appending buffer encoding cannot fail. Decoders
// read through the package's Reader interface, an io.ByteReader that also
// reports how many bytes remain; *bytes.Reader and *strings.Reader both
// qualify. Decoding a framed region of a stream means reading the frame
// into memory first and decoding from a bytes.Reader, the way the store's
// log reader does.
//
// # Error Handling
//
// Every decode failure is an *Error carrying one of two kinds:
//
//   - Truncated: the input ended before the format was complete.
//   - Overflow: the encoded value does not fit the target type, either
//     because the accumulated bits exceed its width or because the group
//     count exceeds the sane bound for that width.
//
// Use IsTruncated and IsOverflow to discriminate through wrapped errors.
// Failures abort the decode immediately; nothing is retried, clamped or
// silently truncated. Encoding has no error taxonomy of its own, it only
// propagates the writer's failure, if any.
//
// # Thread Safety
//
// All functions are pure: no shared state, no retained buffers, no locks.
// Concurrent calls are safe as long as they operate on distinct cursors.
package codec
