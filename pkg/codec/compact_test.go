package codec

import (
	"bytes"
	"testing"
)

// TestEncodeCompact_Vectors verifies byte-exact group layout
func TestEncodeCompact_Vectors(t *testing.T) {
	tests := []struct {
		name  string
		value uint32
		want  []byte
	}{
		{
			name:  "zero is a single byte",
			value: 0,
			want:  []byte{0x00},
		},
		{
			name:  "one",
			value: 1,
			want:  []byte{0x01},
		},
		{
			name:  "largest single group",
			value: 127,
			want:  []byte{0x7F},
		},
		{
			name:  "smallest two group",
			value: 128,
			want:  []byte{0x80, 0x01},
		},
		{
			name:  "300",
			value: 300,
			want:  []byte{0xAC, 0x02},
		},
		{
			name:  "largest two group",
			value: 16383,
			want:  []byte{0xFF, 0x7F},
		},
		{
			name:  "smallest three group",
			value: 16384,
			want:  []byte{0x80, 0x80, 0x01},
		},
		{
			name:  "uint32 max",
			value: 0xFFFFFFFF,
			want:  []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := EncodeCompact(&buf, tt.value); err != nil {
				t.Fatalf("EncodeCompact failed: %v", err)
			}
			if !bytes.Equal(buf.Bytes(), tt.want) {
				t.Errorf("Encoded bytes mismatch: got % X, want % X", buf.Bytes(), tt.want)
			}
			if n := CompactLen(tt.value); n != len(tt.want) {
				t.Errorf("CompactLen = %d, want %d", n, len(tt.want))
			}

			got, err := DecodeCompact[uint32](bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatalf("DecodeCompact failed: %v", err)
			}
			if got != tt.value {
				t.Errorf("Decoded %d, want %d", got, tt.value)
			}
		})
	}
}

// TestEncodeCompact_Signed verifies the two's-complement convention: the
// bit pattern at the type's width is grouped, so non-negative signed
// values match their unsigned counterparts byte for byte.
func TestEncodeCompact_Signed(t *testing.T) {
	tests := []struct {
		name   string
		encode func(*bytes.Buffer) error
		want   []byte
	}{
		{
			name:   "int32 300 matches uint32 300",
			encode: func(b *bytes.Buffer) error { return EncodeCompact(b, int32(300)) },
			want:   []byte{0xAC, 0x02},
		},
		{
			name:   "int8 -1 is the 8-bit pattern 0xFF",
			encode: func(b *bytes.Buffer) error { return EncodeCompact(b, int8(-1)) },
			want:   []byte{0xFF, 0x01},
		},
		{
			name:   "int16 -2",
			encode: func(b *bytes.Buffer) error { return EncodeCompact(b, int16(-2)) },
			want:   []byte{0xFE, 0xFF, 0x03},
		},
		{
			name:   "int32 -1 is the 32-bit pattern",
			encode: func(b *bytes.Buffer) error { return EncodeCompact(b, int32(-1)) },
			want:   []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf); err != nil {
				t.Fatalf("EncodeCompact failed: %v", err)
			}
			if !bytes.Equal(buf.Bytes(), tt.want) {
				t.Errorf("Encoded bytes mismatch: got % X, want % X", buf.Bytes(), tt.want)
			}
		})
	}
}

func roundTripCompact[T Integer](t *testing.T, v T) {
	t.Helper()

	var buf bytes.Buffer
	if err := EncodeCompact(&buf, v); err != nil {
		t.Fatalf("EncodeCompact(%v) failed: %v", v, err)
	}
	if buf.Len() != CompactLen(v) {
		t.Errorf("CompactLen(%v) = %d, encoded %d bytes", v, CompactLen(v), buf.Len())
	}

	r := bytes.NewReader(buf.Bytes())
	got, err := DecodeCompact[T](r)
	if err != nil {
		t.Fatalf("DecodeCompact failed for %v: %v", v, err)
	}
	if got != v {
		t.Errorf("Round trip mismatch: got %v, want %v", got, v)
	}
	if r.Len() != 0 {
		t.Errorf("Decode left %d bytes unconsumed", r.Len())
	}
}

// TestCompactRoundTrip covers group boundaries and extremes for every width
func TestCompactRoundTrip(t *testing.T) {
	t.Run("uint8", func(t *testing.T) {
		for v := 0; v <= 0xFF; v++ {
			roundTripCompact(t, uint8(v))
		}
	})
	t.Run("uint16", func(t *testing.T) {
		for _, v := range []uint16{0, 1, 127, 128, 300, 16383, 16384, 0x7FFF, 0xFFFF} {
			roundTripCompact(t, v)
		}
	})
	t.Run("uint32", func(t *testing.T) {
		for _, v := range []uint32{0, 127, 128, 300, 16384, 1 << 21, 1<<28 - 1, 1 << 28, 0xFFFFFFFF} {
			roundTripCompact(t, v)
		}
	})
	t.Run("uint64", func(t *testing.T) {
		for _, v := range []uint64{0, 300, 1<<35 - 1, 1 << 35, 1<<56 - 1, 1 << 56, 1 << 63, ^uint64(0)} {
			roundTripCompact(t, v)
		}
	})
	t.Run("int8", func(t *testing.T) {
		for _, v := range []int8{-128, -2, -1, 0, 1, 127} {
			roundTripCompact(t, v)
		}
	})
	t.Run("int32", func(t *testing.T) {
		for _, v := range []int32{-2147483648, -300, -1, 0, 300, 2147483647} {
			roundTripCompact(t, v)
		}
	})
	t.Run("int64", func(t *testing.T) {
		for _, v := range []int64{-9223372036854775808, -1, 0, 1, 1 << 62, 9223372036854775807} {
			roundTripCompact(t, v)
		}
	})
}

// TestCompactLen_Minimality checks the max(1, ceil(bitlen/7)) property
func TestCompactLen_Minimality(t *testing.T) {
	tests := []struct {
		value uint64
		want  int
	}{
		{0, 1},
		{1, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
		{1<<21 - 1, 3},
		{1 << 21, 4},
		{1<<63 - 1, 9},
		{1 << 63, 10},
		{^uint64(0), 10},
	}

	for _, tt := range tests {
		if got := CompactLen(tt.value); got != tt.want {
			t.Errorf("CompactLen(%d) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

// TestDecodeCompact_Truncated feeds streams that end mid-value
func TestDecodeCompact_Truncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "empty input",
			data: []byte{},
		},
		{
			name: "continuation bit set on last byte",
			data: []byte{0xAC},
		},
		{
			name: "two open groups",
			data: []byte{0x80, 0x80},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCompact[uint32](bytes.NewReader(tt.data))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !IsTruncated(err) {
				t.Errorf("Expected Truncated error, got %v", err)
			}
			if IsOverflow(err) {
				t.Errorf("Error reported as both kinds: %v", err)
			}
		})
	}
}

// TestDecodeCompact_Overflow feeds values that cannot fit the target type
func TestDecodeCompact_Overflow(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		decode func(Reader) error
	}{
		{
			name: "300 does not fit uint8",
			data: []byte{0xAC, 0x02},
			decode: func(r Reader) error {
				_, err := DecodeCompact[uint8](r)
				return err
			},
		},
		{
			name: "17 bits do not fit uint16",
			data: []byte{0xFF, 0xFF, 0x07},
			decode: func(r Reader) error {
				_, err := DecodeCompact[uint16](r)
				return err
			},
		},
		{
			name: "group count bound for uint8",
			data: []byte{0x80, 0x80, 0x80, 0x00},
			decode: func(r Reader) error {
				_, err := DecodeCompact[uint8](r)
				return err
			},
		},
		{
			name: "65th bit does not fit uint64",
			data: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01},
			decode: func(r Reader) error {
				_, err := DecodeCompact[uint64](r)
				return err
			},
		},
		{
			name: "group count bound for uint64",
			data: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01},
			decode: func(r Reader) error {
				_, err := DecodeCompact[uint64](r)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decode(bytes.NewReader(tt.data))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !IsOverflow(err) {
				t.Errorf("Expected Overflow error, got %v", err)
			}
		})
	}
}

// TestDecodeCompact_NonMinimal accepts zero-padded encodings within the
// group bound; minimality is an encoder guarantee, not a decode error.
func TestDecodeCompact_NonMinimal(t *testing.T) {
	got, err := DecodeCompact[uint32](bytes.NewReader([]byte{0x80, 0x00}))
	if err != nil {
		t.Fatalf("DecodeCompact failed: %v", err)
	}
	if got != 0 {
		t.Errorf("Expected 0, got %d", got)
	}

	got, err = DecodeCompact[uint32](bytes.NewReader([]byte{0xAC, 0x82, 0x00}))
	if err != nil {
		t.Fatalf("DecodeCompact failed: %v", err)
	}
	if got != 300 {
		t.Errorf("Expected 300, got %d", got)
	}
}

// TestDecodeCompact_StopsAtTerminator verifies trailing bytes stay unread
func TestDecodeCompact_StopsAtTerminator(t *testing.T) {
	r := bytes.NewReader([]byte{0xAC, 0x02, 0xFF, 0xFF})
	got, err := DecodeCompact[uint32](r)
	if err != nil {
		t.Fatalf("DecodeCompact failed: %v", err)
	}
	if got != 300 {
		t.Errorf("Expected 300, got %d", got)
	}
	if r.Len() != 2 {
		t.Errorf("Expected 2 bytes remaining, got %d", r.Len())
	}
}
