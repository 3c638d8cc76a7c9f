package replay

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ssargent/muninn/pkg/codec"
)

// State captures everything needed to reproduce a single test run: the
// RNG seed the run started from, the generation size at the failing case,
// how many cases executed before the failure, and the shrink path (the
// child indexes taken from the original counterexample down to the
// minimal one).
type State struct {
	Seed    uint64   // RNG seed for the run
	Size    uint32   // generation size at the failure
	Counter uint64   // cases executed before the failure
	Path    []uint64 // child indexes taken while shrinking
}

// AppendTo encodes the state to w: fixed-width seed and size, compact
// counter, compact range path. Seed and size are hot fields read by
// tooling without full decodes, so they keep a fixed offset; counter and
// path are small in the common case, which is what the compact form is
// for.
func (s *State) AppendTo(w io.ByteWriter) error {
	if err := codec.EncodeFixed(w, s.Seed); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if err := codec.EncodeFixed(w, s.Size); err != nil {
		return fmt.Errorf("size: %w", err)
	}
	if err := codec.EncodeCompact(w, s.Counter); err != nil {
		return fmt.Errorf("counter: %w", err)
	}
	if err := codec.EncodeCompactRange(w, s.Path); err != nil {
		return fmt.Errorf("path: %w", err)
	}
	return nil
}

// DecodeFrom decodes one state from the front of r, leaving the cursor
// just past it. Fields already decoded before a failure are left assigned.
func (s *State) DecodeFrom(r codec.Reader) error {
	var err error
	if s.Seed, err = codec.DecodeFixed[uint64](r); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if s.Size, err = codec.DecodeFixed[uint32](r); err != nil {
		return fmt.Errorf("size: %w", err)
	}
	if s.Counter, err = codec.DecodeCompact[uint64](r); err != nil {
		return fmt.Errorf("counter: %w", err)
	}
	s.Path = s.Path[:0]
	if _, err = codec.DecodeCompactRange(r, &s.Path); err != nil {
		return fmt.Errorf("path: %w", err)
	}
	return nil
}

// EncodedLen returns the exact number of bytes MarshalBinary will emit.
func (s *State) EncodedLen() int {
	n := codec.FixedLen[uint64]() + codec.FixedLen[uint32]()
	n += codec.CompactLen(s.Counter)
	n += codec.CompactLen(uint64(len(s.Path)))
	for _, p := range s.Path {
		n += codec.CompactLen(p)
	}
	return n
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *State) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, s.EncodedLen()))
	if err := s.AppendTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The payload must
// contain exactly one state; trailing bytes are an error.
func (s *State) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	if err := s.DecodeFrom(r); err != nil {
		return err
	}
	if r.Len() != 0 {
		return fmt.Errorf("state payload has %d trailing bytes", r.Len())
	}
	return nil
}

// Equal reports whether two states would reproduce the same run.
func (s *State) Equal(other *State) bool {
	if s.Seed != other.Seed || s.Size != other.Size || s.Counter != other.Counter {
		return false
	}
	if len(s.Path) != len(other.Path) {
		return false
	}
	for i := range s.Path {
		if s.Path[i] != other.Path[i] {
			return false
		}
	}
	return true
}

// String returns a one-line summary suitable for CLI output and logs.
func (s *State) String() string {
	return fmt.Sprintf("seed=%d size=%d counter=%d path=%v", s.Seed, s.Size, s.Counter, s.Path)
}
