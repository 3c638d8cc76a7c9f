package replay

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"sort"

	"github.com/ssargent/muninn/pkg/codec"
)

// Manifest maps test identifiers to the state that reproduces their last
// recorded failure. Its text form is a base64url payload small enough to
// travel through flags and environment variables, which is how a failing
// CI run hands its reproduction set back to a developer.
type Manifest map[string]State

// manifestEncoding is url-safe and unpadded so the payload survives
// shells, query strings and YAML scalars unquoted.
var manifestEncoding = base64.RawURLEncoding

// MarshalText implements encoding.TextMarshaler. Entries are written in
// sorted id order, so equal manifests always produce identical text.
func (m Manifest) MarshalText() ([]byte, error) {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var buf bytes.Buffer
	if err := codec.EncodeCompact(&buf, uint64(len(ids))); err != nil {
		return nil, fmt.Errorf("entry count: %w", err)
	}
	for _, id := range ids {
		if err := codec.EncodeCompact(&buf, uint64(len(id))); err != nil {
			return nil, fmt.Errorf("id length for %q: %w", id, err)
		}
		buf.WriteString(id)
		state := m[id]
		if err := state.AppendTo(&buf); err != nil {
			return nil, fmt.Errorf("state for %q: %w", id, err)
		}
	}

	out := make([]byte, manifestEncoding.EncodedLen(buf.Len()))
	manifestEncoding.Encode(out, buf.Bytes())
	return out, nil
}

// UnmarshalText implements encoding.TextUnmarshaler, replacing the
// receiver's entries with the decoded set.
func (m *Manifest) UnmarshalText(text []byte) error {
	raw := make([]byte, manifestEncoding.DecodedLen(len(text)))
	n, err := manifestEncoding.Decode(raw, text)
	if err != nil {
		return fmt.Errorf("manifest is not valid base64url: %w", err)
	}
	r := bytes.NewReader(raw[:n])

	count, err := codec.DecodeCompact[uint64](r)
	if err != nil {
		return fmt.Errorf("entry count: %w", err)
	}
	if count > uint64(r.Len()) {
		return fmt.Errorf("entry count %d exceeds %d remaining bytes", count, r.Len())
	}

	if *m == nil {
		*m = make(Manifest, count)
	}
	for id := range *m {
		delete(*m, id)
	}
	for i := uint64(0); i < count; i++ {
		idLen, err := codec.DecodeCompact[uint64](r)
		if err != nil {
			return fmt.Errorf("entry %d id length: %w", i, err)
		}
		if idLen > uint64(r.Len()) {
			return fmt.Errorf("entry %d id length %d exceeds %d remaining bytes", i, idLen, r.Len())
		}
		id := make([]byte, idLen)
		if _, err := io.ReadFull(r, id); err != nil {
			return fmt.Errorf("entry %d id: %w", i, err)
		}

		var state State
		if err := state.DecodeFrom(r); err != nil {
			return fmt.Errorf("entry %d (%q) state: %w", i, id, err)
		}
		(*m)[string(id)] = state
	}
	if r.Len() != 0 {
		return fmt.Errorf("manifest has %d trailing bytes", r.Len())
	}
	return nil
}

// Encode returns the manifest's text form as a string.
func (m Manifest) Encode() (string, error) {
	text, err := m.MarshalText()
	if err != nil {
		return "", err
	}
	return string(text), nil
}

// ParseManifest decodes a manifest from its text form.
func ParseManifest(s string) (Manifest, error) {
	m := make(Manifest)
	if err := m.UnmarshalText([]byte(s)); err != nil {
		return nil, err
	}
	return m, nil
}
