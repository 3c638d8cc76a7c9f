package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/ssargent/muninn/pkg/codec"
)

// Record is one entry in the run log: a run ID and the payload recorded
// under it, stamped and checksummed.
//
// Wire format:
//
//	[CRC32 u32 fixed][Timestamp u64 fixed][IDLen compact][PayloadLen compact][ID][Payload]
//
// The CRC32 (IEEE) covers every byte after the checksum itself, so a
// record can be verified straight off a disk buffer. Lengths are compact
// so small records stay small; the fixed fields keep the checksum and
// timestamp at stable offsets for quick inspection.
type Record struct {
	CRC       uint32 // IEEE checksum over everything after itself
	Timestamp uint64 // Unix timestamp in nanoseconds
	ID        []byte // Run identifier
	Payload   []byte // Encoded run state, empty for tombstones
}

// maxHeaderLen bounds the encoded header: fixed CRC and timestamp plus
// two compact uint64 lengths of at most 10 bytes each.
const maxHeaderLen = 4 + 8 + 10 + 10

// NewRecord creates a record stamped with the current time.
func NewRecord(id, payload []byte) *Record {
	return &Record{
		Timestamp: uint64(time.Now().UnixNano()),
		ID:        id,
		Payload:   payload,
	}
}

// Tombstone reports whether the record marks its ID as forgotten.
func (r *Record) Tombstone() bool {
	return len(r.Payload) == 0
}

// Size returns the encoded length of the record in bytes.
func (r *Record) Size() int {
	return 4 + 8 +
		codec.CompactLen(uint64(len(r.ID))) +
		codec.CompactLen(uint64(len(r.Payload))) +
		len(r.ID) + len(r.Payload)
}

// encodeBody writes everything after the CRC field into buf.
func (r *Record) encodeBody(buf *bytes.Buffer) error {
	if err := codec.EncodeFixed(buf, r.Timestamp); err != nil {
		return err
	}
	if err := codec.EncodeCompact(buf, uint64(len(r.ID))); err != nil {
		return err
	}
	if err := codec.EncodeCompact(buf, uint64(len(r.Payload))); err != nil {
		return err
	}
	buf.Write(r.ID)
	buf.Write(r.Payload)
	return nil
}

// Marshal encodes the record, computing and filling in the checksum.
func (r *Record) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(r.Size())
	if err := codec.EncodeFixed(&buf, uint32(0)); err != nil {
		return nil, err
	}
	if err := r.encodeBody(&buf); err != nil {
		return nil, err
	}
	b := buf.Bytes()
	r.CRC = crc32.ChecksumIEEE(b[4:])
	binary.LittleEndian.PutUint32(b[:4], r.CRC)
	return b, nil
}

// Validate recomputes the checksum and compares it to the stored one.
func (r *Record) Validate() error {
	var body bytes.Buffer
	body.Grow(r.Size() - 4)
	if err := r.encodeBody(&body); err != nil {
		return err
	}
	if sum := crc32.ChecksumIEEE(body.Bytes()); sum != r.CRC {
		return fmt.Errorf("checksum %#08x does not match stored %#08x", sum, r.CRC)
	}
	return nil
}

// recordHeader holds the decoded header fields and their encoded length.
type recordHeader struct {
	CRC        uint32
	Timestamp  uint64
	IDLen      uint64
	PayloadLen uint64
	Len        int // header bytes consumed
}

// RecordCodec serializes and deserializes log records.
type RecordCodec struct{}

// NewRecordCodec creates a new record codec instance.
func NewRecordCodec() *RecordCodec {
	return &RecordCodec{}
}

// Encode serializes an ID and payload into a checksummed record stamped
// with the current time.
func (c *RecordCodec) Encode(id, payload []byte) ([]byte, error) {
	return NewRecord(id, payload).Marshal()
}

// decodeHeader reads the record header from the front of data. It fails
// with a codec error when data is too short to hold a complete header,
// which callers treat as a torn record.
func (c *RecordCodec) decodeHeader(data []byte) (recordHeader, error) {
	br := bytes.NewReader(data)
	var h recordHeader
	var err error
	if h.CRC, err = codec.DecodeFixed[uint32](br); err != nil {
		return h, err
	}
	if h.Timestamp, err = codec.DecodeFixed[uint64](br); err != nil {
		return h, err
	}
	if h.IDLen, err = codec.DecodeCompact[uint64](br); err != nil {
		return h, err
	}
	if h.PayloadLen, err = codec.DecodeCompact[uint64](br); err != nil {
		return h, err
	}
	h.Len = len(data) - br.Len()
	return h, nil
}

// Decode deserializes a complete record from data. Trailing bytes after
// the record are ignored; the ID and payload alias data.
func (c *RecordCodec) Decode(data []byte) (*Record, error) {
	h, err := c.decodeHeader(data)
	if err != nil {
		return nil, err
	}

	rest := uint64(len(data) - h.Len)
	if h.IDLen > rest || h.PayloadLen > rest-h.IDLen {
		return nil, fmt.Errorf("record body sizes %d+%d exceed %d available bytes",
			h.IDLen, h.PayloadLen, rest)
	}

	idEnd := h.Len + int(h.IDLen)
	return &Record{
		CRC:       h.CRC,
		Timestamp: h.Timestamp,
		ID:        data[h.Len:idEnd],
		Payload:   data[idEnd : idEnd+int(h.PayloadLen)],
	}, nil
}
