package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"

	"github.com/ssargent/muninn/pkg/codec"
)

// Reader streams entries out of an archive file.
type Reader struct {
	file *os.File
	zr   *lz4.Reader
}

// Open validates the archive header and positions the reader at the
// first entry.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	header := make([]byte, 8)
	if _, err := io.ReadFull(file, header); err != nil {
		file.Close()
		return nil, ErrBadMagic
	}
	if !bytes.Equal(header[:4], Magic[:]) {
		file.Close()
		return nil, ErrBadMagic
	}

	version, err := codec.DecodeFixed[uint32](bytes.NewReader(header[4:]))
	if err != nil || version != FormatVersion {
		file.Close()
		return nil, ErrUnsupportedFormatVersion
	}

	return &Reader{
		file: file,
		zr:   lz4.NewReader(file),
	}, nil
}

// Next returns the next entry, or io.EOF when the archive is exhausted.
// The entry's payload is freshly allocated and safe to retain.
func (r *Reader) Next() (*Entry, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r.zr, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: torn entry frame", ErrCorruptEntry)
	}

	entryLen, err := codec.DecodeFixed[uint32](bytes.NewReader(lenBuf[:]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	if entryLen == 0 || entryLen > maxEntrySize {
		return nil, fmt.Errorf("%w: entry length %d", ErrCorruptEntry, entryLen)
	}

	body := make([]byte, entryLen)
	if _, err := io.ReadFull(r.zr, body); err != nil {
		return nil, fmt.Errorf("%w: torn entry body", ErrCorruptEntry)
	}

	return decodeEntry(body)
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// decodeEntry parses one framed entry body from an in-memory cursor.
func decodeEntry(body []byte) (*Entry, error) {
	br := bytes.NewReader(body)

	idLen, err := codec.DecodeCompact[uint64](br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	if idLen > uint64(br.Len()) {
		return nil, fmt.Errorf("%w: id length %d exceeds entry", ErrCorruptEntry, idLen)
	}
	id := make([]byte, idLen)
	if _, err := io.ReadFull(br, id); err != nil {
		return nil, fmt.Errorf("%w: torn id", ErrCorruptEntry)
	}

	payloadLen, err := codec.DecodeCompact[uint64](br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	if payloadLen != uint64(br.Len()) {
		return nil, fmt.Errorf("%w: payload length %d, %d bytes remain", ErrCorruptEntry, payloadLen, br.Len())
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(br, payload); err != nil {
		return nil, fmt.Errorf("%w: torn payload", ErrCorruptEntry)
	}

	return &Entry{ID: string(id), Payload: payload}, nil
}
