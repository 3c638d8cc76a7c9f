package archive

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pierrec/lz4/v4"

	"github.com/ssargent/muninn/pkg/codec"
)

// Writer streams entries into a new archive file.
type Writer struct {
	file    *os.File
	zw      *lz4.Writer
	entries int
	closed  bool
}

// Create opens path for writing and emits the archive header. The file
// is truncated if it exists.
func Create(path string) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}

	var header bytes.Buffer
	header.Write(Magic[:])
	codec.EncodeFixed(&header, FormatVersion)
	if _, err := file.Write(header.Bytes()); err != nil {
		file.Close()
		return nil, fmt.Errorf("write archive header: %w", err)
	}

	return &Writer{
		file: file,
		zw:   lz4.NewWriter(file),
	}, nil
}

// Append adds one run to the archive.
func (w *Writer) Append(id string, payload []byte) error {
	if w.closed {
		return fmt.Errorf("archive writer is closed")
	}

	var body bytes.Buffer
	codec.EncodeCompact(&body, uint64(len(id)))
	body.WriteString(id)
	codec.EncodeCompact(&body, uint64(len(payload)))
	body.Write(payload)

	var frame bytes.Buffer
	codec.EncodeFixed(&frame, uint32(body.Len()))
	frame.Write(body.Bytes())

	if _, err := w.zw.Write(frame.Bytes()); err != nil {
		return fmt.Errorf("write archive entry: %w", err)
	}
	w.entries++
	return nil
}

// Entries returns how many entries have been appended.
func (w *Writer) Entries() int {
	return w.entries
}

// Close flushes the compressed stream and closes the file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.zw.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("flush archive: %w", err)
	}
	return w.file.Close()
}
