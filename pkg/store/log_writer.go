package store

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogWriter handles append-only writes to the active run log.
type LogWriter struct {
	file       *os.File
	writer     *bufio.Writer
	fsyncTimer *time.Timer
	config     LogWriterConfig
	mutex      sync.Mutex
	offset     int64 // Current write offset
}

// NewLogWriter creates a new log writer with the given configuration.
func NewLogWriter(config LogWriterConfig) (*LogWriter, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0750); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	// Seek to end for append behavior
	if _, err := file.Seek(0, 2); err != nil {
		file.Close()
		return nil, err
	}

	// Current file size seeds offset tracking
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	writer := &LogWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, config.BufferSize),
		config: config,
		offset: stat.Size(),
	}

	if config.FsyncInterval > 0 {
		writer.fsyncTimer = time.AfterFunc(config.FsyncInterval, func() {
			writer.mutex.Lock()
			defer writer.mutex.Unlock()
			writer.sync() // Ignore error in timer callback
		})
	}

	return writer, nil
}

// Append writes a record for the given run ID and returns the offset the
// record starts at together with its encoded size.
func (w *LogWriter) Append(id, payload []byte) (int64, uint32, error) {
	return w.AppendRecord(NewRecord(id, payload))
}

// AppendRecord writes an already-built record. Callers that index what
// they wrote use this so the indexed timestamp matches the log exactly.
func (w *LogWriter) AppendRecord(record *Record) (int64, uint32, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	data, err := record.Marshal()
	if err != nil {
		return 0, 0, err
	}

	n, err := w.writer.Write(data)
	if err != nil {
		return 0, 0, err
	}

	recordOffset := w.offset
	w.offset += int64(n)

	// Sync immediately if no fsync interval configured
	if w.config.FsyncInterval == 0 {
		if err := w.sync(); err != nil {
			return 0, 0, err
		}
	} else if w.fsyncTimer != nil {
		w.fsyncTimer.Reset(w.config.FsyncInterval)
	}

	return recordOffset, uint32(n), nil
}

// Sync forces a fsync to disk.
func (w *LogWriter) Sync() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.sync()
}

func (w *LogWriter) sync() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close closes the log writer and ensures all data is synced.
func (w *LogWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.fsyncTimer != nil {
		w.fsyncTimer.Stop()
	}

	if err := w.sync(); err != nil {
		w.file.Close()
		return err
	}

	return w.file.Close()
}

// Size returns the current size of the log file.
func (w *LogWriter) Size() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.offset
}

// Path returns the file path.
func (w *LogWriter) Path() string {
	return w.config.FilePath
}
