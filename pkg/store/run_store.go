package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ssargent/muninn/pkg/logging"
	"github.com/ssargent/muninn/pkg/replay"
)

// RunStore persists replay states in an append-only log, keyed by run ID.
// The latest record for an ID wins; forgetting an ID appends a tombstone.
// An in-memory keydir rebuilt at open time serves lookups and listings.
type RunStore struct {
	config   RunStoreConfig
	logger   logging.Logger
	writer   *LogWriter
	reader   *LogReader
	index    *RunIndex
	dataFile string
	mutex    sync.Mutex
	isOpen   bool
	openedAt time.Time

	crcErrors int64 // torn records dropped during recovery
}

// RunEntry is one result from a Scan.
type RunEntry struct {
	ID    string
	State *replay.State
}

// LogFileName is the run log's file name inside the data directory.
const LogFileName = "runs.log"

// NewRunStore creates a new run store instance.
func NewRunStore(config RunStoreConfig) (*RunStore, error) {
	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = logging.NopLogger{}
	}

	return &RunStore{
		config:   config,
		logger:   logger,
		dataFile: filepath.Join(config.DataDir, LogFileName),
		index:    NewRunIndex(),
	}, nil
}

// Open validates the log, truncating any torn tail, then rebuilds the
// keydir and makes the store ready for use.
func (rs *RunStore) Open() (*RecoveryResult, error) {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	if rs.isOpen {
		return &RecoveryResult{}, nil
	}

	recovery, err := rs.validateLog(rs.dataFile)
	if err != nil {
		return nil, err
	}

	writer, err := NewLogWriter(LogWriterConfig{
		FilePath:      rs.dataFile,
		FsyncInterval: rs.config.FsyncInterval,
		BufferSize:    64 * 1024,
	})
	if err != nil {
		return nil, err
	}
	rs.writer = writer

	reader, err := NewLogReader(LogReaderConfig{FilePath: rs.dataFile})
	if err != nil {
		rs.writer.Close()
		return nil, err
	}
	rs.reader = reader

	if err := rs.index.BuildFromLog(rs.reader); err != nil {
		rs.reader.Close()
		rs.writer.Close()
		return nil, err
	}

	rs.isOpen = true
	rs.openedAt = time.Now()
	rs.crcErrors = recovery.RecordsTruncated

	if recovery.RecordsTruncated > 0 {
		rs.logger.Warn("truncated torn records from run log", logging.Fields{
			"path":      rs.dataFile,
			"truncated": recovery.RecordsTruncated,
			"validated": recovery.RecordsValidated,
		})
	}
	rs.logger.Info("run store opened", logging.Fields{
		"path": rs.dataFile,
		"runs": rs.index.Size(),
	})

	return recovery, nil
}

// Record persists state as the latest for the given run ID.
func (rs *RunStore) Record(id string, state *replay.State) error {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	if err := validateRunID(id); err != nil {
		return err
	}

	payload, err := state.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode state for run %q: %w", id, err)
	}
	return rs.putInternal([]byte(id), payload)
}

// RestoreEntry writes one archived record back into the store. Run
// payloads must decode as a state before they are accepted; lineage
// records are written back as-is.
func (rs *RunStore) RestoreEntry(id string, payload []byte) error {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	if strings.HasPrefix(id, lineagePrefix) {
		return rs.putInternal([]byte(id), payload)
	}

	if err := validateRunID(id); err != nil {
		return err
	}
	var state replay.State
	if err := state.UnmarshalBinary(payload); err != nil {
		return fmt.Errorf("restore state for run %q: %w", id, err)
	}
	return rs.putInternal([]byte(id), payload)
}

// Latest returns the most recently recorded state for a run ID.
func (rs *RunStore) Latest(id string) (*replay.State, error) {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	record, err := rs.getInternal([]byte(id))
	if err != nil {
		return nil, err
	}

	state := new(replay.State)
	if err := state.UnmarshalBinary(record.Payload); err != nil {
		return nil, fmt.Errorf("decode state for run %q: %w", id, err)
	}
	return state, nil
}

// Forget appends a tombstone for the run ID. Reading it afterwards
// reports ErrRunNotFound; the history stays in the log until compaction.
func (rs *RunStore) Forget(id string) error {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	if err := validateRunID(id); err != nil {
		return err
	}
	return rs.deleteInternal([]byte(id))
}

// IDs returns the run IDs matching prefix, in sorted order. Lineage
// bookkeeping records are never listed.
func (rs *RunStore) IDs(prefix string) ([]string, error) {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()
	return rs.listInternal(prefix)
}

// Scan streams the live runs matching prefix. The channel closes when
// the scan finishes or ctx is cancelled. Runs recorded or forgotten
// while the scan is running may or may not be seen.
func (rs *RunStore) Scan(ctx context.Context, prefix string) (<-chan RunEntry, error) {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	if !rs.isOpen {
		return nil, ErrStoreClosed
	}

	ch := make(chan RunEntry, 100)

	go func() {
		defer close(ch)

		for id := range rs.index.ScanPrefix(prefix) {
			if strings.HasPrefix(id, lineagePrefix) {
				continue
			}

			entry, exists := rs.index.Get([]byte(id))
			if !exists {
				continue // Forgotten while scanning
			}
			record, err := rs.reader.ReadAt(entry.Offset)
			if err != nil || record.Tombstone() {
				continue
			}

			state := new(replay.State)
			if err := state.UnmarshalBinary(record.Payload); err != nil {
				continue
			}

			select {
			case ch <- RunEntry{ID: id, State: state}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// Close shuts down the store.
func (rs *RunStore) Close() error {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	if !rs.isOpen {
		return nil
	}
	rs.isOpen = false

	rs.logger.Debug("run store closing", logging.Fields{"path": rs.dataFile})

	// Close writer first so buffered records reach disk
	if rs.writer != nil {
		if err := rs.writer.Close(); err != nil {
			rs.reader.Close()
			return err
		}
	}

	if rs.reader != nil {
		return rs.reader.Close()
	}
	return nil
}

// putInternal appends a record and indexes it. Callers hold the mutex.
func (rs *RunStore) putInternal(id, payload []byte) error {
	if !rs.isOpen {
		return ErrStoreClosed
	}
	if len(id) == 0 {
		return ErrInvalidID
	}

	record := NewRecord(id, payload)
	offset, size, err := rs.writer.AppendRecord(record)
	if err != nil {
		return err
	}

	rs.index.Put(id, IndexEntry{
		FileID:    0, // Single file for now
		Offset:    offset,
		Size:      size,
		Timestamp: record.Timestamp,
	})
	return nil
}

// getInternal reads the latest live record for an ID. Callers hold the
// mutex.
func (rs *RunStore) getInternal(id []byte) (*Record, error) {
	if !rs.isOpen {
		return nil, ErrStoreClosed
	}

	entry, exists := rs.index.Get(id)
	if !exists {
		return nil, ErrRunNotFound
	}

	record, err := rs.reader.ReadAt(entry.Offset)
	if err != nil {
		return nil, err
	}
	if record.Tombstone() {
		return nil, ErrRunNotFound
	}
	return record, nil
}

// deleteInternal appends a tombstone and drops the ID from the keydir.
// Callers hold the mutex.
func (rs *RunStore) deleteInternal(id []byte) error {
	if !rs.isOpen {
		return ErrStoreClosed
	}
	if len(id) == 0 {
		return ErrInvalidID
	}

	if _, _, err := rs.writer.Append(id, nil); err != nil {
		return err
	}
	rs.index.Delete(id)
	rs.index.addTombstone()
	return nil
}

// listInternal lists run IDs by prefix. Callers hold the mutex.
func (rs *RunStore) listInternal(prefix string) ([]string, error) {
	if !rs.isOpen {
		return nil, ErrStoreClosed
	}

	var ids []string
	for _, id := range rs.index.KeysWithPrefix(prefix) {
		if strings.HasPrefix(id, lineagePrefix) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// validateRunID rejects empty IDs and IDs inside the reserved lineage
// namespace.
func validateRunID(id string) error {
	if id == "" {
		return ErrInvalidID
	}
	if strings.HasPrefix(id, lineagePrefix) {
		return ErrInvalidID
	}
	return nil
}

// validateLog checks log integrity record by record and truncates the
// file after the last valid one if the tail is torn.
func (rs *RunStore) validateLog(filePath string) (*RecoveryResult, error) {
	startTime := time.Now()

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// Nothing to validate yet
			return &RecoveryResult{
				IndexRebuilt: true,
				RecoveryTime: time.Since(startTime),
			}, nil
		}
		return nil, err
	}
	fileSizeBefore := fileInfo.Size()

	reader, err := NewLogReader(LogReaderConfig{FilePath: filePath})
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var recordsValidated int64
	var lastValidOffset int64
	var corruptionFound bool

	for {
		_, err := reader.ReadNext()
		if err != nil {
			if err == io.EOF {
				break
			}
			corruptionFound = true
			break
		}
		recordsValidated++
		lastValidOffset = reader.Offset()
	}

	fileSizeAfter := fileSizeBefore
	var recordsTruncated int64

	if corruptionFound {
		file, err := os.OpenFile(filePath, os.O_RDWR, 0600)
		if err != nil {
			return nil, err
		}
		if err := file.Truncate(lastValidOffset); err != nil {
			file.Close()
			return nil, err
		}
		file.Close()

		fileSizeAfter = lastValidOffset
		recordsTruncated = 1 // One torn record at the tail
	}

	return &RecoveryResult{
		RecordsValidated: recordsValidated,
		RecordsTruncated: recordsTruncated,
		FileSizeBefore:   fileSizeBefore,
		FileSizeAfter:    fileSizeAfter,
		IndexRebuilt:     true,
		RecoveryTime:     time.Since(startTime),
	}, nil
}
