package store

import (
	"time"

	"github.com/ssargent/muninn/pkg/logging"
)

// IndexEntry locates a record inside the run log.
type IndexEntry struct {
	FileID    uint32 // ID of the data file
	Offset    int64  // Byte offset within the file
	Size      uint32 // Size of the record in bytes
	Timestamp uint64 // Record timestamp
}

// LogWriterConfig holds configuration for the log writer.
type LogWriterConfig struct {
	FilePath      string        // Path to the active log file
	FsyncInterval time.Duration // How often to fsync (0 = every write)
	BufferSize    int           // Write buffer size
}

// LogReaderConfig holds configuration for the log reader.
type LogReaderConfig struct {
	FilePath    string // Path to the log file
	StartOffset int64  // Offset to start reading from
}

// RunStoreConfig holds configuration for the run store.
type RunStoreConfig struct {
	DataDir       string         // Directory for the run log
	FsyncInterval time.Duration  // Fsync interval for durability
	Logger        logging.Logger // nil means no logging
}

// RecoveryResult reports what Open found while validating the log.
type RecoveryResult struct {
	RecordsValidated int64         // Records that passed checksum validation
	RecordsTruncated int64         // Torn records dropped from the tail
	FileSizeBefore   int64         // Log size before validation
	FileSizeAfter    int64         // Log size after any truncation
	IndexRebuilt     bool          // Whether the keydir was rebuilt
	RecoveryTime     time.Duration // Wall time spent validating
}

// RecordIterator provides streaming access to log records.
type RecordIterator interface {
	Next() bool
	Record() *Record
	Close() error
}

// Errors
var (
	ErrRunNotFound = &StoreError{"run not found"}
	ErrInvalidID   = &StoreError{"invalid run id"}
	ErrCorruption  = &StoreError{"log corruption detected"}
	ErrStoreClosed = &StoreError{"store is not open"}
)

// StoreError represents a run store error.
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}
