package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/ssargent/muninn/pkg/store"
)

// Pack freezes the live contents of a store's data directory into an
// archive file. The log is replayed so only the latest record per run
// survives and tombstoned runs are dropped. Returns the entry count.
func Pack(dataDir, archivePath string) (int, error) {
	logPath := filepath.Join(dataDir, store.LogFileName)
	if _, err := os.Stat(logPath); err != nil {
		return 0, fmt.Errorf("stat run log: %w", err)
	}

	reader, err := store.NewLogReader(store.LogReaderConfig{FilePath: logPath})
	if err != nil {
		return 0, fmt.Errorf("open run log: %w", err)
	}
	defer reader.Close()

	// Replay the log: the latest record per ID wins, tombstones delete.
	live := make(map[string][]byte)
	iterator := reader.Iterator()
	for iterator.Next() {
		record := iterator.Record()
		if record == nil {
			continue
		}
		if record.Tombstone() {
			delete(live, string(record.ID))
			continue
		}
		live[string(record.ID)] = append([]byte(nil), record.Payload...)
	}
	if err := iterator.Close(); err != nil {
		return 0, fmt.Errorf("scan run log: %w", err)
	}

	ids := make([]string, 0, len(live))
	for id := range live {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	writer, err := Create(archivePath)
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		if err := writer.Append(id, live[id]); err != nil {
			writer.Close()
			os.Remove(archivePath)
			return 0, err
		}
	}

	if err := writer.Close(); err != nil {
		os.Remove(archivePath)
		return 0, err
	}
	return len(ids), nil
}

// Unpack streams every entry of an archive to fn, stopping at the first
// error fn returns.
func Unpack(archivePath string, fn func(id string, payload []byte) error) error {
	reader, err := Open(archivePath)
	if err != nil {
		return err
	}
	defer reader.Close()

	for {
		entry, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(entry.ID, entry.Payload); err != nil {
			return err
		}
	}
}
