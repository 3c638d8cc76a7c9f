package store

import (
	"sync"

	"github.com/ssargent/muninn/pkg/bptree"
)

// RunIndex is the in-memory keydir: it maps run IDs to the location of
// their latest record in the log. IDs are kept ordered, so listings and
// prefix scans come out sorted without an extra pass.
type RunIndex struct {
	tree *bptree.Tree[IndexEntry]

	mu         sync.RWMutex
	tombstones int // tombstone records observed in the log
}

const indexOrder = 64

// NewRunIndex creates an empty run index.
func NewRunIndex() *RunIndex {
	return &RunIndex{
		tree: bptree.New[IndexEntry](indexOrder),
	}
}

// Put adds or updates the index entry for a run ID.
func (idx *RunIndex) Put(id []byte, entry IndexEntry) {
	idx.tree.Insert(id, entry)
}

// Get retrieves the index entry for a run ID.
func (idx *RunIndex) Get(id []byte) (IndexEntry, bool) {
	return idx.tree.Search(id)
}

// Delete removes a run ID from the index and reports whether it was
// present.
func (idx *RunIndex) Delete(id []byte) bool {
	return idx.tree.Delete(id)
}

// Size returns the number of live run IDs in the index.
func (idx *RunIndex) Size() int {
	return idx.tree.Len()
}

// LiveBytes returns the total on-disk size of all live records.
func (idx *RunIndex) LiveBytes() int64 {
	var total int64
	idx.tree.Ascend(func(_ []byte, entry IndexEntry) bool {
		total += int64(entry.Size)
		return true
	})
	return total
}

// Tombstones returns how many tombstone records the index has seen.
func (idx *RunIndex) Tombstones() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.tombstones
}

func (idx *RunIndex) addTombstone() {
	idx.mu.Lock()
	idx.tombstones++
	idx.mu.Unlock()
}

// Clear removes all entries from the index.
func (idx *RunIndex) Clear() {
	idx.mu.Lock()
	idx.tombstones = 0
	idx.mu.Unlock()
	idx.tree = bptree.New[IndexEntry](indexOrder)
}

// Keys returns all run IDs in sorted order.
func (idx *RunIndex) Keys() []string {
	return idx.KeysWithPrefix("")
}

// KeysWithPrefix returns all run IDs that start with the given prefix,
// in sorted order.
func (idx *RunIndex) KeysWithPrefix(prefix string) []string {
	var keys []string
	start, end := prefixRange([]byte(prefix))
	idx.tree.AscendRange(start, end, func(k []byte, _ IndexEntry) bool {
		keys = append(keys, string(k))
		return true
	})
	return keys
}

// ScanPrefix returns a channel of run IDs that match the prefix. IDs are
// collected up front so no tree lock is held while the consumer drains.
func (idx *RunIndex) ScanPrefix(prefix string) <-chan string {
	ch := make(chan string, 100)

	go func() {
		defer close(ch)
		for _, key := range idx.KeysWithPrefix(prefix) {
			ch <- key
		}
	}()

	return ch
}

// BuildFromLog scans a log file and populates the index. Tombstones
// remove their ID and are counted for diagnostics.
func (idx *RunIndex) BuildFromLog(reader *LogReader) error {
	idx.Clear()

	if err := reader.Seek(0); err != nil {
		return err
	}

	iterator := reader.Iterator()
	defer iterator.Close()

	for iterator.Next() {
		record := iterator.Record()
		if record == nil {
			continue
		}

		if record.Tombstone() {
			idx.tree.Delete(record.ID)
			idx.addTombstone()
			continue
		}

		size := uint32(record.Size())
		idx.tree.Insert(record.ID, IndexEntry{
			FileID:    0, // Single file for now
			Offset:    reader.Offset() - int64(size),
			Size:      size,
			Timestamp: record.Timestamp,
		})
	}

	return nil
}

// Stats returns index statistics.
func (idx *RunIndex) Stats() *IndexStats {
	return &IndexStats{
		TotalKeys:  idx.tree.Len(),
		Tombstones: idx.Tombstones(),
	}
}

// IndexStats holds statistics about the index.
type IndexStats struct {
	TotalKeys  int
	Tombstones int
}

// prefixRange converts a key prefix into [start, end) bounds for a range
// scan. An empty prefix or one that is all 0xff scans to the end.
func prefixRange(prefix []byte) (start, end []byte) {
	if len(prefix) == 0 {
		return nil, nil
	}
	end = append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return prefix, end[:i+1]
		}
	}
	return prefix, nil
}
