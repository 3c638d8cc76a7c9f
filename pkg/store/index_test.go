package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunIndex(t *testing.T) {
	idx := NewRunIndex()

	assert.NotNil(t, idx)
	assert.Equal(t, 0, idx.Size())
	assert.Equal(t, 0, idx.Tombstones())
}

func TestRunIndex_PutAndGet(t *testing.T) {
	idx := NewRunIndex()

	id := []byte("suite/run-1")
	entry := IndexEntry{
		FileID:    1,
		Offset:    100,
		Size:      50,
		Timestamp: 1234567890,
	}

	idx.Put(id, entry)

	retrieved, exists := idx.Get(id)
	assert.True(t, exists)
	assert.Equal(t, entry, retrieved)
}

func TestRunIndex_Get_NonExistent(t *testing.T) {
	idx := NewRunIndex()

	entry, exists := idx.Get([]byte("never-recorded"))

	assert.False(t, exists)
	assert.Equal(t, IndexEntry{}, entry)
}

func TestRunIndex_Put_Overwrite(t *testing.T) {
	idx := NewRunIndex()

	id := []byte("suite/run-1")

	idx.Put(id, IndexEntry{Offset: 100, Size: 50, Timestamp: 1})
	idx.Put(id, IndexEntry{Offset: 200, Size: 75, Timestamp: 2})

	// The newer location wins and the count stays at one.
	retrieved, exists := idx.Get(id)
	assert.True(t, exists)
	assert.Equal(t, int64(200), retrieved.Offset)
	assert.Equal(t, uint32(75), retrieved.Size)
	assert.Equal(t, uint64(2), retrieved.Timestamp)
	assert.Equal(t, 1, idx.Size())
}

func TestRunIndex_Delete(t *testing.T) {
	idx := NewRunIndex()

	id := []byte("suite/run-1")
	idx.Put(id, IndexEntry{Offset: 100})

	assert.True(t, idx.Delete(id))

	_, exists := idx.Get(id)
	assert.False(t, exists)

	// Deleting again reports absence.
	assert.False(t, idx.Delete(id))
}

func TestRunIndex_Size(t *testing.T) {
	idx := NewRunIndex()

	assert.Equal(t, 0, idx.Size())

	idx.Put([]byte("run-1"), IndexEntry{})
	idx.Put([]byte("run-2"), IndexEntry{})
	idx.Put([]byte("run-3"), IndexEntry{})
	assert.Equal(t, 3, idx.Size())

	idx.Delete([]byte("run-2"))
	assert.Equal(t, 2, idx.Size())

	idx.Clear()
	assert.Equal(t, 0, idx.Size())
}

func TestRunIndex_Keys_Sorted(t *testing.T) {
	idx := NewRunIndex()

	// Insert out of order; listings come back sorted.
	ids := []string{"zeta/run", "alpha/run", "mid/run", "alpha/other"}
	for _, id := range ids {
		idx.Put([]byte(id), IndexEntry{})
	}

	keys := idx.Keys()
	assert.Len(t, keys, 4)
	assert.True(t, sort.StringsAreSorted(keys), "keys not sorted: %v", keys)
	assert.Equal(t, []string{"alpha/other", "alpha/run", "mid/run", "zeta/run"}, keys)
}

func TestRunIndex_KeysWithPrefix(t *testing.T) {
	idx := NewRunIndex()

	ids := []string{
		"checkout/run-1",
		"checkout/run-2",
		"inventory/run-1",
		"inventory/run-2",
		"payments/run-1",
	}
	for _, id := range ids {
		idx.Put([]byte(id), IndexEntry{})
	}

	checkoutIDs := idx.KeysWithPrefix("checkout/")
	assert.Equal(t, []string{"checkout/run-1", "checkout/run-2"}, checkoutIDs)

	inventoryIDs := idx.KeysWithPrefix("inventory/")
	assert.Equal(t, []string{"inventory/run-1", "inventory/run-2"}, inventoryIDs)

	paymentIDs := idx.KeysWithPrefix("payments/")
	assert.Equal(t, []string{"payments/run-1"}, paymentIDs)

	assert.Empty(t, idx.KeysWithPrefix("search/"))

	// A prefix is not a whole-segment match: "check" matches too.
	assert.Len(t, idx.KeysWithPrefix("check"), 2)
}

func TestRunIndex_ScanPrefix(t *testing.T) {
	idx := NewRunIndex()

	ids := []string{
		"checkout/run-1",
		"checkout/run-2",
		"checkout/run-3",
		"inventory/run-1",
	}
	for _, id := range ids {
		idx.Put([]byte(id), IndexEntry{})
	}

	ch := idx.ScanPrefix("checkout/")
	var got []string
	for id := range ch {
		got = append(got, id)
	}

	assert.Equal(t, []string{"checkout/run-1", "checkout/run-2", "checkout/run-3"}, got)
}

func TestRunIndex_ScanPrefix_EmptyResult(t *testing.T) {
	idx := NewRunIndex()

	idx.Put([]byte("checkout/run-1"), IndexEntry{})

	ch := idx.ScanPrefix("search/")
	var got []string
	for id := range ch {
		got = append(got, id)
	}

	assert.Empty(t, got)
}

func TestRunIndex_Clear(t *testing.T) {
	idx := NewRunIndex()

	idx.Put([]byte("run-1"), IndexEntry{})
	idx.Put([]byte("run-2"), IndexEntry{})
	idx.addTombstone()
	assert.Equal(t, 2, idx.Size())

	idx.Clear()
	assert.Equal(t, 0, idx.Size())
	assert.Equal(t, 0, idx.Tombstones())

	_, exists := idx.Get([]byte("run-1"))
	assert.False(t, exists)
}

func TestRunIndex_LiveBytes(t *testing.T) {
	idx := NewRunIndex()

	assert.Equal(t, int64(0), idx.LiveBytes())

	idx.Put([]byte("run-1"), IndexEntry{Size: 40})
	idx.Put([]byte("run-2"), IndexEntry{Size: 60})
	assert.Equal(t, int64(100), idx.LiveBytes())

	// Overwrite replaces, not accumulates.
	idx.Put([]byte("run-1"), IndexEntry{Size: 45})
	assert.Equal(t, int64(105), idx.LiveBytes())

	idx.Delete([]byte("run-2"))
	assert.Equal(t, int64(45), idx.LiveBytes())
}

func TestRunIndex_Stats(t *testing.T) {
	idx := NewRunIndex()

	stats := idx.Stats()
	assert.Equal(t, 0, stats.TotalKeys)
	assert.Equal(t, 0, stats.Tombstones)

	idx.Put([]byte("run-1"), IndexEntry{})
	idx.Put([]byte("run-2"), IndexEntry{})
	idx.addTombstone()

	stats = idx.Stats()
	assert.Equal(t, 2, stats.TotalKeys)
	assert.Equal(t, 1, stats.Tombstones)
}

func TestRunIndex_BuildFromLog(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "muninn_index")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	logPath := filepath.Join(tmpDir, "runs.log")
	writer, err := NewLogWriter(LogWriterConfig{FilePath: logPath})
	require.NoError(t, err)

	// run-1 is written twice, run-2 once, run-3 written then tombstoned.
	_, _, err = writer.Append([]byte("run-1"), []byte("old"))
	require.NoError(t, err)
	_, _, err = writer.Append([]byte("run-2"), []byte("value2"))
	require.NoError(t, err)
	_, _, err = writer.Append([]byte("run-3"), []byte("value3"))
	require.NoError(t, err)
	_, _, err = writer.Append([]byte("run-1"), []byte("newer"))
	require.NoError(t, err)
	_, _, err = writer.Append([]byte("run-3"), nil)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader, err := NewLogReader(LogReaderConfig{FilePath: logPath})
	require.NoError(t, err)
	defer reader.Close()

	idx := NewRunIndex()
	require.NoError(t, idx.BuildFromLog(reader))

	assert.Equal(t, 2, idx.Size())
	assert.Equal(t, 1, idx.Tombstones())
	assert.Equal(t, []string{"run-1", "run-2"}, idx.Keys())

	// run-1's entry points at the newer record.
	entry, exists := idx.Get([]byte("run-1"))
	require.True(t, exists)
	record, err := reader.ReadAt(entry.Offset)
	require.NoError(t, err)
	assert.Equal(t, []byte("newer"), record.Payload)
	assert.Equal(t, entry.Timestamp, record.Timestamp)
}

func TestPrefixRange(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		wantStart []byte
		wantEnd   []byte
	}{
		{"empty prefix scans everything", "", nil, nil},
		{"simple prefix increments last byte", "abc", []byte("abc"), []byte("abd")},
		{"trailing 0xff carries to previous byte", "ab\xff", []byte("ab\xff"), []byte("ac")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := prefixRange([]byte(tt.prefix))
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}

	// All-0xff prefix has no upper bound.
	start, end := prefixRange([]byte{0xff, 0xff})
	assert.Equal(t, []byte{0xff, 0xff}, start)
	assert.Nil(t, end)
}

func TestRunIndex_ConcurrentAccess(t *testing.T) {
	idx := NewRunIndex()

	done := make(chan bool, 3)

	// Writer goroutine
	go func() {
		for i := 0; i < 100; i++ {
			id := []byte(fmt.Sprintf("run_%d", i))
			idx.Put(id, IndexEntry{
				Offset:    int64(i * 100),
				Size:      50,
				Timestamp: uint64(i),
			})
		}
		done <- true
	}()

	// Reader goroutine 1
	go func() {
		for i := 0; i < 50; i++ {
			id := []byte(fmt.Sprintf("run_%d", i%100))
			idx.Get(id)
		}
		done <- true
	}()

	// Reader goroutine 2
	go func() {
		for i := 0; i < 50; i++ {
			idx.Size()
			idx.Keys()
		}
		done <- true
	}()

	<-done
	<-done
	<-done
}

func BenchmarkRunIndex_Put(b *testing.B) {
	idx := NewRunIndex()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := []byte(fmt.Sprintf("bench_run_%d", i))
		idx.Put(id, IndexEntry{
			Offset:    int64(i * 100),
			Size:      50,
			Timestamp: uint64(i),
		})
	}
}

func BenchmarkRunIndex_Get(b *testing.B) {
	idx := NewRunIndex()

	for i := 0; i < 10000; i++ {
		id := []byte(fmt.Sprintf("bench_run_%d", i))
		idx.Put(id, IndexEntry{
			Offset:    int64(i * 100),
			Size:      50,
			Timestamp: uint64(i),
		})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := []byte(fmt.Sprintf("bench_run_%d", i%10000))
		idx.Get(id)
	}
}

func BenchmarkRunIndex_KeysWithPrefix(b *testing.B) {
	idx := NewRunIndex()

	for i := 0; i < 10000; i++ {
		id := []byte(fmt.Sprintf("suite:%d", i))
		idx.Put(id, IndexEntry{
			Offset:    int64(i * 100),
			Size:      50,
			Timestamp: uint64(i),
		})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.KeysWithPrefix("suite:")
	}
}
