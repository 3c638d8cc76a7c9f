package store

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/ssargent/muninn/pkg/replay"
)

// StoreStats holds basic statistics about the store.
type StoreStats struct {
	Runs       int   // Live run IDs
	Tombstones int   // Tombstone records observed in the log
	LogSize    int64 // Bytes in the active log
}

// Stats returns store statistics.
func (rs *RunStore) Stats() *StoreStats {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	if !rs.isOpen {
		return &StoreStats{}
	}

	return &StoreStats{
		Runs:       rs.index.Size(),
		Tombstones: rs.index.Tombstones(),
		LogSize:    rs.writer.Size(),
	}
}

// ExplainOptions configures the explain operation.
type ExplainOptions struct {
	WithSamples int    // Include up to this many sample runs
	WithMetrics bool   // Include derived metrics
	Suite       string // Warn if this suite has no runs
}

// ExplainResult holds the results of an explain operation.
type ExplainResult struct {
	Global struct {
		LiveRuns      int           `json:"live_runs"`
		Tombstones    int           `json:"tombstones"`
		LogSizeMB     float64       `json:"log_size_mb"`
		LiveSizeMB    float64       `json:"live_size_mb"`
		IndexMemoryMB float64       `json:"index_memory_mb"`
		Uptime        time.Duration `json:"uptime"`
	} `json:"global"`

	Segments []Segment `json:"segments"`

	Suites map[string]SuiteStats `json:"suites"`

	Diagnostics struct {
		CRCErrors int      `json:"crc_errors"`
		Samples   []Sample `json:"samples,omitempty"`
		Metrics   struct {
			AvgRecordBytes float64 `json:"avg_record_bytes,omitempty"`
		} `json:"metrics,omitempty"`
	} `json:"diagnostics"`

	Warnings []string `json:"warnings,omitempty"`
}

// Segment describes one log file. There is a single active segment until
// compaction lands.
type Segment struct {
	ID      string  `json:"id"`
	Runs    int     `json:"runs"`
	DeadPct float64 `json:"dead_pct"`
	SizeMB  float64 `json:"size_mb"`
}

// Sample is a peek at one stored run.
type Sample struct {
	ID      string    `json:"id"`
	Seed    uint64    `json:"seed"`
	Counter uint64    `json:"counter"`
	Ts      time.Time `json:"timestamp"`
}

// SuiteStats aggregates runs by suite.
type SuiteStats struct {
	Runs int `json:"runs"`
}

// Explain gathers diagnostic information about the store.
func (rs *RunStore) Explain(ctx context.Context, opts ExplainOptions) (*ExplainResult, error) {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	if !rs.isOpen {
		return nil, ErrStoreClosed
	}

	live := rs.index.Size()
	tombstones := rs.index.Tombstones()
	logSize := rs.writer.Size()
	liveBytes := rs.index.LiveBytes()

	res := &ExplainResult{}
	res.Global.LiveRuns = live
	res.Global.Tombstones = tombstones
	res.Global.LogSizeMB = float64(logSize) / (1024 * 1024)
	res.Global.LiveSizeMB = float64(liveBytes) / (1024 * 1024)
	res.Global.Uptime = time.Since(rs.openedAt)

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	res.Global.IndexMemoryMB = float64(m.Alloc) / (1024 * 1024)

	// Dead share counts tombstones only; superseded versions are not
	// tracked until compaction needs them.
	deadPct := 0.0
	if live+tombstones > 0 {
		deadPct = float64(tombstones) / float64(live+tombstones) * 100
	}
	res.Segments = []Segment{
		{ID: "active", Runs: live, DeadPct: deadPct, SizeMB: res.Global.LogSizeMB},
	}

	res.Suites = make(map[string]SuiteStats)
	ids, err := rs.listInternal("")
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		suite := suiteOf(id)
		s := res.Suites[suite]
		s.Runs++
		res.Suites[suite] = s
	}

	res.Diagnostics.CRCErrors = int(rs.crcErrors)

	if opts.WithSamples > 0 {
		for _, id := range ids {
			if len(res.Diagnostics.Samples) >= opts.WithSamples {
				break
			}
			record, err := rs.getInternal([]byte(id))
			if err != nil {
				continue
			}
			sample, err := sampleFromRecord(id, record)
			if err != nil {
				continue
			}
			res.Diagnostics.Samples = append(res.Diagnostics.Samples, sample)
		}
	}

	if opts.Suite != "" {
		if s, ok := res.Suites[opts.Suite]; !ok || s.Runs == 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("no runs recorded for suite: %s", opts.Suite))
		}
	}

	if opts.WithMetrics && live > 0 {
		res.Diagnostics.Metrics.AvgRecordBytes = float64(liveBytes) / float64(live)
	}

	return res, nil
}

// sampleFromRecord decodes just enough of a stored state for a sample.
func sampleFromRecord(id string, record *Record) (Sample, error) {
	state := new(replay.State)
	if err := state.UnmarshalBinary(record.Payload); err != nil {
		return Sample{}, err
	}
	return Sample{
		ID:      id,
		Seed:    state.Seed,
		Counter: state.Counter,
		Ts:      time.Unix(0, int64(record.Timestamp)),
	}, nil
}

// suiteOf extracts the suite name from a run ID, the segment before the
// first slash. IDs without a slash group under the empty suite.
func suiteOf(id string) string {
	if i := strings.IndexByte(id, '/'); i >= 0 {
		return id[:i]
	}
	return ""
}
