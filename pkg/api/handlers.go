package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ssargent/muninn/pkg/index"
	"github.com/ssargent/muninn/pkg/query"
	"github.com/ssargent/muninn/pkg/replay"
	"github.com/ssargent/muninn/pkg/store"
)

// Server holds the API server state
type Server struct {
	store   IRunStore
	states  *index.StateIndex
	engine  *query.Engine
	pins    Pinner
	config  ServerConfig
	metrics *Metrics
}

// NewServer creates a new API server. The state index is kept in step
// with the store by the record and forget handlers; pins may be nil,
// which disables the pin endpoint.
func NewServer(runs IRunStore, states *index.StateIndex, pins Pinner, config ServerConfig, metrics *Metrics) *Server {
	return &Server{
		store:   runs,
		states:  states,
		engine:  query.NewEngine(states, runs),
		pins:    pins,
		config:  config,
		metrics: metrics,
	}
}

// runID extracts and unescapes the {id} URL parameter. Run IDs contain
// slashes (suite/name), so clients send them path-escaped.
func runID(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		return "", fmt.Errorf("run id is required")
	}
	id, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("invalid run id encoding")
	}
	return id, nil
}

// handleHealth reports server liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleRecord stores the request body as the latest state for a run and
// refreshes its field index entries.
func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, err := runID(r)
	if err != nil {
		s.metrics.RecordStoreOperation("record", false, time.Since(start))
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.RecordStoreOperation("record", false, time.Since(start))
		sendError(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}

	state := &replay.State{
		Seed:    req.Seed,
		Size:    req.Size,
		Counter: req.Counter,
		Path:    req.Path,
	}

	// Fetch the value being replaced before it is overwritten, so its
	// index entries can be dropped afterwards.
	prev, prevErr := s.store.Latest(id)

	if err := s.store.Record(id, state); err != nil {
		s.metrics.RecordStoreOperation("record", false, time.Since(start))
		if err == store.ErrInvalidID {
			sendError(w, "Invalid run id", http.StatusBadRequest)
		} else {
			sendError(w, fmt.Sprintf("Failed to record run: %v", err), http.StatusInternalServerError)
		}
		return
	}

	if prevErr == nil {
		s.states.Remove(id, prev)
	}
	s.states.Insert(id, state)

	s.metrics.RecordStoreOperation("record", true, time.Since(start))
	sendSuccess(w, map[string]string{"message": "Run state recorded successfully"})
}

// handleShow returns the raw binary encoding of a run's latest state.
func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, err := runID(r)
	if err != nil {
		s.metrics.RecordStoreOperation("show", false, time.Since(start))
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	state, err := s.store.Latest(id)
	if err != nil {
		s.metrics.RecordStoreOperation("show", false, time.Since(start))
		if err == store.ErrRunNotFound {
			sendError(w, "Run not found", http.StatusNotFound)
		} else {
			sendError(w, fmt.Sprintf("Failed to load run: %v", err), http.StatusInternalServerError)
		}
		return
	}

	payload, err := state.MarshalBinary()
	if err != nil {
		s.metrics.RecordStoreOperation("show", false, time.Since(start))
		sendError(w, fmt.Sprintf("Failed to encode state: %v", err), http.StatusInternalServerError)
		return
	}

	s.metrics.RecordStoreOperation("show", true, time.Since(start))
	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := w.Write(payload); err != nil {
		return
	}
}

// handleState returns a run's latest state decoded to JSON.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, err := runID(r)
	if err != nil {
		s.metrics.RecordStoreOperation("state", false, time.Since(start))
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	state, err := s.store.Latest(id)
	if err != nil {
		s.metrics.RecordStoreOperation("state", false, time.Since(start))
		if err == store.ErrRunNotFound {
			sendError(w, "Run not found", http.StatusNotFound)
		} else {
			sendError(w, fmt.Sprintf("Failed to load run: %v", err), http.StatusInternalServerError)
		}
		return
	}

	s.metrics.RecordStoreOperation("state", true, time.Since(start))
	sendSuccess(w, StateResponse{
		ID:      id,
		Seed:    state.Seed,
		Size:    state.Size,
		Counter: state.Counter,
		Path:    state.Path,
	})
}

// handleForget tombstones a run and drops its field index entries.
// Forgetting an unknown run succeeds, matching the store.
func (s *Server) handleForget(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, err := runID(r)
	if err != nil {
		s.metrics.RecordStoreOperation("forget", false, time.Since(start))
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	prev, prevErr := s.store.Latest(id)

	if err := s.store.Forget(id); err != nil {
		s.metrics.RecordStoreOperation("forget", false, time.Since(start))
		if err == store.ErrInvalidID {
			sendError(w, "Invalid run id", http.StatusBadRequest)
		} else {
			sendError(w, fmt.Sprintf("Failed to forget run: %v", err), http.StatusInternalServerError)
		}
		return
	}

	if prevErr == nil {
		s.states.Remove(id, prev)
	}

	s.metrics.RecordStoreOperation("forget", true, time.Since(start))
	sendSuccess(w, map[string]string{"message": "Run forgotten successfully"})
}

// handleListRuns lists run IDs, optionally filtered by prefix and a
// where expression over indexed fields (seed=42, size>=10, ...).
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	whereExpr := r.URL.Query().Get("where")

	if whereExpr == "" {
		ids, err := s.store.IDs(prefix)
		if err != nil {
			sendError(w, fmt.Sprintf("Failed to list runs: %v", err), http.StatusInternalServerError)
			return
		}
		sendSuccess(w, map[string]interface{}{"runs": ids})
		return
	}

	fq, err := query.ParseWhere(whereExpr)
	if err != nil {
		sendError(w, fmt.Sprintf("Invalid where expression: %v", err), http.StatusBadRequest)
		return
	}

	it, err := s.engine.Run(r.Context(), fq)
	if err != nil {
		sendError(w, fmt.Sprintf("Query failed: %v", err), http.StatusInternalServerError)
		return
	}
	defer it.Close()

	ids := []string{}
	for it.Next() {
		res := it.Result()
		if prefix != "" && !strings.HasPrefix(res.ID, prefix) {
			continue
		}
		ids = append(ids, res.ID)
	}
	if err := it.Err(); err != nil {
		sendError(w, fmt.Sprintf("Query failed: %v", err), http.StatusInternalServerError)
		return
	}

	sendSuccess(w, map[string]interface{}{"runs": ids})
}

// handlePin copies a run's latest state into the snapshot store, where
// it survives log rotation and archival.
func (s *Server) handlePin(w http.ResponseWriter, r *http.Request) {
	if s.pins == nil {
		sendError(w, "Snapshot store is not configured", http.StatusNotImplemented)
		return
	}

	id, err := runID(r)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	state, err := s.store.Latest(id)
	if err != nil {
		if err == store.ErrRunNotFound {
			sendError(w, "Run not found", http.StatusNotFound)
		} else {
			sendError(w, fmt.Sprintf("Failed to load run: %v", err), http.StatusInternalServerError)
		}
		return
	}

	payload, err := state.MarshalBinary()
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to encode state: %v", err), http.StatusInternalServerError)
		return
	}

	snapID, err := s.pins.Pin(payload)
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to pin run: %v", err), http.StatusInternalServerError)
		return
	}

	sendSuccess(w, PinResponse{SnapshotID: snapID.String()})
}

// handleCreateLink records a derivation link between two runs.
func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.RecordLineageOperation("create", false)
		sendError(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}

	if req.ParentID == "" || req.ChildID == "" || req.Relation == "" {
		s.metrics.RecordLineageOperation("create", false)
		sendError(w, "parent_id, child_id, and relation are required", http.StatusBadRequest)
		return
	}

	if err := s.store.LinkDerived(req.ParentID, req.ChildID, req.Relation); err != nil {
		s.metrics.RecordLineageOperation("create", false)
		sendError(w, fmt.Sprintf("Failed to create link: %v", err), http.StatusInternalServerError)
		return
	}

	s.metrics.RecordLineageOperation("create", true)
	sendSuccess(w, map[string]string{"message": "Link created successfully"})
}

// handleDeleteLink removes a derivation link.
func (s *Server) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.RecordLineageOperation("delete", false)
		sendError(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}

	if req.ParentID == "" || req.ChildID == "" || req.Relation == "" {
		s.metrics.RecordLineageOperation("delete", false)
		sendError(w, "parent_id, child_id, and relation are required", http.StatusBadRequest)
		return
	}

	if err := s.store.Unlink(req.ParentID, req.ChildID, req.Relation); err != nil {
		s.metrics.RecordLineageOperation("delete", false)
		sendError(w, fmt.Sprintf("Failed to delete link: %v", err), http.StatusInternalServerError)
		return
	}

	s.metrics.RecordLineageOperation("delete", true)
	sendSuccess(w, map[string]string{"message": "Link deleted successfully"})
}

// handleGetLinks returns lineage links for a run with optional filters.
func (s *Server) handleGetLinks(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	direction := r.URL.Query().Get("direction")
	relation := r.URL.Query().Get("relation")
	limitStr := r.URL.Query().Get("limit")

	if id == "" {
		sendError(w, "id parameter is required", http.StatusBadRequest)
		return
	}

	if direction == "" {
		direction = "both"
	}

	limit := 100
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	q := store.LinkQuery{
		ID:        id,
		Relation:  relation,
		Direction: direction,
		Limit:     limit,
	}

	results, err := s.store.Links(q)
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to get links: %v", err), http.StatusInternalServerError)
		return
	}

	sendSuccess(w, map[string]interface{}{"links": results})
}

// handleExplain returns a diagnostic report on the store.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	opts := store.ExplainOptions{
		WithSamples: 10,
		WithMetrics: true,
	}

	if suite := r.URL.Query().Get("suite"); suite != "" {
		opts.Suite = suite
	}

	result, err := s.store.Explain(r.Context(), opts)
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to get explain data: %v", err), http.StatusInternalServerError)
		return
	}

	sendSuccess(w, result)
}

// handleStats returns run counts and log size.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.store.Stats()
	// Update metrics with current stats
	s.metrics.UpdateStoreStats(stats.Runs, stats.LogSize)
	sendSuccess(w, stats)
}

// startMetricsUpdater periodically refreshes store gauges
func (s *Server) startMetricsUpdater() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		stats := s.store.Stats()
		s.metrics.UpdateStoreStats(stats.Runs, stats.LogSize)
	}
}
