package api

//go:generate mockgen -destination=./mock_store.go -package=api . IRunStore

import (
	"context"

	"github.com/segmentio/ksuid"
	"github.com/ssargent/muninn/pkg/replay"
	"github.com/ssargent/muninn/pkg/store"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RecordRequest carries the replay state for a PUT /runs/{id}
type RecordRequest struct {
	Seed    uint64   `json:"seed"`
	Size    uint32   `json:"size"`
	Counter uint64   `json:"counter"`
	Path    []uint64 `json:"path,omitempty"`
}

// StateResponse is the decoded form of a stored run state
type StateResponse struct {
	ID      string   `json:"id"`
	Seed    uint64   `json:"seed"`
	Size    uint32   `json:"size"`
	Counter uint64   `json:"counter"`
	Path    []uint64 `json:"path,omitempty"`
}

// LinkRequest represents a lineage link creation/deletion request
type LinkRequest struct {
	ParentID string `json:"parent_id"`
	ChildID  string `json:"child_id"`
	Relation string `json:"relation"`
}

// PinResponse reports the snapshot ID a pinned run was stored under
type PinResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port   int
	Bind   string
	APIKey string
}

// IRunStore defines the interface for the run store operations
type IRunStore interface {
	Record(id string, state *replay.State) error
	Latest(id string) (*replay.State, error)
	Forget(id string) error
	IDs(prefix string) ([]string, error)

	// Lineage methods
	LinkDerived(parentID, childID, relation string) error
	Unlink(parentID, childID, relation string) error
	Links(query store.LinkQuery) ([]store.LinkResult, error)

	// Diagnostics
	Explain(context.Context, store.ExplainOptions) (*store.ExplainResult, error)
	Stats() *store.StoreStats
}

// Pinner stores durable copies of run payloads outside the log
type Pinner interface {
	Pin(payload []byte) (*ksuid.KSUID, error)
}
