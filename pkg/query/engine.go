package query

import (
	"context"
	"fmt"

	"github.com/ssargent/muninn/pkg/index"
	"github.com/ssargent/muninn/pkg/replay"
	"github.com/ssargent/muninn/pkg/store"
)

// StateSource loads the latest state for a run ID. *store.RunStore
// satisfies it; callers may substitute anything with the same lookup.
type StateSource interface {
	Latest(id string) (*replay.State, error)
}

// Engine executes field queries by consulting the state index and then
// loading the matching runs from the store.
type Engine struct {
	index  *index.StateIndex
	source StateSource
}

// NewEngine creates a query engine over an index and a state source.
func NewEngine(si *index.StateIndex, src StateSource) *Engine {
	return &Engine{
		index:  si,
		source: src,
	}
}

// Run executes a single field query. Matches stream out in field-value
// order; runs forgotten since they were indexed are skipped.
func (e *Engine) Run(ctx context.Context, query FieldQuery) (Iterator, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	ids, err := e.matchIDs(query)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}

	return &runIterator{ctx: ctx, source: e.source, ids: ids}, nil
}

// Between executes a range query over one field, inclusive both ends.
func (e *Engine) Between(ctx context.Context, field string, lo, hi uint64) (Iterator, error) {
	ids, err := e.index.Between(field, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}

	return &runIterator{ctx: ctx, source: e.source, ids: ids}, nil
}

func (e *Engine) matchIDs(query FieldQuery) ([]string, error) {
	switch query.Op {
	case "=":
		return e.index.EqualTo(query.Field, query.Value)
	case ">":
		if query.Value == ^uint64(0) {
			return nil, nil
		}
		return e.index.AtLeast(query.Field, query.Value+1)
	case ">=":
		return e.index.AtLeast(query.Field, query.Value)
	case "<":
		if query.Value == 0 {
			return nil, nil
		}
		return e.index.AtMost(query.Field, query.Value-1)
	case "<=":
		return e.index.AtMost(query.Field, query.Value)
	default:
		return nil, fmt.Errorf("unsupported operator: %s", query.Op)
	}
}

// runIterator loads states lazily as the caller advances, so a large
// match set costs no more than what is consumed.
type runIterator struct {
	ctx     context.Context
	source  StateSource
	ids     []string
	pos     int
	current Result
	err     error
}

func (it *runIterator) Next() bool {
	for it.pos < len(it.ids) {
		if err := it.ctx.Err(); err != nil {
			it.err = err
			return false
		}

		id := it.ids[it.pos]
		it.pos++

		state, err := it.source.Latest(id)
		if err != nil {
			if err == store.ErrRunNotFound {
				// Forgotten since it was indexed.
				continue
			}
			it.err = err
			return false
		}

		it.current = Result{ID: id, State: state}
		return true
	}
	return false
}

func (it *runIterator) Result() Result {
	return it.current
}

// Err reports the error that stopped iteration, if any.
func (it *runIterator) Err() error {
	return it.err
}

func (it *runIterator) Close() error {
	return nil
}
