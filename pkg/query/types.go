package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ssargent/muninn/pkg/index"
	"github.com/ssargent/muninn/pkg/replay"
)

// FieldQuery is a single comparison against a numeric state field.
type FieldQuery struct {
	Field string // State field to compare: "seed", "size", "counter", "pathlen"
	Op    string // Comparison operator: "=", ">", "<", ">=", "<="
	Value uint64 // Value to compare against
}

// Validate checks that the query is properly formed.
func (q *FieldQuery) Validate() error {
	if q.Field == "" {
		return fmt.Errorf("field name cannot be empty")
	}
	if !index.IsField(q.Field) {
		return fmt.Errorf("unknown field %q (have %s)", q.Field, strings.Join(index.Fields(), ", "))
	}
	if q.Op == "" {
		return fmt.Errorf("operator cannot be empty")
	}
	validOps := map[string]bool{
		"=": true, ">": true, "<": true, ">=": true, "<=": true,
	}
	if !validOps[q.Op] {
		return fmt.Errorf("invalid operator: %s", q.Op)
	}
	return nil
}

// String renders the query back as a where expression.
func (q FieldQuery) String() string {
	return fmt.Sprintf("%s%s%d", q.Field, q.Op, q.Value)
}

// Result is one run matched by a query.
type Result struct {
	ID    string
	State *replay.State
}

// Iterator provides streaming access to query results.
type Iterator interface {
	Next() bool
	Result() Result
	Err() error
	Close() error
}

// whereOps is ordered so two-character operators match before their
// one-character suffixes.
var whereOps = []string{">=", "<=", "=", ">", "<"}

// ParseWhere parses a where expression like "seed=42" or "size>=10".
func ParseWhere(expr string) (FieldQuery, error) {
	expr = strings.TrimSpace(expr)
	for _, op := range whereOps {
		i := strings.Index(expr, op)
		if i < 0 {
			continue
		}

		field := strings.TrimSpace(expr[:i])
		valueStr := strings.TrimSpace(expr[i+len(op):])
		value, err := strconv.ParseUint(valueStr, 10, 64)
		if err != nil {
			return FieldQuery{}, fmt.Errorf("invalid value in %q: %w", expr, err)
		}

		q := FieldQuery{Field: field, Op: op, Value: value}
		if err := q.Validate(); err != nil {
			return FieldQuery{}, err
		}
		return q, nil
	}
	return FieldQuery{}, fmt.Errorf("no operator in %q (want =, >, >=, < or <=)", expr)
}
