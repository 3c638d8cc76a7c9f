package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Link records that one run was derived from another, most commonly a
// shrunk reproduction of a failing case ("shrunk-from") or a re-run with
// a bumped seed ("reran-as").
type Link struct {
	ParentID  string                 `json:"parent_id"`
	ChildID   string                 `json:"child_id"`
	Relation  string                 `json:"relation"`
	CreatedAt time.Time              `json:"created_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// LinkQuery selects lineage links for a run.
type LinkQuery struct {
	ID        string // Run ID to find links for
	Relation  string // Optional: filter by relation
	Direction string // "derived", "origins", or "both"
	Limit     int    // Maximum number of results
}

// LinkResult is one link found by a query.
type LinkResult struct {
	Link      *Link  `json:"link"`
	OtherID   string `json:"other_id"`
	Direction string `json:"direction"` // "derived" or "origins"
}

// lineagePrefix reserves a namespace in the run log for link records.
const lineagePrefix = "lineage:"

// makeLineageKey generates a link record key.
// Format: lineage:<direction>:<id>:<relation>:<other_id>
// Colons inside IDs are replaced so the key still splits cleanly.
func makeLineageKey(direction, id, relation, otherID string) string {
	safeID := strings.ReplaceAll(id, ":", "|")
	safeOther := strings.ReplaceAll(otherID, ":", "|")
	return fmt.Sprintf("%s%s:%s:%s:%s", lineagePrefix, direction, safeID, relation, safeOther)
}

// parseLineageKey extracts components from a link record key.
func parseLineageKey(key string) (direction, id, relation, otherID string, err error) {
	parts := strings.Split(key, ":")
	if len(parts) != 5 || parts[0]+":" != lineagePrefix {
		return "", "", "", "", fmt.Errorf("invalid lineage key format: %s", key)
	}

	direction = parts[1]
	id = strings.ReplaceAll(parts[2], "|", ":")
	relation = parts[3]
	otherID = strings.ReplaceAll(parts[4], "|", ":")
	return
}

// LinkDerived records that childID was derived from parentID. Both runs
// must already exist. The link is stored in both directions so either
// end can be queried without scanning.
func (rs *RunStore) LinkDerived(parentID, childID, relation string) error {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	if !rs.isOpen {
		return ErrStoreClosed
	}

	if err := rs.validateLinkIDs(parentID, childID); err != nil {
		return err
	}

	link := &Link{
		ParentID:  parentID,
		ChildID:   childID,
		Relation:  relation,
		CreatedAt: time.Now(),
	}
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("encode link: %w", err)
	}

	derivedKey := makeLineageKey("derived", parentID, relation, childID)
	if err := rs.putInternal([]byte(derivedKey), data); err != nil {
		return fmt.Errorf("store derived link: %w", err)
	}

	originsKey := makeLineageKey("origins", childID, relation, parentID)
	if err := rs.putInternal([]byte(originsKey), data); err != nil {
		return fmt.Errorf("store origins link: %w", err)
	}

	return nil
}

// Unlink removes a derivation link in both directions.
func (rs *RunStore) Unlink(parentID, childID, relation string) error {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	if !rs.isOpen {
		return ErrStoreClosed
	}

	derivedKey := makeLineageKey("derived", parentID, relation, childID)
	if err := rs.deleteInternal([]byte(derivedKey)); err != nil && err != ErrRunNotFound {
		return fmt.Errorf("remove derived link: %w", err)
	}

	originsKey := makeLineageKey("origins", childID, relation, parentID)
	if err := rs.deleteInternal([]byte(originsKey)); err != nil && err != ErrRunNotFound {
		return fmt.Errorf("remove origins link: %w", err)
	}

	return nil
}

// Links returns lineage links for a run.
func (rs *RunStore) Links(query LinkQuery) ([]LinkResult, error) {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	if !rs.isOpen {
		return nil, ErrStoreClosed
	}

	var results []LinkResult
	limit := query.Limit
	if limit == 0 {
		limit = 100
	}

	for _, direction := range []string{"derived", "origins"} {
		if query.Direction != direction && query.Direction != "both" {
			continue
		}

		// Trailing colon so "run-1" does not also match "run-10".
		safeID := strings.ReplaceAll(query.ID, ":", "|")
		prefix := lineagePrefix + direction + ":" + safeID + ":"
		if query.Relation != "" {
			prefix += query.Relation + ":"
		}

		keys := rs.index.KeysWithPrefix(prefix)
		for _, key := range keys {
			if len(results) >= limit {
				break
			}

			record, err := rs.getInternal([]byte(key))
			if err != nil {
				continue
			}

			var link Link
			if err := json.Unmarshal(record.Payload, &link); err != nil {
				continue
			}

			other := link.ChildID
			if direction == "origins" {
				other = link.ParentID
			}
			results = append(results, LinkResult{
				Link:      &link,
				OtherID:   other,
				Direction: direction,
			})
		}
	}

	return results, nil
}

// Derived returns the runs derived from id, its shrunk reproductions and
// re-runs.
func (rs *RunStore) Derived(id string) ([]LinkResult, error) {
	return rs.Links(LinkQuery{ID: id, Direction: "derived"})
}

// Origins returns the runs id was derived from.
func (rs *RunStore) Origins(id string) ([]LinkResult, error) {
	return rs.Links(LinkQuery{ID: id, Direction: "origins"})
}

// validateLinkIDs checks that both runs exist. Callers hold the mutex.
func (rs *RunStore) validateLinkIDs(parentID, childID string) error {
	if _, err := rs.getInternal([]byte(parentID)); err != nil {
		if err == ErrRunNotFound {
			return fmt.Errorf("parent run does not exist: %s", parentID)
		}
		return fmt.Errorf("validate parent run: %w", err)
	}

	if _, err := rs.getInternal([]byte(childID)); err != nil {
		if err == ErrRunNotFound {
			return fmt.Errorf("child run does not exist: %s", childID)
		}
		return fmt.Errorf("validate child run: %w", err)
	}

	return nil
}
