package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SeenPolicy selects how the persisted Seen-State evolves between runs.
type SeenPolicy string

const (
	// PolicyLastRun keeps only the ids qualified in the previous run, so a
	// listing that disappears and comes back is reported again as returning.
	PolicyLastRun SeenPolicy = "last_run"
	// PolicyFirstSeen keeps every id ever observed; a listing is reported once.
	PolicyFirstSeen SeenPolicy = "first_seen"
)

func ParseSeenPolicy(s string) (SeenPolicy, error) {
	switch p := SeenPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyLastRun, PolicyFirstSeen:
		return p, nil
	case "":
		return PolicyLastRun, nil
	default:
		return "", fmt.Errorf("unknown seen policy %q", s)
	}
}

// SeenEntry records when a listing id was first observed and its title at the time.
type SeenEntry struct {
	FirstSeen time.Time `json:"first_seen" bson:"first_seen"`
	Title     string    `json:"title,omitempty" bson:"title,omitempty"`
}

// SeenState is the cross-run memory of observed listing ids.
type SeenState struct {
	Entries   map[string]SeenEntry `json:"deals" bson:"deals"`
	UpdatedAt time.Time            `json:"timestamp" bson:"updated_at"`
}

// NewSeenState returns the empty state used on a first run.
func NewSeenState() *SeenState {
	return &SeenState{Entries: map[string]SeenEntry{}}
}

func (s *SeenState) Has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.Entries[id]
	return ok
}

func (s *SeenState) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// IDs returns the tracked ids sorted ascending.
func (s *SeenState) IDs() []string {
	if s == nil {
		return []string{}
	}
	ids := make([]string, 0, len(s.Entries))
	for id := range s.Entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy; a nil receiver clones to the empty state.
func (s *SeenState) Clone() *SeenState {
	out := NewSeenState()
	if s == nil {
		return out
	}
	for id, e := range s.Entries {
		out.Entries[id] = e
	}
	out.UpdatedAt = s.UpdatedAt
	return out
}
