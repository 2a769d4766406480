package usecase

import (
	"sort"
	"time"

	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
)

// Reconciliation is the classification of one run's qualified listings
// against the previous Seen-State.
type Reconciliation struct {
	// Reportable holds new or returning listings in input order.
	Reportable []models.Listing
	// DisappearedIDs is sorted and only populated under PolicyLastRun.
	DisappearedIDs []string
	// Unreconcilable counts qualified listings without an id.
	Unreconcilable int
	// CurrentIDs are the distinct reconcilable ids of this run.
	CurrentIDs []string
	NextState  *models.SeenState
}

// Reconcile diffs qualified against previous. It does not modify previous
// and returns the same result for the same inputs.
func Reconcile(qualified []models.Listing, previous *models.SeenState, policy models.SeenPolicy, now time.Time) Reconciliation {
	if previous == nil {
		previous = models.NewSeenState()
	}
	now = now.UTC()
	res := Reconciliation{
		Reportable:     []models.Listing{},
		DisappearedIDs: []string{},
		CurrentIDs:     []string{},
	}

	current := make(map[string]models.Listing, len(qualified))
	for _, l := range qualified {
		if !l.Reconcilable() {
			res.Unreconcilable++
			continue
		}
		if _, dup := current[l.ID]; dup {
			continue
		}
		current[l.ID] = l
		res.CurrentIDs = append(res.CurrentIDs, l.ID)
		if !previous.Has(l.ID) {
			res.Reportable = append(res.Reportable, l)
		}
	}

	switch policy {
	case models.PolicyFirstSeen:
		res.NextState = previous.Clone()
		for _, l := range res.Reportable {
			res.NextState.Entries[l.ID] = models.SeenEntry{FirstSeen: now, Title: l.Title}
		}
	default:
		res.NextState = models.NewSeenState()
		for id, l := range current {
			entry := models.SeenEntry{FirstSeen: now, Title: l.Title}
			if prev, ok := previous.Entries[id]; ok {
				entry = prev
			}
			res.NextState.Entries[id] = entry
		}
		for _, id := range previous.IDs() {
			if _, ok := current[id]; !ok {
				res.DisappearedIDs = append(res.DisappearedIDs, id)
			}
		}
		sort.Strings(res.DisappearedIDs)
	}
	res.NextState.UpdatedAt = now
	return res
}
