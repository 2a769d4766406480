package models

import "time"

// RunStage is the furthest point a monitor run reached.
type RunStage string

const (
	StageStart          RunStage = "START"
	StageFetched        RunStage = "FETCHED"
	StageNormalized     RunStage = "NORMALIZED"
	StageReconciled     RunStage = "RECONCILED"
	StageNotified       RunStage = "NOTIFIED"
	StageSkipped        RunStage = "SKIPPED"
	StageStateCommitted RunStage = "STATE_COMMITTED"
	StageEnd            RunStage = "END"
	StageFailed         RunStage = "FAILED"
)

// Outcome classifies a finished run for operators.
type Outcome string

const (
	OutcomeNotified    Outcome = "notified"
	OutcomeNoNew       Outcome = "no_new_deals"
	OutcomeNoDeals     Outcome = "no_deals"
	OutcomeFetchFailed Outcome = "fetch_failed"
	OutcomeAuthFailed  Outcome = "auth_failed"
	OutcomeFailed      Outcome = "failed"
	OutcomeDryRun      Outcome = "dry_run"
)

// RunSummary holds the diagnostic totals of one run. It is populated as far
// as the run got, so failed runs still report what they observed.
type RunSummary struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	Stage          RunStage
	Outcome        Outcome
	Total          int
	Qualified      int
	Exclusive      int
	Unreconcilable int
	PreviousSeen   int
	New            int
	NewExclusive   int
	Disappeared    int
	Notified       bool
	StateCommitted bool
}

func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Digest is a composed notification ready for dispatch.
type Digest struct {
	RunID     string    `json:"run_id"`
	CheckedAt time.Time `json:"checked_at"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Listings  []Listing `json:"listings"`
}
