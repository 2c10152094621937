package domain

import "time"

// Run is a snapshot of one graph execution: its identity, status, the
// state as of the last successful merge, and the failure cause if any.
// The live executor owns the authoritative State exclusively; Run values
// handed to stores and adapters are copies.
type Run struct {
	ID        string    `json:"id"`
	Status    RunStatus `json:"status"`
	State     State     `json:"state"`
	Err       string    `json:"err,omitempty"`
	Steps     int       `json:"steps"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRun creates a pending run snapshot. The executor transitions it to
// StatusRunning once the initial state is committed.
func NewRun(id string) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:        id,
		Status:    StatusIdle,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a copy safe to hand across goroutines.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	out := *r
	out.State = r.State.Clone()
	return &out
}
