package models

import "time"

// CounterField names a denormalized counter the sweep checks.
type CounterField string

const (
	CounterProjectLikes    CounterField = "projects.likes_count"
	CounterProjectComments CounterField = "projects.comments_count"
	CounterUserFollowers   CounterField = "users.followers_count"
	CounterUserFollowing   CounterField = "users.following_count"
)

// CounterFields lists the fields in the order the sweep visits them.
var CounterFields = []CounterField{
	CounterProjectLikes,
	CounterProjectComments,
	CounterUserFollowers,
	CounterUserFollowing,
}

// CounterDrift is one row whose stored counter disagrees with its source rows.
type CounterDrift struct {
	Field  CounterField `json:"field"`
	ID     uint         `json:"id"`
	Stored int          `json:"stored"`
	Actual int          `json:"actual"`
}

// FieldReport summarizes one counter field.
type FieldReport struct {
	Field    CounterField `json:"field"`
	Drifted  int          `json:"drifted"`
	Repaired int64        `json:"repaired"`
}

// ReconcileReport is the outcome of a sweep.
type ReconcileReport struct {
	RunID     string         `json:"run_id"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	DryRun    bool           `json:"dry_run"`
	Skipped   bool           `json:"skipped"`
	Fields    []FieldReport  `json:"fields"`
	Drift     []CounterDrift `json:"drift"`
}

// TotalDrift counts every drifted row found.
func (r *ReconcileReport) TotalDrift() int {
	return len(r.Drift)
}
