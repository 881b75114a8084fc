package entities

import (
	"time"
)

// SyncRunStatus is the lifecycle state of a sync job invocation
type SyncRunStatus string

const (
	SyncRunRunning   SyncRunStatus = "running"
	SyncRunSucceeded SyncRunStatus = "succeeded"
	SyncRunFailed    SyncRunStatus = "failed"
	SyncRunSkipped   SyncRunStatus = "skipped"
)

// SyncRun records one invocation of a sync job. It is bookkeeping only;
// watermarks are always derived from stored transfers.
type SyncRun struct {
	ID         string        `db:"id" json:"id"`
	JobID      string        `db:"job_id" json:"job_id"`
	Chain      Chain         `db:"chain" json:"chain"`
	Provider   Provider      `db:"provider" json:"provider"`
	Status     SyncRunStatus `db:"status" json:"status"`
	Fetched    int64         `db:"fetched" json:"fetched"`
	Saved      int64         `db:"saved" json:"saved"`
	Error      *string       `db:"error" json:"error"`
	StartedAt  time.Time     `db:"started_at" json:"started_at"`
	FinishedAt *time.Time    `db:"finished_at" json:"finished_at"`
}
