package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAccountsOrphanSweep reconciles identities that lack a profile row.
	TaskAccountsOrphanSweep = "accounts:orphan_sweep"
)

// OrphanSweepPayload configures one sweep run.
type OrphanSweepPayload struct {
	// DryRun reports what would be repaired without writing.
	DryRun bool `json:"dry_run"`
}

// NewOrphanSweepTask constructs an Asynq task.
func NewOrphanSweepTask(payload OrphanSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAccountsOrphanSweep, data, asynq.Queue(QueueDefault)), nil
}
