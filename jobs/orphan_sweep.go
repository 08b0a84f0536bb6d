package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
)

// OrphanRepairer is the slice of the provisioning service the sweep needs.
type OrphanRepairer interface {
	CountOrphans(ctx context.Context) (int, error)
	SweepOrphans(ctx context.Context) (int, error)
}

// OrphanSweepJob repairs identities that exist in the directory but lack a
// profile row. Unlike first-admin recovery, repaired accounts get the lowest
// privilege tier.
type OrphanSweepJob struct {
	Service OrphanRepairer
	Logger  *slog.Logger
}

// NewOrphanSweepJob initialises the sweep handler.
func NewOrphanSweepJob(service OrphanRepairer, logger *slog.Logger) *OrphanSweepJob {
	return &OrphanSweepJob{Service: service, Logger: logger}
}

// Handle executes one sweep run.
func (j *OrphanSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("orphan sweep: handler not configured")
	}
	var payload OrphanSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	if payload.DryRun {
		count, err := j.Service.CountOrphans(ctx)
		if err != nil {
			j.logger().Error("orphan count failed", slog.Any("error", err))
			return err
		}
		j.logger().Info("orphan sweep dry run", slog.Int("orphans", count))
		return nil
	}

	recovered, err := j.Service.SweepOrphans(ctx)
	if err != nil {
		j.logger().Error("orphan sweep failed", slog.Any("error", err))
		return err
	}
	j.logger().Info("orphan sweep finished", slog.Int("recovered", recovered))
	return nil
}

func (j *OrphanSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
