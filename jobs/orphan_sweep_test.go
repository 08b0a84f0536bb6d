package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/pulseboard/pulseboard/testing"
)

type fakeRepairer struct {
	orphans    int
	sweepErr   error
	sweepCalls int
	countCalls int
}

func (f *fakeRepairer) CountOrphans(context.Context) (int, error) {
	f.countCalls++
	return f.orphans, nil
}

func (f *fakeRepairer) SweepOrphans(context.Context) (int, error) {
	f.sweepCalls++
	if f.sweepErr != nil {
		return 0, f.sweepErr
	}
	recovered := f.orphans
	f.orphans = 0
	return recovered, nil
}

func TestOrphanSweepHandle(t *testing.T) {
	repairer := &fakeRepairer{orphans: 3}
	job := NewOrphanSweepJob(repairer, nil)

	task, err := NewOrphanSweepTask(OrphanSweepPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, repairer.sweepCalls)
	assert.Zero(t, repairer.orphans)
}

func TestOrphanSweepDryRunWritesNothing(t *testing.T) {
	repairer := &fakeRepairer{orphans: 2}
	job := NewOrphanSweepJob(repairer, nil)

	task, err := NewOrphanSweepTask(OrphanSweepPayload{DryRun: true})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, repairer.countCalls)
	assert.Zero(t, repairer.sweepCalls)
	assert.Equal(t, 2, repairer.orphans)
}

func TestOrphanSweepPropagatesFailure(t *testing.T) {
	repairer := &fakeRepairer{sweepErr: errors.New("directory down")}
	job := NewOrphanSweepJob(repairer, nil)

	task, err := NewOrphanSweepTask(OrphanSweepPayload{})
	require.NoError(t, err)
	assert.Error(t, job.Handle(context.Background(), task))
}

func TestOrphanSweepSkipsRetryOnBadPayload(t *testing.T) {
	job := NewOrphanSweepJob(&fakeRepairer{}, nil)
	task := asynq.NewTask(TaskAccountsOrphanSweep, []byte("{not json"))

	err := job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
