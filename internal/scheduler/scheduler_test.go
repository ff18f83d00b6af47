package scheduler

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReloader struct {
	calls atomic.Int32
	err   error
}

func (r *countingReloader) Reload(context.Context) (int, error) {
	r.calls.Add(1)
	return 3, r.err
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestScheduleReloadRejectsBadExpression(t *testing.T) {
	s := NewScheduler(quietLogger())
	_, err := s.ScheduleReload("not a schedule", &countingReloader{})
	assert.Error(t, err)
}

func TestStartRequiresJobs(t *testing.T) {
	s := NewScheduler(quietLogger())
	assert.Error(t, s.Start())
}

func TestSchedulerLifecycle(t *testing.T) {
	s := NewScheduler(quietLogger())
	reloader := &countingReloader{}

	id, err := s.ScheduleReload("@every 1h", reloader)
	require.NoError(t, err)

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start())
	assert.False(t, s.GetNextRun().IsZero())
	assert.Len(t, s.Entries(), 1)

	_, err = s.ScheduleReload("@every 1h", reloader)
	assert.Error(t, err)
	assert.Error(t, s.RemoveJob(id))

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	require.NoError(t, s.RemoveJob(id))
	assert.Empty(t, s.Entries())
}

func TestRunReloadInvokesReloader(t *testing.T) {
	s := NewScheduler(quietLogger())
	reloader := &countingReloader{}

	s.runReload(reloader)
	assert.Equal(t, int32(1), reloader.calls.Load())

	reloader.err = errors.New("store unavailable")
	s.runReload(reloader)
	assert.Equal(t, int32(2), reloader.calls.Load())
}

func TestScheduledJobFires(t *testing.T) {
	s := NewScheduler(quietLogger())
	reloader := &countingReloader{}

	_, err := s.ScheduleReload("@every 1s", reloader)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return reloader.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
