package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach-engine-go/internal/config"
	"outreach-engine-go/internal/metrics"
	"outreach-engine-go/internal/models"
)

// promauto registers on the default registry; one set per test binary
var testMetrics = metrics.NewMetrics()

// dummyStore reports no due touchpoints and no paused domains
type dummyStore struct {
	listCalls int
}

func (s *dummyStore) ListDueTouchpoints(time.Time, int) ([]models.LeadTouchpoint, error) {
	s.listCalls++
	return nil, nil
}

func (s *dummyStore) CountPausedDomains() (int64, error) { return 0, nil }

func newTestScheduler(store Store) *Scheduler {
	cfg := &config.SchedulerConfig{IntervalMinutes: 60, BatchSize: 10}
	return NewScheduler(cfg, store, nil, nil, nil, testMetrics)
}

func TestSchedulerRestart(t *testing.T) {
	sched := newTestScheduler(&dummyStore{})

	require.NoError(t, sched.Start())
	assert.True(t, sched.IsRunning())

	require.NoError(t, sched.Stop())
	assert.False(t, sched.IsRunning())

	require.NoError(t, sched.Start())
	assert.True(t, sched.IsRunning())

	// context should be active after restart
	assert.NoError(t, sched.ctx.Err())
	sched.Stop()
}

func TestSchedulerDoubleStartFails(t *testing.T) {
	sched := newTestScheduler(&dummyStore{})

	require.NoError(t, sched.Start())
	assert.Error(t, sched.Start())
	sched.Stop()
}

func TestSchedulerStopWhenStoppedIsNoop(t *testing.T) {
	sched := newTestScheduler(&dummyStore{})
	assert.NoError(t, sched.Stop())
}

func TestRunOnceQueriesDueTouchpoints(t *testing.T) {
	store := &dummyStore{}
	sched := newTestScheduler(store)
	sched.isRunning = true // RunOnce outside the cron loop

	require.NoError(t, sched.RunOnce())
	assert.Equal(t, 1, store.listCalls)
}

func TestNextRunZeroWhenStopped(t *testing.T) {
	sched := newTestScheduler(&dummyStore{})
	assert.True(t, sched.GetNextRun().IsZero())
	assert.True(t, sched.GetLastRun().IsZero())
}
