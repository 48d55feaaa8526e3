// Package scheduler drives the periodic dispatch of due touchpoints and the
// optional inbound reply poll.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"outreach-engine-go/internal/config"
	"outreach-engine-go/internal/dispatch"
	"outreach-engine-go/internal/inbound"
	"outreach-engine-go/internal/metrics"
	"outreach-engine-go/internal/models"
	"outreach-engine-go/internal/reconcile"
)

// Store is the persistence surface the scheduler needs
type Store interface {
	ListDueTouchpoints(now time.Time, limit int) ([]models.LeadTouchpoint, error)
	CountPausedDomains() (int64, error)
}

// Scheduler manages the periodic dispatch cycle
type Scheduler struct {
	cron       *cron.Cron
	entryID    cron.EntryID
	config     *config.SchedulerConfig
	store      Store
	executor   *dispatch.Executor
	fetcher    inbound.Fetcher // nil when the IMAP poller is disabled
	reconciler *reconcile.Reconciler
	metrics    *metrics.Metrics
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	isRunning  bool
	mu         sync.RWMutex
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg *config.SchedulerConfig, store Store, executor *dispatch.Executor,
	fetcher inbound.Fetcher, reconciler *reconcile.Reconciler, m *metrics.Metrics) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		config:     cfg,
		store:      store,
		executor:   executor,
		fetcher:    fetcher,
		reconciler: reconciler,
		metrics:    m,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	// Recreate the context in case this is a restart after Stop
	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}

	// Schedule the job to run every N minutes
	schedule := fmt.Sprintf("0 */%d * * * *", s.config.IntervalMinutes)

	entryID, err := s.cron.AddFunc(schedule, s.tick)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d minutes", s.config.IntervalMinutes)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	// Cancel context to stop any running operations
	s.cancel()

	ctx := s.cron.Stop()

	// Wait for running jobs to complete
	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	s.cron.Remove(s.entryID)
	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// tick is the periodic processing function
func (s *Scheduler) tick() {
	s.wg.Add(1)
	defer s.wg.Done()

	s.mu.RLock()
	if !s.isRunning {
		s.mu.RUnlock()
		return
	}
	s.mu.RUnlock()

	startTime := time.Now()
	logrus.Info("Starting dispatch cycle")

	s.pollInbound()
	s.dispatchDue()
	s.updateGauges()

	logrus.Infof("Dispatch cycle completed in %v", time.Since(startTime))
}

// pollInbound ingests new replies first so their sequence stops land before
// this cycle's dispatches
func (s *Scheduler) pollInbound() {
	if s.fetcher == nil {
		return
	}

	msgs, err := s.fetcher.FetchNewMessages(s.ctx)
	if err != nil {
		logrus.Errorf("Failed to fetch inbound messages: %v", err)
		return
	}

	for _, msg := range msgs {
		result, err := s.reconciler.ProcessInbound(s.ctx, msg)
		if err != nil {
			logrus.Errorf("Failed to reconcile inbound message %s: %v", msg.MessageID, err)
			continue
		}
		if result.LeadFound && !result.AlreadyProcessed {
			logrus.WithFields(logrus.Fields{
				"message_id": msg.MessageID,
				"cancelled":  result.TouchpointsCancelled,
			}).Info("Inbound reply reconciled")
		}
	}
}

// dispatchDue sends every touchpoint whose due time has passed, up to the
// configured batch size
func (s *Scheduler) dispatchDue() {
	due, err := s.store.ListDueTouchpoints(time.Now(), s.config.BatchSize)
	if err != nil {
		logrus.Errorf("Failed to list due touchpoints: %v", err)
		return
	}

	if len(due) == 0 {
		return
	}
	logrus.Infof("Dispatching %d due touchpoints", len(due))

	for i := range due {
		select {
		case <-s.ctx.Done():
			logrus.Info("Dispatch cycle cancelled")
			return
		default:
		}

		result := s.executor.Dispatch(s.ctx, due[i].ID)
		switch {
		case errors.Is(result.Err, dispatch.ErrNoCapacity):
			// Every domain is out; later touchpoints cannot fare better
			logrus.Info("Capacity exhausted, deferring remaining touchpoints to next cycle")
			return
		case errors.Is(result.Err, dispatch.ErrNotPending):
			logrus.Debugf("Touchpoint %d no longer pending, skipping", due[i].ID)
		case result.Err != nil && !result.Success:
			logrus.Errorf("Failed to dispatch touchpoint %d: %v", due[i].ID, result.Err)
		}
	}
}

func (s *Scheduler) updateGauges() {
	paused, err := s.store.CountPausedDomains()
	if err != nil {
		logrus.Errorf("Failed to count paused domains: %v", err)
		return
	}
	s.metrics.DomainsPaused.Set(float64(paused))
}

// RunOnce runs the dispatch cycle once (for manual triggering)
func (s *Scheduler) RunOnce() error {
	logrus.Info("Running dispatch cycle once")
	s.tick()
	return nil
}

// GetNextRun returns the time of the next scheduled run
func (s *Scheduler) GetNextRun() time.Time {
	if !s.IsRunning() {
		return time.Time{}
	}

	entry := s.cron.Entry(s.entryID)
	return entry.Next
}

// GetLastRun returns the time of the last run
func (s *Scheduler) GetLastRun() time.Time {
	if !s.IsRunning() {
		return time.Time{}
	}

	entry := s.cron.Entry(s.entryID)
	return entry.Prev
}

// Wait waits for in-flight cycles to finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
