package handlers

import (
	"gorm.io/gorm"

	"outreach-engine-go/internal/ledger"
	"outreach-engine-go/internal/metrics"
	"outreach-engine-go/internal/reconcile"
	"outreach-engine-go/internal/repository"
	"outreach-engine-go/internal/scheduler"
	"outreach-engine-go/internal/tracking"
	"outreach-engine-go/internal/warmup"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	db         *gorm.DB
	repo       *repository.Repository
	ledger     *ledger.Ledger
	policy     *warmup.Policy
	reconciler *reconcile.Reconciler
	scheduler  *scheduler.Scheduler
	tracker    *tracking.Embedder
	metrics    *metrics.Metrics
}

// NewHandlers creates new HTTP handlers
func NewHandlers(db *gorm.DB, repo *repository.Repository, l *ledger.Ledger, policy *warmup.Policy,
	r *reconcile.Reconciler, s *scheduler.Scheduler, tracker *tracking.Embedder, m *metrics.Metrics) *Handlers {
	return &Handlers{
		db:         db,
		repo:       repo,
		ledger:     l,
		policy:     policy,
		reconciler: r,
		scheduler:  s,
		tracker:    tracker,
		metrics:    m,
	}
}
