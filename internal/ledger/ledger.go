// Package ledger tracks per-domain daily send capacity and abuse signals.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"outreach-engine-go/internal/models"
	"outreach-engine-go/internal/warmup"
)

// Pause evaluation requires at least this many sends; fewer gives too few
// data points to judge rates.
const minSendsForPause = 5

// DomainStore is the persistence surface the ledger needs
type DomainStore interface {
	ListActiveDomains() ([]models.SendingDomain, error)
	GetDomain(id uint) (*models.SendingDomain, error)
	SaveDomain(domain *models.SendingDomain) error
	IncrementSentToday(id uint) error
}

// Ledger manages daily counters, lazy day rollover, and abuse-triggered
// pauses for sending domains. Listings are cached for a short TTL; the
// cache is invalidated whenever a rollover reset or a counter write occurs.
type Ledger struct {
	store  DomainStore
	policy *warmup.Policy
	now    func() time.Time

	cacheTTL time.Duration
	mu       sync.Mutex
	cached   []models.SendingDomain
	cachedAt time.Time
}

// New creates a capacity ledger
func New(store DomainStore, policy *warmup.Policy, cacheTTL time.Duration) *Ledger {
	return &Ledger{
		store:    store,
		policy:   policy,
		now:      time.Now,
		cacheTTL: cacheTTL,
	}
}

// NewWithClock creates a capacity ledger with a fixed clock source
func NewWithClock(store DomainStore, policy *warmup.Policy, cacheTTL time.Duration, now func() time.Time) *Ledger {
	l := New(store, policy, cacheTTL)
	l.now = now
	return l
}

func (l *Ledger) today() string {
	return l.now().UTC().Format("2006-01-02")
}

// rolloverIfStale resets the daily counters when the record's reset date is
// not today. Returns true when a reset was persisted.
func (l *Ledger) rolloverIfStale(domain *models.SendingDomain) (bool, error) {
	today := l.today()
	if domain.LastResetDate == today {
		return false, nil
	}

	domain.SentToday = 0
	domain.BounceCountToday = 0
	domain.ComplaintCountToday = 0
	domain.LastResetDate = today

	if err := l.store.SaveDomain(domain); err != nil {
		return false, fmt.Errorf("failed to persist day rollover for domain %s: %w", domain.Domain, err)
	}

	logrus.WithFields(logrus.Fields{
		"domain": domain.Domain,
		"date":   today,
	}).Info("Daily counters reset")
	return true, nil
}

// RemainingCapacity returns dailyLimit - sentToday after a rollover check
func (l *Ledger) RemainingCapacity(domain *models.SendingDomain) (int, error) {
	reset, err := l.rolloverIfStale(domain)
	if err != nil {
		return 0, err
	}
	if reset {
		l.invalidate()
	}
	return l.policy.DailyLimit(domain) - domain.SentToday, nil
}

// ActiveDomains lists active domains with fresh counters, serving from the
// short-TTL cache when possible
func (l *Ledger) ActiveDomains() ([]models.SendingDomain, error) {
	l.mu.Lock()
	if l.cached != nil && l.now().Sub(l.cachedAt) < l.cacheTTL {
		domains := make([]models.SendingDomain, len(l.cached))
		copy(domains, l.cached)
		l.mu.Unlock()
		return domains, nil
	}
	l.mu.Unlock()

	domains, err := l.store.ListActiveDomains()
	if err != nil {
		return nil, fmt.Errorf("failed to list active domains: %w", err)
	}

	// Rollover before caching so the cache never holds stale counters
	for i := range domains {
		if _, err := l.rolloverIfStale(&domains[i]); err != nil {
			return nil, err
		}
	}

	l.mu.Lock()
	l.cached = make([]models.SendingDomain, len(domains))
	copy(l.cached, domains)
	l.cachedAt = l.now()
	l.mu.Unlock()

	return domains, nil
}

// invalidate drops the cached domain listing
func (l *Ledger) invalidate() {
	l.mu.Lock()
	l.cached = nil
	l.mu.Unlock()
}

// ShouldPause evaluates the abuse triggers in priority order and returns the
// pause reason, or "" when the domain may keep sending
func ShouldPause(bounces, complaints, sentToday int) string {
	if sentToday < minSendsForPause {
		return ""
	}

	if complaints >= 2 {
		return fmt.Sprintf("complaint count %d reached threshold", complaints)
	}
	if float64(complaints)/float64(sentToday) >= 0.001 {
		return fmt.Sprintf("complaint rate %.2f%% exceeded 0.1%%", float64(complaints)/float64(sentToday)*100)
	}
	if float64(bounces)/float64(sentToday) >= 0.05 {
		return fmt.Sprintf("bounce rate %.1f%% exceeded 5%%", float64(bounces)/float64(sentToday)*100)
	}
	if bounces >= 10 {
		return fmt.Sprintf("bounce count %d reached threshold", bounces)
	}
	return ""
}

// RecordSend increments sentToday for a confirmed delivery
func (l *Ledger) RecordSend(domainID uint) error {
	if err := l.store.IncrementSentToday(domainID); err != nil {
		return fmt.Errorf("failed to record send for domain %d: %w", domainID, err)
	}
	l.invalidate()
	return nil
}

// RecordBounce increments the bounce counter and pauses the domain when an
// abuse trigger fires; counter and pause state are written together
func (l *Ledger) RecordBounce(domainID uint) error {
	return l.recordAbuseSignal(domainID, func(d *models.SendingDomain) {
		d.BounceCountToday++
	})
}

// RecordComplaint increments the complaint counter and pauses the domain
// when an abuse trigger fires
func (l *Ledger) RecordComplaint(domainID uint) error {
	return l.recordAbuseSignal(domainID, func(d *models.SendingDomain) {
		d.ComplaintCountToday++
	})
}

func (l *Ledger) recordAbuseSignal(domainID uint, bump func(*models.SendingDomain)) error {
	domain, err := l.store.GetDomain(domainID)
	if err != nil {
		return fmt.Errorf("failed to load domain %d: %w", domainID, err)
	}

	if _, err := l.rolloverIfStale(domain); err != nil {
		return err
	}

	bump(domain)

	if reason := ShouldPause(domain.BounceCountToday, domain.ComplaintCountToday, domain.SentToday); reason != "" && !domain.IsPaused {
		now := l.now()
		domain.IsPaused = true
		domain.PauseReason = reason
		domain.PausedAt = &now
		logrus.WithFields(logrus.Fields{
			"domain": domain.Domain,
			"reason": reason,
		}).Warn("Sending domain paused")
	}

	if err := l.store.SaveDomain(domain); err != nil {
		return fmt.Errorf("failed to save domain %d: %w", domainID, err)
	}
	l.invalidate()
	return nil
}

// Resume clears the pause state and today's bounce/complaint counters so
// the domain gets a clean evaluation window. SentToday is preserved.
func (l *Ledger) Resume(domainID uint) error {
	domain, err := l.store.GetDomain(domainID)
	if err != nil {
		return fmt.Errorf("failed to load domain %d: %w", domainID, err)
	}

	domain.IsPaused = false
	domain.PauseReason = ""
	domain.PausedAt = nil
	domain.BounceCountToday = 0
	domain.ComplaintCountToday = 0

	if err := l.store.SaveDomain(domain); err != nil {
		return fmt.Errorf("failed to resume domain %d: %w", domainID, err)
	}
	l.invalidate()

	logrus.WithField("domain", domain.Domain).Info("Sending domain resumed")
	return nil
}
