// Package reconcile matches inbound replies to in-flight sequences and
// corrects the scheduling state they pre-empt.
package reconcile

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"outreach-engine-go/internal/metrics"
	"outreach-engine-go/internal/models"
)

// StopReasonReplied is recorded on sequences stopped by an inbound reply
const StopReasonReplied = "Lead replied"

// Meeting-readiness assessments below this confidence are ignored
const readinessThreshold = 0.7

// InboundMessage is one inbound email handed to the reconciler by an
// ingestion path (webhook or IMAP poller)
type InboundMessage struct {
	MessageID  string
	From       string
	To         string
	Subject    string
	Body       string
	HTMLBody   string
	ReceivedAt time.Time
}

// Store is the persistence surface the reconciler needs. Lookups return
// (nil, nil) when no record matches.
type Store interface {
	GetLeadByEmail(email string) (*models.Lead, error)
	SaveLead(lead *models.Lead) error
	GetActiveSequence(leadID uint) (*models.EmailSequence, error)
	SaveSequence(seq *models.EmailSequence) error
	CancelPendingTouchpoints(leadID uint) (int, error)
	GetLatestSentTouchpoint(leadID uint) (*models.LeadTouchpoint, error)
	SaveTouchpoint(tp *models.LeadTouchpoint) error
	ListMessages(leadID uint) ([]models.InboxMessage, error)
	CreateInboxMessage(msg *models.InboxMessage) error
	IsMessageProcessed(messageID string) (bool, error)
	MarkMessageProcessed(messageID string) error
}

// Assessment is a meeting-readiness classification over a thread
type Assessment struct {
	IsReady    bool
	Confidence float64
	Scenario   string
}

// DraftGenerator produces an AI draft reply; external collaborator
type DraftGenerator interface {
	Generate(ctx context.Context, lead *models.Lead, incoming InboundMessage, history []models.InboxMessage, bookingURL string) (string, error)
}

// MeetingClassifier assesses whether a thread is ready to book a meeting
type MeetingClassifier interface {
	Assess(ctx context.Context, history []models.InboxMessage) (Assessment, error)
}

// BookingProvider returns a scheduling link; may fail when unconfigured,
// which is non-fatal
type BookingProvider interface {
	SchedulingURL() (string, error)
}

// CRMSyncer pushes a lead to the CRM; best-effort
type CRMSyncer interface {
	Sync(ctx context.Context, leadID uint) error
}

// Result reports what the reconciler did, including per-effect outcomes so
// callers can surface partial success instead of a blanket failure
type Result struct {
	LeadFound            bool            `json:"lead_found"`
	AlreadyProcessed     bool            `json:"already_processed"`
	SequenceStopped      bool            `json:"sequence_stopped"`
	TouchpointsCancelled int             `json:"touchpoints_cancelled"`
	TouchpointReplied    bool            `json:"touchpoint_replied"`
	Effects              []EffectOutcome `json:"effects,omitempty"`
}

// Reconciler drives the per-lead reply state machine
type Reconciler struct {
	store      Store
	drafts     DraftGenerator
	classifier MeetingClassifier
	booking    BookingProvider
	crm        CRMSyncer
	metrics    *metrics.Metrics
	now        func() time.Time
}

// New creates a reply reconciler. Collaborators may be nil; their effects
// are skipped.
func New(store Store, drafts DraftGenerator, classifier MeetingClassifier,
	booking BookingProvider, crm CRMSyncer, m *metrics.Metrics) *Reconciler {
	return &Reconciler{
		store:      store,
		drafts:     drafts,
		classifier: classifier,
		booking:    booking,
		crm:        crm,
		metrics:    m,
		now:        time.Now,
	}
}

// SetClock overrides the reconciler clock, for tests
func (r *Reconciler) SetClock(now func() time.Time) { r.now = now }

var addressWrapper = regexp.MustCompile(`<([^<>]+)>`)

// NormalizeAddress strips a display-name wrapper and lower-cases the address
func NormalizeAddress(raw string) string {
	if m := addressWrapper.FindStringSubmatch(raw); m != nil {
		raw = m[1]
	}
	return strings.ToLower(strings.TrimSpace(raw))
}

// ProcessInbound runs the reply state machine for one inbound message.
// Core transitions (stop sequence, cancel touchpoints, mark replied) commit
// even when every enrichment effect fails.
func (r *Reconciler) ProcessInbound(ctx context.Context, msg InboundMessage) (Result, error) {
	var result Result

	sender := NormalizeAddress(msg.From)

	lead, err := r.store.GetLeadByEmail(sender)
	if err != nil {
		return result, fmt.Errorf("failed to look up lead by email: %w", err)
	}
	if lead == nil {
		// Unsolicited mail is expected, not an error
		logrus.WithField("from", sender).Debug("Inbound message does not match any lead")
		return result, nil
	}
	result.LeadFound = true

	// Replayed deliveries skip side effects; the transitions below are
	// no-ops for them anyway
	if msg.MessageID != "" {
		processed, err := r.store.IsMessageProcessed(msg.MessageID)
		if err != nil {
			return result, fmt.Errorf("failed to check message idempotency: %w", err)
		}
		if processed {
			result.AlreadyProcessed = true
			logrus.WithField("message_id", msg.MessageID).Info("Inbound message already reconciled, skipping")
			return result, nil
		}
	}

	if err := r.applyTransitions(lead, &result); err != nil {
		return result, err
	}

	result.Effects = r.runSideEffects(ctx, lead, msg)
	for _, eff := range result.Effects {
		if !eff.OK {
			r.metrics.SideEffectFailures.Inc()
			logrus.WithFields(logrus.Fields{
				"lead_id": lead.ID,
				"effect":  eff.Name,
			}).Warnf("Reply side effect failed: %v", eff.Err)
		}
	}

	if msg.MessageID != "" {
		if err := r.store.MarkMessageProcessed(msg.MessageID); err != nil {
			logrus.Errorf("Failed to mark message %s processed: %v", msg.MessageID, err)
		}
	}

	r.metrics.RepliesReconciled.Inc()
	return result, nil
}

// applyTransitions commits the core scheduling-state corrections. Each is
// idempotent: a second identical reply finds nothing left to change.
func (r *Reconciler) applyTransitions(lead *models.Lead, result *Result) error {
	seq, err := r.store.GetActiveSequence(lead.ID)
	if err != nil {
		return fmt.Errorf("failed to load active sequence for lead %d: %w", lead.ID, err)
	}
	if seq != nil {
		now := r.now()
		seq.Status = models.SequenceStatusStopped
		seq.StopReason = StopReasonReplied
		seq.StoppedAt = &now
		if err := r.store.SaveSequence(seq); err != nil {
			return fmt.Errorf("failed to stop sequence %d: %w", seq.ID, err)
		}
		result.SequenceStopped = true
		logrus.WithFields(logrus.Fields{
			"lead_id":     lead.ID,
			"sequence_id": seq.ID,
		}).Info("Sequence stopped, lead replied")
	}

	cancelled, err := r.store.CancelPendingTouchpoints(lead.ID)
	if err != nil {
		return fmt.Errorf("failed to cancel pending touchpoints for lead %d: %w", lead.ID, err)
	}
	result.TouchpointsCancelled = cancelled

	// The most recently sent touchpoint is the one being answered
	sent, err := r.store.GetLatestSentTouchpoint(lead.ID)
	if err != nil {
		return fmt.Errorf("failed to load latest sent touchpoint for lead %d: %w", lead.ID, err)
	}
	if sent != nil {
		sent.Status = models.TouchpointStatusReplied
		if err := r.store.SaveTouchpoint(sent); err != nil {
			return fmt.Errorf("failed to mark touchpoint %d replied: %w", sent.ID, err)
		}
		result.TouchpointReplied = true
	}

	if lead.Status != models.LeadStatusReplied {
		lead.Status = models.LeadStatusReplied
		if err := r.store.SaveLead(lead); err != nil {
			return fmt.Errorf("failed to update lead %d status: %w", lead.ID, err)
		}
	}

	return nil
}

var schedulingLanguage = regexp.MustCompile(`(?i)\b(schedule|calendar|calendly|availability|available|meeting|meet|call|demo|time to (chat|talk))\b`)

// runSideEffects performs the independent best-effort enrichments. Later
// effects consume earlier results when available and degrade when not.
func (r *Reconciler) runSideEffects(ctx context.Context, lead *models.Lead, msg InboundMessage) []EffectOutcome {
	var (
		history    []models.InboxMessage
		bookingURL string
		draft      string
	)

	effects := []effect{
		{"conversation-history", func() error {
			var err error
			history, err = r.store.ListMessages(lead.ID)
			return err
		}},
		{"meeting-readiness", func() error {
			if r.classifier == nil || r.booking == nil {
				return nil
			}
			if !schedulingLanguage.MatchString(msg.Body) && !schedulingLanguage.MatchString(msg.Subject) {
				return nil
			}
			assessment, err := r.classifier.Assess(ctx, history)
			if err != nil {
				return err
			}
			if !assessment.IsReady || assessment.Confidence < readinessThreshold {
				return nil
			}
			url, err := r.booking.SchedulingURL()
			if err != nil {
				// Booking link is optional; unconfigured is non-fatal
				logrus.Debugf("No booking link available: %v", err)
				return nil
			}
			bookingURL = url
			return nil
		}},
		{"draft-reply", func() error {
			if r.drafts == nil {
				return nil
			}
			var err error
			draft, err = r.drafts.Generate(ctx, lead, msg, history, bookingURL)
			return err
		}},
		{"persist-inbound", func() error {
			return r.store.CreateInboxMessage(&models.InboxMessage{
				LeadID:      lead.ID,
				Direction:   models.DirectionInbound,
				MessageID:   msg.MessageID,
				FromAddress: NormalizeAddress(msg.From),
				ToAddress:   NormalizeAddress(msg.To),
				Subject:     msg.Subject,
				Body:        msg.Body,
				HTMLBody:    msg.HTMLBody,
				Draft:       draft,
				ReceivedAt:  msg.ReceivedAt,
			})
		}},
		{"crm-sync", func() error {
			if r.crm == nil {
				return nil
			}
			return r.crm.Sync(ctx, lead.ID)
		}},
	}

	return runAll(effects)
}
