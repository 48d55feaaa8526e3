// Package dispatch orchestrates a single outbound send: domain selection,
// transport delivery, and the bookkeeping that follows.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"outreach-engine-go/internal/cadence"
	"outreach-engine-go/internal/ledger"
	"outreach-engine-go/internal/metrics"
	"outreach-engine-go/internal/models"
	"outreach-engine-go/internal/selector"
	"outreach-engine-go/internal/tracking"
)

// ErrNoCapacity means every domain is paused or at its daily limit. The
// touchpoint stays pending and is retried on a later tick.
var ErrNoCapacity = errors.New("no sending capacity available")

// ErrNotPending means the touchpoint was cancelled or already sent between
// scheduling and dispatch, usually because a reply arrived in the gap.
var ErrNotPending = errors.New("touchpoint is no longer pending")

// OutboundEmail is the message handed to the transport
type OutboundEmail struct {
	From     string
	FromName string
	To       string
	Subject  string
	TextBody string
	HTMLBody string
	ReplyTo  string
}

// Transport delivers one email and returns the transport message ID. It is
// an external capability; the engine never implements SMTP itself.
type Transport interface {
	Send(ctx context.Context, email OutboundEmail) (string, error)
}

// Store is the persistence surface the executor needs
type Store interface {
	GetTouchpoint(id uint) (*models.LeadTouchpoint, error)
	SaveTouchpoint(tp *models.LeadTouchpoint) error
	GetPendingTouchpointByStep(leadID uint, step int) (*models.LeadTouchpoint, error)
	GetSequence(id uint) (*models.EmailSequence, error)
	SaveSequence(seq *models.EmailSequence) error
	GetLead(id uint) (*models.Lead, error)
	SaveLead(lead *models.Lead) error
	CreateInboxMessage(msg *models.InboxMessage) error
}

// Result reports the outcome of one dispatch attempt
type Result struct {
	Success    bool
	MessageID  string
	DomainUsed string
	TrackingID string
	Err        error
}

// Executor runs the send pipeline for due touchpoints
type Executor struct {
	store     Store
	selector  *selector.Selector
	ledger    *ledger.Ledger
	cadence   *cadence.Scheduler
	embedder  *tracking.Embedder
	hints     selector.HintExtractor
	transport Transport
	metrics   *metrics.Metrics
	trackOpts tracking.Options
	now       func() time.Time
}

// NewExecutor creates a dispatch executor
func NewExecutor(store Store, sel *selector.Selector, l *ledger.Ledger, cad *cadence.Scheduler,
	embedder *tracking.Embedder, hints selector.HintExtractor, transport Transport,
	m *metrics.Metrics, trackOpts tracking.Options) *Executor {
	return &Executor{
		store:     store,
		selector:  sel,
		ledger:    l,
		cadence:   cad,
		embedder:  embedder,
		hints:     hints,
		transport: transport,
		metrics:   m,
		trackOpts: trackOpts,
		now:       time.Now,
	}
}

// SetClock overrides the executor clock, for tests
func (e *Executor) SetClock(now func() time.Time) { e.now = now }

// Dispatch sends one touchpoint. The transport call comes first and the
// bookkeeping second: capacity is never consumed for a message that was not
// actually delivered. A post-delivery bookkeeping failure is logged loudly
// and reported, but the message is never re-sent.
func (e *Executor) Dispatch(ctx context.Context, touchpointID uint) Result {
	start := e.now()
	defer func() {
		e.metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	}()

	tp, err := e.store.GetTouchpoint(touchpointID)
	if err != nil {
		return e.failure(fmt.Errorf("failed to load touchpoint %d: %w", touchpointID, err))
	}

	// Re-check state right before sending to close the race between the
	// scheduler deciding to send and a reply arriving
	if tp.Status != models.TouchpointStatusPending {
		return Result{Err: ErrNotPending}
	}
	if tp.SequenceID != 0 {
		seq, err := e.store.GetSequence(tp.SequenceID)
		if err != nil {
			return e.failure(fmt.Errorf("failed to load sequence %d: %w", tp.SequenceID, err))
		}
		if seq.Status != models.SequenceStatusActive {
			return Result{Err: ErrNotPending}
		}
	}

	lead, err := e.store.GetLead(tp.LeadID)
	if err != nil {
		return e.failure(fmt.Errorf("failed to load lead %d: %w", tp.LeadID, err))
	}

	hint := e.hints.ExtractName(tp.Body)

	sel, err := e.selector.Select(hint, 0)
	if err != nil {
		return e.failure(fmt.Errorf("domain selection failed: %w", err))
	}
	if sel == nil {
		e.metrics.CapacityExhausted.Inc()
		logrus.WithField("touchpoint_id", tp.ID).Info("No sending capacity available, deferring dispatch")
		return Result{Err: ErrNoCapacity}
	}

	trackingID := uuid.NewString()
	htmlBody := tp.HTMLBody
	if htmlBody != "" {
		// Best-effort; a body that defeats the embedder still gets sent
		htmlBody = e.embedder.Embed(htmlBody, trackingID, e.trackOpts)
	}

	messageID, err := e.transport.Send(ctx, OutboundEmail{
		From:     sel.Domain.FromEmail,
		FromName: sel.Domain.DisplayName,
		To:       lead.Email,
		Subject:  tp.Subject,
		TextBody: tp.Body,
		HTMLBody: htmlBody,
		ReplyTo:  sel.Domain.FromEmail,
	})
	if err != nil {
		// Transport failed: no ledger mutation, the error goes back verbatim
		e.metrics.TransportFailures.Inc()
		e.metrics.DispatchFailures.Inc()
		return Result{Err: err}
	}

	result := Result{
		Success:    true,
		MessageID:  messageID,
		DomainUsed: sel.Domain.Domain,
		TrackingID: trackingID,
	}

	if err := e.bookkeep(tp, lead, &sel.Domain, messageID, trackingID, htmlBody); err != nil {
		// Message is out but state is behind. Surface it loudly; a re-send
		// would double-contact the lead, so we never retry the transport.
		logrus.WithFields(logrus.Fields{
			"touchpoint_id": tp.ID,
			"lead_id":       lead.ID,
			"domain":        sel.Domain.Domain,
			"message_id":    messageID,
		}).Errorf("Message sent but bookkeeping failed, state is inconsistent: %v", err)
		result.Err = err
	}

	e.metrics.DispatchSuccesses.Inc()
	return result
}

// bookkeep commits post-send state: ledger, outbound message record,
// touchpoint transition, cadence advance, lead contact stamp
func (e *Executor) bookkeep(tp *models.LeadTouchpoint, lead *models.Lead, domain *models.SendingDomain,
	messageID, trackingID, htmlBody string) error {
	if err := e.ledger.RecordSend(domain.ID); err != nil {
		return err
	}

	now := e.now()

	var seqID *uint
	if tp.SequenceID != 0 {
		id := tp.SequenceID
		seqID = &id
	}
	tpID := tp.ID
	if err := e.store.CreateInboxMessage(&models.InboxMessage{
		LeadID:       lead.ID,
		SequenceID:   seqID,
		TouchpointID: &tpID,
		Direction:    models.DirectionOutbound,
		MessageID:    messageID,
		FromAddress:  domain.FromEmail,
		ToAddress:    lead.Email,
		Subject:      tp.Subject,
		Body:         tp.Body,
		HTMLBody:     htmlBody,
		ReceivedAt:   now,
	}); err != nil {
		return fmt.Errorf("failed to record outbound message: %w", err)
	}

	tp.Status = models.TouchpointStatusSent
	tp.SentAt = &now
	tp.TrackingID = trackingID
	if err := e.store.SaveTouchpoint(tp); err != nil {
		return fmt.Errorf("failed to mark touchpoint sent: %w", err)
	}

	if tp.SequenceID != 0 {
		if err := e.advanceSequence(tp); err != nil {
			return err
		}
	}

	lead.LastContact = &now
	if lead.Status == models.LeadStatusNew {
		lead.Status = models.LeadStatusContacted
	}
	if err := e.store.SaveLead(lead); err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}

	return nil
}

// advanceSequence moves the sequence forward and re-anchors the next
// pending touchpoint's due time to the cadence table
func (e *Executor) advanceSequence(tp *models.LeadTouchpoint) error {
	seq, err := e.store.GetSequence(tp.SequenceID)
	if err != nil {
		return fmt.Errorf("failed to load sequence %d: %w", tp.SequenceID, err)
	}

	nextDue := e.cadence.Advance(seq)
	if err := e.store.SaveSequence(seq); err != nil {
		return fmt.Errorf("failed to advance sequence %d: %w", seq.ID, err)
	}

	if nextDue == nil {
		logrus.WithField("sequence_id", seq.ID).Info("Sequence completed")
		return nil
	}

	next, err := e.store.GetPendingTouchpointByStep(tp.LeadID, seq.CurrentStep)
	if err != nil {
		return fmt.Errorf("failed to load next touchpoint for lead %d: %w", tp.LeadID, err)
	}
	if next == nil {
		return nil
	}

	next.DueAt = *nextDue
	if err := e.store.SaveTouchpoint(next); err != nil {
		return fmt.Errorf("failed to schedule next touchpoint %d: %w", next.ID, err)
	}
	return nil
}

func (e *Executor) failure(err error) Result {
	e.metrics.DispatchFailures.Inc()
	logrus.Errorf("Dispatch failed: %v", err)
	return Result{Err: err}
}
