package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach-engine-go/internal/metrics"
	"outreach-engine-go/internal/models"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// promauto registers on the default registry; one set per test binary
var testMetrics = metrics.NewMetrics()

type fakeStore struct {
	lead        *models.Lead
	sequence    *models.EmailSequence
	touchpoints []*models.LeadTouchpoint
	messages    []models.InboxMessage
	processed   map[string]bool

	failListMessages  bool
	failCreateMessage bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{processed: make(map[string]bool)}
}

func (s *fakeStore) GetLeadByEmail(email string) (*models.Lead, error) {
	if s.lead != nil && s.lead.Email == email {
		return s.lead, nil
	}
	return nil, nil
}

func (s *fakeStore) SaveLead(lead *models.Lead) error {
	s.lead = lead
	return nil
}

func (s *fakeStore) GetActiveSequence(leadID uint) (*models.EmailSequence, error) {
	if s.sequence != nil && s.sequence.LeadID == leadID && s.sequence.Status == models.SequenceStatusActive {
		return s.sequence, nil
	}
	return nil, nil
}

func (s *fakeStore) SaveSequence(seq *models.EmailSequence) error {
	s.sequence = seq
	return nil
}

func (s *fakeStore) CancelPendingTouchpoints(leadID uint) (int, error) {
	n := 0
	for _, tp := range s.touchpoints {
		if tp.LeadID == leadID && tp.Status == models.TouchpointStatusPending {
			tp.Status = models.TouchpointStatusCancelled
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) GetLatestSentTouchpoint(leadID uint) (*models.LeadTouchpoint, error) {
	var latest *models.LeadTouchpoint
	for _, tp := range s.touchpoints {
		if tp.LeadID != leadID || tp.Status != models.TouchpointStatusSent || tp.SentAt == nil {
			continue
		}
		if latest == nil || tp.SentAt.After(*latest.SentAt) {
			latest = tp
		}
	}
	return latest, nil
}

func (s *fakeStore) SaveTouchpoint(tp *models.LeadTouchpoint) error {
	for i := range s.touchpoints {
		if s.touchpoints[i].ID == tp.ID {
			s.touchpoints[i] = tp
			return nil
		}
	}
	s.touchpoints = append(s.touchpoints, tp)
	return nil
}

func (s *fakeStore) ListMessages(leadID uint) ([]models.InboxMessage, error) {
	if s.failListMessages {
		return nil, errors.New("messages unavailable")
	}
	var out []models.InboxMessage
	for _, m := range s.messages {
		if m.LeadID == leadID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateInboxMessage(msg *models.InboxMessage) error {
	if s.failCreateMessage {
		return errors.New("insert failed")
	}
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *fakeStore) IsMessageProcessed(messageID string) (bool, error) {
	return s.processed[messageID], nil
}

func (s *fakeStore) MarkMessageProcessed(messageID string) error {
	s.processed[messageID] = true
	return nil
}

type fakeDrafter struct {
	draft      string
	err        error
	calls      int
	bookingURL string
}

func (d *fakeDrafter) Generate(_ context.Context, _ *models.Lead, _ InboundMessage, _ []models.InboxMessage, bookingURL string) (string, error) {
	d.calls++
	d.bookingURL = bookingURL
	return d.draft, d.err
}

type fakeClassifier struct {
	assessment Assessment
	err        error
	calls      int
}

func (c *fakeClassifier) Assess(_ context.Context, _ []models.InboxMessage) (Assessment, error) {
	c.calls++
	return c.assessment, c.err
}

type fakeBooking struct {
	url string
	err error
}

func (b *fakeBooking) SchedulingURL() (string, error) { return b.url, b.err }

type fakeCRM struct {
	err   error
	calls int
}

func (c *fakeCRM) Sync(_ context.Context, _ uint) error {
	c.calls++
	return c.err
}

func seedStore(store *fakeStore) {
	store.lead = &models.Lead{
		ID:     7,
		Email:  "jordan@prospect.example.com",
		Status: models.LeadStatusContacted,
	}
	store.sequence = &models.EmailSequence{
		ID:          3,
		LeadID:      7,
		Status:      models.SequenceStatusActive,
		CurrentStep: 2,
		TotalSteps:  3,
		StartedAt:   testNow.AddDate(0, 0, -3),
	}
	sentAt := testNow.Add(-48 * time.Hour)
	store.touchpoints = []*models.LeadTouchpoint{
		{ID: 1, LeadID: 7, SequenceID: 3, StepNumber: 1, Status: models.TouchpointStatusSent, SentAt: &sentAt},
		{ID: 2, LeadID: 7, SequenceID: 3, StepNumber: 2, Status: models.TouchpointStatusPending},
		{ID: 3, LeadID: 7, SequenceID: 3, StepNumber: 3, Status: models.TouchpointStatusPending},
	}
}

func inboundMsg() InboundMessage {
	return InboundMessage{
		MessageID:  "imsg-1",
		From:       "Jordan Lee <Jordan@Prospect.example.com>",
		To:         "alex@mail1.example.com",
		Subject:    "Re: Quick question",
		Body:       "Sounds interesting, tell me more.",
		ReceivedAt: testNow,
	}
}

func newReconciler(store *fakeStore, drafts DraftGenerator, classifier MeetingClassifier,
	booking BookingProvider, crm CRMSyncer) *Reconciler {
	r := New(store, drafts, classifier, booking, crm, testMetrics)
	r.SetClock(func() time.Time { return testNow })
	return r
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Jordan Lee <Jordan@Prospect.example.com>", "jordan@prospect.example.com"},
		{"jordan@prospect.example.com", "jordan@prospect.example.com"},
		{"  UPPER@CASE.COM  ", "upper@case.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeAddress(tt.raw))
	}
}

func TestProcessInboundCoreTransitions(t *testing.T) {
	store := newFakeStore()
	seedStore(store)
	drafts := &fakeDrafter{draft: "Thanks Jordan, happy to expand."}
	crm := &fakeCRM{}
	r := newReconciler(store, drafts, nil, nil, crm)

	result, err := r.ProcessInbound(context.Background(), inboundMsg())
	require.NoError(t, err)

	assert.True(t, result.LeadFound)
	assert.True(t, result.SequenceStopped)
	assert.Equal(t, 2, result.TouchpointsCancelled)
	assert.True(t, result.TouchpointReplied)

	assert.Equal(t, models.SequenceStatusStopped, store.sequence.Status)
	assert.Equal(t, StopReasonReplied, store.sequence.StopReason)
	require.NotNil(t, store.sequence.StoppedAt)

	assert.Equal(t, models.TouchpointStatusReplied, store.touchpoints[0].Status)
	assert.Equal(t, models.TouchpointStatusCancelled, store.touchpoints[1].Status)
	assert.Equal(t, models.TouchpointStatusCancelled, store.touchpoints[2].Status)

	assert.Equal(t, models.LeadStatusReplied, store.lead.Status)

	// Inbound message persisted with the draft attached
	require.Len(t, store.messages, 1)
	assert.Equal(t, models.DirectionInbound, store.messages[0].Direction)
	assert.Equal(t, "jordan@prospect.example.com", store.messages[0].FromAddress)
	assert.Equal(t, drafts.draft, store.messages[0].Draft)

	assert.Equal(t, 1, crm.calls)
}

func TestProcessInboundUnknownSender(t *testing.T) {
	store := newFakeStore()
	seedStore(store)
	r := newReconciler(store, nil, nil, nil, nil)

	result, err := r.ProcessInbound(context.Background(), InboundMessage{
		MessageID: "imsg-x",
		From:      "stranger@elsewhere.example.com",
		Body:      "unsubscribe",
	})

	require.NoError(t, err, "unsolicited mail is not an error")
	assert.False(t, result.LeadFound)
	assert.Equal(t, models.SequenceStatusActive, store.sequence.Status)
}

func TestProcessInboundReplayIsNoop(t *testing.T) {
	store := newFakeStore()
	seedStore(store)
	drafts := &fakeDrafter{draft: "draft"}
	crm := &fakeCRM{}
	r := newReconciler(store, drafts, nil, nil, crm)

	_, err := r.ProcessInbound(context.Background(), inboundMsg())
	require.NoError(t, err)

	result, err := r.ProcessInbound(context.Background(), inboundMsg())
	require.NoError(t, err)

	assert.True(t, result.AlreadyProcessed)
	assert.Equal(t, 1, drafts.calls, "side effects must not run twice")
	assert.Equal(t, 1, crm.calls)
	assert.Len(t, store.messages, 1)
}

func TestProcessInboundIdempotentTransitions(t *testing.T) {
	store := newFakeStore()
	seedStore(store)
	r := newReconciler(store, nil, nil, nil, nil)

	msg := inboundMsg()
	_, err := r.ProcessInbound(context.Background(), msg)
	require.NoError(t, err)

	// Second distinct message from the same lead: transitions find nothing
	// left to change
	msg.MessageID = "imsg-2"
	result, err := r.ProcessInbound(context.Background(), msg)
	require.NoError(t, err)

	assert.False(t, result.SequenceStopped, "sequence already stopped")
	assert.Equal(t, 0, result.TouchpointsCancelled)
	assert.False(t, result.TouchpointReplied, "touchpoint already marked replied")
}

func TestProcessInboundSideEffectFailuresDoNotAbort(t *testing.T) {
	store := newFakeStore()
	seedStore(store)
	store.failListMessages = true
	drafts := &fakeDrafter{err: errors.New("llm unavailable")}
	crm := &fakeCRM{err: errors.New("crm down")}
	r := newReconciler(store, drafts, nil, nil, crm)

	result, err := r.ProcessInbound(context.Background(), inboundMsg())
	require.NoError(t, err, "enrichment failures never abort reconciliation")

	// Core transitions committed regardless
	assert.Equal(t, models.SequenceStatusStopped, store.sequence.Status)
	assert.Equal(t, models.LeadStatusReplied, store.lead.Status)

	failed := map[string]bool{}
	for _, eff := range result.Effects {
		if !eff.OK {
			failed[eff.Name] = true
		}
	}
	assert.True(t, failed["conversation-history"])
	assert.True(t, failed["draft-reply"])
	assert.True(t, failed["crm-sync"])

	// The inbound message still landed, without a draft
	require.Len(t, store.messages, 1)
	assert.Empty(t, store.messages[0].Draft)
}

func TestProcessInboundMeetingReadiness(t *testing.T) {
	store := newFakeStore()
	seedStore(store)
	drafts := &fakeDrafter{draft: "See the booking link below."}
	classifier := &fakeClassifier{assessment: Assessment{IsReady: true, Confidence: 0.9, Scenario: "ready-to-book"}}
	booking := &fakeBooking{url: "https://cal.example.com/alex/30min"}
	r := newReconciler(store, drafts, classifier, booking, nil)

	msg := inboundMsg()
	msg.Body = "This looks great, can we schedule a call next week?"

	_, err := r.ProcessInbound(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, 1, classifier.calls)
	assert.Equal(t, "https://cal.example.com/alex/30min", drafts.bookingURL)
}

func TestProcessInboundLowConfidenceSkipsBooking(t *testing.T) {
	store := newFakeStore()
	seedStore(store)
	drafts := &fakeDrafter{draft: "d"}
	classifier := &fakeClassifier{assessment: Assessment{IsReady: true, Confidence: 0.5}}
	booking := &fakeBooking{url: "https://cal.example.com/alex/30min"}
	r := newReconciler(store, drafts, classifier, booking, nil)

	msg := inboundMsg()
	msg.Body = "Can we schedule something?"

	_, err := r.ProcessInbound(context.Background(), msg)
	require.NoError(t, err)
	assert.Empty(t, drafts.bookingURL)
}

func TestProcessInboundNoSchedulingLanguageSkipsClassifier(t *testing.T) {
	store := newFakeStore()
	seedStore(store)
	classifier := &fakeClassifier{}
	booking := &fakeBooking{url: "https://cal.example.com/alex/30min"}
	r := newReconciler(store, nil, classifier, booking, nil)

	_, err := r.ProcessInbound(context.Background(), inboundMsg())
	require.NoError(t, err)
	assert.Equal(t, 0, classifier.calls)
}

func TestProcessInboundUnconfiguredBookingIsNonFatal(t *testing.T) {
	store := newFakeStore()
	seedStore(store)
	drafts := &fakeDrafter{draft: "d"}
	classifier := &fakeClassifier{assessment: Assessment{IsReady: true, Confidence: 0.8}}
	booking := &fakeBooking{err: errors.New("no scheduling url configured")}
	r := newReconciler(store, drafts, classifier, booking, nil)

	msg := inboundMsg()
	msg.Body = "Happy to meet, what's your availability?"

	result, err := r.ProcessInbound(context.Background(), msg)
	require.NoError(t, err)

	for _, eff := range result.Effects {
		if eff.Name == "meeting-readiness" {
			assert.True(t, eff.OK, "missing booking link must not fail the effect")
		}
	}
	assert.Empty(t, drafts.bookingURL)
	assert.Equal(t, 1, drafts.calls, "draft still generated without a link")
}
