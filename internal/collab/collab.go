// Package collab holds the built-in implementations of the reconciler's
// external collaborators. Each one is deliberately small; deployments with a
// real AI drafter or CRM swap these out behind the reconcile interfaces.
package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"outreach-engine-go/internal/models"
	"outreach-engine-go/internal/reconcile"
)

// StaticBooking returns a fixed scheduling link from configuration
type StaticBooking struct {
	URL string
}

// SchedulingURL returns the configured link, or an error when none is set
func (b *StaticBooking) SchedulingURL() (string, error) {
	if b.URL == "" {
		return "", fmt.Errorf("no booking URL configured")
	}
	return b.URL, nil
}

// TemplateDrafts generates a plain acknowledgement draft. It stands in for
// an AI drafter and keeps the draft-reply effect exercisable without one.
type TemplateDrafts struct{}

// Generate produces a short reply draft referencing the booking link when
// one is available
func (d *TemplateDrafts) Generate(_ context.Context, lead *models.Lead, incoming reconcile.InboundMessage,
	_ []models.InboxMessage, bookingURL string) (string, error) {
	var b strings.Builder
	name := lead.FirstName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\nThanks for getting back to me", name)
	if incoming.Subject != "" {
		fmt.Fprintf(&b, " about %q", strings.TrimPrefix(incoming.Subject, "Re: "))
	}
	b.WriteString(".\n\n")
	if bookingURL != "" {
		fmt.Fprintf(&b, "Feel free to grab a time that works for you here: %s\n\n", bookingURL)
	}
	b.WriteString("Best,\n")
	return b.String(), nil
}

var positiveSignals = []string{
	"sounds good", "let's do it", "works for me", "happy to chat",
	"interested", "send me", "book", "schedule a call",
}

// KeywordClassifier is a heuristic meeting-readiness classifier over the
// conversation history
type KeywordClassifier struct{}

// Assess scores the latest inbound messages for scheduling intent
func (c *KeywordClassifier) Assess(_ context.Context, history []models.InboxMessage) (reconcile.Assessment, error) {
	if len(history) == 0 {
		return reconcile.Assessment{}, nil
	}

	hits := 0
	for i := range history {
		body := strings.ToLower(history[i].Body)
		for _, sig := range positiveSignals {
			if strings.Contains(body, sig) {
				hits++
				break
			}
		}
	}

	confidence := float64(hits) / float64(len(history))
	return reconcile.Assessment{
		IsReady:    hits > 0,
		Confidence: confidence,
		Scenario:   "scheduling_intent",
	}, nil
}

// HTTPCRMSyncer pushes lead updates to an external CRM over HTTP
type HTTPCRMSyncer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPCRMSyncer creates a CRM syncer for the given base URL
func NewHTTPCRMSyncer(baseURL string) *HTTPCRMSyncer {
	return &HTTPCRMSyncer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Sync notifies the CRM that a lead replied
func (s *HTTPCRMSyncer) Sync(ctx context.Context, leadID uint) error {
	payload, err := json.Marshal(map[string]interface{}{
		"lead_id": leadID,
		"status":  models.LeadStatusReplied,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal CRM payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/leads/sync", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build CRM request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("CRM sync request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("CRM sync returned status %d", resp.StatusCode)
	}
	return nil
}
