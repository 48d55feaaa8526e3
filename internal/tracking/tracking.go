// Package tracking embeds open/click tracking into outbound messages and
// records engagement events.
package tracking

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"outreach-engine-go/internal/models"
)

// EventStore persists tracking events
type EventStore interface {
	CreateTrackingEvent(event *models.TrackingEvent) error
}

// Options toggles which signals are embedded
type Options struct {
	TrackOpens  bool
	TrackClicks bool
}

// Embedder rewrites HTML bodies to carry an open pixel and click-redirect
// links pointing back at this service
type Embedder struct {
	baseURL string
	store   EventStore
}

// NewEmbedder creates a tracking embedder. baseURL is the public address
// serving the /t/open and /t/click endpoints.
func NewEmbedder(baseURL string, store EventStore) *Embedder {
	return &Embedder{baseURL: strings.TrimRight(baseURL, "/"), store: store}
}

var hrefPattern = regexp.MustCompile(`href="(https?://[^"]+)"`)

// Embed returns the HTML body with tracking applied. Failures are not
// possible here by construction; callers still treat embedding as
// best-effort since the body may not be HTML at all.
func (e *Embedder) Embed(htmlBody, trackingID string, opts Options) string {
	if e.baseURL == "" || htmlBody == "" {
		return htmlBody
	}

	out := htmlBody

	if opts.TrackClicks {
		out = hrefPattern.ReplaceAllStringFunc(out, func(match string) string {
			target := hrefPattern.FindStringSubmatch(match)[1]
			redirect := fmt.Sprintf("%s/t/click/%s?url=%s", e.baseURL, trackingID, url.QueryEscape(target))
			return fmt.Sprintf(`href="%s"`, redirect)
		})
	}

	if opts.TrackOpens {
		pixel := fmt.Sprintf(`<img src="%s/t/open/%s" width="1" height="1" alt="" style="display:none">`, e.baseURL, trackingID)
		if idx := strings.LastIndex(strings.ToLower(out), "</body>"); idx >= 0 {
			out = out[:idx] + pixel + out[idx:]
		} else {
			out += pixel
		}
	}

	return out
}

// RecordOpen persists an open event for a tracking ID
func (e *Embedder) RecordOpen(trackingID, ip, userAgent string) error {
	return e.record(&models.TrackingEvent{
		TrackingID: trackingID,
		EventType:  models.TrackingEventOpen,
		IPAddress:  ip,
		UserAgent:  userAgent,
	})
}

// RecordClick persists a click event and returns nothing beyond the error;
// the caller handles the redirect
func (e *Embedder) RecordClick(trackingID, targetURL, ip, userAgent string) error {
	return e.record(&models.TrackingEvent{
		TrackingID: trackingID,
		EventType:  models.TrackingEventClick,
		URL:        targetURL,
		IPAddress:  ip,
		UserAgent:  userAgent,
	})
}

func (e *Embedder) record(event *models.TrackingEvent) error {
	if err := e.store.CreateTrackingEvent(event); err != nil {
		logrus.WithFields(logrus.Fields{
			"tracking_id": event.TrackingID,
			"event_type":  event.EventType,
		}).Errorf("Failed to record tracking event: %v", err)
		return err
	}
	return nil
}
