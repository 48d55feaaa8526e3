// Package inbound polls the reply inbox over IMAP and hands new messages
// to the reply reconciler.
package inbound

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"outreach-engine-go/internal/config"
	"outreach-engine-go/internal/reconcile"
)

// Fetcher retrieves inbound messages that arrived since the last poll
type Fetcher interface {
	FetchNewMessages(ctx context.Context) ([]reconcile.InboundMessage, error)
	Close() error
}

// IMAPFetcher implements Fetcher over IMAP
type IMAPFetcher struct {
	client    *client.Client
	lastCheck time.Time
}

// NewIMAPFetcher connects and logs in to the IMAP server
func NewIMAPFetcher(cfg *config.IMAPConfig) (*IMAPFetcher, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(cfg.User, cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	return &IMAPFetcher{
		client:    c,
		lastCheck: time.Now().Add(-24 * time.Hour), // Start with messages from last 24 hours
	}, nil
}

// FetchNewMessages fetches messages received since the last check
func (f *IMAPFetcher) FetchNewMessages(ctx context.Context) ([]reconcile.InboundMessage, error) {
	_, err := f.client.Select("INBOX", false)
	if err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = f.lastCheck

	uids, err := f.client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}

	if len(uids) == 0 {
		f.lastCheck = time.Now()
		return []reconcile.InboundMessage{}, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)

	go func() {
		done <- f.client.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchBody, imap.FetchUid}, messages)
	}()

	var inbound []reconcile.InboundMessage

	for msg := range messages {
		im, err := f.parseMessage(msg)
		if err != nil {
			logrus.Warnf("Failed to parse IMAP message: %v", err)
			continue
		}
		inbound = append(inbound, im)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	f.lastCheck = time.Now()
	return inbound, nil
}

// parseMessage converts an IMAP message into the reconciler's input shape
func (f *IMAPFetcher) parseMessage(msg *imap.Message) (reconcile.InboundMessage, error) {
	im := reconcile.InboundMessage{
		ReceivedAt: time.Now(),
	}

	if msg.Envelope != nil {
		im.Subject = msg.Envelope.Subject
		im.MessageID = msg.Envelope.MessageId
		im.ReceivedAt = msg.Envelope.Date
		if len(msg.Envelope.From) > 0 {
			im.From = msg.Envelope.From[0].Address()
		}
		if len(msg.Envelope.To) > 0 {
			im.To = msg.Envelope.To[0].Address()
		}
	}
	if im.MessageID == "" {
		// Some servers omit Message-ID; synthesize one so idempotency
		// bookkeeping still has a key
		im.MessageID = fmt.Sprintf("synthetic-%s", uuid.NewString())
	}

	if err := f.parseBody(msg, &im); err != nil {
		return im, err
	}

	return im, nil
}

// parseBody extracts the text and HTML parts of the message body
func (f *IMAPFetcher) parseBody(msg *imap.Message, im *reconcile.InboundMessage) error {
	if msg.Body == nil {
		return nil
	}

	section := &imap.BodySectionName{}
	r := msg.GetBody(section)
	if r == nil {
		return fmt.Errorf("failed to get message body")
	}

	entity, err := message.Read(r)
	if err != nil {
		return fmt.Errorf("failed to read message: %w", err)
	}

	if mr := entity.MultipartReader(); mr != nil {
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("failed to read part: %w", err)
			}

			content, err := io.ReadAll(p.Body)
			if err != nil {
				return fmt.Errorf("failed to read part body: %w", err)
			}

			contentType := p.Header.Get("Content-Type")
			if strings.Contains(contentType, "text/plain") {
				im.Body = string(content)
			} else if strings.Contains(contentType, "text/html") {
				im.HTMLBody = string(content)
			}
		}
	} else {
		content, err := io.ReadAll(entity.Body)
		if err != nil {
			return fmt.Errorf("failed to read message body: %w", err)
		}

		contentType := entity.Header.Get("Content-Type")
		if strings.Contains(contentType, "text/html") {
			im.HTMLBody = string(content)
		} else {
			im.Body = string(content)
		}
	}

	return nil
}

// Close logs out of the IMAP session
func (f *IMAPFetcher) Close() error {
	return f.client.Logout()
}
