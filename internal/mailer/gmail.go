// Package mailer delivers outbound email through the Gmail API.
package mailer

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"outreach-engine-go/internal/config"
	"outreach-engine-go/internal/dispatch"
)

// GmailTransport implements dispatch.Transport over the Gmail API
type GmailTransport struct {
	service   *gmail.Service
	userEmail string
}

// NewGmailTransport creates a Gmail transport from OAuth2 refresh-token
// credentials
func NewGmailTransport(cfg *config.MailerConfig) (*GmailTransport, error) {
	ctx := context.Background()

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailSendScope},
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	tokenSource := oauth2Config.TokenSource(ctx, token)

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &GmailTransport{
		service:   service,
		userEmail: cfg.UserEmail,
	}, nil
}

// Send delivers one email and returns the Gmail message ID. Quota errors
// are retried with backoff; other errors fail immediately.
func (t *GmailTransport) Send(ctx context.Context, email dispatch.OutboundEmail) (string, error) {
	raw := buildRawMessage(email)
	encoded := base64.URLEncoding.EncodeToString([]byte(raw))

	message := &gmail.Message{
		Raw: encoded,
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		sent, err := t.service.Users.Messages.Send(t.userEmail, message).Context(ctx).Do()
		if err == nil {
			logrus.WithFields(logrus.Fields{
				"to":         email.To,
				"message_id": sent.Id,
			}).Info("Email delivered")
			return sent.Id, nil
		}

		lastErr = err
		logrus.Warnf("Failed to send email (attempt %d/%d): %v", attempt, 3, err)

		if strings.Contains(err.Error(), "quota") || strings.Contains(err.Error(), "rate") {
			waitTime := time.Duration(attempt*attempt) * time.Second
			logrus.Infof("Rate limited, waiting %v before retry", waitTime)
			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		} else {
			break
		}
	}

	return "", fmt.Errorf("failed to send email after retries: %w", lastErr)
}

// buildRawMessage assembles an RFC 2822 message, multipart/alternative when
// both text and HTML bodies are present
func buildRawMessage(email dispatch.OutboundEmail) string {
	var b strings.Builder

	from := email.From
	if email.FromName != "" {
		from = fmt.Sprintf("%s <%s>", email.FromName, email.From)
	}

	b.WriteString(fmt.Sprintf("From: %s\r\n", from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", email.To))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	if email.ReplyTo != "" {
		b.WriteString(fmt.Sprintf("Reply-To: %s\r\n", email.ReplyTo))
	}
	b.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	b.WriteString("MIME-Version: 1.0\r\n")

	if email.HTMLBody == "" {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		b.WriteString("Content-Transfer-Encoding: 7bit\r\n")
		b.WriteString("\r\n")
		b.WriteString(email.TextBody)
		return b.String()
	}

	boundary := fmt.Sprintf("outreach-%d", time.Now().UnixNano())
	b.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary))
	b.WriteString("\r\n")

	b.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 7bit\r\n\r\n")
	b.WriteString(email.TextBody)
	b.WriteString("\r\n")

	b.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 7bit\r\n\r\n")
	b.WriteString(email.HTMLBody)
	b.WriteString("\r\n")

	b.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	return b.String()
}

// TestConnection verifies the Gmail API credentials
func (t *GmailTransport) TestConnection(ctx context.Context) error {
	_, err := t.service.Users.GetProfile(t.userEmail).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to test Gmail API connection: %w", err)
	}
	return nil
}

// Close closes the transport (no-op for Gmail API)
func (t *GmailTransport) Close() error {
	return nil
}
