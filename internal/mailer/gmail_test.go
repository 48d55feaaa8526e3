package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"outreach-engine-go/internal/dispatch"
)

func TestBuildRawMessagePlainText(t *testing.T) {
	raw := buildRawMessage(dispatch.OutboundEmail{
		From:     "alex@mail1.example.com",
		FromName: "Alex Reed",
		To:       "jordan@prospect.example.com",
		Subject:  "Quick question",
		TextBody: "Hi Jordan",
		ReplyTo:  "alex@mail1.example.com",
	})

	assert.Contains(t, raw, "From: Alex Reed <alex@mail1.example.com>\r\n")
	assert.Contains(t, raw, "To: jordan@prospect.example.com\r\n")
	assert.Contains(t, raw, "Subject: Quick question\r\n")
	assert.Contains(t, raw, "Reply-To: alex@mail1.example.com\r\n")
	assert.Contains(t, raw, "Content-Type: text/plain; charset=UTF-8\r\n")
	assert.Contains(t, raw, "Hi Jordan")
	assert.NotContains(t, raw, "multipart/alternative")
}

func TestBuildRawMessageMultipart(t *testing.T) {
	raw := buildRawMessage(dispatch.OutboundEmail{
		From:     "alex@mail1.example.com",
		To:       "jordan@prospect.example.com",
		Subject:  "Quick question",
		TextBody: "Hi Jordan",
		HTMLBody: "<p>Hi Jordan</p>",
	})

	assert.Contains(t, raw, "From: alex@mail1.example.com\r\n")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "Content-Type: text/plain; charset=UTF-8")
	assert.Contains(t, raw, "Content-Type: text/html; charset=UTF-8")
	assert.Contains(t, raw, "<p>Hi Jordan</p>")
}
