package models

import "time"

// ErrorResponse is the standard error payload for API responses
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse is the health check payload
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Database  string            `json:"database"`
	Metrics   map[string]string `json:"metrics"`
}

// SendingDomainRequest is the payload for creating a sending domain
type SendingDomainRequest struct {
	Domain             string `json:"domain" binding:"required"`
	DisplayName        string `json:"display_name"`
	FromEmail          string `json:"from_email" binding:"required,email"`
	WarmupSchedule     string `json:"warmup_schedule"`
	DailyLimitOverride int    `json:"daily_limit_override"`
	HealthScore        *int   `json:"health_score"`
}

// InboundMessageRequest is the webhook payload for an inbound reply
type InboundMessageRequest struct {
	MessageID string `json:"message_id" binding:"required"`
	From      string `json:"from" binding:"required"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	HTMLBody  string `json:"html_body"`
}
