package models

import (
	"time"

	"gorm.io/gorm"
)

// InboxMessage directions
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// InboxMessage is an immutable record of one email in a thread. Only
// IsRead and Draft may change after creation.
type InboxMessage struct {
	ID           uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	LeadID       uint   `json:"lead_id" gorm:"not null;index"`
	SequenceID   *uint  `json:"sequence_id" gorm:"index"`
	TouchpointID *uint  `json:"touchpoint_id" gorm:"index"`
	Direction    string `json:"direction" gorm:"type:varchar(20);not null;index"`

	MessageID   string `json:"message_id" gorm:"type:varchar(255);index"` // transport message identifier
	FromAddress string `json:"from_address" gorm:"type:varchar(255);not null"`
	ToAddress   string `json:"to_address" gorm:"type:varchar(255);not null"`
	Subject     string `json:"subject" gorm:"type:varchar(500)"`
	Body        string `json:"body" gorm:"type:text"`
	HTMLBody    string `json:"html_body" gorm:"type:text"`

	IsRead bool   `json:"is_read" gorm:"default:false"`
	Draft  string `json:"draft" gorm:"type:text"` // AI-generated draft reply, inbound only

	ReceivedAt time.Time      `json:"received_at"`
	CreatedAt  time.Time      `json:"created_at"`
	DeletedAt  gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for InboxMessage
func (InboxMessage) TableName() string {
	return "inbox_messages"
}

// ProcessedMessage records an inbound transport message ID that has already
// been reconciled, so replayed deliveries skip side effects
type ProcessedMessage struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	MessageID   string    `json:"message_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	ProcessedAt time.Time `json:"processed_at"`
}

// TableName specifies the table name for ProcessedMessage
func (ProcessedMessage) TableName() string {
	return "processed_messages"
}
