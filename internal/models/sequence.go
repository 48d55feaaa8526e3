package models

import (
	"time"

	"gorm.io/gorm"
)

// Sequence statuses
const (
	SequenceStatusActive    = "active"
	SequenceStatusStopped   = "stopped"
	SequenceStatusCompleted = "completed"
)

// Touchpoint statuses
const (
	TouchpointStatusPending   = "pending"
	TouchpointStatusSent      = "sent"
	TouchpointStatusReplied   = "replied"
	TouchpointStatusCancelled = "cancelled"
)

// EmailSequence is the per-lead sequence record (legacy model); each lead
// owns at most one active sequence at a time
type EmailSequence struct {
	ID     uint `json:"id" gorm:"primaryKey;autoIncrement"`
	LeadID uint `json:"lead_id" gorm:"not null;index"`

	Status      string     `json:"status" gorm:"type:varchar(50);default:'active'"`
	StopReason  string     `json:"stop_reason" gorm:"type:varchar(255)"`
	CurrentStep int        `json:"current_step" gorm:"default:1"`
	TotalSteps  int        `json:"total_steps" gorm:"default:3"`
	StartedAt   time.Time  `json:"started_at"`
	StoppedAt   *time.Time `json:"stopped_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for EmailSequence
func (EmailSequence) TableName() string {
	return "email_sequences"
}

// LeadTouchpoint is one scheduled outreach step for a lead. DelayDays is
// cumulative from step 1, not from the previous step.
type LeadTouchpoint struct {
	ID         uint `json:"id" gorm:"primaryKey;autoIncrement"`
	LeadID     uint `json:"lead_id" gorm:"not null;index"`
	SequenceID uint `json:"sequence_id" gorm:"index"`

	StepNumber int    `json:"step_number" gorm:"not null"`
	Channel    string `json:"channel" gorm:"type:varchar(50);default:'email'"`
	DelayDays  int    `json:"delay_days" gorm:"not null"`
	Status     string `json:"status" gorm:"type:varchar(50);default:'pending';index"`

	Subject  string `json:"subject" gorm:"type:varchar(500)"`
	Body     string `json:"body" gorm:"type:text"`
	HTMLBody string `json:"html_body" gorm:"type:text"`

	DueAt      time.Time  `json:"due_at" gorm:"index"`
	SentAt     *time.Time `json:"sent_at"`
	TrackingID string     `json:"tracking_id" gorm:"type:varchar(64);index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for LeadTouchpoint
func (LeadTouchpoint) TableName() string {
	return "lead_touchpoints"
}
