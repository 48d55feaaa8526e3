package models

import (
	"time"

	"gorm.io/gorm"
)

// Tracking event types
const (
	TrackingEventOpen  = "open"
	TrackingEventClick = "click"
)

// TrackingEvent represents one engagement event (open or click) for a sent
// touchpoint, keyed by the tracking ID embedded in the message body
type TrackingEvent struct {
	ID         uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	TrackingID string `json:"tracking_id" gorm:"type:varchar(64);not null;index"`
	EventType  string `json:"event_type" gorm:"type:varchar(20);not null"`
	URL        string `json:"url" gorm:"type:varchar(2000)"`
	IPAddress  string `json:"ip_address" gorm:"type:varchar(64)"`
	UserAgent  string `json:"user_agent" gorm:"type:varchar(500)"`

	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for TrackingEvent
func (TrackingEvent) TableName() string {
	return "tracking_events"
}
