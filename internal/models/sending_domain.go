package models

import (
	"time"

	"gorm.io/gorm"
)

// SendingDomain represents an origin domain used for outbound sends,
// together with its warmup and daily capacity state
type SendingDomain struct {
	ID          uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Domain      string `json:"domain" gorm:"type:varchar(255);not null;uniqueIndex"`
	DisplayName string `json:"display_name" gorm:"type:varchar(255)"`
	FromEmail   string `json:"from_email" gorm:"type:varchar(255);not null"`

	// Warmup configuration
	WarmupStartDate    time.Time `json:"warmup_start_date"`
	WarmupSchedule     string    `json:"warmup_schedule" gorm:"type:varchar(50);default:'standard'"` // slow, standard, aggressive, pre-warmed, custom
	DailyLimitOverride int       `json:"daily_limit_override" gorm:"default:0"`

	// Externally supplied reputation signal, 0-100; nil means unknown
	HealthScore *int `json:"health_score"`

	// Daily counters, reset on day rollover
	SentToday           int    `json:"sent_today" gorm:"default:0"`
	BounceCountToday    int    `json:"bounce_count_today" gorm:"default:0"`
	ComplaintCountToday int    `json:"complaint_count_today" gorm:"default:0"`
	LastResetDate       string `json:"last_reset_date" gorm:"type:varchar(10)"` // UTC date, YYYY-MM-DD

	IsActive    bool       `json:"is_active" gorm:"default:true"`
	IsPaused    bool       `json:"is_paused" gorm:"default:false"`
	PauseReason string     `json:"pause_reason" gorm:"type:varchar(255)"`
	PausedAt    *time.Time `json:"paused_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for SendingDomain
func (SendingDomain) TableName() string {
	return "sending_domains"
}
