package models

import (
	"time"

	"gorm.io/gorm"
)

// Lead statuses driven by campaign logic and the reply reconciler
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusReplied   = "replied"
)

// Lead represents a single outreach recipient
type Lead struct {
	ID         uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	CampaignID uint   `json:"campaign_id" gorm:"index"`
	Email      string `json:"email" gorm:"type:varchar(255);not null;index"`
	FirstName  string `json:"first_name" gorm:"type:varchar(255)"`
	LastName   string `json:"last_name" gorm:"type:varchar(255)"`
	Company    string `json:"company" gorm:"type:varchar(255)"`
	Status     string `json:"status" gorm:"type:varchar(50);default:'new'"`

	LastContact *time.Time `json:"last_contact"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for Lead
func (Lead) TableName() string {
	return "leads"
}
