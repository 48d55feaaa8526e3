// Package repository is the gorm-backed persistence layer. It satisfies the
// store interfaces declared by the ledger, dispatch, and reconcile packages.
package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"outreach-engine-go/internal/models"
)

type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// --- sending domains ---

func (r *Repository) ListActiveDomains() ([]models.SendingDomain, error) {
	var domains []models.SendingDomain
	result := r.db.Where("is_active = ?", true).Order("id").Find(&domains)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list active domains: %w", result.Error)
	}
	return domains, nil
}

func (r *Repository) ListAllDomains() ([]models.SendingDomain, error) {
	var domains []models.SendingDomain
	result := r.db.Order("id").Find(&domains)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list domains: %w", result.Error)
	}
	return domains, nil
}

func (r *Repository) GetDomain(id uint) (*models.SendingDomain, error) {
	var domain models.SendingDomain
	result := r.db.First(&domain, id)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get domain %d: %w", id, result.Error)
	}
	return &domain, nil
}

func (r *Repository) SaveDomain(domain *models.SendingDomain) error {
	result := r.db.Save(domain)
	if result.Error != nil {
		return fmt.Errorf("failed to save domain: %w", result.Error)
	}
	return nil
}

func (r *Repository) CreateDomain(domain *models.SendingDomain) error {
	result := r.db.Create(domain)
	if result.Error != nil {
		return fmt.Errorf("failed to create domain: %w", result.Error)
	}
	return nil
}

// IncrementSentToday bumps the counter with a row-level expression so
// concurrent dispatchers never lose increments
func (r *Repository) IncrementSentToday(id uint) error {
	result := r.db.Model(&models.SendingDomain{}).
		Where("id = ?", id).
		UpdateColumn("sent_today", gorm.Expr("sent_today + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to increment sent counter for domain %d: %w", id, result.Error)
	}
	return nil
}

func (r *Repository) CountPausedDomains() (int64, error) {
	var n int64
	result := r.db.Model(&models.SendingDomain{}).Where("is_paused = ?", true).Count(&n)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count paused domains: %w", result.Error)
	}
	return n, nil
}

// --- leads ---

func (r *Repository) GetLead(id uint) (*models.Lead, error) {
	var lead models.Lead
	result := r.db.First(&lead, id)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get lead %d: %w", id, result.Error)
	}
	return &lead, nil
}

func (r *Repository) GetLeadByEmail(email string) (*models.Lead, error) {
	var lead models.Lead
	result := r.db.Where("email = ?", email).First(&lead)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to look up lead by email: %w", result.Error)
	}
	return &lead, nil
}

func (r *Repository) SaveLead(lead *models.Lead) error {
	result := r.db.Save(lead)
	if result.Error != nil {
		return fmt.Errorf("failed to save lead: %w", result.Error)
	}
	return nil
}

// --- sequences ---

func (r *Repository) GetSequence(id uint) (*models.EmailSequence, error) {
	var seq models.EmailSequence
	result := r.db.First(&seq, id)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get sequence %d: %w", id, result.Error)
	}
	return &seq, nil
}

func (r *Repository) GetActiveSequence(leadID uint) (*models.EmailSequence, error) {
	var seq models.EmailSequence
	result := r.db.Where("lead_id = ? AND status = ?", leadID, models.SequenceStatusActive).First(&seq)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get active sequence for lead %d: %w", leadID, result.Error)
	}
	return &seq, nil
}

func (r *Repository) SaveSequence(seq *models.EmailSequence) error {
	result := r.db.Save(seq)
	if result.Error != nil {
		return fmt.Errorf("failed to save sequence: %w", result.Error)
	}
	return nil
}

// --- touchpoints ---

func (r *Repository) GetTouchpoint(id uint) (*models.LeadTouchpoint, error) {
	var tp models.LeadTouchpoint
	result := r.db.First(&tp, id)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get touchpoint %d: %w", id, result.Error)
	}
	return &tp, nil
}

func (r *Repository) SaveTouchpoint(tp *models.LeadTouchpoint) error {
	result := r.db.Save(tp)
	if result.Error != nil {
		return fmt.Errorf("failed to save touchpoint: %w", result.Error)
	}
	return nil
}

func (r *Repository) GetPendingTouchpointByStep(leadID uint, step int) (*models.LeadTouchpoint, error) {
	var tp models.LeadTouchpoint
	result := r.db.Where("lead_id = ? AND step_number = ? AND status = ?",
		leadID, step, models.TouchpointStatusPending).First(&tp)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get pending touchpoint for lead %d step %d: %w", leadID, step, result.Error)
	}
	return &tp, nil
}

// ListDueTouchpoints returns pending touchpoints whose due time has passed,
// oldest first, for the dispatch loop
func (r *Repository) ListDueTouchpoints(now time.Time, limit int) ([]models.LeadTouchpoint, error) {
	var tps []models.LeadTouchpoint
	result := r.db.Where("status = ? AND due_at <= ?", models.TouchpointStatusPending, now).
		Order("due_at").Limit(limit).Find(&tps)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list due touchpoints: %w", result.Error)
	}
	return tps, nil
}

// CancelPendingTouchpoints bulk-cancels a lead's pending touchpoints and
// returns how many were affected
func (r *Repository) CancelPendingTouchpoints(leadID uint) (int, error) {
	result := r.db.Model(&models.LeadTouchpoint{}).
		Where("lead_id = ? AND status = ?", leadID, models.TouchpointStatusPending).
		Update("status", models.TouchpointStatusCancelled)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to cancel pending touchpoints for lead %d: %w", leadID, result.Error)
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) GetLatestSentTouchpoint(leadID uint) (*models.LeadTouchpoint, error) {
	var tp models.LeadTouchpoint
	result := r.db.Where("lead_id = ? AND status = ?", leadID, models.TouchpointStatusSent).
		Order("sent_at DESC").First(&tp)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get latest sent touchpoint for lead %d: %w", leadID, result.Error)
	}
	return &tp, nil
}

// --- inbox messages ---

func (r *Repository) CreateInboxMessage(msg *models.InboxMessage) error {
	result := r.db.Create(msg)
	if result.Error != nil {
		return fmt.Errorf("failed to create inbox message: %w", result.Error)
	}
	return nil
}

func (r *Repository) ListMessages(leadID uint) ([]models.InboxMessage, error) {
	var msgs []models.InboxMessage
	result := r.db.Where("lead_id = ?", leadID).Order("received_at").Find(&msgs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list messages for lead %d: %w", leadID, result.Error)
	}
	return msgs, nil
}

// --- idempotency ---

func (r *Repository) IsMessageProcessed(messageID string) (bool, error) {
	var processed models.ProcessedMessage
	result := r.db.Where("message_id = ?", messageID).First(&processed)
	if result.Error == nil {
		return true, nil
	}
	if result.Error == gorm.ErrRecordNotFound {
		return false, nil
	}
	return false, fmt.Errorf("failed to check processed message: %w", result.Error)
}

func (r *Repository) MarkMessageProcessed(messageID string) error {
	processed := models.ProcessedMessage{
		MessageID:   messageID,
		ProcessedAt: time.Now(),
	}
	result := r.db.Create(&processed)
	if result.Error != nil {
		return fmt.Errorf("failed to mark message processed: %w", result.Error)
	}
	return nil
}

// --- tracking ---

func (r *Repository) CreateTrackingEvent(event *models.TrackingEvent) error {
	result := r.db.Create(event)
	if result.Error != nil {
		return fmt.Errorf("failed to create tracking event: %w", result.Error)
	}
	return nil
}
