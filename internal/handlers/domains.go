package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"outreach-engine-go/internal/models"
)

// GetDomains lists all sending domains with their remaining capacity
func (h *Handlers) GetDomains(c *gin.Context) {
	domains, err := h.repo.ListAllDomains()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch domains",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	type domainView struct {
		models.SendingDomain
		DailyLimit        int `json:"daily_limit"`
		RemainingCapacity int `json:"remaining_capacity"`
	}

	views := make([]domainView, 0, len(domains))
	for i := range domains {
		remaining, err := h.ledger.RemainingCapacity(&domains[i])
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "database_error",
				Message: "Failed to compute capacity",
				Code:    http.StatusInternalServerError,
			})
			return
		}
		views = append(views, domainView{
			SendingDomain:     domains[i],
			DailyLimit:        h.policy.DailyLimit(&domains[i]),
			RemainingCapacity: remaining,
		})
	}

	c.JSON(http.StatusOK, views)
}

// CreateDomain registers a new sending domain and starts its warmup clock
func (h *Handlers) CreateDomain(c *gin.Context) {
	var req models.SendingDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
			Code:    http.StatusBadRequest,
		})
		return
	}

	schedule := req.WarmupSchedule
	if schedule == "" {
		schedule = "standard"
	}

	domain := models.SendingDomain{
		Domain:             req.Domain,
		DisplayName:        req.DisplayName,
		FromEmail:          req.FromEmail,
		WarmupStartDate:    time.Now().UTC(),
		WarmupSchedule:     schedule,
		DailyLimitOverride: req.DailyLimitOverride,
		HealthScore:        req.HealthScore,
		LastResetDate:      time.Now().UTC().Format("2006-01-02"),
		IsActive:           true,
	}

	if err := h.repo.CreateDomain(&domain); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to create domain",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusCreated, domain)
}

// GetWarmupProgress reports where a domain is in its warmup ramp
func (h *Handlers) GetWarmupProgress(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid domain ID",
			Code:    http.StatusBadRequest,
		})
		return
	}

	domain, err := h.repo.GetDomain(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Domain not found",
			Code:    http.StatusNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, h.policy.Progress(domain))
}

// PauseDomain manually pauses a sending domain
func (h *Handlers) PauseDomain(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid domain ID",
			Code:    http.StatusBadRequest,
		})
		return
	}

	domain, err := h.repo.GetDomain(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Domain not found",
			Code:    http.StatusNotFound,
		})
		return
	}

	now := time.Now()
	domain.IsPaused = true
	domain.PauseReason = "Paused by operator"
	domain.PausedAt = &now
	if err := h.repo.SaveDomain(domain); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to pause domain",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, domain)
}

// ResumeDomain clears a domain's pause state for a clean evaluation window
func (h *Handlers) ResumeDomain(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid domain ID",
			Code:    http.StatusBadRequest,
		})
		return
	}

	if err := h.ledger.Resume(uint(id)); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to resume domain",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.Status(http.StatusOK)
}

// RecordBounce ingests an external bounce notification for a domain
func (h *Handlers) RecordBounce(c *gin.Context) {
	h.recordAbuseSignal(c, h.ledger.RecordBounce)
}

// RecordComplaint ingests an external complaint notification for a domain
func (h *Handlers) RecordComplaint(c *gin.Context) {
	h.recordAbuseSignal(c, h.ledger.RecordComplaint)
}

func (h *Handlers) recordAbuseSignal(c *gin.Context, record func(uint) error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid domain ID",
			Code:    http.StatusBadRequest,
		})
		return
	}

	if err := record(uint(id)); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to record signal",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.Status(http.StatusOK)
}
