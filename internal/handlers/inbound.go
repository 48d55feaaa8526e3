package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"outreach-engine-go/internal/models"
	"outreach-engine-go/internal/reconcile"
)

// InboundWebhook ingests an inbound reply pushed by an external mail hook
// and runs it through the reply reconciler
func (h *Handlers) InboundWebhook(c *gin.Context) {
	var req models.InboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
			Code:    http.StatusBadRequest,
		})
		return
	}

	result, err := h.reconciler.ProcessInbound(c.Request.Context(), reconcile.InboundMessage{
		MessageID:  req.MessageID,
		From:       req.From,
		To:         req.To,
		Subject:    req.Subject,
		Body:       req.Body,
		HTMLBody:   req.HTMLBody,
		ReceivedAt: time.Now(),
	})
	if err != nil {
		logrus.Errorf("Failed to reconcile inbound message %s: %v", req.MessageID, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "reconcile_error",
			Message: "Failed to process inbound message",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	if !result.LeadFound {
		// Unsolicited mail: acknowledged, nothing to do
		c.JSON(http.StatusOK, gin.H{"lead_found": false})
		return
	}

	// Per-effect outcomes let the operator see partial success
	type effectView struct {
		Name  string `json:"name"`
		OK    bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}
	effects := make([]effectView, 0, len(result.Effects))
	for _, eff := range result.Effects {
		effects = append(effects, effectView{Name: eff.Name, OK: eff.OK, Error: eff.Error()})
	}

	c.JSON(http.StatusOK, gin.H{
		"lead_found":            true,
		"already_processed":     result.AlreadyProcessed,
		"sequence_stopped":      result.SequenceStopped,
		"touchpoints_cancelled": result.TouchpointsCancelled,
		"touchpoint_replied":    result.TouchpointReplied,
		"effects":               effects,
	})
}
