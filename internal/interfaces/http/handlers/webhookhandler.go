package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gamezxlan/ley-en-mano-backend/internal/application/billing/events"
	"github.com/gamezxlan/ley-en-mano-backend/internal/application/billing/resolver"
	"github.com/gamezxlan/ley-en-mano-backend/internal/application/billing/usecases"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/utils"
)

// webhookBodyLimit bounds the payload read; provider events are small.
const webhookBodyLimit = 1 << 16

type WebhookHandler struct {
	reconcileUseCase *usecases.ReconcileEventUseCase
	logger           logger.Interface
}

func NewWebhookHandler(reconcileUC *usecases.ReconcileEventUseCase, logger logger.Interface) *WebhookHandler {
	return &WebhookHandler{reconcileUseCase: reconcileUC, logger: logger}
}

// HandleProviderEvent ingests one signed provider delivery. 2xx acknowledges
// the event; the provider re-delivers on anything else, so only signature
// failures (400) and transient resolution failures (502) reject.
func (h *WebhookHandler) HandleProviderEvent(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookBodyLimit))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to read payload")
		return
	}

	result, err := h.reconcileUseCase.Execute(c.Request.Context(), usecases.ReconcileEventCommand{
		Payload:   payload,
		Signature: c.GetHeader("Stripe-Signature"),
	})
	if err != nil {
		switch {
		case errors.Is(err, events.ErrInvalidSignature):
			h.logger.Warnw("rejected unsigned webhook delivery", "client_ip", c.ClientIP())
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid signature")
		case errors.Is(err, resolver.ErrResolutionUnavailable):
			utils.ErrorResponse(c, http.StatusBadGateway, "Resolution temporarily unavailable")
		default:
			h.logger.Errorw("webhook reconciliation failed", "error", err)
			utils.ErrorResponse(c, http.StatusInternalServerError, "Reconciliation failed")
		}
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "acknowledged", gin.H{
		"kind":    result.Kind,
		"outcome": result.Outcome,
	})
}
