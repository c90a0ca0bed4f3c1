package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gamezxlan/ley-en-mano-backend/internal/application/generation"
	quotausecases "github.com/gamezxlan/ley-en-mano-backend/internal/application/quota/usecases"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/usage"
	"github.com/gamezxlan/ley-en-mano-backend/internal/interfaces/http/middleware"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/utils"
)

const consultEndpoint = "consult"

type ConsultHandler struct {
	resolvePolicyUseCase *quotausecases.ResolvePolicyUseCase
	consumeQuotaUseCase  *quotausecases.ConsumeQuotaUseCase
	refundQuotaUseCase   *quotausecases.RefundQuotaUseCase
	recordUsageUseCase   *quotausecases.RecordUsageUseCase
	generator            generation.Generator
	logger               logger.Interface
}

func NewConsultHandler(
	resolvePolicyUC *quotausecases.ResolvePolicyUseCase,
	consumeQuotaUC *quotausecases.ConsumeQuotaUseCase,
	refundQuotaUC *quotausecases.RefundQuotaUseCase,
	recordUsageUC *quotausecases.RecordUsageUseCase,
	generator generation.Generator,
	logger logger.Interface,
) *ConsultHandler {
	return &ConsultHandler{
		resolvePolicyUseCase: resolvePolicyUC,
		consumeQuotaUseCase:  consumeQuotaUC,
		refundQuotaUseCase:   refundQuotaUC,
		recordUsageUseCase:   recordUsageUC,
		generator:            generator,
		logger:               logger,
	}
}

type ConsultRequest struct {
	Query string `json:"query" binding:"required,min=10,max=4000"`
}

// Consult runs one quota-gated generation. Premium quota is consumed
// atomically before the generation call and refunded on failure; guest and
// free tiers are gated by the windowed usage count resolved in the policy.
func (h *ConsultHandler) Consult(c *gin.Context) {
	var req ConsultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	visitorID := middleware.VisitorID(c)
	ipHash := middleware.IPHash(c)

	cmd := quotausecases.ResolvePolicyCommand{VisitorID: visitorID}
	var userID *uint
	if id, ok := middleware.UserID(c); ok {
		userID = &id
		cmd.UserID = &id
	}

	policy, err := h.resolvePolicyUseCase.Execute(ctx, cmd)
	if err != nil {
		h.logger.Errorw("failed to resolve policy", "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to resolve policy")
		return
	}

	if !policy.Allowed() {
		h.recordOutcome(ctx, visitorID, userID, policy, ipHash, false, "quota_exceeded", "")
		h.quotaExceeded(c, policy)
		return
	}

	// Ledger-backed premium decrements atomically; the policy snapshot alone
	// is not authoritative under concurrency. Subscription premium has no
	// ledger row: its period count advances through the usage record below.
	entitlementSID := ""
	if policy.Profile == usage.ProfilePremium && policy.EntitlementSID != "" {
		consumed, err := h.consumeQuotaUseCase.Execute(ctx, quotausecases.ConsumeQuotaCommand{UserID: *userID})
		if err != nil {
			h.logger.Errorw("failed to consume quota", "user_id", *userID, "error", err)
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to consume quota")
			return
		}
		if !consumed.Consumed {
			h.recordOutcome(ctx, visitorID, userID, policy, ipHash, false, "quota_exceeded", "")
			h.quotaExceeded(c, policy)
			return
		}
		entitlementSID = consumed.EntitlementSID
		policy.Remaining = consumed.RemainingAfter
	}

	result, err := h.generator.Generate(ctx, generation.Request{
		Query:        req.Query,
		ModelKind:    policy.ModelKind,
		ResponseMode: policy.ResponseMode,
		ItemCap:      policy.ItemCap,
	})
	if err != nil {
		if entitlementSID != "" {
			if refundErr := h.refundQuotaUseCase.Execute(ctx, quotausecases.RefundQuotaCommand{
				EntitlementSID: entitlementSID,
			}); refundErr != nil {
				h.logger.Errorw("failed to refund after generation failure",
					"entitlement_sid", entitlementSID, "error", refundErr)
			}
		}
		h.recordOutcome(ctx, visitorID, userID, policy, ipHash, false, "generation_failed", entitlementSID)
		h.logger.Errorw("generation failed", "error", err)
		utils.ErrorResponse(c, http.StatusBadGateway, "Generation failed, quota not charged")
		return
	}

	h.recordOutcome(ctx, visitorID, userID, policy, ipHash, true, "", entitlementSID)

	// Counted tiers (guest, free, subscription premium) see the usage event
	// just recorded reflected in the reply.
	remaining := policy.Remaining
	if entitlementSID == "" {
		remaining = policy.Remaining - 1
	}
	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"result":        result.Content,
		"profile":       policy.Profile,
		"response_mode": policy.ResponseMode,
		"remaining":     remaining,
		"reset_at":      policy.ResetAt.Format(time.RFC3339),
	})
}

func (h *ConsultHandler) quotaExceeded(c *gin.Context, policy *quotausecases.Policy) {
	c.JSON(http.StatusTooManyRequests, utils.APIResponse{
		Success: false,
		Error: &utils.ErrorInfo{
			Type:    "quota_exceeded",
			Message: "Quota exceeded for the current tier",
		},
		Data: gin.H{
			"profile":  policy.Profile,
			"limit":    policy.Limit,
			"reset_at": policy.ResetAt.Format(time.RFC3339),
		},
	})
}

func (h *ConsultHandler) recordOutcome(
	ctx context.Context,
	visitorID string,
	userID *uint,
	policy *quotausecases.Policy,
	ipHash string,
	allowed bool,
	reason string,
	entitlementSID string,
) {
	planCode := ""
	if policy.Profile == usage.ProfilePremium {
		planCode = policy.Tier
	}
	if err := h.recordUsageUseCase.Execute(ctx, quotausecases.RecordUsageCommand{
		VisitorID:      visitorID,
		UserID:         userID,
		Profile:        policy.Profile,
		PlanCode:       planCode,
		ModelUsed:      policy.ModelKind,
		Endpoint:       consultEndpoint,
		Allowed:        allowed,
		Reason:         reason,
		EntitlementSID: entitlementSID,
		IPHash:         ipHash,
	}); err != nil {
		h.logger.Errorw("failed to record usage outcome", "error", err)
	}
}
