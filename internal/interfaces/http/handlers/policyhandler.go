package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	quotausecases "github.com/gamezxlan/ley-en-mano-backend/internal/application/quota/usecases"
	"github.com/gamezxlan/ley-en-mano-backend/internal/interfaces/http/middleware"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/utils"
)

type PolicyHandler struct {
	resolvePolicyUseCase *quotausecases.ResolvePolicyUseCase
	logger               logger.Interface
}

func NewPolicyHandler(resolvePolicyUC *quotausecases.ResolvePolicyUseCase, logger logger.Interface) *PolicyHandler {
	return &PolicyHandler{resolvePolicyUseCase: resolvePolicyUC, logger: logger}
}

// GetPolicy returns the caller's current tier, remaining quota and reset
// time. Read-only: nothing is consumed.
func (h *PolicyHandler) GetPolicy(c *gin.Context) {
	cmd := quotausecases.ResolvePolicyCommand{VisitorID: middleware.VisitorID(c)}
	if userID, ok := middleware.UserID(c); ok {
		cmd.UserID = &userID
	}

	policy, err := h.resolvePolicyUseCase.Execute(c.Request.Context(), cmd)
	if err != nil {
		h.logger.Errorw("failed to resolve policy", "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to resolve policy")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"profile":       policy.Profile,
		"tier":          policy.Tier,
		"model":         policy.ModelKind,
		"response_mode": policy.ResponseMode,
		"item_cap":      policy.ItemCap,
		"limit":         policy.Limit,
		"remaining":     policy.Remaining,
		"reset_at":      policy.ResetAt.Format(time.RFC3339),
	})
}
