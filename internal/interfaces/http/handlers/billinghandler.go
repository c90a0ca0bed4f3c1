package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gamezxlan/ley-en-mano-backend/internal/application/billing/usecases"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/plan"
	"github.com/gamezxlan/ley-en-mano-backend/internal/interfaces/http/middleware"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/config"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/utils"
)

type BillingHandler struct {
	createCheckoutUseCase   *usecases.CreateCheckoutUseCase
	upgradeCheckoutUseCase  *usecases.UpgradeCheckoutUseCase
	createPortalUseCase     *usecases.CreatePortalUseCase
	completeCheckoutUseCase *usecases.CompleteCheckoutUseCase
	planRepo                plan.Repository
	serverConfig            *config.ServerConfig
	sessionConfig           *config.SessionConfig
	logger                  logger.Interface
}

func NewBillingHandler(
	createCheckoutUC *usecases.CreateCheckoutUseCase,
	upgradeCheckoutUC *usecases.UpgradeCheckoutUseCase,
	createPortalUC *usecases.CreatePortalUseCase,
	completeCheckoutUC *usecases.CompleteCheckoutUseCase,
	planRepo plan.Repository,
	serverConfig *config.ServerConfig,
	sessionConfig *config.SessionConfig,
	logger logger.Interface,
) *BillingHandler {
	return &BillingHandler{
		createCheckoutUseCase:   createCheckoutUC,
		upgradeCheckoutUseCase:  upgradeCheckoutUC,
		createPortalUseCase:     createPortalUC,
		completeCheckoutUseCase: completeCheckoutUC,
		planRepo:                planRepo,
		serverConfig:            serverConfig,
		sessionConfig:           sessionConfig,
		logger:                  logger,
	}
}

type CreateCheckoutRequest struct {
	PlanCode string `json:"plan_code" binding:"required"`
	Email    string `json:"email" binding:"omitempty,email"`
}

type UpgradeCheckoutRequest struct {
	DestPlanCode string `json:"dest_plan_code" binding:"required"`
}

type CompleteCheckoutRequest struct {
	CheckoutSessionID string `json:"checkout_session_id" binding:"required"`
}

// ListPlans returns the purchasable catalog.
func (h *BillingHandler) ListPlans(c *gin.Context) {
	plans, err := h.planRepo.ListActive(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to list plans", "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list plans")
		return
	}

	out := make([]gin.H, 0, len(plans))
	for _, p := range plans {
		out = append(out, gin.H{
			"code":            p.Code(),
			"name":            p.Name(),
			"quota_total":     p.QuotaTotal(),
			"price_cents":     p.PriceCents(),
			"currency":        p.Currency(),
			"validity_months": p.ValidityMonths(),
			"features":        p.Features(),
		})
	}
	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"plans": out})
}

// CreateCheckout opens a provider checkout for the requested plan.
func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	var req CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	result, err := h.createCheckoutUseCase.Execute(c.Request.Context(), usecases.CreateCheckoutCommand{
		PlanCode:   req.PlanCode,
		Email:      req.Email,
		VisitorID:  middleware.VisitorID(c),
		SuccessURL: h.serverConfig.FrontendURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  h.serverConfig.FrontendURL + "/checkout/cancel",
	})
	if err != nil {
		if errors.Is(err, plan.ErrPlanNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Unknown plan")
			return
		}
		h.logger.Errorw("failed to create checkout", "plan_code", req.PlanCode, "error", err)
		utils.ErrorResponse(c, http.StatusBadGateway, "Failed to create checkout")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"session_id":   result.SessionID,
		"checkout_url": result.CheckoutURL,
	})
}

// UpgradeCheckout opens a destination checkout with the unused value of the
// current entitlement applied as a one-shot coupon.
func (h *BillingHandler) UpgradeCheckout(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var req UpgradeCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	result, err := h.upgradeCheckoutUseCase.Execute(c.Request.Context(), usecases.UpgradeCheckoutCommand{
		UserID:       userID,
		DestPlanCode: req.DestPlanCode,
		SuccessURL:   h.serverConfig.FrontendURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:    h.serverConfig.FrontendURL + "/checkout/cancel",
	})
	if err != nil {
		switch {
		case errors.Is(err, usecases.ErrNothingToUpgrade):
			utils.ErrorResponse(c, http.StatusConflict, "Nothing to upgrade")
		case errors.Is(err, plan.ErrPlanNotFound):
			utils.ErrorResponse(c, http.StatusNotFound, "Unknown plan")
		default:
			h.logger.Errorw("failed to create upgrade checkout", "user_id", userID, "error", err)
			utils.ErrorResponse(c, http.StatusBadGateway, "Failed to create upgrade checkout")
		}
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"session_id":   result.SessionID,
		"checkout_url": result.CheckoutURL,
		"credit_cents": result.CreditCents,
	})
}

// CreatePortal opens the provider's self-service billing portal.
func (h *BillingHandler) CreatePortal(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	result, err := h.createPortalUseCase.Execute(c.Request.Context(), usecases.CreatePortalCommand{
		UserID:    userID,
		ReturnURL: h.serverConfig.FrontendURL + "/account",
	})
	if err != nil {
		if errors.Is(err, usecases.ErrNoBillingProfile) {
			utils.ErrorResponse(c, http.StatusNotFound, "No billing profile")
			return
		}
		h.logger.Errorw("failed to create portal session", "user_id", userID, "error", err)
		utils.ErrorResponse(c, http.StatusBadGateway, "Failed to open billing portal")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"portal_url": result.PortalURL})
}

// CompleteCheckout verifies a redirected checkout against the provider and
// signs the buyer in with a session cookie.
func (h *BillingHandler) CompleteCheckout(c *gin.Context) {
	var req CompleteCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	result, err := h.completeCheckoutUseCase.Execute(c.Request.Context(), usecases.CompleteCheckoutCommand{
		CheckoutSessionID: req.CheckoutSessionID,
		IP:                c.ClientIP(),
		UserAgent:         c.Request.UserAgent(),
	})
	if err != nil {
		if errors.Is(err, usecases.ErrCheckoutNotPaid) {
			utils.ErrorResponse(c, http.StatusConflict, "Checkout not paid yet")
			return
		}
		h.logger.Errorw("failed to complete checkout",
			"checkout_session", req.CheckoutSessionID, "error", err)
		utils.ErrorResponse(c, http.StatusBadGateway, "Failed to verify checkout")
		return
	}

	maxAge := h.sessionConfig.ExpDays * 24 * 60 * 60
	c.SetCookie(h.sessionConfig.CookieName, result.SessionToken, maxAge,
		"/", h.sessionConfig.Domain, h.sessionConfig.Secure, true)

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"user_sid":        result.UserSID,
		"entitlement_sid": result.EntitlementSID,
		"plan_code":       result.PlanCode,
	})
}
