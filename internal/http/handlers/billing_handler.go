package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/taskbridge/backend/internal/dto"
	"github.com/taskbridge/backend/internal/http/handlers/common"
	"github.com/taskbridge/backend/internal/models"
	"github.com/taskbridge/backend/internal/pkg/apperror"
	"github.com/taskbridge/backend/internal/service"
)

// BillingHandler предоставляет HTTP слой для тарифов и покупок токенов.
type BillingHandler struct {
	payments *service.PaymentService
}

// NewBillingHandler создаёт хэндлер.
func NewBillingHandler(payments *service.PaymentService) *BillingHandler {
	return &BillingHandler{payments: payments}
}

// ListPlans обрабатывает GET /billing/plans.
func (h *BillingHandler) ListPlans(c *gin.Context) {
	plans := make([]dto.PlanInfo, 0, len(models.SubscriptionPlanTokens))
	for name, tokens := range models.SubscriptionPlanTokens {
		plans = append(plans, dto.PlanInfo{Name: name, Tokens: tokens})
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Tokens < plans[j].Tokens })

	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

// InitiatePurchase обрабатывает POST /billing/purchases.
func (h *BillingHandler) InitiatePurchase(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.InitiatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "количество токенов должно быть положительным")
		return
	}

	purchase, err := h.payments.InitiatePurchase(c.Request.Context(), userID, req.Amount)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.PurchaseResponse{
		ID:                purchase.ID.String(),
		Amount:            purchase.Amount,
		Status:            purchase.Status,
		ExternalPaymentID: purchase.ExternalPaymentID,
		CreatedAt:         purchase.CreatedAt,
	})
}

// ListPurchases обрабатывает GET /billing/purchases.
func (h *BillingHandler) ListPurchases(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	purchases, err := h.payments.ListPurchases(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"purchases": purchases})
}

// GetSubscription обрабатывает GET /billing/subscription.
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	sub, err := h.payments.GetSubscription(c.Request.Context(), userID)
	if err != nil {
		if apperror.IsNotFound(err) {
			c.JSON(http.StatusOK, gin.H{"subscription": nil})
			return
		}
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}
