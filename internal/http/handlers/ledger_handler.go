package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskbridge/backend/internal/dto"
	"github.com/taskbridge/backend/internal/http/handlers/common"
	"github.com/taskbridge/backend/internal/service"
)

// LedgerHandler предоставляет HTTP слой для баланса и истории операций.
type LedgerHandler struct {
	ledger *service.LedgerService
}

// NewLedgerHandler создаёт хэндлер.
func NewLedgerHandler(ledger *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// GetBalance обрабатывает GET /ledger/balance.
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	balance, err := h.ledger.GetBalance(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{Balance: balance})
}

// ListEntries обрабатывает GET /ledger/entries.
func (h *LedgerHandler) ListEntries(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	entries, err := h.ledger.ListEntries(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
