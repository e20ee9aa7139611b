package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskbridge/backend/internal/http/handlers/common"
	"github.com/taskbridge/backend/internal/service"
)

// SignatureHeader - заголовок с HMAC-SHA256 подписью тела события.
const SignatureHeader = "X-Webhook-Signature"

// WebhookHandler принимает события платёжного провайдера.
// Подпись проверяется по сырому телу до любого декодирования.
type WebhookHandler struct {
	payments *service.PaymentService
	secret   []byte
}

// NewWebhookHandler создаёт хэндлер.
func NewWebhookHandler(payments *service.PaymentService, secret string) *WebhookHandler {
	return &WebhookHandler{payments: payments, secret: []byte(secret)}
}

// Handle обрабатывает POST /webhooks/payments. Повторная доставка
// события отвечает 200 так же, как первая: провайдер не должен
// ретраить то, что уже применено.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		common.RespondBadRequest(c, "не удалось прочитать тело запроса")
		return
	}

	if !h.verifySignature(body, c.GetHeader(SignatureHeader)) {
		common.RespondError(c, http.StatusUnauthorized, "неверная подпись")
		return
	}

	event, err := service.DecodePaymentEvent(body)
	if err != nil {
		_ = c.Error(err)
		return
	}

	// Ошибка здесь означает инфраструктурный сбой: 500, провайдер
	// повторит доставку. Повторы и неизвестные события вернули nil.
	if err := h.payments.HandleEvent(c.Request.Context(), event); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if signature == "" || len(h.secret) == 0 {
		return false
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
