package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/taskbridge/backend/internal/http/middleware"
	"github.com/taskbridge/backend/internal/service"
)

const testWebhookSecret = "test-webhook-secret"

func webhookRouter(payments *service.PaymentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	h := NewWebhookHandler(payments, testWebhookSecret)
	r.POST("/webhooks/payments", h.Handle)
	return r
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookHandler_MissingSignature(t *testing.T) {
	r := webhookRouter(nil)

	body := []byte(`{"id": "evt_1", "type": "invoice.paid", "data": {}}`)
	req, _ := http.NewRequest("POST", "/webhooks/payments", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookHandler_BadSignature(t *testing.T) {
	r := webhookRouter(nil)

	body := []byte(`{"id": "evt_1", "type": "invoice.paid", "data": {}}`)
	req, _ := http.NewRequest("POST", "/webhooks/payments", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, "deadbeef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookHandler_SignatureOverDifferentBody(t *testing.T) {
	r := webhookRouter(nil)

	body := []byte(`{"id": "evt_1", "type": "invoice.paid", "data": {}}`)
	req, _ := http.NewRequest("POST", "/webhooks/payments", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, signBody([]byte(`{"id": "evt_2"}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookHandler_UnknownEventAcked(t *testing.T) {
	// Неизвестный тип события подтверждается без обращения к хранилищу.
	r := webhookRouter(service.NewPaymentService(nil, nil))

	body := []byte(`{"id": "evt_1", "type": "invoice.paid", "data": {}}`)
	req, _ := http.NewRequest("POST", "/webhooks/payments", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, signBody(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "received")
}

func TestWebhookHandler_MalformedEvent(t *testing.T) {
	r := webhookRouter(nil)

	body := []byte(`{"type": "checkout.session.completed", "data": {}}`)
	req, _ := http.NewRequest("POST", "/webhooks/payments", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, signBody(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
