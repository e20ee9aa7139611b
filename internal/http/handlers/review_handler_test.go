package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

const validUUID = "7b9f4a46-1f6e-4d37-9f2d-0b9f5f3f2a10"

func TestReviewHandler_SubmitReview_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &ReviewHandler{reviews: nil}
	r.POST("/jobs/:id/reviews", handler.SubmitReview)

	req, _ := http.NewRequest("POST", "/jobs/"+validUUID+"/reviews", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReviewHandler_ListJobReviews_InvalidJobID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &ReviewHandler{reviews: nil}
	r.GET("/jobs/:id/reviews", handler.ListJobReviews)

	req, _ := http.NewRequest("GET", "/jobs/not-a-uuid/reviews", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReviewHandler_CanLeaveReview_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &ReviewHandler{reviews: nil}
	r.GET("/jobs/:id/can-review", handler.CanLeaveReview)

	req, _ := http.NewRequest("GET", "/jobs/"+validUUID+"/can-review", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
