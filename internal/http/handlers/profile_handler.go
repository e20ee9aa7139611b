package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskbridge/backend/internal/http/handlers/common"
	"github.com/taskbridge/backend/internal/service"
)

// ProfileHandler предоставляет HTTP слой для профилей пользователей.
type ProfileHandler struct {
	auth *service.AuthService
}

// NewProfileHandler создаёт хэндлер.
func NewProfileHandler(auth *service.AuthService) *ProfileHandler {
	return &ProfileHandler{auth: auth}
}

// Me обрабатывает GET /users/me.
func (h *ProfileHandler) Me(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	user, err := h.auth.GetUser(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// GetUser обрабатывает GET /users/:id. Публичный профиль с агрегатами
// рейтинга, без email.
func (h *ProfileHandler) GetUser(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	user, err := h.auth.GetUser(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":             user.ID,
		"username":       user.Username,
		"role":           user.Role,
		"avg_rating":     user.AvgRating,
		"review_count":   user.ReviewCount,
		"completed_jobs": user.CompletedJobs,
		"created_at":     user.CreatedAt,
	})
}
