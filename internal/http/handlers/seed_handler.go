package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskbridge/backend/internal/http/handlers/common"
	"github.com/taskbridge/backend/internal/service"
)

// SeedHandler наполняет базу демонстрационными данными.
// Регистрируется только вне production окружения.
type SeedHandler struct {
	seed *service.SeedService
}

// NewSeedHandler создаёт хэндлер.
func NewSeedHandler(seed *service.SeedService) *SeedHandler {
	return &SeedHandler{seed: seed}
}

// Seed обрабатывает POST /dev/seed.
func (h *SeedHandler) Seed(c *gin.Context) {
	numUsers := common.ParseIntQuery(c, "users", 20)
	numJobs := common.ParseIntQuery(c, "jobs", 30)

	if numUsers < 1 || numUsers > 500 || numJobs < 0 || numJobs > 1000 {
		common.RespondBadRequest(c, "допустимо users 1..500, jobs 0..1000")
		return
	}

	if err := h.seed.SeedData(c.Request.Context(), numUsers, numJobs); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "демо-данные созданы"})
}
