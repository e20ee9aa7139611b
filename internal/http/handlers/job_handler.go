package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/taskbridge/backend/internal/dto"
	"github.com/taskbridge/backend/internal/http/handlers/common"
	"github.com/taskbridge/backend/internal/service"
)

// JobHandler предоставляет HTTP слой для объявлений и откликов.
type JobHandler struct {
	matching *service.MatchingService
	history  *service.JobHistoryService
}

// NewJobHandler создаёт хэндлер.
func NewJobHandler(matching *service.MatchingService, history *service.JobHistoryService) *JobHandler {
	return &JobHandler{matching: matching, history: history}
}

// CreateJob обрабатывает POST /jobs.
func (h *JobHandler) CreateJob(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	job, err := h.matching.CreateJob(c.Request.Context(), service.CreateJobInput{
		CustomerID:  userID,
		Title:       req.Title,
		Description: req.Description,
		Premium:     req.Premium,
		TokenCost:   req.TokenCost,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

// ListJobs обрабатывает GET /jobs.
func (h *JobHandler) ListJobs(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	status := c.Query("status")

	jobs, err := h.matching.ListJobs(c.Request.Context(), status, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// ListMyJobs обрабатывает GET /jobs/my.
func (h *JobHandler) ListMyJobs(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	jobs, err := h.matching.ListMyJobs(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// GetJob обрабатывает GET /jobs/:id.
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.matching.GetJob(c.Request.Context(), jobID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// Apply обрабатывает POST /jobs/:id/applications.
func (h *JobHandler) Apply(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	app, err := h.matching.Apply(c.Request.Context(), service.ApplyInput{
		JobID:          jobID,
		WorkerID:       userID,
		Message:        req.Message,
		EstimatedPrice: req.EstimatedPrice,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, app)
}

// ListApplications обрабатывает GET /jobs/:id/applications.
func (h *JobHandler) ListApplications(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	apps, err := h.matching.ListApplications(c.Request.Context(), jobID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

// ListMyApplications обрабатывает GET /applications/my.
func (h *JobHandler) ListMyApplications(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	apps, err := h.matching.ListMyApplications(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

// AcceptApplication обрабатывает POST /jobs/:id/applications/:appID/accept.
func (h *JobHandler) AcceptApplication(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	appID, err := common.ParseUUIDParam(c, "appID")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	accepted, err := h.matching.Accept(c.Request.Context(), jobID, appID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, accepted)
}

// StartWork обрабатывает POST /jobs/:id/start.
func (h *JobHandler) StartWork(c *gin.Context) {
	h.transition(c, h.matching.StartWork)
}

// Complete обрабатывает POST /jobs/:id/complete.
func (h *JobHandler) Complete(c *gin.Context) {
	h.transition(c, h.matching.Complete)
}

// Cancel обрабатывает POST /jobs/:id/cancel.
func (h *JobHandler) Cancel(c *gin.Context) {
	h.transition(c, h.matching.Cancel)
}

// ListHistory обрабатывает GET /jobs/:id/history.
func (h *JobHandler) ListHistory(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	entries, err := h.history.ListByJob(c.Request.Context(), jobID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": entries})
}

func (h *JobHandler) transition(c *gin.Context, op func(ctx context.Context, jobID, customerID uuid.UUID) error) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := op(c.Request.Context(), jobID, userID); err != nil {
		_ = c.Error(err)
		return
	}

	job, err := h.matching.GetJob(c.Request.Context(), jobID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, job)
}
