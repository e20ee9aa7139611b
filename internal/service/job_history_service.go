package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/taskbridge/backend/internal/models"
	"github.com/taskbridge/backend/internal/pkg/apperror"
	"github.com/taskbridge/backend/internal/repository"
)

// JobHistoryRepo описывает чтение истории объявления.
type JobHistoryRepo interface {
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.JobHistory, error)
}

// JobHistoryService отдаёт историю переходов статусов объявления.
// История видна владельцу и назначенному исполнителю.
type JobHistoryService struct {
	repo JobHistoryRepo
	jobs JobRepoForReview
}

// NewJobHistoryService создаёт сервис истории.
func NewJobHistoryService(repo JobHistoryRepo, jobs JobRepoForReview) *JobHistoryService {
	return &JobHistoryService{repo: repo, jobs: jobs}
}

// ListByJob возвращает историю объявления в хронологическом порядке.
func (s *JobHistoryService) ListByJob(ctx context.Context, jobID, requesterID uuid.UUID) ([]models.JobHistory, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, apperror.ErrJobNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "ошибка при получении объявления")
	}

	if requesterID != job.CustomerID && (job.AssignedWorkerID == nil || requesterID != *job.AssignedWorkerID) {
		return nil, apperror.ErrForbidden
	}

	history, err := s.repo.ListByJob(ctx, jobID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "ошибка при получении истории")
	}
	return history, nil
}
