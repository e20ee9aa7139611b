package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/taskbridge/backend/internal/goroutine"
	"github.com/taskbridge/backend/internal/logger"
	"github.com/taskbridge/backend/internal/models"
	"github.com/taskbridge/backend/internal/pkg/apperror"
	"github.com/taskbridge/backend/internal/repository"
)

// ReviewRepository описывает хранилище отзывов и агрегатов рейтинга.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review, isCustomerReviewingWorker bool) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	GetByJobAndReviewer(ctx context.Context, jobID, reviewerID uuid.UUID) (*models.Review, error)
	ListByReviewedID(ctx context.Context, reviewedID uuid.UUID, limit, offset int) ([]models.Review, error)
	ListByJobID(ctx context.Context, jobID uuid.UUID) ([]models.Review, error)
	GetAverageRating(ctx context.Context, userID uuid.UUID) (float64, int, error)
}

// JobRepoForReview нужен сервису отзывов только для чтения объявления.
type JobRepoForReview interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobListing, error)
}

// ReviewService управляет отзывами. Отзыв принимается только от
// участников завершённого заказа и только один раз: гонку двойной
// отправки окончательно решает уникальный индекс в хранилище.
type ReviewService struct {
	repo     ReviewRepository
	jobs     JobRepoForReview
	notifier Notifier
}

// NewReviewService создаёт сервис отзывов.
func NewReviewService(repo ReviewRepository, jobs JobRepoForReview, notifier Notifier) *ReviewService {
	return &ReviewService{repo: repo, jobs: jobs, notifier: notifier}
}

// SubmitReview создаёт отзыв после завершения заказа. Агрегат рейтинга
// получателя пересчитывается в той же транзакции, что и вставка отзыва.
func (s *ReviewService) SubmitReview(ctx context.Context, jobID, reviewerID uuid.UUID, rating int, comment *string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, apperror.New(apperror.ErrCodeValidation, "рейтинг должен быть от 1 до 5")
	}
	if comment != nil && len(strings.TrimSpace(*comment)) > 2000 {
		return nil, apperror.New(apperror.ErrCodeValidation, "комментарий слишком длинный")
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, apperror.ErrJobNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "ошибка при получении объявления")
	}

	if job.Status != models.JobStatusCompleted {
		return nil, apperror.New(apperror.ErrCodeConflict, "отзыв можно оставить только после завершения заказа")
	}

	// Определяем получателя отзыва по роли автора в заказе.
	var reviewedID uuid.UUID
	isCustomerReviewingWorker := false
	switch {
	case reviewerID == job.CustomerID:
		if job.AssignedWorkerID == nil {
			return nil, apperror.New(apperror.ErrCodeConflict, "исполнитель не назначен")
		}
		reviewedID = *job.AssignedWorkerID
		isCustomerReviewingWorker = true
	case job.AssignedWorkerID != nil && reviewerID == *job.AssignedWorkerID:
		reviewedID = job.CustomerID
	default:
		return nil, apperror.New(apperror.ErrCodeForbidden, "вы не участник этого заказа")
	}

	review := &models.Review{
		JobID:      jobID,
		ReviewerID: reviewerID,
		ReviewedID: reviewedID,
		Rating:     rating,
		Comment:    comment,
	}

	if err := s.repo.Create(ctx, review, isCustomerReviewingWorker); err != nil {
		if errors.Is(err, repository.ErrDuplicateReview) {
			return nil, apperror.ErrDuplicateReview
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "ошибка при создании отзыва")
	}

	if s.notifier != nil {
		goroutine.SafeGo(func() {
			if err := s.notifier.BroadcastToUser(reviewedID, "review.created", map[string]interface{}{
				"job_id": jobID,
				"rating": rating,
			}); err != nil {
				logger.WithComponent("review_service").WithError(err).
					Warn("Не удалось отправить уведомление об отзыве")
			}
		})
	}

	return review, nil
}

// GetReview возвращает отзыв по идентификатору.
func (s *ReviewService) GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "отзыв не найден")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "ошибка при получении отзыва")
	}
	return review, nil
}

// ListUserReviews возвращает отзывы о пользователе.
func (s *ReviewService) ListUserReviews(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	reviews, err := s.repo.ListByReviewedID(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "ошибка при получении отзывов")
	}
	return reviews, nil
}

// ListJobReviews возвращает отзывы по заказу.
func (s *ReviewService) ListJobReviews(ctx context.Context, jobID uuid.UUID) ([]models.Review, error) {
	reviews, err := s.repo.ListByJobID(ctx, jobID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "ошибка при получении отзывов")
	}
	return reviews, nil
}

// GetUserRating возвращает средний рейтинг и количество отзывов.
func (s *ReviewService) GetUserRating(ctx context.Context, userID uuid.UUID) (float64, int, error) {
	avg, count, err := s.repo.GetAverageRating(ctx, userID)
	if err != nil {
		return 0, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "ошибка при получении рейтинга")
	}
	return avg, count, nil
}

// CanLeaveReview проверяет, доступна ли пользователю форма отзыва.
func (s *ReviewService) CanLeaveReview(ctx context.Context, jobID, userID uuid.UUID) (bool, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return false, nil
	}
	if job.Status != models.JobStatusCompleted {
		return false, nil
	}
	if userID != job.CustomerID && (job.AssignedWorkerID == nil || userID != *job.AssignedWorkerID) {
		return false, nil
	}
	existing, err := s.repo.GetByJobAndReviewer(ctx, jobID, userID)
	if err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "ошибка при проверке отзыва")
	}
	return existing == nil, nil
}
