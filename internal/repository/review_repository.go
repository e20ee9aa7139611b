package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskbridge/backend/internal/models"
	"github.com/taskbridge/backend/internal/repository/common"
)

var (
	// ErrReviewNotFound возвращается, когда отзыв не найден.
	ErrReviewNotFound = errors.New("review not found")
	// ErrDuplicateReview возвращается при повторном отзыве на тот же заказ.
	ErrDuplicateReview = errors.New("duplicate review")
)

// ReviewRepository отвечает за отзывы и кэшированный агрегат рейтинга.
// Вставка отзыва и пересчёт агрегата выполняются одной транзакцией,
// поэтому avg_rating никогда не отстаёт от породившего его отзыва.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository создаёт экземпляр репозитория.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create создаёт отзыв и синхронно пересчитывает агрегат пользователя.
// Дубликат по паре (job_id, reviewer_id) отсекает уникальный индекс.
// Если заказчик оценивает исполнителя, счётчик завершённых заказов
// исполнителя увеличивается в той же транзакции - ровно один раз,
// потому что дубликат отзыва не проходит дальше вставки.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review, isCustomerReviewingWorker bool) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO reviews (job_id, reviewer_id, reviewed_id, rating, comment)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (job_id, reviewer_id) DO NOTHING
			RETURNING id, created_at
		`, review.JobID, review.ReviewerID, review.ReviewedID, review.Rating, review.Comment).
			Scan(&review.ID, &review.CreatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrDuplicateReview
			}
			return fmt.Errorf("review repository: create %w", err)
		}

		completedDelta := 0
		if isCustomerReviewingWorker {
			completedDelta = 1
		}

		// Пересчёты по одному пользователю сериализуются блокировкой его
		// строки: без неё конкурентная вставка по другому заказу читает
		// AVG без только что добавленного отзыва.
		var reviewedID uuid.UUID
		if err := tx.GetContext(ctx, &reviewedID, `
			SELECT id FROM users WHERE id = $1 FOR UPDATE
		`, review.ReviewedID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("review repository: lock reviewed user %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET
				avg_rating = (SELECT AVG(rating) FROM reviews WHERE reviewed_id = $1),
				review_count = (SELECT COUNT(*) FROM reviews WHERE reviewed_id = $1),
				completed_jobs = completed_jobs + $2,
				updated_at = NOW()
			WHERE id = $1
		`, review.ReviewedID, completedDelta); err != nil {
			return fmt.Errorf("review repository: refresh aggregate %w", err)
		}

		return nil
	})
}

// GetByID возвращает отзыв по идентификатору.
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	return common.GetByID[models.Review](ctx, r.db, "reviews", id, ErrReviewNotFound)
}

// GetByJobAndReviewer проверяет, оставлял ли пользователь отзыв на заказ.
func (r *ReviewRepository) GetByJobAndReviewer(ctx context.Context, jobID, reviewerID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.GetContext(ctx, &review,
		`SELECT * FROM reviews WHERE job_id = $1 AND reviewer_id = $2`, jobID, reviewerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("review repository: get by job and reviewer %w", err)
	}
	return &review, nil
}

// ListByReviewedID возвращает отзывы о пользователе.
func (r *ReviewRepository) ListByReviewedID(ctx context.Context, reviewedID uuid.UUID, limit, offset int) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.SelectContext(ctx, &reviews, `
		SELECT * FROM reviews WHERE reviewed_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, reviewedID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("review repository: list by reviewed %w", err)
	}
	return reviews, nil
}

// ListByJobID возвращает отзывы по заказу.
func (r *ReviewRepository) ListByJobID(ctx context.Context, jobID uuid.UUID) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.SelectContext(ctx, &reviews, `SELECT * FROM reviews WHERE job_id = $1`, jobID)
	if err != nil {
		return nil, fmt.Errorf("review repository: list by job %w", err)
	}
	return reviews, nil
}

// GetAverageRating возвращает средний рейтинг и количество отзывов.
func (r *ReviewRepository) GetAverageRating(ctx context.Context, userID uuid.UUID) (float64, int, error) {
	var result struct {
		Avg   sql.NullFloat64 `db:"avg"`
		Count int             `db:"count"`
	}
	err := r.db.GetContext(ctx, &result, `
		SELECT COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count FROM reviews WHERE reviewed_id = $1
	`, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("review repository: get average rating %w", err)
	}
	return result.Avg.Float64, result.Count, nil
}
