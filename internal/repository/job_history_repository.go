package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskbridge/backend/internal/models"
)

// JobHistoryRepository отдаёт историю переходов статусов объявления.
// Записи создаются транзакциями JobRepository, здесь только чтение.
type JobHistoryRepository struct {
	db *sqlx.DB
}

func NewJobHistoryRepository(db *sqlx.DB) *JobHistoryRepository {
	return &JobHistoryRepository{db: db}
}

// ListByJob возвращает историю объявления в хронологическом порядке.
func (r *JobHistoryRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.JobHistory, error) {
	var history []models.JobHistory
	err := r.db.SelectContext(ctx, &history, `
		SELECT * FROM job_history WHERE job_id = $1 ORDER BY created_at ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("job history repository: list %w", err)
	}
	return history, nil
}
