package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskbridge/backend/internal/models"
	"github.com/taskbridge/backend/internal/repository/common"
)

var (
	// ErrJobNotFound возвращается, когда объявление не найдено.
	ErrJobNotFound = errors.New("job listing not found")
	// ErrApplicationNotFound возвращается, когда отклик не найден.
	ErrApplicationNotFound = errors.New("application not found")
	// ErrJobStatusConflict возвращается, когда статус объявления уже не позволяет переход.
	ErrJobStatusConflict = errors.New("job status conflict")
	// ErrApplicationStatusConflict возвращается, когда отклик уже обработан.
	ErrApplicationStatusConflict = errors.New("application status conflict")
	// ErrDuplicateApplication возвращается при повторном отклике на то же объявление.
	ErrDuplicateApplication = errors.New("duplicate application")
	// ErrNotJobOwner возвращается, когда действие выполняет не владелец объявления.
	ErrNotJobOwner = errors.New("not job owner")
)

// JobRepository отвечает за объявления, отклики и историю переходов.
// Все инварианты сопровождения (единственный принятый отклик, списание
// токенов строго вместе с созданием отклика) обеспечиваются транзакциями
// и блокировкой строки объявления, а не состоянием в памяти.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository создаёт экземпляр репозитория.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create создаёт объявление в статусе pending.
func (r *JobRepository) Create(ctx context.Context, job *models.JobListing) error {
	query := `
		INSERT INTO job_listings (customer_id, title, description, status, premium, token_cost, deadline_at)
		VALUES ($1, $2, $3, 'pending', $4, $5, $6)
		RETURNING id, status, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		job.CustomerID, job.Title, job.Description, job.Premium, job.TokenCost, job.DeadlineAt,
	).Scan(&job.ID, &job.Status, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return fmt.Errorf("job repository: create %w", err)
	}
	return nil
}

// GetByID возвращает объявление по идентификатору.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.JobListing, error) {
	return common.GetByID[models.JobListing](ctx, r.db, "job_listings", id, ErrJobNotFound)
}

// List возвращает объявления с фильтром по статусу и пагинацией.
func (r *JobRepository) List(ctx context.Context, status string, limit, offset int) ([]models.JobListing, error) {
	query := `
		SELECT j.*, COUNT(a.id) AS applications_count
		FROM job_listings j
		LEFT JOIN applications a ON a.job_id = j.id
	`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE j.status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` GROUP BY j.id ORDER BY j.created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	var jobs []models.JobListing
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("job repository: list %w", err)
	}
	return jobs, nil
}

// ListByCustomer возвращает объявления заказчика.
func (r *JobRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.JobListing, error) {
	var jobs []models.JobListing
	err := r.db.SelectContext(ctx, &jobs, `
		SELECT * FROM job_listings WHERE customer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, customerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("job repository: list by customer %w", err)
	}
	return jobs, nil
}

// CreateApplication создаёт отклик на объявление одной транзакцией:
// блокирует строку объявления, проверяет что оно всё ещё pending,
// вставляет отклик (дубликат по паре job/worker отсечёт уникальный
// индекс) и, для премиум объявления, списывает токены. Любая ошибка
// откатывает всё целиком - отклика без списания не бывает и наоборот.
func (r *JobRepository) CreateApplication(ctx context.Context, app *models.Application) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var job models.JobListing
		err := tx.GetContext(ctx, &job, `
			SELECT id, customer_id, status, premium, token_cost FROM job_listings WHERE id = $1 FOR UPDATE
		`, app.JobID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrJobNotFound
			}
			return fmt.Errorf("job repository: lock job %w", err)
		}

		if job.Status != models.JobStatusPending {
			return ErrJobStatusConflict
		}

		err = tx.QueryRowxContext(ctx, `
			INSERT INTO applications (job_id, worker_id, message, estimated_price, status)
			VALUES ($1, $2, $3, $4, 'pending')
			ON CONFLICT (job_id, worker_id) DO NOTHING
			RETURNING id, status, created_at, updated_at
		`, app.JobID, app.WorkerID, app.Message, app.EstimatedPrice).
			Scan(&app.ID, &app.Status, &app.CreatedAt, &app.UpdatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrDuplicateApplication
			}
			return fmt.Errorf("job repository: insert application %w", err)
		}

		if job.Premium {
			key := fmt.Sprintf("apply:%s:%s", app.JobID, app.WorkerID)
			if _, _, err := applyLedgerEntryTx(ctx, tx, app.WorkerID, -job.TokenCost,
				models.LedgerReasonApplyDebit, key); err != nil {
				return err
			}
		}

		return nil
	})
}

// AcceptApplication принимает отклик одной атомарной транзакцией:
// объявление блокируется и должно быть pending на момент коммита, целевой
// отклик становится accepted, все остальные pending отклики - rejected,
// объявление переходит в assigned с назначенным исполнителем. Конкурентные
// вызовы сериализуются блокировкой строки объявления: побеждает первый
// коммит, остальные получают ErrJobStatusConflict.
func (r *JobRepository) AcceptApplication(ctx context.Context, jobID, applicationID, customerID uuid.UUID) (*models.Application, error) {
	var accepted models.Application
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var job models.JobListing
		err := tx.GetContext(ctx, &job, `
			SELECT id, customer_id, status FROM job_listings WHERE id = $1 FOR UPDATE
		`, jobID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrJobNotFound
			}
			return fmt.Errorf("job repository: lock job %w", err)
		}

		if job.CustomerID != customerID {
			return ErrNotJobOwner
		}
		if job.Status != models.JobStatusPending {
			return ErrJobStatusConflict
		}

		var app models.Application
		err = tx.GetContext(ctx, &app,
			`SELECT * FROM applications WHERE id = $1 AND job_id = $2`, applicationID, jobID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrApplicationNotFound
			}
			return fmt.Errorf("job repository: get application %w", err)
		}
		if app.Status != models.ApplicationStatusPending {
			return ErrApplicationStatusConflict
		}

		if err := tx.GetContext(ctx, &accepted, `
			UPDATE applications SET status = 'accepted', updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, applicationID); err != nil {
			return fmt.Errorf("job repository: accept application %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE applications SET status = 'rejected', updated_at = NOW()
			WHERE job_id = $1 AND id <> $2 AND status = 'pending'
		`, jobID, applicationID); err != nil {
			return fmt.Errorf("job repository: reject competitors %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE job_listings SET status = 'assigned', assigned_worker_id = $2, updated_at = NOW()
			WHERE id = $1
		`, jobID, app.WorkerID); err != nil {
			return fmt.Errorf("job repository: assign worker %w", err)
		}

		return addJobHistoryTx(ctx, tx, jobID, &customerID, "accept_application",
			models.JobStatusPending, models.JobStatusAssigned)
	})
	if err != nil {
		return nil, err
	}
	return &accepted, nil
}

// UpdateStatus переводит объявление из ожидаемого статуса в новый одной
// CAS-командой: условие WHERE status = from делает конкурентный переход
// безопасным без повторного чтения.
func (r *JobRepository) UpdateStatus(ctx context.Context, jobID uuid.UUID, actorID *uuid.UUID, action, from, to string) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE job_listings SET status = $3, updated_at = NOW()
			WHERE id = $1 AND status = $2
		`, jobID, from, to)
		if err != nil {
			return fmt.Errorf("job repository: update status %w", err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("job repository: rows affected %w", err)
		}
		if rows == 0 {
			// Различаем отсутствие объявления и конкурентную смену статуса.
			var exists bool
			if err := tx.GetContext(ctx, &exists,
				`SELECT EXISTS (SELECT 1 FROM job_listings WHERE id = $1)`, jobID); err != nil {
				return fmt.Errorf("job repository: check existence %w", err)
			}
			if !exists {
				return ErrJobNotFound
			}
			return ErrJobStatusConflict
		}

		return addJobHistoryTx(ctx, tx, jobID, actorID, action, from, to)
	})
}

// ListApplicationsByJob возвращает отклики на объявление.
func (r *JobRepository) ListApplicationsByJob(ctx context.Context, jobID uuid.UUID) ([]models.Application, error) {
	var apps []models.Application
	err := r.db.SelectContext(ctx, &apps, `
		SELECT * FROM applications WHERE job_id = $1 ORDER BY created_at ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("job repository: list applications %w", err)
	}
	return apps, nil
}

// ListApplicationsByWorker возвращает отклики исполнителя.
func (r *JobRepository) ListApplicationsByWorker(ctx context.Context, workerID uuid.UUID, limit, offset int) ([]models.Application, error) {
	var apps []models.Application
	err := r.db.SelectContext(ctx, &apps, `
		SELECT * FROM applications WHERE worker_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, workerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("job repository: list worker applications %w", err)
	}
	return apps, nil
}

// GetApplicationByID возвращает отклик по идентификатору.
func (r *JobRepository) GetApplicationByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	return common.GetByID[models.Application](ctx, r.db, "applications", id, ErrApplicationNotFound)
}

// GetApplicationByJobAndWorker возвращает отклик пары (объявление, исполнитель).
func (r *JobRepository) GetApplicationByJobAndWorker(ctx context.Context, jobID, workerID uuid.UUID) (*models.Application, error) {
	var app models.Application
	err := r.db.GetContext(ctx, &app,
		`SELECT * FROM applications WHERE job_id = $1 AND worker_id = $2`, jobID, workerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("job repository: get application by job and worker %w", err)
	}
	return &app, nil
}

// addJobHistoryTx добавляет запись о переходе статуса в той же транзакции.
func addJobHistoryTx(ctx context.Context, tx *sqlx.Tx, jobID uuid.UUID, actorID *uuid.UUID, action string, oldStatus, newStatus interface{}) error {
	oldJSON, _ := json.Marshal(oldStatus)
	newJSON, _ := json.Marshal(newStatus)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO job_history (job_id, actor_id, action, old_value, new_value)
		VALUES ($1, $2, $3, $4, $5)
	`, jobID, actorID, action, oldJSON, newJSON); err != nil {
		return fmt.Errorf("job repository: add history %w", err)
	}
	return nil
}
