package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/taskbridge/backend/internal/domain/valueobject"
	"github.com/taskbridge/backend/internal/goroutine"
	"github.com/taskbridge/backend/internal/logger"
	"github.com/taskbridge/backend/internal/models"
	"github.com/taskbridge/backend/internal/pkg/apperror"
	"github.com/taskbridge/backend/internal/repository"
	"github.com/taskbridge/backend/internal/validation"
)

// JobRepository описывает зависимости MatchingService от слоя хранилища.
type JobRepository interface {
	Create(ctx context.Context, job *models.JobListing) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobListing, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.JobListing, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.JobListing, error)
	CreateApplication(ctx context.Context, app *models.Application) error
	AcceptApplication(ctx context.Context, jobID, applicationID, customerID uuid.UUID) (*models.Application, error)
	UpdateStatus(ctx context.Context, jobID uuid.UUID, actorID *uuid.UUID, action, from, to string) error
	ListApplicationsByJob(ctx context.Context, jobID uuid.UUID) ([]models.Application, error)
	ListApplicationsByWorker(ctx context.Context, workerID uuid.UUID, limit, offset int) ([]models.Application, error)
	GetApplicationByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
}

// Notifier доставляет уведомление пользователю. Доставка best-effort:
// сбой здесь никогда не откатывает транзакции сопровождения.
type Notifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// MatchingService владеет жизненным циклом объявлений и откликов.
// Все конкурентные инварианты (единственный принятый отклик, списание
// токенов строго вместе с откликом) обеспечивает транзакционный слой;
// сервис отвечает за проверки прав и допустимость переходов.
type MatchingService struct {
	jobs     JobRepository
	notifier Notifier
}

// NewMatchingService создаёт сервис сопровождения.
func NewMatchingService(jobs JobRepository, notifier Notifier) *MatchingService {
	return &MatchingService{jobs: jobs, notifier: notifier}
}

// CreateJobInput содержит данные нового объявления.
type CreateJobInput struct {
	CustomerID  uuid.UUID
	Title       string
	Description string
	Premium     bool
	TokenCost   int64
}

// CreateJob создаёт объявление в статусе pending.
func (s *MatchingService) CreateJob(ctx context.Context, in CreateJobInput) (*models.JobListing, error) {
	if err := validation.ValidateJobTitle(in.Title); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateJobDescription(in.Description); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.TokenCost < 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "стоимость отклика не может быть отрицательной")
	}
	if in.Premium && in.TokenCost == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "премиум объявление должно иметь положительную стоимость отклика")
	}
	if !in.Premium {
		in.TokenCost = 0
	}

	job := &models.JobListing{
		CustomerID:  in.CustomerID,
		Title:       in.Title,
		Description: in.Description,
		Premium:     in.Premium,
		TokenCost:   in.TokenCost,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать объявление")
	}
	return job, nil
}

// ApplyInput содержит данные отклика исполнителя.
type ApplyInput struct {
	JobID          uuid.UUID
	WorkerID       uuid.UUID
	Message        string
	EstimatedPrice *int64
}

// Apply создаёт отклик исполнителя. Для премиум объявления списание
// токенов происходит в той же транзакции, что и вставка отклика: при
// нехватке токенов отклик не создаётся вовсе.
func (s *MatchingService) Apply(ctx context.Context, in ApplyInput) (*models.Application, error) {
	if err := validation.ValidateApplicationMessage(in.Message); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.EstimatedPrice != nil && *in.EstimatedPrice < 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "предложенная цена не может быть отрицательной")
	}

	job, err := s.jobs.GetByID(ctx, in.JobID)
	if err != nil {
		return nil, mapMatchingError(err)
	}
	if job.CustomerID == in.WorkerID {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "нельзя откликнуться на собственное объявление")
	}

	app := &models.Application{
		JobID:          in.JobID,
		WorkerID:       in.WorkerID,
		Message:        in.Message,
		EstimatedPrice: in.EstimatedPrice,
	}
	if err := s.jobs.CreateApplication(ctx, app); err != nil {
		return nil, mapMatchingError(err)
	}

	s.notify(job.CustomerID, "application.created", app)
	return app, nil
}

// Accept принимает отклик: ровно один исполнитель назначается на
// объявление, остальные pending отклики отклоняются той же транзакцией.
// Проигравший конкурентный Accept получает конфликт, никогда не тихий успех.
func (s *MatchingService) Accept(ctx context.Context, jobID, applicationID, customerID uuid.UUID) (*models.Application, error) {
	accepted, err := s.jobs.AcceptApplication(ctx, jobID, applicationID, customerID)
	if err != nil {
		return nil, mapMatchingError(err)
	}

	s.notify(accepted.WorkerID, "application.accepted", accepted)
	return accepted, nil
}

// StartWork переводит объявление из assigned в in_progress.
func (s *MatchingService) StartWork(ctx context.Context, jobID, customerID uuid.UUID) error {
	return s.transition(ctx, jobID, customerID, "start_work",
		valueobject.JobStatusAssigned, valueobject.JobStatusInProgress)
}

// Complete переводит объявление из in_progress в completed, после чего
// участники могут оставить отзывы.
func (s *MatchingService) Complete(ctx context.Context, jobID, customerID uuid.UUID) error {
	return s.transition(ctx, jobID, customerID, "complete",
		valueobject.JobStatusInProgress, valueobject.JobStatusCompleted)
}

// Cancel отменяет объявление. Возможно только из pending: после
// назначения исполнителя отмена не поддерживается.
func (s *MatchingService) Cancel(ctx context.Context, jobID, customerID uuid.UUID) error {
	return s.transition(ctx, jobID, customerID, "cancel",
		valueobject.JobStatusPending, valueobject.JobStatusCancelled)
}

// transition выполняет переход статуса с проверкой владельца и машины состояний.
func (s *MatchingService) transition(ctx context.Context, jobID, customerID uuid.UUID, action string, from, to valueobject.JobStatus) error {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return mapMatchingError(err)
	}
	if job.CustomerID != customerID {
		return apperror.ErrForbidden
	}
	// Быстрая проверка по прочитанному состоянию; гонку окончательно
	// разрешает CAS-переход в хранилище.
	if cur := valueobject.JobStatus(job.Status); !cur.CanTransitionTo(to) {
		return apperror.New(apperror.ErrCodeConflict, "недопустимый переход статуса")
	}

	if err := s.jobs.UpdateStatus(ctx, jobID, &customerID, action, string(from), string(to)); err != nil {
		// CAS в хранилище проиграл гонку: статус сменил кто-то другой.
		// Формулировка про "недоступное объявление" относится только к
		// откликам на pending, здесь она вводила бы в заблуждение.
		if errors.Is(err, repository.ErrJobStatusConflict) {
			return apperror.ErrJobStatusChanged
		}
		return mapMatchingError(err)
	}

	if job.AssignedWorkerID != nil {
		s.notify(*job.AssignedWorkerID, "job."+string(to), job)
	}
	return nil
}

// GetJob возвращает объявление.
func (s *MatchingService) GetJob(ctx context.Context, jobID uuid.UUID) (*models.JobListing, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, mapMatchingError(err)
	}
	return job, nil
}

// ListJobs возвращает объявления с фильтром по статусу.
func (s *MatchingService) ListJobs(ctx context.Context, status string, limit, offset int) ([]models.JobListing, error) {
	if status != "" {
		if _, ok := models.ValidJobStatuses[status]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "некорректный статус объявления")
		}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.jobs.List(ctx, status, limit, offset)
}

// ListMyJobs возвращает объявления заказчика.
func (s *MatchingService) ListMyJobs(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.JobListing, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.jobs.ListByCustomer(ctx, customerID, limit, offset)
}

// ListApplications возвращает отклики на объявление; доступно только владельцу.
func (s *MatchingService) ListApplications(ctx context.Context, jobID, requesterID uuid.UUID) ([]models.Application, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, mapMatchingError(err)
	}
	if job.CustomerID != requesterID {
		return nil, apperror.ErrForbidden
	}
	return s.jobs.ListApplicationsByJob(ctx, jobID)
}

// ListMyApplications возвращает отклики исполнителя.
func (s *MatchingService) ListMyApplications(ctx context.Context, workerID uuid.UUID, limit, offset int) ([]models.Application, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.jobs.ListApplicationsByWorker(ctx, workerID, limit, offset)
}

// notify отправляет уведомление второй стороне, не блокируя запрос.
func (s *MatchingService) notify(userID uuid.UUID, event string, data any) {
	if s.notifier == nil {
		return
	}
	goroutine.SafeGo(func() {
		if err := s.notifier.BroadcastToUser(userID, event, data); err != nil {
			logger.WithComponent("matching").
				WithField("event", event).
				WithField("user_id", userID).
				Warnf("не удалось доставить уведомление: %v", err)
		}
	})
}

func mapMatchingError(err error) error {
	switch {
	case errors.Is(err, repository.ErrJobNotFound):
		return apperror.ErrJobNotFound
	case errors.Is(err, repository.ErrApplicationNotFound):
		return apperror.ErrApplicationNotFound
	case errors.Is(err, repository.ErrJobStatusConflict):
		return apperror.ErrJobNotPending
	case errors.Is(err, repository.ErrApplicationStatusConflict):
		return apperror.ErrApplicationNotPending
	case errors.Is(err, repository.ErrDuplicateApplication):
		return apperror.ErrDuplicateApplication
	case errors.Is(err, repository.ErrNotJobOwner):
		return apperror.ErrForbidden
	case errors.Is(err, repository.ErrInsufficientCredit):
		return apperror.ErrInsufficientCredit
	case errors.Is(err, repository.ErrUserNotFound):
		return apperror.ErrUserNotFound
	default:
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "операция не выполнена")
	}
}
