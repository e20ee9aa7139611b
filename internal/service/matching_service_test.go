package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/taskbridge/backend/internal/models"
	"github.com/taskbridge/backend/internal/pkg/apperror"
	"github.com/taskbridge/backend/internal/repository"
)

type mockJobRepo struct {
	mock.Mock
}

func (m *mockJobRepo) Create(ctx context.Context, job *models.JobListing) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *mockJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.JobListing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JobListing), args.Error(1)
}

func (m *mockJobRepo) List(ctx context.Context, status string, limit, offset int) ([]models.JobListing, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.JobListing), args.Error(1)
}

func (m *mockJobRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.JobListing, error) {
	args := m.Called(ctx, customerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.JobListing), args.Error(1)
}

func (m *mockJobRepo) CreateApplication(ctx context.Context, app *models.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *mockJobRepo) AcceptApplication(ctx context.Context, jobID, applicationID, customerID uuid.UUID) (*models.Application, error) {
	args := m.Called(ctx, jobID, applicationID, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *mockJobRepo) UpdateStatus(ctx context.Context, jobID uuid.UUID, actorID *uuid.UUID, action, from, to string) error {
	args := m.Called(ctx, jobID, actorID, action, from, to)
	return args.Error(0)
}

func (m *mockJobRepo) ListApplicationsByJob(ctx context.Context, jobID uuid.UUID) ([]models.Application, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Application), args.Error(1)
}

func (m *mockJobRepo) ListApplicationsByWorker(ctx context.Context, workerID uuid.UUID, limit, offset int) ([]models.Application, error) {
	args := m.Called(ctx, workerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Application), args.Error(1)
}

func (m *mockJobRepo) GetApplicationByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	args := m.Called(userID, event, data)
	return args.Error(0)
}

// Уведомления уходят в отдельной горутине, поэтому в тестах к ним
// нельзя привязывать обязательные ожидания.
func newTolerantNotifier() *mockNotifier {
	n := new(mockNotifier)
	n.On("BroadcastToUser", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return n
}

func TestMatchingService_CreateJob_Success(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	customerID := uuid.New()
	repo.On("Create", ctx, mock.AnythingOfType("*models.JobListing")).Return(nil)

	job, err := svc.CreateJob(ctx, CreateJobInput{
		CustomerID:  customerID,
		Title:       "Сверстать лендинг",
		Description: "Нужен адаптивный лендинг по готовому макету в Figma.",
		Premium:     true,
		TokenCost:   3,
	})

	assert.NoError(t, err)
	assert.Equal(t, customerID, job.CustomerID)
	assert.Equal(t, int64(3), job.TokenCost)
	repo.AssertExpectations(t)
}

func TestMatchingService_CreateJob_PremiumWithoutCost(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	_, err := svc.CreateJob(ctx, CreateJobInput{
		CustomerID:  uuid.New(),
		Title:       "Сверстать лендинг",
		Description: "Нужен адаптивный лендинг по готовому макету в Figma.",
		Premium:     true,
		TokenCost:   0,
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "премиум")
	repo.AssertNotCalled(t, "Create")
}

func TestMatchingService_CreateJob_NonPremiumResetsCost(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*models.JobListing")).Return(nil)

	job, err := svc.CreateJob(ctx, CreateJobInput{
		CustomerID:  uuid.New(),
		Title:       "Написать парсер",
		Description: "Нужен парсер прайс-листов поставщиков в формате xlsx.",
		Premium:     false,
		TokenCost:   5,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(0), job.TokenCost)
}

func TestMatchingService_CreateJob_ShortTitle(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	_, err := svc.CreateJob(ctx, CreateJobInput{
		CustomerID:  uuid.New(),
		Title:       "аб",
		Description: "Нужен адаптивный лендинг по готовому макету в Figma.",
	})

	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestMatchingService_Apply_Success(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	jobID := uuid.New()
	workerID := uuid.New()
	job := &models.JobListing{ID: jobID, CustomerID: uuid.New(), Status: models.JobStatusPending}

	repo.On("GetByID", ctx, jobID).Return(job, nil)
	repo.On("CreateApplication", ctx, mock.AnythingOfType("*models.Application")).Return(nil)

	app, err := svc.Apply(ctx, ApplyInput{
		JobID:    jobID,
		WorkerID: workerID,
		Message:  "Готов взяться, делал похожие проекты.",
	})

	assert.NoError(t, err)
	assert.Equal(t, workerID, app.WorkerID)
	repo.AssertExpectations(t)
}

func TestMatchingService_Apply_OwnJob(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	jobID := uuid.New()
	customerID := uuid.New()
	job := &models.JobListing{ID: jobID, CustomerID: customerID, Status: models.JobStatusPending}

	repo.On("GetByID", ctx, jobID).Return(job, nil)

	_, err := svc.Apply(ctx, ApplyInput{
		JobID:    jobID,
		WorkerID: customerID,
		Message:  "Готов взяться, делал похожие проекты.",
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "собственное объявление")
	repo.AssertNotCalled(t, "CreateApplication")
}

func TestMatchingService_Apply_InsufficientCredit(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	jobID := uuid.New()
	job := &models.JobListing{ID: jobID, CustomerID: uuid.New(), Status: models.JobStatusPending, Premium: true, TokenCost: 5}

	repo.On("GetByID", ctx, jobID).Return(job, nil)
	repo.On("CreateApplication", ctx, mock.AnythingOfType("*models.Application")).
		Return(repository.ErrInsufficientCredit)

	_, err := svc.Apply(ctx, ApplyInput{
		JobID:    jobID,
		WorkerID: uuid.New(),
		Message:  "Готов взяться, делал похожие проекты.",
	})

	assert.ErrorIs(t, err, apperror.ErrInsufficientCredit)
}

func TestMatchingService_Apply_Duplicate(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	jobID := uuid.New()
	job := &models.JobListing{ID: jobID, CustomerID: uuid.New(), Status: models.JobStatusPending}

	repo.On("GetByID", ctx, jobID).Return(job, nil)
	repo.On("CreateApplication", ctx, mock.AnythingOfType("*models.Application")).
		Return(repository.ErrDuplicateApplication)

	_, err := svc.Apply(ctx, ApplyInput{
		JobID:    jobID,
		WorkerID: uuid.New(),
		Message:  "Готов взяться, делал похожие проекты.",
	})

	assert.ErrorIs(t, err, apperror.ErrDuplicateApplication)
	assert.True(t, apperror.IsConflict(err))
}

func TestMatchingService_Apply_JobNotFound(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	jobID := uuid.New()
	repo.On("GetByID", ctx, jobID).Return(nil, repository.ErrJobNotFound)

	_, err := svc.Apply(ctx, ApplyInput{
		JobID:    jobID,
		WorkerID: uuid.New(),
		Message:  "Готов взяться, делал похожие проекты.",
	})

	assert.ErrorIs(t, err, apperror.ErrJobNotFound)
}

func TestMatchingService_Apply_NegativePrice(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	price := int64(-100)
	_, err := svc.Apply(ctx, ApplyInput{
		JobID:          uuid.New(),
		WorkerID:       uuid.New(),
		Message:        "Готов взяться, делал похожие проекты.",
		EstimatedPrice: &price,
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "цена")
	repo.AssertNotCalled(t, "GetByID")
}

func TestMatchingService_Accept_Success(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	jobID := uuid.New()
	appID := uuid.New()
	customerID := uuid.New()
	accepted := &models.Application{ID: appID, JobID: jobID, WorkerID: uuid.New(), Status: models.ApplicationStatusAccepted}

	repo.On("AcceptApplication", ctx, jobID, appID, customerID).Return(accepted, nil)

	got, err := svc.Accept(ctx, jobID, appID, customerID)

	assert.NoError(t, err)
	assert.Equal(t, appID, got.ID)
	repo.AssertExpectations(t)
}

func TestMatchingService_Accept_NotOwner(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	repo.On("AcceptApplication", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, repository.ErrNotJobOwner)

	_, err := svc.Accept(ctx, uuid.New(), uuid.New(), uuid.New())

	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestMatchingService_Accept_JobAlreadyAssigned(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	repo.On("AcceptApplication", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, repository.ErrJobStatusConflict)

	_, err := svc.Accept(ctx, uuid.New(), uuid.New(), uuid.New())

	assert.ErrorIs(t, err, apperror.ErrJobNotPending)
}

func TestMatchingService_StartWork_Success(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	jobID := uuid.New()
	customerID := uuid.New()
	workerID := uuid.New()
	job := &models.JobListing{
		ID:               jobID,
		CustomerID:       customerID,
		Status:           models.JobStatusAssigned,
		AssignedWorkerID: &workerID,
	}

	repo.On("GetByID", ctx, jobID).Return(job, nil)
	repo.On("UpdateStatus", ctx, jobID, &customerID, "start_work",
		models.JobStatusAssigned, models.JobStatusInProgress).Return(nil)

	err := svc.StartWork(ctx, jobID, customerID)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestMatchingService_StartWork_NotOwner(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	jobID := uuid.New()
	job := &models.JobListing{ID: jobID, CustomerID: uuid.New(), Status: models.JobStatusAssigned}

	repo.On("GetByID", ctx, jobID).Return(job, nil)

	err := svc.StartWork(ctx, jobID, uuid.New())

	assert.ErrorIs(t, err, apperror.ErrForbidden)
	repo.AssertNotCalled(t, "UpdateStatus")
}

func TestMatchingService_Complete_WrongStatus(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	jobID := uuid.New()
	customerID := uuid.New()
	job := &models.JobListing{ID: jobID, CustomerID: customerID, Status: models.JobStatusPending}

	repo.On("GetByID", ctx, jobID).Return(job, nil)

	err := svc.Complete(ctx, jobID, customerID)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "недопустимый переход")
	repo.AssertNotCalled(t, "UpdateStatus")
}

func TestMatchingService_Cancel_AfterAssignmentRejected(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	jobID := uuid.New()
	customerID := uuid.New()
	workerID := uuid.New()
	job := &models.JobListing{
		ID:               jobID,
		CustomerID:       customerID,
		Status:           models.JobStatusAssigned,
		AssignedWorkerID: &workerID,
	}

	repo.On("GetByID", ctx, jobID).Return(job, nil)

	err := svc.Cancel(ctx, jobID, customerID)

	assert.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
	repo.AssertNotCalled(t, "UpdateStatus")
}

func TestMatchingService_Cancel_RaceLostInStorage(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	jobID := uuid.New()
	customerID := uuid.New()
	job := &models.JobListing{ID: jobID, CustomerID: customerID, Status: models.JobStatusPending}

	// Прочитали pending, но CAS в хранилище проиграл конкурентному Accept.
	repo.On("GetByID", ctx, jobID).Return(job, nil)
	repo.On("UpdateStatus", ctx, jobID, &customerID, "cancel",
		models.JobStatusPending, models.JobStatusCancelled).
		Return(repository.ErrJobStatusConflict)

	err := svc.Cancel(ctx, jobID, customerID)

	assert.ErrorIs(t, err, apperror.ErrJobStatusChanged)
}

func TestMatchingService_StartWork_RaceLostInStorage(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	jobID := uuid.New()
	customerID := uuid.New()
	workerID := uuid.New()
	job := &models.JobListing{
		ID:               jobID,
		CustomerID:       customerID,
		Status:           models.JobStatusAssigned,
		AssignedWorkerID: &workerID,
	}

	repo.On("GetByID", ctx, jobID).Return(job, nil)
	repo.On("UpdateStatus", ctx, jobID, &customerID, "start_work",
		models.JobStatusAssigned, models.JobStatusInProgress).
		Return(repository.ErrJobStatusConflict)

	err := svc.StartWork(ctx, jobID, customerID)

	// Конфликт перехода assigned -> in_progress не должен выглядеть как
	// "объявление уже недоступно" - это формулировка для откликов на pending.
	assert.ErrorIs(t, err, apperror.ErrJobStatusChanged)
	assert.True(t, apperror.IsConflict(err))
	assert.NotContains(t, err.Error(), "недоступно")
}

func TestMatchingService_ListApplications_OwnerOnly(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	jobID := uuid.New()
	job := &models.JobListing{ID: jobID, CustomerID: uuid.New(), Status: models.JobStatusPending}

	repo.On("GetByID", ctx, jobID).Return(job, nil)

	_, err := svc.ListApplications(ctx, jobID, uuid.New())

	assert.ErrorIs(t, err, apperror.ErrForbidden)
	repo.AssertNotCalled(t, "ListApplicationsByJob")
}

func TestMatchingService_ListJobs_InvalidStatus(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewMatchingService(repo, newTolerantNotifier())
	ctx := context.Background()

	_, err := svc.ListJobs(ctx, "archived", 20, 0)

	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	repo.AssertNotCalled(t, "List")
}
