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

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Create(ctx context.Context, review *models.Review, isCustomerReviewingWorker bool) error {
	args := m.Called(ctx, review, isCustomerReviewingWorker)
	return args.Error(0)
}

func (m *mockReviewRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockReviewRepo) GetByJobAndReviewer(ctx context.Context, jobID, reviewerID uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, jobID, reviewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockReviewRepo) ListByReviewedID(ctx context.Context, reviewedID uuid.UUID, limit, offset int) ([]models.Review, error) {
	args := m.Called(ctx, reviewedID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *mockReviewRepo) ListByJobID(ctx context.Context, jobID uuid.UUID) ([]models.Review, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *mockReviewRepo) GetAverageRating(ctx context.Context, userID uuid.UUID) (float64, int, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(float64), args.Int(1), args.Error(2)
}

func completedJob(customerID, workerID uuid.UUID) *models.JobListing {
	return &models.JobListing{
		ID:               uuid.New(),
		CustomerID:       customerID,
		Status:           models.JobStatusCompleted,
		AssignedWorkerID: &workerID,
	}
}

func TestReviewService_SubmitReview_CustomerReviewsWorker(t *testing.T) {
	repo := new(mockReviewRepo)
	jobs := new(mockJobRepo)
	svc := NewReviewService(repo, jobs, newTolerantNotifier())
	ctx := context.Background()

	customerID := uuid.New()
	workerID := uuid.New()
	job := completedJob(customerID, workerID)

	jobs.On("GetByID", ctx, job.ID).Return(job, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Review"), true).Return(nil)

	comment := "Отличная работа, всё в срок."
	review, err := svc.SubmitReview(ctx, job.ID, customerID, 5, &comment)

	assert.NoError(t, err)
	assert.Equal(t, workerID, review.ReviewedID)
	assert.Equal(t, 5, review.Rating)
	repo.AssertExpectations(t)
}

func TestReviewService_SubmitReview_WorkerReviewsCustomer(t *testing.T) {
	repo := new(mockReviewRepo)
	jobs := new(mockJobRepo)
	svc := NewReviewService(repo, jobs, newTolerantNotifier())
	ctx := context.Background()

	customerID := uuid.New()
	workerID := uuid.New()
	job := completedJob(customerID, workerID)

	jobs.On("GetByID", ctx, job.ID).Return(job, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Review"), false).Return(nil)

	review, err := svc.SubmitReview(ctx, job.ID, workerID, 4, nil)

	assert.NoError(t, err)
	assert.Equal(t, customerID, review.ReviewedID)
}

func TestReviewService_SubmitReview_InvalidRating(t *testing.T) {
	repo := new(mockReviewRepo)
	jobs := new(mockJobRepo)
	svc := NewReviewService(repo, jobs, newTolerantNotifier())
	ctx := context.Background()

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.SubmitReview(ctx, uuid.New(), uuid.New(), rating, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "от 1 до 5")
	}
	jobs.AssertNotCalled(t, "GetByID")
}

func TestReviewService_SubmitReview_JobNotCompleted(t *testing.T) {
	repo := new(mockReviewRepo)
	jobs := new(mockJobRepo)
	svc := NewReviewService(repo, jobs, newTolerantNotifier())
	ctx := context.Background()

	customerID := uuid.New()
	job := &models.JobListing{ID: uuid.New(), CustomerID: customerID, Status: models.JobStatusInProgress}

	jobs.On("GetByID", ctx, job.ID).Return(job, nil)

	_, err := svc.SubmitReview(ctx, job.ID, customerID, 5, nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "после завершения")
	repo.AssertNotCalled(t, "Create")
}

func TestReviewService_SubmitReview_NotParticipant(t *testing.T) {
	repo := new(mockReviewRepo)
	jobs := new(mockJobRepo)
	svc := NewReviewService(repo, jobs, newTolerantNotifier())
	ctx := context.Background()

	job := completedJob(uuid.New(), uuid.New())
	jobs.On("GetByID", ctx, job.ID).Return(job, nil)

	_, err := svc.SubmitReview(ctx, job.ID, uuid.New(), 5, nil)

	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
	assert.Contains(t, err.Error(), "не участник")
}

func TestReviewService_SubmitReview_Duplicate(t *testing.T) {
	repo := new(mockReviewRepo)
	jobs := new(mockJobRepo)
	svc := NewReviewService(repo, jobs, newTolerantNotifier())
	ctx := context.Background()

	customerID := uuid.New()
	job := completedJob(customerID, uuid.New())

	jobs.On("GetByID", ctx, job.ID).Return(job, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Review"), true).
		Return(repository.ErrDuplicateReview)

	_, err := svc.SubmitReview(ctx, job.ID, customerID, 5, nil)

	assert.ErrorIs(t, err, apperror.ErrDuplicateReview)
}

func TestReviewService_SubmitReview_JobNotFound(t *testing.T) {
	repo := new(mockReviewRepo)
	jobs := new(mockJobRepo)
	svc := NewReviewService(repo, jobs, newTolerantNotifier())
	ctx := context.Background()

	jobID := uuid.New()
	jobs.On("GetByID", ctx, jobID).Return(nil, repository.ErrJobNotFound)

	_, err := svc.SubmitReview(ctx, jobID, uuid.New(), 5, nil)

	assert.ErrorIs(t, err, apperror.ErrJobNotFound)
}

func TestReviewService_CanLeaveReview(t *testing.T) {
	repo := new(mockReviewRepo)
	jobs := new(mockJobRepo)
	svc := NewReviewService(repo, jobs, newTolerantNotifier())
	ctx := context.Background()

	customerID := uuid.New()
	workerID := uuid.New()
	job := completedJob(customerID, workerID)

	jobs.On("GetByID", ctx, job.ID).Return(job, nil)
	repo.On("GetByJobAndReviewer", ctx, job.ID, customerID).Return(nil, nil)

	can, err := svc.CanLeaveReview(ctx, job.ID, customerID)

	assert.NoError(t, err)
	assert.True(t, can)
}

func TestReviewService_CanLeaveReview_AlreadyLeft(t *testing.T) {
	repo := new(mockReviewRepo)
	jobs := new(mockJobRepo)
	svc := NewReviewService(repo, jobs, newTolerantNotifier())
	ctx := context.Background()

	customerID := uuid.New()
	job := completedJob(customerID, uuid.New())

	jobs.On("GetByID", ctx, job.ID).Return(job, nil)
	repo.On("GetByJobAndReviewer", ctx, job.ID, customerID).
		Return(&models.Review{JobID: job.ID, ReviewerID: customerID}, nil)

	can, err := svc.CanLeaveReview(ctx, job.ID, customerID)

	assert.NoError(t, err)
	assert.False(t, can)
}

func TestReviewService_CanLeaveReview_Outsider(t *testing.T) {
	repo := new(mockReviewRepo)
	jobs := new(mockJobRepo)
	svc := NewReviewService(repo, jobs, newTolerantNotifier())
	ctx := context.Background()

	job := completedJob(uuid.New(), uuid.New())
	jobs.On("GetByID", ctx, job.ID).Return(job, nil)

	can, err := svc.CanLeaveReview(ctx, job.ID, uuid.New())

	assert.NoError(t, err)
	assert.False(t, can)
	repo.AssertNotCalled(t, "GetByJobAndReviewer")
}
