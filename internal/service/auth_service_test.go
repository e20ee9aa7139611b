package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskbridge/backend/internal/models"
	"github.com/taskbridge/backend/internal/pkg/apperror"
	"github.com/taskbridge/backend/internal/repository"
)

type mockAuthRepo struct {
	mock.Mock
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockAuthRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockAuthRepo) CreateSession(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockAuthRepo) GetSessionByToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *mockAuthRepo) DeleteSession(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func testTokenManager() *TokenManager {
	return NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 720*time.Hour)
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil)
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)

	result, err := svc.Register(ctx, RegisterInput{
		Email:    "Ivan.Petrov@example.com",
		Password: "Password1",
		Role:     models.RoleWorker,
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, "ivan.petrov@example.com", result.User.Email)
	assert.Equal(t, "ivan_petrov", result.User.Username)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
	assert.NotEmpty(t, result.TokenPair.RefreshToken)
	repo.AssertExpectations(t)
}

func TestAuthService_Register_DefaultRole(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil)
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)

	result, err := svc.Register(ctx, RegisterInput{
		Email:    "worker@example.com",
		Password: "Password1",
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, models.RoleWorker, result.User.Role)
}

func TestAuthService_Register_InvalidRole(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{
		Email:    "admin@example.com",
		Password: "Password1",
		Role:     "admin",
	}, nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "недопустимая роль")
	repo.AssertNotCalled(t, "Create")
}

func TestAuthService_Register_WeakPassword(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{
		Email:    "user@example.com",
		Password: "short",
	}, nil)

	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestAuthService_Register_EmailTaken(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(repository.ErrEmailTaken)

	_, err := svc.Register(ctx, RegisterInput{
		Email:    "taken@example.com",
		Password: "Password1",
	}, nil)

	assert.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
	assert.Contains(t, err.Error(), "уже зарегистрирован")
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("Password1"), bcrypt.MinCost)
	assert.NoError(t, err)

	user := &models.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleCustomer,
		IsActive:     true,
	}

	repo.On("GetByEmail", ctx, "user@example.com").Return(user, nil)
	repo.On("UpdateLastLoginAt", ctx, user.ID).Return(nil)
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)

	result, err := svc.Login(ctx, LoginInput{Email: "User@Example.com", Password: "Password1"},
		&SessionMeta{UserAgent: "test-agent", IP: "127.0.0.1"})

	assert.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("Password1"), bcrypt.MinCost)
	assert.NoError(t, err)

	user := &models.User{ID: uuid.New(), Email: "user@example.com", PasswordHash: string(hash), IsActive: true}
	repo.On("GetByEmail", ctx, "user@example.com").Return(user, nil)

	_, err = svc.Login(ctx, LoginInput{Email: "user@example.com", Password: "Wrong1234"}, nil)

	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, repository.ErrUserNotFound)

	_, err := svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "Password1"}, nil)

	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestAuthService_Login_BlockedAccount(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "blocked@example.com", IsActive: false}
	repo.On("GetByEmail", ctx, "blocked@example.com").Return(user, nil)

	_, err := svc.Login(ctx, LoginInput{Email: "blocked@example.com", Password: "Password1"}, nil)

	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
	assert.Contains(t, err.Error(), "заблокирован")
}

func TestAuthService_Refresh_RotatesSession(t *testing.T) {
	repo := new(mockAuthRepo)
	tm := testTokenManager()
	svc := NewAuthService(repo, tm)
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "user@example.com", Role: models.RoleWorker, IsActive: true}
	pair, _, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	repo.On("GetSessionByToken", ctx, pair.RefreshToken).
		Return(&models.Session{UserID: user.ID, RefreshToken: pair.RefreshToken}, nil)
	repo.On("GetByID", ctx, user.ID).Return(user, nil)
	repo.On("DeleteSession", ctx, pair.RefreshToken).Return(nil)
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)

	newPair, err := svc.Refresh(ctx, pair.RefreshToken, nil)

	assert.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, newPair.RefreshToken)
	repo.AssertExpectations(t)
}

func TestAuthService_Refresh_RevokedSession(t *testing.T) {
	repo := new(mockAuthRepo)
	tm := testTokenManager()
	svc := NewAuthService(repo, tm)
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Role: models.RoleWorker}
	pair, _, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	repo.On("GetSessionByToken", ctx, pair.RefreshToken).
		Return(nil, repository.ErrSessionNotFound)

	_, err = svc.Refresh(ctx, pair.RefreshToken, nil)

	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	repo.AssertNotCalled(t, "DeleteSession")
}

func TestAuthService_Refresh_GarbageToken(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	_, err := svc.Refresh(ctx, "not-a-jwt", nil)

	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	repo.AssertNotCalled(t, "GetSessionByToken")
}

func TestTokenManager_ParseAccess(t *testing.T) {
	tm := testTokenManager()
	user := &models.User{ID: uuid.New(), Role: models.RoleCustomer}

	pair, _, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	userID, role, err := tm.ParseAccess(pair.AccessToken)

	assert.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.Equal(t, models.RoleCustomer, role)
}

func TestTokenManager_ParseAccess_WrongSecret(t *testing.T) {
	tm := testTokenManager()
	other := NewTokenManager("another-secret", "refresh-secret", 15*time.Minute, 720*time.Hour)
	user := &models.User{ID: uuid.New(), Role: models.RoleWorker}

	pair, _, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	_, _, err = other.ParseAccess(pair.AccessToken)

	assert.Error(t, err)
}
