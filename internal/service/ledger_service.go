package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/taskbridge/backend/internal/models"
	"github.com/taskbridge/backend/internal/pkg/apperror"
	"github.com/taskbridge/backend/internal/repository"
)

// LedgerRepository описывает зависимости LedgerService от слоя хранилища.
type LedgerRepository interface {
	Debit(ctx context.Context, userID uuid.UUID, amount int64, reason, idempotencyKey string) (int64, error)
	Credit(ctx context.Context, userID uuid.UUID, amount int64, reason, idempotencyKey string) (int64, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error)
}

// LedgerService владеет бизнес-правилами движений по счёту токенов.
type LedgerService struct {
	repo LedgerRepository
}

// NewLedgerService создаёт сервис леджера.
func NewLedgerService(repo LedgerRepository) *LedgerService {
	return &LedgerService{repo: repo}
}

// Debit списывает amount токенов. Нулевая сумма допустима: ключ
// идемпотентности фиксируется, баланс не меняется.
func (s *LedgerService) Debit(ctx context.Context, userID uuid.UUID, amount int64, reason, idempotencyKey string) (int64, error) {
	if err := validateLedgerInput(amount, idempotencyKey); err != nil {
		return 0, err
	}

	balance, err := s.repo.Debit(ctx, userID, amount, reason, idempotencyKey)
	if err != nil {
		return 0, mapLedgerError(err)
	}
	return balance, nil
}

// Credit начисляет amount токенов.
func (s *LedgerService) Credit(ctx context.Context, userID uuid.UUID, amount int64, reason, idempotencyKey string) (int64, error) {
	if err := validateLedgerInput(amount, idempotencyKey); err != nil {
		return 0, err
	}

	balance, err := s.repo.Credit(ctx, userID, amount, reason, idempotencyKey)
	if err != nil {
		return 0, mapLedgerError(err)
	}
	return balance, nil
}

// GetBalance возвращает текущий баланс пользователя.
func (s *LedgerService) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return 0, mapLedgerError(err)
	}
	return balance, nil
}

// ListEntries возвращает историю движений по счёту.
func (s *LedgerService) ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListEntries(ctx, userID, limit, offset)
}

func validateLedgerInput(amount int64, idempotencyKey string) error {
	if amount < 0 {
		return apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	if idempotencyKey == "" {
		return apperror.New(apperror.ErrCodeValidation, "ключ идемпотентности обязателен")
	}
	return nil
}

func mapLedgerError(err error) error {
	switch {
	case errors.Is(err, repository.ErrInsufficientCredit):
		return apperror.ErrInsufficientCredit
	case errors.Is(err, repository.ErrUserNotFound):
		return apperror.ErrUserNotFound
	default:
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "операция по счёту не выполнена")
	}
}
