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
	// ErrInsufficientCredit возвращается при попытке списать больше, чем есть на балансе.
	ErrInsufficientCredit = errors.New("insufficient credit")
	// ErrUserNotFound возвращается, когда запись пользователя не найдена.
	ErrUserNotFound = errors.New("user not found")
)

// LedgerRepository отвечает за баланс токенов и журнал движений.
// Баланс пользователя меняется только здесь; все операции сериализуются
// блокировкой строки пользователя и защищены ключом идемпотентности.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository создаёт экземпляр репозитория.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// applyLedgerEntryTx выполняет одно движение по счёту внутри уже открытой
// транзакции. Возвращает баланс после операции и признак того, была ли
// запись применена (false - ключ уже встречался, баланс не менялся).
// Используется также транзакциями откликов и платёжных событий, чтобы
// списание/начисление фиксировалось атомарно с их собственными эффектами.
func applyLedgerEntryTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, delta int64, reason, idempotencyKey string) (int64, bool, error) {
	// Блокировка строки пользователя сериализует все операции по одному счёту.
	var balance int64
	err := tx.GetContext(ctx, &balance,
		`SELECT credit_balance FROM users WHERE id = $1 FOR UPDATE`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, ErrUserNotFound
		}
		return 0, false, fmt.Errorf("ledger: lock balance %w", err)
	}

	// Повтор с тем же ключом возвращает ранее вычисленный баланс без мутации.
	var priorBalance int64
	err = tx.GetContext(ctx, &priorBalance,
		`SELECT balance_after FROM ledger_entries WHERE idempotency_key = $1`, idempotencyKey)
	if err == nil {
		return priorBalance, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("ledger: check idempotency key %w", err)
	}

	newBalance := balance + delta
	if newBalance < 0 {
		return balance, false, ErrInsufficientCredit
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (user_id, delta, reason, idempotency_key, balance_after)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, delta, reason, idempotencyKey, newBalance); err != nil {
		return 0, false, fmt.Errorf("ledger: insert entry %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET credit_balance = $2, updated_at = NOW() WHERE id = $1
	`, userID, newBalance); err != nil {
		return 0, false, fmt.Errorf("ledger: update balance %w", err)
	}

	return newBalance, true, nil
}

// Debit списывает amount токенов со счёта пользователя. amount == 0
// допустим: запись с ключом создаётся, баланс не меняется.
func (r *LedgerRepository) Debit(ctx context.Context, userID uuid.UUID, amount int64, reason, idempotencyKey string) (int64, error) {
	return r.apply(ctx, userID, -amount, reason, idempotencyKey)
}

// Credit начисляет amount токенов на счёт пользователя.
func (r *LedgerRepository) Credit(ctx context.Context, userID uuid.UUID, amount int64, reason, idempotencyKey string) (int64, error) {
	return r.apply(ctx, userID, amount, reason, idempotencyKey)
}

// apply открывает транзакцию под одно движение и один раз повторяет её
// при инфраструктурном сбое: операция идемпотентна по ключу, повтор безопасен.
func (r *LedgerRepository) apply(ctx context.Context, userID uuid.UUID, delta int64, reason, idempotencyKey string) (int64, error) {
	var newBalance int64
	err := common.WithRetry(ctx, func() error {
		return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
			balance, _, err := applyLedgerEntryTx(ctx, tx, userID, delta, reason, idempotencyKey)
			if err != nil {
				return err
			}
			newBalance = balance
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// GetBalance возвращает текущий баланс пользователя.
func (r *LedgerRepository) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := r.db.GetContext(ctx, &balance,
		`SELECT credit_balance FROM users WHERE id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("ledger: get balance %w", err)
	}
	return balance, nil
}

// ListEntries возвращает историю движений по счёту пользователя.
func (r *LedgerRepository) ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM ledger_entries WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ledger: list entries %w", err)
	}
	return entries, nil
}
