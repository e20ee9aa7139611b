package models

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntry представляет одно движение по счёту токенов пользователя.
// Записи только добавляются; уникальный IdempotencyKey гарантирует, что
// повтор операции с тем же ключом не изменит баланс второй раз.
type LedgerEntry struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	Delta          int64     `db:"delta" json:"delta"`
	Reason         string    `db:"reason" json:"reason"`
	IdempotencyKey string    `db:"idempotency_key" json:"idempotency_key"`
	BalanceAfter   int64     `db:"balance_after" json:"balance_after"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
