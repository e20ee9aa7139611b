package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Subscription описывает подписку пользователя на тарифный план.
// ExternalSubscriptionID уникален и соответствует 1:1 объекту подписки
// у платёжного провайдера.
type Subscription struct {
	ID                     uuid.UUID  `db:"id" json:"id"`
	UserID                 uuid.UUID  `db:"user_id" json:"user_id"`
	Plan                   string     `db:"plan" json:"plan"`
	Status                 string     `db:"status" json:"status"`
	ExternalSubscriptionID string     `db:"external_subscription_id" json:"external_subscription_id"`
	StartDate              time.Time  `db:"start_date" json:"start_date"`
	EndDate                *time.Time `db:"end_date" json:"end_date,omitempty"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`
}

// TokenPurchase описывает разовую покупку токенов. Строка создаётся в
// статусе pending при инициации оплаты и переводится в completed
// обработчиком события провайдера.
type TokenPurchase struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	UserID            uuid.UUID  `db:"user_id" json:"user_id"`
	Amount            int64      `db:"amount" json:"amount"`
	Status            string     `db:"status" json:"status"`
	ExternalPaymentID string     `db:"external_payment_id" json:"external_payment_id"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	CompletedAt       *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// PaymentEvent хранит принятые события провайдера для защиты от повторной
// доставки: вставка по уникальному provider_event_id в той же транзакции,
// что и эффекты события.
type PaymentEvent struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	ProviderEventID string          `db:"provider_event_id" json:"provider_event_id"`
	EventType       string          `db:"event_type" json:"event_type"`
	Payload         json.RawMessage `db:"payload" json:"payload,omitempty"`
	ProcessedAt     time.Time       `db:"processed_at" json:"processed_at"`
}
