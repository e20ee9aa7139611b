package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobListing описывает объявление заказчика.
// Инвариант: AssignedWorkerID заполнен тогда и только тогда, когда
// статус входит в {assigned, in_progress, completed}.
type JobListing struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	CustomerID       uuid.UUID  `db:"customer_id" json:"customer_id"`
	Title            string     `db:"title" json:"title"`
	Description      string     `db:"description" json:"description"`
	Status           string     `db:"status" json:"status"`
	Premium          bool       `db:"premium" json:"premium"`
	TokenCost        int64      `db:"token_cost" json:"token_cost"`
	AssignedWorkerID *uuid.UUID `db:"assigned_worker_id" json:"assigned_worker_id,omitempty"`
	DeadlineAt       *time.Time `db:"deadline_at" json:"deadline_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`

	ApplicationsCount *int `db:"applications_count" json:"applications_count,omitempty"`
}

// Application представляет отклик исполнителя на объявление.
// На пару (job_id, worker_id) существует не более одного отклика,
// уникальность обеспечена индексом в базе.
type Application struct {
	ID             uuid.UUID `db:"id" json:"id"`
	JobID          uuid.UUID `db:"job_id" json:"job_id"`
	WorkerID       uuid.UUID `db:"worker_id" json:"worker_id"`
	Message        string    `db:"message" json:"message"`
	EstimatedPrice *int64    `db:"estimated_price" json:"estimated_price,omitempty"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// JobHistory хранит запись о смене статуса объявления.
type JobHistory struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	JobID     uuid.UUID       `db:"job_id" json:"job_id"`
	ActorID   *uuid.UUID      `db:"actor_id" json:"actor_id,omitempty"`
	Action    string          `db:"action" json:"action"`
	OldValue  json.RawMessage `db:"old_value" json:"old_value,omitempty"`
	NewValue  json.RawMessage `db:"new_value" json:"new_value,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
