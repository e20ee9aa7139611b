package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskbridge/backend/internal/models"
	"github.com/taskbridge/backend/internal/repository/common"
)

var (
	// ErrEventAlreadyProcessed возвращается при повторной доставке события провайдера.
	ErrEventAlreadyProcessed = errors.New("payment event already processed")
	// ErrPurchaseNotFound возвращается, когда покупка по external_payment_id не найдена.
	ErrPurchaseNotFound = errors.New("token purchase not found")
	// ErrSubscriptionNotFound возвращается, когда подписка по external_subscription_id не найдена.
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// BillingRepository отвечает за подписки, покупки токенов и журнал принятых
// событий провайдера. Каждое событие обрабатывается одной транзакцией,
// первым шагом которой идёт вставка в payment_events по уникальному
// provider_event_id: повторная доставка не проходит дальше этой вставки.
type BillingRepository struct {
	db *sqlx.DB
}

// NewBillingRepository создаёт экземпляр репозитория.
func NewBillingRepository(db *sqlx.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

// claimEventTx регистрирует событие провайдера. Возвращает
// ErrEventAlreadyProcessed, если событие уже было принято ранее.
func claimEventTx(ctx context.Context, tx *sqlx.Tx, providerEventID, eventType string, payload json.RawMessage) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO payment_events (provider_event_id, event_type, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider_event_id) DO NOTHING
	`, providerEventID, eventType, payload)
	if err != nil {
		return fmt.Errorf("billing repository: claim event %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("billing repository: claim event rows %w", err)
	}
	if rows == 0 {
		return ErrEventAlreadyProcessed
	}
	return nil
}

// CompleteSubscriptionCheckout обрабатывает завершённый checkout подписки:
// создаёт или реактивирует подписку по external_subscription_id и начисляет
// токены плана с ключом sub:{id}:initial. Продление никогда не начисляет
// токены повторно - ключ один на всё время жизни подписки.
func (r *BillingRepository) CompleteSubscriptionCheckout(ctx context.Context, providerEventID string, payload json.RawMessage, userID uuid.UUID, plan string, planTokens int64, externalSubscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := common.WithRetry(ctx, func() error {
		return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
			if err := claimEventTx(ctx, tx, providerEventID, "checkout.session.completed", payload); err != nil {
				return err
			}

			if err := tx.GetContext(ctx, &sub, `
				INSERT INTO subscriptions (user_id, plan, status, external_subscription_id, start_date)
				VALUES ($1, $2, 'active', $3, NOW())
				ON CONFLICT (external_subscription_id) DO UPDATE
				SET status = 'active', plan = EXCLUDED.plan, end_date = NULL, updated_at = NOW()
				RETURNING *
			`, userID, plan, externalSubscriptionID); err != nil {
				return fmt.Errorf("billing repository: upsert subscription %w", err)
			}

			key := fmt.Sprintf("sub:%s:initial", externalSubscriptionID)
			_, _, err := applyLedgerEntryTx(ctx, tx, userID, planTokens,
				models.LedgerReasonSubscriptionCredit, key)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CompleteTokenPurchase завершает разовую покупку: находит pending строку
// по external_payment_id, помечает её completed и начисляет токены с
// ключом purchase:{id}. Неизвестный платёж отдаётся как ErrPurchaseNotFound,
// решение об ack принимает обработчик событий.
func (r *BillingRepository) CompleteTokenPurchase(ctx context.Context, providerEventID string, payload json.RawMessage, externalPaymentID string) (*models.TokenPurchase, error) {
	var purchase models.TokenPurchase
	err := common.WithRetry(ctx, func() error {
		return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
			if err := claimEventTx(ctx, tx, providerEventID, "checkout.session.completed", payload); err != nil {
				return err
			}

			err := tx.GetContext(ctx, &purchase, `
				SELECT * FROM token_purchases WHERE external_payment_id = $1 FOR UPDATE
			`, externalPaymentID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrPurchaseNotFound
				}
				return fmt.Errorf("billing repository: lock purchase %w", err)
			}

			if purchase.Status != models.TokenPurchaseStatusCompleted {
				if err := tx.GetContext(ctx, &purchase, `
					UPDATE token_purchases SET status = 'completed', completed_at = NOW()
					WHERE id = $1
					RETURNING *
				`, purchase.ID); err != nil {
					return fmt.Errorf("billing repository: complete purchase %w", err)
				}
			}

			key := fmt.Sprintf("purchase:%s", externalPaymentID)
			_, _, err = applyLedgerEntryTx(ctx, tx, purchase.UserID, purchase.Amount,
				models.LedgerReasonPurchaseCredit, key)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// CancelSubscription переводит подписку в cancelled с датой окончания
// сейчас. Движений по счёту нет.
func (r *BillingRepository) CancelSubscription(ctx context.Context, providerEventID string, payload json.RawMessage, externalSubscriptionID string) error {
	return common.WithRetry(ctx, func() error {
		return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
			if err := claimEventTx(ctx, tx, providerEventID, "customer.subscription.deleted", payload); err != nil {
				return err
			}

			res, err := tx.ExecContext(ctx, `
				UPDATE subscriptions SET status = 'cancelled', end_date = NOW(), updated_at = NOW()
				WHERE external_subscription_id = $1
			`, externalSubscriptionID)
			if err != nil {
				return fmt.Errorf("billing repository: cancel subscription %w", err)
			}
			rows, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("billing repository: cancel subscription rows %w", err)
			}
			if rows == 0 {
				return ErrSubscriptionNotFound
			}
			return nil
		})
	})
}

// ReconcileSubscription сверяет статус и дату окончания подписки с
// состоянием провайдера. Токены здесь не начисляются никогда.
func (r *BillingRepository) ReconcileSubscription(ctx context.Context, providerEventID string, payload json.RawMessage, externalSubscriptionID, status string, endDate *time.Time) error {
	return common.WithRetry(ctx, func() error {
		return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
			if err := claimEventTx(ctx, tx, providerEventID, "customer.subscription.updated", payload); err != nil {
				return err
			}

			res, err := tx.ExecContext(ctx, `
				UPDATE subscriptions SET status = $2, end_date = $3, updated_at = NOW()
				WHERE external_subscription_id = $1
			`, externalSubscriptionID, status, endDate)
			if err != nil {
				return fmt.Errorf("billing repository: reconcile subscription %w", err)
			}
			rows, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("billing repository: reconcile subscription rows %w", err)
			}
			if rows == 0 {
				return ErrSubscriptionNotFound
			}
			return nil
		})
	})
}

// CreatePurchase создаёт pending покупку токенов при инициации оплаты.
func (r *BillingRepository) CreatePurchase(ctx context.Context, purchase *models.TokenPurchase) error {
	query := `
		INSERT INTO token_purchases (user_id, amount, status, external_payment_id)
		VALUES ($1, $2, 'pending', $3)
		RETURNING id, status, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		purchase.UserID, purchase.Amount, purchase.ExternalPaymentID,
	).Scan(&purchase.ID, &purchase.Status, &purchase.CreatedAt); err != nil {
		return fmt.Errorf("billing repository: create purchase %w", err)
	}
	return nil
}

// GetSubscriptionByUser возвращает последнюю подписку пользователя.
func (r *BillingRepository) GetSubscriptionByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.GetContext(ctx, &sub, `
		SELECT * FROM subscriptions WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("billing repository: get subscription %w", err)
	}
	return &sub, nil
}

// ListPurchases возвращает покупки пользователя.
func (r *BillingRepository) ListPurchases(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.TokenPurchase, error) {
	var purchases []models.TokenPurchase
	err := r.db.SelectContext(ctx, &purchases, `
		SELECT * FROM token_purchases WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("billing repository: list purchases %w", err)
	}
	return purchases, nil
}
