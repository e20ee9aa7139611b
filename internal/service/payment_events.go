package service

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/taskbridge/backend/internal/models"
	"github.com/taskbridge/backend/internal/pkg/apperror"
)

// PaymentEventType тип события платёжного провайдера.
type PaymentEventType string

const (
	EventCheckoutCompleted   PaymentEventType = "checkout.session.completed"
	EventSubscriptionUpdated PaymentEventType = "customer.subscription.updated"
	EventSubscriptionDeleted PaymentEventType = "customer.subscription.deleted"

	// EventUnknown - неизвестный тип события. Такие события принимаются
	// и игнорируются: провайдер может добавлять новые типы в любой момент.
	EventUnknown PaymentEventType = "unknown"
)

// CheckoutMode режим завершённого checkout.
type CheckoutMode string

const (
	CheckoutModeSubscription CheckoutMode = "subscription"
	CheckoutModePayment      CheckoutMode = "payment"
)

// PaymentEvent - декодированное событие провайдера. Размеченное
// объединение: заполнен ровно один из вариантов, соответствующий Type.
// Декодирование происходит один раз на HTTP границе, дальше код работает
// только с типизированными полями.
type PaymentEvent struct {
	ProviderEventID string
	Type            PaymentEventType
	Raw             json.RawMessage

	Checkout     *CheckoutCompletedEvent
	Subscription *SubscriptionChangedEvent
}

// CheckoutCompletedEvent - завершённый checkout: новая подписка или
// разовая покупка токенов, в зависимости от Mode.
type CheckoutCompletedEvent struct {
	Mode                   CheckoutMode
	UserID                 uuid.UUID
	Plan                   string
	ExternalSubscriptionID string
	ExternalPaymentID      string
}

// SubscriptionChangedEvent - изменение состояния подписки у провайдера.
type SubscriptionChangedEvent struct {
	ExternalSubscriptionID string
	Status                 string
	EndDate                *time.Time
}

// wirePaymentEvent - формат события на проводе.
type wirePaymentEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Mode           string     `json:"mode,omitempty"`
		UserID         string     `json:"user_id,omitempty"`
		Plan           string     `json:"plan,omitempty"`
		SubscriptionID string     `json:"subscription_id,omitempty"`
		PaymentID      string     `json:"payment_id,omitempty"`
		Status         string     `json:"status,omitempty"`
		EndDate        *time.Time `json:"end_date,omitempty"`
	} `json:"data"`
}

// DecodePaymentEvent разбирает сырое тело события в типизированный
// вариант. Неизвестный тип события не ошибка: возвращается вариант
// EventUnknown, который обработчик подтверждает без эффектов.
func DecodePaymentEvent(raw []byte) (*PaymentEvent, error) {
	var wire wirePaymentEvent
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "некорректное тело события")
	}
	if wire.ID == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "событие без идентификатора")
	}

	ev := &PaymentEvent{
		ProviderEventID: wire.ID,
		Raw:             json.RawMessage(raw),
	}

	switch PaymentEventType(wire.Type) {
	case EventCheckoutCompleted:
		ev.Type = EventCheckoutCompleted

		userID, err := uuid.Parse(wire.Data.UserID)
		if err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, "событие checkout без валидного user_id")
		}

		checkout := &CheckoutCompletedEvent{
			Mode:                   CheckoutMode(wire.Data.Mode),
			UserID:                 userID,
			Plan:                   wire.Data.Plan,
			ExternalSubscriptionID: wire.Data.SubscriptionID,
			ExternalPaymentID:      wire.Data.PaymentID,
		}

		switch checkout.Mode {
		case CheckoutModeSubscription:
			if checkout.ExternalSubscriptionID == "" {
				return nil, apperror.New(apperror.ErrCodeValidation, "событие подписки без subscription_id")
			}
		case CheckoutModePayment:
			if checkout.ExternalPaymentID == "" {
				return nil, apperror.New(apperror.ErrCodeValidation, "событие оплаты без payment_id")
			}
		default:
			return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный режим checkout")
		}

		ev.Checkout = checkout

	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		ev.Type = PaymentEventType(wire.Type)

		if wire.Data.SubscriptionID == "" {
			return nil, apperror.New(apperror.ErrCodeValidation, "событие подписки без subscription_id")
		}
		if ev.Type == EventSubscriptionUpdated && wire.Data.Status == "" {
			return nil, apperror.New(apperror.ErrCodeValidation, "событие обновления подписки без статуса")
		}
		ev.Subscription = &SubscriptionChangedEvent{
			ExternalSubscriptionID: wire.Data.SubscriptionID,
			Status:                 wire.Data.Status,
			EndDate:                wire.Data.EndDate,
		}

	default:
		ev.Type = EventUnknown
	}

	return ev, nil
}

// normalizeSubscriptionStatus приводит статус провайдера к нашему домену.
// Подписка у нас либо действует, либо отменена: промежуточные статусы,
// в которых подписка у провайдера ещё жива, считаются active, терминальные
// схлопываются в cancelled. Для неизвестного статуса возвращает false -
// в таблицу он не попадает никогда.
func normalizeSubscriptionStatus(raw string) (string, bool) {
	switch raw {
	case models.SubscriptionStatusActive, "trialing", "past_due":
		return models.SubscriptionStatusActive, true
	case models.SubscriptionStatusCancelled, "canceled", "unpaid", "incomplete_expired":
		return models.SubscriptionStatusCancelled, true
	default:
		return "", false
	}
}
