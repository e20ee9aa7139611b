package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/taskbridge/backend/internal/goroutine"
	"github.com/taskbridge/backend/internal/logger"
	"github.com/taskbridge/backend/internal/models"
	"github.com/taskbridge/backend/internal/pkg/apperror"
	"github.com/taskbridge/backend/internal/repository"
)

// BillingRepository описывает хранилище подписок, покупок и журнала
// событий провайдера.
type BillingRepository interface {
	CompleteSubscriptionCheckout(ctx context.Context, providerEventID string, payload json.RawMessage, userID uuid.UUID, plan string, planTokens int64, externalSubscriptionID string) (*models.Subscription, error)
	CompleteTokenPurchase(ctx context.Context, providerEventID string, payload json.RawMessage, externalPaymentID string) (*models.TokenPurchase, error)
	CancelSubscription(ctx context.Context, providerEventID string, payload json.RawMessage, externalSubscriptionID string) error
	ReconcileSubscription(ctx context.Context, providerEventID string, payload json.RawMessage, externalSubscriptionID, status string, endDate *time.Time) error
	CreatePurchase(ctx context.Context, purchase *models.TokenPurchase) error
	GetSubscriptionByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	ListPurchases(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.TokenPurchase, error)
}

// PaymentService обрабатывает события платёжного провайдера и инициирует
// покупки токенов. Контракт обработчика событий: nil означает "событие
// принято", в том числе для повторных доставок и событий, к которым у нас
// нет данных. Ошибка возвращается только при сбое инфраструктуры - тогда
// провайдер повторит доставку.
type PaymentService struct {
	billing  BillingRepository
	notifier Notifier
	log      *logrus.Entry
}

// NewPaymentService создаёт сервис платежей.
func NewPaymentService(billing BillingRepository, notifier Notifier) *PaymentService {
	return &PaymentService{
		billing:  billing,
		notifier: notifier,
		log:      logger.WithComponent("payment_service"),
	}
}

// HandleEvent применяет событие провайдера. Подпись тела уже проверена
// на HTTP границе, сюда попадают только аутентичные события.
func (s *PaymentService) HandleEvent(ctx context.Context, ev *PaymentEvent) error {
	log := s.log.WithFields(logrus.Fields{
		"provider_event_id": ev.ProviderEventID,
		"event_type":        ev.Type,
	})

	switch ev.Type {
	case EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, log, ev)
	case EventSubscriptionUpdated:
		return s.handleSubscriptionUpdated(ctx, log, ev)
	case EventSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, log, ev)
	default:
		log.Info("Неизвестный тип события, подтверждаем без обработки")
		return nil
	}
}

func (s *PaymentService) handleCheckoutCompleted(ctx context.Context, log *logrus.Entry, ev *PaymentEvent) error {
	checkout := ev.Checkout

	switch checkout.Mode {
	case CheckoutModeSubscription:
		planTokens, ok := models.SubscriptionPlanTokens[checkout.Plan]
		if !ok {
			log.WithField("plan", checkout.Plan).Warn("Неизвестный тариф в событии checkout, подтверждаем без начисления")
			return nil
		}

		sub, err := s.billing.CompleteSubscriptionCheckout(ctx, ev.ProviderEventID, ev.Raw,
			checkout.UserID, checkout.Plan, planTokens, checkout.ExternalSubscriptionID)
		if err != nil {
			if errors.Is(err, repository.ErrEventAlreadyProcessed) {
				log.Info("Повторная доставка события, подтверждаем")
				return nil
			}
			return s.mapBillingError(err)
		}

		log.WithFields(logrus.Fields{
			"user_id": checkout.UserID,
			"plan":    sub.Plan,
			"tokens":  planTokens,
		}).Info("Подписка оформлена, токены начислены")
		s.notifyCredited(checkout.UserID, "subscription", planTokens)
		return nil

	case CheckoutModePayment:
		purchase, err := s.billing.CompleteTokenPurchase(ctx, ev.ProviderEventID, ev.Raw, checkout.ExternalPaymentID)
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrEventAlreadyProcessed):
				log.Info("Повторная доставка события, подтверждаем")
				return nil
			case errors.Is(err, repository.ErrPurchaseNotFound):
				// Покупка не инициирована через нас. Повторная доставка
				// ничего не изменит, поэтому подтверждаем.
				log.WithField("external_payment_id", checkout.ExternalPaymentID).
					Warn("Платёж не сопоставлен ни с одной покупкой, подтверждаем без начисления")
				return nil
			default:
				return s.mapBillingError(err)
			}
		}

		log.WithFields(logrus.Fields{
			"user_id": purchase.UserID,
			"tokens":  purchase.Amount,
		}).Info("Покупка токенов завершена")
		s.notifyCredited(purchase.UserID, "purchase", purchase.Amount)
		return nil

	default:
		// Режим уже проверен при декодировании.
		return apperror.New(apperror.ErrCodeValidation, "неизвестный режим checkout")
	}
}

func (s *PaymentService) handleSubscriptionUpdated(ctx context.Context, log *logrus.Entry, ev *PaymentEvent) error {
	change := ev.Subscription
	status, ok := normalizeSubscriptionStatus(change.Status)
	if !ok {
		// Провайдер может ввести новый статус в любой момент. Писать его
		// в таблицу нельзя, повторная доставка ничего не изменит.
		log.WithField("status", change.Status).
			Warn("Статус подписки вне поддерживаемого набора, подтверждаем без сверки")
		return nil
	}

	err := s.billing.ReconcileSubscription(ctx, ev.ProviderEventID, ev.Raw,
		change.ExternalSubscriptionID, status, change.EndDate)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEventAlreadyProcessed):
			log.Info("Повторная доставка события, подтверждаем")
			return nil
		case errors.Is(err, repository.ErrSubscriptionNotFound):
			log.WithField("external_subscription_id", change.ExternalSubscriptionID).
				Warn("Обновление неизвестной подписки, подтверждаем")
			return nil
		default:
			return s.mapBillingError(err)
		}
	}

	log.WithField("status", status).Info("Состояние подписки сверено")
	return nil
}

func (s *PaymentService) handleSubscriptionDeleted(ctx context.Context, log *logrus.Entry, ev *PaymentEvent) error {
	change := ev.Subscription
	err := s.billing.CancelSubscription(ctx, ev.ProviderEventID, ev.Raw, change.ExternalSubscriptionID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEventAlreadyProcessed):
			log.Info("Повторная доставка события, подтверждаем")
			return nil
		case errors.Is(err, repository.ErrSubscriptionNotFound):
			log.WithField("external_subscription_id", change.ExternalSubscriptionID).
				Warn("Отмена неизвестной подписки, подтверждаем")
			return nil
		default:
			return s.mapBillingError(err)
		}
	}

	log.Info("Подписка отменена")
	return nil
}

// InitiatePurchase создаёт pending покупку токенов. Идентификатор платежа
// генерируется здесь и передаётся провайдеру при создании checkout.
func (s *PaymentService) InitiatePurchase(ctx context.Context, userID uuid.UUID, amount int64) (*models.TokenPurchase, error) {
	if amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "количество токенов должно быть положительным")
	}

	purchase := &models.TokenPurchase{
		UserID:            userID,
		Amount:            amount,
		ExternalPaymentID: fmt.Sprintf("pi_%s", uuid.New().String()),
	}
	if err := s.billing.CreatePurchase(ctx, purchase); err != nil {
		return nil, s.mapBillingError(err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":             userID,
		"amount":              amount,
		"external_payment_id": purchase.ExternalPaymentID,
	}).Info("Покупка токенов инициирована")
	return purchase, nil
}

// GetSubscription возвращает текущую подписку пользователя.
func (s *PaymentService) GetSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.billing.GetSubscriptionByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "подписка не найдена")
		}
		return nil, s.mapBillingError(err)
	}
	return sub, nil
}

// ListPurchases возвращает историю покупок пользователя.
func (s *PaymentService) ListPurchases(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.TokenPurchase, error) {
	purchases, err := s.billing.ListPurchases(ctx, userID, limit, offset)
	if err != nil {
		return nil, s.mapBillingError(err)
	}
	return purchases, nil
}

func (s *PaymentService) notifyCredited(userID uuid.UUID, source string, tokens int64) {
	if s.notifier == nil {
		return
	}
	goroutine.SafeGo(func() {
		if err := s.notifier.BroadcastToUser(userID, "tokens.credited", map[string]interface{}{
			"source": source,
			"tokens": tokens,
		}); err != nil {
			s.log.WithError(err).Warn("Не удалось отправить уведомление о начислении")
		}
	})
}

func (s *PaymentService) mapBillingError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, repository.ErrUserNotFound) {
		return apperror.ErrUserNotFound
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "ошибка при обработке платежа")
}
