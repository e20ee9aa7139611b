package ws

import (
	"context"

	"github.com/google/uuid"
)

// notificationCreator - часть NotificationService, нужная хабу.
type notificationCreator interface {
	CreateNotificationForWS(ctx context.Context, userID uuid.UUID, event string, data interface{}) error
}

// NotificationServiceAdapter адаптирует NotificationService под NotificationSaver.
type NotificationServiceAdapter struct {
	service notificationCreator
}

// NewNotificationServiceAdapter создаёт адаптер.
func NewNotificationServiceAdapter(service notificationCreator) *NotificationServiceAdapter {
	return &NotificationServiceAdapter{service: service}
}

// CreateNotification реализует NotificationSaver.
func (a *NotificationServiceAdapter) CreateNotification(ctx context.Context, userID uuid.UUID, event string, data interface{}) error {
	return a.service.CreateNotificationForWS(ctx, userID, event, data)
}
