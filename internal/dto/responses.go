package dto

import (
	"time"

	"github.com/taskbridge/backend/internal/models"
)

// ErrorResponse is the standard error envelope
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse is the standard success envelope
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AuthResponse represents the result of register/login
type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
}

// BalanceResponse represents the user's token balance
type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

// UserRatingResponse represents review aggregates for a user
type UserRatingResponse struct {
	Reviews       []models.Review `json:"reviews"`
	AverageRating float64         `json:"average_rating"`
	TotalReviews  int             `json:"total_reviews"`
}

// PlanInfo describes a subscription plan
type PlanInfo struct {
	Name   string `json:"name"`
	Tokens int64  `json:"tokens"`
}

// PurchaseResponse represents an initiated token purchase
type PurchaseResponse struct {
	ID                string    `json:"id"`
	Amount            int64     `json:"amount"`
	Status            string    `json:"status"`
	ExternalPaymentID string    `json:"external_payment_id"`
	CreatedAt         time.Time `json:"created_at"`
}
