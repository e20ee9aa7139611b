package dto

// RegisterRequest represents the registration payload
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginRequest represents the login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the token refresh payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateJobRequest represents the request to create a job listing
type CreateJobRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Premium     bool   `json:"premium"`
	TokenCost   int64  `json:"token_cost"`
}

// ApplyRequest represents a worker's application to a job
type ApplyRequest struct {
	Message        string `json:"message" binding:"required"`
	EstimatedPrice *int64 `json:"estimated_price"`
}

// SubmitReviewRequest represents the request to leave a review
type SubmitReviewRequest struct {
	Rating  int     `json:"rating" binding:"required,min=1,max=5"`
	Comment *string `json:"comment"`
}

// InitiatePurchaseRequest represents the request to start a token purchase
type InitiatePurchaseRequest struct {
	Amount int64 `json:"amount" binding:"required,min=1"`
}
