package models

// Роли пользователей платформы
const (
	RoleCustomer = "customer"
	RoleWorker   = "worker"
	RoleAdmin    = "admin"
)

// JobStatus константы статусов объявлений
const (
	JobStatusPending    = "pending"
	JobStatusAssigned   = "assigned"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusCancelled  = "cancelled"
)

// ApplicationStatus константы статусов откликов
const (
	ApplicationStatusPending  = "pending"
	ApplicationStatusAccepted = "accepted"
	ApplicationStatusRejected = "rejected"
)

// Причины движений по счёту токенов
const (
	LedgerReasonApplyDebit         = "apply_debit"
	LedgerReasonSubscriptionCredit = "subscription_credit"
	LedgerReasonPurchaseCredit     = "purchase_credit"
)

// Статусы подписок
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
)

// Статусы покупок токенов
const (
	TokenPurchaseStatusPending   = "pending"
	TokenPurchaseStatusCompleted = "completed"
)

// ValidRoles список валидных ролей
var ValidRoles = map[string]struct{}{
	RoleCustomer: {},
	RoleWorker:   {},
	RoleAdmin:    {},
}

// ValidJobStatuses список валидных статусов объявлений
var ValidJobStatuses = map[string]struct{}{
	JobStatusPending:    {},
	JobStatusAssigned:   {},
	JobStatusInProgress: {},
	JobStatusCompleted:  {},
	JobStatusCancelled:  {},
}

// ValidApplicationStatuses список валидных статусов откликов
var ValidApplicationStatuses = map[string]struct{}{
	ApplicationStatusPending:  {},
	ApplicationStatusAccepted: {},
	ApplicationStatusRejected: {},
}

// SubscriptionPlanTokens сопоставляет план подписки с месячным начислением токенов.
var SubscriptionPlanTokens = map[string]int64{
	"start":    10,
	"pro":      40,
	"business": 120,
}
