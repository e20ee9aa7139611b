package valueobject

import "github.com/taskbridge/backend/internal/pkg/apperror"

// JobStatus статус объявления. Все проверки переходов собраны здесь,
// вне этого типа статус объявления интерпретировать нельзя.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusAssigned   JobStatus = "assigned"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// jobTransitions задаёт машину состояний объявления.
// Отмена возможна только из pending: после назначения исполнителя
// объявление отменить нельзя.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusAssigned, JobStatusCancelled},
	JobStatusAssigned:   {JobStatusInProgress},
	JobStatusInProgress: {JobStatusCompleted},
	JobStatusCompleted:  {},
	JobStatusCancelled:  {},
}

func (s JobStatus) IsValid() bool {
	_, ok := jobTransitions[s]
	return ok
}

// CanTransitionTo отвечает, допустим ли переход в новый статус.
func (s JobStatus) CanTransitionTo(newStatus JobStatus) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == newStatus {
			return true
		}
	}
	return false
}

// IsTerminal отвечает, является ли статус конечным.
func (s JobStatus) IsTerminal() bool {
	return len(jobTransitions[s]) == 0
}

// HasAssignedWorker отвечает, обязан ли у объявления в этом статусе
// быть назначенный исполнитель.
func (s JobStatus) HasAssignedWorker() bool {
	switch s {
	case JobStatusAssigned, JobStatusInProgress, JobStatusCompleted:
		return true
	}
	return false
}

func NewJobStatus(status string) (JobStatus, error) {
	s := JobStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус объявления")
	}
	return s, nil
}

// ApplicationStatus статус отклика. Оба перехода из pending терминальны.
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusAccepted ApplicationStatus = "accepted"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusAccepted, ApplicationStatusRejected:
		return true
	}
	return false
}

// CanTransitionTo отвечает, допустим ли переход отклика в новый статус.
func (s ApplicationStatus) CanTransitionTo(newStatus ApplicationStatus) bool {
	if s != ApplicationStatusPending {
		return false
	}
	return newStatus == ApplicationStatusAccepted || newStatus == ApplicationStatusRejected
}

func NewApplicationStatus(status string) (ApplicationStatus, error) {
	s := ApplicationStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус отклика")
	}
	return s, nil
}
