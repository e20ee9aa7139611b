package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, JobStatusPending.CanTransitionTo(JobStatusAssigned))
	assert.True(t, JobStatusPending.CanTransitionTo(JobStatusCancelled))
	assert.True(t, JobStatusAssigned.CanTransitionTo(JobStatusInProgress))
	assert.True(t, JobStatusInProgress.CanTransitionTo(JobStatusCompleted))

	// Отмена после назначения исполнителя невозможна.
	assert.False(t, JobStatusAssigned.CanTransitionTo(JobStatusCancelled))
	assert.False(t, JobStatusInProgress.CanTransitionTo(JobStatusCancelled))

	// Из терминальных статусов выхода нет.
	assert.False(t, JobStatusCompleted.CanTransitionTo(JobStatusPending))
	assert.False(t, JobStatusCancelled.CanTransitionTo(JobStatusAssigned))

	// Прыжки через статус запрещены.
	assert.False(t, JobStatusPending.CanTransitionTo(JobStatusInProgress))
	assert.False(t, JobStatusPending.CanTransitionTo(JobStatusCompleted))
	assert.False(t, JobStatusAssigned.CanTransitionTo(JobStatusCompleted))
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusCancelled.IsTerminal())
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusAssigned.IsTerminal())
	assert.False(t, JobStatusInProgress.IsTerminal())
}

func TestJobStatus_HasAssignedWorker(t *testing.T) {
	assert.False(t, JobStatusPending.HasAssignedWorker())
	assert.False(t, JobStatusCancelled.HasAssignedWorker())
	assert.True(t, JobStatusAssigned.HasAssignedWorker())
	assert.True(t, JobStatusInProgress.HasAssignedWorker())
	assert.True(t, JobStatusCompleted.HasAssignedWorker())
}

func TestNewJobStatus(t *testing.T) {
	s, err := NewJobStatus("pending")
	assert.NoError(t, err)
	assert.Equal(t, JobStatusPending, s)

	_, err = NewJobStatus("draft")
	assert.Error(t, err)

	_, err = NewJobStatus("")
	assert.Error(t, err)
}

func TestApplicationStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, ApplicationStatusPending.CanTransitionTo(ApplicationStatusAccepted))
	assert.True(t, ApplicationStatusPending.CanTransitionTo(ApplicationStatusRejected))

	assert.False(t, ApplicationStatusAccepted.CanTransitionTo(ApplicationStatusRejected))
	assert.False(t, ApplicationStatusRejected.CanTransitionTo(ApplicationStatusAccepted))
	assert.False(t, ApplicationStatusAccepted.CanTransitionTo(ApplicationStatusPending))
}
