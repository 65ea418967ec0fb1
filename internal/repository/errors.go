package repository

import "errors"

// Common repository errors
var (
	// ErrTaskNotFound is returned when a task is absent or soft-deleted
	ErrTaskNotFound = errors.New("task not found")

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrNotificationNotFound is returned when a notification is not found
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrLeaveNotFound is returned when a leave request is not found
	ErrLeaveNotFound = errors.New("leave request not found")

	// ErrLaborShareNotFound is returned when a labor share request is not found
	ErrLaborShareNotFound = errors.New("labor share request not found")

	// ErrQuotaExceeded is returned when a labor share request would exceed
	// the department quota
	ErrQuotaExceeded = errors.New("labor share quota exceeded")

	// ErrMissingFields is returned when a draft lacks required fields
	ErrMissingFields = errors.New("required fields missing")
)
