package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Статусы задачи (агрегатные)
const (
	TaskStatusIncomplete          = "incomplete"
	TaskStatusOnHold              = "on_hold"
	TaskStatusCompletionRequested = "completion_requested"
	TaskStatusCompleted           = "completed"
	TaskStatusRejected            = "rejected"
)

// Приоритеты задачи
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ValidStatus reports whether s is a recognized aggregate task status.
func ValidStatus(s string) bool {
	switch s {
	case TaskStatusIncomplete, TaskStatusOnHold, TaskStatusCompletionRequested,
		TaskStatusCompleted, TaskStatusRejected:
		return true
	}
	return false
}

// ValidPriority reports whether p is a recognized task priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Code        string    `gorm:"uniqueIndex;not null"`
	Title       string    `gorm:"not null"`
	Description string
	Priority    string `gorm:"not null;default:'medium';check:priority IN ('low', 'medium', 'high')"`
	Status      string `gorm:"not null;default:'incomplete';index"`
	DueDate     *time.Time
	Department  string
	Tags        string
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null;index"`

	CompletionRequestedAt *time.Time
	CompletedAt           *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	Creator     User                 `gorm:"foreignKey:CreatedBy"`
	Assignees   []User               `gorm:"many2many:task_assignees"`
	Completions []AssigneeCompletion `gorm:"foreignKey:TaskID"`
	History     []TaskHistory        `gorm:"foreignKey:TaskID"`
	Comments    []TaskComment        `gorm:"foreignKey:TaskID"`
}

// Статусы завершения отдельного исполнителя
const (
	CompletionStatusPending   = "pending"
	CompletionStatusRequested = "completion_requested"
	CompletionStatusCompleted = "completed"
	CompletionStatusRejected  = "rejected"
)

// AssigneeCompletion - состояние завершения задачи одним исполнителем.
// Не больше одной записи на пару (задача, исполнитель).
type AssigneeCompletion struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	TaskID     uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_task_assignee"`
	AssigneeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_task_assignee"`
	Status     string    `gorm:"not null;default:'pending'"`

	RequestedAt  *time.Time
	RequestNotes string

	ReviewedBy  *uuid.UUID `gorm:"type:uuid"`
	ReviewedAt  *time.Time
	ReviewNotes string

	CreatedAt time.Time
	UpdatedAt time.Time

	Assignee User `gorm:"foreignKey:AssigneeID"`
}

// CompletionFor returns the completion entry for the given assignee, or nil.
func (t *Task) CompletionFor(assigneeID uuid.UUID) *AssigneeCompletion {
	for i := range t.Completions {
		if t.Completions[i].AssigneeID == assigneeID {
			return &t.Completions[i]
		}
	}
	return nil
}

// CompletionIndex returns the completion entries keyed by assignee ID.
// The Completions slice stays as the ordered projection for output.
func (t *Task) CompletionIndex() map[uuid.UUID]*AssigneeCompletion {
	idx := make(map[uuid.UUID]*AssigneeCompletion, len(t.Completions))
	for i := range t.Completions {
		idx[t.Completions[i].AssigneeID] = &t.Completions[i]
	}
	return idx
}

// IsAssignee reports whether the user is currently assigned to the task.
func (t *Task) IsAssignee(userID uuid.UUID) bool {
	for _, a := range t.Assignees {
		if a.ID == userID {
			return true
		}
	}
	return false
}
