package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Типы уведомлений
const (
	NotifCompletionRequested = "task_completion_requested"
	NotifAllCompleted        = "task_all_assignees_completed"
	NotifReviewApproved      = "task_review_approved"
	NotifReviewRejected      = "task_review_rejected"
	NotifNeedsRevision       = "task_needs_revision"
	NotifLeaveDecision       = "leave_request_decision"
	NotifLaborShareDecision  = "labor_share_decision"
)

// Notification создается диспетчером после фиксации перехода состояния.
// После создания изменяется только флаг прочтения.
type Notification struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	RecipientID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type        string          `gorm:"not null"`
	TaskID      *uuid.UUID      `gorm:"type:uuid;index"`
	SenderID    *uuid.UUID      `gorm:"type:uuid"`
	AssigneeID  *uuid.UUID      `gorm:"type:uuid"`
	Message     string          `gorm:"not null"`
	IsRead      bool            `gorm:"not null;default:false;index"`
	Data        json.RawMessage `gorm:"type:jsonb"`
	CreatedAt   time.Time       `gorm:"autoCreateTime"`
}
