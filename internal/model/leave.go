package model

import (
	"time"

	"github.com/google/uuid"
)

// Статусы заявок (отпуска и передача сотрудников)
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// Типы отпусков
const (
	LeaveTypeAnnual = "annual"
	LeaveTypeSick   = "sick"
	LeaveTypeUnpaid = "unpaid"
)

type LeaveRequest struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Type      string    `gorm:"not null;check:type IN ('annual', 'sick', 'unpaid')"`
	StartDate time.Time `gorm:"not null"`
	EndDate   time.Time `gorm:"not null"`
	Reason    string
	Status    string `gorm:"not null;default:'pending';index"`

	ReviewedBy  *uuid.UUID `gorm:"type:uuid"`
	ReviewedAt  *time.Time
	ReviewNotes string

	CreatedAt time.Time
	UpdatedAt time.Time

	User User `gorm:"foreignKey:UserID"`
}
