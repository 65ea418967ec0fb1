package model

import (
	"time"

	"github.com/google/uuid"
)

// LaborShareRequest - заявка на временную передачу сотрудников между отделами.
// Сумма pending+approved заявок из одного отдела за пересекающийся период
// не должна превышать квоту отдела.
type LaborShareRequest struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	RequesterID    uuid.UUID `gorm:"type:uuid;not null;index"`
	FromDepartment string    `gorm:"not null;index"`
	ToDepartment   string    `gorm:"not null"`
	WorkerCount    int       `gorm:"not null"`
	StartDate      time.Time `gorm:"not null"`
	EndDate        time.Time `gorm:"not null"`
	Reason         string
	Status         string `gorm:"not null;default:'pending';index"`

	ReviewedBy  *uuid.UUID `gorm:"type:uuid"`
	ReviewedAt  *time.Time
	ReviewNotes string

	CreatedAt time.Time
	UpdatedAt time.Time

	Requester User `gorm:"foreignKey:RequesterID"`
}
