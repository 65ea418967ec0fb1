package model

import (
	"time"

	"github.com/google/uuid"
)

// TaskHistory - неизменяемая запись об одном изменении поля задачи.
// Изменения статуса отдельного исполнителя пишутся с синтетическим именем
// поля "assigneeCompletion.<assigneeID>".
type TaskHistory struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	TaskID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Field     string    `gorm:"not null"`
	OldValue  string
	NewValue  string
	ActorID   uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

type TaskComment struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	TaskID    uuid.UUID `gorm:"type:uuid;not null;index"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null"`
	Body      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Author User `gorm:"foreignKey:AuthorID"`
}
