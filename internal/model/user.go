package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Email          string    `gorm:"uniqueIndex;not null"`
	HashedPassword string    `gorm:"not null"`
	Name           string    `gorm:"not null"`
	Role           string    `gorm:"not null;default:'employee';check:role IN ('employee', 'manager', 'admin')"`
	Department     string
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// Роли пользователей в системе
const (
	RoleEmployee = "employee" // рядовой сотрудник
	RoleManager  = "manager"  // может рассматривать завершения задач и заявки
	RoleAdmin    = "admin"    // полный доступ
)

// IsPrivileged reports whether the user may review work submitted by others.
func (u *User) IsPrivileged() bool {
	return u.Role == RoleManager || u.Role == RoleAdmin
}
