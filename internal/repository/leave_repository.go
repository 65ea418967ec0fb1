package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/RathodAnilT/ETS-Final-sub001/internal/model"
)

type LeaveRepository struct {
	db *gorm.DB
}

func NewLeaveRepository(db *gorm.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// Create persists a new leave request
func (r *LeaveRepository) Create(ctx context.Context, leave *model.LeaveRequest) error {
	return r.db.WithContext(ctx).Create(leave).Error
}

// GetByID retrieves a leave request by its ID
func (r *LeaveRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.LeaveRequest, error) {
	var leave model.LeaveRequest
	result := r.db.WithContext(ctx).Preload("User").First(&leave, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrLeaveNotFound
		}
		return nil, result.Error
	}
	return &leave, nil
}

// ListForUser retrieves all leave requests filed by one user
func (r *LeaveRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.LeaveRequest, error) {
	var leaves []model.LeaveRequest
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&leaves)
	if result.Error != nil {
		return nil, result.Error
	}
	return leaves, nil
}

// ListAll retrieves every leave request, newest first
func (r *LeaveRepository) ListAll(ctx context.Context) ([]model.LeaveRequest, error) {
	var leaves []model.LeaveRequest
	result := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Find(&leaves)
	if result.Error != nil {
		return nil, result.Error
	}
	return leaves, nil
}

// Update saves a modified leave request
func (r *LeaveRepository) Update(ctx context.Context, leave *model.LeaveRequest) error {
	result := r.db.WithContext(ctx).Save(leave)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLeaveNotFound
	}
	return nil
}
