package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/RathodAnilT/ETS-Final-sub001/internal/model"
)

type LaborShareRepository struct {
	db *gorm.DB
}

func NewLaborShareRepository(db *gorm.DB) *LaborShareRepository {
	return &LaborShareRepository{db: db}
}

// CreateWithQuota сохраняет заявку, если суммарное число передаваемых
// сотрудников из отдела за пересекающийся период (pending + approved) не
// превышает квоту. Проверка и вставка выполняются в одной транзакции,
// чтобы конкурентные заявки не обошли квоту.
func (r *LaborShareRepository) CreateWithQuota(ctx context.Context, req *model.LaborShareRequest, quota int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		committed, err := overlappingWorkerCount(tx, req.FromDepartment, req.StartDate, req.EndDate)
		if err != nil {
			return err
		}
		if committed+int64(req.WorkerCount) > int64(quota) {
			return ErrQuotaExceeded
		}
		return tx.Create(req).Error
	})
}

// GetByID retrieves a labor share request by its ID
func (r *LaborShareRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.LaborShareRequest, error) {
	var req model.LaborShareRequest
	result := r.db.WithContext(ctx).Preload("Requester").First(&req, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrLaborShareNotFound
		}
		return nil, result.Error
	}
	return &req, nil
}

// List retrieves labor share requests, optionally filtered by department
func (r *LaborShareRepository) List(ctx context.Context, department string) ([]model.LaborShareRequest, error) {
	query := r.db.WithContext(ctx).Preload("Requester").Order("created_at DESC")
	if department != "" {
		query = query.Where("from_department = ? OR to_department = ?", department, department)
	}
	var requests []model.LaborShareRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// Update saves a modified labor share request
func (r *LaborShareRepository) Update(ctx context.Context, req *model.LaborShareRequest) error {
	result := r.db.WithContext(ctx).Save(req)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLaborShareNotFound
	}
	return nil
}

func overlappingWorkerCount(tx *gorm.DB, fromDepartment string, start, end time.Time) (int64, error) {
	var committed struct {
		Total int64
	}
	err := tx.Model(&model.LaborShareRequest{}).
		Select("COALESCE(SUM(worker_count), 0) as total").
		Where("from_department = ?", fromDepartment).
		Where("status IN ?", []string{model.RequestStatusPending, model.RequestStatusApproved}).
		Where("start_date <= ? AND end_date >= ?", end, start).
		Scan(&committed).Error
	return committed.Total, err
}
