package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fieldops-service/internal/model"
)

type PhotoApprovalRepository struct {
	db *gorm.DB
}

func NewPhotoApprovalRepository(db *gorm.DB) *PhotoApprovalRepository {
	return &PhotoApprovalRepository{db: db}
}

func (r *PhotoApprovalRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PhotoApproval, error) {
	var approval model.PhotoApproval
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&approval).Error; err != nil {
		return nil, err
	}
	return &approval, nil
}

type PhotoApprovalListFilter struct {
	Status *model.PhotoApprovalStatus
	JobID  *uuid.UUID
}

func (r *PhotoApprovalRepository) List(ctx context.Context, filter PhotoApprovalListFilter) ([]model.PhotoApproval, error) {
	var approvals []model.PhotoApproval
	query := r.db.WithContext(ctx).Model(&model.PhotoApproval{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.JobID != nil {
		query = query.Where("job_id = ?", *filter.JobID)
	}

	if err := query.Order("created_at ASC").Find(&approvals).Error; err != nil {
		return nil, err
	}
	return approvals, nil
}

// Review moves a pending approval to a terminal status. ErrStaleRecord means
// the approval was reviewed already.
func (r *PhotoApprovalRepository) Review(ctx context.Context, id uuid.UUID, status model.PhotoApprovalStatus, reviewer uuid.UUID, comments *string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.PhotoApproval{}).
		Where("id = ? AND status = ?", id, model.PhotoApprovalStatusPending).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": reviewer,
			"reviewed_at": at,
			"comments":    comments,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRecord
	}
	return nil
}
