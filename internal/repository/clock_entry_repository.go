package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fieldops-service/internal/model"
)

type ClockEntryRepository struct {
	db *gorm.DB
}

func NewClockEntryRepository(db *gorm.DB) *ClockEntryRepository {
	return &ClockEntryRepository{db: db}
}

func (r *ClockEntryRepository) Create(ctx context.Context, entry *model.ClockEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *ClockEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ClockEntry, error) {
	var entry model.ClockEntry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *ClockEntryRepository) GetOpenByUser(ctx context.Context, userID uuid.UUID) (*model.ClockEntry, error) {
	var entry model.ClockEntry
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND clock_out IS NULL", userID).
		Order("clock_in DESC").
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *ClockEntryRepository) Update(ctx context.Context, entry *model.ClockEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

type ClockEntryListFilter struct {
	UserID         *uuid.UUID
	ApprovalStatus *model.ApprovalStatus
	From           *time.Time
	To             *time.Time
}

func (r *ClockEntryRepository) List(ctx context.Context, filter ClockEntryListFilter) ([]model.ClockEntry, error) {
	var entries []model.ClockEntry
	query := r.db.WithContext(ctx).Model(&model.ClockEntry{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.ApprovalStatus != nil {
		query = query.Where("approval_status = ?", *filter.ApprovalStatus)
	}
	if filter.From != nil {
		query = query.Where("clock_in >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("clock_in < ?", *filter.To)
	}

	if err := query.Order("clock_in DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
