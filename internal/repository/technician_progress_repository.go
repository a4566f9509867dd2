package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fieldops-service/internal/model"
)

type TechnicianProgressRepository struct {
	db *gorm.DB
}

func NewTechnicianProgressRepository(db *gorm.DB) *TechnicianProgressRepository {
	return &TechnicianProgressRepository{db: db}
}

func (r *TechnicianProgressRepository) Get(ctx context.Context, userID uuid.UUID) (*model.TechnicianProgress, error) {
	var progress model.TechnicianProgress
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *TechnicianProgressRepository) Upsert(ctx context.Context, progress *model.TechnicianProgress) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(progress).Error
}
