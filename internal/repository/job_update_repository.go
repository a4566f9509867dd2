package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fieldops-service/internal/model"
)

type JobUpdateRepository struct {
	db *gorm.DB
}

func NewJobUpdateRepository(db *gorm.DB) *JobUpdateRepository {
	return &JobUpdateRepository{db: db}
}

// Create appends the update and fans out one pending photo approval per
// distinct photo URL.
func (r *JobUpdateRepository) Create(ctx context.Context, update *model.JobUpdate) ([]model.PhotoApproval, error) {
	var approvals []model.PhotoApproval
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := insertJobUpdate(tx, update)
		if err != nil {
			return err
		}
		approvals = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approvals, nil
}

func (r *JobUpdateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.JobUpdate, error) {
	var update model.JobUpdate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&update).Error; err != nil {
		return nil, err
	}
	return &update, nil
}

func (r *JobUpdateRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]model.JobUpdate, error) {
	var updates []model.JobUpdate
	if err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&updates).Error; err != nil {
		return nil, err
	}
	return updates, nil
}

func insertJobUpdate(tx *gorm.DB, update *model.JobUpdate) ([]model.PhotoApproval, error) {
	update.PhotoURLs = distinctURLs(update.PhotoURLs)
	if err := tx.Create(update).Error; err != nil {
		return nil, err
	}
	if len(update.PhotoURLs) == 0 {
		return nil, nil
	}

	approvals := make([]model.PhotoApproval, 0, len(update.PhotoURLs))
	for _, url := range update.PhotoURLs {
		approvals = append(approvals, model.PhotoApproval{
			JobUpdateID: update.ID,
			JobID:       update.JobID,
			PhotoURL:    url,
			Status:      model.PhotoApprovalStatusPending,
		})
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_update_id"}, {Name: "photo_url"}},
		DoNothing: true,
	}).Create(&approvals).Error; err != nil {
		return nil, err
	}
	return approvals, nil
}

func distinctURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		out = append(out, url)
	}
	return out
}
