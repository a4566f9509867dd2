package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fieldops-service/internal/model"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *model.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	var job model.Job
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// Save writes every column of job, provided the stored status still equals
// expected. A concurrent transition makes it return ErrStaleRecord.
func (r *JobRepository) Save(ctx context.Context, job *model.Job, expected model.JobStatus) error {
	return saveJob(r.db.WithContext(ctx), job, expected)
}

// SaveWithUpdate saves the job and appends update in one transaction. Photo
// approvals fanned out from the update are returned.
func (r *JobRepository) SaveWithUpdate(ctx context.Context, job *model.Job, expected model.JobStatus, update *model.JobUpdate) ([]model.PhotoApproval, error) {
	var approvals []model.PhotoApproval
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveJob(tx, job, expected); err != nil {
			return err
		}
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

func saveJob(tx *gorm.DB, job *model.Job, expected model.JobStatus) error {
	res := tx.Model(job).
		Where("status = ?", expected).
		Select("*").
		Omit("id", "created_at").
		Updates(job)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRecord
	}
	return nil
}

type JobListFilter struct {
	Status        *model.JobStatus
	Priority      *model.JobPriority
	AssignedTo    *uuid.UUID
	ScheduledFrom *time.Time
	ScheduledTo   *time.Time
}

func (r *JobRepository) List(ctx context.Context, filter JobListFilter) ([]model.Job, error) {
	var jobs []model.Job
	query := r.db.WithContext(ctx).Model(&model.Job{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}
	if filter.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *filter.AssignedTo)
	}
	if filter.ScheduledFrom != nil {
		query = query.Where("scheduled_start >= ?", *filter.ScheduledFrom)
	}
	if filter.ScheduledTo != nil {
		query = query.Where("scheduled_start < ?", *filter.ScheduledTo)
	}

	if err := query.Order("scheduled_start ASC").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}
