package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobUpdate is an append-only log entry. Rows are never edited after insert.
type JobUpdate struct {
	ID         uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	JobID      uuid.UUID                   `gorm:"type:uuid;not null;index" json:"job_id"`
	UserID     uuid.UUID                   `gorm:"type:uuid;not null" json:"user_id"`
	UpdateType string                      `gorm:"type:varchar(64);not null" json:"update_type"`
	Notes      string                      `gorm:"type:text" json:"notes"`
	PhotoURLs  datatypes.JSONSlice[string] `json:"photo_urls"`
	CreatedAt  time.Time                   `gorm:"autoCreateTime" json:"created_at"`
}

func (JobUpdate) TableName() string {
	return "job_updates"
}

func (u *JobUpdate) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *JobUpdate) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableRecord
}
