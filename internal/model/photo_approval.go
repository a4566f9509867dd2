package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PhotoApprovalStatus string

const (
	PhotoApprovalStatusPending  PhotoApprovalStatus = "pending"
	PhotoApprovalStatusApproved PhotoApprovalStatus = "approved"
	PhotoApprovalStatusRejected PhotoApprovalStatus = "rejected"
)

func (s PhotoApprovalStatus) IsTerminal() bool {
	return s == PhotoApprovalStatusApproved || s == PhotoApprovalStatusRejected
}

type PhotoApproval struct {
	ID          uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	JobUpdateID uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:uq_photo_approvals_update_url" json:"job_update_id"`
	JobID       uuid.UUID           `gorm:"type:uuid;not null;index" json:"job_id"`
	PhotoURL    string              `gorm:"type:text;not null;uniqueIndex:uq_photo_approvals_update_url" json:"photo_url"`
	Status      PhotoApprovalStatus `gorm:"type:photo_approval_status;not null;index" json:"status"`
	Comments    *string             `gorm:"type:text" json:"comments"`
	ReviewedBy  *uuid.UUID          `gorm:"type:uuid" json:"reviewed_by"`
	ReviewedAt  *time.Time          `json:"reviewed_at"`
	CreatedAt   time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PhotoApproval) TableName() string {
	return "photo_approvals"
}

func (p *PhotoApproval) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
