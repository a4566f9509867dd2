package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTypeJobAssigned    NotificationType = "job_assigned"
	NotificationTypeJobRescheduled NotificationType = "job_rescheduled"
	NotificationTypeJobCompleted   NotificationType = "job_completed"
	NotificationTypeJobCancelled   NotificationType = "job_cancelled"
	NotificationTypePhotoApproved  NotificationType = "photo_approved"
	NotificationTypePhotoRejected  NotificationType = "photo_rejected"
	NotificationTypeTimesheet      NotificationType = "timesheet"
	NotificationTypeAchievement    NotificationType = "achievement"
	NotificationTypeLevelUp        NotificationType = "level_up"
)

type Notification struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	Title        string           `gorm:"type:varchar(255);not null" json:"title"`
	Message      string           `gorm:"type:text;not null" json:"message"`
	Type         NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	Read         bool             `gorm:"not null" json:"read"`
	RelatedJobID *uuid.UUID       `gorm:"type:uuid" json:"related_job_id"`
	CreatedBy    *uuid.UUID       `gorm:"type:uuid" json:"created_by"`
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
