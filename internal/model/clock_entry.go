package model

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

type ClockEntry struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	ClockIn            time.Time      `gorm:"not null;index" json:"clock_in"`
	ClockOut           *time.Time     `json:"clock_out"`
	BreakStart         *time.Time     `json:"break_start"`
	BreakEnd           *time.Time     `json:"break_end"`
	LocationLat        *float64       `json:"location_lat"`
	LocationLng        *float64       `json:"location_lng"`
	LastLocationUpdate *time.Time     `json:"last_location_update"`
	ApprovalStatus     ApprovalStatus `gorm:"type:approval_status;not null" json:"approval_status"`
	ApprovedBy         *uuid.UUID     `gorm:"type:uuid" json:"approved_by"`
	ApprovedAt         *time.Time     `json:"approved_at"`
	ApprovalComment    *string        `gorm:"type:text" json:"approval_comment"`
	TotalHours         *float64       `json:"total_hours"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ClockEntry) TableName() string {
	return "clock_entries"
}

func (e *ClockEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (e *ClockEntry) IsOpen() bool {
	return e.ClockOut == nil
}

func (e *ClockEntry) OnBreak() bool {
	return e.BreakStart != nil && e.BreakEnd == nil
}

// BreakDuration counts an unfinished break up to the given instant.
func (e *ClockEntry) BreakDuration(until time.Time) time.Duration {
	if e.BreakStart == nil {
		return 0
	}
	end := until
	if e.BreakEnd != nil {
		end = *e.BreakEnd
	}
	if end.Before(*e.BreakStart) {
		return 0
	}
	return end.Sub(*e.BreakStart)
}

// ComputeTotalHours returns worked hours rounded to two decimals, or nil while
// the entry is still open.
func (e *ClockEntry) ComputeTotalHours() *float64 {
	if e.ClockOut == nil {
		return nil
	}
	worked := e.ClockOut.Sub(e.ClockIn) - e.BreakDuration(*e.ClockOut)
	if worked < 0 {
		worked = 0
	}
	hours := math.Round(worked.Hours()*100) / 100
	return &hours
}
