package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TechnicianProgress is the relational home of a technician's gamification
// state when no Redis store is configured.
type TechnicianProgress struct {
	UserID           uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"user_id"`
	XP               int                         `gorm:"not null" json:"xp"`
	Level            int                         `gorm:"not null" json:"level"`
	Streak           int                         `gorm:"not null" json:"streak"`
	LastClockIn      string                      `gorm:"type:varchar(10)" json:"last_clock_in"`
	Achievements     datatypes.JSONSlice[string] `json:"achievements"`
	JobsCompleted    int                         `gorm:"not null" json:"jobs_completed"`
	EarlyCompletions int                         `gorm:"not null" json:"early_completions"`
	UpdatedAt        time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TechnicianProgress) TableName() string {
	return "technician_progress"
}
