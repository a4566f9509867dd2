package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
)

var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusInProgress, JobStatusCancelled},
	JobStatusInProgress: {JobStatusCompleted, JobStatusCancelled},
}

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusInProgress, JobStatusCompleted, JobStatusCancelled:
		return true
	default:
		return false
	}
}

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type JobPriority string

const (
	JobPriorityLow    JobPriority = "low"
	JobPriorityMedium JobPriority = "medium"
	JobPriorityHigh   JobPriority = "high"
	JobPriorityUrgent JobPriority = "urgent"
)

func (p JobPriority) Valid() bool {
	switch p {
	case JobPriorityLow, JobPriorityMedium, JobPriorityHigh, JobPriorityUrgent:
		return true
	default:
		return false
	}
}

type Job struct {
	ID                       uuid.UUID                          `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerName             string                             `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerAddress          string                             `gorm:"type:text" json:"customer_address"`
	CustomerPhone            string                             `gorm:"type:varchar(64)" json:"customer_phone"`
	CustomerEmail            string                             `gorm:"type:varchar(255)" json:"customer_email"`
	Description              string                             `gorm:"type:text" json:"description"`
	JobType                  string                             `gorm:"type:varchar(64);not null" json:"job_type"`
	Priority                 JobPriority                        `gorm:"type:job_priority;not null" json:"priority"`
	ScheduledStart           time.Time                          `gorm:"not null;index" json:"scheduled_start"`
	ScheduledEnd             time.Time                          `gorm:"not null" json:"scheduled_end"`
	EstimatedDurationMinutes int                                `json:"estimated_duration_minutes"`
	Status                   JobStatus                          `gorm:"type:job_status;not null;index" json:"status"`
	AssignedTo               *uuid.UUID                         `gorm:"type:uuid;index" json:"assigned_to"`
	CreatedBy                uuid.UUID                          `gorm:"type:uuid;not null" json:"created_by"`
	CompletedBy              *uuid.UUID                         `gorm:"type:uuid" json:"completed_by"`
	CompletedAt              *time.Time                         `json:"completed_at"`
	Notes                    string                             `gorm:"type:text" json:"notes"`
	SafetyChecklist          datatypes.JSONSlice[ChecklistItem] `json:"safety_checklist"`
	MaterialsChecklist       datatypes.JSONSlice[ChecklistItem] `json:"materials_checklist"`
	WorkProgress             datatypes.JSONSlice[ChecklistItem] `json:"work_progress"`
	SafetyCompletion         int                                `gorm:"not null" json:"safety_completion"`
	MaterialsCompletion      int                                `gorm:"not null" json:"materials_completion"`
	WorkProgressCompletion   int                                `gorm:"not null" json:"work_progress_completion"`
	SignatureURL             *string                            `gorm:"type:text" json:"signature_url"`
	CompletionPending        bool                               `gorm:"not null" json:"completion_pending"`
	PendingNotes             string                             `gorm:"type:text" json:"-"`
	PendingPhotoURLs         datatypes.JSONSlice[string]        `json:"-"`
	CreatedAt                time.Time                          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time                          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

func (j *Job) Checklist(kind ChecklistKind) Checklist {
	switch kind {
	case ChecklistKindSafety:
		return Checklist(j.SafetyChecklist)
	case ChecklistKindMaterials:
		return Checklist(j.MaterialsChecklist)
	case ChecklistKindWorkProgress:
		return Checklist(j.WorkProgress)
	default:
		return nil
	}
}

// SetChecklist stores the items together with their derived completion
// percentage so the two columns never disagree.
func (j *Job) SetChecklist(kind ChecklistKind, items Checklist) error {
	percent := items.Progress().Percent
	switch kind {
	case ChecklistKindSafety:
		j.SafetyChecklist = datatypes.JSONSlice[ChecklistItem](items)
		j.SafetyCompletion = percent
	case ChecklistKindMaterials:
		j.MaterialsChecklist = datatypes.JSONSlice[ChecklistItem](items)
		j.MaterialsCompletion = percent
	case ChecklistKindWorkProgress:
		j.WorkProgress = datatypes.JSONSlice[ChecklistItem](items)
		j.WorkProgressCompletion = percent
	default:
		return fmt.Errorf("%w: unknown checklist %q", ErrInvalidChecklist, kind)
	}
	return nil
}

func (j *Job) IsAssignedTo(userID uuid.UUID) bool {
	return j.AssignedTo != nil && *j.AssignedTo == userID
}

func (j *Job) HasSignature() bool {
	return j.SignatureURL != nil && *j.SignatureURL != ""
}

// IsEarlyCompletion reports whether completing at the given instant beats the
// scheduled end.
func (j *Job) IsEarlyCompletion(at time.Time) bool {
	return at.Before(j.ScheduledEnd)
}
