package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fieldops-service/internal/gamification"
	"fieldops-service/internal/model"
	"fieldops-service/internal/realtime"
	"fieldops-service/internal/repository"
	"fieldops-service/internal/utils"
)

const (
	UpdateTypeInProgress = "in_progress"
	UpdateTypeCompleted  = "completed"
	UpdateTypeCancelled  = "cancelled"
)

var reservedUpdateTypes = map[string]bool{
	UpdateTypeInProgress: true,
	UpdateTypeCompleted:  true,
	UpdateTypeCancelled:  true,
}

type JobService struct {
	jobs          *repository.JobRepository
	updates       *repository.JobUpdateRepository
	ledger        *gamification.Ledger
	notifications *NotificationService
	publisher     *realtime.Publisher
	log           zerolog.Logger
	now           func() time.Time
}

func NewJobService(
	jobs *repository.JobRepository,
	updates *repository.JobUpdateRepository,
	ledger *gamification.Ledger,
	notifications *NotificationService,
	publisher *realtime.Publisher,
	log zerolog.Logger,
) *JobService {
	return &JobService{
		jobs:          jobs,
		updates:       updates,
		ledger:        ledger,
		notifications: notifications,
		publisher:     publisher,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

type CreateJobInput struct {
	CustomerName             string
	CustomerAddress          string
	CustomerPhone            string
	CustomerEmail            string
	Description              string
	JobType                  string
	Priority                 string
	ScheduledStart           string
	ScheduledEnd             string
	EstimatedDurationMinutes int
	AssignedTo               string
	Notes                    string
	SafetyChecklist          model.Checklist
	MaterialsChecklist       model.Checklist
	WorkProgress             model.Checklist
}

type ScheduleInput struct {
	ScheduledStart string
	ScheduledEnd   string
}

type CompleteJobInput struct {
	Notes     string
	PhotoURLs []string
}

type AddUpdateInput struct {
	UpdateType string
	Notes      string
	PhotoURLs  []string
}

// CompletionResult is returned by operations that may complete a job.
type CompletionResult struct {
	Job       *model.Job           `json:"job"`
	Completed bool                 `json:"completed"`
	Early     bool                 `json:"early"`
	Reward    *gamification.Result `json:"reward,omitempty"`
}

type ChecklistResult struct {
	Job      *model.Job              `json:"job"`
	Kind     model.ChecklistKind     `json:"kind"`
	Progress model.ChecklistProgress `json:"progress"`
	Reward   *gamification.Result    `json:"reward,omitempty"`
}

func (s *JobService) Create(ctx context.Context, principal model.Principal, input CreateJobInput) (*model.Job, error) {
	if !principal.CanSchedule() {
		return nil, ErrPermissionDenied
	}

	customerName := strings.TrimSpace(input.CustomerName)
	if customerName == "" {
		return nil, invalidInput("customer_name is required")
	}

	jobType := utils.NormalizeTag(input.JobType)
	if jobType == "" {
		return nil, invalidInput("job_type is required")
	}

	priority := model.JobPriorityMedium
	if strings.TrimSpace(input.Priority) != "" {
		priority = model.JobPriority(strings.ToLower(strings.TrimSpace(input.Priority)))
		if !priority.Valid() {
			return nil, invalidInput("unknown priority %q", input.Priority)
		}
	}

	email := strings.TrimSpace(input.CustomerEmail)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, invalidInput("customer_email is not a valid address")
		}
	}

	start, end, err := parseSchedule(input.ScheduledStart, input.ScheduledEnd)
	if err != nil {
		return nil, err
	}

	if input.EstimatedDurationMinutes < 0 {
		return nil, invalidInput("estimated_duration_minutes must not be negative")
	}
	estimate := input.EstimatedDurationMinutes
	if estimate == 0 {
		estimate = int(end.Sub(start).Minutes())
	}

	var assignee *uuid.UUID
	if strings.TrimSpace(input.AssignedTo) != "" {
		id, err := parseID(input.AssignedTo, "assigned_to")
		if err != nil {
			return nil, err
		}
		assignee = &id
	}

	job := &model.Job{
		CustomerName:             customerName,
		CustomerAddress:          strings.TrimSpace(input.CustomerAddress),
		CustomerPhone:            strings.TrimSpace(input.CustomerPhone),
		CustomerEmail:            email,
		Description:              strings.TrimSpace(input.Description),
		JobType:                  jobType,
		Priority:                 priority,
		ScheduledStart:           start,
		ScheduledEnd:             end,
		EstimatedDurationMinutes: estimate,
		Status:                   model.JobStatusPending,
		AssignedTo:               assignee,
		CreatedBy:                principal.UserID,
		Notes:                    strings.TrimSpace(input.Notes),
	}

	lists := map[model.ChecklistKind]model.Checklist{
		model.ChecklistKindSafety:       input.SafetyChecklist,
		model.ChecklistKindMaterials:    input.MaterialsChecklist,
		model.ChecklistKindWorkProgress: input.WorkProgress,
	}
	for kind, items := range lists {
		if items == nil {
			items = model.Checklist{}
		}
		if err := items.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInput, kind, err)
		}
		if err := job.SetChecklist(kind, items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	s.log.Info().Str("job_id", job.ID.String()).Str("created_by", principal.UserID.String()).Msg("job created")
	s.publishJob(ctx, job, realtime.OpInsert)

	if assignee != nil {
		s.notifications.notify(ctx, *assignee, model.NotificationTypeJobAssigned,
			"New job assigned", fmt.Sprintf("%s for %s", job.JobType, job.CustomerName), &job.ID, &principal.UserID)
	}

	return job, nil
}

func (s *JobService) Get(ctx context.Context, principal model.Principal, id string) (*model.Job, error) {
	jobID, err := parseID(id, "job id")
	if err != nil {
		return nil, err
	}
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !canViewJob(principal, job) {
		return nil, ErrPermissionDenied
	}
	return job, nil
}

func (s *JobService) List(ctx context.Context, principal model.Principal, filter repository.JobListFilter) ([]model.Job, error) {
	switch {
	case principal.CanSchedule():
	case principal.IsTechnician():
		userID := principal.UserID
		filter.AssignedTo = &userID
	default:
		return nil, ErrPermissionDenied
	}
	return s.jobs.List(ctx, filter)
}

func (s *JobService) Reschedule(ctx context.Context, principal model.Principal, id string, input ScheduleInput) (*model.Job, error) {
	if !principal.CanSchedule() {
		return nil, ErrPermissionDenied
	}
	start, end, err := parseSchedule(input.ScheduledStart, input.ScheduledEnd)
	if err != nil {
		return nil, err
	}

	job, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	job.ScheduledStart = start
	job.ScheduledEnd = end
	if err := s.jobs.Save(ctx, job, job.Status); err != nil {
		return nil, mapRepoError(err)
	}

	s.publishJob(ctx, job, realtime.OpUpdate)
	if job.AssignedTo != nil {
		s.notifications.notify(ctx, *job.AssignedTo, model.NotificationTypeJobRescheduled,
			"Job rescheduled", fmt.Sprintf("%s for %s now starts %s", job.JobType, job.CustomerName, start.Format(time.RFC3339)),
			&job.ID, &principal.UserID)
	}
	return job, nil
}

// Reassign moves the job to another technician. An empty technicianID
// leaves the job unassigned.
func (s *JobService) Reassign(ctx context.Context, principal model.Principal, id, technicianID string) (*model.Job, error) {
	if !principal.CanSchedule() {
		return nil, ErrPermissionDenied
	}

	var next *uuid.UUID
	if strings.TrimSpace(technicianID) != "" {
		techID, err := parseID(technicianID, "technician_id")
		if err != nil {
			return nil, err
		}
		next = &techID
	}

	job, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	previous := job.AssignedTo
	job.AssignedTo = next
	if !sameAssignee(previous, next) {
		// A parked completion belongs to the technician who asked for it.
		job.CompletionPending = false
		job.PendingNotes = ""
		job.PendingPhotoURLs = nil
	}
	if err := s.jobs.Save(ctx, job, job.Status); err != nil {
		return nil, mapRepoError(err)
	}

	s.log.Info().Str("job_id", job.ID.String()).Msg("job reassigned")
	s.publishJob(ctx, job, realtime.OpUpdate, derefIDs(previous)...)

	if next != nil && !sameAssignee(previous, next) {
		s.notifications.notify(ctx, *next, model.NotificationTypeJobAssigned,
			"New job assigned", fmt.Sprintf("%s for %s", job.JobType, job.CustomerName), &job.ID, &principal.UserID)
	}
	return job, nil
}

func sameAssignee(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *JobService) Start(ctx context.Context, principal model.Principal, id string) (*model.Job, error) {
	job, err := s.loadForAssignee(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if !job.Status.CanTransitionTo(model.JobStatusInProgress) {
		return nil, ErrInvalidTransition
	}

	job.Status = model.JobStatusInProgress
	update := &model.JobUpdate{
		JobID:      job.ID,
		UserID:     principal.UserID,
		UpdateType: UpdateTypeInProgress,
	}
	if _, err := s.jobs.SaveWithUpdate(ctx, job, model.JobStatusPending, update); err != nil {
		return nil, transitionError(err)
	}

	s.log.Info().Str("job_id", job.ID.String()).Msg("job started")
	s.publishJob(ctx, job, realtime.OpUpdate)
	s.publishUpdate(ctx, job, update, nil)
	return job, nil
}

// Complete finishes an in-progress job. Without a signature on file the job
// is parked as completion_pending with the submitted notes and photos, and
// ErrSignatureRequired is returned; AttachSignature then completes it.
func (s *JobService) Complete(ctx context.Context, principal model.Principal, id string, input CompleteJobInput) (*CompletionResult, error) {
	job, err := s.loadForAssignee(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if !job.Status.CanTransitionTo(model.JobStatusCompleted) {
		return nil, ErrInvalidTransition
	}

	notes := strings.TrimSpace(input.Notes)
	if !job.HasSignature() {
		job.CompletionPending = true
		job.PendingNotes = notes
		job.PendingPhotoURLs = input.PhotoURLs
		if err := s.jobs.Save(ctx, job, job.Status); err != nil {
			return nil, transitionError(err)
		}
		s.publishJob(ctx, job, realtime.OpUpdate)
		return nil, ErrSignatureRequired
	}

	return s.finishCompletion(ctx, principal, job, notes, input.PhotoURLs)
}

func (s *JobService) AttachSignature(ctx context.Context, principal model.Principal, id, signatureURL string) (*CompletionResult, error) {
	signatureURL = strings.TrimSpace(signatureURL)
	if signatureURL == "" {
		return nil, invalidInput("signature_url is required")
	}

	job, err := s.loadForAssignee(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	job.SignatureURL = &signatureURL
	if job.CompletionPending && job.Status == model.JobStatusInProgress {
		return s.finishCompletion(ctx, principal, job, job.PendingNotes, job.PendingPhotoURLs)
	}

	if err := s.jobs.Save(ctx, job, job.Status); err != nil {
		return nil, mapRepoError(err)
	}
	s.publishJob(ctx, job, realtime.OpUpdate)
	return &CompletionResult{Job: job}, nil
}

func (s *JobService) finishCompletion(ctx context.Context, principal model.Principal, job *model.Job, notes string, photoURLs []string) (*CompletionResult, error) {
	now := s.now()
	early := job.IsEarlyCompletion(now)

	job.Status = model.JobStatusCompleted
	job.CompletedAt = &now
	completedBy := principal.UserID
	job.CompletedBy = &completedBy
	job.CompletionPending = false
	job.PendingNotes = ""
	job.PendingPhotoURLs = nil

	update := &model.JobUpdate{
		JobID:      job.ID,
		UserID:     principal.UserID,
		UpdateType: UpdateTypeCompleted,
		Notes:      notes,
		PhotoURLs:  photoURLs,
	}
	approvals, err := s.jobs.SaveWithUpdate(ctx, job, model.JobStatusInProgress, update)
	if err != nil {
		return nil, transitionError(err)
	}

	s.log.Info().
		Str("job_id", job.ID.String()).
		Str("completed_by", principal.UserID.String()).
		Bool("early", early).
		Msg("job completed")

	result := &CompletionResult{Job: job, Completed: true, Early: early}

	if s.ledger != nil {
		reward, err := s.ledger.RecordJobCompletion(ctx, principal.UserID, early)
		if err != nil {
			s.log.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to record job completion xp")
		} else {
			result.Reward = &reward
			s.notifications.AnnounceRewards(ctx, principal.UserID, reward)
		}
	}

	s.publishJob(ctx, job, realtime.OpUpdate)
	s.publishUpdate(ctx, job, update, approvals)

	if job.CreatedBy != principal.UserID {
		s.notifications.notify(ctx, job.CreatedBy, model.NotificationTypeJobCompleted,
			"Job completed", fmt.Sprintf("%s for %s was completed", job.JobType, job.CustomerName),
			&job.ID, &principal.UserID)
	}

	return result, nil
}

func (s *JobService) Cancel(ctx context.Context, principal model.Principal, id, reason string) (*model.Job, error) {
	job, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if !principal.CanSchedule() && !job.IsAssignedTo(principal.UserID) {
		return nil, ErrPermissionDenied
	}
	if !job.Status.CanTransitionTo(model.JobStatusCancelled) {
		return nil, ErrInvalidTransition
	}

	expected := job.Status
	job.Status = model.JobStatusCancelled
	job.CompletionPending = false
	update := &model.JobUpdate{
		JobID:      job.ID,
		UserID:     principal.UserID,
		UpdateType: UpdateTypeCancelled,
		Notes:      strings.TrimSpace(reason),
	}
	if _, err := s.jobs.SaveWithUpdate(ctx, job, expected, update); err != nil {
		return nil, transitionError(err)
	}

	s.log.Info().Str("job_id", job.ID.String()).Str("cancelled_by", principal.UserID.String()).Msg("job cancelled")
	s.publishJob(ctx, job, realtime.OpUpdate)
	s.publishUpdate(ctx, job, update, nil)

	message := fmt.Sprintf("%s for %s was cancelled", job.JobType, job.CustomerName)
	if update.Notes != "" {
		message += ": " + update.Notes
	}
	for _, recipient := range []*uuid.UUID{job.AssignedTo, &job.CreatedBy} {
		if recipient == nil || *recipient == principal.UserID {
			continue
		}
		s.notifications.notify(ctx, *recipient, model.NotificationTypeJobCancelled,
			"Job cancelled", message, &job.ID, &principal.UserID)
	}
	return job, nil
}

func (s *JobService) UpdateChecklist(ctx context.Context, principal model.Principal, id string, kind model.ChecklistKind, items model.Checklist) (*ChecklistResult, error) {
	if !kind.Valid() {
		return nil, invalidInput("unknown checklist %q", kind)
	}
	if items == nil {
		items = model.Checklist{}
	}
	if err := items.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	job, err := s.loadForEditor(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	return s.applyChecklist(ctx, principal, job, kind, items)
}

func (s *JobService) ToggleChecklistItem(ctx context.Context, principal model.Principal, id string, kind model.ChecklistKind, index int) (*ChecklistResult, error) {
	if !kind.Valid() {
		return nil, invalidInput("unknown checklist %q", kind)
	}

	job, err := s.loadForEditor(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	next, err := job.Checklist(kind).Toggle(index)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.applyChecklist(ctx, principal, job, kind, next)
}

func (s *JobService) applyChecklist(ctx context.Context, principal model.Principal, job *model.Job, kind model.ChecklistKind, next model.Checklist) (*ChecklistResult, error) {
	if job.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	prev := append(model.Checklist(nil), job.Checklist(kind)...)
	if err := job.SetChecklist(kind, next); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.jobs.Save(ctx, job, job.Status); err != nil {
		return nil, mapRepoError(err)
	}

	s.publishJob(ctx, job, realtime.OpUpdate)
	result := &ChecklistResult{Job: job, Kind: kind, Progress: next.Progress()}

	if kind == model.ChecklistKindWorkProgress && job.IsAssignedTo(principal.UserID) && s.ledger != nil {
		reward, err := s.ledger.RecordChecklistProgress(ctx, principal.UserID, prev, next)
		if err != nil {
			s.log.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to record checklist xp")
		} else {
			result.Reward = &reward
			s.notifications.AnnounceRewards(ctx, principal.UserID, reward)
		}
	}
	return result, nil
}

func (s *JobService) UpdateNotes(ctx context.Context, principal model.Principal, id, notes string) (*model.Job, error) {
	job, err := s.loadForEditor(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	job.Notes = strings.TrimSpace(notes)
	if err := s.jobs.Save(ctx, job, job.Status); err != nil {
		return nil, mapRepoError(err)
	}
	s.publishJob(ctx, job, realtime.OpUpdate)
	return job, nil
}

// AddUpdate appends a progress entry without changing the job status.
func (s *JobService) AddUpdate(ctx context.Context, principal model.Principal, id string, input AddUpdateInput) (*model.JobUpdate, error) {
	updateType := utils.NormalizeTag(input.UpdateType)
	if updateType == "" {
		return nil, invalidInput("update_type is required")
	}
	if reservedUpdateTypes[updateType] {
		return nil, invalidInput("update_type %q is set by status changes", updateType)
	}
	notes := strings.TrimSpace(input.Notes)
	if notes == "" && len(input.PhotoURLs) == 0 {
		return nil, invalidInput("notes or photos are required")
	}

	job, err := s.loadForEditor(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	update := &model.JobUpdate{
		JobID:      job.ID,
		UserID:     principal.UserID,
		UpdateType: updateType,
		Notes:      notes,
		PhotoURLs:  input.PhotoURLs,
	}
	approvals, err := s.updates.Create(ctx, update)
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.publishUpdate(ctx, job, update, approvals)
	return update, nil
}

func (s *JobService) ListUpdates(ctx context.Context, principal model.Principal, id string) ([]model.JobUpdate, error) {
	job, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	return s.updates.ListByJob(ctx, job.ID)
}

func (s *JobService) loadForAssignee(ctx context.Context, principal model.Principal, id string) (*model.Job, error) {
	job, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if !job.IsAssignedTo(principal.UserID) {
		return nil, ErrPermissionDenied
	}
	return job, nil
}

func (s *JobService) loadForEditor(ctx context.Context, principal model.Principal, id string) (*model.Job, error) {
	job, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if !principal.CanSchedule() && !job.IsAssignedTo(principal.UserID) {
		return nil, ErrPermissionDenied
	}
	return job, nil
}

func (s *JobService) publishJob(ctx context.Context, job *model.Job, op realtime.ChangeOp, extra ...uuid.UUID) {
	users := append(derefIDs(job.AssignedTo), extra...)
	s.publisher.PublishChange(ctx, realtime.ChangeEvent{
		Table: "jobs",
		Op:    op,
		ID:    job.ID,
		JobID: &job.ID,
	}, users...)
}

func (s *JobService) publishUpdate(ctx context.Context, job *model.Job, update *model.JobUpdate, approvals []model.PhotoApproval) {
	users := derefIDs(job.AssignedTo)
	s.publisher.PublishChange(ctx, realtime.ChangeEvent{
		Table: "job_updates",
		Op:    realtime.OpInsert,
		ID:    update.ID,
		JobID: &job.ID,
	}, users...)
	for _, a := range approvals {
		s.publisher.PublishChange(ctx, realtime.ChangeEvent{
			Table: "photo_approvals",
			Op:    realtime.OpInsert,
			ID:    a.ID,
			JobID: &job.ID,
		})
	}
}

func canViewJob(principal model.Principal, job *model.Job) bool {
	if principal.CanSchedule() {
		return true
	}
	return principal.IsTechnician() && job.IsAssignedTo(principal.UserID)
}

func parseSchedule(rawStart, rawEnd string) (time.Time, time.Time, error) {
	if strings.TrimSpace(rawStart) == "" || strings.TrimSpace(rawEnd) == "" {
		return time.Time{}, time.Time{}, invalidInput("scheduled_start and scheduled_end are required")
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(rawStart))
	if err != nil {
		return time.Time{}, time.Time{}, invalidInput("scheduled_start must be RFC3339")
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(rawEnd))
	if err != nil {
		return time.Time{}, time.Time{}, invalidInput("scheduled_end must be RFC3339")
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, invalidInput("scheduled_end must be after scheduled_start")
	}
	return start.UTC(), end.UTC(), nil
}

// transitionError reports a lost race on the status guard as an invalid
// transition.
func transitionError(err error) error {
	mapped := mapRepoError(err)
	if mapped == ErrConflict {
		return ErrInvalidTransition
	}
	return mapped
}

func derefIDs(ids ...*uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != nil {
			out = append(out, *id)
		}
	}
	return out
}
