package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fieldops-service/internal/model"
	"fieldops-service/internal/realtime"
	"fieldops-service/internal/repository"
)

type PhotoApprovalService struct {
	approvals     *repository.PhotoApprovalRepository
	updates       *repository.JobUpdateRepository
	jobs          *repository.JobRepository
	notifications *NotificationService
	publisher     *realtime.Publisher
	log           zerolog.Logger
	now           func() time.Time
}

func NewPhotoApprovalService(
	approvals *repository.PhotoApprovalRepository,
	updates *repository.JobUpdateRepository,
	jobs *repository.JobRepository,
	notifications *NotificationService,
	publisher *realtime.Publisher,
	log zerolog.Logger,
) *PhotoApprovalService {
	return &PhotoApprovalService{
		approvals:     approvals,
		updates:       updates,
		jobs:          jobs,
		notifications: notifications,
		publisher:     publisher,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *PhotoApprovalService) ListPending(ctx context.Context, principal model.Principal) ([]model.PhotoApproval, error) {
	if !principal.CanSchedule() {
		return nil, ErrPermissionDenied
	}
	status := model.PhotoApprovalStatusPending
	return s.approvals.List(ctx, repository.PhotoApprovalListFilter{Status: &status})
}

func (s *PhotoApprovalService) ListByJob(ctx context.Context, principal model.Principal, jobID string) ([]model.PhotoApproval, error) {
	id, err := parseID(jobID, "job id")
	if err != nil {
		return nil, err
	}
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !canViewJob(principal, job) {
		return nil, ErrPermissionDenied
	}
	return s.approvals.List(ctx, repository.PhotoApprovalListFilter{JobID: &job.ID})
}

func (s *PhotoApprovalService) Approve(ctx context.Context, principal model.Principal, id string, comment *string) (*model.PhotoApproval, error) {
	if !principal.CanSchedule() {
		return nil, ErrPermissionDenied
	}
	approvalID, err := parseID(id, "photo approval id")
	if err != nil {
		return nil, err
	}
	if comment != nil {
		trimmed := strings.TrimSpace(*comment)
		if trimmed == "" {
			comment = nil
		} else {
			comment = &trimmed
		}
	}

	approval, err := s.review(ctx, principal, approvalID, model.PhotoApprovalStatusApproved, comment)
	if err != nil {
		return nil, err
	}

	s.notifySubmitter(ctx, principal, approval, model.NotificationTypePhotoApproved,
		"Photo approved", "Your job photo was approved.")
	return approval, nil
}

// Reject requires an explanation; it is checked before anything is read.
func (s *PhotoApprovalService) Reject(ctx context.Context, principal model.Principal, id, comment string) (*model.PhotoApproval, error) {
	if !principal.CanSchedule() {
		return nil, ErrPermissionDenied
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, invalidInput("a rejection comment is required")
	}
	approvalID, err := parseID(id, "photo approval id")
	if err != nil {
		return nil, err
	}

	approval, err := s.review(ctx, principal, approvalID, model.PhotoApprovalStatusRejected, &comment)
	if err != nil {
		return nil, err
	}

	s.notifySubmitter(ctx, principal, approval, model.NotificationTypePhotoRejected,
		"Photo retake required", comment)
	return approval, nil
}

func (s *PhotoApprovalService) review(ctx context.Context, principal model.Principal, id uuid.UUID, status model.PhotoApprovalStatus, comment *string) (*model.PhotoApproval, error) {
	approval, err := s.approvals.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if approval.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	if err := s.approvals.Review(ctx, id, status, principal.UserID, comment, s.now()); err != nil {
		if errors.Is(err, repository.ErrStaleRecord) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	approval, err = s.approvals.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.log.Info().
		Str("photo_approval_id", id.String()).
		Str("status", string(status)).
		Str("reviewed_by", principal.UserID.String()).
		Msg("photo reviewed")

	s.publisher.PublishChange(ctx, realtime.ChangeEvent{
		Table: "photo_approvals",
		Op:    realtime.OpUpdate,
		ID:    approval.ID,
		JobID: &approval.JobID,
	})
	return approval, nil
}

func (s *PhotoApprovalService) notifySubmitter(ctx context.Context, principal model.Principal, approval *model.PhotoApproval, typ model.NotificationType, title, message string) {
	update, err := s.updates.GetByID(ctx, approval.JobUpdateID)
	if err != nil {
		s.log.Warn().Err(err).Str("job_update_id", approval.JobUpdateID.String()).Msg("cannot resolve photo submitter")
		return
	}
	s.notifications.notify(ctx, update.UserID, typ, title, message, &approval.JobID, &principal.UserID)
}
