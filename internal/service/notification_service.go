package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"fieldops-service/internal/gamification"
	"fieldops-service/internal/model"
	"fieldops-service/internal/realtime"
	"fieldops-service/internal/repository"
)

// PushSink forwards stored notifications to device push delivery.
type PushSink interface {
	Publish(ctx context.Context, n *model.Notification) error
}

type NotificationService struct {
	repo      *repository.NotificationRepository
	publisher *realtime.Publisher
	push      PushSink
	log       zerolog.Logger
}

func NewNotificationService(repo *repository.NotificationRepository, publisher *realtime.Publisher, push PushSink, log zerolog.Logger) *NotificationService {
	return &NotificationService{
		repo:      repo,
		publisher: publisher,
		push:      push,
		log:       log,
	}
}

// Dispatch stores the notification, then fans it out to the recipient's
// realtime channel and the push queue. Fan-out failures are logged only.
func (s *NotificationService) Dispatch(ctx context.Context, n *model.Notification) error {
	if n.UserID == uuid.Nil {
		return invalidInput("notification recipient is required")
	}
	n.Title = strings.TrimSpace(n.Title)
	n.Message = strings.TrimSpace(n.Message)
	if n.Title == "" || n.Message == "" {
		return invalidInput("notification title and message are required")
	}
	n.Read = false

	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.publisher.PublishToUser(gctx, n.UserID, realtime.EventNotification, n)
		return nil
	})
	if s.push != nil {
		g.Go(func() error {
			return s.push.Publish(gctx, n)
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Warn().Err(err).Str("notification_id", n.ID.String()).Msg("push forwarding failed")
	}
	return nil
}

// notify is fire-and-report: a failed notification never fails the
// operation that triggered it.
func (s *NotificationService) notify(ctx context.Context, userID uuid.UUID, typ model.NotificationType, title, message string, jobID, createdBy *uuid.UUID) {
	if s == nil || userID == uuid.Nil {
		return
	}
	n := &model.Notification{
		UserID:       userID,
		Title:        title,
		Message:      message,
		Type:         typ,
		RelatedJobID: jobID,
		CreatedBy:    createdBy,
	}
	if err := s.Dispatch(ctx, n); err != nil {
		s.log.Error().Err(err).Str("user_id", userID.String()).Str("type", string(typ)).Msg("failed to dispatch notification")
	}
}

// AnnounceRewards turns level-ups and unlocked achievements into
// notifications and a realtime reward event.
func (s *NotificationService) AnnounceRewards(ctx context.Context, userID uuid.UUID, res gamification.Result) {
	if s == nil || !res.Rewarding() {
		return
	}
	for _, a := range res.Unlocked {
		s.notify(ctx, userID, model.NotificationTypeAchievement,
			"Achievement unlocked: "+a.Title, a.Description, nil, nil)
	}
	if res.LeveledUp {
		s.notify(ctx, userID, model.NotificationTypeLevelUp,
			"Level up!", fmt.Sprintf("You reached level %d.", res.State.Level), nil, nil)
	}
	s.publisher.PublishToUser(ctx, userID, realtime.EventReward, res)
}

func (s *NotificationService) ListMine(ctx context.Context, principal model.Principal, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, principal.UserID, unreadOnly, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, principal model.Principal, id string) error {
	notificationID, err := parseID(id, "notification id")
	if err != nil {
		return err
	}
	return mapRepoError(s.repo.MarkRead(ctx, notificationID, principal.UserID))
}

func (s *NotificationService) MarkAllRead(ctx context.Context, principal model.Principal) (int64, error) {
	return s.repo.MarkAllRead(ctx, principal.UserID)
}
