package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"fieldops-service/internal/gamification"
	"fieldops-service/internal/model"
	"fieldops-service/internal/realtime"
	"fieldops-service/internal/repository"
	"fieldops-service/internal/testutil"
)

type recordingPush struct {
	mu   sync.Mutex
	sent []*model.Notification
}

func (r *recordingPush) Publish(_ context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingPush) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type testEnv struct {
	db            *gorm.DB
	hub           *realtime.Hub
	push          *recordingPush
	ledger        *gamification.Ledger
	notifications *NotificationService
	jobs          *JobService
	photos        *PhotoApprovalService
	clock         *ClockService
	uploads       *UploadService
	supervisor    model.Principal
	tech          model.Principal
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.DB(t)
	log := testutil.Logger(t)

	catalog, err := gamification.DefaultCatalog()
	require.NoError(t, err)
	ledger := gamification.NewLedger(
		gamification.NewGormStore(repository.NewTechnicianProgressRepository(db)),
		catalog, time.UTC, log,
	)

	hub := realtime.NewHub(log)
	publisher := realtime.NewPublisher(hub, nil, log)
	push := &recordingPush{}

	jobRepo := repository.NewJobRepository(db)
	updateRepo := repository.NewJobUpdateRepository(db)
	notifications := NewNotificationService(repository.NewNotificationRepository(db), publisher, push, log)

	return &testEnv{
		db:            db,
		hub:           hub,
		push:          push,
		ledger:        ledger,
		notifications: notifications,
		jobs:          NewJobService(jobRepo, updateRepo, ledger, notifications, publisher, log),
		photos:        NewPhotoApprovalService(repository.NewPhotoApprovalRepository(db), updateRepo, jobRepo, notifications, publisher, log),
		clock:         NewClockService(repository.NewClockEntryRepository(db), ledger, notifications, publisher, time.UTC, log),
		uploads:       NewUploadService(&fakeSigner{}, jobRepo),
		supervisor:    testutil.Supervisor(),
		tech:          testutil.Technician(),
	}
}

// createJob schedules a job for env.tech ending at end.
func (e *testEnv) createJob(t *testing.T, end time.Time) *model.Job {
	t.Helper()
	job, err := e.jobs.Create(context.Background(), e.supervisor, CreateJobInput{
		CustomerName:   "Acme Plumbing",
		JobType:        "Boiler Service",
		Priority:       "high",
		ScheduledStart: end.Add(-2 * time.Hour).Format(time.RFC3339),
		ScheduledEnd:   end.Format(time.RFC3339),
		AssignedTo:     e.tech.UserID.String(),
		WorkProgress: model.Checklist{
			{Text: "Inspect"},
			{Text: "Replace valve"},
			{Text: "Test pressure"},
		},
	})
	require.NoError(t, err)
	return job
}

func (e *testEnv) notificationsFor(t *testing.T, userID uuid.UUID) []model.Notification {
	t.Helper()
	var out []model.Notification
	require.NoError(t, e.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&out).Error)
	return out
}

type fakeSigner struct{}

func (fakeSigner) SignedUploadURL(_ context.Context, key, _ string) (string, time.Time, error) {
	return "https://signed.example/put/" + key, time.Now().Add(time.Minute), nil
}

func (fakeSigner) SignedDownloadURL(_ context.Context, key string) (string, time.Time, error) {
	return "https://signed.example/get/" + key, time.Now().Add(time.Minute), nil
}

func (fakeSigner) ObjectURL(key string) string {
	return "https://storage.example/bucket/" + key
}

func (fakeSigner) ObjectKey(objectURL string) (string, bool) {
	const prefix = "https://storage.example/bucket/"
	if len(objectURL) <= len(prefix) || objectURL[:len(prefix)] != prefix {
		return "", false
	}
	return objectURL[len(prefix):], true
}
