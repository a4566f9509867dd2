package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldops-service/internal/auth"
	"fieldops-service/internal/gamification"
	"fieldops-service/internal/http/middleware"
	"fieldops-service/internal/model"
	"fieldops-service/internal/realtime"
	"fieldops-service/internal/repository"
	"fieldops-service/internal/service"
	"fieldops-service/internal/testutil"
)

const testSecret = "test-secret"

type testServer struct {
	router     *gin.Engine
	hub        *realtime.Hub
	parser     *auth.Parser
	supervisor model.Principal
	tech       model.Principal
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	jobRepo := repository.NewJobRepository(db)
	updateRepo := repository.NewJobUpdateRepository(db)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), publisher, nil, log)

	handler := NewHandler(
		service.NewJobService(jobRepo, updateRepo, ledger, notifications, publisher, log),
		service.NewPhotoApprovalService(repository.NewPhotoApprovalRepository(db), updateRepo, jobRepo, notifications, publisher, log),
		service.NewClockService(repository.NewClockEntryRepository(db), ledger, notifications, publisher, time.UTC, log),
		notifications,
		service.NewUploadService(nil, jobRepo),
		service.NewProgressService(ledger),
		hub,
		log,
	)

	parser := auth.NewParser(testSecret)
	return &testServer{
		router:     NewRouter(handler, middleware.Auth(parser), realtime.NewOriginPolicy([]string{"*"}), "test", "fieldops-test", log),
		hub:        hub,
		parser:     parser,
		supervisor: testutil.Supervisor(),
		tech:       testutil.Technician(),
	}
}

func (s *testServer) token(t *testing.T, p model.Principal) string {
	t.Helper()
	token, err := s.parser.Issue(p.UserID, p.Role, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, p *model.Principal, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(t, *p))
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func (s *testServer) createJob(t *testing.T, end time.Time) model.Job {
	t.Helper()
	rec := s.do(t, &s.supervisor, http.MethodPost, "/supervisor/jobs", map[string]interface{}{
		"customer_name":   "Acme Plumbing",
		"job_type":        "repair",
		"scheduled_start": end.Add(-time.Hour).UTC().Format(time.RFC3339),
		"scheduled_end":   end.UTC().Format(time.RFC3339),
		"assigned_to":     s.tech.UserID.String(),
		"work_progress":   []map[string]interface{}{{"item": "Fix leak"}, {"item": "Clean up"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var job model.Job
	decodeData(t, rec, &job)
	return job
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, nil, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, nil, http.MethodGet, "/technician/jobs", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/technician/jobs", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	bad := httptest.NewRecorder()
	s.router.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)

	req = httptest.NewRequest(http.MethodGet, "/technician/jobs?token="+s.token(t, s.tech), nil)
	viaQuery := httptest.NewRecorder()
	s.router.ServeHTTP(viaQuery, req)
	assert.Equal(t, http.StatusOK, viaQuery.Code)
}

func TestJobLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	job := s.createJob(t, time.Now().Add(-time.Minute))
	base := "/technician/jobs/" + job.ID.String()

	rec := s.do(t, &s.tech, http.MethodPost, "/supervisor/jobs", map[string]string{
		"customer_name": "x", "job_type": "y", "scheduled_start": "a", "scheduled_end": "b",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, &s.tech, http.MethodGet, "/technician/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var jobs []model.Job
	decodeData(t, rec, &jobs)
	assert.Len(t, jobs, 1)

	rec = s.do(t, &s.tech, http.MethodPut, base+"/complete", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, &s.tech, http.MethodPut, base+"/start", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, &s.tech, http.MethodPut, base+"/checklists/work_progress/items/0/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var checklist service.ChecklistResult
	decodeData(t, rec, &checklist)
	assert.Equal(t, 50, checklist.Progress.Percent)

	rec = s.do(t, &s.tech, http.MethodPut, base+"/complete", map[string]interface{}{
		"notes":      "Replaced the trap",
		"photo_urls": []string{"https://img/1.jpg"},
	})
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)

	rec = s.do(t, &s.tech, http.MethodPut, base+"/signature", map[string]string{"signature_url": "https://img/sig.png"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var completion service.CompletionResult
	decodeData(t, rec, &completion)
	assert.True(t, completion.Completed)
	assert.Equal(t, model.JobStatusCompleted, completion.Job.Status)

	rec = s.do(t, &s.supervisor, http.MethodGet, "/supervisor/photos/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []model.PhotoApproval
	decodeData(t, rec, &pending)
	require.Len(t, pending, 1)

	rec = s.do(t, &s.supervisor, http.MethodPut, "/supervisor/photos/"+pending[0].ID.String()+"/reject", map[string]string{"comment": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, &s.supervisor, http.MethodPut, "/manager/photos/"+pending[0].ID.String()+"/reject", map[string]string{"comment": "Too dark"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, &s.tech, http.MethodGet, "/technician/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var progress service.ProgressView
	decodeData(t, rec, &progress)
	assert.Equal(t, gamification.XPChecklistItem+gamification.XPJobCompleted, progress.XP)

	rec = s.do(t, &s.tech, http.MethodGet, "/notifications?unread=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notes []model.Notification
	decodeData(t, rec, &notes)
	assert.NotEmpty(t, notes)

	rec = s.do(t, &s.tech, http.MethodPut, "/notifications/read-all", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnassignedTechnicianIsForbidden(t *testing.T) {
	s := newTestServer(t)
	job := s.createJob(t, time.Now().Add(time.Hour))
	stranger := testutil.Technician()

	rec := s.do(t, &stranger, http.MethodGet, "/technician/jobs/"+job.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, &s.supervisor, http.MethodGet, "/supervisor/jobs/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, &s.supervisor, http.MethodGet, "/supervisor/jobs?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClockOverHTTP(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, &s.tech, http.MethodPost, "/technician/clock/in", map[string]float64{"lat": 51.5, "lng": -0.1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var clockIn service.ClockInResult
	decodeData(t, rec, &clockIn)

	rec = s.do(t, &s.tech, http.MethodPost, "/technician/clock/in", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	path := "/technician/clock/" + clockIn.Entry.ID.String()
	rec = s.do(t, &s.tech, http.MethodPut, path+"/location", map[string]float64{"lat": 51.6, "lng": -0.2})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, &s.tech, http.MethodPut, path+"/location", map[string]float64{"lat": 123, "lng": -0.2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, &s.tech, http.MethodPut, path+"/out", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, &s.supervisor, http.MethodGet, "/supervisor/clock/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())

	rec = s.do(t, &s.tech, http.MethodPost, "/technician/jobs/"+uuid.NewString()+"/uploads", map[string]string{
		"kind": "photo", "content_type": "image/png",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSSEStreamDeliversUserEvents(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/realtime/stream?token="+s.token(t, s.tech), nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	channel := realtime.UserChannel(s.tech.UserID)
	require.Eventually(t, func() bool { return s.hub.SubscriberCount(channel) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, s.hub.SubscriberCount(realtime.ChannelJobs))

	s.createJob(t, time.Now().Add(time.Hour))

	events := make(chan string, 8)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "event: ") {
				events <- strings.TrimPrefix(line, "event: ")
			}
		}
		close(events)
	}()

	seen := map[string]bool{}
	timeout := time.After(2 * time.Second)
	for !seen[realtime.EventNotification] || !seen[realtime.EventChange] {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "stream closed early")
			seen[ev] = true
		case <-timeout:
			t.Fatalf("missing events, saw %v", seen)
		}
	}

	cancel()
	require.Eventually(t, func() bool { return s.hub.SubscriberCount(channel) == 0 }, 2*time.Second, 10*time.Millisecond)
}
