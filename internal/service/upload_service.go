package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"fieldops-service/internal/model"
	"fieldops-service/internal/repository"
)

type UploadKind string

const (
	UploadKindPhoto     UploadKind = "photo"
	UploadKindSignature UploadKind = "signature"
)

// URLSigner issues time-limited URLs for object storage.
type URLSigner interface {
	SignedUploadURL(ctx context.Context, key, contentType string) (string, time.Time, error)
	SignedDownloadURL(ctx context.Context, key string) (string, time.Time, error)
	ObjectURL(key string) string
	ObjectKey(objectURL string) (string, bool)
}

var uploadExtensions = map[UploadKind]map[string]string{
	UploadKindPhoto: {
		"image/jpeg": "jpg",
		"image/png":  "png",
		"image/webp": "webp",
		"image/heic": "heic",
	},
	UploadKindSignature: {
		"image/png":     "png",
		"image/svg+xml": "svg",
	},
}

type UploadTicket struct {
	UploadURL   string    `json:"upload_url"`
	ObjectURL   string    `json:"object_url"`
	ObjectKey   string    `json:"object_key"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type DownloadTicket struct {
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type UploadService struct {
	signer URLSigner
	jobs   *repository.JobRepository
}

func NewUploadService(signer URLSigner, jobs *repository.JobRepository) *UploadService {
	return &UploadService{signer: signer, jobs: jobs}
}

// RequestUpload signs a PUT URL under jobs/<job_id>/<kind>/. Only the
// assigned technician or a scheduler may upload for a job.
func (s *UploadService) RequestUpload(ctx context.Context, principal model.Principal, jobID string, kind UploadKind, contentType string) (*UploadTicket, error) {
	if s.signer == nil {
		return nil, ErrUnavailable
	}
	exts, ok := uploadExtensions[kind]
	if !ok {
		return nil, invalidInput("unknown upload kind %q", kind)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := exts[contentType]
	if !ok {
		return nil, invalidInput("content type %q is not allowed for %s uploads", contentType, kind)
	}

	job, err := s.loadJob(ctx, principal, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	key := "jobs/" + job.ID.String() + "/" + string(kind) + "/" + uuid.NewString() + "." + ext
	uploadURL, expires, err := s.signer.SignedUploadURL(ctx, key, contentType)
	if err != nil {
		return nil, err
	}

	return &UploadTicket{
		UploadURL:   uploadURL,
		ObjectURL:   s.signer.ObjectURL(key),
		ObjectKey:   key,
		ContentType: contentType,
		ExpiresAt:   expires,
	}, nil
}

// RequestDownload signs a GET URL for an object stored against the job.
func (s *UploadService) RequestDownload(ctx context.Context, principal model.Principal, jobID, objectURL string) (*DownloadTicket, error) {
	if s.signer == nil {
		return nil, ErrUnavailable
	}
	job, err := s.loadJob(ctx, principal, jobID)
	if err != nil {
		return nil, err
	}

	key, ok := s.signer.ObjectKey(strings.TrimSpace(objectURL))
	if !ok || !strings.HasPrefix(key, "jobs/"+job.ID.String()+"/") {
		return nil, invalidInput("object does not belong to this job")
	}

	downloadURL, expires, err := s.signer.SignedDownloadURL(ctx, key)
	if err != nil {
		return nil, err
	}
	return &DownloadTicket{DownloadURL: downloadURL, ExpiresAt: expires}, nil
}

func (s *UploadService) loadJob(ctx context.Context, principal model.Principal, jobID string) (*model.Job, error) {
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
	return job, nil
}
