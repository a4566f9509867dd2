package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"fieldops-service/internal/repository"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSignatureRequired = errors.New("signature required")
	ErrUnavailable       = errors.New("service unavailable")
)

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, invalidInput("%s must be a uuid", field)
	}
	return id, nil
}

func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case repository.IsNotFound(err):
		return ErrNotFound
	case errors.Is(err, repository.ErrStaleRecord):
		return ErrConflict
	case repository.IsUniqueViolation(err):
		return ErrConflict
	default:
		return err
	}
}
