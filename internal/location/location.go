package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"
)

var (
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

type Fix struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Accuracy   float64   `json:"accuracy,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinates, lat)
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinates, lng)
	}
	return nil
}

type Source interface {
	Current(ctx context.Context) (Fix, error)
}

// FileSource reads the latest fix that the device GPS daemon writes as JSON.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Current(ctx context.Context) (Fix, error) {
	if err := ctx.Err(); err != nil {
		return Fix{}, err
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return Fix{}, fmt.Errorf("read fix file: %w", err)
	}
	var fix Fix
	if err := json.Unmarshal(raw, &fix); err != nil {
		return Fix{}, fmt.Errorf("decode fix file: %w", err)
	}
	return fix, nil
}

// Acquire asks the source for a fix and gives up after timeout. Every failure
// is reported as ErrLocationUnavailable.
func Acquire(ctx context.Context, src Source, timeout time.Duration) (Fix, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		fix Fix
		err error
	}
	done := make(chan result, 1)
	go func() {
		fix, err := src.Current(ctx)
		done <- result{fix: fix, err: err}
	}()

	select {
	case <-ctx.Done():
		return Fix{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return Fix{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, r.err)
		}
		if err := ValidateCoordinates(r.fix.Lat, r.fix.Lng); err != nil {
			return Fix{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
		}
		if r.fix.RecordedAt.IsZero() {
			r.fix.RecordedAt = time.Now().UTC()
		}
		return r.fix, nil
	}
}
