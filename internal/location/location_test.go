package location

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sourceFunc func(ctx context.Context) (Fix, error)

func (f sourceFunc) Current(ctx context.Context) (Fix, error) { return f(ctx) }

func TestAcquireTimeout(t *testing.T) {
	blocking := sourceFunc(func(ctx context.Context) (Fix, error) {
		<-ctx.Done()
		return Fix{}, ctx.Err()
	})

	start := time.Now()
	_, err := Acquire(context.Background(), blocking, 20*time.Millisecond)
	require.ErrorIs(t, err, ErrLocationUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestAcquireWrapsSourceErrors(t *testing.T) {
	failing := sourceFunc(func(context.Context) (Fix, error) {
		return Fix{}, errors.New("no satellites")
	})
	_, err := Acquire(context.Background(), failing, time.Second)
	require.ErrorIs(t, err, ErrLocationUnavailable)

	bogus := sourceFunc(func(context.Context) (Fix, error) {
		return Fix{Lat: 123, Lng: 0}, nil
	})
	_, err = Acquire(context.Background(), bogus, time.Second)
	require.ErrorIs(t, err, ErrLocationUnavailable)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fix.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"lat":52.52,"lng":13.405,"accuracy":8}`), 0o600))

	fix, err := Acquire(context.Background(), NewFileSource(path), time.Second)
	require.NoError(t, err)
	assert.InDelta(t, 52.52, fix.Lat, 1e-9)
	assert.InDelta(t, 13.405, fix.Lng, 1e-9)
	assert.False(t, fix.RecordedAt.IsZero())

	_, err = Acquire(context.Background(), NewFileSource(filepath.Join(t.TempDir(), "missing.json")), time.Second)
	require.ErrorIs(t, err, ErrLocationUnavailable)
}

func TestValidateCoordinates(t *testing.T) {
	assert.NoError(t, ValidateCoordinates(-90, 180))
	assert.ErrorIs(t, ValidateCoordinates(91, 0), ErrInvalidCoordinates)
	assert.ErrorIs(t, ValidateCoordinates(0, -181), ErrInvalidCoordinates)
}

func TestTrackerTicksDoNotWaitForSlowPushes(t *testing.T) {
	src := sourceFunc(func(context.Context) (Fix, error) {
		return Fix{Lat: 1, Lng: 2}, nil
	})

	var started, inFlight, maxInFlight int32
	sink := func(ctx context.Context, fix Fix) error {
		atomic.AddInt32(&started, 1)
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(60 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	NewTracker(src, sink, 10*time.Millisecond, time.Second, zerolog.Nop()).Run(ctx)

	assert.GreaterOrEqual(t, atomic.LoadInt32(&started), int32(3))
	assert.Greater(t, atomic.LoadInt32(&maxInFlight), int32(1))
	assert.Zero(t, atomic.LoadInt32(&inFlight))
}
