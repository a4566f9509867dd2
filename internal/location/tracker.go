package location

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sink receives every acquired fix.
type Sink func(ctx context.Context, fix Fix) error

// Tracker acquires and pushes a fix on every tick. Ticks do not wait for the
// previous push, so slow pushes may overlap.
type Tracker struct {
	source   Source
	sink     Sink
	interval time.Duration
	timeout  time.Duration
	log      zerolog.Logger
}

func NewTracker(source Source, sink Sink, interval, timeout time.Duration, log zerolog.Logger) *Tracker {
	return &Tracker{
		source:   source,
		sink:     sink,
		interval: interval,
		timeout:  timeout,
		log:      log.With().Str("component", "location_tracker").Logger(),
	}
}

// Run ticks until ctx is cancelled, then waits for in-flight pushes.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	t.spawn(ctx, &wg)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.spawn(ctx, &wg)
		}
	}
}

func (t *Tracker) spawn(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		t.tick(ctx)
	}()
}

func (t *Tracker) tick(ctx context.Context) {
	fix, err := Acquire(ctx, t.source, t.timeout)
	if err != nil {
		t.log.Warn().Err(err).Msg("location refresh skipped")
		return
	}
	if err := t.sink(ctx, fix); err != nil {
		t.log.Warn().Err(err).Msg("location push failed")
		return
	}
	t.log.Debug().Float64("lat", fix.Lat).Float64("lng", fix.Lng).Msg("location pushed")
}
