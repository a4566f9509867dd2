package gamification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fieldops-service/internal/model"
	"fieldops-service/internal/utils"
)

var (
	ErrInvalidAmount      = errors.New("xp amount must be positive")
	ErrUnknownAchievement = errors.New("unknown achievement")
)

// Result describes what a single ledger mutation changed.
type Result struct {
	State     State         `json:"state"`
	XPAwarded int           `json:"xp_awarded"`
	LeveledUp bool          `json:"leveled_up"`
	Unlocked  []Achievement `json:"unlocked,omitempty"`
}

// Rewarding reports whether the mutation produced something worth telling
// the technician about.
func (r Result) Rewarding() bool {
	return r.LeveledUp || len(r.Unlocked) > 0
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// Ledger reads technician state from a Store and writes it back after every
// mutation. Mutations for one technician are serialized inside this process
// only; each one starts from the stored state, so writes from other
// instances are only lost when they overlap in flight.
type Ledger struct {
	store   Store
	catalog *Catalog
	loc     *time.Location
	now     func() time.Time
	log     zerolog.Logger

	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func NewLedger(store Store, catalog *Catalog, loc *time.Location, log zerolog.Logger, opts ...Option) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	l := &Ledger{
		store:   store,
		catalog: catalog,
		loc:     loc,
		now:     time.Now,
		log:     log,
		entries: make(map[uuid.UUID]*entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) Catalog() *Catalog {
	return l.catalog
}

// lock serializes work for one technician. Entries live only while someone
// holds or waits for them.
func (l *Ledger) lock(userID uuid.UUID) func() {
	l.mu.Lock()
	e, ok := l.entries[userID]
	if !ok {
		e = &entry{}
		l.entries[userID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 && l.entries[userID] == e {
			delete(l.entries, userID)
		}
		l.mu.Unlock()
	}
}

func (l *Ledger) load(ctx context.Context, userID uuid.UUID) (State, error) {
	stored, err := l.store.Load(ctx, userID)
	if err != nil {
		return State{}, fmt.Errorf("load gamification state: %w", err)
	}
	if stored == nil {
		return NewState(), nil
	}
	state := stored.clone()
	state.normalize()
	return state, nil
}

func (l *Ledger) Get(ctx context.Context, userID uuid.UUID) (State, error) {
	unlock := l.lock(userID)
	defer unlock()
	return l.load(ctx, userID)
}

// mutate applies fn to the stored state and persists the result.
func (l *Ledger) mutate(ctx context.Context, userID uuid.UUID, fn func(s *State, res *Result)) (Result, error) {
	unlock := l.lock(userID)
	defer unlock()

	next, err := l.load(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	var res Result
	fn(&next, &res)

	if err := l.store.Save(ctx, userID, next); err != nil {
		return Result{}, fmt.Errorf("save gamification state: %w", err)
	}
	res.State = next.clone()

	if res.Rewarding() {
		l.log.Info().
			Str("user_id", userID.String()).
			Int("level", next.Level).
			Int("unlocked", len(res.Unlocked)).
			Msg("technician reward")
	}
	return res, nil
}

func (l *Ledger) award(s *State, res *Result, amount int) {
	if amount <= 0 {
		return
	}
	res.XPAwarded += amount
	if s.AwardXP(amount) {
		res.LeveledUp = true
	}
}

func (l *Ledger) unlock(s *State, res *Result, id string) {
	if !s.Unlock(id) {
		return
	}
	a, ok := l.catalog.Get(id)
	if !ok {
		a = Achievement{ID: id, Title: id}
	}
	res.Unlocked = append(res.Unlocked, a)
}

func (l *Ledger) AwardXP(ctx context.Context, userID uuid.UUID, amount int) (Result, error) {
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	return l.mutate(ctx, userID, func(s *State, res *Result) {
		l.award(s, res, amount)
	})
}

// RecordClockIn updates the daily streak and awards clock-in XP once per
// calendar day.
func (l *Ledger) RecordClockIn(ctx context.Context, userID uuid.UUID) (Result, error) {
	now := l.now()
	today := utils.CalendarDay(now, l.loc)
	yesterday := utils.PreviousCalendarDay(now, l.loc)

	return l.mutate(ctx, userID, func(s *State, res *Result) {
		change := s.UpdateStreak(today, yesterday)
		if change == StreakUnchanged {
			return
		}
		l.award(s, res, XPClockIn)
		if change == StreakIncremented && s.Streak >= StreakThreshold {
			l.unlock(s, res, AchievementOnFire)
		}
	})
}

func (l *Ledger) RecordJobCompletion(ctx context.Context, userID uuid.UUID, early bool) (Result, error) {
	return l.mutate(ctx, userID, func(s *State, res *Result) {
		s.JobsCompleted++
		amount := XPJobCompleted
		if early {
			s.EarlyCompletions++
			amount += XPEarlyCompletion
		}
		l.award(s, res, amount)

		if s.JobsCompleted >= 1 {
			l.unlock(s, res, AchievementFirstJob)
		}
		if s.JobsCompleted >= JobMasterThreshold {
			l.unlock(s, res, AchievementJobMaster)
		}
		if s.EarlyCompletions >= SpeedDemonThreshold {
			l.unlock(s, res, AchievementSpeedDemon)
		}
	})
}

// RecordChecklistProgress awards XP for each work-progress item completed
// between prev and next. Unchecking items never takes XP away.
func (l *Ledger) RecordChecklistProgress(ctx context.Context, userID uuid.UUID, prev, next model.Checklist) (Result, error) {
	gained := next.CompletedCount() - prev.CompletedCount()
	if gained <= 0 {
		state, err := l.Get(ctx, userID)
		return Result{State: state}, err
	}
	return l.mutate(ctx, userID, func(s *State, res *Result) {
		l.award(s, res, gained*XPChecklistItem)
	})
}

func (l *Ledger) Unlock(ctx context.Context, userID uuid.UUID, achievementID string) (Result, error) {
	if _, ok := l.catalog.Get(achievementID); !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownAchievement, achievementID)
	}
	return l.mutate(ctx, userID, func(s *State, res *Result) {
		l.unlock(s, res, achievementID)
	})
}

// Evict tears down the technician's session. State is never held between
// calls, so only an idle lock entry can remain to be dropped.
func (l *Ledger) Evict(userID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[userID]; ok && e.refs == 0 {
		delete(l.entries, userID)
	}
}
