package gamification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldops-service/internal/model"
)

type memoryStore struct {
	mu      sync.Mutex
	states  map[uuid.UUID]State
	loads   int
	saveErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{states: make(map[uuid.UUID]State)}
}

func (m *memoryStore) Load(_ context.Context, userID uuid.UUID) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	s, ok := m.states[userID]
	if !ok {
		return nil, nil
	}
	cp := s.clone()
	return &cp, nil
}

func (m *memoryStore) Save(_ context.Context, userID uuid.UUID, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.states[userID] = state.clone()
	return nil
}

func newTestLedger(t *testing.T, store Store, now func() time.Time) *Ledger {
	t.Helper()
	catalog, err := DefaultCatalog()
	require.NoError(t, err)
	return NewLedger(store, catalog, time.UTC, zerolog.Nop(), WithClock(now))
}

func TestLedgerEarlyCompletionUnlocksSpeedDemonOnce(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t, newMemoryStore(), time.Now)
	tech := uuid.New()

	unlocks := map[string]int{}
	for i := 1; i <= 7; i++ {
		res, err := ledger.RecordJobCompletion(ctx, tech, true)
		require.NoError(t, err)
		assert.Equal(t, XPJobCompleted+XPEarlyCompletion, res.XPAwarded)
		assert.Equal(t, i, res.State.EarlyCompletions)
		for _, a := range res.Unlocked {
			unlocks[a.ID]++
		}
		if i == SpeedDemonThreshold {
			require.NotEmpty(t, res.Unlocked)
			assert.Equal(t, AchievementSpeedDemon, res.Unlocked[len(res.Unlocked)-1].ID)
		}
	}

	assert.Equal(t, 1, unlocks[AchievementSpeedDemon])
	assert.Equal(t, 1, unlocks[AchievementFirstJob])

	state, err := ledger.Get(ctx, tech)
	require.NoError(t, err)
	assert.Equal(t, 7, state.JobsCompleted)
	assert.True(t, state.HasAchievement(AchievementSpeedDemon))
}

func TestLedgerLateCompletionHasNoBonus(t *testing.T) {
	ledger := newTestLedger(t, newMemoryStore(), time.Now)

	res, err := ledger.RecordJobCompletion(context.Background(), uuid.New(), false)
	require.NoError(t, err)
	assert.Equal(t, XPJobCompleted, res.XPAwarded)
	assert.Equal(t, 0, res.State.EarlyCompletions)
	assert.Equal(t, 1, res.State.JobsCompleted)
}

func TestLedgerJobMaster(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t, newMemoryStore(), time.Now)
	tech := uuid.New()

	var unlockedAt int
	for i := 1; i <= JobMasterThreshold+2; i++ {
		res, err := ledger.RecordJobCompletion(ctx, tech, false)
		require.NoError(t, err)
		for _, a := range res.Unlocked {
			if a.ID == AchievementJobMaster {
				require.Zero(t, unlockedAt, "job_master unlocked twice")
				unlockedAt = i
			}
		}
	}
	assert.Equal(t, JobMasterThreshold, unlockedAt)
}

func TestLedgerClockInStreak(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	ledger := newTestLedger(t, newMemoryStore(), func() time.Time { return day })
	tech := uuid.New()

	res, err := ledger.RecordClockIn(ctx, tech)
	require.NoError(t, err)
	assert.Equal(t, 1, res.State.Streak)
	assert.Equal(t, XPClockIn, res.XPAwarded)

	res, err = ledger.RecordClockIn(ctx, tech)
	require.NoError(t, err)
	assert.Equal(t, 1, res.State.Streak)
	assert.Zero(t, res.XPAwarded)

	var onFire int
	for i := 0; i < 5; i++ {
		day = day.AddDate(0, 0, 1)
		res, err = ledger.RecordClockIn(ctx, tech)
		require.NoError(t, err)
		for _, a := range res.Unlocked {
			if a.ID == AchievementOnFire {
				onFire++
				assert.Equal(t, StreakThreshold, res.State.Streak)
			}
		}
	}
	assert.Equal(t, 6, res.State.Streak)
	assert.Equal(t, 1, onFire)

	day = day.AddDate(0, 0, 3)
	res, err = ledger.RecordClockIn(ctx, tech)
	require.NoError(t, err)
	assert.Equal(t, 1, res.State.Streak)
	assert.True(t, res.State.HasAchievement(AchievementOnFire))
}

func TestLedgerChecklistProgress(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t, newMemoryStore(), time.Now)
	tech := uuid.New()

	prev := model.Checklist{{Text: "a"}, {Text: "b"}, {Text: "c"}}
	next := model.Checklist{{Text: "a", Completed: true}, {Text: "b", Completed: true}, {Text: "c"}}

	res, err := ledger.RecordChecklistProgress(ctx, tech, prev, next)
	require.NoError(t, err)
	assert.Equal(t, 2*XPChecklistItem, res.XPAwarded)

	res, err = ledger.RecordChecklistProgress(ctx, tech, next, prev)
	require.NoError(t, err)
	assert.Zero(t, res.XPAwarded)
	assert.Equal(t, 2*XPChecklistItem, res.State.XP)
}

func TestLedgerPersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	ledger := newTestLedger(t, store, time.Now)
	tech := uuid.New()

	_, err := ledger.AwardXP(ctx, tech, 90)
	require.NoError(t, err)
	_, err = ledger.AwardXP(ctx, tech, 30)
	require.NoError(t, err)
	assert.Equal(t, 2, store.loads)

	ledger.Evict(tech)
	state, err := ledger.Get(ctx, tech)
	require.NoError(t, err)
	assert.Equal(t, 3, store.loads)
	assert.Equal(t, 2, state.Level)
	assert.Equal(t, 20, state.XP)
}

func TestLedgersSharingStoreKeepEachOthersWrites(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	first := newTestLedger(t, store, time.Now)
	second := newTestLedger(t, store, time.Now)
	tech := uuid.New()

	_, err := first.AwardXP(ctx, tech, 10)
	require.NoError(t, err)
	_, err = second.AwardXP(ctx, tech, 50)
	require.NoError(t, err)
	res, err := first.AwardXP(ctx, tech, 5)
	require.NoError(t, err)
	assert.Equal(t, 65, res.State.XP)

	state, err := second.Get(ctx, tech)
	require.NoError(t, err)
	assert.Equal(t, 65, state.XP)
	assert.Equal(t, 1, state.Level)
}

func TestLedgerReleasesIdleEntries(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t, newMemoryStore(), time.Now)

	for i := 0; i < 50; i++ {
		_, err := ledger.AwardXP(ctx, uuid.New(), 5)
		require.NoError(t, err)
	}

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	assert.Empty(t, ledger.entries)
}

func TestLedgerSaveFailureKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	ledger := newTestLedger(t, store, time.Now)
	tech := uuid.New()

	_, err := ledger.AwardXP(ctx, tech, 40)
	require.NoError(t, err)

	store.saveErr = errors.New("unavailable")
	_, err = ledger.AwardXP(ctx, tech, 40)
	require.Error(t, err)

	state, err := ledger.Get(ctx, tech)
	require.NoError(t, err)
	assert.Equal(t, 40, state.XP)
}

func TestLedgerConcurrentAwardsAreSerialized(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t, newMemoryStore(), time.Now)
	tech := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = ledger.AwardXP(ctx, tech, 5)
		}()
	}
	wg.Wait()

	state, err := ledger.Get(ctx, tech)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Level)
	assert.Equal(t, 0, state.XP)
}

func TestLedgerRejectsBadInput(t *testing.T) {
	ledger := newTestLedger(t, newMemoryStore(), time.Now)

	_, err := ledger.AwardXP(context.Background(), uuid.New(), 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ledger.Unlock(context.Background(), uuid.New(), "nope")
	assert.ErrorIs(t, err, ErrUnknownAchievement)
}
