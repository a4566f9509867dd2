package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwardXP(t *testing.T) {
	cases := []struct {
		name      string
		level     int
		xp        int
		amount    int
		wantLevel int
		wantXP    int
		leveledUp bool
	}{
		{name: "below threshold", level: 1, xp: 80, amount: 15, wantLevel: 1, wantXP: 95},
		{name: "crosses threshold", level: 1, xp: 90, amount: 30, wantLevel: 2, wantXP: 20, leveledUp: true},
		{name: "exact threshold", level: 2, xp: 150, amount: 50, wantLevel: 3, wantXP: 0, leveledUp: true},
		{name: "single step only", level: 1, xp: 10, amount: 500, wantLevel: 2, wantXP: 410, leveledUp: true},
		{name: "non-positive ignored", level: 3, xp: 40, amount: 0, wantLevel: 3, wantXP: 40},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := State{Level: tc.level, XP: tc.xp}
			assert.Equal(t, tc.leveledUp, s.AwardXP(tc.amount))
			assert.Equal(t, tc.wantLevel, s.Level)
			assert.Equal(t, tc.wantXP, s.XP)
		})
	}
}

func TestXPToNextLevel(t *testing.T) {
	assert.Equal(t, 100, NewState().XPToNextLevel())
	assert.Equal(t, 400, State{Level: 4}.XPToNextLevel())
}

func TestUpdateStreak(t *testing.T) {
	s := NewState()
	assert.Equal(t, StreakReset, s.UpdateStreak("2024-03-01", "2024-02-29"))
	assert.Equal(t, 1, s.Streak)

	assert.Equal(t, StreakUnchanged, s.UpdateStreak("2024-03-01", "2024-02-29"))
	assert.Equal(t, 1, s.Streak)

	assert.Equal(t, StreakIncremented, s.UpdateStreak("2024-03-02", "2024-03-01"))
	assert.Equal(t, 2, s.Streak)
	assert.Equal(t, "2024-03-02", s.LastClockIn)

	assert.Equal(t, StreakReset, s.UpdateStreak("2024-03-05", "2024-03-04"))
	assert.Equal(t, 1, s.Streak)
}

func TestUnlockIsMonotonic(t *testing.T) {
	s := NewState()
	require.True(t, s.Unlock(AchievementFirstJob))
	require.False(t, s.Unlock(AchievementFirstJob))
	assert.Equal(t, []string{AchievementFirstJob}, s.Achievements)
}

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	for _, id := range []string{AchievementFirstJob, AchievementJobMaster, AchievementSpeedDemon, AchievementOnFire} {
		a, ok := c.Get(id)
		require.True(t, ok, id)
		assert.NotEmpty(t, a.Title)
	}
	assert.Len(t, c.All(), 4)
}

func TestParseCatalogRejectsDuplicates(t *testing.T) {
	_, err := ParseCatalog([]byte("achievements:\n  - id: a\n  - id: a\n"))
	require.Error(t, err)
}
