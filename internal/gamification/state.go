package gamification

// Award amounts and thresholds.
const (
	XPJobCompleted      = 50
	XPEarlyCompletion   = 25
	XPClockIn           = 10
	XPChecklistItem     = 5
	JobMasterThreshold  = 20
	SpeedDemonThreshold = 5
	StreakThreshold     = 5
)

type State struct {
	XP               int      `json:"xp"`
	Level            int      `json:"level"`
	Streak           int      `json:"streak"`
	LastClockIn      string   `json:"lastClockIn"`
	Achievements     []string `json:"achievements"`
	JobsCompleted    int      `json:"jobsCompleted"`
	EarlyCompletions int      `json:"earlyCompletions"`
}

func NewState() State {
	return State{Level: 1, Achievements: []string{}}
}

func (s State) XPToNextLevel() int {
	return s.Level * 100
}

// AwardXP adds amount and levels up at most once, carrying the overflow. An
// award big enough to cross several thresholds still yields a single level.
func (s *State) AwardXP(amount int) (leveledUp bool) {
	if amount <= 0 {
		return false
	}
	s.XP += amount
	threshold := s.XPToNextLevel()
	if s.XP >= threshold {
		s.XP -= threshold
		s.Level++
		return true
	}
	return false
}

type StreakChange int

const (
	StreakUnchanged StreakChange = iota
	StreakIncremented
	StreakReset
)

// UpdateStreak compares calendar-day strings, not elapsed durations.
func (s *State) UpdateStreak(today, yesterday string) StreakChange {
	switch s.LastClockIn {
	case today:
		return StreakUnchanged
	case yesterday:
		s.Streak++
		s.LastClockIn = today
		return StreakIncremented
	default:
		s.Streak = 1
		s.LastClockIn = today
		return StreakReset
	}
}

func (s State) HasAchievement(id string) bool {
	for _, a := range s.Achievements {
		if a == id {
			return true
		}
	}
	return false
}

// Unlock returns false when the achievement was already unlocked.
func (s *State) Unlock(id string) bool {
	if s.HasAchievement(id) {
		return false
	}
	s.Achievements = append(s.Achievements, id)
	return true
}

func (s State) clone() State {
	out := s
	out.Achievements = append([]string{}, s.Achievements...)
	return out
}

func (s *State) normalize() {
	if s.Level < 1 {
		s.Level = 1
	}
	if s.XP < 0 {
		s.XP = 0
	}
	if s.Achievements == nil {
		s.Achievements = []string{}
	}
}
