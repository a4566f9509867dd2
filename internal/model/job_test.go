package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusTransitions(t *testing.T) {
	legal := map[JobStatus][]JobStatus{
		JobStatusPending:    {JobStatusInProgress, JobStatusCancelled},
		JobStatusInProgress: {JobStatusCompleted, JobStatusCancelled},
	}
	all := []JobStatus{JobStatusPending, JobStatusInProgress, JobStatusCompleted, JobStatusCancelled}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, allowed := range legal[from] {
				if allowed == to {
					want = true
				}
			}
			assert.Equalf(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusInProgress.IsTerminal())
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusCancelled.IsTerminal())
}

func TestJobIsEarlyCompletion(t *testing.T) {
	end := time.Date(2026, 5, 4, 17, 0, 0, 0, time.UTC)
	job := &Job{ScheduledEnd: end}

	assert.True(t, job.IsEarlyCompletion(end.Add(-time.Minute)))
	assert.False(t, job.IsEarlyCompletion(end))
	assert.False(t, job.IsEarlyCompletion(end.Add(time.Second)))
}

func TestClockEntryTotalHours(t *testing.T) {
	in := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	out := in.Add(8*time.Hour + 30*time.Minute)
	breakStart := in.Add(4 * time.Hour)
	breakEnd := breakStart.Add(30 * time.Minute)

	entry := &ClockEntry{ClockIn: in}
	assert.Nil(t, entry.ComputeTotalHours())

	entry.ClockOut = &out
	entry.BreakStart = &breakStart
	entry.BreakEnd = &breakEnd
	hours := entry.ComputeTotalHours()
	if assert.NotNil(t, hours) {
		assert.Equal(t, 8.0, *hours)
	}
}

func TestClockEntryOpenBreakCountsUntilClockOut(t *testing.T) {
	in := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	out := in.Add(2 * time.Hour)
	breakStart := in.Add(time.Hour)

	entry := &ClockEntry{ClockIn: in, ClockOut: &out, BreakStart: &breakStart}
	hours := entry.ComputeTotalHours()
	if assert.NotNil(t, hours) {
		assert.Equal(t, 1.0, *hours)
	}
}
