package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(done ...bool) Checklist {
	out := make(Checklist, 0, len(done))
	for _, d := range done {
		out = append(out, ChecklistItem{Text: "step", Completed: d})
	}
	return out
}

func TestChecklistProgress(t *testing.T) {
	cases := []struct {
		name string
		list Checklist
		want ChecklistProgress
	}{
		{"empty", nil, ChecklistProgress{Completed: 0, Total: 0, Percent: 0}},
		{"one of three", items(true, false, false), ChecklistProgress{Completed: 1, Total: 3, Percent: 33}},
		{"two of three rounds up", items(true, true, false), ChecklistProgress{Completed: 2, Total: 3, Percent: 67}},
		{"half", items(true, false), ChecklistProgress{Completed: 1, Total: 2, Percent: 50}},
		{"one of eight rounds half up", items(true, false, false, false, false, false, false, false), ChecklistProgress{Completed: 1, Total: 8, Percent: 13}},
		{"all", items(true, true, true, true), ChecklistProgress{Completed: 4, Total: 4, Percent: 100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.list.Progress())
		})
	}
}

func TestChecklistToggleReturnsCopy(t *testing.T) {
	original := items(false, false)

	toggled, err := original.Toggle(1)
	require.NoError(t, err)

	assert.False(t, original[1].Completed)
	assert.True(t, toggled[1].Completed)
	assert.Equal(t, 50, toggled.Progress().Percent)

	back, err := toggled.Toggle(1)
	require.NoError(t, err)
	assert.Equal(t, 0, back.Progress().Percent)
}

func TestChecklistToggleOutOfRange(t *testing.T) {
	_, err := items(true).Toggle(3)
	assert.ErrorIs(t, err, ErrInvalidChecklist)

	_, err = Checklist(nil).Toggle(0)
	assert.ErrorIs(t, err, ErrInvalidChecklist)
}

func TestChecklistValidate(t *testing.T) {
	negative := -1.0
	two := 2.0

	assert.NoError(t, Checklist{{Text: "Pipe", Quantity: &two}}.Validate())
	assert.ErrorIs(t, Checklist{{Text: "  "}}.Validate(), ErrInvalidChecklist)
	assert.ErrorIs(t, Checklist{{Text: "Pipe", Quantity: &negative}}.Validate(), ErrInvalidChecklist)
	for _, q := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		quantity := q
		assert.ErrorIs(t, Checklist{{Text: "Pipe", Quantity: &quantity}}.Validate(), ErrInvalidChecklist)
	}
}

func TestJobSetChecklistKeepsPercentInSync(t *testing.T) {
	job := &Job{}

	require.NoError(t, job.SetChecklist(ChecklistKindWorkProgress, items(true, false, false)))
	assert.Equal(t, 33, job.WorkProgressCompletion)
	assert.Equal(t, 1, job.Checklist(ChecklistKindWorkProgress).CompletedCount())

	require.NoError(t, job.SetChecklist(ChecklistKindSafety, nil))
	assert.Equal(t, 0, job.SafetyCompletion)

	assert.ErrorIs(t, job.SetChecklist("bogus", nil), ErrInvalidChecklist)
}
