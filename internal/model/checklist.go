package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInvalidChecklist = errors.New("invalid checklist")

type ChecklistKind string

const (
	ChecklistKindSafety       ChecklistKind = "safety"
	ChecklistKindMaterials    ChecklistKind = "materials"
	ChecklistKindWorkProgress ChecklistKind = "work_progress"
)

func (k ChecklistKind) Valid() bool {
	switch k {
	case ChecklistKindSafety, ChecklistKindMaterials, ChecklistKindWorkProgress:
		return true
	default:
		return false
	}
}

type ChecklistItem struct {
	Text      string   `json:"item"`
	Completed bool     `json:"completed"`
	Quantity  *float64 `json:"quantity,omitempty"`
}

type Checklist []ChecklistItem

type ChecklistProgress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

func (c Checklist) CompletedCount() int {
	n := 0
	for _, item := range c {
		if item.Completed {
			n++
		}
	}
	return n
}

// Progress is total for every input; an empty checklist is 0%.
func (c Checklist) Progress() ChecklistProgress {
	p := ChecklistProgress{
		Completed: c.CompletedCount(),
		Total:     len(c),
	}
	if p.Total > 0 {
		p.Percent = int(math.Round(100 * float64(p.Completed) / float64(p.Total)))
	}
	return p
}

// Toggle returns a copy of the checklist with the item at index flipped.
func (c Checklist) Toggle(index int) (Checklist, error) {
	if index < 0 || index >= len(c) {
		return nil, fmt.Errorf("%w: item index %d out of range", ErrInvalidChecklist, index)
	}
	out := make(Checklist, len(c))
	copy(out, c)
	out[index].Completed = !out[index].Completed
	return out, nil
}

func (c Checklist) Validate() error {
	for i, item := range c {
		if strings.TrimSpace(item.Text) == "" {
			return fmt.Errorf("%w: item %d has no text", ErrInvalidChecklist, i)
		}
		if item.Quantity == nil {
			continue
		}
		if q := *item.Quantity; math.IsNaN(q) || math.IsInf(q, 0) {
			return fmt.Errorf("%w: item %d has a non-finite quantity", ErrInvalidChecklist, i)
		}
		if *item.Quantity < 0 {
			return fmt.Errorf("%w: item %d has a negative quantity", ErrInvalidChecklist, i)
		}
	}
	return nil
}
