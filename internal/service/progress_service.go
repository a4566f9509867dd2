package service

import (
	"context"

	"fieldops-service/internal/gamification"
	"fieldops-service/internal/model"
)

type ProgressView struct {
	gamification.State
	XPToNextLevel int                        `json:"xp_to_next_level"`
	Unlocked      []gamification.Achievement `json:"unlocked"`
	Locked        []gamification.Achievement `json:"locked"`
}

// ProgressService exposes a technician's gamification state and ends their
// cached session.
type ProgressService struct {
	ledger *gamification.Ledger
}

func NewProgressService(ledger *gamification.Ledger) *ProgressService {
	return &ProgressService{ledger: ledger}
}

func (s *ProgressService) Get(ctx context.Context, principal model.Principal) (*ProgressView, error) {
	if !principal.IsTechnician() {
		return nil, ErrPermissionDenied
	}
	state, err := s.ledger.Get(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	view := &ProgressView{
		State:         state,
		XPToNextLevel: state.XPToNextLevel(),
		Unlocked:      []gamification.Achievement{},
		Locked:        []gamification.Achievement{},
	}
	for _, a := range s.ledger.Catalog().All() {
		if state.HasAchievement(a.ID) {
			view.Unlocked = append(view.Unlocked, a)
		} else {
			view.Locked = append(view.Locked, a)
		}
	}
	return view, nil
}

func (s *ProgressService) EndSession(principal model.Principal) {
	s.ledger.Evict(principal.UserID)
}
