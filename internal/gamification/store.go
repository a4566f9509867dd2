package gamification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/datatypes"

	"fieldops-service/internal/model"
	"fieldops-service/internal/repository"
)

// Store persists per-technician state. Load returns (nil, nil) when the
// technician has no saved state yet.
type Store interface {
	Load(ctx context.Context, userID uuid.UUID) (*State, error)
	Save(ctx context.Context, userID uuid.UUID, state State) error
}

type RedisStore struct {
	rdb    *goredis.Client
	prefix string
}

func NewRedisStore(rdb *goredis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "gamification:"}
}

func (s *RedisStore) key(userID uuid.UUID) string {
	return s.prefix + userID.String()
}

func (s *RedisStore) Load(ctx context.Context, userID uuid.UUID) (*State, error) {
	raw, err := s.rdb.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode gamification state: %w", err)
	}
	return &state, nil
}

func (s *RedisStore) Save(ctx context.Context, userID uuid.UUID, state State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key(userID), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

type GormStore struct {
	repo *repository.TechnicianProgressRepository
}

func NewGormStore(repo *repository.TechnicianProgressRepository) *GormStore {
	return &GormStore{repo: repo}
}

func (s *GormStore) Load(ctx context.Context, userID uuid.UUID) (*State, error) {
	progress, err := s.repo.Get(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &State{
		XP:               progress.XP,
		Level:            progress.Level,
		Streak:           progress.Streak,
		LastClockIn:      progress.LastClockIn,
		Achievements:     []string(progress.Achievements),
		JobsCompleted:    progress.JobsCompleted,
		EarlyCompletions: progress.EarlyCompletions,
	}, nil
}

func (s *GormStore) Save(ctx context.Context, userID uuid.UUID, state State) error {
	return s.repo.Upsert(ctx, &model.TechnicianProgress{
		UserID:           userID,
		XP:               state.XP,
		Level:            state.Level,
		Streak:           state.Streak,
		LastClockIn:      state.LastClockIn,
		Achievements:     datatypes.JSONSlice[string](state.Achievements),
		JobsCompleted:    state.JobsCompleted,
		EarlyCompletions: state.EarlyCompletions,
	})
}
