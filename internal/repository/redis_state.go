package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"FXBias/internal/domain/models"
	domrepo "FXBias/internal/domain/repository"
	applogger "FXBias/pkg/logger"
)

// redisKV is the subset of *redis.Client the state store needs.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStateStore keeps the session state as one JSON document.
type RedisStateStore struct {
	cli redisKV
	key string
	l   *applogger.Logger
}

var _ domrepo.StateRepository = (*RedisStateStore)(nil)

func NewRedisStateStore(cli *redis.Client, key string, l *applogger.Logger) *RedisStateStore {
	return newRedisStateStore(cli, key, l)
}

func newRedisStateStore(cli redisKV, key string, l *applogger.Logger) *RedisStateStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &RedisStateStore{cli: cli, key: key, l: l}
}

func (s *RedisStateStore) Load(ctx context.Context) (*models.SessionState, error) {
	b, err := s.cli.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	st, err := decodeState(b)
	if err != nil {
		s.l.Error("redis state decode error", applogger.String("key", s.key), applogger.Error(err))
		return nil, err
	}
	return st, nil
}

func (s *RedisStateStore) Save(ctx context.Context, st models.SessionState) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.cli.Set(ctx, s.key, b, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	s.l.Debug("redis state saved", applogger.String("key", s.key), applogger.Int("bytes", len(b)))
	return nil
}

func decodeState(b []byte) (*models.SessionState, error) {
	st := models.NewSessionState()
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if st.AnalysisData == nil {
		st.AnalysisData = make(models.AnalysisData)
	}
	if st.HistoricalData == nil {
		st.HistoricalData = models.HistoricalData{}
	}
	return &st, nil
}
