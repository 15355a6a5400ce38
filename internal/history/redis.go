package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rotisserie/eris"

	"github.com/sells-group/diabetes-risk/internal/config"
	"github.com/sells-group/diabetes-risk/internal/model"
)

const redisKeyPrefix = "diabetes-risk:history:"

// RedisKey is the list key holding a session's history.
func RedisKey(session string) string {
	return redisKeyPrefix + session
}

// RedisBackend keeps each session's history in a Redis list of JSON records.
// With a TTL, a session's history expires after that long without writes;
// expiry is the driver's session teardown. A zero TTL never expires keys.
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis backend. The connection is checked in Migrate.
func NewRedis(cfg config.RedisConfig) (*RedisBackend, error) {
	if cfg.Addr == "" {
		return nil, eris.New("redis: addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisFromClient(client, time.Duration(cfg.TTLHours)*time.Hour), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, ttl: ttl}
}

// Migrate only verifies connectivity; lists need no schema.
func (b *RedisBackend) Migrate(ctx context.Context) error {
	return eris.Wrap(b.client.Ping(ctx).Err(), "redis: ping")
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func (b *RedisBackend) Drop(string) {}

func (b *RedisBackend) Session(id string) Store {
	return &redisStore{client: b.client, key: RedisKey(id), ttl: b.ttl}
}

type redisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func encodeRecord(rec model.AssessmentRecord) ([]byte, error) {
	rec.CreatedAt = rec.CreatedAt.UTC()
	data, err := json.Marshal(rec)
	return data, eris.Wrap(err, "redis: marshal record")
}

func decodeRecord(data string) (model.AssessmentRecord, error) {
	var rec model.AssessmentRecord
	err := json.Unmarshal([]byte(data), &rec)
	return rec, eris.Wrap(err, "redis: unmarshal record")
}

func (s *redisStore) Append(ctx context.Context, rec model.AssessmentRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return s.push(ctx, data)
}

func (s *redisStore) AppendAll(ctx context.Context, recs []model.AssessmentRecord) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	values := make([]any, 0, len(recs))
	for _, rec := range recs {
		data, err := encodeRecord(rec)
		if err != nil {
			return 0, err
		}
		values = append(values, data)
	}
	if err := s.push(ctx, values...); err != nil {
		return 0, err
	}
	return len(recs), nil
}

func (s *redisStore) push(ctx context.Context, values ...any) error {
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key, values...)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return eris.Wrapf(err, "redis: append to %s", s.key)
}

func (s *redisStore) List(ctx context.Context) ([]model.AssessmentRecord, error) {
	items, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, eris.Wrapf(err, "redis: list %s", s.key)
	}

	out := make([]model.AssessmentRecord, 0, len(items))
	for _, item := range items {
		rec, err := decodeRecord(item)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *redisStore) Clear(ctx context.Context) error {
	return eris.Wrapf(s.client.Del(ctx, s.key).Err(), "redis: clear %s", s.key)
}
