package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore implements Store on a go-redis client. One instance is built
// at process start and shared by reference; every component receives it
// through its constructor.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// RedisOptions is the subset of client tuning the portal configures.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Timeout bounds every round trip (dial, read, write). A timed-out
	// batch must be treated as possibly partially applied.
	Timeout time.Duration
}

// NewRedisStore connects and pings the backing redis.
func NewRedisStore(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*RedisStore, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 3 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,

		PoolSize:        100,
		MinIdleConns:    10,
		PoolTimeout:     4 * time.Second,
		ConnMaxIdleTime: 5 * time.Minute,
		ConnMaxLifetime: 30 * time.Minute,

		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,

		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	logger.Info("redis connected", zap.String("addr", opts.Addr))

	return &RedisStore{client: client, logger: logger}, nil
}

// NewRedisStoreFromClient wraps an existing client, for callers that manage
// the connection themselves (scripts, pub/sub sharing).
func NewRedisStoreFromClient(client *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

// Client exposes the underlying go-redis client for collaborators that
// need primitives outside the Store surface (pub/sub, rate limiting).
func (s *RedisStore) Client() *redis.Client { return s.client }

func (s *RedisStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	args := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		args[k] = v
	}
	return s.client.HSet(ctx, key, args).Err()
}

func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.client.HGetAll(ctx, key).Result()
}

func (s *RedisStore) SAdd(ctx context.Context, key string, members ...string) error {
	return s.client.SAdd(ctx, key, toArgs(members)...).Err()
}

func (s *RedisStore) SRem(ctx context.Context, key string, members ...string) error {
	return s.client.SRem(ctx, key, toArgs(members)...).Err()
}

func (s *RedisStore) SMembers(ctx context.Context, key string) ([]string, error) {
	return s.client.SMembers(ctx, key).Result()
}

func (s *RedisStore) SCard(ctx context.Context, key string) (int64, error) {
	return s.client.SCard(ctx, key).Result()
}

func (s *RedisStore) SIsMember(ctx context.Context, key, member string) (bool, error) {
	return s.client.SIsMember(ctx, key, member).Result()
}

func (s *RedisStore) SScan(ctx context.Context, key string, cursor uint64, count int64) ([]string, uint64, error) {
	return s.client.SScan(ctx, key, cursor, "", count).Result()
}

func (s *RedisStore) ZAdd(ctx context.Context, key, member string, score float64) error {
	return s.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

func (s *RedisStore) ZRem(ctx context.Context, key string, members ...string) error {
	return s.client.ZRem(ctx, key, toArgs(members)...).Err()
}

func (s *RedisStore) ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return s.client.ZRevRange(ctx, key, start, stop).Result()
}

func (s *RedisStore) ZCard(ctx context.Context, key string) (int64, error) {
	return s.client.ZCard(ctx, key).Result()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoValue
		}
		return "", err
	}
	return val, nil
}

func (s *RedisStore) SetEX(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisStore) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	return s.client.Scan(ctx, cursor, match, count).Result()
}

func (s *RedisStore) Batch() Batch {
	return &redisBatch{pipe: s.client.Pipeline()}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if latency := time.Since(start); latency > 100*time.Millisecond {
		s.logger.Warn("redis high latency", zap.Duration("latency", latency))
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// redisBatch queues commands on a pipeline and maps each queued command to
// its outcome after Exec.
type redisBatch struct {
	pipe redis.Pipeliner
	cmds []queuedCmd
}

type queuedCmd struct {
	name string
	key  string
	cmd  redis.Cmder
}

func (b *redisBatch) HSet(key string, fields map[string]string) {
	args := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		args[k] = v
	}
	b.track("HSET", key, b.pipe.HSet(context.Background(), key, args))
}

func (b *redisBatch) SAdd(key string, members ...string) {
	b.track("SADD", key, b.pipe.SAdd(context.Background(), key, toArgs(members)...))
}

func (b *redisBatch) SRem(key string, members ...string) {
	b.track("SREM", key, b.pipe.SRem(context.Background(), key, toArgs(members)...))
}

func (b *redisBatch) ZAdd(key, member string, score float64) {
	b.track("ZADD", key, b.pipe.ZAdd(context.Background(), key, redis.Z{Score: score, Member: member}))
}

func (b *redisBatch) ZRem(key string, members ...string) {
	b.track("ZREM", key, b.pipe.ZRem(context.Background(), key, toArgs(members)...))
}

func (b *redisBatch) SetEX(key, value string, ttl time.Duration) {
	b.track("SET", key, b.pipe.Set(context.Background(), key, value, ttl))
}

func (b *redisBatch) Del(keys ...string) {
	for _, key := range keys {
		b.track("DEL", key, b.pipe.Del(context.Background(), key))
	}
}

func (b *redisBatch) track(name, key string, cmd redis.Cmder) {
	b.cmds = append(b.cmds, queuedCmd{name: name, key: key, cmd: cmd})
}

func (b *redisBatch) Len() int { return len(b.cmds) }

func (b *redisBatch) Exec(ctx context.Context) (BatchResult, error) {
	if len(b.cmds) == 0 {
		return BatchResult{}, nil
	}
	// Exec returns the first command error as well; the per-command
	// outcomes below already carry it, so only transport-level failures
	// propagate from here.
	if _, err := b.pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		if allUnanswered(b.cmds) {
			return BatchResult{}, fmt.Errorf("batch exec: %w", err)
		}
	}
	res := BatchResult{Outcomes: make([]CommandOutcome, 0, len(b.cmds))}
	for _, q := range b.cmds {
		err := q.cmd.Err()
		if errors.Is(err, redis.Nil) {
			err = nil
		}
		res.Outcomes = append(res.Outcomes, CommandOutcome{Name: q.name, Key: q.key, Err: err})
	}
	return res, nil
}

func allUnanswered(cmds []queuedCmd) bool {
	for _, q := range cmds {
		if q.cmd.Err() == nil {
			return false
		}
	}
	return true
}

func toArgs(members []string) []interface{} {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return args
}
