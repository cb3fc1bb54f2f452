package store

import (
	"context"
	"errors"
	"time"
)

// ErrNoValue is returned by Get when a string location holds nothing.
// The redis implementation maps redis.Nil onto it so callers never
// import the client package to test for a miss.
var ErrNoValue = errors.New("store: no value at location")

// Store is the primitive surface the portal persists against: hash-field
// read/write, set add/remove/scan, score-ordered set add/range, string
// get/set-with-expiry, and a keyspace scan with a cursor token. Any backend
// exposing these primitives is a valid implementation; production uses
// redis, tests use the in-memory store.
//
// None of the multi-command operations are transactional. Batch groups
// commands into one round trip but offers no atomicity (see Batch).
type Store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)
	// SScan walks one membership set. A zero cursor starts the scan; the
	// scan is complete when the returned cursor is zero again.
	SScan(ctx context.Context, key string, cursor uint64, count int64) ([]string, uint64, error)

	ZAdd(ctx context.Context, key, member string, score float64) error
	ZRem(ctx context.Context, key string, members ...string) error
	// ZRevRange returns members by descending score, inclusive slice
	// [start, stop] in rank positions.
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZCard(ctx context.Context, key string) (int64, error)

	Get(ctx context.Context, key string) (string, error)
	SetEX(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// Scan walks the whole keyspace filtered by a glob pattern. Same
	// cursor contract as SScan.
	Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)

	// Batch starts an empty command batch bound to this store.
	Batch() Batch

	Ping(ctx context.Context) error
	Close() error
}

// Batch accumulates write commands and dispatches them in one round trip.
// Commands execute on the store in the order they were queued. The batch is
// not atomic: a failure mid-batch leaves earlier commands applied, which is
// why Exec reports a per-command outcome instead of a single error.
type Batch interface {
	HSet(key string, fields map[string]string)
	SAdd(key string, members ...string)
	SRem(key string, members ...string)
	ZAdd(key, member string, score float64)
	ZRem(key string, members ...string)
	SetEX(key, value string, ttl time.Duration)
	Del(keys ...string)

	// Len reports how many commands are queued.
	Len() int
	// Exec dispatches the batch. The error is non-nil only when the round
	// trip itself could not be made; command-level failures are carried in
	// the result.
	Exec(ctx context.Context) (BatchResult, error)
}
