package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and one-off local runs.
// It mirrors the backend semantics the portal relies on: hash field maps,
// unordered sets with cursor scans, score-ordered sets ranged by descending
// score, and strings with expiry. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	hashes  map[string]map[string]string
	sets    map[string]map[string]struct{}
	zsets   map[string]map[string]float64
	strings map[string]expiringValue

	// failWrites injects a command failure for a location, for exercising
	// partial-batch handling in tests.
	failWrites map[string]error

	now func() time.Time
}

type expiringValue struct {
	value    string
	deadline time.Time // zero means no expiry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hashes:     make(map[string]map[string]string),
		sets:       make(map[string]map[string]struct{}),
		zsets:      make(map[string]map[string]float64),
		strings:    make(map[string]expiringValue),
		failWrites: make(map[string]error),
		now:        time.Now,
	}
}

// FailWrites makes every subsequent write against key fail with err.
// Passing a nil err clears the fault.
func (s *MemoryStore) FailWrites(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failWrites, key)
		return
	}
	s.failWrites[key] = err
}

// SetClock overrides the time source, letting tests step TTL expiry.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) writeErr(key string) error {
	if err, ok := s.failWrites[key]; ok {
		return err
	}
	return nil
}

func (s *MemoryStore) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(key); err != nil {
		return err
	}
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (s *MemoryStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.hashes[key]))
	for k, v := range s.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) SAdd(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sadd(key, members...)
}

func (s *MemoryStore) sadd(key string, members ...string) error {
	if err := s.writeErr(key); err != nil {
		return err
	}
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) SRem(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srem(key, members...)
}

func (s *MemoryStore) srem(key string, members ...string) error {
	if err := s.writeErr(key); err != nil {
		return err
	}
	set := s.sets[key]
	for _, m := range members {
		delete(set, m)
	}
	if len(set) == 0 {
		delete(s.sets, key)
	}
	return nil
}

func (s *MemoryStore) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedSetMembers(key), nil
}

func (s *MemoryStore) sortedSetMembers(key string) []string {
	members := make([]string, 0, len(s.sets[key]))
	for m := range s.sets[key] {
		members = append(members, m)
	}
	sort.Strings(members)
	return members
}

func (s *MemoryStore) SCard(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.sets[key])), nil
}

func (s *MemoryStore) SIsMember(_ context.Context, key, member string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sets[key][member]
	return ok, nil
}

// SScan pages through the set in stable (sorted) order. The cursor is the
// position of the next element; zero terminates the scan, matching the
// backend's sentinel contract.
func (s *MemoryStore) SScan(_ context.Context, key string, cursor uint64, count int64) ([]string, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if count <= 0 {
		count = 10
	}
	members := s.sortedSetMembers(key)
	start := int(cursor)
	if start >= len(members) {
		return nil, 0, nil
	}
	end := start + int(count)
	if end >= len(members) {
		return members[start:], 0, nil
	}
	return members[start:end], uint64(end), nil
}

func (s *MemoryStore) ZAdd(_ context.Context, key, member string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zadd(key, member, score)
}

func (s *MemoryStore) zadd(key, member string, score float64) error {
	if err := s.writeErr(key); err != nil {
		return err
	}
	z, ok := s.zsets[key]
	if !ok {
		z = make(map[string]float64)
		s.zsets[key] = z
	}
	z[member] = score
	return nil
}

func (s *MemoryStore) ZRem(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zrem(key, members...)
}

func (s *MemoryStore) zrem(key string, members ...string) error {
	if err := s.writeErr(key); err != nil {
		return err
	}
	z := s.zsets[key]
	for _, m := range members {
		delete(z, m)
	}
	if len(z) == 0 {
		delete(s.zsets, key)
	}
	return nil
}

func (s *MemoryStore) ZRevRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type entry struct {
		member string
		score  float64
	}
	entries := make([]entry, 0, len(s.zsets[key]))
	for m, sc := range s.zsets[key] {
		entries = append(entries, entry{member: m, score: sc})
	}
	// Descending score; ties break by reverse lexical member order, as the
	// backend does for reverse ranges.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].member > entries[j].member
	})

	n := int64(len(entries))
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if start >= n || stop < start {
		return nil, nil
	}
	if stop >= n {
		stop = n - 1
	}
	out := make([]string, 0, stop-start+1)
	for _, e := range entries[start : stop+1] {
		out = append(out, e.member)
	}
	return out, nil
}

func (s *MemoryStore) ZCard(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.zsets[key])), nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.strings[key]
	if !ok {
		return "", ErrNoValue
	}
	if !v.deadline.IsZero() && !s.now().Before(v.deadline) {
		delete(s.strings, key)
		return "", ErrNoValue
	}
	return v.value, nil
}

func (s *MemoryStore) SetEX(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setex(key, value, ttl)
}

func (s *MemoryStore) setex(key, value string, ttl time.Duration) error {
	if err := s.writeErr(key); err != nil {
		return err
	}
	v := expiringValue{value: value}
	if ttl > 0 {
		v.deadline = s.now().Add(ttl)
	}
	s.strings[key] = v
	return nil
}

func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.del(keys...)
}

func (s *MemoryStore) del(keys ...string) error {
	for _, key := range keys {
		if err := s.writeErr(key); err != nil {
			return err
		}
		delete(s.hashes, key)
		delete(s.sets, key)
		delete(s.zsets, key)
		delete(s.strings, key)
	}
	return nil
}

func (s *MemoryStore) Scan(_ context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if count <= 0 {
		count = 10
	}
	var keys []string
	for k := range s.hashes {
		keys = append(keys, k)
	}
	for k := range s.sets {
		keys = append(keys, k)
	}
	for k := range s.zsets {
		keys = append(keys, k)
	}
	for k := range s.strings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if match != "" {
		filtered := keys[:0]
		for _, k := range keys {
			if globMatch(match, k) {
				filtered = append(filtered, k)
			}
		}
		keys = filtered
	}
	start := int(cursor)
	if start >= len(keys) {
		return nil, 0, nil
	}
	end := start + int(count)
	if end >= len(keys) {
		return keys[start:], 0, nil
	}
	return keys[start:end], uint64(end), nil
}

// globMatch supports the only pattern shape the portal uses: a literal
// prefix followed by a single trailing "*".
func globMatch(pattern, key string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(key, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == key
}

func (s *MemoryStore) Batch() Batch {
	return &memoryBatch{store: s}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
func (s *MemoryStore) Close() error               { return nil }

// memoryBatch replays queued commands sequentially at Exec time, recording
// an outcome per command. Like the real pipeline it keeps going after a
// failed command, so partial application is observable.
type memoryBatch struct {
	store *MemoryStore
	ops   []memoryOp
}

type memoryOp struct {
	name  string
	key   string
	apply func() error
}

func (b *memoryBatch) HSet(key string, fields map[string]string) {
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	b.ops = append(b.ops, memoryOp{name: "HSET", key: key, apply: func() error {
		if err := b.store.writeErr(key); err != nil {
			return err
		}
		h, ok := b.store.hashes[key]
		if !ok {
			h = make(map[string]string, len(copied))
			b.store.hashes[key] = h
		}
		for k, v := range copied {
			h[k] = v
		}
		return nil
	}})
}

func (b *memoryBatch) SAdd(key string, members ...string) {
	b.ops = append(b.ops, memoryOp{name: "SADD", key: key, apply: func() error {
		return b.store.sadd(key, members...)
	}})
}

func (b *memoryBatch) SRem(key string, members ...string) {
	b.ops = append(b.ops, memoryOp{name: "SREM", key: key, apply: func() error {
		return b.store.srem(key, members...)
	}})
}

func (b *memoryBatch) ZAdd(key, member string, score float64) {
	b.ops = append(b.ops, memoryOp{name: "ZADD", key: key, apply: func() error {
		return b.store.zadd(key, member, score)
	}})
}

func (b *memoryBatch) ZRem(key string, members ...string) {
	b.ops = append(b.ops, memoryOp{name: "ZREM", key: key, apply: func() error {
		return b.store.zrem(key, members...)
	}})
}

func (b *memoryBatch) SetEX(key, value string, ttl time.Duration) {
	b.ops = append(b.ops, memoryOp{name: "SET", key: key, apply: func() error {
		return b.store.setex(key, value, ttl)
	}})
}

func (b *memoryBatch) Del(keys ...string) {
	for _, key := range keys {
		key := key
		b.ops = append(b.ops, memoryOp{name: "DEL", key: key, apply: func() error {
			return b.store.del(key)
		}})
	}
}

func (b *memoryBatch) Len() int { return len(b.ops) }

func (b *memoryBatch) Exec(context.Context) (BatchResult, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	res := BatchResult{Outcomes: make([]CommandOutcome, 0, len(b.ops))}
	for _, op := range b.ops {
		res.Outcomes = append(res.Outcomes, CommandOutcome{Name: op.name, Key: op.key, Err: op.apply()})
	}
	return res, nil
}
