package repository

import (
	"partner-portal/internal/store"
)

// DeltaKind labels one index-membership mutation.
type DeltaKind int

const (
	// AddMember inserts an id into a membership bucket.
	AddMember DeltaKind = iota
	// RemoveMember removes an id from a membership bucket.
	RemoveMember
	// UpsertOrdered inserts or rescores an id in an ordered index.
	UpsertOrdered
	// RemoveOrdered removes an id from an ordered index.
	RemoveOrdered
	// SetLookup writes an id under a unique-lookup string location.
	SetLookup
	// DelLocation drops an entire location: lookup strings and the owned
	// child indexes enumerated by a deletion path.
	DelLocation
)

// IndexDelta is one index mutation required to keep an entity's index
// memberships in step with its field values.
type IndexDelta struct {
	Kind   DeltaKind
	Key    string
	Member string
	Score  float64
}

// indexDiff accumulates the index deltas for one write. Each repository
// declares its entity's dimensions by calling the methods below with the
// old and new field values; the result is applied to a batch alongside the
// primary-record command.
type indexDiff struct {
	deltas []IndexDelta
}

// Membership diffs one discrete dimension. keyFor maps a dimension value
// to its bucket location. Equal values emit nothing: the id is already in
// the right bucket. An empty value belongs to no bucket, so clearing a
// dimension emits only the removal and creating with an empty value emits
// nothing at all.
func (d *indexDiff) Membership(keyFor func(string) string, oldVal, newVal, id string) {
	if oldVal == newVal {
		return
	}
	if oldVal != "" {
		d.deltas = append(d.deltas, IndexDelta{Kind: RemoveMember, Key: keyFor(oldVal), Member: id})
	}
	if newVal != "" {
		d.deltas = append(d.deltas, IndexDelta{Kind: AddMember, Key: keyFor(newVal), Member: id})
	}
}

// Ordered upserts an id in an ordered index. The upsert is emitted on
// every write even when the score is unchanged: callers rely on it to keep
// an entity refreshed in "most recent" orderings after edits to
// non-indexed fields.
func (d *indexDiff) Ordered(key, id string, score float64) {
	d.deltas = append(d.deltas, IndexDelta{Kind: UpsertOrdered, Key: key, Member: id, Score: score})
}

// Lookup maintains a unique string lookup (e.g. email -> id). Keys must
// already be normalized by the key namespace.
func (d *indexDiff) Lookup(oldKey, newKey, id string) {
	if oldKey == newKey {
		return
	}
	if oldKey != "" {
		d.deltas = append(d.deltas, IndexDelta{Kind: DelLocation, Key: oldKey})
	}
	if newKey != "" {
		d.deltas = append(d.deltas, IndexDelta{Kind: SetLookup, Key: newKey, Member: id})
	}
}

// Add emits an unconditional membership insert, for constant-bucket
// memberships like a parent's child collection.
func (d *indexDiff) Add(key, id string) {
	d.deltas = append(d.deltas, IndexDelta{Kind: AddMember, Key: key, Member: id})
}

// Remove emits a membership removal, used by deletion paths.
func (d *indexDiff) Remove(key, id string) {
	d.deltas = append(d.deltas, IndexDelta{Kind: RemoveMember, Key: key, Member: id})
}

// RemoveOrdered emits an ordered-index removal, used by deletion paths.
func (d *indexDiff) RemoveOrdered(key, id string) {
	d.deltas = append(d.deltas, IndexDelta{Kind: RemoveOrdered, Key: key, Member: id})
}

// Drop removes whole locations, used by deletion paths for lookups and
// owned child collections.
func (d *indexDiff) Drop(keys ...string) {
	for _, key := range keys {
		d.deltas = append(d.deltas, IndexDelta{Kind: DelLocation, Key: key})
	}
}

// apply queues every accumulated delta on a batch, in the order emitted.
func (d *indexDiff) apply(b store.Batch) {
	for _, delta := range d.deltas {
		switch delta.Kind {
		case AddMember:
			b.SAdd(delta.Key, delta.Member)
		case RemoveMember:
			b.SRem(delta.Key, delta.Member)
		case UpsertOrdered:
			b.ZAdd(delta.Key, delta.Member, delta.Score)
		case RemoveOrdered:
			b.ZRem(delta.Key, delta.Member)
		case SetLookup:
			b.SetEX(delta.Key, delta.Member, 0)
		case DelLocation:
			b.Del(delta.Key)
		}
	}
}
