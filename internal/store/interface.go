package store

import (
	"context"
	"time"
)

// Entry is a member of a ranked set together with its score.
type Entry struct {
	Member string
	Score  int64
}

// Store is the narrow primitive interface the directory engine consumes
// from the backing key-value store: attribute records (field get/set),
// unordered membership sets, score-ordered sets, and whole-key
// operations. No multi-key transaction primitive is assumed; every
// multi-step directory operation sequences these calls itself.
//
// Implementations wrap transport failures in model.ErrStoreUnavailable.
type Store interface {
	// Attribute records

	// RecordGet returns a single field of a record. The bool is false
	// when the record or field is absent.
	RecordGet(ctx context.Context, key, field string) (string, bool, error)
	// RecordSet writes the given fields of a record, creating it if
	// needed.
	RecordSet(ctx context.Context, key string, fields map[string]string) error

	// Membership sets

	SetAdd(ctx context.Context, key string, members ...string) error
	SetRemove(ctx context.Context, key string, members ...string) error
	SetContains(ctx context.Context, key, member string) (bool, error)
	SetMembers(ctx context.Context, key string) ([]string, error)
	// SetRandomMember returns an arbitrary member. The bool is false
	// when the set is empty or absent.
	SetRandomMember(ctx context.Context, key string) (string, bool, error)
	SetLen(ctx context.Context, key string) (int64, error)

	// Score-ordered sets. Ranks are 0-based and descending by score,
	// ties broken by the store's member ordering.

	RankedAdd(ctx context.Context, key, member string, score int64) error
	// RankedIncr adjusts a member's score by delta (negative to
	// decrement), creating the member at delta if absent, and returns
	// the new score.
	RankedIncr(ctx context.Context, key, member string, delta int64) (int64, error)
	RankedScore(ctx context.Context, key, member string) (int64, bool, error)
	RankedRank(ctx context.Context, key, member string) (int64, bool, error)
	RankedRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	RankedRangeWithScores(ctx context.Context, key string, start, stop int64) ([]Entry, error)
	RankedRemove(ctx context.Context, key string, members ...string) error
	RankedLen(ctx context.Context, key string) (int64, error)
	// RankedIntersectTop returns the top n members of the ranked set at
	// key that are also members of the plain set at filterKey, highest
	// composed score first. Plain-set members weigh in at 1, so every
	// returned score is the true score plus one.
	RankedIntersectTop(ctx context.Context, key, filterKey string, n int64) ([]Entry, error)

	// Whole-key operations

	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Rename(ctx context.Context, oldKey, newKey string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error

	Close() error
}
