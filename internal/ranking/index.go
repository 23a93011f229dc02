// Package ranking provides a reusable score-and-rank index over a
// single ranked-set key. The engine instantiates it three times: users
// by message count, rooms by population, servers by room count.
package ranking

import (
	"context"

	"github.com/sembrant/chatdir/internal/model"
	"github.com/sembrant/chatdir/internal/store"
)

// Index is a score-ordered index over one ranked-set key. Ranks are
// 1-based, descending by score.
type Index struct {
	store store.Store
	key   string
}

// New creates an index over the given ranked-set key.
func New(st store.Store, key string) *Index {
	return &Index{store: st, key: key}
}

// Key returns the store key the index lives at.
func (ix *Index) Key() string {
	return ix.key
}

// Set writes an absolute score for a member, creating it if absent.
func (ix *Index) Set(ctx context.Context, member string, score int64) error {
	return ix.store.RankedAdd(ctx, ix.key, member, score)
}

// Incr adjusts a member's score by delta (negative to decrement) and
// returns the new score. An absent member is created at delta.
func (ix *Index) Incr(ctx context.Context, member string, delta int64) (int64, error) {
	return ix.store.RankedIncr(ctx, ix.key, member, delta)
}

// Score returns a member's score. The bool is false when the member is
// absent from the index.
func (ix *Index) Score(ctx context.Context, member string) (int64, bool, error) {
	return ix.store.RankedScore(ctx, ix.key, member)
}

// Rank returns a member's 1-based position, highest score first. The
// bool is false when the member is absent.
func (ix *Index) Rank(ctx context.Context, member string) (int64, bool, error) {
	rank, ok, err := ix.store.RankedRank(ctx, ix.key, member)
	if err != nil || !ok {
		return 0, ok, err
	}
	return rank + 1, true, nil
}

// Top returns the n highest-scored members in order.
func (ix *Index) Top(ctx context.Context, n int64) ([]store.Entry, error) {
	if n <= 0 {
		return []store.Entry{}, nil
	}
	return ix.store.RankedRangeWithScores(ctx, ix.key, 0, n-1)
}

// KeyAtRank returns the member at the given 1-based rank, or
// model.ErrRankOutOfRange when the rank exceeds the index cardinality.
func (ix *Index) KeyAtRank(ctx context.Context, rank int64) (string, error) {
	if err := ix.guardRank(ctx, rank); err != nil {
		return "", err
	}
	members, err := ix.store.RankedRange(ctx, ix.key, rank-1, rank-1)
	if err != nil {
		return "", err
	}
	if len(members) == 0 {
		return "", model.ErrRankOutOfRange
	}
	return members[0], nil
}

// ScoreAtRank returns the score held at the given 1-based rank, or
// model.ErrRankOutOfRange when the rank exceeds the index cardinality.
func (ix *Index) ScoreAtRank(ctx context.Context, rank int64) (int64, error) {
	if err := ix.guardRank(ctx, rank); err != nil {
		return 0, err
	}
	entries, err := ix.store.RankedRangeWithScores(ctx, ix.key, rank-1, rank-1)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, model.ErrRankOutOfRange
	}
	return entries[0].Score, nil
}

// Len returns the index cardinality.
func (ix *Index) Len(ctx context.Context) (int64, error) {
	return ix.store.RankedLen(ctx, ix.key)
}

// Remove deletes a member from the index.
func (ix *Index) Remove(ctx context.Context, member string) error {
	return ix.store.RankedRemove(ctx, ix.key, member)
}

// Migrate moves a member's score to a new member key: the score is read
// under the old key, written under the new one, and the old entry
// removed. An absent old member migrates as score 0.
func (ix *Index) Migrate(ctx context.Context, oldMember, newMember string) error {
	score, _, err := ix.store.RankedScore(ctx, ix.key, oldMember)
	if err != nil {
		return err
	}
	if err := ix.store.RankedAdd(ctx, ix.key, newMember, score); err != nil {
		return err
	}
	return ix.store.RankedRemove(ctx, ix.key, oldMember)
}

// TopIntersecting returns the n highest-scored members that also belong
// to the plain set at filterKey. The composed scores carry a +1 bias
// over true scores (the filter set weighs in at 1 per member); callers
// subtract 1 before display.
func (ix *Index) TopIntersecting(ctx context.Context, filterKey string, n int64) ([]store.Entry, error) {
	return ix.store.RankedIntersectTop(ctx, ix.key, filterKey, n)
}

func (ix *Index) guardRank(ctx context.Context, rank int64) error {
	if rank < 1 {
		return model.ErrRankOutOfRange
	}
	length, err := ix.store.RankedLen(ctx, ix.key)
	if err != nil {
		return err
	}
	if rank > length {
		return model.ErrRankOutOfRange
	}
	return nil
}
