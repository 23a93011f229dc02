package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sembrant/chatdir/internal/model"
	"github.com/sembrant/chatdir/internal/store"
)

// Store is an in-process implementation of the store primitives, used
// for development and service-level tests. It mirrors Redis ordering
// semantics: descending ranges break score ties by member, descending.
// TTLs are not enforced.
type Store struct {
	mu sync.RWMutex

	records map[string]map[string]string
	sets    map[string]map[string]struct{}
	ranked  map[string]map[string]int64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		records: make(map[string]map[string]string),
		sets:    make(map[string]map[string]struct{}),
		ranked:  make(map[string]map[string]int64),
	}
}

// Ensure Store implements the interface
var _ store.Store = (*Store)(nil)

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// Attribute records

func (s *Store) RecordGet(_ context.Context, key, field string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return "", false, nil
	}
	val, ok := rec[field]
	return val, ok, nil
}

func (s *Store) RecordSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		rec = make(map[string]string, len(fields))
		s.records[key] = rec
	}
	for f, v := range fields {
		rec[f] = v
	}
	return nil
}

// Membership sets

func (s *Store) SetAdd(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{}, len(members))
		s.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	return nil
}

func (s *Store) SetRemove(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[key]
	if !ok {
		return nil
	}
	for _, m := range members {
		delete(set, m)
	}
	if len(set) == 0 {
		delete(s.sets, key)
	}
	return nil
}

func (s *Store) SetContains(_ context.Context, key, member string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.sets[key][member]
	return ok, nil
}

func (s *Store) SetMembers(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.sets[key]
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	return members, nil
}

func (s *Store) SetRandomMember(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for m := range s.sets[key] {
		return m, true, nil
	}
	return "", false, nil
}

func (s *Store) SetLen(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.sets[key])), nil
}

// Score-ordered sets

func (s *Store) RankedAdd(_ context.Context, key, member string, score int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rankedLocked(key)[member] = score
	return nil
}

func (s *Store) RankedIncr(_ context.Context, key, member string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	zs := s.rankedLocked(key)
	zs[member] += delta
	return zs[member], nil
}

func (s *Store) RankedScore(_ context.Context, key, member string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.ranked[key][member]
	return score, ok, nil
}

func (s *Store) RankedRank(_ context.Context, key, member string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.ranked[key][member]; !ok {
		return 0, false, nil
	}
	for i, e := range descending(s.ranked[key]) {
		if e.Member == member {
			return int64(i), true, nil
		}
	}
	return 0, false, nil
}

func (s *Store) RankedRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := sliceRange(descending(s.ranked[key]), start, stop)
	members := make([]string, len(entries))
	for i, e := range entries {
		members[i] = e.Member
	}
	return members, nil
}

func (s *Store) RankedRangeWithScores(_ context.Context, key string, start, stop int64) ([]store.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return sliceRange(descending(s.ranked[key]), start, stop), nil
}

func (s *Store) RankedRemove(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	zs, ok := s.ranked[key]
	if !ok {
		return nil
	}
	for _, m := range members {
		delete(zs, m)
	}
	if len(zs) == 0 {
		delete(s.ranked, key)
	}
	return nil
}

func (s *Store) RankedLen(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.ranked[key])), nil
}

func (s *Store) RankedIntersectTop(_ context.Context, key, filterKey string, n int64) ([]store.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 {
		return []store.Entry{}, nil
	}

	// Mirror ZINTERSTORE with a weight-1 plain set: composed score is
	// the true score plus one.
	composed := make(map[string]int64)
	for m, score := range s.ranked[key] {
		if _, ok := s.sets[filterKey][m]; ok {
			composed[m] = score + 1
		}
	}
	return sliceRange(descending(composed), 0, n-1), nil
}

// Whole-key operations

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.existsLocked(key), nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.records, key)
		delete(s.sets, key)
		delete(s.ranked, key)
	}
	return nil
}

func (s *Store) Rename(_ context.Context, oldKey, newKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.existsLocked(oldKey) {
		return fmt.Errorf("%w: %v", model.ErrStoreUnavailable, errors.New("rename: no such key"))
	}
	if rec, ok := s.records[oldKey]; ok {
		s.records[newKey] = rec
		delete(s.records, oldKey)
	}
	if set, ok := s.sets[oldKey]; ok {
		s.sets[newKey] = set
		delete(s.sets, oldKey)
	}
	if zs, ok := s.ranked[oldKey]; ok {
		s.ranked[newKey] = zs
		delete(s.ranked, oldKey)
	}
	return nil
}

// Expire is accepted but not enforced by the in-memory backend.
func (s *Store) Expire(_ context.Context, _ string, _ time.Duration) error {
	return nil
}

func (s *Store) existsLocked(key string) bool {
	if _, ok := s.records[key]; ok {
		return true
	}
	if _, ok := s.sets[key]; ok {
		return true
	}
	_, ok := s.ranked[key]
	return ok
}

func (s *Store) rankedLocked(key string) map[string]int64 {
	zs, ok := s.ranked[key]
	if !ok {
		zs = make(map[string]int64)
		s.ranked[key] = zs
	}
	return zs
}

// descending returns the entries ordered by score descending, ties by
// member descending, matching Redis reverse-range ordering.
func descending(zs map[string]int64) []store.Entry {
	entries := make([]store.Entry, 0, len(zs))
	for m, score := range zs {
		entries = append(entries, store.Entry{Member: m, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Member > entries[j].Member
	})
	return entries
}

func sliceRange(entries []store.Entry, start, stop int64) []store.Entry {
	n := int64(len(entries))
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start >= n || stop < start {
		return []store.Entry{}
	}
	return entries[start : stop+1]
}
