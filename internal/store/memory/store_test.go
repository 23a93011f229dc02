package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/sembrant/chatdir/internal/model"
)

type StoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func (s *StoreSuite) TestRecordSetAndGet() {
	err := s.store.RecordSet(s.ctx, "User:alice", map[string]string{"loginFlag": "1"})
	s.Require().NoError(err)

	val, ok, err := s.store.RecordGet(s.ctx, "User:alice", "loginFlag")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("1", val)
}

func (s *StoreSuite) TestRecordGetAbsent() {
	_, ok, err := s.store.RecordGet(s.ctx, "User:nobody", "loginFlag")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *StoreSuite) TestSetOperations() {
	_ = s.store.SetAdd(s.ctx, "Pool", "alice", "bob")

	ok, err := s.store.SetContains(s.ctx, "Pool", "alice")
	s.Require().NoError(err)
	s.True(ok)

	members, err := s.store.SetMembers(s.ctx, "Pool")
	s.Require().NoError(err)
	s.ElementsMatch([]string{"alice", "bob"}, members)

	_ = s.store.SetRemove(s.ctx, "Pool", "alice")
	n, err := s.store.SetLen(s.ctx, "Pool")
	s.Require().NoError(err)
	s.Equal(int64(1), n)
}

func (s *StoreSuite) TestSetRandomMemberEmpty() {
	_, ok, err := s.store.SetRandomMember(s.ctx, "Empty")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *StoreSuite) TestRankedOrderingMatchesRedis() {
	// Ties break by member, descending, like ZREVRANGE.
	_ = s.store.RankedAdd(s.ctx, "UserPool", "alpha", 5)
	_ = s.store.RankedAdd(s.ctx, "UserPool", "beta", 5)
	_ = s.store.RankedAdd(s.ctx, "UserPool", "gamma", 10)

	members, err := s.store.RankedRange(s.ctx, "UserPool", 0, 2)
	s.Require().NoError(err)
	s.Equal([]string{"gamma", "beta", "alpha"}, members)
}

func (s *StoreSuite) TestRankedIncrCreatesAtDelta() {
	score, err := s.store.RankedIncr(s.ctx, "RoomPool", "7", 1)
	s.Require().NoError(err)
	s.Equal(int64(1), score)
}

func (s *StoreSuite) TestRankedRank() {
	_ = s.store.RankedAdd(s.ctx, "UserPool", "low", 1)
	_ = s.store.RankedAdd(s.ctx, "UserPool", "high", 9)

	rank, ok, err := s.store.RankedRank(s.ctx, "UserPool", "high")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(int64(0), rank)

	_, ok, err = s.store.RankedRank(s.ctx, "UserPool", "nobody")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *StoreSuite) TestRankedRangeClamps() {
	_ = s.store.RankedAdd(s.ctx, "UserPool", "only", 1)

	members, err := s.store.RankedRange(s.ctx, "UserPool", 0, 99)
	s.Require().NoError(err)
	s.Equal([]string{"only"}, members)
}

func (s *StoreSuite) TestRankedIntersectTopCarriesBias() {
	_ = s.store.RankedAdd(s.ctx, "UserPool", "alice", 10)
	_ = s.store.RankedAdd(s.ctx, "UserPool", "bob", 20)
	_ = s.store.SetAdd(s.ctx, "LoginPool", "alice")

	entries, err := s.store.RankedIntersectTop(s.ctx, "UserPool", "LoginPool", 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("alice", entries[0].Member)
	s.Equal(int64(11), entries[0].Score)
}

func (s *StoreSuite) TestRenameMovesKey() {
	_ = s.store.RecordSet(s.ctx, "User:alice", map[string]string{"connectionID": "3"})

	err := s.store.Rename(s.ctx, "User:alice", "User:alicia")
	s.Require().NoError(err)

	val, ok, err := s.store.RecordGet(s.ctx, "User:alicia", "connectionID")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("3", val)

	ok, err = s.store.Exists(s.ctx, "User:alice")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *StoreSuite) TestRenameMissingKeyErrors() {
	err := s.store.Rename(s.ctx, "User:nobody", "User:somebody")
	s.ErrorIs(err, model.ErrStoreUnavailable)
}

func (s *StoreSuite) TestDeleteMultipleKeys() {
	_ = s.store.RecordSet(s.ctx, "Room:1", map[string]string{"title": "a"})
	_ = s.store.SetAdd(s.ctx, "Room:1:Contents", "alice")

	err := s.store.Delete(s.ctx, "Room:1", "Room:1:Contents")
	s.Require().NoError(err)

	ok, _ := s.store.Exists(s.ctx, "Room:1")
	s.False(ok)
	ok, _ = s.store.Exists(s.ctx, "Room:1:Contents")
	s.False(ok)
}
