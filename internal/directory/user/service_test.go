package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/sembrant/chatdir/internal/dependencies/mocks"
	"github.com/sembrant/chatdir/internal/model"
	"github.com/sembrant/chatdir/internal/store"
	"github.com/sembrant/chatdir/internal/store/memory"
	"github.com/sembrant/chatdir/internal/testutil"
)

// stubRooms records eviction calls and mirrors the room directory's
// effect on the user side, so room-dependent flows can be exercised
// without the real room directory.
type stubRooms struct {
	service *Service
	evicted []string
}

func (r *stubRooms) RemoveUser(ctx context.Context, roomNumber int64, username string) (model.RemoveUserResult, error) {
	r.evicted = append(r.evicted, username)
	return model.RemoveUserResult{}, r.service.LeaveRoom(ctx, username)
}

func (r *stubRooms) ReleaseMember(context.Context, int64, string) error {
	return nil
}

func (r *stubRooms) ReinstateMember(context.Context, int64, string, string) error {
	return nil
}

type ServiceSuite struct {
	suite.Suite
	store   *memory.Store
	clock   *mocks.MockClock
	rooms   *stubRooms
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.service = New(s.store, s.clock, testutil.NopLogger())
	s.rooms = &stubRooms{service: s.service}
	s.service.BindRooms(s.rooms)
	s.ctx = context.Background()
}

func (s *ServiceSuite) createUser(name string) {
	s.Require().NoError(s.service.Create(s.ctx, name, "secret"))
}

// Create tests

func (s *ServiceSuite) TestCreateSucceeds() {
	err := s.service.Create(s.ctx, "alice", "secret")
	s.Require().NoError(err)

	u, err := s.service.Get(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("alice", u.Name)
	s.False(u.LoggedIn)
	s.False(u.Blocked)
	s.Equal(int64(0), u.MessageCount)
	s.Equal(int64(0), u.RoomNumber)
}

func (s *ServiceSuite) TestCreateDuplicateFails() {
	s.createUser("alice")

	err := s.service.Create(s.ctx, "alice", "other")
	s.ErrorIs(err, model.ErrUserExists)
}

func (s *ServiceSuite) TestCreateSeedsRanking() {
	s.createUser("alice")

	rank, err := s.service.Rank(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(1), rank)
}

func (s *ServiceSuite) TestCreateDoesNotStorePlaintextPassword() {
	s.createUser("alice")

	hash, ok, err := s.store.RecordGet(s.ctx, store.UserKey("alice"), "password")
	s.Require().NoError(err)
	s.True(ok)
	s.NotEqual("secret", hash)
}

// Delete tests

func (s *ServiceSuite) TestDeleteRemovesEverything() {
	s.createUser("alice")
	_, err := s.service.Login(s.ctx, "alice", "secret", 7, false)
	s.Require().NoError(err)

	err = s.service.Delete(s.ctx, "alice", "secret")
	s.Require().NoError(err)

	exists, err := s.service.Exists(s.ctx, "alice")
	s.Require().NoError(err)
	s.False(exists)

	inPool, err := s.store.SetContains(s.ctx, store.LoginPoolKey, "alice")
	s.Require().NoError(err)
	s.False(inPool)

	inLobby, err := s.store.SetContains(s.ctx, store.LobbyPoolKey, "alice")
	s.Require().NoError(err)
	s.False(inLobby)

	_, err = s.service.Rank(s.ctx, "alice")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *ServiceSuite) TestDeleteWrongPassword() {
	s.createUser("alice")

	err := s.service.Delete(s.ctx, "alice", "wrong")
	s.ErrorIs(err, model.ErrAuthFailed)
}

func (s *ServiceSuite) TestDeleteUnknownUser() {
	err := s.service.Delete(s.ctx, "nobody", "secret")
	s.ErrorIs(err, model.ErrUserNotFound)
}

// Login tests

func (s *ServiceSuite) TestLoginMarksPresence() {
	s.createUser("alice")

	res, err := s.service.Login(s.ctx, "alice", "secret", 100, false)
	s.Require().NoError(err)
	s.False(res.SessionReplaced)

	u, err := s.service.Get(s.ctx, "alice")
	s.Require().NoError(err)
	s.True(u.LoggedIn)
	s.Equal(int64(100), u.ConnectionID)

	inPool, _ := s.store.SetContains(s.ctx, store.LoginPoolKey, "alice")
	s.True(inPool)
	inLobby, _ := s.store.SetContains(s.ctx, store.LobbyPoolKey, "alice")
	s.True(inLobby)
}

func (s *ServiceSuite) TestLoginWrongPassword() {
	s.createUser("alice")

	_, err := s.service.Login(s.ctx, "alice", "wrong", 100, false)
	s.ErrorIs(err, model.ErrAuthFailed)
}

func (s *ServiceSuite) TestLoginOverrideReportsPreviousConnection() {
	s.createUser("alice")
	_, err := s.service.Login(s.ctx, "alice", "secret", 100, false)
	s.Require().NoError(err)

	res, err := s.service.Login(s.ctx, "alice", "secret", 200, false)
	s.Require().NoError(err)
	s.True(res.SessionReplaced)
	s.Equal(int64(100), res.PreviousConnectionID)

	id, err := s.service.ConnectionID(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(200), id)
}

func (s *ServiceSuite) TestLoginDummyUsesDummyPool() {
	s.createUser("bot")

	_, err := s.service.Login(s.ctx, "bot", "secret", 5, true)
	s.Require().NoError(err)

	inDummy, _ := s.store.SetContains(s.ctx, store.DummyPoolKey, "bot")
	s.True(inDummy)
	inLogin, _ := s.store.SetContains(s.ctx, store.LoginPoolKey, "bot")
	s.False(inLogin)
}

func (s *ServiceSuite) TestLoginWhileSuspendedFails() {
	s.createUser("alice")
	s.Require().NoError(s.service.Block(s.ctx, "alice", 30))

	_, err := s.service.Login(s.ctx, "alice", "secret", 100, false)
	s.ErrorIs(err, model.ErrSuspended)
}

func (s *ServiceSuite) TestLoginOverrideEvictsFromRoom() {
	s.createUser("alice")
	_, err := s.service.Login(s.ctx, "alice", "secret", 100, false)
	s.Require().NoError(err)
	s.Require().NoError(s.service.EnterRoom(s.ctx, "alice", 7))

	_, err = s.service.Login(s.ctx, "alice", "secret", 200, false)
	s.Require().NoError(err)
	s.Equal([]string{"alice"}, s.rooms.evicted)

	u, err := s.service.Get(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(0), u.RoomNumber)
}

// Logout tests

func (s *ServiceSuite) TestLogoutClearsPresence() {
	s.createUser("alice")
	_, err := s.service.Login(s.ctx, "alice", "secret", 100, false)
	s.Require().NoError(err)

	err = s.service.Logout(s.ctx, "alice")
	s.Require().NoError(err)

	u, err := s.service.Get(s.ctx, "alice")
	s.Require().NoError(err)
	s.False(u.LoggedIn)
	s.Equal(int64(0), u.ConnectionID)

	inPool, _ := s.store.SetContains(s.ctx, store.LoginPoolKey, "alice")
	s.False(inPool)
	inLobby, _ := s.store.SetContains(s.ctx, store.LobbyPoolKey, "alice")
	s.False(inLobby)
}

func (s *ServiceSuite) TestLogoutNotLoggedIn() {
	s.createUser("alice")

	err := s.service.Logout(s.ctx, "alice")
	s.ErrorIs(err, model.ErrNotLoggedIn)
}

func (s *ServiceSuite) TestLogoutUnknownUser() {
	err := s.service.Logout(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *ServiceSuite) TestLogoutEvictsFromRoom() {
	s.createUser("alice")
	_, err := s.service.Login(s.ctx, "alice", "secret", 100, false)
	s.Require().NoError(err)
	s.Require().NoError(s.service.EnterRoom(s.ctx, "alice", 3))

	err = s.service.Logout(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal([]string{"alice"}, s.rooms.evicted)
}

// Username change tests

func (s *ServiceSuite) TestChangeUsernameMigratesEverything() {
	s.createUser("alice")
	_, err := s.service.Login(s.ctx, "alice", "secret", 100, false)
	s.Require().NoError(err)
	_, err = s.service.AddMessageCount(s.ctx, "alice", 5)
	s.Require().NoError(err)

	err = s.service.ChangeUsername(s.ctx, "alice", "secret", "alicia")
	s.Require().NoError(err)

	exists, _ := s.service.Exists(s.ctx, "alice")
	s.False(exists)

	u, err := s.service.Get(s.ctx, "alicia")
	s.Require().NoError(err)
	s.True(u.LoggedIn)
	s.Equal(int64(100), u.ConnectionID)
	s.Equal(int64(5), u.MessageCount)

	inPool, _ := s.store.SetContains(s.ctx, store.LoginPoolKey, "alicia")
	s.True(inPool)
	inPool, _ = s.store.SetContains(s.ctx, store.LoginPoolKey, "alice")
	s.False(inPool)
	inLobby, _ := s.store.SetContains(s.ctx, store.LobbyPoolKey, "alicia")
	s.True(inLobby)
}

func (s *ServiceSuite) TestChangeUsernameToSameName() {
	s.createUser("alice")

	err := s.service.ChangeUsername(s.ctx, "alice", "secret", "alice")
	s.ErrorIs(err, model.ErrUnchanged)
}

func (s *ServiceSuite) TestChangeUsernameToTakenName() {
	s.createUser("alice")
	s.createUser("bob")

	err := s.service.ChangeUsername(s.ctx, "alice", "secret", "bob")
	s.ErrorIs(err, model.ErrUserExists)
}

func (s *ServiceSuite) TestChangeUsernameOldCredentialWorksUnderNewName() {
	s.createUser("alice")
	s.Require().NoError(s.service.ChangeUsername(s.ctx, "alice", "secret", "alicia"))

	_, err := s.service.Login(s.ctx, "alicia", "secret", 1, false)
	s.Require().NoError(err)
}

// Password and connection tests

func (s *ServiceSuite) TestChangePassword() {
	s.createUser("alice")

	err := s.service.ChangePassword(s.ctx, "alice", "secret", "newsecret")
	s.Require().NoError(err)

	_, err = s.service.Login(s.ctx, "alice", "secret", 1, false)
	s.ErrorIs(err, model.ErrAuthFailed)

	_, err = s.service.Login(s.ctx, "alice", "newsecret", 1, false)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestChangePasswordToSameValue() {
	s.createUser("alice")

	err := s.service.ChangePassword(s.ctx, "alice", "secret", "secret")
	s.ErrorIs(err, model.ErrUnchanged)
}

func (s *ServiceSuite) TestChangeConnectionID() {
	s.createUser("alice")

	err := s.service.ChangeConnectionID(s.ctx, "alice", "secret", 42)
	s.Require().NoError(err)

	id, err := s.service.ConnectionID(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(42), id)
}

func (s *ServiceSuite) TestChangeConnectionIDToSameValue() {
	s.createUser("alice")
	s.Require().NoError(s.service.ChangeConnectionID(s.ctx, "alice", "secret", 42))

	err := s.service.ChangeConnectionID(s.ctx, "alice", "secret", 42)
	s.ErrorIs(err, model.ErrUnchanged)
}

// Suspension tests

func (s *ServiceSuite) TestBlockThenCheck() {
	s.createUser("alice")
	s.Require().NoError(s.service.Block(s.ctx, "alice", 30))

	status, err := s.service.CheckBlock(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.BlockActive, status.State)
	s.True(status.Blocked())
	s.Equal(s.clock.Now().Add(30*time.Minute).Unix(), status.Until.Unix())
}

func (s *ServiceSuite) TestBlockExpiresLazily() {
	s.createUser("alice")
	s.Require().NoError(s.service.Block(s.ctx, "alice", 30))

	s.clock.Advance(31 * time.Minute)

	// First check past the deadline clears the suspension.
	status, err := s.service.CheckBlock(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.BlockCleared, status.State)
	s.False(status.Blocked())

	// Subsequent checks see no suspension at all.
	status, err = s.service.CheckBlock(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.BlockNone, status.State)
}

func (s *ServiceSuite) TestBlockExtendsActiveSuspension() {
	s.createUser("alice")
	s.Require().NoError(s.service.Block(s.ctx, "alice", 30))
	s.Require().NoError(s.service.Block(s.ctx, "alice", 30))

	status, err := s.service.CheckBlock(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.BlockActive, status.State)
	s.Equal(s.clock.Now().Add(60*time.Minute).Unix(), status.Until.Unix())
}

func (s *ServiceSuite) TestBlockAfterExpiryStartsFromNow() {
	s.createUser("alice")
	s.Require().NoError(s.service.Block(s.ctx, "alice", 10))

	s.clock.Advance(time.Hour)
	s.Require().NoError(s.service.Block(s.ctx, "alice", 10))

	status, err := s.service.CheckBlock(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.BlockActive, status.State)
	s.Equal(s.clock.Now().Add(10*time.Minute).Unix(), status.Until.Unix())
}

func (s *ServiceSuite) TestUnblock() {
	s.createUser("alice")
	s.Require().NoError(s.service.Block(s.ctx, "alice", 30))

	err := s.service.Unblock(s.ctx, "alice")
	s.Require().NoError(err)

	status, err := s.service.CheckBlock(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.BlockNone, status.State)
}

func (s *ServiceSuite) TestUnblockNotSuspended() {
	s.createUser("alice")

	err := s.service.Unblock(s.ctx, "alice")
	s.ErrorIs(err, model.ErrNotSuspended)
}

// Message count tests

func (s *ServiceSuite) TestAddMessageCount() {
	s.createUser("alice")

	count, err := s.service.AddMessageCount(s.ctx, "alice", 5)
	s.Require().NoError(err)
	s.Equal(int64(5), count)

	count, err = s.service.AddMessageCount(s.ctx, "alice", -2)
	s.Require().NoError(err)
	s.Equal(int64(3), count)
}

func (s *ServiceSuite) TestAddMessageCountFloorsAtZero() {
	s.createUser("alice")
	_, err := s.service.AddMessageCount(s.ctx, "alice", 3)
	s.Require().NoError(err)

	count, err := s.service.AddMessageCount(s.ctx, "alice", -10)
	s.Require().NoError(err)
	s.Equal(int64(0), count)
}

func (s *ServiceSuite) TestAddMessageCountUnknownUser() {
	_, err := s.service.AddMessageCount(s.ctx, "nobody", 1)
	s.ErrorIs(err, model.ErrUserNotFound)
}

// Ranking tests

func (s *ServiceSuite) TestTopOrdersByMessageCount() {
	s.createUser("alice")
	s.createUser("bob")
	s.createUser("carol")
	_, _ = s.service.AddMessageCount(s.ctx, "alice", 10)
	_, _ = s.service.AddMessageCount(s.ctx, "bob", 30)
	_, _ = s.service.AddMessageCount(s.ctx, "carol", 20)

	entries, err := s.service.Top(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal("bob", entries[0].Member)
	s.Equal("carol", entries[1].Member)
}

func (s *ServiceSuite) TestTopLoggedInFiltersAndBiases() {
	s.createUser("alice")
	s.createUser("bob")
	_, _ = s.service.AddMessageCount(s.ctx, "alice", 10)
	_, _ = s.service.AddMessageCount(s.ctx, "bob", 30)
	_, err := s.service.Login(s.ctx, "alice", "secret", 1, false)
	s.Require().NoError(err)

	entries, err := s.service.TopLoggedIn(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("alice", entries[0].Member)
	s.Equal(int64(11), entries[0].Score)
}

// Room transition tests

func (s *ServiceSuite) TestEnterRoomLeavesLobby() {
	s.createUser("alice")
	_, err := s.service.Login(s.ctx, "alice", "secret", 1, false)
	s.Require().NoError(err)

	err = s.service.EnterRoom(s.ctx, "alice", 9)
	s.Require().NoError(err)

	inLobby, _ := s.store.SetContains(s.ctx, store.LobbyPoolKey, "alice")
	s.False(inLobby)

	u, err := s.service.Get(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(9), u.RoomNumber)
}

func (s *ServiceSuite) TestLeaveRoomReturnsLoggedInUserToLobby() {
	s.createUser("alice")
	_, err := s.service.Login(s.ctx, "alice", "secret", 1, false)
	s.Require().NoError(err)
	s.Require().NoError(s.service.EnterRoom(s.ctx, "alice", 9))

	err = s.service.LeaveRoom(s.ctx, "alice")
	s.Require().NoError(err)

	inLobby, _ := s.store.SetContains(s.ctx, store.LobbyPoolKey, "alice")
	s.True(inLobby)

	u, err := s.service.Get(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(0), u.RoomNumber)
}

func (s *ServiceSuite) TestLeaveRoomLoggedOutUserStaysOutOfLobby() {
	s.createUser("alice")

	err := s.service.LeaveRoom(s.ctx, "alice")
	s.Require().NoError(err)

	inLobby, _ := s.store.SetContains(s.ctx, store.LobbyPoolKey, "alice")
	s.False(inLobby)
}
