// Package user implements the identity directory: user records,
// credentials, login/logout presence, suspensions, and the
// message-count leaderboard.
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sembrant/chatdir/internal/dependencies/clock"
	"github.com/sembrant/chatdir/internal/model"
	"github.com/sembrant/chatdir/internal/ranking"
	"github.com/sembrant/chatdir/internal/store"
)

// Fields of the User:<name> attribute record.
const (
	fieldPassword     = "password"
	fieldConnectionID = "connectionID"
	fieldLoginFlag    = "loginFlag"
	fieldDummyFlag    = "dummyFlag"
	fieldBlockFlag    = "blockFlag"
	fieldSuspendUntil = "suspendUntil"
	fieldRoomNumber   = "roomNumber"
)

// Rooms is the slice of the room directory the identity directory needs:
// evicting a user from their room with full cascades, and reattributing
// a membership across a username change. Implemented by the room
// directory and bound after construction, since the room directory also
// depends on this package.
type Rooms interface {
	// RemoveUser evicts a member with population, ownership, and
	// empty-room teardown cascades.
	RemoveUser(ctx context.Context, roomNumber int64, username string) (model.RemoveUserResult, error)
	// ReleaseMember drops a name from the room's member set without any
	// cascade. Used as the first step of a username change.
	ReleaseMember(ctx context.Context, roomNumber int64, username string) error
	// ReinstateMember re-adds a membership under a new name and moves
	// room ownership to it if the old name held it.
	ReinstateMember(ctx context.Context, roomNumber int64, oldName, newName string) error
}

// Service is the identity directory.
type Service struct {
	store  store.Store
	scores *ranking.Index
	clock  clock.Clock
	logger *slog.Logger
	rooms  Rooms
}

// New creates the identity directory. BindRooms must be called before
// any operation that can touch room membership.
func New(st store.Store, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		store:  st,
		scores: ranking.New(st, store.UserPoolKey),
		clock:  clk,
		logger: logger,
	}
}

// BindRooms attaches the room directory after construction.
func (s *Service) BindRooms(rooms Rooms) {
	s.rooms = rooms
}

// Scores exposes the message-count ranking index.
func (s *Service) Scores() *ranking.Index {
	return s.scores
}

// Create registers a new user with all flags clear, message count 0,
// and no room.
func (s *Service) Create(ctx context.Context, name, password string) error {
	exists, err := s.store.Exists(ctx, store.UserKey(name))
	if err != nil {
		return err
	}
	if exists {
		return model.ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	// Ranking entry first: it is idempotent at score 0, and the record
	// is the existence marker, so a retried create converges.
	if err := s.scores.Set(ctx, name, 0); err != nil {
		return err
	}
	return s.store.RecordSet(ctx, store.UserKey(name), map[string]string{
		fieldPassword:     string(hash),
		fieldConnectionID: "0",
		fieldLoginFlag:    "0",
		fieldDummyFlag:    "0",
		fieldBlockFlag:    "0",
		fieldSuspendUntil: "0",
		fieldRoomNumber:   "0",
	})
}

// Delete removes a user and every index entry referring to them. The
// user is first evicted from their room; if that eviction fails the
// deletion aborts rather than leave dangling room references.
func (s *Service) Delete(ctx context.Context, name, password string) error {
	if err := s.authenticate(ctx, name, password); err != nil {
		return err
	}

	roomNumber, err := s.getInt(ctx, name, fieldRoomNumber)
	if err != nil {
		return err
	}
	if roomNumber != 0 {
		if _, err := s.rooms.RemoveUser(ctx, roomNumber, name); err != nil {
			return fmt.Errorf("evicting %q from room %d: %w", name, roomNumber, err)
		}
	}

	// Pool removals are idempotent; the record goes last so a retry
	// still sees the user and redoes the cleanup.
	if err := s.store.SetRemove(ctx, store.LoginPoolKey, name); err != nil {
		return err
	}
	if err := s.store.SetRemove(ctx, store.DummyPoolKey, name); err != nil {
		return err
	}
	if err := s.store.SetRemove(ctx, store.LobbyPoolKey, name); err != nil {
		return err
	}
	if err := s.scores.Remove(ctx, name); err != nil {
		return err
	}
	return s.store.Delete(ctx, store.UserKey(name))
}

// Login authenticates and marks a user present. Logging in over an
// existing session is an override: the result carries the previous
// connection ID so the protocol layer can terminate the stale session.
func (s *Service) Login(ctx context.Context, name, password string, connectionID int64, dummy bool) (model.LoginResult, error) {
	var res model.LoginResult

	if err := s.authenticate(ctx, name, password); err != nil {
		return res, err
	}
	status, err := s.CheckBlock(ctx, name)
	if err != nil {
		return res, err
	}
	if status.Blocked() {
		return res, model.ErrSuspended
	}

	loggedIn, err := s.getBool(ctx, name, fieldLoginFlag)
	if err != nil {
		return res, err
	}
	if loggedIn {
		prev, err := s.getInt(ctx, name, fieldConnectionID)
		if err != nil {
			return res, err
		}
		res.SessionReplaced = true
		res.PreviousConnectionID = prev

		wasDummy, err := s.getBool(ctx, name, fieldDummyFlag)
		if err != nil {
			return res, err
		}
		if err := s.store.SetRemove(ctx, presencePool(wasDummy), name); err != nil {
			return res, err
		}
	}

	roomNumber, err := s.getInt(ctx, name, fieldRoomNumber)
	if err != nil {
		return res, err
	}
	if roomNumber != 0 {
		if _, err := s.rooms.RemoveUser(ctx, roomNumber, name); err != nil {
			return res, fmt.Errorf("evicting %q from room %d: %w", name, roomNumber, err)
		}
	}

	if err := s.store.SetAdd(ctx, presencePool(dummy), name); err != nil {
		return res, err
	}
	if err := s.store.SetAdd(ctx, store.LobbyPoolKey, name); err != nil {
		return res, err
	}
	if err := s.store.RecordSet(ctx, store.UserKey(name), map[string]string{
		fieldLoginFlag:    "1",
		fieldDummyFlag:    boolField(dummy),
		fieldConnectionID: strconv.FormatInt(connectionID, 10),
		fieldRoomNumber:   "0",
	}); err != nil {
		return res, err
	}

	s.logger.Debug("user logged in",
		slog.String("user", name),
		slog.Bool("dummy", dummy),
		slog.Bool("replaced", res.SessionReplaced))
	return res, nil
}

// Logout clears a user's presence. A logout of a user who is not logged
// in is reported as model.ErrNotLoggedIn.
func (s *Service) Logout(ctx context.Context, name string) error {
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return model.ErrUserNotFound
	}

	loggedIn, err := s.getBool(ctx, name, fieldLoginFlag)
	if err != nil {
		return err
	}
	if !loggedIn {
		return model.ErrNotLoggedIn
	}

	// A user sits in either their room's member set or the lobby,
	// never both; the room eviction parks them in the lobby first.
	roomNumber, err := s.getInt(ctx, name, fieldRoomNumber)
	if err != nil {
		return err
	}
	if roomNumber != 0 {
		if _, err := s.rooms.RemoveUser(ctx, roomNumber, name); err != nil {
			return fmt.Errorf("evicting %q from room %d: %w", name, roomNumber, err)
		}
	}

	dummy, err := s.getBool(ctx, name, fieldDummyFlag)
	if err != nil {
		return err
	}
	if err := s.store.SetRemove(ctx, presencePool(dummy), name); err != nil {
		return err
	}
	if err := s.store.SetRemove(ctx, store.LobbyPoolKey, name); err != nil {
		return err
	}
	return s.store.RecordSet(ctx, store.UserKey(name), map[string]string{
		fieldLoginFlag:    "0",
		fieldDummyFlag:    "0",
		fieldConnectionID: "0",
		fieldRoomNumber:   "0",
	})
}

// ChangeUsername renames a user across every structure that knows the
// old name: room membership, the attribute record, the message-count
// index, and the presence pools. The order is removal before rename
// before recreate, so no step observes a name that is both old and new.
func (s *Service) ChangeUsername(ctx context.Context, name, password, newName string) error {
	if err := s.authenticate(ctx, name, password); err != nil {
		return err
	}
	status, err := s.CheckBlock(ctx, name)
	if err != nil {
		return err
	}
	if status.Blocked() {
		return model.ErrSuspended
	}
	if newName == name {
		return model.ErrUnchanged
	}
	taken, err := s.store.Exists(ctx, store.UserKey(newName))
	if err != nil {
		return err
	}
	if taken {
		return model.ErrUserExists
	}

	loggedIn, err := s.getBool(ctx, name, fieldLoginFlag)
	if err != nil {
		return err
	}
	dummy, err := s.getBool(ctx, name, fieldDummyFlag)
	if err != nil {
		return err
	}
	roomNumber, err := s.getInt(ctx, name, fieldRoomNumber)
	if err != nil {
		return err
	}

	if roomNumber != 0 {
		if err := s.rooms.ReleaseMember(ctx, roomNumber, name); err != nil {
			return err
		}
	}
	if err := s.store.Rename(ctx, store.UserKey(name), store.UserKey(newName)); err != nil {
		return err
	}
	if roomNumber != 0 {
		if err := s.rooms.ReinstateMember(ctx, roomNumber, name, newName); err != nil {
			return err
		}
	}
	if err := s.scores.Migrate(ctx, name, newName); err != nil {
		return err
	}

	if loggedIn {
		if err := s.migratePool(ctx, presencePool(dummy), name, newName); err != nil {
			return err
		}
		if roomNumber == 0 {
			if err := s.migratePool(ctx, store.LobbyPoolKey, name, newName); err != nil {
				return err
			}
		}
	}

	s.logger.Debug("username changed",
		slog.String("from", name), slog.String("to", newName))
	return nil
}

// ChangePassword replaces a user's credential.
func (s *Service) ChangePassword(ctx context.Context, name, password, newPassword string) error {
	if err := s.authenticate(ctx, name, password); err != nil {
		return err
	}
	status, err := s.CheckBlock(ctx, name)
	if err != nil {
		return err
	}
	if status.Blocked() {
		return model.ErrSuspended
	}
	if newPassword == password {
		return model.ErrUnchanged
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.store.RecordSet(ctx, store.UserKey(name), map[string]string{
		fieldPassword: string(hash),
	})
}

// ChangeConnectionID replaces the transient session handle.
func (s *Service) ChangeConnectionID(ctx context.Context, name, password string, connectionID int64) error {
	if err := s.authenticate(ctx, name, password); err != nil {
		return err
	}
	status, err := s.CheckBlock(ctx, name)
	if err != nil {
		return err
	}
	if status.Blocked() {
		return model.ErrSuspended
	}
	current, err := s.getInt(ctx, name, fieldConnectionID)
	if err != nil {
		return err
	}
	if current == connectionID {
		return model.ErrUnchanged
	}
	return s.store.RecordSet(ctx, store.UserKey(name), map[string]string{
		fieldConnectionID: strconv.FormatInt(connectionID, 10),
	})
}

// Block suspends a user for the given number of minutes. A still-active
// suspension is extended from its current expiry; an expired or absent
// one starts from now.
func (s *Service) Block(ctx context.Context, name string, minutes int64) error {
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return model.ErrUserNotFound
	}

	now := s.clock.Now()
	base := now
	blocked, err := s.getBool(ctx, name, fieldBlockFlag)
	if err != nil {
		return err
	}
	if blocked {
		until, err := s.getInt(ctx, name, fieldSuspendUntil)
		if err != nil {
			return err
		}
		if expiry := time.Unix(until, 0); expiry.After(now) {
			base = expiry
		}
	}

	until := base.Add(time.Duration(minutes) * time.Minute)
	return s.store.RecordSet(ctx, store.UserKey(name), map[string]string{
		fieldBlockFlag:    "1",
		fieldSuspendUntil: strconv.FormatInt(until.Unix(), 10),
	})
}

// Unblock lifts a suspension. Reports model.ErrNotSuspended when none
// is recorded.
func (s *Service) Unblock(ctx context.Context, name string) error {
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return model.ErrUserNotFound
	}

	blocked, err := s.getBool(ctx, name, fieldBlockFlag)
	if err != nil {
		return err
	}
	if !blocked {
		return model.ErrNotSuspended
	}
	return s.clearBlock(ctx, name)
}

// CheckBlock reports a user's suspension state. Expiry is lazy: a
// recorded suspension whose deadline has passed is cleared by this
// check and reported as model.BlockCleared, so callers can distinguish
// "still blocked", "never blocked", and "just unblocked".
func (s *Service) CheckBlock(ctx context.Context, name string) (model.BlockStatus, error) {
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return model.BlockStatus{}, err
	}
	if !exists {
		return model.BlockStatus{}, model.ErrUserNotFound
	}

	blocked, err := s.getBool(ctx, name, fieldBlockFlag)
	if err != nil {
		return model.BlockStatus{}, err
	}
	if !blocked {
		return model.BlockStatus{State: model.BlockNone}, nil
	}

	until, err := s.getInt(ctx, name, fieldSuspendUntil)
	if err != nil {
		return model.BlockStatus{}, err
	}
	expiry := time.Unix(until, 0)
	if expiry.After(s.clock.Now()) {
		return model.BlockStatus{State: model.BlockActive, Until: expiry}, nil
	}

	if err := s.clearBlock(ctx, name); err != nil {
		return model.BlockStatus{}, err
	}
	return model.BlockStatus{State: model.BlockCleared}, nil
}

// AddMessageCount adjusts a user's message count by delta, flooring the
// result at zero, and returns the new count. The floor makes this a
// read-modify-write, not a bare increment; concurrent callers on the
// same user race last-writer-wins.
func (s *Service) AddMessageCount(ctx context.Context, name string, delta int64) (int64, error) {
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, model.ErrUserNotFound
	}

	current, _, err := s.scores.Score(ctx, name)
	if err != nil {
		return 0, err
	}
	next := current + delta
	if next < 0 {
		next = 0
	}
	if err := s.scores.Set(ctx, name, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Exists reports whether a user is registered.
func (s *Service) Exists(ctx context.Context, name string) (bool, error) {
	return s.store.Exists(ctx, store.UserKey(name))
}

// Get assembles a snapshot of a user's directory state.
func (s *Service) Get(ctx context.Context, name string) (*model.User, error) {
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, model.ErrUserNotFound
	}

	u := &model.User{Name: name}
	if u.LoggedIn, err = s.getBool(ctx, name, fieldLoginFlag); err != nil {
		return nil, err
	}
	if u.Dummy, err = s.getBool(ctx, name, fieldDummyFlag); err != nil {
		return nil, err
	}
	if u.ConnectionID, err = s.getInt(ctx, name, fieldConnectionID); err != nil {
		return nil, err
	}
	if u.RoomNumber, err = s.getInt(ctx, name, fieldRoomNumber); err != nil {
		return nil, err
	}
	if u.Blocked, err = s.getBool(ctx, name, fieldBlockFlag); err != nil {
		return nil, err
	}
	until, err := s.getInt(ctx, name, fieldSuspendUntil)
	if err != nil {
		return nil, err
	}
	if until != 0 {
		u.SuspendUntil = time.Unix(until, 0)
	}
	u.MessageCount, _, err = s.scores.Score(ctx, name)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ConnectionID returns the user's current session handle.
func (s *Service) ConnectionID(ctx context.Context, name string) (int64, error) {
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, model.ErrUserNotFound
	}
	return s.getInt(ctx, name, fieldConnectionID)
}

// RoomNumber returns the room a user currently sits in, 0 for the
// lobby.
func (s *Service) RoomNumber(ctx context.Context, name string) (int64, error) {
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, model.ErrUserNotFound
	}
	return s.getInt(ctx, name, fieldRoomNumber)
}

// MessageCount returns the user's score in the message-count index.
func (s *Service) MessageCount(ctx context.Context, name string) (int64, error) {
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, model.ErrUserNotFound
	}
	count, _, err := s.scores.Score(ctx, name)
	return count, err
}

// Rank returns the user's 1-based message-count rank.
func (s *Service) Rank(ctx context.Context, name string) (int64, error) {
	rank, ok, err := s.scores.Rank(ctx, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, model.ErrUserNotFound
	}
	return rank, nil
}

// Top returns the n highest message counts with their users.
func (s *Service) Top(ctx context.Context, n int64) ([]store.Entry, error) {
	return s.scores.Top(ctx, n)
}

// TopLoggedIn returns the n highest-ranked users currently in the login
// pool. Scores carry the intersect query's +1 bias; subtract one before
// display.
func (s *Service) TopLoggedIn(ctx context.Context, n int64) ([]store.Entry, error) {
	return s.scores.TopIntersecting(ctx, store.LoginPoolKey, n)
}

// EnterRoom records a user's move from the lobby into a room. Driven by
// the room directory; membership-set updates stay on its side.
func (s *Service) EnterRoom(ctx context.Context, name string, roomNumber int64) error {
	if err := s.store.SetRemove(ctx, store.LobbyPoolKey, name); err != nil {
		return err
	}
	return s.store.RecordSet(ctx, store.UserKey(name), map[string]string{
		fieldRoomNumber: strconv.FormatInt(roomNumber, 10),
	})
}

// LeaveRoom records a user's move back to the lobby. Driven by the room
// directory. The lobby holds logged-in users only.
func (s *Service) LeaveRoom(ctx context.Context, name string) error {
	loggedIn, err := s.getBool(ctx, name, fieldLoginFlag)
	if err != nil {
		return err
	}
	if loggedIn {
		if err := s.store.SetAdd(ctx, store.LobbyPoolKey, name); err != nil {
			return err
		}
	}
	return s.store.RecordSet(ctx, store.UserKey(name), map[string]string{
		fieldRoomNumber: "0",
	})
}

// authenticate verifies a credential. An absent user reports
// model.ErrUserNotFound; any mismatch reports model.ErrAuthFailed with
// no finer detail. bcrypt provides the constant-shape comparison.
func (s *Service) authenticate(ctx context.Context, name, password string) error {
	hash, ok, err := s.store.RecordGet(ctx, store.UserKey(name), fieldPassword)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrUserNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return model.ErrAuthFailed
	}
	return nil
}

func (s *Service) clearBlock(ctx context.Context, name string) error {
	return s.store.RecordSet(ctx, store.UserKey(name), map[string]string{
		fieldBlockFlag:    "0",
		fieldSuspendUntil: "0",
	})
}

func (s *Service) migratePool(ctx context.Context, pool, oldName, newName string) error {
	if err := s.store.SetRemove(ctx, pool, oldName); err != nil {
		return err
	}
	return s.store.SetAdd(ctx, pool, newName)
}

func (s *Service) getInt(ctx context.Context, name, field string) (int64, error) {
	val, ok, err := s.store.RecordGet(ctx, store.UserKey(name), field)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: user %q field %s holds %q", model.ErrInconsistent, name, field, val)
	}
	return n, nil
}

func (s *Service) getBool(ctx context.Context, name, field string) (bool, error) {
	val, ok, err := s.store.RecordGet(ctx, store.UserKey(name), field)
	if err != nil || !ok {
		return false, err
	}
	return val == "1", nil
}

func presencePool(dummy bool) string {
	if dummy {
		return store.DummyPoolKey
	}
	return store.LoginPoolKey
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
