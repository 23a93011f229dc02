// Package room implements the room directory: room records, membership,
// ownership transfer, and cascading deletion. A room with zero members
// does not exist; the operation that removes the last member tears the
// room down.
package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sembrant/chatdir/internal/directory/host"
	"github.com/sembrant/chatdir/internal/directory/user"
	"github.com/sembrant/chatdir/internal/model"
	"github.com/sembrant/chatdir/internal/ranking"
	"github.com/sembrant/chatdir/internal/store"
)

// Fields of the Room:<n> attribute record.
const (
	fieldTitle    = "title"
	fieldOwner    = "owner"
	fieldServerID = "serverID"
)

// Service is the room directory.
type Service struct {
	store  store.Store
	users  *user.Service
	hosts  *host.Service
	pops   *ranking.Index
	logger *slog.Logger
}

// New creates the room directory.
func New(st store.Store, users *user.Service, hosts *host.Service, logger *slog.Logger) *Service {
	return &Service{
		store:  st,
		users:  users,
		hosts:  hosts,
		pops:   ranking.New(st, store.RoomPoolKey),
		logger: logger,
	}
}

// Ensure the room directory satisfies the identity directory's needs
var _ user.Rooms = (*Service)(nil)

// Create registers a room and immediately adds its owner as the first
// member, so a room is never observable with zero members.
func (s *Service) Create(ctx context.Context, number int64, title, owner, serverID string) error {
	exists, err := s.Exists(ctx, number)
	if err != nil {
		return err
	}
	if exists {
		return model.ErrRoomExists
	}
	ownerExists, err := s.users.Exists(ctx, owner)
	if err != nil {
		return err
	}
	if !ownerExists {
		return model.ErrUserNotFound
	}

	if err := s.store.RecordSet(ctx, store.RoomKey(number), map[string]string{
		fieldTitle:    title,
		fieldOwner:    owner,
		fieldServerID: serverID,
	}); err != nil {
		return err
	}
	if err := s.hosts.AddRoom(ctx, serverID, number); err != nil {
		return err
	}
	return s.AddUser(ctx, number, owner)
}

// AddUser makes a user a member of a room: population up, member set,
// out of the lobby, room number recorded. A user sitting in another
// room is evicted from it first, with full cascades, so they are never
// in two member sets.
func (s *Service) AddUser(ctx context.Context, number int64, name string) error {
	exists, err := s.Exists(ctx, number)
	if err != nil {
		return err
	}
	if !exists {
		return model.ErrRoomNotFound
	}
	userExists, err := s.users.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !userExists {
		return model.ErrUserNotFound
	}
	member, err := s.store.SetContains(ctx, store.RoomContentsKey(number), name)
	if err != nil {
		return err
	}
	if member {
		return model.ErrAlreadyMember
	}

	current, err := s.users.RoomNumber(ctx, name)
	if err != nil {
		return err
	}
	if current != 0 && current != number {
		if _, err := s.RemoveUser(ctx, current, name); err != nil {
			return fmt.Errorf("evicting %q from room %d: %w", name, current, err)
		}
	}

	if _, err := s.pops.Incr(ctx, roomMember(number), 1); err != nil {
		return err
	}
	if err := s.store.SetAdd(ctx, store.RoomContentsKey(number), name); err != nil {
		return err
	}
	return s.users.EnterRoom(ctx, name, number)
}

// RemoveUser takes a user out of a room. When the last member leaves,
// the room is torn down and the result says so; a failed teardown
// returns the result with RoomDestroyed false alongside the error, so
// callers can tell it apart from teardown success (Purge recovers).
// When the departing member owned a still-populated room, an arbitrary
// remaining member becomes the owner.
func (s *Service) RemoveUser(ctx context.Context, number int64, name string) (model.RemoveUserResult, error) {
	var res model.RemoveUserResult

	exists, err := s.Exists(ctx, number)
	if err != nil {
		return res, err
	}
	if !exists {
		return res, model.ErrRoomNotFound
	}
	userExists, err := s.users.Exists(ctx, name)
	if err != nil {
		return res, err
	}
	if !userExists {
		return res, model.ErrUserNotFound
	}
	member, err := s.store.SetContains(ctx, store.RoomContentsKey(number), name)
	if err != nil {
		return res, err
	}
	if !member {
		return res, model.ErrNotMember
	}

	owner, _, err := s.store.RecordGet(ctx, store.RoomKey(number), fieldOwner)
	if err != nil {
		return res, err
	}

	// Population first: a phantom member still counted is the safer
	// partial state, never a room gone while members remain.
	population, err := s.pops.Incr(ctx, roomMember(number), -1)
	if err != nil {
		return res, err
	}
	if err := s.store.SetRemove(ctx, store.RoomContentsKey(number), name); err != nil {
		return res, err
	}
	if err := s.users.LeaveRoom(ctx, name); err != nil {
		return res, err
	}

	if population <= 0 {
		if err := s.destroy(ctx, number); err != nil {
			return res, fmt.Errorf("room %d teardown: %w", number, err)
		}
		res.RoomDestroyed = true
		return res, nil
	}

	if owner == name {
		replacement, ok, err := s.store.SetRandomMember(ctx, store.RoomContentsKey(number))
		if err != nil {
			return res, err
		}
		if !ok {
			// Counted population says members remain but the set is
			// empty. Surface loudly; never repair silently.
			s.logger.Error("room member set empty despite positive population",
				slog.Int64("room", number),
				slog.Int64("population", population))
			return res, fmt.Errorf("%w: room %d counts %d members but member set is empty",
				model.ErrInconsistent, number, population)
		}
		if err := s.store.RecordSet(ctx, store.RoomKey(number), map[string]string{
			fieldOwner: replacement,
		}); err != nil {
			return res, err
		}
		res.NewOwner = replacement
		s.logger.Debug("room ownership transferred",
			slog.Int64("room", number),
			slog.String("from", name),
			slog.String("to", replacement))
	}
	return res, nil
}

// Purge force-empties a room: every member is evicted, per-member
// failures are skipped, and the room is torn down afterwards if it
// still exists.
func (s *Service) Purge(ctx context.Context, number int64) (model.PurgeResult, error) {
	var res model.PurgeResult

	exists, err := s.Exists(ctx, number)
	if err != nil {
		return res, err
	}
	if !exists {
		return res, model.ErrRoomNotFound
	}

	members, err := s.store.SetMembers(ctx, store.RoomContentsKey(number))
	if err != nil {
		return res, err
	}
	for _, name := range members {
		if _, err := s.RemoveUser(ctx, number, name); err != nil {
			if errors.Is(err, model.ErrRoomNotFound) {
				// Removing an earlier member already destroyed the room.
				break
			}
			s.logger.Warn("purge: member removal failed, continuing",
				slog.Int64("room", number),
				slog.String("user", name),
				slog.String("error", err.Error()))
			res.Failed++
			continue
		}
		res.Removed++
	}

	exists, err = s.Exists(ctx, number)
	if err != nil {
		return res, err
	}
	if exists {
		if err := s.destroy(ctx, number); err != nil {
			return res, fmt.Errorf("room %d teardown: %w", number, err)
		}
	}
	return res, nil
}

// SetTitle changes a room's title. Writing the current title back is a
// distinct no-op.
func (s *Service) SetTitle(ctx context.Context, number int64, title string) error {
	current, err := s.Title(ctx, number)
	if err != nil {
		return err
	}
	if current == title {
		return model.ErrUnchanged
	}
	return s.store.RecordSet(ctx, store.RoomKey(number), map[string]string{
		fieldTitle: title,
	})
}

// SetOwner reassigns the room's owner to another current member.
func (s *Service) SetOwner(ctx context.Context, number int64, owner string) error {
	current, err := s.Owner(ctx, number)
	if err != nil {
		return err
	}
	if current == owner {
		return model.ErrUnchanged
	}
	member, err := s.store.SetContains(ctx, store.RoomContentsKey(number), owner)
	if err != nil {
		return err
	}
	if !member {
		return model.ErrNotMember
	}
	return s.store.RecordSet(ctx, store.RoomKey(number), map[string]string{
		fieldOwner: owner,
	})
}

// SetServerID moves a room between servers, rebalancing both servers'
// room sets and counts.
func (s *Service) SetServerID(ctx context.Context, number int64, serverID string) error {
	current, err := s.ServerID(ctx, number)
	if err != nil {
		return err
	}
	if current == serverID {
		return model.ErrUnchanged
	}
	if err := s.hosts.RemoveRoom(ctx, current, number); err != nil {
		return err
	}
	if err := s.hosts.AddRoom(ctx, serverID, number); err != nil {
		return err
	}
	return s.store.RecordSet(ctx, store.RoomKey(number), map[string]string{
		fieldServerID: serverID,
	})
}

// Exists reports whether a room is registered.
func (s *Service) Exists(ctx context.Context, number int64) (bool, error) {
	return s.store.Exists(ctx, store.RoomKey(number))
}

// IsMember reports whether a user is in a room's member set.
func (s *Service) IsMember(ctx context.Context, number int64, name string) (bool, error) {
	exists, err := s.Exists(ctx, number)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, model.ErrRoomNotFound
	}
	return s.store.SetContains(ctx, store.RoomContentsKey(number), name)
}

// Members returns a room's member usernames.
func (s *Service) Members(ctx context.Context, number int64) ([]string, error) {
	exists, err := s.Exists(ctx, number)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, model.ErrRoomNotFound
	}
	return s.store.SetMembers(ctx, store.RoomContentsKey(number))
}

// Title returns a room's title.
func (s *Service) Title(ctx context.Context, number int64) (string, error) {
	return s.field(ctx, number, fieldTitle)
}

// Owner returns a room's owner.
func (s *Service) Owner(ctx context.Context, number int64) (string, error) {
	return s.field(ctx, number, fieldOwner)
}

// ServerID returns the server hosting a room.
func (s *Service) ServerID(ctx context.Context, number int64) (string, error) {
	return s.field(ctx, number, fieldServerID)
}

// Population returns a room's member count from the population index.
func (s *Service) Population(ctx context.Context, number int64) (int64, error) {
	population, ok, err := s.pops.Score(ctx, roomMember(number))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, model.ErrRoomNotFound
	}
	return population, nil
}

// Rank returns a room's 1-based position by population.
func (s *Service) Rank(ctx context.Context, number int64) (int64, error) {
	rank, ok, err := s.pops.Rank(ctx, roomMember(number))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, model.ErrRoomNotFound
	}
	return rank, nil
}

// Top returns the n most populated rooms, with populations.
func (s *Service) Top(ctx context.Context, n int64) ([]store.Entry, error) {
	return s.pops.Top(ctx, n)
}

// Get assembles a snapshot of a room's directory state.
func (s *Service) Get(ctx context.Context, number int64) (*model.Room, error) {
	title, err := s.Title(ctx, number)
	if err != nil {
		return nil, err
	}
	owner, err := s.Owner(ctx, number)
	if err != nil {
		return nil, err
	}
	serverID, err := s.ServerID(ctx, number)
	if err != nil {
		return nil, err
	}
	population, err := s.Population(ctx, number)
	if err != nil {
		return nil, err
	}
	return &model.Room{
		Number:     number,
		Title:      title,
		Owner:      owner,
		ServerID:   serverID,
		Population: population,
	}, nil
}

// ReleaseMember drops a name from the member set with no cascades. Part
// of the username-change protocol; the identity directory re-adds the
// new name via ReinstateMember.
func (s *Service) ReleaseMember(ctx context.Context, number int64, name string) error {
	return s.store.SetRemove(ctx, store.RoomContentsKey(number), name)
}

// ReinstateMember re-adds a membership under a new name, carrying room
// ownership over when the old name held it.
func (s *Service) ReinstateMember(ctx context.Context, number int64, oldName, newName string) error {
	if err := s.store.SetAdd(ctx, store.RoomContentsKey(number), newName); err != nil {
		return err
	}
	owner, _, err := s.store.RecordGet(ctx, store.RoomKey(number), fieldOwner)
	if err != nil {
		return err
	}
	if owner == oldName {
		return s.store.RecordSet(ctx, store.RoomKey(number), map[string]string{
			fieldOwner: newName,
		})
	}
	return nil
}

// destroy tears a room down: server attribution, member-set key, the
// attribute record, and the population entry, in that order.
func (s *Service) destroy(ctx context.Context, number int64) error {
	serverID, ok, err := s.store.RecordGet(ctx, store.RoomKey(number), fieldServerID)
	if err != nil {
		return err
	}
	if ok {
		if err := s.hosts.RemoveRoom(ctx, serverID, number); err != nil {
			return err
		}
	}
	if err := s.store.Delete(ctx, store.RoomContentsKey(number)); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, store.RoomKey(number)); err != nil {
		return err
	}
	if err := s.pops.Remove(ctx, roomMember(number)); err != nil {
		return err
	}
	s.logger.Debug("room destroyed", slog.Int64("room", number))
	return nil
}

// field reads one attribute, mapping an absent room to ErrRoomNotFound.
func (s *Service) field(ctx context.Context, number int64, field string) (string, error) {
	val, ok, err := s.store.RecordGet(ctx, store.RoomKey(number), field)
	if err != nil {
		return "", err
	}
	if !ok {
		exists, err := s.Exists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return "", model.ErrRoomNotFound
		}
	}
	return val, nil
}

// roomMember is the room's member key in the population index.
func roomMember(number int64) string {
	return strconv.FormatInt(number, 10)
}
