// Package host implements the server directory: which server hosts
// which rooms, and the room-count ranking across servers. All mutation
// is driven by the room directory.
package host

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sembrant/chatdir/internal/model"
	"github.com/sembrant/chatdir/internal/ranking"
	"github.com/sembrant/chatdir/internal/store"
)

// Service is the server directory.
type Service struct {
	store  store.Store
	counts *ranking.Index
}

// New creates the server directory.
func New(st store.Store) *Service {
	return &Service{
		store:  st,
		counts: ranking.New(st, store.ServerPoolKey),
	}
}

// AddRoom attributes a room to a server. Driven by the room directory
// on room creation and server reassignment.
func (s *Service) AddRoom(ctx context.Context, serverID string, roomNumber int64) error {
	room := strconv.FormatInt(roomNumber, 10)
	if err := s.store.SetAdd(ctx, store.ServerKey(serverID), room); err != nil {
		return err
	}
	_, err := s.counts.Incr(ctx, serverID, 1)
	return err
}

// RemoveRoom detaches a room from a server. Driven by the room
// directory on room teardown and server reassignment.
func (s *Service) RemoveRoom(ctx context.Context, serverID string, roomNumber int64) error {
	room := strconv.FormatInt(roomNumber, 10)
	if err := s.store.SetRemove(ctx, store.ServerKey(serverID), room); err != nil {
		return err
	}
	count, err := s.counts.Incr(ctx, serverID, -1)
	if err != nil {
		return err
	}
	if count <= 0 {
		// A server hosting nothing drops out of the directory.
		if err := s.counts.Remove(ctx, serverID); err != nil {
			return err
		}
		return s.store.Delete(ctx, store.ServerKey(serverID))
	}
	return nil
}

// RoomCount returns how many rooms a server hosts.
func (s *Service) RoomCount(ctx context.Context, serverID string) (int64, error) {
	count, ok, err := s.counts.Score(ctx, serverID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, model.ErrServerNotFound
	}
	return count, nil
}

// Rooms returns the room numbers a server hosts.
func (s *Service) Rooms(ctx context.Context, serverID string) ([]int64, error) {
	exists, err := s.store.Exists(ctx, store.ServerKey(serverID))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, model.ErrServerNotFound
	}

	members, err := s.store.SetMembers(ctx, store.ServerKey(serverID))
	if err != nil {
		return nil, err
	}
	rooms := make([]int64, 0, len(members))
	for _, m := range members {
		n, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: server %q room set holds %q", model.ErrInconsistent, serverID, m)
		}
		rooms = append(rooms, n)
	}
	return rooms, nil
}

// Get assembles a snapshot of a server's directory state.
func (s *Service) Get(ctx context.Context, serverID string) (*model.Server, error) {
	count, err := s.RoomCount(ctx, serverID)
	if err != nil {
		return nil, err
	}
	rooms, err := s.Rooms(ctx, serverID)
	if err != nil {
		return nil, err
	}
	return &model.Server{ID: serverID, RoomCount: count, Rooms: rooms}, nil
}

// Rank returns a server's 1-based position by hosted-room count.
func (s *Service) Rank(ctx context.Context, serverID string) (int64, error) {
	rank, ok, err := s.counts.Rank(ctx, serverID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, model.ErrServerNotFound
	}
	return rank, nil
}

// Top returns the n servers hosting the most rooms, with counts.
func (s *Service) Top(ctx context.Context, n int64) ([]store.Entry, error) {
	return s.counts.Top(ctx, n)
}
