package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Domenick1991/skyreserve/internal/telemetry"
	"github.com/google/uuid"
)

type Role string

const (
	RoleUser          Role = "USER"
	RoleManager       Role = "MANAGER"
	RoleAdministrator Role = "ADMINISTRATOR"
)

var (
	ErrUnknownSubscriber = errors.New("unknown subscriber")
	ErrRoomForbidden     = errors.New("room not allowed for subscriber")
)

const DefaultBuffer = 32

// Subscription is one live connection. Events is closed on Unsubscribe.
type Subscription struct {
	ID     string
	Role   Role
	UserID int64
	Events <-chan Event
}

type subscriber struct {
	Subscription
	ch    chan Event
	rooms map[string]struct{}
}

// Hub keeps live subscribers grouped by room and delivers events to them
// without blocking: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*subscriber
	rooms  map[string]map[string]*subscriber
	buffer int
	logger *slog.Logger
}

func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[string]*subscriber),
		rooms:  make(map[string]map[string]*subscriber),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a connection and joins the rooms its role grants:
// administrators get the admins room, managers and administrators their own
// manager room.
func (h *Hub) Subscribe(role Role, userID int64) *Subscription {
	ch := make(chan Event, h.buffer)
	s := &subscriber{
		Subscription: Subscription{ID: uuid.NewString(), Role: role, UserID: userID, Events: ch},
		ch:           ch,
		rooms:        make(map[string]struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[s.ID] = s
	if role == RoleAdministrator {
		h.joinLocked(s, AdminRoom)
	}
	if (role == RoleManager || role == RoleAdministrator) && userID > 0 {
		h.joinLocked(s, ManagerRoom(userID))
	}
	telemetry.Subscribers.Set(float64(len(h.subs)))
	return &s.Subscription
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.subs[id]
	if !ok {
		return
	}
	for room := range s.rooms {
		h.leaveLocked(s, room)
	}
	delete(h.subs, id)
	close(s.ch)
	telemetry.Subscribers.Set(float64(len(h.subs)))
}

func (h *Hub) Join(id, room string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.subs[id]
	if !ok {
		return ErrUnknownSubscriber
	}
	if !allowed(s, room) {
		return fmt.Errorf("%w: %s", ErrRoomForbidden, room)
	}
	h.joinLocked(s, room)
	return nil
}

func (h *Hub) Leave(id, room string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.subs[id]
	if !ok {
		return ErrUnknownSubscriber
	}
	h.leaveLocked(s, room)
	return nil
}

func allowed(s *subscriber, room string) bool {
	switch {
	case room == AdminRoom:
		return s.Role == RoleAdministrator
	case strings.HasPrefix(room, "manager:"):
		if s.Role == RoleAdministrator {
			return true
		}
		return s.Role == RoleManager && room == ManagerRoom(s.UserID)
	case strings.HasPrefix(room, "flight:"):
		return true
	default:
		return false
	}
}

func (h *Hub) joinLocked(s *subscriber, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*subscriber)
		h.rooms[room] = members
	}
	members[s.ID] = s
	s.rooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(s *subscriber, room string) {
	delete(s.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, s.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Rooms lists the rooms a subscriber is in.
func (h *Hub) Rooms(id string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.subs[id]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, len(s.rooms))
	for room := range s.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

func (h *Hub) Emit(_ context.Context, room string, ev Event) error {
	ev.Room = room
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.rooms[room] {
		h.deliver(s, ev)
	}
	return nil
}

func (h *Hub) Broadcast(_ context.Context, ev Event) error {
	ev.Room = ""
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		h.deliver(s, ev)
	}
	return nil
}

func (h *Hub) deliver(s *subscriber, ev Event) {
	select {
	case s.ch <- ev:
	default:
		telemetry.NotificationsDropped.Inc()
		h.logger.Warn("dropping event for slow subscriber", slog.String("subscriber", s.ID), slog.String("event", ev.Name))
	}
}

var _ Sink = (*Hub)(nil)
