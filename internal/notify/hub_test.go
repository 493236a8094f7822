package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func assertNothing(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case ev := <-sub.Events:
		t.Fatalf("unexpected event %s", ev.Name)
	default:
	}
}

func TestHub_SubscribeJoinsRoleRooms(t *testing.T) {
	h := NewHub(4, nil)

	admin := h.Subscribe(RoleAdministrator, 1)
	manager := h.Subscribe(RoleManager, 7)
	user := h.Subscribe(RoleUser, 42)

	assert.ElementsMatch(t, []string{AdminRoom, ManagerRoom(1)}, h.Rooms(admin.ID))
	assert.ElementsMatch(t, []string{ManagerRoom(7)}, h.Rooms(manager.ID))
	assert.Empty(t, h.Rooms(user.ID))
}

func TestHub_JoinRules(t *testing.T) {
	h := NewHub(4, nil)
	admin := h.Subscribe(RoleAdministrator, 1)
	manager := h.Subscribe(RoleManager, 7)
	user := h.Subscribe(RoleUser, 42)

	assert.ErrorIs(t, h.Join(user.ID, AdminRoom), ErrRoomForbidden)
	assert.ErrorIs(t, h.Join(manager.ID, AdminRoom), ErrRoomForbidden)
	assert.ErrorIs(t, h.Join(manager.ID, ManagerRoom(8)), ErrRoomForbidden)
	assert.ErrorIs(t, h.Join(user.ID, ManagerRoom(42)), ErrRoomForbidden)
	assert.ErrorIs(t, h.Join(user.ID, "lobby"), ErrRoomForbidden)
	assert.ErrorIs(t, h.Join("ghost", FlightRoom(1)), ErrUnknownSubscriber)

	assert.NoError(t, h.Join(admin.ID, ManagerRoom(8)))
	assert.NoError(t, h.Join(user.ID, FlightRoom(3)))
}

func TestHub_EmitOnlyReachesRoomMembers(t *testing.T) {
	ctx := context.Background()
	h := NewHub(4, nil)
	watcher := h.Subscribe(RoleUser, 1)
	other := h.Subscribe(RoleUser, 2)
	require.NoError(t, h.Join(watcher.ID, FlightRoom(5)))

	require.NoError(t, h.Emit(ctx, FlightRoom(5), Event{Name: EventFlightStarted}))
	ev := receive(t, watcher)
	assert.Equal(t, EventFlightStarted, ev.Name)
	assert.Equal(t, FlightRoom(5), ev.Room)
	assertNothing(t, other)

	require.NoError(t, h.Leave(watcher.ID, FlightRoom(5)))
	require.NoError(t, h.Emit(ctx, FlightRoom(5), Event{Name: EventFlightCompleted}))
	assertNothing(t, watcher)

	require.NoError(t, h.Broadcast(ctx, Event{Name: EventFlightCancelled}))
	assert.Equal(t, EventFlightCancelled, receive(t, watcher).Name)
	assert.Equal(t, EventFlightCancelled, receive(t, other).Name)
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	ctx := context.Background()
	h := NewHub(1, nil)
	sub := h.Subscribe(RoleUser, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = h.Broadcast(ctx, Event{Name: EventFlightStarted})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full subscriber")
	}
	receive(t, sub)
	assertNothing(t, sub)
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := NewHub(1, nil)
	sub := h.Subscribe(RoleManager, 3)
	h.Unsubscribe(sub.ID)
	h.Unsubscribe(sub.ID)

	_, ok := <-sub.Events
	assert.False(t, ok)
	assert.Nil(t, h.Rooms(sub.ID))
	assert.NoError(t, h.Emit(context.Background(), ManagerRoom(3), Event{Name: EventFlightStatusUpdated}))
}
