package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Domenick1991/skyreserve/internal/notify"
	"github.com/gin-gonic/gin"
)

// EventHub is the room registry behind the live event stream.
type EventHub interface {
	Subscribe(role notify.Role, userID int64) *notify.Subscription
	Unsubscribe(id string)
	Join(id, room string) error
	Leave(id, room string) error
	Rooms(id string) []string
}

type EventHandler struct {
	hub EventHub
}

type roomRequest struct {
	Room     string `json:"room"`
	FlightID int64  `json:"flight_id"`
}

func (r roomRequest) target() string {
	if r.Room != "" {
		return r.Room
	}
	if r.FlightID > 0 {
		return notify.FlightRoom(r.FlightID)
	}
	return ""
}

func NewEventHandler(hub EventHub) *EventHandler {
	return &EventHandler{hub: hub}
}

func (h *EventHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.stream)
	router.POST("/:subscriber/join", h.join)
	router.POST("/:subscriber/leave", h.leave)
}

// stream holds a server-sent events connection open. The first event,
// "subscribed", carries the subscriber id used to join and leave rooms.
func (h *EventHandler) stream(c *gin.Context) {
	role := notify.Role(strings.ToUpper(c.DefaultQuery("role", string(notify.RoleUser))))
	switch role {
	case notify.RoleUser, notify.RoleManager, notify.RoleAdministrator:
	default:
		badRequest(c, "unknown role")
		return
	}
	userID, ok := queryInt64(c, "user_id")
	if !ok {
		return
	}
	var flightRooms []string
	if raw := c.Query("flight_id"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || id <= 0 {
				badRequest(c, "invalid flight_id")
				return
			}
			flightRooms = append(flightRooms, notify.FlightRoom(id))
		}
	}

	sub := h.hub.Subscribe(role, userID)
	defer h.hub.Unsubscribe(sub.ID)
	for _, room := range flightRooms {
		_ = h.hub.Join(sub.ID, room)
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.SSEvent("subscribed", gin.H{"subscriber_id": sub.ID, "rooms": h.hub.Rooms(sub.ID)})
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events:
			if !ok {
				return
			}
			c.SSEvent(ev.Name, ev)
			c.Writer.Flush()
		}
	}
}

func (h *EventHandler) join(c *gin.Context) {
	h.membership(c, h.hub.Join)
}

func (h *EventHandler) leave(c *gin.Context) {
	h.membership(c, h.hub.Leave)
}

func (h *EventHandler) membership(c *gin.Context, op func(id, room string) error) {
	var req roomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	room := req.target()
	if room == "" {
		badRequest(c, "room or flight_id is required")
		return
	}

	id := c.Param("subscriber")
	switch err := op(id, room); {
	case errors.Is(err, notify.ErrUnknownSubscriber):
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, notify.ErrRoomForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Error: err.Error()})
	case err != nil:
		writeError(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{"subscriber_id": id, "rooms": h.hub.Rooms(id)})
	}
}
