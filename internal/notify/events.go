package notify

import (
	"fmt"
	"time"

	"github.com/Domenick1991/skyreserve/internal/domain"
)

const (
	EventNewFlightPending    = "new-flight-pending"
	EventFlightStatusUpdated = "flight-status-updated"
	EventFlightCancelled     = "flight-cancelled"
	EventFlightStarted       = "flight-started"
	EventFlightCompleted     = "flight-completed"
)

const AdminRoom = "admins"

func ManagerRoom(managerID int64) string { return fmt.Sprintf("manager:%d", managerID) }

func FlightRoom(flightID int64) string { return fmt.Sprintf("flight:%d", flightID) }

// FlightNotice is the payload every lifecycle event carries.
type FlightNotice struct {
	FlightID        int64     `json:"flight_id"`
	FlightName      string    `json:"flight_name"`
	Status          string    `json:"status"`
	DepartureTime   time.Time `json:"departure_time"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	AffectedUserIDs []int64   `json:"affected_user_ids,omitempty"`
}

func NoticeFor(f domain.Flight) FlightNotice {
	n := FlightNotice{
		FlightID:      f.ID,
		FlightName:    f.Name,
		Status:        string(f.Status),
		DepartureTime: f.DepartureTime,
	}
	if f.RejectionReason != nil {
		n.RejectionReason = *f.RejectionReason
	}
	return n
}

// Event is one message delivered to a room or broadcast. Room is empty for
// broadcasts.
type Event struct {
	Name   string       `json:"event"`
	Room   string       `json:"room,omitempty"`
	Notice FlightNotice `json:"data"`
	At     time.Time    `json:"at"`
}
