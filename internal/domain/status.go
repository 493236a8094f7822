package domain

import (
	"fmt"
	"strings"
)

type FlightStatus string

const (
	FlightStatusPending    FlightStatus = "PENDING"
	FlightStatusApproved   FlightStatus = "APPROVED"
	FlightStatusRejected   FlightStatus = "REJECTED"
	FlightStatusInProgress FlightStatus = "IN_PROGRESS"
	FlightStatusCancelled  FlightStatus = "CANCELLED"
	FlightStatusCompleted  FlightStatus = "COMPLETED"
)

// FlightStatuses lists every status in lifecycle order.
var FlightStatuses = []FlightStatus{
	FlightStatusPending,
	FlightStatusApproved,
	FlightStatusRejected,
	FlightStatusInProgress,
	FlightStatusCancelled,
	FlightStatusCompleted,
}

// ParseFlightStatus accepts the canonical upper-case names, case-insensitively.
func ParseFlightStatus(s string) (FlightStatus, error) {
	candidate := FlightStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, status := range FlightStatuses {
		if status == candidate {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: unknown flight status %q", ErrInvalidInput, s)
}

// Terminal reports whether no admin-driven transition leaves the status.
func (s FlightStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// TransitionTrigger says who is allowed to drive a transition.
type TransitionTrigger int

const (
	// TriggerAdmin transitions are requested by an administrator.
	TriggerAdmin TransitionTrigger = iota + 1
	// TriggerClock transitions happen when wall-clock time passes a flight's schedule.
	TriggerClock
)

func (t TransitionTrigger) String() string {
	switch t {
	case TriggerAdmin:
		return "admin"
	case TriggerClock:
		return "clock"
	default:
		return "unknown"
	}
}

// transitions is the complete legal-transition table. A (from, to) pair missing
// from it is illegal for every trigger.
var transitions = map[FlightStatus]map[FlightStatus]TransitionTrigger{
	FlightStatusPending: {
		FlightStatusApproved: TriggerAdmin,
		FlightStatusRejected: TriggerAdmin,
	},
	FlightStatusApproved: {
		FlightStatusInProgress: TriggerClock,
		FlightStatusCancelled:  TriggerAdmin,
	},
	FlightStatusInProgress: {
		FlightStatusCompleted: TriggerClock,
	},
	FlightStatusRejected:  {},
	FlightStatusCancelled: {},
	FlightStatusCompleted: {},
}

// TransitionRequest is a single requested status change.
type TransitionRequest struct {
	From            FlightStatus
	To              FlightStatus
	Trigger         TransitionTrigger
	RejectionReason string
}

// ValidateTransition checks a request against the transition table. Every
// failure wraps ErrInvalidTransition.
func ValidateTransition(req TransitionRequest) error {
	if req.To == FlightStatusRejected && strings.TrimSpace(req.RejectionReason) == "" {
		return fmt.Errorf("%w: rejection reason is required", ErrInvalidTransition)
	}
	if req.From == FlightStatusCompleted || req.From == FlightStatusCancelled {
		if req.To == FlightStatusApproved || req.To == FlightStatusRejected {
			return fmt.Errorf("%w: %s flight cannot become %s", ErrInvalidTransition, req.From, req.To)
		}
	}

	targets, ok := transitions[req.From]
	if !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, req.From)
	}
	trigger, ok := targets[req.To]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.From, req.To)
	}
	if trigger != req.Trigger {
		return fmt.Errorf("%w: %s -> %s is %s-driven", ErrInvalidTransition, req.From, req.To, trigger)
	}
	return nil
}
