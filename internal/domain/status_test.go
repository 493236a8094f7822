package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTransition_Table(t *testing.T) {
	testCases := []struct {
		name    string
		req     TransitionRequest
		wantErr bool
	}{
		{"approve pending", TransitionRequest{From: FlightStatusPending, To: FlightStatusApproved, Trigger: TriggerAdmin}, false},
		{"reject pending with reason", TransitionRequest{From: FlightStatusPending, To: FlightStatusRejected, Trigger: TriggerAdmin, RejectionReason: "crew"}, false},
		{"cancel approved", TransitionRequest{From: FlightStatusApproved, To: FlightStatusCancelled, Trigger: TriggerAdmin}, false},
		{"auto start", TransitionRequest{From: FlightStatusApproved, To: FlightStatusInProgress, Trigger: TriggerClock}, false},
		{"auto complete", TransitionRequest{From: FlightStatusInProgress, To: FlightStatusCompleted, Trigger: TriggerClock}, false},

		{"admin cannot start", TransitionRequest{From: FlightStatusApproved, To: FlightStatusInProgress, Trigger: TriggerAdmin}, true},
		{"clock cannot approve", TransitionRequest{From: FlightStatusPending, To: FlightStatusApproved, Trigger: TriggerClock}, true},
		{"pending cannot complete", TransitionRequest{From: FlightStatusPending, To: FlightStatusCompleted, Trigger: TriggerClock}, true},
		{"rejected is terminal", TransitionRequest{From: FlightStatusRejected, To: FlightStatusApproved, Trigger: TriggerAdmin}, true},
		{"in progress cannot be cancelled", TransitionRequest{From: FlightStatusInProgress, To: FlightStatusCancelled, Trigger: TriggerAdmin}, true},
		{"unknown source", TransitionRequest{From: "BOARDING", To: FlightStatusApproved, Trigger: TriggerAdmin}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTransition(tc.req)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTransition_RejectRequiresReason(t *testing.T) {
	for _, reason := range []string{"", "   "} {
		err := ValidateTransition(TransitionRequest{
			From:            FlightStatusPending,
			To:              FlightStatusRejected,
			Trigger:         TriggerAdmin,
			RejectionReason: reason,
		})
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Contains(t, err.Error(), "rejection reason")
	}
}

func TestValidateTransition_NothingReentersApprovalFromFinalStates(t *testing.T) {
	for _, from := range []FlightStatus{FlightStatusCompleted, FlightStatusCancelled} {
		for _, to := range []FlightStatus{FlightStatusApproved, FlightStatusRejected} {
			for _, trigger := range []TransitionTrigger{TriggerAdmin, TriggerClock} {
				err := ValidateTransition(TransitionRequest{From: from, To: to, Trigger: trigger, RejectionReason: "late"})
				assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s (%s)", from, to, trigger)
			}
		}
	}
}

func TestFlightStatus_Terminal(t *testing.T) {
	assert.True(t, FlightStatusRejected.Terminal())
	assert.True(t, FlightStatusCancelled.Terminal())
	assert.True(t, FlightStatusCompleted.Terminal())
	assert.False(t, FlightStatusPending.Terminal())
	assert.False(t, FlightStatusApproved.Terminal())
	assert.False(t, FlightStatusInProgress.Terminal())
}

func TestParseFlightStatus(t *testing.T) {
	status, err := ParseFlightStatus("in_progress")
	assert.NoError(t, err)
	assert.Equal(t, FlightStatusInProgress, status)

	_, err = ParseFlightStatus("boarding")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
