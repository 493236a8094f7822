package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Domenick1991/skyreserve/internal/domain"
	"github.com/Domenick1991/skyreserve/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		err  error
		code int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrInvalidTransition, http.StatusConflict},
		{domain.ErrCapacityExceeded, http.StatusConflict},
		{domain.ErrDuplicateBooking, http.StatusConflict},
		{domain.ErrPastDeparture, http.StatusUnprocessableEntity},
		{domain.ErrBusinessRule, http.StatusUnprocessableEntity},
		{fmt.Errorf("insert booking: %w: %w", domain.ErrInternal, errors.New("disk full")), http.StatusInternalServerError},
		{errors.New("surprise"), http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.code, statusFor(tc.err), tc.err.Error())
	}
}

func newTestRouter(flightSvc *MockFlightUseCase, checks map[string]Checker) http.Handler {
	return NewRouter(RouterDeps{
		Flights:  flightSvc,
		Bookings: &MockBookingUseCase{},
		Hub:      notify.NewHub(1, nil),
		Checks:   checks,
	})
}

func TestRouter_routesAndHidesInternalErrors(t *testing.T) {
	flightSvc := &MockFlightUseCase{}
	flightSvc.On("GetByID", mock.Anything, int64(5)).Return(nil, fmt.Errorf("get flight: %w: %w", domain.ErrInternal, errors.New("conn reset")))
	router := newTestRouter(flightSvc, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/flights/5", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}

func TestRouter_operationalEndpoints(t *testing.T) {
	router := newTestRouter(&MockFlightUseCase{}, map[string]Checker{
		"store": func(context.Context) error { return nil },
	})

	for _, path := range []string{"/health/live", "/health/ready", "/metrics", swaggerDocPath} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, swaggerDocPath, nil))
	assert.Contains(t, w.Body.String(), `"title": "SkyReserve API"`)
}

func TestHealthHandler_readyReportsFailures(t *testing.T) {
	router := newTestRouter(&MockFlightUseCase{}, map[string]Checker{
		"store": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("dial tcp: connection refused") },
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unavailable","checks":{"store":"ok","redis":"dial tcp: connection refused"}}`, w.Body.String())
}
