package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/Domenick1991/skyreserve/internal/domain"
	"github.com/Domenick1991/skyreserve/internal/pagination"
	"github.com/Domenick1991/skyreserve/internal/repository"
	"github.com/Domenick1991/skyreserve/internal/service/flights"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	service flights.FlightUseCase
}

type createFlightRequest struct {
	Name               string    `json:"flight_name" binding:"required"`
	AirlineID          int64     `json:"airline_id" binding:"required"`
	DepartureAirportID int64     `json:"departure_airport_id" binding:"required"`
	ArrivalAirportID   int64     `json:"arrival_airport_id" binding:"required"`
	DepartureTime      time.Time `json:"departure_time" binding:"required"`
	DistanceKm         int       `json:"flight_distance_km"`
	DurationMinutes    int       `json:"duration_minutes" binding:"required"`
	PriceCents         int64     `json:"price_cents" binding:"required"`
	TotalSeats         int       `json:"total_seats" binding:"required"`
}

type updateFlightRequest struct {
	Name               *string    `json:"flight_name"`
	AirlineID          *int64     `json:"airline_id"`
	DepartureAirportID *int64     `json:"departure_airport_id"`
	ArrivalAirportID   *int64     `json:"arrival_airport_id"`
	DepartureTime      *time.Time `json:"departure_time"`
	DistanceKm         *int       `json:"flight_distance_km"`
	DurationMinutes    *int       `json:"duration_minutes"`
	PriceCents         *int64     `json:"price_cents"`
	TotalSeats         *int       `json:"total_seats"`
}

type statusRequest struct {
	Status          string `json:"status" binding:"required"`
	RejectionReason string `json:"rejection_reason"`
}

type flightResponse struct {
	domain.Flight
	DurationMinutes int64 `json:"duration_minutes"`
}

func toFlightResponse(f domain.Flight) flightResponse {
	return flightResponse{Flight: f, DurationMinutes: int64(f.Duration / time.Minute)}
}

func toFlightPage(p pagination.Page[domain.Flight]) pagination.Page[flightResponse] {
	items := make([]flightResponse, len(p.Items))
	for i, f := range p.Items {
		items[i] = toFlightResponse(f)
	}
	return pagination.Page[flightResponse]{
		Items:   items,
		Page:    p.Page,
		PerPage: p.PerPage,
		Total:   p.Total,
		Pages:   p.Pages,
		HasNext: p.HasNext,
		HasPrev: p.HasPrev,
	}
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.POST("", h.create)
	router.GET("/:id", h.get)
	router.PUT("/:id", h.update)
	router.DELETE("/:id", h.delete)
	router.PATCH("/:id/status", h.updateStatus)
	router.POST("/:id/cancel", h.cancel)
	router.GET("/:id/seats", h.seats)
	router.GET("/:id/remaining-time", h.remainingTime)
}

// list serves both the search listing and, with ?tab=, the passenger tabs.
func (h *FlightHandler) list(c *gin.Context) {
	filter, ok := flightFilter(c)
	if !ok {
		return
	}
	page, ok := pageRequest(c)
	if !ok {
		return
	}

	var (
		result pagination.Page[domain.Flight]
		err    error
	)
	if raw := c.Query("tab"); raw != "" {
		tab, perr := flights.ParseTab(raw)
		if perr != nil {
			writeError(c, perr)
			return
		}
		result, err = h.service.ListByTab(c.Request.Context(), tab, filter, page)
	} else {
		result, err = h.service.List(c.Request.Context(), filter, page)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightPage(result))
}

func flightFilter(c *gin.Context) (repository.FlightFilter, bool) {
	filter := repository.FlightFilter{Name: strings.TrimSpace(c.Query("name"))}

	for name, dst := range map[string]*int64{
		"airline_id":           &filter.AirlineID,
		"departure_airport_id": &filter.DepartureAirportID,
		"arrival_airport_id":   &filter.ArrivalAirportID,
		"min_price":            &filter.MinPriceCents,
		"max_price":            &filter.MaxPriceCents,
	} {
		v, ok := queryInt64(c, name)
		if !ok {
			return filter, false
		}
		*dst = v
	}

	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, err := domain.ParseFlightStatus(part)
			if err != nil {
				writeError(c, err)
				return filter, false
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if raw := c.Query("departure_date"); raw != "" {
		day, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			badRequest(c, "departure_date must be YYYY-MM-DD")
			return filter, false
		}
		filter.DepartureDate = &day
	}
	return filter, true
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(*flight))
}

func (h *FlightHandler) create(c *gin.Context) {
	managerID, ok := headerID(c, HeaderUserID)
	if !ok {
		return
	}
	var req createFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	flight, err := h.service.CreateFlight(c.Request.Context(), flights.FlightInput{
		Name:               req.Name,
		AirlineID:          req.AirlineID,
		DepartureAirportID: req.DepartureAirportID,
		ArrivalAirportID:   req.ArrivalAirportID,
		DepartureTime:      req.DepartureTime,
		DistanceKm:         req.DistanceKm,
		Duration:           time.Duration(req.DurationMinutes) * time.Minute,
		PriceCents:         req.PriceCents,
		TotalSeats:         req.TotalSeats,
	}, managerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toFlightResponse(*flight))
}

func (h *FlightHandler) update(c *gin.Context) {
	if _, ok := headerID(c, HeaderUserID); !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	patch := flights.FlightPatch{
		Name:               req.Name,
		AirlineID:          req.AirlineID,
		DepartureAirportID: req.DepartureAirportID,
		ArrivalAirportID:   req.ArrivalAirportID,
		DepartureTime:      req.DepartureTime,
		DistanceKm:         req.DistanceKm,
		PriceCents:         req.PriceCents,
		TotalSeats:         req.TotalSeats,
	}
	if req.DurationMinutes != nil {
		d := time.Duration(*req.DurationMinutes) * time.Minute
		patch.Duration = &d
	}

	flight, err := h.service.UpdateFlight(c.Request.Context(), id, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(*flight))
}

func (h *FlightHandler) delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteFlight(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FlightHandler) updateStatus(c *gin.Context) {
	adminID, ok := headerID(c, HeaderAdminID)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	status, err := domain.ParseFlightStatus(req.Status)
	if err != nil {
		writeError(c, err)
		return
	}

	flight, err := h.service.UpdateFlightStatus(c.Request.Context(), id, flights.StatusChange{
		Status:          status,
		RejectionReason: req.RejectionReason,
	}, adminID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(*flight))
}

func (h *FlightHandler) cancel(c *gin.Context) {
	adminID, ok := headerID(c, HeaderAdminID)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.service.CancelFlight(c.Request.Context(), id, adminID)
	if err != nil {
		writeError(c, err)
		return
	}
	users := res.AffectedUserIDs
	if users == nil {
		users = []int64{}
	}
	c.JSON(http.StatusOK, gin.H{
		"flight":            toFlightResponse(*res.Flight),
		"affected_user_ids": users,
	})
}

func (h *FlightHandler) seats(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	seats, err := h.service.AvailableSeats(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flight_id": id, "available_seats": seats})
}

func (h *FlightHandler) remainingTime(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rt, err := h.service.RemainingTime(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rt)
}
