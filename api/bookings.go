package api

import (
	"net/http"

	"github.com/Domenick1991/skyreserve/internal/service/booking"
	"github.com/Domenick1991/skyreserve/internal/tasks"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	FlightID int64 `json:"flight_id" binding:"required"`
}

type bookingAcceptedResponse struct {
	TaskID string       `json:"task_id"`
	Status tasks.Status `json:"status"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.listMine)
	router.GET("/:id", h.get)
	router.DELETE("/:id", h.delete)
}

// RegisterTasks mounts the task polling endpoint.
func (h *BookingHandler) RegisterTasks(router *gin.RouterGroup) {
	router.GET("/:token", h.taskStatus)
}

func (h *BookingHandler) create(c *gin.Context) {
	userID, ok := headerID(c, HeaderUserID)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	token, err := h.service.SubmitBooking(c.Request.Context(), userID, req.FlightID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Location", "/api/v1/tasks/"+token)
	c.JSON(http.StatusAccepted, bookingAcceptedResponse{TaskID: token, Status: tasks.StatusPending})
}

func (h *BookingHandler) taskStatus(c *gin.Context) {
	rec := h.service.TaskStatus(c.Param("token"))
	if rec.Status == tasks.StatusNotFound {
		c.JSON(http.StatusNotFound, rec)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *BookingHandler) get(c *gin.Context) {
	userID, ok := headerID(c, HeaderUserID)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if b.UserID != userID {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "booking not found"})
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) listMine(c *gin.Context) {
	userID, ok := headerID(c, HeaderUserID)
	if !ok {
		return
	}
	page, ok := pageRequest(c)
	if !ok {
		return
	}
	result, err := h.service.ListUserBookings(c.Request.Context(), userID, page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *BookingHandler) delete(c *gin.Context) {
	userID, ok := headerID(c, HeaderUserID)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteBooking(c.Request.Context(), id, userID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
