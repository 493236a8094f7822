package api

import (
	_ "embed"
	"log/slog"
	"net/http"

	"github.com/Domenick1991/skyreserve/internal/service/booking"
	"github.com/Domenick1991/skyreserve/internal/service/flights"
	"github.com/Domenick1991/skyreserve/internal/telemetry"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed swagger/skyreserve.swagger.json
var swaggerDoc []byte

const swaggerDocPath = "/swagger-doc.json"

type RouterDeps struct {
	Flights  flights.FlightUseCase
	Bookings booking.BookingUseCase
	Hub      EventHub
	Checks   map[string]Checker
	Logger   *slog.Logger
}

// NewRouter builds the public HTTP surface under /api/v1 plus the
// operational endpoints.
func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	v1 := router.Group("/api/v1")
	NewFlightHandler(deps.Flights).Register(v1.Group("/flights"))
	bookings := NewBookingHandler(deps.Bookings)
	bookings.Register(v1.Group("/bookings"))
	bookings.RegisterTasks(v1.Group("/tasks"))
	NewEventHandler(deps.Hub).Register(v1.Group("/events"))

	NewHealthHandler(deps.Checks).Register(router)
	router.GET("/metrics", gin.WrapH(telemetry.Handler()))
	router.GET(swaggerDocPath, func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", swaggerDoc)
	})
	router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL(swaggerDocPath))))
	return router
}
