package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/skyreserve/api"
	"github.com/Domenick1991/skyreserve/config"
	"github.com/Domenick1991/skyreserve/internal/bootstrap"
	"github.com/Domenick1991/skyreserve/internal/cache"
	"github.com/Domenick1991/skyreserve/internal/kafka"
	"github.com/Domenick1991/skyreserve/internal/notify"
	"github.com/Domenick1991/skyreserve/internal/repository"
	"github.com/Domenick1991/skyreserve/internal/scheduler"
	"github.com/Domenick1991/skyreserve/internal/service/booking"
	"github.com/Domenick1991/skyreserve/internal/service/capacity"
	"github.com/Domenick1991/skyreserve/internal/service/flights"
	"github.com/Domenick1991/skyreserve/internal/tasks"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
)

func main() {
	cfgPath := pflag.StringP("config", "c", "", "path to config.yaml (default $CONFIG_PATH or ./config.yaml)")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath(*cfgPath))
	if err != nil {
		slog.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", slog.Any("err", err))
		os.Exit(1)
	}
}

func configPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "config.yaml"
}

func openStores(ctx context.Context, cfg config.DatabaseConfig) (*repository.Stores, error) {
	if cfg.Driver == config.DriverSQLite {
		db, err := repository.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return repository.NewGormStores(db), nil
	}

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := repository.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return repository.NewPGStores(pool), nil
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	stores, err := openStores(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer stores.Close()

	checks := map[string]api.Checker{"store": stores.Ping}

	hub := notify.NewHub(cfg.Notify.SubscriberBuffer, logger)
	sinks := []notify.Sink{hub}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled() {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, logger)
		defer producer.Close()
		sinks = append(sinks, notify.NewKafkaSink(producer, cfg.Kafka.NotificationsTopic, cfg.Kafka.PublishAttempts))
		checks["kafka"] = producer.CheckConnection
	}
	dispatcher := notify.NewDispatcher(notify.WithLogger(logger), notify.WithSinks(sinks...))
	defer func() {
		if err := dispatcher.Close(notify.DefaultSinkTimeout); err != nil {
			logger.Warn("stop notification dispatcher", slog.Any("err", err))
		}
	}()

	executor := tasks.NewExecutor(
		tasks.WithLogger(logger),
		tasks.WithRetention(cfg.Tasks.Retention()),
		tasks.WithSweepInterval(cfg.Tasks.SweepInterval()),
	)

	calc := capacity.NewService(stores.Flights, stores.Bookings)
	bookingOpts := []booking.BookingServiceOption{
		booking.WithLogger(logger),
		booking.WithProcessingDelay(cfg.Booking.ProcessingDelay()),
		booking.WithCancelWindow(cfg.Booking.CancelWindow()),
	}
	if cfg.Redis.Enabled() {
		client := cache.NewRedisClient(cfg.Redis)
		defer client.Close()
		guard := cache.NewRedisCache(client, cfg.Booking.AdmissionLockTTL())
		bookingOpts = append(bookingOpts, booking.WithAdmissionGuard(guard))
		checks["redis"] = guard.Ping
	}
	if producer != nil {
		bookingOpts = append(bookingOpts, booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic))
	}

	flightService := flights.NewFlightService(stores.Flights, stores.Bookings, stores.Directory, calc, dispatcher, flights.WithLogger(logger))
	bookingService := booking.NewBookingService(stores.Bookings, stores.Flights, calc, executor, bookingOpts...)

	lifecycle := scheduler.New(stores.Flights, dispatcher,
		scheduler.WithLogger(logger),
		scheduler.WithInterval(cfg.Scheduler.Interval()),
	)

	executor.Start(ctx)
	lifecycle.Start(ctx)
	defer func() {
		if err := lifecycle.Stop(cfg.Scheduler.StopTimeout()); err != nil {
			logger.Warn("stop scheduler", slog.Any("err", err))
		}
		if err := executor.Stop(cfg.Tasks.StopTimeout()); err != nil {
			logger.Warn("stop task executor", slog.Any("err", err))
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.RouterDeps{
		Flights:  flightService,
		Bookings: bookingService,
		Hub:      hub,
		Checks:   checks,
		Logger:   logger,
	})
	probes := map[string]bootstrap.Probe{
		"scheduler": lifecycle.Running,
		"tasks":     executor.Running,
	}
	return bootstrap.Run(ctx, cfg, router, probes, logger)
}
