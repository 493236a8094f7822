package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/skyreserve/config"
	"github.com/Domenick1991/skyreserve/internal/email"
	"github.com/Domenick1991/skyreserve/internal/kafka"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/spf13/pflag"
)

func main() {
	cfgPath := pflag.StringP("config", "c", "", "path to config.yaml (default $CONFIG_PATH or ./config.yaml)")
	pflag.Parse()

	path := *cfgPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		slog.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)
	if !cfg.Kafka.Enabled() {
		logger.Error("worker needs kafka.brokers")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	sender := email.NewSender(email.LogTransport{Logger: logger}, logger)

	logger.Info("worker consuming", slog.String("topic", cfg.Kafka.NotificationsTopic), slog.String("group", cfg.Kafka.GroupID))
	err = consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
		event, err := kafka.DecodeLifecycle(msg)
		if err != nil {
			logger.Warn("skip undecodable event", slog.Any("err", err))
			return nil
		}
		sent, err := sender.Send(ctx, event)
		if err != nil {
			// delivery is best-effort; a poisoned message must not stall the group
			logger.Error("send cancellation notices", slog.Int64("flight_id", event.FlightID), slog.Any("err", err))
		}
		if sent > 0 {
			logger.Info("cancellation notices sent", slog.Int64("flight_id", event.FlightID), slog.Int("sent", sent))
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", slog.Any("err", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
