package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/umalmyha/customer-registry/internal/config"
	"github.com/umalmyha/customer-registry/internal/event"
	"github.com/umalmyha/customer-registry/internal/infra"
)

const defaultShutdownTimeout = 10 * time.Second
const defaultConnectTimeout = 5 * time.Second

func main() {
	cfg, err := config.Build()
	if err != nil {
		logrus.Fatal(err)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	pgPool, err := infra.Postgresql(connectCtx, cfg.PostgresCfg)
	if err != nil {
		logrus.Fatal(err)
	}
	defer pgPool.Close()

	redisClient, err := infra.Redis(connectCtx, cfg.RedisCfg)
	if err != nil {
		logrus.Fatal(err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logrus.Errorf("failed to close redis connection - %v", err)
		}
	}()

	publisher, err := event.NewKafkaPublisher(cfg.KafkaCfg.Brokers, cfg.KafkaCfg.Topic, cfg.KafkaCfg.SendTimeout)
	if err != nil {
		logrus.Fatal(err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logrus.Errorf("failed to close kafka writer - %v", err)
		}
	}()

	start(pgPool, redisClient, publisher, cfg)
}

func start(pgPool *pgxpool.Pool, redisClient *redis.Client, publisher event.Publisher, cfg config.Config) {
	app, err := infra.Router(pgPool, redisClient, publisher, cfg)
	if err != nil {
		logrus.Fatal(err)
	}

	shutdownCh := make(chan os.Signal, 1)
	errorCh := make(chan error, 1)
	signal.Notify(shutdownCh, os.Interrupt)

	go func() {
		errorCh <- app.Start(fmt.Sprintf(":%d", cfg.Port))
	}()

	select {
	case <-shutdownCh:
		ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()

		logrus.Info("shutdown signal has been sent, stopping the server...")
		if err := app.Shutdown(ctx); err != nil {
			logrus.Fatalf("failed to stop server gracefully - %s", err)
		}
	case err := <-errorCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("shutting down the server, unexpected error occurred - %s", err)
		}
	}
}
