package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/2emr/sensor-backend/internal/api"
	"github.com/2emr/sensor-backend/internal/api/handler"
	"github.com/2emr/sensor-backend/internal/core/ports"
	"github.com/2emr/sensor-backend/internal/core/service"
	"github.com/2emr/sensor-backend/internal/infrastructure/broadcast"
	redisdb "github.com/2emr/sensor-backend/internal/infrastructure/db/redis"
	"github.com/2emr/sensor-backend/internal/infrastructure/mqtt"
	"github.com/2emr/sensor-backend/internal/infrastructure/storage"
	"github.com/2emr/sensor-backend/internal/infrastructure/worker"
	"github.com/2emr/sensor-backend/internal/pkg/clock"
	"github.com/2emr/sensor-backend/internal/pkg/config"
	"github.com/2emr/sensor-backend/pkg/logger"
)

const (
	shutdownTimeout = 10 * time.Second
	idleTimeout     = 60 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{Level: "error"})
		bootLog.Error().Err(err).Msg("load configuration")
		return err
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.IsDevelopment()})
	clk := clock.Real()

	backend, err := storage.Open(ctx, cfg, clk, logger.Component("storage"))
	if err != nil {
		log.Error().Err(err).Str("driver", cfg.StorageDriver).Msg("open storage")
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := backend.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("close storage")
		}
	}()

	checks := make(map[string]ports.Pinger, len(backend.Checks)+1)
	for name, p := range backend.Checks {
		checks[name] = p
	}

	var wg sync.WaitGroup
	background := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				log.Error().Err(err).Str("task", name).Msg("background task exited")
			}
		}()
	}

	hub := broadcast.NewHub(cfg.Realtime.Buffer, logger.Component("hub"))
	var publisher ports.Publisher = hub

	if cfg.Redis.Addr != "" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			log.Error().Err(err).Str("addr", cfg.Redis.Addr).Msg("connect redis")
			return err
		}
		defer rdb.Close()

		relay := redisdb.NewRelay(rdb, cfg.Redis.Channel, hub, logger.Component("relay"))
		publisher = relay
		checks["redis"] = redisdb.NewPinger(rdb)
		background("redis-relay", relay.Run)
	}

	tokens := service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL, clk)
	authService := service.NewAuthService(backend.Users, tokens, logger.Component("auth"), service.WithAuthClock(clk))
	readingService := service.NewReadingService(backend.Readings, publisher, logger.Component("readings"))
	controlService := service.NewControlService(logger.Component("control"))

	if cfg.MQTT.Broker != "" {
		ingestor := mqtt.NewIngestor(mqtt.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
		}, readingService, handler.ParseInstant, logger.Component("mqtt"))
		background("mqtt-ingestor", ingestor.Run)
	}

	if cfg.Reporter.Enabled {
		reporter := worker.NewReporter(readingService, controlService, cfg.Reporter.Interval, logger.Component("reporter"))
		background("reporter", reporter.Run)
	}

	e := api.NewRouter(api.Dependencies{
		Auth:                 authService,
		Tokens:               tokens,
		Readings:             readingService,
		Control:              controlService,
		Hub:                  hub,
		Checks:               checks,
		AllowedOrigins:       cfg.HTTP.AllowedOrigins,
		RequestTimeout:       cfg.HTTP.RequestTimeout,
		RealtimeRequireToken: cfg.Realtime.RequireToken,
		Log:                  logger.Component("http"),
	})

	// The websocket upgrade clears connection deadlines, so WriteTimeout
	// does not apply to realtime streams.
	e.Server.ReadHeaderTimeout = cfg.HTTP.ReadTimeout
	e.Server.ReadTimeout = cfg.HTTP.ReadTimeout
	e.Server.WriteTimeout = cfg.HTTP.WriteTimeout
	e.Server.IdleTimeout = idleTimeout
	addr := net.JoinHostPort("", cfg.Port)

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", addr).
			Str("storage", backend.Driver).
			Bool("redis_relay", cfg.Redis.Addr != "").
			Bool("mqtt", cfg.MQTT.Broker != "").
			Bool("reporter", cfg.Reporter.Enabled).
			Msg("sensor backend listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok && err != nil {
			log.Error().Err(err).Msg("http server failed")
			return err
		}
	}

	return shutdown(e, hub, &wg, log)
}

func shutdown(e *echo.Echo, hub *broadcast.Hub, wg *sync.WaitGroup, log zerolog.Logger) error {
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	hub.Close()
	err := e.Shutdown(ctx)
	if err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	wg.Wait()
	log.Info().Msg("shutdown complete")
	return err
}
