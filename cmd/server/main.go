package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vntrieu/werewolf/internal/config"
	"github.com/vntrieu/werewolf/internal/httpapi"
	"github.com/vntrieu/werewolf/internal/log"
	"github.com/vntrieu/werewolf/internal/oracle"
	"github.com/vntrieu/werewolf/internal/runner"
	"github.com/vntrieu/werewolf/internal/store"
	"github.com/vntrieu/werewolf/internal/telemetry"
	"github.com/vntrieu/werewolf/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		log.Error("werewolf server: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := log.Default()
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "werewolf", cfg.OTelEnabled, cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown: %v", err)
		}
	}()

	st, backend, err := store.Open(ctx, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info("game store: %s", backend)

	tokenSecret := []byte(cfg.TokenSecret)
	if len(tokenSecret) == 0 {
		logger.Warn("WEREWOLF_TOKEN_SECRET is not set; games get no seat tokens and every reader is a spectator")
	}

	hub := websocket.NewHub(st, logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	opts := []runner.Option{
		runner.WithPublisher(hub),
		runner.WithRules(cfg.Rules()),
		runner.WithLogger(logger),
	}
	if cfg.OracleConfigured() {
		opts = append(opts, runner.WithOracle(oracle.NewClient(cfg.Oracle())), runner.WithAgentTimeout(cfg.OracleTimeout))
		logger.Info("oracle: %s model %s", cfg.OracleBaseURL, cfg.OracleModel)
	} else {
		logger.Warn("WEREWOLF_ORACLE_API_KEY is not set; every seat plays its fallback policy")
	}
	manager := runner.NewManager(st, opts...)

	router := httpapi.NewRouter(httpapi.Deps{
		Store:          st,
		Runner:         manager,
		Hub:            hub,
		TokenSecret:    tokenSecret,
		RateLimiter:    httpapi.DefaultRateLimiter(cfg.RateLimit),
		AllowedOrigins: cfg.CORSOrigins,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("werewolf backend listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// graceful shutdown: stop accepting requests, then end running games inconclusive
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("graceful shutdown failed: %v", err)
	}
	if err := manager.Shutdown(sctx); err != nil {
		logger.Warn("runner shutdown: %v", err)
	}
	return nil
}
