package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Djttt/rpsls-battle/internal/config"
	"github.com/Djttt/rpsls-battle/internal/discovery"
	"github.com/Djttt/rpsls-battle/internal/httpapi"
	"github.com/Djttt/rpsls-battle/internal/relay"
	"github.com/Djttt/rpsls-battle/internal/room"
	"github.com/Djttt/rpsls-battle/internal/stats"
)

const httpTimeout = 10 * time.Second

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := buildLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var recorder stats.Recorder
	if cfg.DatabaseURL != "" {
		store, err := stats.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		recorder = store
		logger.Info("leaderboard backed by postgres")
	} else {
		recorder = stats.NewMemory()
		logger.Info("no database configured, keeping stats in memory")
	}

	registry := room.NewRegistry(logger, recorder)
	dir := discovery.New(logger, discovery.WithPort(cfg.DiscoveryPort))
	defer func() { _ = dir.Stop() }()

	relayClient := relay.NewClient(logger, relay.WithPeerPort(cfg.Port))
	inbox := relay.NewInbox(cfg.InviteCap)

	handlers := httpapi.NewHandlers(logger, registry, dir, relayClient, inbox, recorder)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Bind, strconv.Itoa(cfg.Port)),
		Handler:           httpapi.Routes(handlers),
		ReadTimeout:       httpTimeout,
		ReadHeaderTimeout: httpTimeout,
		WriteTimeout:      httpTimeout,
		IdleTimeout:       10 * time.Minute,
	}

	// Hear peers from boot; broadcasting starts once a player calls
	// /api/discovery/start with their identity.
	if err := dir.StartListening(); err != nil {
		logger.Warn("discovery listener failed to start", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
