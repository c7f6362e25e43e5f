package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nitipat21/linkly/pkg/adapters/handler"
	"github.com/nitipat21/linkly/pkg/adapters/repository/memory"
	"github.com/nitipat21/linkly/pkg/adapters/repository/postgres"
	"github.com/nitipat21/linkly/pkg/adapters/repository/sqlite"
	"github.com/nitipat21/linkly/pkg/config"
	"github.com/nitipat21/linkly/pkg/core/services"
	"github.com/nitipat21/linkly/pkg/idgen"
	"github.com/nitipat21/linkly/pkg/ports"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	repo, err := newRepository(cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	gen := idgen.NewRandomGenerator(cfg.CodeLength)
	linkService := services.NewLinkService(repo, gen, cfg.GuestLinkLimit)
	userService := services.NewUserService(repo)

	mux := handler.NewRouter(cfg, linkService, userService, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return runServer(server, logger)
}

func newRepository(cfg *config.Config, logger *slog.Logger) (ports.Repository, error) {
	switch {
	case cfg.DatabaseURL == "memory":
		logger.Info("using in-memory storage")
		return memory.NewRepository(), nil
	case strings.HasPrefix(cfg.DatabaseURL, "postgres://"),
		strings.HasPrefix(cfg.DatabaseURL, "postgresql://"):
		logger.Info("connecting to PostgreSQL")
		return postgres.NewRepository(cfg.DatabaseURL)
	default:
		logger.Info("connecting to SQLite", slog.String("url", cfg.DatabaseURL))
		return sqlite.NewRepository(cfg.DatabaseURL)
	}
}

func runServer(server *http.Server, logger *slog.Logger) error {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("address", server.Addr))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			return err
		}
	}
	logger.Info("server stopped")
	return nil
}
