package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/enone-pay/enone/internal/backend"
	"github.com/enone-pay/enone/internal/config"
	"github.com/enone-pay/enone/internal/infra"
	"github.com/enone-pay/enone/internal/logging"
)

func main() {
	cfg, err := config.LoadStub()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL, logger)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Info("redis not configured, idempotency replay disabled")
	}

	srv := backend.New(cfg, cache, logger)
	seedDemoData(srv, logger)

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}

// seedDemoData loads two funded accounts and a small identity registry so a
// fresh stub is immediately usable from the CLI.
func seedDemoData(srv *backend.Backend, logger *slog.Logger) {
	users := []struct {
		username, email, phone, password string
		first, last, document, balance   string
		roles                            []string
	}{
		{"ana", "ana@example.pe", "+51987654321", "secret-pass", "Ana", "Lopez", "11111111", "500", []string{"USER"}},
		{"jose", "jose@example.pe", "+51912345678", "secret-pass", "Jose", "Paz", "22222222", "250", []string{"USER"}},
		{"admin", "admin@example.pe", "+51900000000", "secret-pass", "Root", "Admin", "33333333", "0", []string{"ADMIN"}},
	}
	for _, u := range users {
		if _, err := srv.SeedUser(u.username, u.email, u.phone, u.password, u.first, u.last, u.document, u.roles, u.balance); err != nil {
			logger.Error("seed user", "username", u.username, "error", err)
			continue
		}
		logger.Info("seeded user", "username", u.username)
	}

	srv.SeedRegistry("44556677", "Maria", "Quispe", time.Date(1995, 4, 12, 0, 0, 0, 0, time.UTC))
	srv.SeedRegistry("55667788", "Nina", "Rojas", time.Date(2010, 7, 1, 0, 0, 0, 0, time.UTC))
}
