package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/soheilhy/cmux"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/ai"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/api"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/config"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/prompts"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/rpc"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/store"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/telemetry"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port)

	// Root context cancelled by OS signal. Both servers respect it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Tracing ───────────────────────────────────────────────────────────────
	if cfg.Tracing == "stdout" {
		shutdown, err := telemetry.InitTracer("helpdesk-ai-gateway", os.Stderr, logger)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				logger.Error("tracing shutdown", "error", err)
			}
		}()
	}

	// ── Database ──────────────────────────────────────────────────────────────
	pool, err := openDB(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	st := store.New(pool)
	if cfg.DBMigrate {
		if err := st.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("database schema applied")
	}

	// ── Prompts ───────────────────────────────────────────────────────────────
	templates, err := prompts.New()
	if err != nil {
		return fmt.Errorf("prompts: %w", err)
	}
	if cfg.PromptOverridesFile != "" {
		if err := templates.LoadOverrides(cfg.PromptOverridesFile); err != nil {
			return fmt.Errorf("prompts: %w", err)
		}
		logger.Info("prompt overrides loaded", "file", cfg.PromptOverridesFile)
	}

	// ── AI ────────────────────────────────────────────────────────────────────
	var clientOpts []ai.Option
	if cfg.AIInsecureSkipTLS {
		logger.Warn("ai: TLS certificate verification disabled for providers")
		clientOpts = append(clientOpts, ai.WithTLSConfig(&tls.Config{
			InsecureSkipVerify: true,
		}))
	}
	client := ai.NewClient(logger, clientOpts...)

	var processor ai.Processor = ai.NewGateway(templates, client, logger)
	if secondary, ok := cfg.FallbackProvider(); ok {
		processor = ai.NewFallback(processor, secondary, logger)
		logger.Info("ai: fallback provider configured", "model", secondary.Model)
	}

	// ── HTTP + gRPC on one port ───────────────────────────────────────────────
	httpHandler := api.NewServer(st, st, processor, api.Config{
		Env:      cfg.Env,
		Provider: cfg.Provider(),
	}, logger)

	httpSrv := &http.Server{
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute, // a full retry sequence can be slow
		IdleTimeout:  120 * time.Second,
	}

	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(rpc.LoggingInterceptor(logger)))
	rpc.Register(grpcSrv, rpc.NewServer(processor, st, cfg.Provider(), logger))

	lis, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	mux := cmux.New(lis)
	grpcLis := mux.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpLis := mux.Match(cmux.Any())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := grpcSrv.Serve(grpcLis); err != nil && !errors.Is(err, cmux.ErrListenerClosed) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := httpSrv.Serve(httpLis); err != nil &&
			!errors.Is(err, http.ErrServerClosed) && !errors.Is(err, cmux.ErrListenerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("server listening", "addr", lis.Addr().String(), "protocols", "http,grpc")
		if err := mux.Serve(); err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("listener: %w", err)
		}
		return nil
	})

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		// Give in-flight requests up to 20 seconds to finish.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		stopped := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(stopped)
		}()
		err := httpSrv.Shutdown(shutdownCtx)
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			grpcSrv.Stop()
		}
		mux.Close()
		if err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// openDB opens the connection pool and verifies the database is reachable.
func openDB(dsn string) (*sql.DB, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	// Tune the connection pool.
	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(10)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
