// main is the entry point of the roster editor backend.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file
//  2. Initialise the logger
//  3. Open the key-value store (SQLite, Redis or memory)
//  4. Hydrate the roster from it
//  5. Register all HTTP routes
//  6. Start the HTTP server in a separate goroutine
//  7. Block the main goroutine until an OS signal (Ctrl+C / kill) arrives
//  8. Gracefully shut down: finish in-flight requests, close storage, exit
//
// RUNNING THE SERVER:
//
//	go run ./cmd/students-roster --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/students-roster
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aanand-mishra/students-roster/internal/config"
	"github.com/aanand-mishra/students-roster/internal/http/handlers/student"
	"github.com/aanand-mishra/students-roster/internal/http/middleware"
	"github.com/aanand-mishra/students-roster/internal/roster"
	"github.com/aanand-mishra/students-roster/internal/storage/factory"
)

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	// The handlers log through the package-level slog functions, so the
	// configured logger also becomes the default.
	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting students-roster",
		slog.String("env", cfg.Env),
		slog.String("version", "1.0.0"),
	)

	// ── 3. Initialise Storage ─────────────────────────────────────────────
	kv, err := factory.New(cfg)
	if err != nil {
		log.Error("failed to initialise storage",
			slog.String("backend", cfg.Storage.Backend),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer kv.Close()

	log.Info("storage initialised", slog.String("backend", cfg.Storage.Backend))

	// ── 4. Hydrate the Roster ─────────────────────────────────────────────
	// One roster per process. A corrupt stored value either stops startup
	// or is dropped in favour of the default, depending on config.
	store := roster.New(kv,
		roster.WithLogger(log),
		roster.WithDraftEdits(cfg.Roster.DraftEdits),
	)

	if err := store.Hydrate(); err != nil {
		if !onlyCorruption(err) || !cfg.Roster.ResetOnCorrupt {
			log.Error("failed to load roster", slog.String("error", err.Error()))
			kv.Close()
			os.Exit(1)
		}
		log.Warn("stored roster is corrupt, continuing with defaults",
			slog.String("error", err.Error()))
	}

	// ── 5. Register HTTP Routes ───────────────────────────────────────────
	router := http.NewServeMux()
	student.Register(router, store)

	// Serialize sits inside Logging so queued time shows up in the
	// request duration.
	handler := middleware.Chain(router,
		middleware.RequestID,
		middleware.Logging(log),
		middleware.Serialize,
	)

	// ── 6. Create the HTTP Server ─────────────────────────────────────────
	server := &http.Server{
		Addr:    cfg.HTTPServer.Addr,
		Handler: handler,

		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		if err := server.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			log.Error("server encountered an error",
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// ── 7. Wait for Shutdown Signal ───────────────────────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}

// onlyCorruption reports whether every error Hydrate returned is a
// corrupt stored value, as opposed to the store being unreachable.
func onlyCorruption(err error) bool {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return errors.Is(err, roster.ErrCorruptPersistedState)
	}
	for _, e := range joined.Unwrap() {
		if !errors.Is(e, roster.ErrCorruptPersistedState) {
			return false
		}
	}
	return true
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default:
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	}
}
