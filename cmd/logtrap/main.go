package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/logtrap/logtrap/internal/capture"
	"github.com/logtrap/logtrap/internal/config"
	"github.com/logtrap/logtrap/internal/hub"
	"github.com/logtrap/logtrap/internal/model"
	"github.com/logtrap/logtrap/internal/store"
)

func main() {
	// .env is optional; real environment variables win either way.
	_ = godotenv.Load()

	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	// diag bypasses the ambient hook: it is the side channel for failures
	// inside the capture path itself.
	diag := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)

	st := store.New(cfg.Store.Path, diag)
	defer st.Close()

	logHub := hub.New(st, diag)
	capturer := capture.New(st, logHub, diag)

	if err := capture.InstallConsoleHook(capturer); err != nil {
		diag.Fatal().Err(err).Msg("installing console hook")
	}
	defer capture.UninstallConsoleHook()

	// A plain observer standing in for the presentation layer.
	subscription := logHub.Subscribe(func(records []model.LogRecord) {
		fmt.Fprintf(os.Stdout, "log set now holds %d record(s)\n", len(records))
	})
	defer subscription.Unsubscribe()

	// One producer per interception adapter.

	// Ambient: ordinary global logging, transparently captured.
	zlog.Info().Msg("service started")

	// Manual: typed level control, with structured context as metadata.
	capturer.Warn("cache miss rate above threshold", map[string]any{"rate": 0.42})
	capturer.Error(pkgerrors.New("upstream request failed"), map[string]any{
		"url":    "https://example.invalid/api",
		"method": "GET",
		"status": 502,
	})

	// Uncaught failure: a panicking unit of UI work recovers into a
	// degraded fallback instead of crashing the process.
	boundary := capture.NewBoundary(capturer, func(component string, _ any) {
		diag.Warn().Str("component", component).Msg("rendering degraded fallback")
	})
	boundary.Run("dashboard", func() {
		panic("render failed")
	})

	// Observer notification is fire-and-forget; give it a moment to land
	// before dumping the persisted set.
	time.Sleep(500 * time.Millisecond)

	records, err := st.ScanAll(context.Background())
	if err != nil {
		diag.Fatal().Err(err).Msg("reading log set")
	}
	for _, record := range records {
		diag.Info().
			Int64("id", record.ID).
			Str("level", string(record.Level)).
			Str("message", record.Message).
			Bool("has_stack", record.StackTrace != nil).
			Msg("persisted record")
	}
}
