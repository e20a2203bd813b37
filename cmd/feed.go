package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nextlevelbuilder/slacktail/internal/config"
	"github.com/nextlevelbuilder/slacktail/internal/handlers"
	"github.com/nextlevelbuilder/slacktail/internal/highlight"
	"github.com/nextlevelbuilder/slacktail/internal/logging"
	"github.com/nextlevelbuilder/slacktail/internal/pipeline"
	"github.com/nextlevelbuilder/slacktail/internal/teams"
	slackteam "github.com/nextlevelbuilder/slacktail/internal/teams/slack"
	"github.com/nextlevelbuilder/slacktail/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func runFeed() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	// Diagnostics go to stderr so the message feed owns stdout.
	logger := logging.New(os.Stderr, logLevel)
	slog.SetDefault(logger)

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	logger.Info("config loaded", "path", cfgPath, "teams", len(cfg.Teams))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	traceShutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		logger.Warn("telemetry disabled", "error", err)
		traceShutdown = func(context.Context) error { return nil }
	}

	var hl handlers.Highlighter
	if len(cfg.Highlight.Keywords) > 0 {
		matcher, err := highlight.New(cfg.Highlight.Keywords)
		if err != nil {
			logger.Error("bad highlight keywords", "error", err)
			os.Exit(1)
		}
		hl = matcher
	}

	pipe := pipeline.New(logger)
	register := func(h pipeline.Handler) {
		if err := pipe.Register(h); err != nil {
			logger.Error("failed to register handler", "error", err)
			os.Exit(1)
		}
	}
	register(handlers.NewConsole(os.Stdout, hl, cfg.Handlers.Console.On(), logger))
	register(handlers.NewNotification(cfg.Handlers.Notification.Enabled, logger))
	register(handlers.NewSpeech(cfg.Handlers.Speech.Enabled, cfg.Handlers.Speech.Command, logger))

	mgr := teams.NewManager(logger, slackteam.Factory)
	if err := mgr.SetSink(teams.SinkFromPipeline(ctx, pipe, logger)); err != nil {
		logger.Error("failed to set sink", "error", err)
		os.Exit(1)
	}
	if err := mgr.Initialize(cfg); err != nil {
		logger.Error("failed to initialize teams", "error", err)
		os.Exit(1)
	}
	if err := mgr.ConnectAll(ctx); err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	logger.Info("feed running", "teams", mgr.ConnectedCount(), "handlers", pipe.EnabledCount())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	s := <-sig
	logger.Info("signal received", "signal", s.String())

	shCtx, shCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shCancel()
	mgr.Shutdown(shCtx)
	cancel()
	if err := traceShutdown(shCtx); err != nil {
		logger.Warn("trace flush failed", "error", err)
	}
}
