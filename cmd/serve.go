package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"summarybot/internal/bot"
	"summarybot/internal/config"
	"summarybot/internal/metrics"
	"summarybot/internal/scheduler"
	"summarybot/internal/staging"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	start := time.Now()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if err = cfg.RequireToken(); err != nil {
		return err
	}

	log := newLogger(cfg, os.Stdout)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := newComponents(cfg, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize components",
			"error", err)

		return err
	}
	log.InfoContext(ctx, "Components are initialized",
		"mimeTypes", comps.extractor.MIMETypes(),
		"provider", comps.guard.Provider(),
		"chunkMaxLength", cfg.Chunk.MaxLength,
		"chunkOverlap", cfg.Chunk.Overlap,
		"minInputLength", cfg.MinInputLength)

	area, err := staging.New(cfg.StagingDir, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize staging area",
			"error", err,
			"stagingDir", cfg.StagingDir)

		return err
	}

	botInst, err := bot.New(cfg.Token, comps.extractor, comps.pipeline, area, bot.Options{
		MinInputLength: cfg.MinInputLength,
		MaxFileSize:    cfg.MaxFileSize,
		ReplyMaxLength: cfg.ReplyMaxLength,
	}, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize bot",
			"error", err)

		return err
	}
	defer botInst.Stop()

	sched := scheduler.New(ctx, cfg.JanitorSpec, area, cfg.StagingMaxAge, log)
	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"spec", sched.Spec())

		return err
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"spec", sched.Spec(),
		"stagingDir", area.Dir(),
		"maxAge", cfg.StagingMaxAge)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		botInst.Start(gctx)
		return nil
	})

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.MetricsAddr, comps.guard.Ready, log)
		})
	}

	err = g.Wait()

	log.InfoContext(ctx, "Exiting...",
		"error", err,
		"uptimeSeconds", time.Since(start).Seconds())

	return err
}
