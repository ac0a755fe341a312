package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/krau/konaframe/camera"
	"github.com/krau/konaframe/config"
	"github.com/krau/konaframe/pipeline"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := config.C()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	slog.Info("Starting KonaFrame")

	src, err := camera.NewDirSource(cfg.FramesDir, cfg.RotationDegrees)
	if err != nil {
		slog.Error("Failed to open frame source", slog.String("error", err.Error()))
		os.Exit(1)
	}

	p, err := pipeline.Init(cfg)
	if err != nil {
		slog.Error("Failed to initialize pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("Analyzing frames", slog.String("dir", cfg.FramesDir), slog.Int("count", src.Len()))
	runErr := p.Run(ctx, src)
	if err := p.Close(); err != nil {
		slog.Error("Failed to close session", slog.String("error", err.Error()))
	}

	stats := p.Stats()
	slog.Info("Done",
		slog.Int("frames", stats.Frames),
		slog.Int("delivered", stats.Delivered),
		slog.Int("dropped", stats.Dropped),
		slog.Int("failed", stats.Failed),
	)
	if runErr != nil && ctx.Err() == nil {
		slog.Error("Analysis stopped", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
}
