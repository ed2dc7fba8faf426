package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/sysmoni/internal/aggregator"
	"github.com/Dicklesworthstone/sysmoni/internal/broadcast"
	"github.com/Dicklesworthstone/sysmoni/internal/cache"
	"github.com/Dicklesworthstone/sysmoni/internal/config"
	"github.com/Dicklesworthstone/sysmoni/internal/logger"
	"github.com/Dicklesworthstone/sysmoni/internal/observability"
	"github.com/Dicklesworthstone/sysmoni/internal/platform"
	"github.com/Dicklesworthstone/sysmoni/internal/sampler"
	"github.com/Dicklesworthstone/sysmoni/internal/server"
	"github.com/Dicklesworthstone/sysmoni/internal/ui"
)

func main() {
	cfg, err := config.FromFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("sysmoni: %v", err)
	}

	// The TUI owns the terminal; anything written to stderr would tear it.
	var logOut io.Writer = os.Stderr
	if cfg.Mode == config.ModeTUI {
		logOut = io.Discard
	}
	appLog := logger.New(logOut, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLog, os.Stdout); err != nil {
		log.Fatalf("sysmoni %s: %v", cfg.Mode, err)
	}
}

func run(ctx context.Context, cfg config.Config, log logger.Logger, stdout io.Writer) error {
	builder := sampler.NewBuilder(platform.NewGopsutil(), log.With("component", "builder"),
		sampler.WithCandidates(cfg.CandidatesPerCore, cfg.MinCandidates))

	if cfg.Mode == config.ModeJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(builder.OnDemand())
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.New(reg)

	latest := cache.New()
	hub := broadcast.NewHub(log.With("component", "hub"), metrics)
	defer hub.Close()

	loop := sampler.NewLoop(builder, latest, cfg.SampleInterval, log.With("component", "sampler"), metrics)
	agg := aggregator.New(latest, hub, aggregator.Options{
		Poll:       cfg.SampleInterval,
		Emit:       cfg.EmitInterval,
		Alpha:      cfg.Alpha,
		TopN:       cfg.TopN,
		ProcessTTL: cfg.ProcessTTL,
		Drain:      cfg.Drain,
	}, log.With("component", "aggregator"), metrics)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error { return loop.Run(gCtx) })
	g.Go(func() error { return agg.Run(gCtx) })

	switch cfg.Mode {
	case config.ModeServe:
		srv := server.New(cfg.Addr, hub, builder, reg, log.With("component", "server"))
		g.Go(func() error { return srv.Run(gCtx) })

	case config.ModeJSONStream:
		sub := hub.Subscribe(4)
		g.Go(func() error { return streamNDJSON(gCtx, sub, stdout) })

	case config.ModeTUI:
		sub := hub.Subscribe(4)
		g.Go(func() error {
			defer cancel()
			return ui.RunTUI(ui.New(sub, builder, cancel, cfg.TopN))
		})

	default:
		return fmt.Errorf("unknown mode %q", cfg.Mode)
	}

	log.Info("sysmoni started", "mode", cfg.Mode, "sample_interval", cfg.SampleInterval, "emit_interval", cfg.EmitInterval)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("sysmoni stopped")
	return nil
}

// streamNDJSON writes one JSON line per published snapshot.
func streamNDJSON(ctx context.Context, sub *broadcast.Subscription, w io.Writer) error {
	defer sub.Close()
	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-sub.C:
			if !ok {
				return nil
			}
			if err := enc.Encode(snap); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
		}
	}
}
