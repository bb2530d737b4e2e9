// Command raydemo ray-traces a JSON scene on a raypool worker pool, writing
// progressive previews while the render runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/raypool"
	"github.com/gogpu/raypool/internal/config"
	"github.com/gogpu/raypool/raytrace"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "raydemo:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "", "TOML config file")
		scene       = flag.String("scene", "", "JSON scene file")
		output      = flag.String("output", "", "output image (.png, .bmp, .tiff)")
		concurrency = flag.Int("concurrency", 0, "logical render threads")
		poolSize    = flag.Int("pool", 0, "workers spawned up front")
		preview     = flag.String("preview", "", "progressive preview image path")
		metricsAddr = flag.String("metrics-addr", "", "serve Prometheus metrics on this address")
		logLevel    = flag.String("log-level", "", "debug, info, warn or error")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "scene":
			cfg.Scene = *scene
		case "output":
			cfg.Output = *output
		case "concurrency":
			cfg.Concurrency = *concurrency
		case "pool":
			cfg.PoolSize = *poolSize
		case "preview":
			cfg.PreviewPath = *preview
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg)
	raypool.SetLogger(logger)

	sc, err := raytrace.LoadFile(cfg.Scene)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := raypool.NewMetrics("raydemo", reg)
	if cfg.MetricsAddr != "" {
		srv := newMetricsServer(cfg.MetricsAddr, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	pool, err := raypool.NewWorkerPool(cfg.Workers(),
		raypool.WithName("render"),
		raypool.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pool.Shutdown(ctx); err != nil {
			logger.Warn("pool shutdown incomplete", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	handle, err := raypool.Render(pool, raytrace.NewRenderer(sc), cfg.Concurrency)
	if err != nil {
		return err
	}
	logger.Info("render started", "job", handle.ID(), "size", fmt.Sprintf("%dx%d", sc.Width, sc.Height),
		"concurrency", cfg.Concurrency, "workers", pool.Size())

	var img *raypool.Pixmap
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		img, err = handle.Wait(gctx)
		return err
	})
	if cfg.PreviewPath != "" {
		g.Go(func() error {
			return writePreviews(gctx, handle, cfg, logger)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("render %s: %w", handle.ID(), err)
	}

	if err := img.Save(cfg.Output); err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	p.Printf("rendered %d pixels (%dx%d) with %d threads in %v -> %s\n",
		sc.Width*sc.Height, sc.Width, sc.Height, cfg.Concurrency,
		time.Since(handle.Started()).Round(time.Millisecond), cfg.Output)
	return nil
}

// writePreviews saves a scaled progressive snapshot every preview interval
// until the render completes, then writes a final one.
func writePreviews(ctx context.Context, h *raypool.RenderHandle, cfg *config.Config, logger *slog.Logger) error {
	ticker := time.NewTicker(cfg.PreviewInterval)
	defer ticker.Stop()

	save := func() error {
		snap := h.ProgressiveSnapshot()
		height := max(1, cfg.PreviewWidth*h.Height()/h.Width())
		if err := snap.Scaled(cfg.PreviewWidth, height).Save(cfg.PreviewPath); err != nil {
			return err
		}
		written, total := h.Progress()
		logger.Debug("preview written", "path", cfg.PreviewPath, "written", written, "total", total)
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.Completion().Done():
			return save()
		case <-ticker.C:
			if err := save(); err != nil {
				return err
			}
		}
	}
}

// newLogger builds a slog logger backed by charmbracelet/log.
func newLogger(cfg *config.Config) *slog.Logger {
	handler := log.NewWithOptions(os.Stderr, log.Options{
		Level:           parseLogLevel(cfg.LogLevel),
		Formatter:       parseLogFormatter(cfg.LogFormat),
		ReportTimestamp: true,
		Prefix:          "raydemo",
	})
	return slog.New(handler)
}

func parseLogLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func parseLogFormatter(format string) log.Formatter {
	switch format {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

func newMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
}
