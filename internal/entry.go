// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/retitle/internal/extract"
	"github.com/starford/retitle/internal/mcpserver"
	"github.com/starford/retitle/internal/models"
	"github.com/starford/retitle/internal/pipeline"
	"github.com/starford/retitle/internal/titlegen"
)

// Run processes the target once and, in watch mode, keeps processing new
// documents until interrupted.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	if app.target == "" {
		return errors.New("target directory is required")
	}

	driver, closeGen, err := newDriver(ctx, cfg, logger, app.report)
	if err != nil {
		return err
	}
	defer closeGen()

	logger.Info("Configuration loaded",
		slog.String("target", app.target),
		slog.String("structural", cfg.Extract.Structural),
		slog.String("backend", cfg.Generator.Backend),
		slog.String("model", cfg.Generator.Model),
		slog.Bool("dry_run", cfg.DryRun),
		slog.Bool("recursive", cfg.Scan.Recursive),
		slog.Bool("watch", cfg.Scan.Watch),
		slog.String("log_level", cfg.App.LogLevel.String()))

	g, gCtx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gCtx)
	defer cancel()

	g.Go(func() error {
		defer cancel()
		if _, err := driver.Run(runCtx, app.target); err != nil {
			return err
		}
		if !cfg.Scan.Watch {
			return nil
		}
		if info, statErr := os.Stat(app.target); statErr != nil || !info.IsDir() {
			logger.Warn("watch mode needs a directory, not watching", slog.String("target", app.target))
			return nil
		}
		return driver.Watch(runCtx, app.target, app.report)
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-runCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Run finished")
	return nil
}

// RunMCP serves the pipeline over MCP on stdin/stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}

	driver, closeGen, err := newDriver(ctx, app.config, logger, nil)
	if err != nil {
		return err
	}
	defer closeGen()

	logger.Info("MCP server starting", slog.String("transport", "stdio"))
	if err := mcpserver.New(driver, logger).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// setup applies options, installs the logger and checks credentials.
func setup(opts []Option) (*application, *slog.Logger, error) {
	app := &application{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := newLogger(app.logOutput, cfg.App).With(slog.String("run_id", uuid.NewString()))
	slog.SetDefault(logger)

	if err := cfg.ValidateCredentials(); err != nil {
		return nil, nil, err
	}
	return app, logger, nil
}

func newLogger(w io.Writer, cfg ApplicationConfig) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatText {
		return slog.New(slog.NewTextHandler(w, hopts))
	}
	return slog.New(slog.NewJSONHandler(w, hopts))
}

// newDriver wires the extractor, OCR engine and generator into a
// pipeline driver. report receives batch outcomes as they finish. The
// returned func releases the generator.
func newDriver(ctx context.Context, cfg *Config, logger *slog.Logger, report func(models.Outcome)) (*pipeline.Driver, func(), error) {
	var text extract.TextExtractor
	switch cfg.Extract.Structural {
	case StructuralNative:
		text = extract.Native{}
	default:
		text = extract.Pdftotext{Bin: cfg.Extract.PdftotextBin}
	}

	ocr := extract.OCRmyPDF{
		Bin:       cfg.Extract.OCRmyPDFBin,
		Languages: cfg.Extract.Languages,
		Mode:      cfg.Extract.OCRMode,
	}
	acquirer := extract.NewAcquirer(text, ocr, extract.Options{
		MinTextLength: cfg.Extract.MinTextLength,
		Timeout:       cfg.Extract.Timeout,
		OCRTimeout:    cfg.Extract.OCRTimeout,
	}, logger)

	gen, closeGen, err := newGenerator(ctx, cfg.Generator, logger)
	if err != nil {
		return nil, nil, err
	}

	driver := pipeline.NewDriver(acquirer, gen, pipeline.Options{
		DryRun:      cfg.DryRun,
		Recursive:   cfg.Scan.Recursive,
		Concurrency: cfg.Scan.Concurrency,
		Debounce:    cfg.Scan.Debounce,
		Report:      report,
	}, logger)
	return driver, closeGen, nil
}

func newGenerator(ctx context.Context, cfg GeneratorConfig, logger *slog.Logger) (titlegen.Generator, func(), error) {
	if cfg.Backend == BackendVertex {
		v, err := titlegen.NewVertex(ctx, titlegen.VertexOptions{
			Project: cfg.Vertex.Project,
			Region:  cfg.Vertex.Region,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
			Retry:   cfg.Retry.Policy(),
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return v, func() {
			if err := v.Close(); err != nil {
				logger.Warn("vertex client close failed", slog.String("error", err.Error()))
			}
		}, nil
	}

	g, err := titlegen.NewGemini(titlegen.GeminiOptions{
		Endpoint: cfg.Endpoint,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
		Timeout:  cfg.Timeout,
		Retry:    cfg.Retry.Policy(),
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return g, func() {}, nil
}
