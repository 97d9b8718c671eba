// Package pipeline drives documents through text acquisition, title
// generation, sanitization and renaming, and aggregates the outcomes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/retitle/internal/models"
	"github.com/starford/retitle/internal/sanitize"
	"github.com/starford/retitle/internal/storage"
	"github.com/starford/retitle/internal/titlegen"
)

// TextAcquirer returns the page-1 text of a document. It never fails;
// an empty result means no text.
type TextAcquirer interface {
	Acquire(ctx context.Context, path string) models.ExtractedText
}

// Options controls a Driver.
type Options struct {
	DryRun    bool
	Recursive bool
	// Concurrency is the number of documents processed at once.
	Concurrency int
	// Debounce is how long a file must be quiet before watch mode
	// picks it up.
	Debounce time.Duration
	// Report, if set, receives each batch outcome as soon as its document
	// finishes. Calls are serialized.
	Report func(models.Outcome)
}

// Driver runs the pipeline for one document or a batch.
type Driver struct {
	acquirer  TextAcquirer
	generator titlegen.Generator
	opts      Options
	logger    *slog.Logger

	// renameMu serializes destination checks and moves across every store
	// the driver hands out.
	renameMu sync.Mutex
	reportMu sync.Mutex

	mu sync.Mutex
	// produced holds destinations created by our own renames.
	produced map[string]struct{}
	// seen holds checksums of content handled in watch mode.
	seen map[string]struct{}
}

// NewDriver creates a Driver.
func NewDriver(acquirer TextAcquirer, generator titlegen.Generator, opts Options, logger *slog.Logger) *Driver {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		acquirer:  acquirer,
		generator: generator,
		opts:      opts,
		logger:    logger,
		produced:  make(map[string]struct{}),
		seen:      make(map[string]struct{}),
	}
}

// Run processes target, which is either a PDF file or a directory of
// PDFs. Outcomes are returned in path order. An error is returned only
// when target cannot be resolved; per-document problems are outcomes.
func (d *Driver) Run(ctx context.Context, target string) ([]models.Outcome, error) {
	store, docs, err := d.resolve(target)
	if err != nil {
		return nil, err
	}

	d.logger.Info("batch started",
		slog.String("target", target),
		slog.Int("documents", len(docs)),
		slog.Bool("dry_run", d.opts.DryRun),
		slog.Int("concurrency", d.opts.Concurrency))

	start := time.Now()
	outcomes := make([]models.Outcome, len(docs))

	var g errgroup.Group
	g.SetLimit(d.opts.Concurrency)
	for i, doc := range docs {
		g.Go(func() error {
			outcomes[i] = d.process(ctx, store, doc, d.opts.DryRun)
			d.report(outcomes[i])
			return nil
		})
	}
	_ = g.Wait()

	s := models.Summarize(outcomes)
	d.logger.Info("batch complete",
		slog.Int("renamed", s.Renamed),
		slog.Int("planned", s.Planned),
		slog.Int("skipped", s.Skipped),
		slog.Int("failed", s.Failed),
		slog.Duration("elapsed", time.Since(start)))
	return outcomes, nil
}

// Document runs the pipeline on a single PDF. dryRun overrides the
// driver's option for this call.
func (d *Driver) Document(ctx context.Context, path string, dryRun bool) (models.Outcome, error) {
	store, docs, err := d.resolve(path)
	if err != nil {
		return models.Outcome{}, err
	}
	if len(docs) != 1 {
		return models.Outcome{}, fmt.Errorf("pipeline: %s is not a single PDF", path)
	}
	return d.process(ctx, store, docs[0], dryRun), nil
}

// resolve turns target into a store and the documents to process.
func (d *Driver) resolve(target string) (*storage.FS, []models.SourceDocument, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: resolve %s: %w", target, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: %w", err)
	}

	if info.IsDir() {
		store, err := storage.NewFS(abs)
		if err != nil {
			return nil, nil, err
		}
		docs, err := store.List("", d.opts.Recursive)
		if err != nil {
			return nil, nil, err
		}
		return store, docs, nil
	}

	if !storage.IsPDF(abs) {
		return nil, nil, fmt.Errorf("pipeline: not a PDF: %s", target)
	}
	store, err := storage.NewFS(filepath.Dir(abs))
	if err != nil {
		return nil, nil, err
	}
	return store, []models.SourceDocument{{Path: abs, Size: info.Size()}}, nil
}

// process runs every stage for one document. It never returns an error;
// all failures become outcomes.
func (d *Driver) process(ctx context.Context, store storage.Provider, doc models.SourceDocument, dryRun bool) models.Outcome {
	log := d.logger.With(slog.String("path", doc.Path))

	if err := ctx.Err(); err != nil {
		return d.logOutcome(log, failed(doc, err))
	}
	if inspected, err := store.Inspect(doc.Path); err == nil {
		doc = inspected
	}
	log.Debug("processing document", slog.Int64("size", doc.Size), slog.Int("pages", doc.Pages))

	text := d.acquirer.Acquire(ctx, doc.Path)
	if err := ctx.Err(); err != nil {
		return d.logOutcome(log, failed(doc, err))
	}
	if text.Empty() {
		reason := "no text on first page"
		if text.Issue != nil {
			reason = text.Issue.Error()
		}
		return d.logOutcome(log, models.Outcome{
			Document:   doc,
			Kind:       models.KindSkippedNoText,
			Provenance: text.Provenance,
			Reason:     reason,
			Err:        text.Issue,
		})
	}

	title, err := d.generator.Generate(ctx, text.Text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return d.logOutcome(log, failed(doc, ctxErr))
		}
		return d.logOutcome(log, models.Outcome{
			Document:   doc,
			Kind:       models.KindSkippedNoTitle,
			Provenance: text.Provenance,
			Reason:     err.Error(),
			Err:        err,
		})
	}

	name := sanitize.Filename(title)
	out := d.rename(ctx, store, doc, name, dryRun)
	out.Provenance = text.Provenance
	return d.logOutcome(log, out)
}

func (d *Driver) report(o models.Outcome) {
	if d.opts.Report == nil {
		return
	}
	d.reportMu.Lock()
	defer d.reportMu.Unlock()
	d.opts.Report(o)
}

func failed(doc models.SourceDocument, err error) models.Outcome {
	return models.Outcome{Document: doc, Kind: models.KindFailed, Reason: err.Error(), Err: err}
}

func (d *Driver) logOutcome(log *slog.Logger, o models.Outcome) models.Outcome {
	attrs := []any{slog.String("outcome", string(o.Kind))}
	if o.Provenance != "" {
		attrs = append(attrs, slog.String("provenance", string(o.Provenance)))
	}
	if o.Path != "" {
		attrs = append(attrs, slog.String("dest", o.Path))
	}
	if o.Reason != "" {
		attrs = append(attrs, slog.String("reason", o.Reason))
	}

	switch {
	case o.Kind == models.KindRenamed:
		log.Info("document renamed", attrs...)
	case o.Kind == models.KindPlanned:
		log.Info("rename planned", attrs...)
	case o.Skipped():
		log.Warn("document skipped", attrs...)
	default:
		log.Error("document failed", attrs...)
	}
	return o
}
