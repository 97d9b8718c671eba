// Package extract acquires page-1 text from PDF documents, falling back to
// OCR when the embedded text layer is too thin to be useful.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/retitle/internal/apperr"
	"github.com/starford/retitle/internal/models"
)

// TextExtractor returns the plain text of the first page of a PDF.
type TextExtractor interface {
	FirstPage(ctx context.Context, path string) (string, error)
}

// OCREngine writes a copy of the PDF at in to out with a recognized text
// layer. If sidecar is non-empty the recognized text is also written there.
type OCREngine interface {
	OCR(ctx context.Context, in, out, sidecar string) error
}

// Options tunes an Acquirer.
type Options struct {
	// MinTextLength is the number of characters the structural pass must
	// produce for OCR to be skipped.
	MinTextLength int
	// Timeout bounds each structural extraction.
	Timeout time.Duration
	// OCRTimeout bounds the OCR run.
	OCRTimeout time.Duration
	// TempDir is the parent of the scoped OCR working directory.
	// Empty means os.TempDir().
	TempDir string
}

// Acquirer runs the structural extractor and, when needed, the OCR engine.
type Acquirer struct {
	text   TextExtractor
	ocr    OCREngine
	opts   Options
	logger *slog.Logger
}

// NewAcquirer creates an Acquirer. ocr may be nil to disable the fallback.
func NewAcquirer(text TextExtractor, ocr OCREngine, opts Options, logger *slog.Logger) *Acquirer {
	if opts.MinTextLength <= 0 {
		opts.MinTextLength = 50
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.OCRTimeout <= 0 {
		opts.OCRTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Acquirer{text: text, ocr: ocr, opts: opts, logger: logger}
}

// Acquire returns the page-1 text of the document at path. It never fails:
// missing tools, timeouts and OCR errors produce an empty result whose
// Issue explains why.
func (a *Acquirer) Acquire(ctx context.Context, path string) models.ExtractedText {
	log := a.logger.With(slog.String("path", path), slog.String("stage", "extract"))

	text, err := a.firstPage(ctx, path)
	switch {
	case errors.Is(err, apperr.ErrExtractionUnavailable):
		log.Error("structural extractor not available", slog.String("error", err.Error()))
		return models.ExtractedText{Provenance: models.ProvenanceNone, Issue: err}
	case ctx.Err() != nil:
		return models.ExtractedText{Provenance: models.ProvenanceNone, Issue: ctx.Err()}
	case errors.Is(err, apperr.ErrExtractionTimeout):
		log.Warn("structural extraction timed out", slog.Duration("timeout", a.opts.Timeout))
	case err != nil:
		log.Warn("structural extraction failed", slog.String("error", err.Error()))
	case utf8.RuneCountInString(text) >= a.opts.MinTextLength:
		log.Debug("structural text accepted", slog.Int("chars", utf8.RuneCountInString(text)))
		return models.ExtractedText{Text: text, Provenance: models.ProvenanceStructural}
	default:
		log.Info("structural text too short, falling back to OCR",
			slog.Int("chars", utf8.RuneCountInString(text)),
			slog.Int("min", a.opts.MinTextLength))
	}

	if a.ocr == nil {
		return models.ExtractedText{Provenance: models.ProvenanceNone, Issue: fmt.Errorf("%w: ocr disabled", apperr.ErrExtractionUnavailable)}
	}
	return a.acquireOCR(ctx, log, path)
}

// acquireOCR OCRs the whole document into a scoped temporary directory
// and extracts page 1 of the result. The directory is always removed.
func (a *Acquirer) acquireOCR(ctx context.Context, log *slog.Logger, path string) models.ExtractedText {
	dir, err := os.MkdirTemp(a.opts.TempDir, "retitle-ocr-*")
	if err != nil {
		log.Error("create ocr temp dir", slog.String("error", err.Error()))
		return models.ExtractedText{Provenance: models.ProvenanceNone, Issue: err}
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn("remove ocr temp dir", slog.String("dir", dir), slog.String("error", err.Error()))
		}
	}()

	out := filepath.Join(dir, "ocr_output.pdf")
	sidecar := filepath.Join(dir, "ocr_output.txt")

	ocrCtx, cancel := context.WithTimeout(ctx, a.opts.OCRTimeout)
	err = a.ocr.OCR(ocrCtx, path, out, sidecar)
	timedOut := ocrCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil
	cancel()
	switch {
	case ctx.Err() != nil:
		return models.ExtractedText{Provenance: models.ProvenanceNone, Issue: ctx.Err()}
	case timedOut:
		log.Warn("ocr timed out", slog.Duration("timeout", a.opts.OCRTimeout))
		return models.ExtractedText{Provenance: models.ProvenanceNone, Issue: fmt.Errorf("ocr: %w", apperr.ErrExtractionTimeout)}
	case errors.Is(err, apperr.ErrExtractionUnavailable):
		log.Error("ocr engine not available", slog.String("error", err.Error()))
		return models.ExtractedText{Provenance: models.ProvenanceNone, Issue: err}
	case err != nil:
		log.Error("ocr failed", slog.String("error", err.Error()))
		return models.ExtractedText{Provenance: models.ProvenanceNone, Issue: fmt.Errorf("ocr: %w", err)}
	}

	text, err := a.firstPage(ctx, out)
	if err != nil {
		if ctx.Err() != nil {
			return models.ExtractedText{Provenance: models.ProvenanceNone, Issue: ctx.Err()}
		}
		if s, ok := sidecarFirstPage(sidecar); ok {
			log.Warn("extraction after ocr failed, using sidecar", slog.String("error", err.Error()))
			return models.ExtractedText{Text: s, Provenance: models.ProvenanceOCR}
		}
		log.Warn("extraction after ocr failed", slog.String("error", err.Error()))
		return models.ExtractedText{Provenance: models.ProvenanceNone, Issue: err}
	}
	log.Info("ocr text acquired", slog.Int("chars", utf8.RuneCountInString(text)))
	return models.ExtractedText{Text: text, Provenance: models.ProvenanceOCR}
}

// firstPage runs the structural extractor under the extraction timeout and
// returns trimmed text.
func (a *Acquirer) firstPage(ctx context.Context, path string) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()
	text, err := a.text.FirstPage(tctx, path)
	if err != nil {
		if tctx.Err() == context.DeadlineExceeded && ctx.Err() == nil && !errors.Is(err, apperr.ErrExtractionTimeout) {
			err = fmt.Errorf("%w: %v", apperr.ErrExtractionTimeout, err)
		}
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// sidecarFirstPage reads the OCR sidecar and returns its first page.
// Pages are separated by form feeds.
func sidecarFirstPage(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	page, _, _ := strings.Cut(string(data), "\f")
	page = strings.TrimSpace(page)
	return page, page != ""
}
