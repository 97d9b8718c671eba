package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/starford/retitle/internal/apperr"
)

const maxStderr = 512

// runTool executes an external collaborator and returns its stdout.
// A missing binary maps to apperr.ErrExtractionUnavailable and a context
// deadline to apperr.ErrExtractionTimeout.
func runTool(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Bound the wait for pipes held open by grandchildren after a kill.
	cmd.WaitDelay = 2 * time.Second

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrExtractionUnavailable, name, err)
	}
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w: %s", apperr.ErrExtractionTimeout, name)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	msg := strings.TrimSpace(stderr.String())
	if len(msg) > maxStderr {
		msg = msg[:maxStderr] + "..."
	}
	if msg == "" {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
}

// Pdftotext extracts text with poppler's pdftotext.
type Pdftotext struct {
	Bin string
}

// FirstPage implements TextExtractor.
func (p Pdftotext) FirstPage(ctx context.Context, path string) (string, error) {
	bin := p.Bin
	if bin == "" {
		bin = "pdftotext"
	}
	out, err := runTool(ctx, bin, "-f", "1", "-l", "1", "-enc", "UTF-8", path, "-")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// OCR modes understood by OCRmyPDF.
const (
	ModeRedo  = "redo"
	ModeForce = "force"
	ModeSkip  = "skip"
)

// OCRmyPDF runs the ocrmypdf command line tool.
type OCRmyPDF struct {
	Bin       string
	Languages []string
	// Mode is one of ModeRedo (default), ModeForce or ModeSkip.
	Mode string
}

// OCR implements OCREngine.
func (o OCRmyPDF) OCR(ctx context.Context, in, out, sidecar string) error {
	bin := o.Bin
	if bin == "" {
		bin = "ocrmypdf"
	}
	_, err := runTool(ctx, bin, o.args(in, out, sidecar)...)
	return err
}

func (o OCRmyPDF) args(in, out, sidecar string) []string {
	var args []string
	if len(o.Languages) > 0 {
		args = append(args, "-l", strings.Join(o.Languages, "+"))
	}
	switch o.Mode {
	case ModeForce:
		args = append(args, "--force-ocr")
	case ModeSkip:
		args = append(args, "--skip-text")
	default:
		args = append(args, "--redo-ocr")
	}
	if sidecar != "" {
		args = append(args, "--sidecar", sidecar)
	}
	return append(args, "-q", in, out)
}
