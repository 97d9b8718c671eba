package internal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/retitle/internal/apperr"
	"github.com/starford/retitle/internal/models"
	"github.com/starford/retitle/internal/testutil"
)

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestRun_MissingCredentials(t *testing.T) {
	dir := testutil.TestDocs(t, "a.pdf")
	var calls int
	err := Run(context.Background(),
		WithConfig(NewDefaultConfig()),
		WithTarget(dir),
		WithLogOutput(io.Discard),
		WithReporter(func(models.Outcome) { calls++ }),
	)
	if !errors.Is(err, apperr.ErrMissingCredentials) {
		t.Fatalf("err = %v, want ErrMissingCredentials", err)
	}
	if calls != 0 {
		t.Error("documents processed without credentials")
	}
}

func TestRun_RequiresTarget(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Generator.APIKey = "k"
	if err := Run(context.Background(), WithConfig(cfg), WithLogOutput(io.Discard)); err == nil {
		t.Fatal("expected error without target")
	}
}

func TestRun_EndToEnd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs need a POSIX shell")
	}
	dir := testutil.TestDocs(t, "scan0001.pdf")

	bin := filepath.Join(t.TempDir(), "pdftotext")
	script := "#!/bin/sh\necho 'Neural Networks for Everything. J. Smith and L. Dong. Proceedings of 2023.'\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"Smith&Dong-2023-NeuralNets"}]}}]}`)
	}))
	defer srv.Close()

	cfg := NewDefaultConfig()
	cfg.Extract.PdftotextBin = bin
	cfg.Extract.OCRmyPDFBin = filepath.Join(t.TempDir(), "no-ocrmypdf")
	cfg.Generator.Endpoint = srv.URL
	cfg.Generator.APIKey = "secret-key"
	cfg.Generator.Timeout = 5 * time.Second

	var logs bytes.Buffer
	var mu sync.Mutex
	var outcomes []models.Outcome
	err := Run(context.Background(),
		WithConfig(cfg),
		WithTarget(dir),
		WithLogOutput(&logs),
		WithReporter(func(o models.Outcome) {
			mu.Lock()
			outcomes = append(outcomes, o)
			mu.Unlock()
		}),
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(outcomes) != 1 || outcomes[0].Kind != models.KindRenamed {
		t.Fatalf("outcomes = %+v", outcomes)
	}
	if _, err := os.Stat(filepath.Join(dir, "Smith&Dong-2023-NeuralNets.pdf")); err != nil {
		t.Errorf("renamed file missing: %v", err)
	}
	if gotKey != "secret-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	out := logs.String()
	if !strings.Contains(out, `"msg":"batch complete"`) || !strings.Contains(out, `"run_id"`) {
		t.Errorf("expected JSON logs with batch summary and run_id, got:\n%s", out)
	}
	if strings.Contains(out, "secret-key") {
		t.Error("api key leaked into logs")
	}
}
