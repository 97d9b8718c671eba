// Package testutil provides shared test helpers for document directories
// and pipeline collaborators.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/retitle/internal/models"
)

// TestDocs creates a temporary directory holding one small file per name.
// Each file's content is unique so checksums tell them apart.
func TestDocs(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		WriteDoc(t, filepath.Join(dir, name))
	}
	return dir
}

// WriteDoc writes a fake PDF at path, creating parent directories.
func WriteDoc(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("%PDF-1.4\n% "+path+"\n%%EOF\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

// FakeAcquirer returns canned text keyed by file base name.
type FakeAcquirer struct {
	mu      sync.Mutex
	Texts   map[string]models.ExtractedText
	Default models.ExtractedText
	Calls   []string
}

// Acquire implements the pipeline's text acquirer.
func (f *FakeAcquirer) Acquire(_ context.Context, path string) models.ExtractedText {
	f.mu.Lock()
	defer f.mu.Unlock()
	base := filepath.Base(path)
	f.Calls = append(f.Calls, base)
	if t, ok := f.Texts[base]; ok {
		return t
	}
	return f.Default
}

// CallCount returns how many documents were acquired.
func (f *FakeAcquirer) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// Reply is a canned generator response.
type Reply struct {
	Title string
	Err   error
}

// FakeGenerator answers by input text. Queued replies are served first,
// in order; after that unknown text gets Default.
type FakeGenerator struct {
	mu      sync.Mutex
	Queue   []Reply
	Replies map[string]Reply
	Default Reply
	Calls   []string
}

// Generate implements titlegen.Generator.
func (f *FakeGenerator) Generate(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, text)
	if len(f.Queue) > 0 {
		r := f.Queue[0]
		f.Queue = f.Queue[1:]
		return r.Title, r.Err
	}
	r, ok := f.Replies[text]
	if !ok {
		r = f.Default
	}
	return r.Title, r.Err
}

// CallCount returns how many requests were made.
func (f *FakeGenerator) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// Structural is shorthand for page-1 text from the text layer.
func Structural(text string) models.ExtractedText {
	return models.ExtractedText{Text: text, Provenance: models.ProvenanceStructural}
}
