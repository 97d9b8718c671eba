package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/starford/retitle/internal/apperr"
	"github.com/starford/retitle/internal/models"
)

// PageCountTimeout bounds how long Inspect waits for a page count.
const PageCountTimeout = 5 * time.Second

func init() {
	// Page counting must not create a pdfcpu config directory in $HOME.
	api.DisableConfigDir()
}

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the scan root

	// mu serializes the existence check and the rename within this store.
	mu sync.Mutex

	// countPages is swapped out in tests.
	countPages  func(path string) (int, error)
	pageTimeout time.Duration
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs, countPages: api.PageCountFile, pageTimeout: PageCountTimeout}, nil
}

// Root returns the absolute root directory.
func (f *FS) Root() string { return f.root }

// IsPDF reports whether name has a .pdf extension, ignoring case.
func IsPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// safePath resolves a path against the root and rejects any result that
// escapes it. Absolute paths are accepted when they lie under root.
func (f *FS) safePath(p string) (string, error) {
	if p == "" {
		return f.root, nil
	}
	var abs string
	if filepath.IsAbs(p) {
		abs = filepath.Clean(p)
	} else {
		abs = filepath.Join(f.root, filepath.Clean(p))
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes root: %s", p)
	}
	return abs, nil
}

// List walks dir and returns every PDF, sorted by path. Hidden files and
// directories (leading dot) are skipped.
func (f *FS) List(dir string, recursive bool) ([]models.SourceDocument, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []models.SourceDocument
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != base && (!recursive || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !d.Type().IsRegular() || !IsPDF(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, models.SourceDocument{Path: p, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Inspect stats the document and counts its pages. A page-count failure
// is not an error; Pages is left at zero.
func (f *FS) Inspect(abs string) (models.SourceDocument, error) {
	p, err := f.safePath(abs)
	if err != nil {
		return models.SourceDocument{}, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return models.SourceDocument{}, fmt.Errorf("storage: stat %s: %w", p, err)
	}
	if info.IsDir() {
		return models.SourceDocument{}, fmt.Errorf("storage: %s is a directory", p)
	}
	doc := models.SourceDocument{Path: p, Size: info.Size()}
	if f.countPages != nil {
		doc.Pages = f.pages(p)
	}
	return doc, nil
}

// pages returns the page count of p, or zero if it cannot be read within
// pageTimeout. A count still running at the deadline is abandoned.
func (f *FS) pages(p string) int {
	done := make(chan int, 1)
	go func() {
		n := 0
		defer func() {
			// pdfcpu panics on some malformed inputs.
			_ = recover()
			done <- n
		}()
		if c, err := f.countPages(p); err == nil {
			n = c
		}
	}()

	timer := time.NewTimer(f.pageTimeout)
	defer timer.Stop()
	select {
	case n := <-done:
		return n
	case <-timer.C:
		return 0
	}
}

// Exists reports whether anything, including a dangling symlink, is
// present at abs.
func (f *FS) Exists(abs string) (bool, error) {
	p, err := f.safePath(abs)
	if err != nil {
		return false, err
	}
	return exists(p)
}

func exists(p string) (bool, error) {
	_, err := os.Lstat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: stat %s: %v", apperr.ErrIO, p, err)
}

// MoveNoClobber renames src to dst. If dst exists it returns
// apperr.ErrNameConflict and touches neither file. Other failures wrap
// apperr.ErrIO.
func (f *FS) MoveNoClobber(src, dst string) error {
	absSrc, err := f.safePath(src)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrIO, err)
	}
	absDst, err := f.safePath(dst)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrIO, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	taken, err := exists(absDst)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("storage: %w: %s", apperr.ErrNameConflict, absDst)
	}
	if err := os.Rename(absSrc, absDst); err != nil {
		return fmt.Errorf("%w: rename %s: %v", apperr.ErrIO, filepath.Base(absSrc), err)
	}
	return nil
}
