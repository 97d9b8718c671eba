package pipeline

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/starford/retitle/internal/apperr"
	"github.com/starford/retitle/internal/models"
	"github.com/starford/retitle/internal/storage"
)

// Extension is appended to every sanitized name.
const Extension = ".pdf"

// Destination returns the path doc would be renamed to for name.
func Destination(doc models.SourceDocument, name string) string {
	return filepath.Join(filepath.Dir(doc.Path), name+Extension)
}

// rename moves doc to <dir>/<name>.pdf without overwriting anything. In
// dry-run mode it only reports what would happen.
func (d *Driver) rename(ctx context.Context, store storage.Provider, doc models.SourceDocument, name string, dryRun bool) models.Outcome {
	dst := Destination(doc, name)
	out := models.Outcome{Document: doc, Title: name, Path: dst}

	d.renameMu.Lock()
	defer d.renameMu.Unlock()

	if dryRun {
		taken, err := store.Exists(dst)
		switch {
		case err != nil:
			out.Kind, out.Reason, out.Err = models.KindFailed, err.Error(), err
		case taken:
			out.Kind, out.Reason = models.KindSkippedExists, "destination exists"
		default:
			out.Kind = models.KindPlanned
		}
		return out
	}

	if err := ctx.Err(); err != nil {
		out.Kind, out.Path, out.Reason, out.Err = models.KindFailed, "", err.Error(), err
		return out
	}

	err := store.MoveNoClobber(doc.Path, dst)
	switch {
	case errors.Is(err, apperr.ErrNameConflict):
		out.Kind, out.Reason = models.KindSkippedExists, "destination exists"
	case err != nil:
		out.Kind, out.Path, out.Reason, out.Err = models.KindFailed, "", err.Error(), err
	default:
		out.Kind = models.KindRenamed
		d.markProduced(dst)
	}
	return out
}

func (d *Driver) markProduced(path string) {
	d.mu.Lock()
	d.produced[path] = struct{}{}
	d.mu.Unlock()
}

// takeProduced reports whether path came from our own rename and forgets
// it, so later edits to that file are picked up again.
func (d *Driver) takeProduced(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.produced[path]; ok {
		delete(d.produced, path)
		return true
	}
	return false
}

func (d *Driver) isSeen(sum string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[sum]
	return ok
}

// markSeen records a content checksum as handled for the session.
func (d *Driver) markSeen(sum string) {
	d.mu.Lock()
	d.seen[sum] = struct{}{}
	d.mu.Unlock()
}
