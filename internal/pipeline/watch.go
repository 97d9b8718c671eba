package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/retitle/internal/apperr"
	"github.com/starford/retitle/internal/checksum"
	"github.com/starford/retitle/internal/models"
	"github.com/starford/retitle/internal/storage"
)

// Watch processes PDFs created or written under dir until ctx is
// cancelled. A file is picked up once no event has touched the directory
// for the debounce interval. Files produced by our own renames and
// content already handled this session are ignored.
//
// cb, if non-nil, receives every outcome.
func (d *Driver) Watch(ctx context.Context, dir string, cb func(models.Outcome)) error {
	store, err := storage.NewFS(dir)
	if err != nil {
		return err
	}
	root := store.Root()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("pipeline: watcher: %w", err)
	}
	defer w.Close()

	if err := d.addDirs(w, root); err != nil {
		return fmt.Errorf("pipeline: watch %s: %w", root, err)
	}

	log := d.logger.With(slog.String("stage", "watch"))
	log.Info("watcher: started", slog.String("root", root), slog.Duration("debounce", d.opts.Debounce))

	pending := make(map[string]struct{})
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	schedule := func() {
		if flushTimer == nil {
			flushTimer = time.NewTimer(d.opts.Debounce)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(d.opts.Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			log.Info("watcher: stopped")
			return nil

		case <-flushCh:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			sort.Strings(paths)
			for _, p := range paths {
				if ctx.Err() != nil {
					break
				}
				if out, ok := d.watched(ctx, store, p, log); ok && cb != nil {
					cb(out)
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if strings.HasPrefix(name, ".") {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if !d.opts.Recursive {
						continue
					}
					if addErr := d.addDirs(w, ev.Name); addErr != nil {
						log.Warn("watcher: add new dir failed", slog.String("path", ev.Name), slog.String("error", addErr.Error()))
						continue
					}
					for _, p := range pdfsUnder(ev.Name) {
						pending[p] = struct{}{}
					}
					schedule()
					continue
				}
			}

			if !storage.IsPDF(name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// watched runs the pipeline for a path reported by the watcher, unless it
// is one of our own renames or content already handled.
func (d *Driver) watched(ctx context.Context, store *storage.FS, path string, log *slog.Logger) (models.Outcome, bool) {
	if d.takeProduced(path) {
		log.Debug("watcher: ignoring own rename", slog.String("path", path))
		return models.Outcome{}, false
	}
	sum, err := checksum.SumFile(path)
	if err != nil {
		// Gone again before the debounce fired.
		log.Debug("watcher: file vanished", slog.String("path", path), slog.String("error", err.Error()))
		return models.Outcome{}, false
	}
	if d.isSeen(sum) {
		log.Debug("watcher: content already handled", slog.String("path", path))
		return models.Outcome{}, false
	}
	doc, err := store.Inspect(path)
	if err != nil {
		log.Warn("watcher: inspect failed", slog.String("path", path), slog.String("error", err.Error()))
		return models.Outcome{}, false
	}
	out := d.process(ctx, store, doc, d.opts.DryRun)
	if final(out) {
		d.markSeen(sum)
	}
	return out, true
}

// final reports whether another attempt on the same content would end the
// same way. Transport errors, timeouts and cancellation are not final, so
// the next write to the file retries it.
func final(o models.Outcome) bool {
	switch o.Kind {
	case models.KindRenamed, models.KindPlanned, models.KindSkippedExists:
		return true
	case models.KindSkippedNoText:
		return o.Err == nil
	case models.KindSkippedNoTitle:
		return errors.Is(o.Err, apperr.ErrInsufficientContent)
	default:
		return false
	}
}

// addDirs watches root and, in recursive mode, every non-hidden
// subdirectory.
func (d *Driver) addDirs(w *fsnotify.Watcher, root string) error {
	if !d.opts.Recursive {
		return w.Add(root)
	}
	return filepath.WalkDir(root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !e.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(e.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// pdfsUnder lists PDFs already present in a newly created directory.
func pdfsUnder(dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if e.IsDir() {
			if path != dir && strings.HasPrefix(e.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasPrefix(e.Name(), ".") && storage.IsPDF(e.Name()) {
			out = append(out, path)
		}
		return nil
	})
	return out
}
