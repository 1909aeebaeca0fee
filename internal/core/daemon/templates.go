// Package daemon runs background upkeep for long-lived commands
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/neilberkman/appforge/internal/core/llm"
)

// settle is how long the watcher waits after the last event before reloading
const settle = 100 * time.Millisecond

// TemplateWatcher reloads prompt template overrides when files in the
// prompts directory change and hands each valid set to apply
type TemplateWatcher struct {
	dir     string
	apply   func(llm.Templates)
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	mu    sync.Mutex
	stats WatcherStats
}

// WatcherStats tracks reload activity
type WatcherStats struct {
	StartTime  time.Time
	Reloads    int
	LastReload time.Time
	Errors     int
}

// NewTemplateWatcher watches dir, which must exist
func NewTemplateWatcher(dir string, apply func(llm.Templates), logger *slog.Logger) (*TemplateWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("prompts directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("prompts path is not a directory: %s", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &TemplateWatcher{
		dir:     dir,
		apply:   apply,
		logger:  logger,
		watcher: watcher,
		stats:   WatcherStats{StartTime: time.Now()},
	}, nil
}

// Start blocks until ctx is done, reloading after each burst of changes
func (w *TemplateWatcher) Start(ctx context.Context) error {
	defer w.watcher.Close()
	w.logger.Info("watching prompt templates", "dir", w.dir)

	timer := time.NewTimer(settle)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher closed unexpectedly")
			}
			if shouldProcessEvent(event) {
				w.logger.Debug("template event", "op", event.Op.String(), "file", event.Name)
				timer.Reset(settle)
			}

		case <-timer.C:
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			w.logger.Error("template watcher error", "error", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		}
	}
}

// reload keeps the current templates when the new set does not load or parse
func (w *TemplateWatcher) reload() {
	t, err := llm.LoadTemplates(w.dir)
	if err == nil {
		err = t.Validate()
	}
	if err != nil {
		w.logger.Error("keeping previous prompt templates", "dir", w.dir, "error", err)
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		return
	}

	w.apply(t)
	w.mu.Lock()
	w.stats.Reloads++
	w.stats.LastReload = time.Now()
	w.mu.Unlock()
	w.logger.Info("reloaded prompt templates", "dir", w.dir)
}

// Stats returns a copy of the reload counters
func (w *TemplateWatcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// shouldProcessEvent reports whether event touches a template file
func shouldProcessEvent(event fsnotify.Event) bool {
	if !strings.HasSuffix(filepath.Base(event.Name), ".mustache") {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
