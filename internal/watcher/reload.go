package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/conneroisu/sitezone/internal/cache"
	"github.com/conneroisu/sitezone/internal/logging"
)

// DefaultDebounce is the quiet period before a batch of edits is applied.
const DefaultDebounce = 150 * time.Millisecond

// Notifier is told after content changed.
type Notifier interface {
	Reload(reason string)
}

// ContentReloader flushes the content cache and notifies browsers when
// content files change. The file source reads from disk on every fetch, so
// dropping cached entries is enough.
type ContentReloader struct {
	store    cache.Store
	notifier Notifier
	logger   logging.Logger
}

func NewContentReloader(store cache.Store, notifier Notifier, logger logging.Logger) *ContentReloader {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ContentReloader{store: store, notifier: notifier, logger: logger.WithComponent("content-reload")}
}

// Handle is a ChangeHandler.
func (r *ContentReloader) Handle(ctx context.Context, events []ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}
	paths := make([]string, 0, len(events))
	for _, e := range events {
		paths = append(paths, e.Type.String()+" "+e.Path)
	}
	r.logger.Info(ctx, "Content files changed", "changes", paths)

	if r.store != nil {
		if err := r.store.Flush(ctx); err != nil {
			return fmt.Errorf("flush content cache: %w", err)
		}
	}
	if r.notifier != nil {
		r.notifier.Reload("content")
	}
	return nil
}

// WatchContent starts watching dir and wires changes to reloader. The
// returned watcher must be stopped by the caller.
func WatchContent(ctx context.Context, dir string, reloader *ContentReloader, logger logging.Logger) (*FileWatcher, error) {
	fw, err := NewFileWatcher(DefaultDebounce, logger)
	if err != nil {
		return nil, err
	}
	fw.AddFilter(ContentFilter)
	fw.AddFilter(NoHiddenFilter)
	fw.AddHandler(reloader.Handle)

	if err := fw.AddRecursive(dir); err != nil {
		_ = fw.Stop()
		return nil, err
	}
	if err := fw.Start(ctx); err != nil {
		_ = fw.Stop()
		return nil, err
	}
	return fw, nil
}
