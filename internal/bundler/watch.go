package bundler

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/FreePeak/golang-widget-sdk/internal/infrastructure/logging"
)

// Watch invalidates cached bundles when their source files change on
// disk, and reports each invalidation through the configured callback so
// providers can notify subscribed sessions. It blocks until the context
// is cancelled.
func (b *Bundler) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	defer watcher.Close()

	// fsnotify does not recurse; watch the root and every subdirectory.
	walkErr := filepath.Walk(b.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if walkErr != nil {
		return errors.Wrap(walkErr, "watching root dir")
	}

	b.logger.Info("watching component sources", logging.Fields{"root": b.rootDir})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			b.handleSourceChange(event.Name)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			b.logger.Warn("watch error", logging.Fields{"error": watchErr.Error()})
		}
	}
}

func (b *Bundler) handleSourceChange(path string) {
	b.mu.Lock()
	componentType, tracked := b.sources[path]
	b.mu.Unlock()
	if !tracked {
		return
	}

	b.Invalidate(componentType)
	b.logger.Debug("bundle invalidated", logging.Fields{"type": componentType, "source": path})

	if b.onInvalidate != nil {
		b.onInvalidate(componentType)
	}
}
