package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileDebounce is how long the watcher waits for writes to a settings file to
// settle before reading it.
const FileDebounce = 100 * time.Millisecond

// Watcher re-reads a settings file when it changes on disk.
type Watcher struct {
	filePath string
	driver   Driver
	debounce time.Duration
	onChange func(ctx context.Context, cfg Config)
}

// NewWatcher calls onChange with every config read from filePath that differs
// from the previous one. A debounce less than zero uses FileDebounce.
func NewWatcher(filePath string, driver Driver, debounce time.Duration, onChange func(ctx context.Context, cfg Config)) Watcher {
	if debounce < 0 {
		debounce = FileDebounce
	}
	return Watcher{
		filePath: filepath.Clean(filePath),
		driver:   driver,
		debounce: debounce,
		onChange: onChange,
	}
}

func (w Watcher) String() string {
	return "config.Watcher"
}

func (w Watcher) Serve(ctx context.Context) error {
	slog := slog.With("service", w.String(), "path", w.filePath)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Editors and atomic writers replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(w.filePath)); err != nil {
		return err
	}

	last, err := w.driver.Read()
	if err != nil {
		slog.Error("Failed to read config", "error", err)
	}

	debounce := time.NewTimer(w.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Failed to watch config", "error", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.filePath {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}

			slog.Debug("Config event", "op", ev.Op.String())
			debounce.Reset(w.debounce)
		case <-debounce.C:
			cfg, err := w.driver.Read()
			if err != nil {
				slog.Error("Failed to read config", "error", err)
				continue
			}
			if cfg == last {
				continue
			}
			last = cfg

			slog.Info("Config changed", "folder", cfg.Folder, "delay", cfg.Delay)
			w.onChange(ctx, cfg)
		}
	}
}
