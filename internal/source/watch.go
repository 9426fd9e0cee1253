package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceDelay collapses the burst of events an editor produces on save.
const debounceDelay = 200 * time.Millisecond

// Watch calls onChange with the key of every `<key>.json` file in dir that is
// written or created, until ctx is done. Bursts of events for the same key
// are collapsed into one call.
func Watch(ctx context.Context, dir string, logger *zap.Logger, onChange func(key string)) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer w.Close()
		timers := map[string]*time.Timer{}
		defer func() {
			for _, t := range timers {
				t.Stop()
			}
		}()

		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				name := filepath.Base(ev.Name)
				if !strings.HasSuffix(name, ".json") {
					continue
				}
				key := strings.TrimSuffix(name, ".json")
				if ValidKey(key) != nil {
					continue
				}
				logger.Debug("map file changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
				if t, ok := timers[key]; ok {
					t.Stop()
				}
				timers[key] = time.AfterFunc(debounceDelay, func() {
					if ctx.Err() == nil {
						onChange(key)
					}
				})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("map watcher error", zap.Error(err))
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
