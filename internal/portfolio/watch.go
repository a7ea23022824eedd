package portfolio

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reports changes to holding files in dir. Bursts of events coalesce
// into a single pending notification; the channel is closed when ctx is
// done.
func Watch(ctx context.Context, dir string, log *slog.Logger) (<-chan struct{}, error) {
	if log == nil {
		log = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Ext(ev.Name) != Ext {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
					!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
					continue
				}
				log.Debug("portfolio file changed", "file", ev.Name, "op", ev.Op.String())
				select {
				case out <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("portfolio watcher error", "error", err)
			}
		}
	}()
	return out, nil
}
