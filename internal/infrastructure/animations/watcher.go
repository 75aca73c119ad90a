package animations

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const DefaultDebounce = 250 * time.Millisecond

// Watcher calls onChange after the definitions file has been written and then stayed quiet for
// the debounce window. The parent directory is watched so editors that replace the file are seen.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func()
	logger   *logrus.Logger
}

// NewWatcher creates a watcher for path
func NewWatcher(path string, debounce time.Duration, onChange func(), logger *logrus.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	if w.logger != nil {
		w.logger.WithField("path", w.path).Info("Watching animations file")
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if w.logger != nil {
				w.logger.WithFields(logrus.Fields{"file": event.Name, "op": event.Op.String()}).Debug("Animations file changed")
			}
			timer.Reset(w.debounce)
		case <-timer.C:
			w.onChange()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			if w.logger != nil {
				w.logger.WithField("dir", dir).WithError(err).Warn("File watcher error")
			}
		}
	}
}
