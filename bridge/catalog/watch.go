package catalog

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the catalog whenever the CSV file is rewritten. It blocks
// until ctx is cancelled; run it on its own goroutine. A failed reload keeps
// the previous table and logs the error.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors and deploy tooling often replace the
	// file with rename+create rather than writing in place.
	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		return err
	}

	target := filepath.Clean(c.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
				if err := c.Reload(); err != nil {
					c.logger.Error().Err(err).Msg("price list reload failed, keeping previous table")
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Error().Err(err).Msg("price list watcher error")
		}
	}
}
