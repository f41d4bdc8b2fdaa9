package config

import (
	"context"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the tunable configuration whenever the config file changes.
// Secrets are NOT reloaded; changing those requires a restart. The watcher
// runs until the context is cancelled.
func Watch(ctx context.Context, onReload func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory: editors replace the file rather than write it
	// in place, which would silently drop a file-level watch.
	dir := filepath.Dir(Get().ConfigFilePath())
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer func() { _ = watcher.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != ConfigFileName {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}

				if err := Reload(); err != nil {
					log.Printf("config reload failed, keeping previous values: %v", err)
					continue
				}
				log.Printf("configuration reloaded from %s", Get().ConfigFilePath())
				if onReload != nil {
					onReload(Get())
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("config watcher error: %v", err)
			}
		}
	}()

	return nil
}
