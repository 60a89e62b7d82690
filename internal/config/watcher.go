package config

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// settleDelay lets editors finish writing before the file is re-read
const settleDelay = 50 * time.Millisecond

// Watch re-loads the config at path whenever it is written or re-created and
// hands every valid result to onChange. Invalid files are reported through
// onError and otherwise ignored. Watch blocks until ctx is done.
//
// The parent directory is watched rather than the file so that editors that
// replace the file by rename keep being followed.
func Watch(ctx context.Context, path string, onChange func(Config), onError func(error)) error {
	if onError == nil {
		onError = func(err error) { log.Printf("config watch: %v", err) }
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create config watcher")
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			onError(errors.Wrap(err, "close config watcher"))
		}
	}()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "create config directory")
	}
	if err := watcher.Add(dir); err != nil {
		return errors.Wrapf(err, "watch %s", dir)
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			time.Sleep(settleDelay)

			cfg, err := Load(path)
			if err != nil {
				onError(err)
				continue
			}
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onError(errors.Wrap(err, "config watcher"))
		}
	}
}
