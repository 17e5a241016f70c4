package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// Watch calls fn with freshly loaded settings every time the file at name is
// written or created, until ctx is done. The parent directory is watched so
// that editors saving through a rename are seen. Load failures are
// passed to fn and do not stop the watch.
func Watch(ctx context.Context, fs afero.Fs, name string, fn func(*Settings, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(name)
	if err != nil {
		return errors.Errorf("resolving %s: %w", name, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return errors.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	logger := zerolog.Ctx(ctx).With().Str("settings_file", abs).Logger()
	logger.Debug().Msg("watching settings file")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			logger.Debug().Str("op", event.Op.String()).Msg("settings file changed")
			fn(Load(fs, abs))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("settings watcher error")
		}
	}
}
