package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
)

// watchExecutable calls stop when the running binary is rewritten, so that a
// supervisor can restart the server with the new build.
func watchExecutable(ctx context.Context, stop func()) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) || event.Has(fsnotify.Remove) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown", "op", event.Op.String())
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}
