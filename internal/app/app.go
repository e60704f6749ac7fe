// Package app assembles the hosts: it builds a bridge from the loaded
// configuration and runs the terminal UI or the web server on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"termhost/internal/config"
	"termhost/internal/host"
	"termhost/internal/system"
	"termhost/internal/tui"
	"termhost/internal/webui/server"
)

// Attach runs a shell in the local terminal UI. Logs go to
// ~/.termhost/termhost.log while the UI owns the terminal.
func Attach(ctx context.Context, cfg config.Config) error {
	if dir, err := config.DotDir(); err == nil {
		if c, err := system.LogToFile(filepath.Join(dir, "termhost.log")); err == nil {
			defer c.Close()
		}
	}
	system.SetLevel(cfg.LogLevel)
	go watchConfig(ctx)

	b := host.New(cfg, host.Options{SystemClipboard: cfg.Clipboard.System})
	b.Start(ctx)
	defer b.Close()
	return tui.Run(ctx, b, cfg.Engine.CellWidth, cfg.Engine.CellHeight)
}

// Serve runs the web host on addr until ctx is done. The browser answers
// clipboard traffic itself, so no system clipboard pump runs.
func Serve(ctx context.Context, cfg config.Config, addr string, open bool) error {
	system.SetLevel(cfg.LogLevel)
	go watchConfig(ctx)

	b := host.New(cfg, host.Options{})
	b.Start(ctx)
	defer b.Close()

	srv := &server.Server{Addr: addr, Bridge: b}
	url := fmt.Sprintf("http://%s/", addr)
	system.Logger.Info("starting webui", "url", url)
	if open {
		if err := server.OpenBrowser(url); err != nil {
			system.Logger.Warn("failed to open browser", "err", err)
		}
	}
	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// watchConfig applies log level changes from config.yaml while running.
func watchConfig(ctx context.Context) {
	p, err := config.Path()
	if err != nil {
		return
	}
	err = config.Watch(ctx, p, func(c config.Config) {
		system.SetLevel(c.LogLevel)
		system.Logger.Info("config reloaded", "log_level", c.LogLevel)
	})
	if err != nil {
		system.Logger.Debug("config watch stopped", "err", err)
	}
}
