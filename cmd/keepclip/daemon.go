package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"go.klb.dev/keepclip/internal/clip"
	"go.klb.dev/keepclip/internal/hub"
	"go.klb.dev/keepclip/internal/ipc"
	"go.klb.dev/keepclip/internal/persist"
	"go.klb.dev/keepclip/internal/service"
	"go.klb.dev/keepclip/internal/watcher"
)

func newDaemonCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Watch the pasteboard and keep the history",
		Long: `Starts the keepclip daemon. It polls the system pasteboard, records each new
distinct entry and saves the history to <data-dir>/history.json after every
change. Preferences live in <data-dir>/settings.toml; edits to that file are
picked up while the daemon runs.

Only one daemon may use a data directory at a time.

Config file search order:
  /etc/keepclip/keepclip.toml
  $HOME/.config/keepclip/keepclip.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → KEEPCLIP_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runDaemon(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.String("data-dir", "", "history and settings directory (default: per-user application data)")
	f.Duration("poll-interval", watcher.DefaultInterval, "how often to check the pasteboard for changes")
	f.Bool("headless", false, "use an in-memory pasteboard instead of the system one")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(parent context.Context, v *viper.Viper) error {
	setupLogging(v)

	dir := v.GetString("data-dir")
	if dir == "" {
		var err error
		if dir, err = persist.DefaultDir(); err != nil {
			return err
		}
	}

	lock, err := persist.Lock(dir)
	if err != nil {
		if errors.Is(err, persist.ErrLocked) {
			slog.Error("daemon already running", "data_dir", dir)
		}
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("release data directory lock", "err", err)
		}
	}()

	var backend clip.Backend
	if v.GetBool("headless") {
		backend = clip.NewHeadless()
	} else {
		backend = clip.New()
	}
	defer backend.Close()

	slog.Info("keepclip daemon starting",
		"version", Version,
		"data_dir", dir,
		"backend", backend.Name(),
		"poll_interval", v.GetDuration("poll-interval"),
	)

	h := hub.Open(dir, backend, hub.WithInterval(v.GetDuration("poll-interval")))

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.Run(ctx) })
	g.Go(func() error {
		if err := h.WatchSettings(ctx); err != nil {
			// The history still works; only live settings edits are lost.
			slog.Warn("settings file not watched", "err", err)
		}
		return nil
	})

	// IPC socket for the CLI and the HTTP API.
	ln, err := ipc.Listen()
	if err != nil {
		slog.Warn("IPC socket unavailable", "path", ipc.SocketPath(), "err", err)
	} else {
		slog.Info("IPC socket listening", "path", ipc.SocketPath())
		g.Go(func() error { return service.New(h, Version).Serve(ctx, ln) })
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	slog.Info("keepclip daemon stopped")
	return nil
}
