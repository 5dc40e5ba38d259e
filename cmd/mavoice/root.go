package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mavoice/internal/app"
	"mavoice/internal/config"
	"mavoice/internal/hotkey"
)

type rootFlags struct {
	configPath    string
	mode          string
	dashboardAddr string
	verbose       bool
}

func newRootCmd() *cobra.Command {
	var f rootFlags
	cmd := &cobra.Command{
		Use:   "mavoice",
		Short: "Voice dictation and live voice assistant overlay",
		Long: `mavoice lives in the system tray.

Dictation records the microphone, transcribes it with Groq and pastes the
text into the window that was focused when recording started. The live mode
holds a two-way voice conversation with Gemini.

Overlay gestures: click toggles dictation, double click or double Alt
toggles the assistant, ESC cancels.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "config file (default: <user config dir>/mavoice/config.yaml)")
	fl.StringVar(&f.mode, "mode", "", "start mode: groq, or gemini to connect the assistant at start")
	fl.StringVar(&f.dashboardAddr, "dashboard-addr", "", "dashboard listen address for this run")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func run(ctx context.Context, f rootFlags) error {
	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	cfg, err := config.Load(f.configPath, log)
	if err != nil {
		return err
	}
	if f.mode != "" {
		if err := cfg.SetMode(f.mode); err != nil {
			return fmt.Errorf("--mode: %w", err)
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("mavoice запускается", "version", Version, "config", cfg.Path(), "mode", cfg.Mode())

	// Трей и горячие клавиши требуют главного потока (macOS).
	var runErr error
	hotkey.RunOnMainThread(func() {
		d, err := app.NewDesktop(ctx, cfg, app.DesktopOptions{
			AutoConnect:   cfg.Mode() == config.ModeGemini,
			DashboardAddr: f.dashboardAddr,
		}, log)
		if err != nil {
			runErr = err
			return
		}
		runErr = d.Run(ctx)
	})
	return runErr
}
