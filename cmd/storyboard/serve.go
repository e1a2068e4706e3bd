package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tbstudio/storyboard-agent/internal/api"
	"github.com/tbstudio/storyboard-agent/internal/config"
	"github.com/tbstudio/storyboard-agent/internal/export"
	"github.com/tbstudio/storyboard-agent/internal/imaging"
	"github.com/tbstudio/storyboard-agent/internal/persist"
	"github.com/tbstudio/storyboard-agent/internal/studio"
	"github.com/tbstudio/storyboard-agent/internal/ui"
	"github.com/tbstudio/storyboard-agent/internal/watcher"
)

var serveHeadless bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agent (HTTP API, autosave, import inbox and tray)",
	RunE:  runServe,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().BoolVar(&serveHeadless, "headless", false, "run without the system tray")
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	startTime := time.Now()

	sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	a, err := openApp(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, logger := a.cfg, a.logger
	logger.Info("starting storyboard agent", "version", config.Version, "data_dir", cfg.DataDir(), "storage", cfg.Storage())

	authToken, err := ensureAuthToken(ctx, a.kv)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	project := persist.Load(ctx, a.slot, time.Now().UnixMilli(), logger)
	store := studio.NewStore(project, studio.WithLogger(logger))

	autosaver := persist.NewAutoSaver(a.slot, cfg.AutosaveDebounce(), logger)
	autosaver.OnQuotaExceeded(func(qe *persist.QuotaError) {
		logger.Warn("storage is full, changes are not being saved", "size", qe.Size, "limit", qe.Limit)
	})
	store.OnChange(autosaver.Schedule)

	images := imaging.NewProcessor(cfg.ImageMaxWidth(), cfg.ImageQuality(), cfg.UploadLimit())
	history := export.NewHistory(a.db.Conn())
	exporter := export.NewExporter(history, cfg.PDFFontPath(), logger)

	apiServer := api.NewServer(api.ServerConfig{
		Port:        cfg.Port(),
		Store:       store,
		Slot:        a.slot,
		Backend:     cfg.Storage(),
		AutoSaver:   autosaver,
		Tokens:      a.kv,
		Images:      images,
		Exporter:    exporter,
		History:     history,
		WarnBytes:   cfg.WarnBytes(),
		UploadLimit: cfg.UploadLimit(),
		Logger:      logger,
		StartTime:   startTime,
		Version:     config.Version,
	})

	if err := apiServer.Listen(); err != nil {
		return err
	}
	printBanner(apiServer.Addr(), authToken, cfg.InboxDir())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(apiServer.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return apiServer.Shutdown(shutdownCtx)
	})

	if cfg.InboxEnabled() {
		inbox := watcher.NewInbox(watcher.Config{
			Dir:    cfg.InboxDir(),
			Target: store,
			Images: images,
			Logger: logger,
		})
		if err := inbox.Start(gctx); err != nil {
			logger.Warn("import inbox disabled", "error", err)
		} else {
			g.Go(func() error {
				<-gctx.Done()
				return inbox.Stop()
			})
		}
	}

	if serveHeadless || cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Store:     store,
			Slot:      a.slot,
			AutoSaver: autosaver,
			WarnBytes: cfg.WarnBytes(),
			Logger:    logger,
			OnExport: func(f export.Format) (string, error) {
				dir, err := a.exportsDir()
				if err != nil {
					return "", err
				}
				resp, err := exporter.WriteFile(context.Background(), dir, f, store.Project())
				if err != nil {
					return "", err
				}
				return resp.OutputPath, nil
			},
			OnQuit: cancel,
		})
		g.Go(func() error {
			<-gctx.Done()
			tray.Quit()
			return nil
		})
		tray.Run()
		cancel()
	}

	err = g.Wait()

	logger.Info("initiating graceful shutdown")
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if ferr := autosaver.Flush(flushCtx); ferr != nil {
		logger.Error("final save failed", "error", ferr)
	}
	autosaver.Close()
	if cerr := a.db.Checkpoint(flushCtx); cerr != nil {
		logger.Warn("database checkpoint failed", "error", cerr)
	}

	logger.Info("shutdown complete")
	return err
}

func printBanner(addr, token, inboxDir string) {
	fmt.Fprintln(os.Stdout)
	fmt.Fprintln(os.Stdout, "╔═══════════════════════════════════════════════════════════════════════════════╗")
	fmt.Fprintf(os.Stdout, "║  STORYBOARD AGENT v%-58s ║\n", config.Version)
	fmt.Fprintln(os.Stdout, "╠═══════════════════════════════════════════════════════════════════════════════╣")
	fmt.Fprintf(os.Stdout, "║  API URL:    %-64s ║\n", "http://"+addr)
	fmt.Fprintf(os.Stdout, "║  Auth Token: %-64s ║\n", token)
	fmt.Fprintf(os.Stdout, "║  Inbox:      %-64s ║\n", inboxDir)
	fmt.Fprintln(os.Stdout, "╚═══════════════════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(os.Stdout)
}
