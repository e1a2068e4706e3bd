package ui

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/tbstudio/storyboard-agent/internal/export"
	"github.com/tbstudio/storyboard-agent/internal/persist"
	"github.com/tbstudio/storyboard-agent/internal/storyboard"
	"github.com/tbstudio/storyboard-agent/internal/studio"
)

//go:embed icon.png
var iconBytes []byte

const DefaultRefresh = 5 * time.Second

type Tray struct {
	store     *studio.Store
	slot      *persist.Slot
	autosaver *persist.AutoSaver
	warnBytes int
	refresh   time.Duration
	logger    *slog.Logger

	projectItem *systray.MenuItem
	storageItem *systray.MenuItem

	mu     sync.Mutex
	stopCh chan struct{}

	onExport func(export.Format) (string, error)
	onQuit   func()
}

type TrayConfig struct {
	Store     *studio.Store
	Slot      *persist.Slot
	AutoSaver *persist.AutoSaver
	WarnBytes int
	Refresh   time.Duration
	Logger    *slog.Logger
	// OnExport writes an export of the current project and returns its path.
	OnExport func(export.Format) (string, error)
	OnQuit   func()
}

func NewTray(cfg TrayConfig) *Tray {
	refresh := cfg.Refresh
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	warn := cfg.WarnBytes
	if warn <= 0 {
		warn = persist.DefaultWarnBytes
	}
	return &Tray{
		store:     cfg.Store,
		slot:      cfg.Slot,
		autosaver: cfg.AutoSaver,
		warnBytes: warn,
		refresh:   refresh,
		logger:    cfg.Logger,
		onExport:  cfg.OnExport,
		onQuit:    cfg.OnQuit,
		stopCh:    make(chan struct{}),
	}
}

// Run blocks until the tray exits. It must be called from the main
// goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Storyboard")
	systray.SetTooltip("Storyboard Agent")

	t.projectItem = systray.AddMenuItem("Project: -", "Current project")
	t.projectItem.Disable()

	t.storageItem = systray.AddMenuItem("Storage: -", "Saved project size")
	t.storageItem.Disable()

	systray.AddSeparator()

	jsonItem := systray.AddMenuItem("Export JSON", "Write the project as JSON")
	pdfItem := systray.AddMenuItem("Export PDF", "Write the storyboard as PDF")
	edlItem := systray.AddMenuItem("Export EDL", "Write an animatic edit list")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Storyboard Agent")

	t.refreshStatus()

	go func() {
		ticker := time.NewTicker(t.refresh)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.refreshStatus()
			case <-jsonItem.ClickedCh:
				t.handleExport(export.FormatJSON)
			case <-pdfItem.ClickedCh:
				t.handleExport(export.FormatPDF)
			case <-edlItem.ClickedCh:
				t.handleExport(export.FormatEDL)
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			case <-t.stopCh:
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) handleExport(f export.Format) {
	if t.onExport == nil {
		return
	}
	path, err := t.onExport(f)
	if err != nil {
		t.logger.Error("tray export failed", "format", f, "error", err)
		return
	}
	t.logger.Info("tray export written", "format", f, "path", path)
}

func (t *Tray) refreshStatus() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.projectItem.SetTitle(projectTitle(t.store.Project()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	size, err := t.slot.Size(ctx)
	if err != nil {
		t.logger.Warn("failed to read storage size", "error", err)
		return
	}
	quotaExceeded := t.autosaver != nil && t.autosaver.QuotaExceeded()
	t.storageItem.SetTitle(storageTitle(size, t.warnBytes, quotaExceeded))
}

// Quit stops the refresh loop and closes the tray.
func (t *Tray) Quit() {
	t.mu.Lock()
	select {
	case <-t.stopCh:
	default:
		close(t.stopCh)
	}
	t.mu.Unlock()
	systray.Quit()
}

func projectTitle(p storyboard.Project) string {
	shots := p.ShotCount()
	unit := "shots"
	if shots == 1 {
		unit = "shot"
	}
	return fmt.Sprintf("%s (%d %s)", p.Meta.Name, shots, unit)
}

func storageTitle(size, warn int, quotaExceeded bool) string {
	if quotaExceeded {
		return fmt.Sprintf("Storage full: %s, changes not saved", formatMB(size))
	}
	if size >= warn {
		return fmt.Sprintf("Storage: %s of %s (nearly full)", formatMB(size), formatMB(warn))
	}
	return "Storage: " + formatMB(size)
}

func formatMB(n int) string {
	return fmt.Sprintf("%.2f MB", float64(n)/(1<<20))
}
