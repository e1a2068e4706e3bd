// Package watcher runs the import inbox: a directory where exported project
// files and images can be dropped to be pulled into the live project.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tbstudio/storyboard-agent/internal/imaging"
	"github.com/tbstudio/storyboard-agent/internal/logging"
	"github.com/tbstudio/storyboard-agent/internal/storyboard"
)

const (
	DefaultDebounce = 500 * time.Millisecond
	tickInterval    = 100 * time.Millisecond

	ImportedDir = "imported"
	RejectedDir = "rejected"
)

// Target receives what the inbox picks up.
type Target interface {
	Import(data []byte) (storyboard.Project, error)
	AddImageShot(img storyboard.ImageData) (storyboard.Shot, error)
}

type Kind string

const (
	KindProject Kind = "project"
	KindImage   Kind = "image"
)

// Result describes one processed inbox file. Path is where the file ended
// up: under imported/ on success, rejected/ on failure.
type Result struct {
	Name string
	Kind Kind
	Path string
	Err  error
}

type Stats struct {
	Imported int
	Rejected int
	Errors   int
}

// Inbox watches dir and processes files once they have been quiet for the
// debounce window. .json files replace the project, anything else goes
// through the image pipeline and becomes a new shot in the selected scene.
type Inbox struct {
	dir      string
	target   Target
	images   *imaging.Processor
	logger   *slog.Logger
	debounce time.Duration
	onResult func(Result)

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending map[string]time.Time
	running bool
	stats   Stats
	stopCh  chan struct{}
	doneCh  chan struct{}
}

type Config struct {
	Dir      string
	Target   Target
	Images   *imaging.Processor
	Logger   *slog.Logger
	Debounce time.Duration
	OnResult func(Result)
}

func NewInbox(cfg Config) *Inbox {
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Inbox{
		dir:      cfg.Dir,
		target:   cfg.Target,
		images:   cfg.Images,
		logger:   logging.WithComponent(logging.OrDiscard(cfg.Logger), "inbox"),
		debounce: debounce,
		onResult: cfg.OnResult,
		pending:  make(map[string]time.Time),
	}
}

func (in *Inbox) Dir() string {
	return in.dir
}

// Start creates the inbox directories, queues files already present and
// begins watching. It returns once the watch is in place.
func (in *Inbox) Start(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.running {
		return nil
	}

	for _, d := range []string{in.dir, filepath.Join(in.dir, ImportedDir), filepath.Join(in.dir, RejectedDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("failed to create inbox directory: %w", err)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(in.dir); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch inbox: %w", err)
	}

	entries, err := os.ReadDir(in.dir)
	if err != nil {
		fsw.Close()
		return fmt.Errorf("failed to scan inbox: %w", err)
	}
	for _, e := range entries {
		if e.Type().IsRegular() && !ignored(e.Name()) {
			in.pending[filepath.Join(in.dir, e.Name())] = time.Time{}
		}
	}

	in.fsw = fsw
	in.running = true
	in.stopCh = make(chan struct{})
	in.doneCh = make(chan struct{})
	go in.run(ctx, fsw, in.stopCh, in.doneCh)

	in.logger.Info("watching import inbox", "dir", logging.SanitizePath(in.dir), "queued", len(in.pending))
	return nil
}

// Stop ends the watch and waits for the event loop to exit. Files still
// inside the debounce window stay in the inbox for the next start.
func (in *Inbox) Stop() error {
	in.mu.Lock()
	if !in.running {
		in.mu.Unlock()
		return nil
	}
	in.running = false
	stopCh, doneCh, fsw := in.stopCh, in.doneCh, in.fsw
	in.mu.Unlock()

	close(stopCh)
	<-doneCh
	return fsw.Close()
}

func (in *Inbox) Stats() Stats {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.stats
}

func (in *Inbox) run(ctx context.Context, fsw *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			in.handleEvent(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			in.logger.Error("inbox watcher error", "error", err)
			in.mu.Lock()
			in.stats.Errors++
			in.mu.Unlock()
		case <-ticker.C:
			in.processSettled()
		}
	}
}

func (in *Inbox) handleEvent(event fsnotify.Event) {
	if filepath.Dir(event.Name) != filepath.Clean(in.dir) || ignored(filepath.Base(event.Name)) {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	in.mu.Lock()
	in.pending[event.Name] = time.Now()
	in.mu.Unlock()
}

func (in *Inbox) processSettled() {
	now := time.Now()
	in.mu.Lock()
	var ready []string
	for path, at := range in.pending {
		if now.Sub(at) >= in.debounce {
			ready = append(ready, path)
			delete(in.pending, path)
		}
	}
	in.mu.Unlock()

	for _, path := range ready {
		in.process(path)
	}
}

func (in *Inbox) process(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}

	name := filepath.Base(path)
	kind := KindImage
	if strings.EqualFold(filepath.Ext(name), ".json") {
		kind = KindProject
	}

	var procErr error
	switch kind {
	case KindProject:
		procErr = in.importProject(path)
	default:
		procErr = in.importImage(path)
	}

	dest := ImportedDir
	if procErr != nil {
		dest = RejectedDir
	}
	moved, err := moveInto(path, filepath.Join(in.dir, dest))
	if err != nil {
		in.logger.Error("failed to move inbox file", "file", name, "error", err)
		moved = path
	}

	in.mu.Lock()
	if procErr != nil {
		in.stats.Rejected++
	} else {
		in.stats.Imported++
	}
	in.mu.Unlock()

	if procErr != nil {
		in.logger.Warn("inbox file rejected", "file", name, "kind", kind, "error", procErr)
	} else {
		in.logger.Info("inbox file imported", "file", name, "kind", kind)
	}
	if in.onResult != nil {
		in.onResult(Result{Name: name, Kind: kind, Path: moved, Err: procErr})
	}
}

func (in *Inbox) importProject(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = in.target.Import(data)
	return err
}

func (in *Inbox) importImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	img, err := in.images.Process(f)
	if err != nil {
		return err
	}
	_, err = in.target.AddImageShot(img)
	return err
}

// moveInto renames path into dir, adding a timestamp when the name is
// already taken.
func moveInto(path, dir string) (string, error) {
	dest := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(path)
		base := strings.TrimSuffix(filepath.Base(path), ext)
		dest = filepath.Join(dir, fmt.Sprintf("%s-%d%s", base, time.Now().UnixNano(), ext))
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	if err := os.Rename(path, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// ignored skips dotfiles and the partial files editors and browsers leave
// while a download is in flight.
func ignored(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tmp", ".part", ".crdownload", ".download", ".swp":
		return true
	}
	return false
}
