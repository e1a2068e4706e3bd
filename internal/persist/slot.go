package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tbstudio/storyboard-agent/internal/storyboard"
)

const (
	DefaultSlotKey = "tb-storyboard-project"

	DefaultQuotaBytes = 5 << 20
	// DefaultWarnBytes is the stored size at which the UI starts warning.
	DefaultWarnBytes = 4 << 20
)

var ErrQuotaExceeded = errors.New("storage quota exceeded")

// QuotaError is returned by Slot.Save when the encoded project does not fit.
type QuotaError struct {
	Size  int
	Limit int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%v: project is %d bytes, limit %d", ErrQuotaExceeded, e.Size, e.Limit)
}

func (e *QuotaError) Unwrap() error {
	return ErrQuotaExceeded
}

// Slot is the single named key that holds the serialized project.
type Slot struct {
	kv    KV
	key   string
	quota int
}

// NewSlot returns a slot for key. A non-positive quota disables the size
// check.
func NewSlot(kv KV, key string, quota int) *Slot {
	if key == "" {
		key = DefaultSlotKey
	}
	return &Slot{kv: kv, key: key, quota: quota}
}

func (s *Slot) Key() string {
	return s.key
}

func (s *Slot) Quota() int {
	return s.quota
}

// Save encodes p and writes it, replacing whatever the slot held.
func (s *Slot) Save(ctx context.Context, p storyboard.Project) error {
	data, err := storyboard.Encode(p)
	if err != nil {
		return err
	}
	if s.quota > 0 && len(data) > s.quota {
		return &QuotaError{Size: len(data), Limit: s.quota}
	}
	return s.kv.Set(ctx, s.key, data)
}

// Load reads and decodes the stored project. An empty slot returns
// ErrNotFound.
func (s *Slot) Load(ctx context.Context) (storyboard.Project, error) {
	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return storyboard.Project{}, err
	}
	return storyboard.Decode(data)
}

// Size is the number of bytes currently stored, 0 for an empty slot.
func (s *Slot) Size(ctx context.Context) (int, error) {
	data, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

func (s *Slot) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, s.key)
}

// Load returns the stored project, or a fresh default project when the slot
// is empty or holds something that cannot be decoded.
func Load(ctx context.Context, slot *Slot, now int64, logger *slog.Logger) storyboard.Project {
	p, err := slot.Load(ctx)
	switch {
	case err == nil:
		if p.Meta.FrameRate <= 0 {
			p.Meta.FrameRate = storyboard.DefaultFrameRate
		}
		p = storyboard.Renumber(p)
		if logger != nil {
			logger.Info("project loaded", "project", p.Meta.Name, "shots", p.ShotCount())
		}
		return p
	case errors.Is(err, ErrNotFound):
		if logger != nil {
			logger.Info("no saved project, starting fresh", "key", slot.Key())
		}
	default:
		if logger != nil {
			logger.Error("failed to load project, starting fresh", "key", slot.Key(), "error", err)
		}
	}
	return storyboard.NewProject(now)
}
