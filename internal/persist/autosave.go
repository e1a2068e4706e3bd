package persist

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tbstudio/storyboard-agent/internal/logging"
	"github.com/tbstudio/storyboard-agent/internal/storyboard"
)

const DefaultDebounce = 500 * time.Millisecond

// AutoSaver writes the latest project to a Slot once edits have been quiet
// for the debounce delay. Each Schedule call replaces the pending tree and
// restarts the delay, so at most one write is ever pending.
type AutoSaver struct {
	slot    *Slot
	delay   time.Duration
	logger  *slog.Logger
	onQuota func(*QuotaError)

	mu      sync.Mutex
	pending *storyboard.Project
	timer   *time.Timer
	gen     uint64
	closed  bool

	// writes taken but not finished; idle is signalled when it drops to 0
	inflight int
	idle     *sync.Cond

	writeMu sync.Mutex
	written uint64
	warned  bool

	quotaExceeded atomic.Bool
	lastSaved     atomic.Int64
}

func NewAutoSaver(slot *Slot, delay time.Duration, logger *slog.Logger) *AutoSaver {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	a := &AutoSaver{
		slot:   slot,
		delay:  delay,
		logger: logging.OrDiscard(logger),
	}
	a.idle = sync.NewCond(&a.mu)
	return a
}

// OnQuotaExceeded sets the callback run on the first capacity failure of a
// failure streak. Must be called before the first Schedule.
func (a *AutoSaver) OnQuotaExceeded(fn func(*QuotaError)) {
	a.onQuota = fn
}

// Schedule queues p for writing after the debounce delay, cancelling any
// write queued earlier.
func (a *AutoSaver) Schedule(p storyboard.Project) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.pending = &p
	a.gen++
	gen := a.gen
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, func() { a.fire(gen) })
}

// Pending reports whether a write is queued.
func (a *AutoSaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

// Flush writes the pending tree now, if there is one, and returns once every
// write already started by the debounce timer has finished.
func (a *AutoSaver) Flush(ctx context.Context) error {
	var err error
	if p, gen, ok := a.take(0); ok {
		err = a.write(ctx, gen, p)
		a.done()
	}

	a.mu.Lock()
	for a.inflight > 0 {
		a.idle.Wait()
	}
	a.mu.Unlock()
	return err
}

// Close cancels the pending write. Call Flush first to keep it.
func (a *AutoSaver) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.pending = nil
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// QuotaExceeded reports whether the most recent write failed for capacity.
func (a *AutoSaver) QuotaExceeded() bool {
	return a.quotaExceeded.Load()
}

// LastSaved is the time of the last successful write, zero if none.
func (a *AutoSaver) LastSaved() time.Time {
	ms := a.lastSaved.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (a *AutoSaver) fire(gen uint64) {
	p, gen, ok := a.take(gen)
	if !ok {
		return
	}
	a.write(context.Background(), gen, p)
	a.done()
}

func (a *AutoSaver) done() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inflight--
	if a.inflight == 0 {
		a.idle.Broadcast()
	}
}

// take removes the pending tree and counts it as in flight until done is
// called. A non-zero gen only matches the timer armed for that generation.
func (a *AutoSaver) take(gen uint64) (storyboard.Project, uint64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil || (gen != 0 && gen != a.gen) {
		return storyboard.Project{}, 0, false
	}
	p := *a.pending
	a.pending = nil
	a.inflight++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	return p, a.gen, true
}

func (a *AutoSaver) write(ctx context.Context, gen uint64, p storyboard.Project) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	// a newer tree already reached storage
	if gen <= a.written {
		return nil
	}
	a.written = gen

	err := a.slot.Save(ctx, p)
	var qe *QuotaError
	switch {
	case errors.As(err, &qe):
		a.quotaExceeded.Store(true)
		if !a.warned {
			a.warned = true
			a.logger.Warn("project too large for storage; changes are kept in memory only",
				"size", qe.Size, "limit", qe.Limit)
			if a.onQuota != nil {
				a.onQuota(qe)
			}
		}
		return err
	case err != nil:
		a.logger.Error("autosave failed", "error", err)
		return err
	}

	a.quotaExceeded.Store(false)
	a.warned = false
	a.lastSaved.Store(time.Now().UnixMilli())
	a.logger.Debug("project saved", "project", p.Meta.Name)
	return nil
}
