package persist

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/tbstudio/storyboard-agent/internal/storyboard"
)

func waitSet(t *testing.T, kv *memKV) []byte {
	t.Helper()
	select {
	case v := <-kv.setCh:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for write")
		return nil
	}
}

func named(name string) storyboard.Project {
	return storyboard.SetName(storyboard.NewProject(0), name)
}

func TestAutoSaver_DebouncesToLatest(t *testing.T) {
	defer goleak.VerifyNone(t)

	kv := newMemKV()
	a := NewAutoSaver(NewSlot(kv, "k", 0), 30*time.Millisecond, nil)
	defer a.Close()

	for _, name := range []string{"one", "two", "three"} {
		a.Schedule(named(name))
	}

	data := waitSet(t, kv)
	p, err := storyboard.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if p.Meta.Name != "three" {
		t.Errorf("saved %q, want three", p.Meta.Name)
	}

	time.Sleep(80 * time.Millisecond)
	if n := kv.setCount(); n != 1 {
		t.Errorf("writes = %d, want 1", n)
	}
	if a.LastSaved().IsZero() {
		t.Error("LastSaved not recorded")
	}
}

func TestAutoSaver_Flush(t *testing.T) {
	defer goleak.VerifyNone(t)

	kv := newMemKV()
	a := NewAutoSaver(NewSlot(kv, "k", 0), time.Hour, nil)
	defer a.Close()

	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() with nothing pending = %v", err)
	}

	a.Schedule(named("pending"))
	if !a.Pending() {
		t.Fatal("Pending() = false after Schedule")
	}
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	waitSet(t, kv)
	if a.Pending() {
		t.Error("Pending() = true after Flush")
	}
}

func TestAutoSaver_FlushWaitsForRunningWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	kv := newMemKV()
	kv.setDelay = 200 * time.Millisecond
	a := NewAutoSaver(NewSlot(kv, "k", 0), 10*time.Millisecond, nil)
	defer a.Close()

	a.Schedule(named("last edit"))
	// let the timer take the tree and start writing
	time.Sleep(50 * time.Millisecond)
	if a.Pending() {
		t.Fatal("timer has not taken the pending tree")
	}

	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	data, err := kv.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("Flush returned before the running write finished: %v", err)
	}
	p, err := storyboard.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if p.Meta.Name != "last edit" {
		t.Errorf("saved %q, want last edit", p.Meta.Name)
	}
}

func TestAutoSaver_QuotaWarnsOncePerStreak(t *testing.T) {
	defer goleak.VerifyNone(t)

	kv := newMemKV()
	slot := NewSlot(kv, "k", 0)
	a := NewAutoSaver(slot, time.Hour, nil)
	defer a.Close()

	warnings := 0
	a.OnQuotaExceeded(func(*QuotaError) { warnings++ })
	ctx := context.Background()

	kv.setErr = &QuotaError{Size: 10, Limit: 5}
	for i := 0; i < 3; i++ {
		a.Schedule(named("big"))
		if err := a.Flush(ctx); !errors.Is(err, ErrQuotaExceeded) {
			t.Fatalf("Flush() err = %v", err)
		}
		waitSet(t, kv)
	}
	if warnings != 1 {
		t.Errorf("warnings = %d, want 1", warnings)
	}
	if !a.QuotaExceeded() {
		t.Error("QuotaExceeded() = false")
	}

	kv.setErr = nil
	a.Schedule(named("small"))
	if err := a.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	waitSet(t, kv)
	if a.QuotaExceeded() {
		t.Error("QuotaExceeded() still true after a successful write")
	}

	kv.setErr = &QuotaError{Size: 10, Limit: 5}
	a.Schedule(named("big again"))
	a.Flush(ctx)
	waitSet(t, kv)
	if warnings != 2 {
		t.Errorf("warnings = %d, want 2 after a new streak", warnings)
	}
}

func TestAutoSaver_OtherErrorsDoNotWarn(t *testing.T) {
	defer goleak.VerifyNone(t)

	kv := newMemKV()
	kv.setErr = errors.New("disk on fire")
	a := NewAutoSaver(NewSlot(kv, "k", 0), time.Hour, nil)
	defer a.Close()

	warned := false
	a.OnQuotaExceeded(func(*QuotaError) { warned = true })

	a.Schedule(named("x"))
	if err := a.Flush(context.Background()); err == nil {
		t.Fatal("Flush() error = nil")
	}
	waitSet(t, kv)
	if warned || a.QuotaExceeded() {
		t.Error("non-capacity failure treated as quota error")
	}
}

func TestAutoSaver_CloseDropsPending(t *testing.T) {
	defer goleak.VerifyNone(t)

	kv := newMemKV()
	a := NewAutoSaver(NewSlot(kv, "k", 0), 20*time.Millisecond, nil)
	a.Schedule(named("x"))
	a.Close()
	a.Schedule(named("y"))

	time.Sleep(60 * time.Millisecond)
	if n := kv.setCount(); n != 0 {
		t.Errorf("writes after Close = %d, want 0", n)
	}
}
