package persist

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/tbstudio/storyboard-agent/internal/db"
	"github.com/tbstudio/storyboard-agent/internal/storyboard"
)

// memKV is an in-memory KV that reports every Set on a channel.
type memKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	sets   int
	setErr error
	setCh  chan []byte

	// delay before each Set takes effect
	setDelay time.Duration
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}, setCh: make(chan []byte, 16)}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	time.Sleep(m.setDelay)
	m.mu.Lock()
	m.sets++
	err := m.setErr
	if err == nil {
		m.data[key] = value
	}
	m.mu.Unlock()
	m.setCh <- value
	return err
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memKV) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

func TestSQLiteKV(t *testing.T) {
	database, err := db.New(context.Background(), filepath.Join(t.TempDir(), "kv.db"), nil)
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	defer database.Close()

	kv := NewSQLiteKV(database.Conn())
	ctx := context.Background()

	if _, err := kv.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) err = %v, want ErrNotFound", err)
	}
	if err := kv.Set(ctx, "a", []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := kv.Set(ctx, "a", []byte("two")); err != nil {
		t.Fatal(err)
	}
	got, err := kv.Get(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "two" {
		t.Errorf("Get(a) = %q, want two", got)
	}
	if err := kv.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := kv.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete err = %v", err)
	}
}

func TestRedisKV(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	kv := NewRedisKV(client, "storyboard:")
	ctx := context.Background()

	_, err := kv.Get(ctx, "slot")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "slot", []byte(`{"x":1}`)))
	require.True(t, mr.Exists("storyboard:slot"))

	got, err := kv.Get(ctx, "slot")
	require.NoError(t, err)
	require.Equal(t, `{"x":1}`, string(got))

	require.NoError(t, kv.Delete(ctx, "slot"))
	require.False(t, mr.Exists("storyboard:slot"))
}

func TestSlot_RoundTripOverRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	slot := NewSlot(NewRedisKV(client, ""), "", 0)
	ctx := context.Background()

	p := storyboard.SetName(storyboard.NewProject(7), "Redis Project")
	require.NoError(t, slot.Save(ctx, p))

	size, err := slot.Size(ctx)
	require.NoError(t, err)
	require.Positive(t, size)

	loaded, err := slot.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "Redis Project", loaded.Meta.Name)
	require.Equal(t, p.Storyboard.Sequences[0].ID, loaded.Storyboard.Sequences[0].ID)
}

func TestSlot_Quota(t *testing.T) {
	kv := newMemKV()
	slot := NewSlot(kv, "k", 64)

	err := slot.Save(context.Background(), storyboard.NewProject(0))
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
	var qe *QuotaError
	if !errors.As(err, &qe) || qe.Limit != 64 || qe.Size <= 64 {
		t.Errorf("QuotaError = %+v", qe)
	}
	if kv.setCount() != 0 {
		t.Error("oversized project was written")
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("empty slot", func(t *testing.T) {
		p := Load(ctx, NewSlot(newMemKV(), "", 0), 99, nil)
		if p.Meta.Name != storyboard.DefaultProjectName || p.Meta.CreatedAt != 99 {
			t.Errorf("meta = %+v", p.Meta)
		}
	})

	t.Run("corrupt slot", func(t *testing.T) {
		kv := newMemKV()
		kv.data[DefaultSlotKey] = []byte("{not json")
		p := Load(ctx, NewSlot(kv, "", 0), 5, nil)
		if p.Meta.Name != storyboard.DefaultProjectName {
			t.Errorf("meta = %+v", p.Meta)
		}
	})

	t.Run("legacy cards", func(t *testing.T) {
		kv := newMemKV()
		kv.data[DefaultSlotKey] = []byte(`{"meta":{"name":"Old","frameRate":0,"aspectRatio":"16:9"},
			"conceptArt":{"characters":[{"id":"c","name":"A","category":"characters","images":[{"id":"i","dataUrl":"d","width":1,"height":1}]}],"locations":[],"props":[]},
			"storyboard":{"sequences":[]}}`)
		p := Load(ctx, NewSlot(kv, "", 0), 5, nil)
		if p.Meta.FrameRate != storyboard.DefaultFrameRate {
			t.Errorf("frameRate = %d", p.Meta.FrameRate)
		}
		slots := p.ConceptArt.Characters[0].Slots
		if len(slots) != 1 || slots[0].Image == nil || slots[0].Image.ID != "i" {
			t.Errorf("slots = %+v", slots)
		}
	})

	t.Run("out of range times and numbering", func(t *testing.T) {
		kv := newMemKV()
		kv.data[DefaultSlotKey] = []byte(`{"meta":{"name":"Hand edited","frameRate":24,"aspectRatio":"16:9"},
			"conceptArt":{"characters":[],"locations":[],"props":[]},
			"storyboard":{"sequences":[{"id":"q","name":"S","order":4,"scenes":[{"id":"c","name":"C","order":2,
				"shots":[{"id":"a","cutNumber":"9","order":7,"time":{"seconds":-5,"frames":99}}]}]}]}}`)
		p := Load(ctx, NewSlot(kv, "", 0), 5, nil)
		sc := p.Storyboard.Sequences[0].Scenes[0]
		shot := sc.Shots[0]
		if shot.Time != (storyboard.TimeCode{Seconds: 0, Frames: 23}) {
			t.Errorf("time = %s, want 0+23", shot.Time)
		}
		if shot.CutNumber != "001-1" || shot.Order != 0 || sc.Order != 0 {
			t.Errorf("numbering not repaired: scene order %d, shot %+v", sc.Order, shot)
		}
		if sc.Duration(24) != 23 {
			t.Errorf("Duration(24) = %d, want 23", sc.Duration(24))
		}
	})
}
