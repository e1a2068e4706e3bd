package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EnvConfigFile, EnvPort, EnvLogLevel, EnvDataDir, EnvStorage, EnvRedisAddr,
		EnvRedisPassword, EnvRedisDB, EnvRedisPrefix, EnvSlotKey, EnvQuotaBytes,
		EnvWarnBytes, EnvDebounce, EnvImageMaxWidth, EnvImageQuality, EnvUploadLimit,
		EnvPDFFont, EnvHeadless, EnvInbox,
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestNew_Defaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.Port() != DefaultPort || cfg.Storage() != StorageSQLite || cfg.SlotKey() != "tb-storyboard-project" {
		t.Errorf("unexpected defaults: port=%d storage=%s slot=%s", cfg.Port(), cfg.Storage(), cfg.SlotKey())
	}
	if cfg.AutosaveDebounce() != 500*time.Millisecond {
		t.Errorf("AutosaveDebounce() = %s", cfg.AutosaveDebounce())
	}
	if cfg.ImageMaxWidth() != 480 || cfg.ImageQuality() != 50 {
		t.Errorf("image settings = %d/%d", cfg.ImageMaxWidth(), cfg.ImageQuality())
	}
	if cfg.QuotaBytes() != 5<<20 || cfg.WarnBytes() != 4<<20 {
		t.Errorf("quota/warn = %d/%d", cfg.QuotaBytes(), cfg.WarnBytes())
	}
	if !cfg.InboxEnabled() || cfg.Headless() {
		t.Errorf("inbox=%v headless=%v", cfg.InboxEnabled(), cfg.Headless())
	}
	if filepath.Base(cfg.DBPath()) != DBFilename {
		t.Errorf("DBPath() = %s", cfg.DBPath())
	}
}

func TestNew_FileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "storyboard.yaml")
	yml := `
port: 9000
log_level: debug
storage:
  backend: redis
  autosave_debounce: 250ms
redis:
  addr: redis.local:6380
  db: 2
images:
  quality: 70
headless: true
`
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvPort, "9100")
	t.Setenv(EnvInbox, "false")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.Port() != 9100 {
		t.Errorf("Port() = %d, want env override 9100", cfg.Port())
	}
	if cfg.LogLevel() != "debug" || cfg.Storage() != StorageRedis || cfg.RedisAddr() != "redis.local:6380" || cfg.RedisDB() != 2 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.AutosaveDebounce() != 250*time.Millisecond || cfg.ImageQuality() != 70 {
		t.Errorf("debounce=%s quality=%d", cfg.AutosaveDebounce(), cfg.ImageQuality())
	}
	if !cfg.Headless() || cfg.InboxEnabled() {
		t.Errorf("headless=%v inbox=%v", cfg.Headless(), cfg.InboxEnabled())
	}
}

func TestNew_DotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)
	t.Cleanup(func() { os.Unsetenv(EnvSlotKey) })

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("STORYBOARD_SLOT_KEY=from-dotenv\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.SlotKey() != "from-dotenv" {
		t.Errorf("SlotKey() = %q, want from-dotenv", cfg.SlotKey())
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"port":     {EnvPort, "70000"},
		"port nan": {EnvPort, "abc"},
		"storage":  {EnvStorage, "postgres"},
		"quality":  {EnvImageQuality, "0"},
		"debounce": {EnvDebounce, "soon"},
		"headless": {EnvHeadless, "maybe"},
		"file":     {EnvConfigFile, "/nonexistent/storyboard.yaml"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			chdir(t, t.TempDir())
			t.Setenv(kv[0], kv[1])
			if _, err := New(); err == nil {
				t.Errorf("New() with %s=%s error = nil", kv[0], kv[1])
			}
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
