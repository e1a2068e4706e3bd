package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/tbstudio/storyboard-agent/internal/api"
	"github.com/tbstudio/storyboard-agent/internal/config"
	"github.com/tbstudio/storyboard-agent/internal/db"
	"github.com/tbstudio/storyboard-agent/internal/export"
	"github.com/tbstudio/storyboard-agent/internal/logging"
	"github.com/tbstudio/storyboard-agent/internal/persist"
)

// app holds the resources every command needs: config, logger, the SQLite
// database (export history) and the KV backend holding the project slot.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	db     *db.DB
	kv     persist.KV
	slot   *persist.Slot
	redis  *redis.Client
}

// openApp loads config and opens storage. Logs go to logOut so commands that
// write data to stdout keep it clean.
func openApp(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLoggerTo(logOut, cfg.LogLevel())

	database, err := db.New(ctx, cfg.DBPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, db: database}

	switch cfg.Storage() {
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword(),
			DB:       cfg.RedisDB(),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			database.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr(), err)
		}
		a.redis = client
		a.kv = persist.NewRedisKV(client, cfg.RedisPrefix())
	default:
		a.kv = persist.NewSQLiteKV(database.Conn())
	}

	a.slot = persist.NewSlot(a.kv, cfg.SlotKey(), cfg.QuotaBytes())
	logger.Debug("storage ready", "backend", cfg.Storage(), "key", a.slot.Key())
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.db.Close())
	return errors.Join(errs...)
}

func (a *app) exporter() *export.Exporter {
	return export.NewExporter(export.NewHistory(a.db.Conn()), a.cfg.PDFFontPath(), a.logger)
}

// exportsDir is where tray exports are written.
func (a *app) exportsDir() (string, error) {
	dir, err := filepath.Abs(filepath.Join(a.cfg.DataDir(), "exports"))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create exports dir: %w", err)
	}
	return dir, nil
}

// ensureAuthToken returns the stored API token, generating one on first
// use.
func ensureAuthToken(ctx context.Context, kv persist.KV) (string, error) {
	existing, err := kv.Get(ctx, api.AuthTokenKey)
	if err == nil && len(existing) > 0 {
		return string(existing), nil
	}
	if err != nil && !errors.Is(err, persist.ErrNotFound) {
		return "", err
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := kv.Set(ctx, api.AuthTokenKey, []byte(token)); err != nil {
		return "", err
	}
	return token, nil
}
