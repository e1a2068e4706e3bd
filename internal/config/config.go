// Package config loads the storyboard agent settings. Values come from
// built-in defaults, then an optional YAML file, then a .env file, then
// STORYBOARD_* environment variables, each layer overriding the previous.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort          = 8790
	DefaultLogLevel      = "info"
	DefaultDataDir       = ".storyboard"
	DefaultStorage       = StorageSQLite
	DefaultRedisAddr     = "127.0.0.1:6379"
	DefaultRedisPrefix   = "storyboard:"
	DefaultSlotKey       = "tb-storyboard-project"
	DefaultQuotaBytes    = 5 * 1024 * 1024
	DefaultWarnBytes     = 4 * 1024 * 1024
	DefaultDebounce      = 500 * time.Millisecond
	DefaultImageMaxWidth = 480
	DefaultImageQuality  = 50
	DefaultUploadLimit   = 20 * 1024 * 1024

	StorageSQLite = "sqlite"
	StorageRedis  = "redis"

	DBFilename = "storyboard.db"

	EnvConfigFile    = "STORYBOARD_CONFIG"
	EnvPort          = "STORYBOARD_PORT"
	EnvLogLevel      = "STORYBOARD_LOG_LEVEL"
	EnvDataDir       = "STORYBOARD_DATA_DIR"
	EnvStorage       = "STORYBOARD_STORAGE"
	EnvRedisAddr     = "STORYBOARD_REDIS_ADDR"
	EnvRedisPassword = "STORYBOARD_REDIS_PASSWORD"
	EnvRedisDB       = "STORYBOARD_REDIS_DB"
	EnvRedisPrefix   = "STORYBOARD_REDIS_PREFIX"
	EnvSlotKey       = "STORYBOARD_SLOT_KEY"
	EnvQuotaBytes    = "STORYBOARD_QUOTA_BYTES"
	EnvWarnBytes     = "STORYBOARD_WARN_BYTES"
	EnvDebounce      = "STORYBOARD_AUTOSAVE_DEBOUNCE"
	EnvImageMaxWidth = "STORYBOARD_IMAGE_MAX_WIDTH"
	EnvImageQuality  = "STORYBOARD_IMAGE_QUALITY"
	EnvUploadLimit   = "STORYBOARD_UPLOAD_LIMIT"
	EnvPDFFont       = "STORYBOARD_PDF_FONT"
	EnvHeadless      = "STORYBOARD_HEADLESS"
	EnvInbox         = "STORYBOARD_INBOX"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	InboxDir() string
	Storage() string
	RedisAddr() string
	RedisPassword() string
	RedisDB() int
	RedisPrefix() string
	SlotKey() string
	QuotaBytes() int
	WarnBytes() int
	AutosaveDebounce() time.Duration
	ImageMaxWidth() int
	ImageQuality() int
	UploadLimit() int64
	PDFFontPath() string
	Headless() bool
	InboxEnabled() bool
}

// fileSettings is the YAML file layout. Zero values leave the default.
type fileSettings struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	DataDir  string `yaml:"data_dir"`
	Storage  struct {
		Backend    string `yaml:"backend"`
		SlotKey    string `yaml:"slot_key"`
		QuotaBytes int    `yaml:"quota_bytes"`
		WarnBytes  int    `yaml:"warn_bytes"`
		Debounce   string `yaml:"autosave_debounce"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Images struct {
		MaxWidth    int   `yaml:"max_width"`
		Quality     int   `yaml:"quality"`
		UploadLimit int64 `yaml:"upload_limit"`
	} `yaml:"images"`
	PDFFont  string `yaml:"pdf_font"`
	Headless *bool  `yaml:"headless"`
	Inbox    *bool  `yaml:"inbox"`
}

// EnvConfig is the resolved configuration.
type EnvConfig struct {
	port          int
	logLevel      string
	dataDir       string
	storage       string
	redisAddr     string
	redisPassword string
	redisDB       int
	redisPrefix   string
	slotKey       string
	quotaBytes    int
	warnBytes     int
	debounce      time.Duration
	imageMaxWidth int
	imageQuality  int
	uploadLimit   int64
	pdfFont       string
	headless      bool
	inbox         bool
}

func defaults() *EnvConfig {
	return &EnvConfig{
		port:          DefaultPort,
		logLevel:      DefaultLogLevel,
		dataDir:       defaultDataDir(),
		storage:       DefaultStorage,
		redisAddr:     DefaultRedisAddr,
		redisPrefix:   DefaultRedisPrefix,
		slotKey:       DefaultSlotKey,
		quotaBytes:    DefaultQuotaBytes,
		warnBytes:     DefaultWarnBytes,
		debounce:      DefaultDebounce,
		imageMaxWidth: DefaultImageMaxWidth,
		imageQuality:  DefaultImageQuality,
		uploadLimit:   DefaultUploadLimit,
		inbox:         true,
	}
}

// New loads the configuration. A missing .env file is not an error; a
// missing file named by STORYBOARD_CONFIG is.
func New() (*EnvConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := defaults()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *EnvConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var f fileSettings
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	setInt(&c.port, f.Port)
	setString(&c.logLevel, f.LogLevel)
	setString(&c.dataDir, f.DataDir)
	setString(&c.storage, f.Storage.Backend)
	setString(&c.slotKey, f.Storage.SlotKey)
	setInt(&c.quotaBytes, f.Storage.QuotaBytes)
	setInt(&c.warnBytes, f.Storage.WarnBytes)
	if f.Storage.Debounce != "" {
		d, err := time.ParseDuration(f.Storage.Debounce)
		if err != nil {
			return fmt.Errorf("invalid storage.autosave_debounce: %w", err)
		}
		c.debounce = d
	}
	setString(&c.redisAddr, f.Redis.Addr)
	setString(&c.redisPassword, f.Redis.Password)
	setInt(&c.redisDB, f.Redis.DB)
	setString(&c.redisPrefix, f.Redis.Prefix)
	setInt(&c.imageMaxWidth, f.Images.MaxWidth)
	setInt(&c.imageQuality, f.Images.Quality)
	if f.Images.UploadLimit > 0 {
		c.uploadLimit = f.Images.UploadLimit
	}
	setString(&c.pdfFont, f.PDFFont)
	if f.Headless != nil {
		c.headless = *f.Headless
	}
	if f.Inbox != nil {
		c.inbox = *f.Inbox
	}
	return nil
}

func (c *EnvConfig) loadEnv() error {
	ints := []struct {
		env string
		dst *int
	}{
		{EnvPort, &c.port},
		{EnvRedisDB, &c.redisDB},
		{EnvQuotaBytes, &c.quotaBytes},
		{EnvWarnBytes, &c.warnBytes},
		{EnvImageMaxWidth, &c.imageMaxWidth},
		{EnvImageQuality, &c.imageQuality},
	}
	for _, v := range ints {
		if s := os.Getenv(v.env); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", v.env, err)
			}
			*v.dst = n
		}
	}

	strs := []struct {
		env string
		dst *string
	}{
		{EnvLogLevel, &c.logLevel},
		{EnvDataDir, &c.dataDir},
		{EnvStorage, &c.storage},
		{EnvRedisAddr, &c.redisAddr},
		{EnvRedisPassword, &c.redisPassword},
		{EnvRedisPrefix, &c.redisPrefix},
		{EnvSlotKey, &c.slotKey},
		{EnvPDFFont, &c.pdfFont},
	}
	for _, v := range strs {
		if s := os.Getenv(v.env); s != "" {
			*v.dst = s
		}
	}

	if s := os.Getenv(EnvUploadLimit); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvUploadLimit, err)
		}
		c.uploadLimit = n
	}
	if s := os.Getenv(EnvDebounce); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvDebounce, err)
		}
		c.debounce = d
	}
	for env, dst := range map[string]*bool{EnvHeadless: &c.headless, EnvInbox: &c.inbox} {
		if s := os.Getenv(env); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", env, err)
			}
			*dst = b
		}
	}
	return nil
}

func (c *EnvConfig) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.port)
	}
	c.storage = strings.ToLower(c.storage)
	if c.storage != StorageSQLite && c.storage != StorageRedis {
		return fmt.Errorf("invalid storage backend %q: want %s or %s", c.storage, StorageSQLite, StorageRedis)
	}
	if c.imageQuality < 1 || c.imageQuality > 100 {
		return fmt.Errorf("invalid image quality %d: must be between 1 and 100", c.imageQuality)
	}
	if c.imageMaxWidth < 1 {
		return fmt.Errorf("invalid image max width %d", c.imageMaxWidth)
	}
	if c.debounce <= 0 {
		return fmt.Errorf("invalid autosave debounce %s", c.debounce)
	}
	return nil
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (c *EnvConfig) Port() int                       { return c.port }
func (c *EnvConfig) LogLevel() string                { return c.logLevel }
func (c *EnvConfig) DataDir() string                 { return c.dataDir }
func (c *EnvConfig) Storage() string                 { return c.storage }
func (c *EnvConfig) RedisAddr() string               { return c.redisAddr }
func (c *EnvConfig) RedisPassword() string           { return c.redisPassword }
func (c *EnvConfig) RedisDB() int                    { return c.redisDB }
func (c *EnvConfig) RedisPrefix() string             { return c.redisPrefix }
func (c *EnvConfig) SlotKey() string                 { return c.slotKey }
func (c *EnvConfig) QuotaBytes() int                 { return c.quotaBytes }
func (c *EnvConfig) WarnBytes() int                  { return c.warnBytes }
func (c *EnvConfig) AutosaveDebounce() time.Duration { return c.debounce }
func (c *EnvConfig) ImageMaxWidth() int              { return c.imageMaxWidth }
func (c *EnvConfig) ImageQuality() int               { return c.imageQuality }
func (c *EnvConfig) UploadLimit() int64              { return c.uploadLimit }
func (c *EnvConfig) PDFFontPath() string             { return c.pdfFont }
func (c *EnvConfig) Headless() bool                  { return c.headless }
func (c *EnvConfig) InboxEnabled() bool              { return c.inbox }

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// InboxDir is the directory watched for project files and images to import.
func (c *EnvConfig) InboxDir() string {
	return filepath.Join(c.dataDir, "inbox")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
