// Package config centralizes how VaultDesk reads its settings and exposes them
// as strongly typed Go values. Values come from the environment (prefixed
// VAULTDESK_) with an optional .env file in the working directory.
package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// PIN cache policies. "none" prompts for every protected download; "session"
// remembers the last accepted PIN per document while the process runs.
const (
	PinCacheNone    = "none"
	PinCacheSession = "session"
)

// Config represents runtime configuration for the client and the worker.
type Config struct {
	Env             string
	APIURL          string
	RequestTimeout  time.Duration
	DownloadTimeout time.Duration
	UploadTimeout   time.Duration
	PreviewTimeout  time.Duration
	PageSize        int
	DashboardLimit  int
	AdminLimit      int
	PinCache        string
	CredentialsFile string
	DownloadDir     string
	MaxUploadBytes  int64
	ExportWorkers   int
	SigningSecret   []byte
	// SharedSecret is false when SigningSecret was generated for this
	// process only, which makes queued exports unverifiable by a worker.
	SharedSecret bool

	Log   LogConfig
	S3    S3Config
	Redis RedisConfig
	// DatabaseURL enables the Postgres journal when set.
	DatabaseURL string
}

// LogConfig selects zap's level and encoding.
type LogConfig struct {
	Level  string
	Format string
}

// S3Config configures the optional bucket sink. Endpoint empty means disabled.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Enabled reports whether a bucket sink was configured.
func (c S3Config) Enabled() bool {
	return c.Endpoint != ""
}

// RedisConfig points the export queue at Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

const (
	defaultAPIURL          = "http://localhost:5000"
	defaultRequestTimeout  = 30 * time.Second
	defaultDownloadTimeout = 60 * time.Second
	defaultUploadTimeout   = 60 * time.Second
	defaultPreviewTimeout  = 30 * time.Second
	defaultPageSize        = 12
	defaultDashboardLimit  = 50
	defaultAdminLimit      = 100
	defaultMaxUploadBytes  = 25 << 20 // 25 MiB
	defaultExportWorkers   = 2
	defaultDownloadDir     = "./downloads"
)

// Load reads configuration falling back to defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("VAULTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Env:             v.GetString("ENV"),
		APIURL:          strings.TrimRight(v.GetString("API_URL"), "/"),
		RequestTimeout:  parseDuration(v.GetString("REQUEST_TIMEOUT"), defaultRequestTimeout),
		DownloadTimeout: parseDuration(v.GetString("DOWNLOAD_TIMEOUT"), defaultDownloadTimeout),
		UploadTimeout:   parseDuration(v.GetString("UPLOAD_TIMEOUT"), defaultUploadTimeout),
		PreviewTimeout:  parseDuration(v.GetString("PREVIEW_TIMEOUT"), defaultPreviewTimeout),
		PageSize:        v.GetInt("PAGE_SIZE"),
		DashboardLimit:  v.GetInt("DASHBOARD_LIMIT"),
		AdminLimit:      v.GetInt("ADMIN_LIMIT"),
		PinCache:        strings.ToLower(strings.TrimSpace(v.GetString("PIN_CACHE"))),
		CredentialsFile: v.GetString("CREDENTIALS_FILE"),
		DownloadDir:     v.GetString("DOWNLOAD_DIR"),
		MaxUploadBytes:  v.GetInt64("MAX_UPLOAD_BYTES"),
		ExportWorkers:   v.GetInt("EXPORT_WORKERS"),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		S3: S3Config{
			Endpoint:  v.GetString("S3_ENDPOINT"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
			Bucket:    v.GetString("S3_BUCKET"),
			Region:    v.GetString("S3_REGION"),
			UseSSL:    v.GetBool("S3_USE_SSL"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
	}
	if secret := v.GetString("SIGNING_SECRET"); secret != "" {
		cfg.SigningSecret = []byte(secret)
		cfg.SharedSecret = true
	} else {
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("generate signing secret: %w", err)
		}
		cfg.SigningSecret = secret
	}
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = defaultCredentialsFile()
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("API_URL", defaultAPIURL)
	v.SetDefault("REQUEST_TIMEOUT", defaultRequestTimeout.String())
	v.SetDefault("DOWNLOAD_TIMEOUT", defaultDownloadTimeout.String())
	v.SetDefault("UPLOAD_TIMEOUT", defaultUploadTimeout.String())
	v.SetDefault("PREVIEW_TIMEOUT", defaultPreviewTimeout.String())
	v.SetDefault("PAGE_SIZE", defaultPageSize)
	v.SetDefault("DASHBOARD_LIMIT", defaultDashboardLimit)
	v.SetDefault("ADMIN_LIMIT", defaultAdminLimit)
	v.SetDefault("PIN_CACHE", PinCacheNone)
	v.SetDefault("DOWNLOAD_DIR", defaultDownloadDir)
	v.SetDefault("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)
	v.SetDefault("EXPORT_WORKERS", defaultExportWorkers)
	v.SetDefault("LOG_LEVEL", "warn")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("S3_BUCKET", "vaultdesk-downloads")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)
}

// normalize replaces non-positive numeric settings with defaults.
func (c *Config) normalize() {
	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}
	if c.DashboardLimit <= 0 {
		c.DashboardLimit = defaultDashboardLimit
	}
	if c.AdminLimit <= 0 {
		c.AdminLimit = defaultAdminLimit
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = defaultMaxUploadBytes
	}
	if c.ExportWorkers <= 0 {
		c.ExportWorkers = defaultExportWorkers
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = defaultDownloadTimeout
	}
	if c.UploadTimeout <= 0 {
		c.UploadTimeout = defaultUploadTimeout
	}
	if c.PreviewTimeout <= 0 {
		c.PreviewTimeout = defaultPreviewTimeout
	}
	if c.DownloadDir == "" {
		c.DownloadDir = defaultDownloadDir
	}
	if c.PinCache == "" {
		c.PinCache = PinCacheNone
	}
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api url %q must use http or https", c.APIURL)
	}
	if c.PinCache != PinCacheNone && c.PinCache != PinCacheSession {
		return fmt.Errorf("unknown pin cache policy %q", c.PinCache)
	}
	if c.DownloadTimeout <= c.RequestTimeout {
		return errors.New("download timeout must be longer than the request timeout")
	}
	return nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func defaultCredentialsFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".vaultdesk", "credentials.json")
	}
	return filepath.Join(home, ".vaultdesk", "credentials.json")
}

var randRead = rand.Read

// randomSecret makes a per-process signing secret for when no shared one is
// configured.
func randomSecret() ([]byte, error) {
	buf := make([]byte, 32)
	if _, err := randRead(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
