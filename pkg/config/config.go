// Package config loads service settings from .env, an optional config.yaml
// and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageLocal = "local"
	StorageMinIO = "minio"
)

// Config represents the application configuration
type Config struct {
	Port      string
	APIPrefix string

	DB         DBConfig
	JWT        JWTConfig
	BcryptCost int

	CORSOrigins []string
	RateLimit   RateLimitConfig
	Pagination  PaginationConfig
	Log         LogConfig

	Upload  UploadConfig
	Storage StorageConfig
	Seed    SeedConfig
}

type DBConfig struct {
	DSN         string
	AutoMigrate bool
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

type PaginationConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

type LogConfig struct {
	Level  string
	Format string
}

// UploadConfig controls accepted files. Base is the local archive root and
// TmpDir receives multipart bodies before import.
type UploadConfig struct {
	Base     string
	TmpDir   string
	MaxBytes int64
}

type StorageConfig struct {
	Backend string
	MinIO   MinIOConfig
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// SeedConfig is the admin account created on first start.
type SeedConfig struct {
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

var defaults = map[string]any{
	"port":                    "8081",
	"api_prefix":              "/api/v1",
	"db_auto_migrate":         true,
	"jwt_secret":              "dev-insecure-secret-change",
	"jwt_expiration":          "24h",
	"jwt_refresh_expiration":  "720h",
	"bcrypt_cost":             10,
	"cors_origins":            "http://localhost:5173",
	"rate_limit_max_requests": 100,
	"rate_limit_window":       "15m",
	"default_page_size":       10,
	"max_page_size":           100,
	"log_level":               "info",
	"log_format":              "json",
	"upload_base":             "uploads",
	"upload_tmp_dir":          "",
	"upload_max_bytes":        5 * 1024 * 1024,
	"storage_backend":         StorageLocal,
	"minio_bucket":            "contacts",
	"minio_use_ssl":           false,
	"seed_admin_name":         "Administrador",
	"seed_admin_email":        "admin@example.com",
	"seed_admin_password":     "admin123",
}

// keys without a default that must still be readable from the environment
var envOnly = []string{"db_dsn", "minio_endpoint", "minio_access_key", "minio_secret_key"}

// Load reads .env (never overriding the real environment), then config.yaml
// from paths (default "." and "./config"), then environment variables named
// after the upper-cased keys, e.g. DB_DSN.
func Load(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	for _, k := range envOnly {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Port:      v.GetString("port"),
		APIPrefix: v.GetString("api_prefix"),
		DB: DBConfig{
			DSN:         v.GetString("db_dsn"),
			AutoMigrate: v.GetBool("db_auto_migrate"),
		},
		JWT: JWTConfig{
			Secret:            v.GetString("jwt_secret"),
			Expiration:        v.GetDuration("jwt_expiration"),
			RefreshExpiration: v.GetDuration("jwt_refresh_expiration"),
		},
		BcryptCost:  v.GetInt("bcrypt_cost"),
		CORSOrigins: splitList(v.GetString("cors_origins")),
		RateLimit: RateLimitConfig{
			MaxRequests: v.GetInt("rate_limit_max_requests"),
			Window:      v.GetDuration("rate_limit_window"),
		},
		Pagination: PaginationConfig{
			DefaultPageSize: v.GetInt("default_page_size"),
			MaxPageSize:     v.GetInt("max_page_size"),
		},
		Log: LogConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
		Upload: UploadConfig{
			Base:     v.GetString("upload_base"),
			TmpDir:   v.GetString("upload_tmp_dir"),
			MaxBytes: v.GetInt64("upload_max_bytes"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(v.GetString("storage_backend")),
			MinIO: MinIOConfig{
				Endpoint:  v.GetString("minio_endpoint"),
				AccessKey: v.GetString("minio_access_key"),
				SecretKey: v.GetString("minio_secret_key"),
				Bucket:    v.GetString("minio_bucket"),
				UseSSL:    v.GetBool("minio_use_ssl"),
			},
		},
		Seed: SeedConfig{
			AdminName:     v.GetString("seed_admin_name"),
			AdminEmail:    v.GetString("seed_admin_email"),
			AdminPassword: v.GetString("seed_admin_password"),
		},
	}
	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.DB.DSN == "" {
		return errors.New("DB_DSN is not set; a Postgres DSN is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.JWT.Expiration <= 0 || c.JWT.RefreshExpiration <= 0 {
		return errors.New("JWT expirations must be positive durations")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST %d out of range [4,31]", c.BcryptCost)
	}
	if c.Upload.MaxBytes <= 0 {
		return errors.New("UPLOAD_MAX_BYTES must be positive")
	}
	if c.Pagination.DefaultPageSize <= 0 || c.Pagination.MaxPageSize < c.Pagination.DefaultPageSize {
		return errors.New("page sizes must satisfy 0 < DEFAULT_PAGE_SIZE <= MAX_PAGE_SIZE")
	}
	switch c.Storage.Backend {
	case StorageLocal:
	case StorageMinIO:
		m := c.Storage.MinIO
		if m.Endpoint == "" || m.AccessKey == "" || m.SecretKey == "" || m.Bucket == "" {
			return errors.New("minio storage requires MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY and MINIO_BUCKET")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
