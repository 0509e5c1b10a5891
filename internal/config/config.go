package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string `yaml:"host"`
	Port               string `yaml:"port"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	Name               string `yaml:"name"`
	SSLMode            string `yaml:"sslmode"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`
	AutoMigrate        bool   `yaml:"auto_migrate"`
}

// MinIOConfig holds object storage settings for archiving original uploads.
// An empty Endpoint disables archiving.
type MinIOConfig struct {
	Endpoint         string `yaml:"endpoint"`
	AccessKey        string `yaml:"access_key"`
	SecretKey        string `yaml:"secret_key"`
	Bucket           string `yaml:"bucket"`
	UseSSL           bool   `yaml:"use_ssl"`
	PresignExpirySec int    `yaml:"presign_expiry_sec"`
}

// Enabled reports whether an object store is configured.
func (c MinIOConfig) Enabled() bool { return c.Endpoint != "" }

// IngestionConfig controls upload admission and staging.
type IngestionConfig struct {
	MaxFileSize         int64    `yaml:"max_file_size"`
	AllowedContentTypes []string `yaml:"allowed_content_types"`
	TempDir             string   `yaml:"temp_dir"`
}

// RetrievalConfig controls search snippets and pagination.
type RetrievalConfig struct {
	SnippetWindow   int `yaml:"snippet_window"`
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

// AuthConfig holds the shared secret used to verify bearer tokens.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// AppConfig is the centralized configuration struct for the application.
type AppConfig struct {
	Env       string          `yaml:"env"`
	AppHost   string          `yaml:"app_host"`
	Port      string          `yaml:"port"`
	LogLevel  string          `yaml:"log_level"`
	Timezone  string          `yaml:"timezone"`
	Database  DatabaseConfig  `yaml:"database"`
	MinIO     MinIOConfig     `yaml:"minio"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Auth      AuthConfig      `yaml:"auth"`
}

// Default returns the configuration used when nothing else is provided.
func Default() *AppConfig {
	return &AppConfig{
		Env:      "prod",
		AppHost:  "localhost:8080",
		Port:     "8080",
		Timezone: "UTC",
		Database: DatabaseConfig{
			Port:               "5432",
			SSLMode:            "disable",
			MaxOpenConns:       10,
			MaxIdleConns:       5,
			ConnMaxLifetimeSec: 300,
			AutoMigrate:        true,
		},
		MinIO: MinIOConfig{
			PresignExpirySec: 900,
		},
		Ingestion: IngestionConfig{
			MaxFileSize: 10 << 20,
			AllowedContentTypes: []string{
				"application/pdf",
				"text/plain",
				"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			},
		},
		Retrieval: RetrievalConfig{
			SnippetWindow:   50,
			DefaultPageSize: 10,
			MaxPageSize:     100,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and finally environment variables. A .env file is picked up
// when the binary imports _ "github.com/joho/godotenv/autoload".
func Load() (*AppConfig, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	// ${VAR} references are expanded before parsing.
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	c.Env = getEnv("APP_ENV", c.Env)
	c.AppHost = getEnv("APP_HOST", c.AppHost)
	c.Port = getEnv("PORT", c.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Timezone = getEnv("APP_TIMEZONE", c.Timezone)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxLifetimeSec = getEnvInt("DB_CONN_MAX_LIFETIME_SEC", c.Database.ConnMaxLifetimeSec)
	c.Database.AutoMigrate = getEnvBool("DB_AUTO_MIGRATE", c.Database.AutoMigrate)

	c.MinIO.Endpoint = getEnv("MINIO_ENDPOINT", c.MinIO.Endpoint)
	c.MinIO.AccessKey = getEnv("MINIO_ACCESS_KEY", c.MinIO.AccessKey)
	c.MinIO.SecretKey = getEnv("MINIO_SECRET_KEY", c.MinIO.SecretKey)
	c.MinIO.Bucket = getEnv("MINIO_BUCKET", c.MinIO.Bucket)
	c.MinIO.UseSSL = getEnvBool("MINIO_USE_SSL", c.MinIO.UseSSL)
	c.MinIO.PresignExpirySec = getEnvInt("MINIO_PRESIGN_EXPIRY_SEC", c.MinIO.PresignExpirySec)

	c.Ingestion.MaxFileSize = getEnvInt64("INGEST_MAX_FILE_SIZE", c.Ingestion.MaxFileSize)
	c.Ingestion.AllowedContentTypes = getEnvList("INGEST_ALLOWED_CONTENT_TYPES", c.Ingestion.AllowedContentTypes)
	c.Ingestion.TempDir = getEnv("INGEST_TEMP_DIR", c.Ingestion.TempDir)

	c.Retrieval.SnippetWindow = getEnvInt("SEARCH_SNIPPET_WINDOW", c.Retrieval.SnippetWindow)
	c.Retrieval.DefaultPageSize = getEnvInt("SEARCH_DEFAULT_PAGE_SIZE", c.Retrieval.DefaultPageSize)
	c.Retrieval.MaxPageSize = getEnvInt("SEARCH_MAX_PAGE_SIZE", c.Retrieval.MaxPageSize)

	c.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", c.Auth.JWTSecret)
}

// Validate checks that the configuration is usable.
func (c *AppConfig) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Env, validation.Required, validation.In("prod", "dev", "local", "docker")),
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.Timezone, validation.Required, validation.By(checkTimezone)),
		validation.Field(&c.Ingestion),
		validation.Field(&c.Retrieval),
	)
	if err != nil {
		return err
	}
	if c.MinIO.Enabled() && (c.MinIO.AccessKey == "" || c.MinIO.SecretKey == "" || c.MinIO.Bucket == "") {
		return fmt.Errorf("minio: access key, secret key and bucket are required when endpoint is set")
	}
	return nil
}

// Validate implements validation.Validatable.
func (c IngestionConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxFileSize, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.AllowedContentTypes, validation.Required),
	)
}

// Validate implements validation.Validatable.
func (c RetrievalConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SnippetWindow, validation.Required, validation.Min(1)),
		validation.Field(&c.DefaultPageSize, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxPageSize, validation.Required, validation.Min(c.DefaultPageSize)),
	)
}

// Location returns the application time zone. Validate guarantees it loads.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PresignExpiry returns the lifetime of generated download links.
func (c MinIOConfig) PresignExpiry() time.Duration {
	return time.Duration(c.PresignExpirySec) * time.Second
}

func checkTimezone(value interface{}) error {
	s, _ := value.(string)
	if _, err := time.LoadLocation(s); err != nil {
		return fmt.Errorf("unknown time zone %q", s)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
