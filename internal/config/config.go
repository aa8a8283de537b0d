package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalidValue    = errors.New("invalid configuration value")
)

// Search backends accepted by SEARCH_BACKEND.
const (
	SearchBackendAlgolia  = "algolia"
	SearchBackendWeaviate = "weaviate"
)

type Config struct {
	DBHost    string `envconfig:"DB_HOST" default:"postgres"`
	DBPort    int    `envconfig:"DB_PORT" default:"5432"`
	DBUser    string `envconfig:"DB_USER" default:"devpress"`
	DBPass    string `envconfig:"DB_PASS" default:"password"`
	DBName    string `envconfig:"DB_NAME" default:"devpress"`
	DBSSLMode string `envconfig:"DB_SSLMODE" default:"disable"`

	// Site
	SiteURL      string `envconfig:"SITE_URL" default:"http://localhost:8000"`
	MediaBaseURL string `envconfig:"MEDIA_BASE_URL"`
	SitemapPath  string `envconfig:"SITEMAP_PATH" default:"public/sitemap.xml"`

	// Search
	SearchBackend  string `envconfig:"SEARCH_BACKEND" default:"algolia"`
	AlgoliaAppID   string `envconfig:"ALGOLIA_APP_ID"`
	AlgoliaAPIKey  string `envconfig:"ALGOLIA_API_KEY"`
	AlgoliaIndex   string `envconfig:"ALGOLIA_INDEX" default:"articles"`
	AlgoliaWait    bool   `envconfig:"ALGOLIA_WAIT_FOR_TASK" default:"false"`
	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	// Messaging
	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	EnableResultEvents    bool `envconfig:"ENABLE_RESULT_EVENTS" default:"false"`
	EnableTriggerConsumer bool `envconfig:"ENABLE_TRIGGER_CONSUMER" default:"false"`

	// Scheduling
	SitemapSchedule string `envconfig:"SITEMAP_SCHEDULE" default:"@daily"`
	SearchSchedule  string `envconfig:"SEARCH_SCHEDULE" default:"0 */6 * * *"`

	// Server
	ServerPort   int    `envconfig:"SERVER_PORT" default:"8081"`
	AuditLogPath string `envconfig:"AUDIT_LOG_PATH" default:"data/logs/audit.log"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`

	MigrateOnStart bool   `envconfig:"MIGRATE_ON_START" default:"false"`
	MigrationPath  string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	_ = godotenv.Load(filepath.Join(cwd, "../.env"))

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DSN returns the lib/pq connection string for the content store.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName, c.DBSSLMode)
}

// MediaURL returns the public URL for a stored media path.
func (c *Config) MediaURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base := c.MediaBaseURL
	if base == "" {
		base = strings.TrimRight(c.SiteURL, "/") + "/storage"
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	return nil
}

// ValidateSitemap checks the settings the sitemap pipeline needs.
func (c *Config) ValidateSitemap() error {
	if c.SiteURL == "" {
		return fmt.Errorf("%w: SITE_URL", ErrMissingRequired)
	}
	if c.SitemapPath == "" {
		return fmt.Errorf("%w: SITEMAP_PATH", ErrMissingRequired)
	}
	return nil
}

// ValidateSearch checks the credentials of the selected search backend.
func (c *Config) ValidateSearch() error {
	switch c.SearchBackend {
	case SearchBackendAlgolia:
		if c.AlgoliaAppID == "" {
			return fmt.Errorf("%w: ALGOLIA_APP_ID", ErrMissingRequired)
		}
		if c.AlgoliaAPIKey == "" {
			return fmt.Errorf("%w: ALGOLIA_API_KEY", ErrMissingRequired)
		}
		if c.AlgoliaIndex == "" {
			return fmt.Errorf("%w: ALGOLIA_INDEX", ErrMissingRequired)
		}
	case SearchBackendWeaviate:
		if c.WeaviateHost == "" {
			return fmt.Errorf("%w: WEAVIATE_HOST", ErrMissingRequired)
		}
	default:
		return fmt.Errorf("%w: unsupported SEARCH_BACKEND %q", ErrInvalidValue, c.SearchBackend)
	}
	if c.SiteURL == "" {
		return fmt.Errorf("%w: SITE_URL", ErrMissingRequired)
	}
	return nil
}
