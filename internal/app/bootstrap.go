package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"

	"devpress/publisher/features/searchsync"
	"devpress/publisher/internal/adapter/algolia"
	wstore "devpress/publisher/internal/adapter/weaviate"
	"devpress/publisher/internal/config"
	"devpress/publisher/internal/pipeline"
	"devpress/publisher/internal/vector"
)

type Dependencies struct {
	DB       *sql.DB
	Index    searchsync.Index
	Producer *nsq.Producer
}

// Close releases connections opened by Bootstrap.
func (d *Dependencies) Close() {
	if d.Producer != nil {
		d.Producer.Stop()
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			slog.Warn("failed to close db", "error", err)
		}
	}
}

// Validate checks the configuration each requested pipeline needs before any
// connection is attempted.
func Validate(cfg *config.Config, pipelines []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	for _, name := range pipelines {
		switch name {
		case pipeline.Sitemap:
			if err := cfg.ValidateSitemap(); err != nil {
				return err
			}
		case pipeline.Search:
			if err := cfg.ValidateSearch(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s", pipeline.ErrUnknownPipeline, name)
		}
	}
	return nil
}

// Bootstrap opens the content store and the sinks the requested pipelines use.
func Bootstrap(ctx context.Context, cfg *config.Config, pipelines []string) (*Dependencies, error) {
	if err := Validate(cfg, pipelines); err != nil {
		return nil, err
	}

	db, err := OpenDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	deps := &Dependencies{DB: db}

	if cfg.MigrateOnStart {
		if err := Migrate(db, cfg.MigrationPath); err != nil {
			deps.Close()
			return nil, err
		}
	}

	for _, name := range pipelines {
		if name != pipeline.Search {
			continue
		}
		idx, err := NewSearchIndex(ctx, cfg)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.Index = idx
	}

	if cfg.EnableResultEvents || cfg.EnableTriggerConsumer {
		producer, err := NewProducer(cfg)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.Producer = producer
	}

	return deps, nil
}

func OpenDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	attempts := max(cfg.BootstrapRetryAttempts, 1)
	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			return db, nil
		}
		slog.Warn("failed to ping db, retrying...", "attempt", i+1, "max_attempts", attempts)
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				db.Close()
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	db.Close()
	return nil, fmt.Errorf("%w: failed to ping db: %w", pipeline.ErrStoreRead, err)
}

// Migrate applies pending up migrations. The content store is owned by the
// CMS, so this only runs on request.
func Migrate(db *sql.DB, path string) error {
	m, err := newMigrator(db, path)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up error: %w", err)
	}
	slog.Info("migrations applied successfully")
	return nil
}

// Rollback reverts the most recent migration.
func Rollback(db *sql.DB, path string) error {
	m, err := newMigrator(db, path)
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("migration down error: %w", err)
	}
	return nil
}

func newMigrator(db *sql.DB, path string) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver error: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(path, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance error: %w", err)
	}
	return m, nil
}

// SchemaEnsurer is implemented by indexes that manage their own schema.
type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

func NewSearchIndex(ctx context.Context, cfg *config.Config) (searchsync.Index, error) {
	switch cfg.SearchBackend {
	case config.SearchBackendAlgolia:
		return algolia.NewIndex(cfg.AlgoliaAppID, cfg.AlgoliaAPIKey, cfg.AlgoliaIndex, cfg.AlgoliaWait), nil
	case config.SearchBackendWeaviate:
		client, err := vector.NewClient(cfg.WeaviateHost, cfg.WeaviateScheme)
		if err != nil {
			return nil, err
		}
		store := wstore.NewStore(client)
		retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
		if err := EnsureSchemaWithRetry(ctx, store, cfg.BootstrapRetryAttempts, retryDelay); err != nil {
			return nil, fmt.Errorf("%w: weaviate schema error: %w", pipeline.ErrSinkWrite, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown search backend %q", config.ErrInvalidValue, cfg.SearchBackend)
	}
}

// EnsureSchemaWithRetry retries schema setup while the index starts up.
func EnsureSchemaWithRetry(ctx context.Context, store SchemaEnsurer, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < max(attempts, 1); i++ {
		if err = store.EnsureSchema(ctx); err == nil {
			return nil
		}
		slog.Warn("failed to ensure schema, retrying...", "attempt", i+1, "error", err)
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}

func NewProducer(cfg *config.Config) (*nsq.Producer, error) {
	producer, err := nsq.NewProducer(cfg.NSQDHost, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("nsq producer error: %w", err)
	}
	createTopics(cfg.NSQDHTTP)
	return producer, nil
}

func createTopics(nsqdHTTP string) {
	if nsqdHTTP == "" {
		return
	}
	create := func(topic string) {
		url := fmt.Sprintf("http://%s/topic/create?topic=%s", nsqdHTTP, topic)
		resp, err := http.Post(url, "application/json", nil) // #nosec G107 -- URL is built from internal NSQ config, not user input
		if err != nil {
			slog.Warn("failed to create NSQ topic", "topic", topic, "error", err)
			return
		}
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close NSQ topic creation response body", "error", closeErr)
		}
	}

	go func() {
		create(config.TopicPipelineTrigger)
		create(config.TopicPipelineResult)
	}()
}
