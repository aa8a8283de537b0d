package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"devpress/publisher/internal/config"
)

const (
	dbName = "devpress_test"
	dbUser = "test"
	dbPass = "test"
)

// IntegrationSuite starts a migrated Postgres and, on request, Weaviate and
// nsqd containers.
type IntegrationSuite struct {
	T        *testing.T
	DB       *sql.DB
	Weaviate *weaviate.Client
	NSQ      *nsq.Producer
	NSQAddr  string

	withWeaviate bool
	withNSQ      bool

	dbHost        string
	dbPort        int
	weaviateHost  string
	migrationPath string

	pgContainer       *postgres.PostgresContainer
	weaviateContainer testcontainers.Container
	nsqContainer      testcontainers.Container
}

type Option func(*IntegrationSuite)

func WithWeaviate() Option {
	return func(s *IntegrationSuite) { s.withWeaviate = true }
}

func WithNSQ() Option {
	return func(s *IntegrationSuite) { s.withNSQ = true }
}

func NewIntegrationSuite(t *testing.T, opts ...Option) *IntegrationSuite {
	s := &IntegrationSuite{T: t}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MigrationPath points at the repository migrations directory.
func MigrationPath() string {
	_, b, _, _ := runtime.Caller(0)
	return fmt.Sprintf("file://%s", filepath.Join(filepath.Dir(b), "..", "..", "migrations"))
}

func (s *IntegrationSuite) Setup() {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPass),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(s.T, err)
	s.pgContainer = pgContainer

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T, err)

	s.DB, err = sql.Open("postgres", connStr)
	require.NoError(s.T, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(s.T, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(s.T, err)
	s.dbHost = host
	s.dbPort, _ = strconv.Atoi(port.Port())

	s.migrationPath = MigrationPath()
	m, err := migrate.New(s.migrationPath, connStr)
	require.NoError(s.T, err)
	require.NoError(s.T, m.Up())

	if s.withWeaviate {
		s.startWeaviate(ctx)
	}
	if s.withNSQ {
		s.startNSQ(ctx)
	}
}

func (s *IntegrationSuite) startWeaviate(ctx context.Context) {
	req := testcontainers.ContainerRequest{
		Image:        "semitechnologies/weaviate:1.25.0",
		ExposedPorts: []string{"8080/tcp"},
		Env: map[string]string{
			"AUTHENTICATION_ANONYMOUS_ACCESS_ENABLED": "true",
			"DEFAULT_VECTORIZER_MODULE":               "none",
			"PERSISTENCE_DATA_PATH":                   "/var/lib/weaviate",
		},
		WaitingFor: wait.ForHTTP("/v1/meta").WithPort("8080/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T, err)
	s.weaviateContainer = c

	host, err := c.Host(ctx)
	require.NoError(s.T, err)
	port, err := c.MappedPort(ctx, "8080")
	require.NoError(s.T, err)

	s.weaviateHost = fmt.Sprintf("%s:%s", host, port.Port())
	s.Weaviate, err = weaviate.NewClient(weaviate.Config{Host: s.weaviateHost, Scheme: "http"})
	require.NoError(s.T, err)
}

func (s *IntegrationSuite) startNSQ(ctx context.Context) {
	req := testcontainers.ContainerRequest{
		Image:        "nsqio/nsq:v1.3.0",
		ExposedPorts: []string{"4150/tcp", "4151/tcp"},
		Cmd:          []string{"/nsqd", "--broadcast-address=localhost"},
		WaitingFor:   wait.ForLog("TCP: listening on").WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T, err)
	s.nsqContainer = c

	host, err := c.Host(ctx)
	require.NoError(s.T, err)
	port, err := c.MappedPort(ctx, "4150")
	require.NoError(s.T, err)

	s.NSQAddr = fmt.Sprintf("%s:%s", host, port.Port())
	s.NSQ, err = nsq.NewProducer(s.NSQAddr, nsq.NewConfig())
	require.NoError(s.T, err)
}

// AppConfig returns a configuration pointing at the running containers.
func (s *IntegrationSuite) AppConfig() *config.Config {
	return &config.Config{
		DBHost:                     s.dbHost,
		DBPort:                     s.dbPort,
		DBUser:                     dbUser,
		DBPass:                     dbPass,
		DBName:                     dbName,
		DBSSLMode:                  "disable",
		SiteURL:                    "http://localhost:8000",
		SearchBackend:              config.SearchBackendWeaviate,
		WeaviateHost:               s.weaviateHost,
		WeaviateScheme:             "http",
		NSQDHost:                   s.NSQAddr,
		MigrationPath:              s.migrationPath,
		BootstrapRetryAttempts:     3,
		BootstrapRetryDelaySeconds: 1,
	}
}

// Exec runs fixture statements against the test database.
func (s *IntegrationSuite) Exec(statements ...string) {
	for _, stmt := range statements {
		_, err := s.DB.Exec(stmt)
		require.NoError(s.T, err, stmt)
	}
}

func (s *IntegrationSuite) Teardown() {
	ctx := context.Background()
	if s.NSQ != nil {
		s.NSQ.Stop()
	}
	if s.DB != nil {
		s.DB.Close()
	}
	if s.pgContainer != nil {
		s.pgContainer.Terminate(ctx)
	}
	if s.weaviateContainer != nil {
		s.weaviateContainer.Terminate(ctx)
	}
	if s.nsqContainer != nil {
		s.nsqContainer.Terminate(ctx)
	}
}
