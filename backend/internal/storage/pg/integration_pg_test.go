package pg

import (
	"context"
	"flag"
	"log"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/itchan-dev/caster/shared/config"
	"github.com/itchan-dev/caster/shared/domain"
)

var storage *Storage

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(0)
	}
	ctx := context.Background()
	var container *postgres.PostgresContainer
	storage, container = mustSetup(ctx)

	exitCode := m.Run()
	teardown(ctx, storage, container)
	os.Exit(exitCode)
}

func mustSetup(ctx context.Context) (*Storage, *postgres.PostgresContainer) {
	dbName := "caster"
	dbUser := "user"
	dbPassword := "password"
	container, err := postgres.Run(ctx,
		"postgres:15.3-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			// postgres restarts once after init, so readiness is logged twice
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("failed to start container: %s", err)
	}
	containerPort, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("failed to obtain container port: %s", err)
	}
	port, err := strconv.Atoi(containerPort.Port())
	if err != nil {
		log.Fatalf("failed to obtain int container port: %s", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("failed to obtain container host: %s", err)
	}

	cfg := config.Default()
	cfg.Private.Pg = &config.Pg{Host: host, Port: port, User: dbUser, Password: dbPassword, Dbname: dbName}
	storage, err := New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to connect to postgres container: %s", err)
	}
	return storage, container
}

func teardown(ctx context.Context, storage *Storage, container *postgres.PostgresContainer) {
	if err := storage.Cleanup(); err != nil {
		log.Printf("failed to close storage connection: %s", err)
	}
	if err := container.Terminate(ctx); err != nil {
		log.Printf("failed to terminate container: %s", err)
	}
}

// withClock pins storage time for the duration of a test.
func withClock(t *testing.T, now time.Time) {
	t.Helper()
	prev := storage.now
	storage.now = func() time.Time { return now }
	t.Cleanup(func() { storage.now = prev })
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	withClock(t, time.Now())

	t.Run("round trip", func(t *testing.T) {
		preview := &domain.EmbedPreview{URL: "https://example.com/x", Title: "Example", Provider: "example.com"}
		require.NoError(t, storage.Put(ctx, preview.URL, preview))

		got, ok, err := storage.Get(ctx, preview.URL)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, preview, got)
	})

	t.Run("unknown url", func(t *testing.T) {
		got, ok, err := storage.Get(ctx, "https://never.example")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("null preview is a hit", func(t *testing.T) {
		require.NoError(t, storage.Put(ctx, "https://example.com/pdf", nil))

		got, ok, err := storage.Get(ctx, "https://example.com/pdf")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Nil(t, got)
	})

	t.Run("put overwrites", func(t *testing.T) {
		url := "https://example.com/changing"
		require.NoError(t, storage.Put(ctx, url, &domain.EmbedPreview{URL: url, Title: "old"}))
		require.NoError(t, storage.Put(ctx, url, &domain.EmbedPreview{URL: url, Title: "new"}))

		got, ok, err := storage.Get(ctx, url)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "new", got.Title)
	})
}

func TestExpiryAndSweep(t *testing.T) {
	ctx := context.Background()
	start := time.Now()
	withClock(t, start)

	url := "https://example.com/old"
	require.NoError(t, storage.Put(ctx, url, &domain.EmbedPreview{URL: url}))

	storage.now = func() time.Time { return start.Add(storage.ttl + time.Minute) }

	_, ok, err := storage.Get(ctx, url)
	require.NoError(t, err)
	assert.False(t, ok, "expired entries are misses")

	n, err := storage.Sweep(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)

	storage.now = func() time.Time { return start }
	_, ok, err = storage.Get(ctx, url)
	require.NoError(t, err)
	assert.False(t, ok, "swept entries are gone")
}
