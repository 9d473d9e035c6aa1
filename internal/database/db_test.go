package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestConnectRejectsBadURL(t *testing.T) {
	_, err := Connect(context.Background(), PostgresConfig{URL: "://not a url"})
	assert.ErrorContains(t, err, "error parsing database config")

	_, err = ConnectRedis(context.Background(), RedisConfig{URL: "http://not-redis"})
	assert.ErrorContains(t, err, "error parsing redis url")
}

func TestConnectUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := Connect(ctx, PostgresConfig{URL: "postgres://u:p@127.0.0.1:1/db?connect_timeout=1"})
	assert.Error(t, err)

	_, err = ConnectRedis(ctx, RedisConfig{URL: "redis://127.0.0.1:1/0"})
	assert.ErrorContains(t, err, "error connecting to redis")
}

func TestConnectPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("storefront"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "Failed to start postgres container")
	t.Cleanup(func() { testcontainers.TerminateContainer(container) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := Connect(ctx, PostgresConfig{URL: connStr, MaxConns: 4, MinConns: 1, MaxLifetime: time.Hour})
	require.NoError(t, err)
	defer pool.Close()

	assert.Equal(t, int32(4), pool.Config().MaxConns)
	assert.Equal(t, int32(1), pool.Config().MinConns)
}
