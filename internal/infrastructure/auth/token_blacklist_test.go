package auth

import (
	"context"
	"testing"
	"time"

	"github.com/shopdesk/backoffice/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestInMemoryTokenBlacklist(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	bl := NewInMemoryTokenBlacklist()
	bl.now = func() time.Time { return now }

	require.NoError(t, bl.AddToBlacklist(ctx, "jti-1", time.Minute))
	require.NoError(t, bl.AddToBlacklist(ctx, "jti-expired", 0))

	revoked, err := bl.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = bl.IsBlacklisted(ctx, "jti-expired")
	require.NoError(t, err)
	assert.False(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = bl.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.Empty(t, bl.revoked)
}

func TestRedisTokenBlacklist(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := NewRedisClient(ctx, config.RedisConfig{Enabled: true, Host: host, Port: port.Int()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	bl := NewRedisTokenBlacklist(client)
	require.NoError(t, bl.Ping(ctx))

	require.NoError(t, bl.AddToBlacklist(ctx, "jti-redis", time.Minute))
	revoked, err := bl.IsBlacklisted(ctx, "jti-redis")
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl, err := client.TTL(ctx, blacklistKeyPrefix+"jti-redis").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)

	revoked, err = bl.IsBlacklisted(ctx, "jti-unknown")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisClient(ctx, config.RedisConfig{Host: "127.0.0.1", Port: 1})
	assert.Error(t, err)
}
