package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/pharmledger/internal/adapter/gateway"
	"github.com/iho/pharmledger/internal/adapter/http/middleware"
	"github.com/iho/pharmledger/internal/infrastructure/config"
)

func TestListenAddr(t *testing.T) {
	assert.Equal(t, ":8080", listenAddr(""))
	assert.Equal(t, ":9090", listenAddr("9090"))
}

func TestNewDocumentGateway(t *testing.T) {
	cfg := &config.Config{}
	assert.IsType(t, &gateway.NoopGateway{}, newDocumentGateway(cfg, zerolog.Nop()))

	cfg.ExternalDocumentsURL = "http://docs.internal"
	cfg.ExternalDocumentsTimeout = time.Second
	assert.IsType(t, &gateway.WebhookGateway{}, newDocumentGateway(cfg, zerolog.Nop()))
}

func TestRunRequiresSecretWhenAuthEnabled(t *testing.T) {
	err := run(context.Background(), &config.Config{AuthEnabled: true}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestRedisPinger(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	ping := redisPinger(client)
	require.NoError(t, ping.Ping(context.Background()))

	mr.Close()
	assert.Error(t, ping.Ping(context.Background()))
}

func TestEvictIdleLimitersStopsWithContext(t *testing.T) {
	rl := middleware.NewRateLimiter(10, 10, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		evictIdleLimiters(ctx, rl, 10*time.Millisecond, zerolog.Nop())
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("evictIdleLimiters did not return after cancel")
	}
}
