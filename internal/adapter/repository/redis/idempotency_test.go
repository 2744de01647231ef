package redis

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/pharmledger/internal/infrastructure/metrics"
)

func TestIdempotencyStore_CheckAndSetExisting(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()

	store := NewIdempotencyStore(client, nil)
	ctx := context.Background()

	if err := client.Set(ctx, store.prefix+"key", "cached", time.Minute).Err(); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	exists, resp, err := store.CheckAndSet(ctx, "key", nil, time.Minute)
	if err != nil {
		t.Fatalf("CheckAndSet failed: %v", err)
	}

	if !exists || string(resp) != "cached" {
		t.Fatalf("expected existing cached response, got exists=%v resp=%s", exists, resp)
	}
}

func TestIdempotencyStore_CheckAndSetLocksNewKey(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()

	store := NewIdempotencyStore(client, nil)
	ctx := context.Background()

	exists, resp, err := store.CheckAndSet(ctx, "pending", nil, time.Minute)
	if err != nil || exists || resp != nil {
		t.Fatalf("unexpected result: exists=%v resp=%v err=%v", exists, resp, err)
	}

	val, err := client.Get(ctx, store.prefix+"pending").Result()
	if err != nil || val != PendingMarker {
		t.Fatalf("expected placeholder lock, got val=%s err=%v", val, err)
	}

	if ttl := mr.TTL(store.prefix + "pending"); ttl != time.Minute {
		t.Fatalf("expected lock ttl of a minute, got %s", ttl)
	}

	exists, resp, err = store.CheckAndSet(ctx, "pending", nil, time.Minute)
	if err != nil || !exists || string(resp) != PendingMarker {
		t.Fatalf("expected second caller to see the lock, got exists=%v resp=%s err=%v", exists, resp, err)
	}
}

func TestIdempotencyStore_CheckAndSetStoresResponse(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()

	store := NewIdempotencyStore(client, nil)
	ctx := context.Background()

	exists, _, err := store.CheckAndSet(ctx, "direct", []byte(`{"id":"grp-1"}`), time.Minute)
	if err != nil || exists {
		t.Fatalf("unexpected result: exists=%v err=%v", exists, err)
	}

	val, err := client.Get(ctx, store.prefix+"direct").Result()
	if err != nil || val != `{"id":"grp-1"}` {
		t.Fatalf("expected stored response, got val=%s err=%v", val, err)
	}
}

func TestIdempotencyStore_Update(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()

	store := NewIdempotencyStore(client, nil)
	ctx := context.Background()

	if err := store.Update(ctx, "complete", []byte("done"), time.Minute); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	val, err := client.Get(ctx, store.prefix+"complete").Result()
	if err != nil || val != "done" {
		t.Fatalf("expected stored response, got val=%s err=%v", val, err)
	}
}

func TestIdempotencyStore_Release(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()

	store := NewIdempotencyStore(client, nil)
	ctx := context.Background()

	if _, _, err := store.CheckAndSet(ctx, "failed", nil, time.Minute); err != nil {
		t.Fatalf("CheckAndSet failed: %v", err)
	}
	if err := store.Release(ctx, "failed"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if mr.Exists(store.prefix + "failed") {
		t.Fatalf("expected key to be removed")
	}

	exists, _, err := store.CheckAndSet(ctx, "failed", nil, time.Minute)
	if err != nil || exists {
		t.Fatalf("expected key to be free again, got exists=%v err=%v", exists, err)
	}
}

func TestIdempotencyStore_ServerDown(t *testing.T) {
	client, mr := newTestRedisClient(t)
	mr.Close()

	m := metrics.New(prometheus.NewRegistry())
	store := NewIdempotencyStore(client, m)
	if _, _, err := store.CheckAndSet(context.Background(), "key", nil, time.Minute); err == nil {
		t.Fatalf("expected error when redis is unreachable")
	}
	if got := testutil.ToFloat64(m.RedisErrors.WithLabelValues("idempotency_check")); got != 1 {
		t.Fatalf("expected one redis error recorded, got %v", got)
	}
}
