package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGetOrSetLoadsOncePerTTL(t *testing.T) {
	c := NewMemory()
	defer c.Close()

	loads := 0
	loader := func(ctx context.Context) ([]byte, error) {
		loads++
		return []byte("value"), nil
	}

	for i := 0; i < 3; i++ {
		value, err := c.GetOrSet(context.Background(), "key", time.Minute, loader)
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if string(value) != "value" {
			t.Fatalf("unexpected value: %s", value)
		}
	}
	if loads != 1 {
		t.Fatalf("expected one load, got %d", loads)
	}

	stats := c.Stats()
	if stats.Misses != 1 || stats.Hits != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestGetOrSetReloadsAfterExpiry(t *testing.T) {
	c := NewMemory()
	defer c.Close()

	loads := 0
	loader := func(ctx context.Context) ([]byte, error) {
		loads++
		return []byte("value"), nil
	}

	if _, err := c.GetOrSet(context.Background(), "key", 10*time.Millisecond, loader); err != nil {
		t.Fatalf("first get: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := c.GetOrSet(context.Background(), "key", 10*time.Millisecond, loader); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if loads != 2 {
		t.Fatalf("expected reload after expiry, got %d loads", loads)
	}
}

func TestLoaderErrorIsNotCached(t *testing.T) {
	c := NewMemory()
	defer c.Close()

	boom := errors.New("load failed")
	calls := 0
	loader := func(ctx context.Context) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return []byte("recovered"), nil
	}

	if _, err := c.GetOrSet(context.Background(), "key", time.Minute, loader); !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
	value, err := c.GetOrSet(context.Background(), "key", time.Minute, loader)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if string(value) != "recovered" {
		t.Fatalf("unexpected value: %s", value)
	}
}

func TestInvalidateDropsEntry(t *testing.T) {
	c := NewMemory()
	defer c.Close()

	loads := 0
	loader := func(ctx context.Context) ([]byte, error) {
		loads++
		return []byte("value"), nil
	}

	if _, err := c.GetOrSet(context.Background(), "key", time.Minute, loader); err != nil {
		t.Fatalf("warm: %v", err)
	}
	c.Invalidate(context.Background(), "key")
	if _, err := c.GetOrSet(context.Background(), "key", time.Minute, loader); err != nil {
		t.Fatalf("after invalidate: %v", err)
	}
	if loads != 2 {
		t.Fatalf("expected reload after invalidate, got %d loads", loads)
	}
}

func TestCleanupRemovesExpiredEntries(t *testing.T) {
	c := NewMemory()
	defer c.Close()

	loader := func(ctx context.Context) ([]byte, error) {
		return []byte("value"), nil
	}
	if _, err := c.GetOrSet(context.Background(), "stale", time.Millisecond, loader); err != nil {
		t.Fatalf("warm: %v", err)
	}
	if _, err := c.GetOrSet(context.Background(), "fresh", time.Hour, loader); err != nil {
		t.Fatalf("warm: %v", err)
	}

	c.cleanup(time.Now().Add(time.Minute))

	c.mu.Lock()
	_, staleKept := c.entries["stale"]
	_, freshKept := c.entries["fresh"]
	c.mu.Unlock()
	if staleKept {
		t.Fatal("expired entry survived cleanup")
	}
	if !freshKept {
		t.Fatal("fresh entry was swept")
	}
}
