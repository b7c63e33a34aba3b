package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheBytesRoundTrip(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	blob := []byte(`{"a":1}`)
	if err := mc.Set(ctx, "k", blob, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	blob[0] = 'x'

	var got []byte
	if err := mc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("stored value was aliased: %s", got)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	var s string
	if err := mc.Get(context.Background(), "nope", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestMemoryCacheJSON(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	type payload struct{ N int }
	if err := mc.Set(ctx, "p", payload{N: 7}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var out payload
	if err := mc.Get(ctx, "p", &out); err != nil || out.N != 7 {
		t.Fatalf("unexpected %v %+v", err, out)
	}
}

func TestMemoryCacheLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	ok, _ := mc.TryLock(ctx, "lock", time.Minute)
	if !ok {
		t.Fatalf("first lock should succeed")
	}
	ok, _ = mc.TryLock(ctx, "lock", time.Minute)
	if ok {
		t.Fatalf("second lock should fail")
	}
	_ = mc.Unlock(ctx, "lock")
	ok, _ = mc.TryLock(ctx, "lock", time.Minute)
	if !ok {
		t.Fatalf("lock after unlock should succeed")
	}
}

func TestGenerateKey(t *testing.T) {
	if got := GenerateKey("declcast", "c1_forest_model"); got != "declcast:c1_forest_model" {
		t.Fatalf("unexpected key %q", got)
	}
}
