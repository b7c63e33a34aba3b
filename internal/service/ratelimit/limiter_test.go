package ratelimit

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestLimiter_BurstThenRefill(t *testing.T) {
    now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
    l := New(1, 2, time.Minute)
    l.now = func() time.Time { return now }

    assert.True(t, l.Allow("C1"))
    assert.True(t, l.Allow("C1"))
    assert.False(t, l.Allow("C1"))
    assert.True(t, l.Allow("C2"), "keys are independent")

    now = now.Add(time.Second)
    assert.True(t, l.Allow("C1"))
    assert.False(t, l.Allow("C1"))
}

func TestLimiter_SweepsIdleKeys(t *testing.T) {
    now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
    l := New(1, 1, time.Minute)
    l.now = func() time.Time { return now }

    l.Allow("a")
    l.Allow("b")
    assert.Equal(t, 2, l.Len())

    now = now.Add(2 * time.Minute)
    l.Allow("c")
    assert.Equal(t, 1, l.Len())
}
