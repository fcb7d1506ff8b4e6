package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	assert.NoError(t, c.Set(ctx, "plan", "v1", time.Minute))
	val, ok := c.Get(ctx, "plan")
	assert.True(t, ok)
	assert.Equal(t, "v1", val)

	now = now.Add(time.Minute)
	_, ok = c.Get(ctx, "plan")
	assert.False(t, ok, "entry should expire at its ttl")

	assert.NoError(t, c.Set(ctx, "forever", "v2", 0))
	now = now.Add(24 * time.Hour)
	val, ok = c.Get(ctx, "forever")
	assert.True(t, ok)
	assert.Equal(t, "v2", val)

	assert.NoError(t, c.Delete(ctx, "forever"))
	_, ok = c.Get(ctx, "forever")
	assert.False(t, ok)
}
