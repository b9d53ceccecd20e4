package infra

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestCacheExpiry(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	c := NewCache[string](time.Minute)
	c.now = clk.now

	c.Set("a", "x")
	c.SetWithTTL("b", "y", time.Hour)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	clk.advance(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok, "expired entries are not returned")
	_, ok = c.Get("b")
	assert.True(t, ok)

	c.Cleanup()
	assert.Equal(t, 1, c.Len())

	c.Invalidate("b")
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestRateLimiterPerKey(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	rl := NewRateLimiter(2, time.Second)
	rl.now = clk.now

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "buckets are independent")
	assert.Equal(t, time.Second, rl.RetryAfter("a"))

	clk.advance(1500 * time.Millisecond)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.Equal(t, 500*time.Millisecond, rl.RetryAfter("a"))

	clk.advance(10 * time.Second)
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"), "refill is capped at maxTokens")
}
