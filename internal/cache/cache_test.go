package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func newTestCache() (*Cache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := New()
	c.now = clock.Now
	c.lastSweep = clock.t
	return c, clock
}

func TestCache_SetGetExpire(t *testing.T) {
	c, clock := newTestCache()

	c.Set("k", "特朗普宣布政策", time.Minute)
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "特朗普宣布政策", v)

	clock.t = clock.t.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_SweepOnWrite(t *testing.T) {
	c, clock := newTestCache()
	c.Set("old", "a", time.Minute)

	clock.t = clock.t.Add(2 * time.Hour)
	c.Set("new", "b", time.Hour)

	assert.Equal(t, 1, c.Len())
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, GenerateKey("en", "zh-CN", "text"), GenerateKey("en", "zh-CN", "text"))
	assert.NotEqual(t, GenerateKey("en", "zh-CN", "text"), GenerateKey("en", "de", "text"))
	assert.NotEqual(t, GenerateKey("ab", "c"), GenerateKey("a", "bc"))
	assert.Len(t, GenerateKey("x"), 64)
}
