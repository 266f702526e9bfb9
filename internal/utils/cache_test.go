package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlanCacheSetGet(t *testing.T) {
	c := NewPlanCache[string](10, time.Minute)

	c.Set("oi", "olá")
	got, ok := c.Get("oi")
	assert.True(t, ok)
	assert.Equal(t, "olá", got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestPlanCacheExpiry(t *testing.T) {
	c := NewPlanCache[int](10, 10*time.Millisecond)

	c.Set("k", 42)
	_, ok := c.Get("k")
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok, "过期条目应按未命中处理")
	assert.Equal(t, 0, c.Len(), "过期条目读取时应被剔除")
}

func TestPlanCacheEvictsOldest(t *testing.T) {
	c := NewPlanCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	_, ok := c.Get("a")
	assert.False(t, ok, "超出容量时最旧的条目应被淘汰")
	assert.Equal(t, 2, c.Len())
}
