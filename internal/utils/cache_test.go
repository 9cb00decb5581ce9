package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheExpiry(t *testing.T) {
	c := GetCache()
	c.Set("k1", 7, time.Minute)
	c.Set("k2", 8, -time.Second)

	assert.Equal(t, 7, c.Get("k1"))
	assert.Nil(t, c.Get("k2"))

	c.Delete("k1")
	assert.Nil(t, c.Get("k1"))
}

func TestGroupCacheKey(t *testing.T) {
	assert.Equal(t, "group:detail:12", GroupCacheKey(12))
}
