package dsc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReferenceCache_SetGet(t *testing.T) {
	cache := NewReferenceCache()
	cache.Set("chr1", 100, 'a')
	assert.Equal(t, BaseA, cache.Get("chr1", 100))
}

func TestReferenceCache_UnknownPositionIsN(t *testing.T) {
	cache := NewReferenceCache()
	assert.Equal(t, BaseN, cache.Get("chr1", 100))
	cache.Set("chr1", 100, 'C')
	assert.Equal(t, BaseN, cache.Get("chr1", 101))
	assert.Equal(t, BaseN, cache.Get("chr2", 100))
}

func TestReferenceCache_SeparateContigs(t *testing.T) {
	cache := NewReferenceCache()
	cache.Set("chr1", 5, 'G')
	cache.Set("chr2", 5, 'T')
	assert.Equal(t, BaseG, cache.Get("chr1", 5))
	assert.Equal(t, BaseT, cache.Get("chr2", 5))
}
