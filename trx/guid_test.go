package trx

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var guidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestRandomGeneratorFormat(t *testing.T) {
	ids := NewRandomGenerator()
	for i := 0; i < 100; i++ {
		id := ids.NewID()
		require.True(t, guidPattern.MatchString(id), "unexpected ID format: %s", id)
	}
}

func TestRandomGeneratorDistinct(t *testing.T) {
	// Uniqueness is probabilistic, not guaranteed; within one report's worth
	// of IDs a collision would be astronomically unlikely.
	ids := NewRandomGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := ids.NewID()
		assert.False(t, seen[id], "duplicate ID generated: %s", id)
		seen[id] = true
	}
}
