package trx

import (
	"math/rand/v2"
	"strings"
)

// Generator produces identifiers for tests, executions and test lists.
// Implementations are substituted in tests, where deterministic IDs are needed
// to compare emitted documents.
type Generator interface {
	NewID() string
}

// Several TRX elements require globally unique IDs (GUIDs). RandomGenerator
// produces tokens that are *not* guaranteed to be truly globally unique, but
// are unique enough for any purpose short of correlating hundreds of thousands
// of test runs. Ordinary, non-cryptographic randomness is sufficient here.
type RandomGenerator struct{}

// NewRandomGenerator creates the production ID generator.
func NewRandomGenerator() RandomGenerator {
	return RandomGenerator{}
}

const hexDigits = "0123456789abcdef"

var guidGroups = [...]int{8, 4, 4, 4, 12}

// NewID returns a fresh 32-hex-digit token in 8-4-4-4-12 grouping.
func (RandomGenerator) NewID() string {
	var b strings.Builder
	b.Grow(36)
	for gi, width := range guidGroups {
		if gi > 0 {
			b.WriteByte('-')
		}
		for i := 0; i < width; i++ {
			b.WriteByte(hexDigits[rand.IntN(16)])
		}
	}
	return b.String()
}
