// Package reflection decides when to surface a mirror-moment prompt: a short
// reflective interstitial shown alongside a decision. The gate is advisory
// presentation state only; it never blocks, delays, or reverts a vote that
// has already been optimistically applied.
package reflection

import (
	"math/rand"
	"sync"
)

// Gate is a seedable interstitial decision. The probability is explicit and
// the randomness source injectable, so tests are deterministic.
type Gate struct {
	mu          sync.Mutex
	rng         *rand.Rand
	probability float64
}

// NewGate creates a gate that fires with the given probability.
func NewGate(seed int64, probability float64) *Gate {
	if probability < 0 {
		probability = 0
	}
	if probability > 1 {
		probability = 1
	}
	return &Gate{
		rng:         rand.New(rand.NewSource(seed)),
		probability: probability,
	}
}

// Offer reports whether a reflection prompt should accompany this decision.
func (g *Gate) Offer() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64() < g.probability
}
