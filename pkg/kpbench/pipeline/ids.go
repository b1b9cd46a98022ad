package pipeline

import (
	"crypto/rand"
	"sync"

	"github.com/oklog/ulid/v2"
)

// idGenerator hands out monotonic ULIDs to concurrent callers.
type idGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newIDGenerator() *idGenerator {
	return &idGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *idGenerator) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Now(), g.entropy).String()
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return ulid.Make().String()
}
