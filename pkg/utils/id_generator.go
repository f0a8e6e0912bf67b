package utils

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ReferenceCodeGenerator issues sortable, human-pasteable transaction
// reference codes. ULIDs keep codes time-ordered across restarts; the
// monotonic reader guarantees uniqueness within the same millisecond.
type ReferenceCodeGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	prefix  string
}

func NewReferenceCodeGenerator(prefix string) *ReferenceCodeGenerator {
	return &ReferenceCodeGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		prefix:  prefix,
	}
}

func (g *ReferenceCodeGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	return g.prefix + id.String()
}
