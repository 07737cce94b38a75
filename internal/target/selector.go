package target

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// ErrEmptyPool is returned when a selector is built without any targets.
var ErrEmptyPool = errors.New("target pool is empty")

// Selector draws target identifiers uniformly at random, with replacement.
// It is safe for concurrent use.
type Selector struct {
	mu   sync.Mutex
	rng  *rand.Rand
	pool []string
}

// New creates a selector over a copy of pool. A nil src seeds from the clock.
func New(pool []string, src rand.Source) (*Selector, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}

	ids := make([]string, len(pool))
	for i, id := range pool {
		if strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("target pool entry %d is blank", i)
		}
		ids[i] = id
	}

	if src == nil {
		src = NewSource(0)
	}

	return &Selector{
		rng:  rand.New(src),
		pool: ids,
	}, nil
}

// NewSource returns a PCG source for seed. Zero means seed from the clock.
func NewSource(seed uint64) rand.Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

// Next returns one identifier chosen independently of previous calls
func (s *Selector) Next() string {
	s.mu.Lock()
	i := s.rng.IntN(len(s.pool))
	s.mu.Unlock()
	return s.pool[i]
}

// Size returns the pool size
func (s *Selector) Size() int {
	return len(s.pool)
}
