package core

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the source of uniform draws in [0, 1) used by every simulated component
type Rand interface {
	Float64() float64
}

type lockedRand struct {
	mu  sync.Mutex
	src *rand.Rand
}

// NewRand returns a goroutine-safe source. A zero seed uses the current time.
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{src: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}

// Sequence replays a fixed list of draws, starting over when exhausted
type Sequence struct {
	mu     sync.Mutex
	values []float64
	pos    int
}

// NewSequence builds a Sequence. An empty list always yields 0.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: values}
}

func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.pos%len(s.values)]
	s.pos++
	return v
}

// Uniform draws from [min, max)
func Uniform(r Rand, min, max float64) float64 {
	return min + r.Float64()*(max-min)
}
