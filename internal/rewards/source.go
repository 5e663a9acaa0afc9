package rewards

import (
	"math/rand"
	"sync"
	"time"
)

// LockedSource makes a seeded source safe to share between request goroutines.
type LockedSource struct {
	mu  sync.Mutex
	src rand.Source64
}

func NewLockedSource(seed int64) *LockedSource {
	return &LockedSource{src: rand.NewSource(seed).(rand.Source64)}
}

func (s *LockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *LockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func (s *LockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// NewSource returns a goroutine-safe *rand.Rand. Seed 0 picks a time-based seed.
func NewSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(NewLockedSource(seed))
}
