package randutils

import "sync"

// Scripted is a Source that replays fixed sequences of samples. It
// is used to drive exploration and coin flips deterministically.
//
// Once a sequence is exhausted it wraps around to its start. An empty
// Floats sequence always yields 0.99 (exploit for any ε < 0.99) and an
// empty Ints sequence always yields 0.
type Scripted struct {
	mu     sync.Mutex
	Floats []float64
	Ints   []int

	fi, ii int
}

// Float64 returns the next scripted float
func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.Floats) == 0 {
		return 0.99
	}
	f := s.Floats[s.fi%len(s.Floats)]
	s.fi++
	return f
}

// Intn returns the next scripted int modulo n
func (s *Scripted) Intn(n int) int {
	if n <= 0 {
		panic("randutils: invalid argument to Intn")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.Ints) == 0 {
		return 0
	}
	i := s.Ints[s.ii%len(s.Ints)]
	s.ii++
	return i % n
}
