package services

import "math/rand/v2"

// Rand is the random source used for planning. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRand draws from the process-wide generator, which is safe for concurrent use.
func DefaultRand() Rand { return globalRand{} }
