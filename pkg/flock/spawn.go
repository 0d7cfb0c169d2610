package flock

import (
	"math/rand/v2"

	"github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"
)

// RandomAgents places n agents uniformly inside bounds with a velocity drawn
// uniformly from [-1, 1] on every axis. A nil rng uses the global source.
func RandomAgents(rng *rand.Rand, n int, bounds FieldBounds) []Agent {
	next := rand.Float64
	if rng != nil {
		next = rng.Float64
	}
	between := func(lo, hi float64) float64 {
		return lo + next()*(hi-lo)
	}

	agents := make([]Agent, n)
	for i := range agents {
		agents[i] = Agent{
			ID: i,
			Position: geometry.Vector3D{
				X: between(-bounds.X, bounds.X),
				Y: between(-bounds.Y, bounds.Y),
				Z: between(0, bounds.Z),
			},
			Velocity: geometry.Vector3D{
				X: between(-1, 1),
				Y: between(-1, 1),
				Z: between(-1, 1),
			},
		}
	}
	return agents
}

// NewSeededRand returns a deterministic generator for RandomAgents.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
