package flock

import (
	"math"

	"github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"
)

// Rule 1: fly towards the centre of mass of the neighbouring boids.
func (s *Simulator) cohesion(view []Agent, j int) geometry.Vector3D {
	self := view[j]
	var center geometry.Vector3D
	neighbors := 0

	for k := range view {
		if k == j {
			continue
		}
		if s.cfg.NearNeighboursOnly && !within(self.Position, view[k].Position, s.cfg.NearDistance) {
			continue
		}
		center = center.Add(view[k].Position)
		neighbors++
	}

	if neighbors == 0 {
		return geometry.Zero
	}

	center = center.Mul(1 / float64(neighbors))
	pull := center.Normalize().Mul(s.cfg.CohesionSpeed).Sub(self.Position)
	return divide(pull, s.cfg.R1)
}

// Rule 2: keep a small distance from the other boids.
func (s *Simulator) separation(view []Agent, j int) geometry.Vector3D {
	self := view[j]
	var push geometry.Vector3D

	for k := range view {
		if k == j {
			continue
		}
		if within(self.Position, view[k].Position, s.cfg.R2) {
			push = push.Sub(view[k].Position.Sub(self.Position))
		}
	}
	return push
}

// Rule 3: match velocity with the neighbouring boids.
func (s *Simulator) alignment(view []Agent, j int) geometry.Vector3D {
	self := view[j]
	var heading geometry.Vector3D
	neighbors := 0

	for k := range view {
		if k == j {
			continue
		}
		if s.cfg.NearNeighboursOnly && !within(self.Position, view[k].Position, s.cfg.NearDistance) {
			continue
		}
		heading = heading.Add(view[k].Velocity)
		neighbors++
	}

	if neighbors == 0 {
		return geometry.Zero
	}

	heading = heading.Mul(1 / float64(neighbors))
	steer := heading.Normalize().Mul(s.cfg.AlignmentSpeed).Sub(self.Velocity)
	return divide(steer, s.cfg.R3)
}

// within reports a strict Euclidean distance below radius.
// A non-positive radius matches nothing.
func within(a, b geometry.Vector3D, radius float64) bool {
	if radius <= 0 {
		return false
	}
	r2 := radius * radius
	if r2 == 0 || math.IsInf(r2, 0) {
		// the square under- or overflowed, compare unsquared distances
		d := a.Sub(b)
		return math.Hypot(math.Hypot(d.X, d.Y), d.Z) < radius
	}
	return a.DistanceSquaredTo(b) < r2
}

// divide is component-wise division by a divisor Validate guarantees non-zero.
func divide(v geometry.Vector3D, divisor float64) geometry.Vector3D {
	out, err := v.Div(divisor)
	if err != nil {
		return geometry.Zero
	}
	return out
}
