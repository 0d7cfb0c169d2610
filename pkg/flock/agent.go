package flock

import (
	"fmt"
	"math"

	"github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"
)

// WrapOffset is how far inside the opposite face a wrapped agent lands,
// so that it does not satisfy the wrap condition again on the next step.
const WrapOffset = 0.5

// Agent is a single boid. ID is the agent's index in the simulator.
type Agent struct {
	ID       int               `json:"id"`
	Position geometry.Vector3D `json:"position"`
	Velocity geometry.Vector3D `json:"velocity"`
}

// Speed returns the magnitude of the agent's velocity.
func (a Agent) Speed() float64 {
	return a.Velocity.Len()
}

// DistanceTo gives the cartesian distance from this Agent to the other
func (a Agent) DistanceTo(other Agent) float64 {
	return a.Position.DistanceTo(other.Position)
}

// FieldBounds describes the box agents live in:
// x in [-X, X], y in [-Y, Y] and z in [0, Z].
type FieldBounds struct {
	X float64 `json:"x" yaml:"x" toml:"x"`
	Y float64 `json:"y" yaml:"y" toml:"y"`
	Z float64 `json:"z" yaml:"z" toml:"z"`
}

// DefaultBounds is the stock 34x20x5 field.
func DefaultBounds() FieldBounds {
	return FieldBounds{X: 17, Y: 10, Z: 5}
}

// Validate requires every extent to be finite and larger than WrapOffset,
// otherwise a wrapped coordinate could land outside the field.
func (b FieldBounds) Validate() error {
	extents := []struct {
		name  string
		value float64
	}{
		{"bounds.x", b.X},
		{"bounds.y", b.Y},
		{"bounds.z", b.Z},
	}
	for _, e := range extents {
		if math.IsNaN(e.value) || math.IsInf(e.value, 0) {
			return &ConfigError{Field: e.name, Reason: "must be finite"}
		}
		if e.value <= WrapOffset {
			return &ConfigError{Field: e.name, Reason: fmt.Sprintf("must be greater than %v", WrapOffset)}
		}
	}
	return nil
}

// Contains reports whether p lies inside the field, faces included.
func (b FieldBounds) Contains(p geometry.Vector3D) bool {
	return p.X >= -b.X && p.X <= b.X &&
		p.Y >= -b.Y && p.Y <= b.Y &&
		p.Z >= 0 && p.Z <= b.Z
}

// Wrap teleports a position that left the field to the opposite side.
// Each axis is handled independently; x and y are symmetric around zero,
// z only spans [0, Z].
func (b FieldBounds) Wrap(p geometry.Vector3D) geometry.Vector3D {
	if p.X < -b.X {
		p.X = b.X - WrapOffset
	} else if p.X > b.X {
		p.X = -b.X + WrapOffset
	}

	if p.Y < -b.Y {
		p.Y = b.Y - WrapOffset
	} else if p.Y > b.Y {
		p.Y = -b.Y + WrapOffset
	}

	if p.Z < 0 {
		p.Z = b.Z - WrapOffset
	} else if p.Z > b.Z {
		p.Z = 0 + WrapOffset
	}

	return p
}
