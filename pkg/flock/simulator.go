// Package flock implements a 3D boids simulation.
//
// A Simulator owns a fixed population of agents inside a wrapping field and
// advances it one tick per call to Step using three local rules: cohesion,
// separation and alignment. Neighbour search is a plain O(n²) scan.
//
// A Simulator is not safe for concurrent use.
package flock

import (
	"fmt"

	"github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"
)

// Simulator advances a flock of agents.
type Simulator struct {
	agents []Agent
	bounds FieldBounds
	cfg    Config
	tick   uint64

	// previous holds the pre-step copy used in Snapshot mode.
	previous []Agent
}

// NewSimulator copies agents, validates bounds and cfg and returns a ready simulator.
// Agent IDs are reassigned to their index. Any returned error is a *ConfigError.
func NewSimulator(agents []Agent, bounds FieldBounds, cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}

	owned := make([]Agent, len(agents))
	for i, a := range agents {
		if !a.Position.IsFinite() {
			return nil, &ConfigError{Field: fmt.Sprintf("agents[%d].position", i), Reason: "must be finite"}
		}
		if !a.Velocity.IsFinite() {
			return nil, &ConfigError{Field: fmt.Sprintf("agents[%d].velocity", i), Reason: "must be finite"}
		}
		a.ID = i
		owned[i] = a
	}

	return &Simulator{
		agents: owned,
		bounds: bounds,
		cfg:    cfg,
	}, nil
}

// Step advances every agent by one tick. With no agents it only counts the tick.
func (s *Simulator) Step() {
	if s.cfg.mode() == Snapshot {
		s.stepSnapshot()
	} else {
		s.stepSequential()
	}
	s.tick++
}

// stepSequential updates agents in place, in index order. Rules for agent j
// read the live slice, so they see agents 0..j-1 at their new state and
// agent j's velocity as summed so far in this step.
func (s *Simulator) stepSequential() {
	for j := range s.agents {
		a := &s.agents[j]
		a.Velocity = geometry.Zero
		if s.cfg.UseCohesion {
			a.Velocity = a.Velocity.Add(s.cohesion(s.agents, j))
		}
		if s.cfg.UseSeparation {
			a.Velocity = a.Velocity.Add(s.separation(s.agents, j))
		}
		if s.cfg.UseAlignment {
			a.Velocity = a.Velocity.Add(s.alignment(s.agents, j))
		}
		a.Position = s.bounds.Wrap(a.Position.Add(a.Velocity))
	}
}

// stepSnapshot computes every agent from the state before the step.
func (s *Simulator) stepSnapshot() {
	s.previous = append(s.previous[:0], s.agents...)
	for j := range s.agents {
		var v geometry.Vector3D
		if s.cfg.UseCohesion {
			v = v.Add(s.cohesion(s.previous, j))
		}
		if s.cfg.UseSeparation {
			v = v.Add(s.separation(s.previous, j))
		}
		if s.cfg.UseAlignment {
			v = v.Add(s.alignment(s.previous, j))
		}
		s.agents[j].Velocity = v
		s.agents[j].Position = s.bounds.Wrap(s.previous[j].Position.Add(v))
	}
}

// Cohesion returns agent j's cohesion contribution against the current state.
// It panics if j is out of range.
func (s *Simulator) Cohesion(j int) geometry.Vector3D {
	return s.cohesion(s.agents, j)
}

// Separation returns agent j's separation contribution against the current state.
// It panics if j is out of range.
func (s *Simulator) Separation(j int) geometry.Vector3D {
	return s.separation(s.agents, j)
}

// Alignment returns agent j's alignment contribution against the current state.
// It panics if j is out of range.
func (s *Simulator) Alignment(j int) geometry.Vector3D {
	return s.alignment(s.agents, j)
}

// WrapPosition maps p back into the simulator's field.
func (s *Simulator) WrapPosition(p geometry.Vector3D) geometry.Vector3D {
	return s.bounds.Wrap(p)
}

// Agents returns a copy of the agents in index order.
func (s *Simulator) Agents() []Agent {
	out := make([]Agent, len(s.agents))
	copy(out, s.agents)
	return out
}

// Agent returns agent j. It panics if j is out of range.
func (s *Simulator) Agent(j int) Agent {
	return s.agents[j]
}

// Len returns the population size.
func (s *Simulator) Len() int {
	return len(s.agents)
}

// Tick returns how many steps have run.
func (s *Simulator) Tick() uint64 {
	return s.tick
}

// Bounds returns the field.
func (s *Simulator) Bounds() FieldBounds {
	return s.bounds
}

// Config returns the rule parameters in use.
func (s *Simulator) Config() Config {
	return s.cfg
}

// SetConfig swaps the rule parameters between steps. An invalid cfg is
// rejected with a *ConfigError and the previous parameters stay in place.
func (s *Simulator) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

// Stats summarizes the current state of the flock.
func (s *Simulator) Stats() Stats {
	return ComputeStats(s.agents)
}
