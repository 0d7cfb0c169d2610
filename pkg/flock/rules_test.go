package flock

import (
	"math"
	"testing"

	"github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"
)

var wideField = FieldBounds{X: 100, Y: 100, Z: 100}

func onlyRules(cohesion, separation, alignment bool) Config {
	cfg := DefaultConfig()
	cfg.UseCohesion = cohesion
	cfg.UseSeparation = separation
	cfg.UseAlignment = alignment
	return cfg
}

func at(x, y, z float64) Agent {
	return Agent{Position: geometry.Vector3D{X: x, Y: y, Z: z}}
}

func mustSimulator(t *testing.T, agents []Agent, bounds FieldBounds, cfg Config) *Simulator {
	t.Helper()
	s, err := NewSimulator(agents, bounds, cfg)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	return s
}

func TestSeparation_PushesAwayFromCloseNeighbor(t *testing.T) {
	cfg := onlyRules(false, true, false)
	cfg.R2 = 8
	s := mustSimulator(t, []Agent{at(0, 0, 0), at(1, 0, 0)}, wideField, cfg)

	got := s.Separation(0)
	want := geometry.Vector3D{X: -1}
	if !got.Eq(want) {
		t.Errorf("Separation(0) = %v; want %v", got, want)
	}
	if !floatEq(got.Len(), 1) {
		t.Errorf("|Separation(0)| = %v; want 1", got.Len())
	}
}

func TestSeparation_SumsWithoutNormalizing(t *testing.T) {
	cfg := onlyRules(false, true, false)
	cfg.R2 = 8
	s := mustSimulator(t, []Agent{at(0, 0, 0), at(2, 0, 0), at(0, 3, 0), at(50, 0, 0)}, wideField, cfg)

	got := s.Separation(0)
	want := geometry.Vector3D{X: -2, Y: -3}
	if !got.Eq(want) {
		t.Errorf("Separation(0) = %v; want %v (agent at 50 is out of range)", got, want)
	}
}

func TestSeparation_RadiusIsStrict(t *testing.T) {
	cfg := onlyRules(false, true, false)
	cfg.R2 = 2
	s := mustSimulator(t, []Agent{at(0, 0, 0), at(2, 0, 0)}, wideField, cfg)

	if got := s.Separation(0); !got.Eq(geometry.Zero) {
		t.Errorf("Separation(0) = %v; want zero for a neighbor exactly at r2", got)
	}
}

func TestCohesion_PullsTowardNormalizedCenter(t *testing.T) {
	cfg := onlyRules(true, false, false)
	cfg.CohesionSpeed = 1
	cfg.R1 = 1
	s := mustSimulator(t, []Agent{at(0, 0, 0), at(2, 0, 0), at(0, 2, 0)}, wideField, cfg)

	got := s.Cohesion(0)
	want := geometry.Vector3D{X: 1, Y: 1}.Normalize()
	if !got.Eq(want) {
		t.Errorf("Cohesion(0) = %v; want %v", got, want)
	}
}

func TestCohesion_ScalesBySpeedAndDivisor(t *testing.T) {
	cfg := onlyRules(true, false, false)
	cfg.CohesionSpeed = 2
	cfg.R1 = 4
	s := mustSimulator(t, []Agent{at(1, 0, 0), at(0, 0, 3)}, wideField, cfg)

	// mean of others = (0,0,3) -> unit (0,0,1) * 2 - (1,0,0) = (-1,0,2) / 4
	got := s.Cohesion(0)
	want := geometry.Vector3D{X: -0.25, Z: 0.5}
	if !got.Eq(want) {
		t.Errorf("Cohesion(0) = %v; want %v", got, want)
	}
}

func TestAlignment_SteersTowardMeanHeading(t *testing.T) {
	cfg := onlyRules(false, false, true)
	cfg.AlignmentSpeed = 0.5
	cfg.R3 = 2
	agents := []Agent{
		{Position: geometry.Vector3D{}, Velocity: geometry.Vector3D{Y: 1}},
		{Position: geometry.Vector3D{X: 5}, Velocity: geometry.Vector3D{X: 2}},
	}
	s := mustSimulator(t, agents, wideField, cfg)

	got := s.Alignment(0)
	want := geometry.Vector3D{X: 0.25, Y: -0.5}
	if !got.Eq(want) {
		t.Errorf("Alignment(0) = %v; want %v", got, want)
	}
}

func TestAlignment_StillNeighborsGiveOnlyBraking(t *testing.T) {
	cfg := onlyRules(false, false, true)
	cfg.R3 = 1
	agents := []Agent{
		{Velocity: geometry.Vector3D{X: 1}},
		{Position: geometry.Vector3D{X: 1}},
	}
	s := mustSimulator(t, agents, wideField, cfg)

	got := s.Alignment(0)
	if !got.IsFinite() {
		t.Fatalf("Alignment(0) = %v; want finite", got)
	}
	if want := (geometry.Vector3D{X: -1}); !got.Eq(want) {
		t.Errorf("Alignment(0) = %v; want %v", got, want)
	}
}

func TestNearNeighboursFilter(t *testing.T) {
	agents := []Agent{
		{Position: geometry.Vector3D{}, Velocity: geometry.Vector3D{}},
		{Position: geometry.Vector3D{X: 3}, Velocity: geometry.Vector3D{X: 1}},
		{Position: geometry.Vector3D{Y: 5}, Velocity: geometry.Vector3D{Y: 1}}, // exactly at nearDistance
	}
	cfg := onlyRules(true, false, true)
	cfg.NearNeighboursOnly = true
	cfg.NearDistance = 5
	cfg.CohesionSpeed = 1
	cfg.AlignmentSpeed = 1
	cfg.R1 = 1
	cfg.R3 = 1
	s := mustSimulator(t, agents, wideField, cfg)

	if got, want := s.Cohesion(0), (geometry.Vector3D{X: 1}); !got.Eq(want) {
		t.Errorf("Cohesion(0) = %v; want %v", got, want)
	}
	if got, want := s.Alignment(0), (geometry.Vector3D{X: 1}); !got.Eq(want) {
		t.Errorf("Alignment(0) = %v; want %v", got, want)
	}

	cfg.NearDistance = 1
	if err := s.SetConfig(cfg); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if got := s.Cohesion(0); !got.Eq(geometry.Zero) {
		t.Errorf("Cohesion(0) with nobody near = %v; want zero", got)
	}
	if got := s.Alignment(0); !got.Eq(geometry.Zero) {
		t.Errorf("Alignment(0) with nobody near = %v; want zero", got)
	}
}

func TestNearNeighboursFilter_TinyRadius(t *testing.T) {
	p := geometry.Vector3D{X: 1, Y: 2, Z: 3}
	agents := []Agent{{Position: p}, {Position: p, Velocity: geometry.Vector3D{X: 1}}}
	cfg := onlyRules(true, false, true)
	cfg.NearNeighboursOnly = true
	cfg.NearDistance = 1e-200 // squares to zero
	s := mustSimulator(t, agents, wideField, cfg)

	want := p.Normalize().Mul(cfg.CohesionSpeed).Sub(p).Mul(1 / cfg.R1)
	if got := s.Cohesion(0); !got.Eq(want) {
		t.Errorf("Cohesion(0) = %v; want %v", got, want)
	}
	if got := s.Alignment(0); got.Eq(geometry.Zero) {
		t.Error("Alignment(0) = zero; want a pull toward the co-located neighbour")
	}
}

func TestWithin(t *testing.T) {
	tests := []struct {
		name   string
		a, b   geometry.Vector3D
		radius float64
		want   bool
	}{
		{"inside", geometry.Zero, geometry.Vector3D{X: 1}, 2, true},
		{"on the edge", geometry.Zero, geometry.Vector3D{X: 2}, 2, false},
		{"zero radius", geometry.Zero, geometry.Zero, 0, false},
		{"negative radius", geometry.Zero, geometry.Zero, -1, false},
		{"radius squares to zero", geometry.Zero, geometry.Zero, 1e-200, true},
		{"tiny radius, apart", geometry.Zero, geometry.Vector3D{X: 1e-199}, 1e-200, false},
		{"radius squares to inf", geometry.Zero, geometry.Vector3D{X: 1e199}, 1e200, true},
		{"huge radius, beyond", geometry.Zero, geometry.Vector3D{X: 1e300}, 1e299, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := within(tt.a, tt.b, tt.radius); got != tt.want {
				t.Errorf("within(%v, %v, %g) = %v; want %v", tt.a, tt.b, tt.radius, got, tt.want)
			}
		})
	}
}

func TestRules_LoneAgentGetsZero(t *testing.T) {
	lone := Agent{Position: geometry.Vector3D{X: 1, Y: 2, Z: 3}, Velocity: geometry.Vector3D{X: 1}}
	s := mustSimulator(t, []Agent{lone}, wideField, DefaultConfig())

	rules := map[string]func(int) geometry.Vector3D{
		"Cohesion":   s.Cohesion,
		"Separation": s.Separation,
		"Alignment":  s.Alignment,
	}
	for name, rule := range rules {
		t.Run(name, func(t *testing.T) {
			if got := rule(0); !got.Eq(geometry.Zero) {
				t.Errorf("%s(0) = %v; want zero", name, got)
			}
		})
	}
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) <= geometry.Epsilon
}
