package flock

import (
	"math"
	"testing"

	"github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"
)

func nan() float64 { return math.NaN() }

func TestFieldBounds_Wrap(t *testing.T) {
	b := DefaultBounds() // 17 x 10 x 5

	tests := []struct {
		name string
		in   geometry.Vector3D
		want geometry.Vector3D
	}{
		{"inside", geometry.Vector3D{X: 1, Y: -2, Z: 3}, geometry.Vector3D{X: 1, Y: -2, Z: 3}},
		{"on faces", geometry.Vector3D{X: 17, Y: -10, Z: 0}, geometry.Vector3D{X: 17, Y: -10, Z: 0}},
		{"past +x", geometry.Vector3D{X: 18, Z: 1}, geometry.Vector3D{X: -16.5, Z: 1}},
		{"past -x", geometry.Vector3D{X: -18, Z: 1}, geometry.Vector3D{X: 16.5, Z: 1}},
		{"past +y", geometry.Vector3D{Y: 11, Z: 1}, geometry.Vector3D{Y: -9.5, Z: 1}},
		{"past -y", geometry.Vector3D{Y: -10.5, Z: 1}, geometry.Vector3D{Y: 9.5, Z: 1}},
		{"below z", geometry.Vector3D{Z: -0.1}, geometry.Vector3D{Z: 4.5}},
		{"above z", geometry.Vector3D{Z: 5.1}, geometry.Vector3D{Z: 0.5}},
		{"far corner", geometry.Vector3D{X: 1e6, Y: -1e6, Z: -1e6}, geometry.Vector3D{X: -16.5, Y: 9.5, Z: 4.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Wrap(tt.in); !got.Eq(tt.want) {
				t.Errorf("Wrap(%v) = %v; want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFieldBounds_WrapLandsInsideAndIsIdempotent(t *testing.T) {
	b := FieldBounds{X: 17, Y: 10, Z: 5}
	rng := NewSeededRand(11)

	for i := 0; i < 10000; i++ {
		p := geometry.Vector3D{
			X: (rng.Float64()*6 - 3) * b.X,
			Y: (rng.Float64()*6 - 3) * b.Y,
			Z: (rng.Float64()*6 - 3) * b.Z,
		}
		once := b.Wrap(p)
		if !b.Contains(once) {
			t.Fatalf("Wrap(%v) = %v; outside %+v", p, once, b)
		}
		if twice := b.Wrap(once); twice != once {
			t.Fatalf("Wrap not idempotent: %v -> %v -> %v", p, once, twice)
		}
	}
}

func TestSimulator_WrapPositionUsesItsBounds(t *testing.T) {
	s := mustSimulator(t, nil, FieldBounds{X: 2, Y: 2, Z: 2}, DefaultConfig())
	got := s.WrapPosition(geometry.Vector3D{X: 3, Y: 1, Z: 1})
	if want := (geometry.Vector3D{X: -1.5, Y: 1, Z: 1}); !got.Eq(want) {
		t.Errorf("WrapPosition = %v; want %v", got, want)
	}
}

func TestFieldBounds_Validate(t *testing.T) {
	tests := []struct {
		name    string
		b       FieldBounds
		wantErr bool
	}{
		{"default", DefaultBounds(), false},
		{"tiny x", FieldBounds{X: 0.5, Y: 1, Z: 1}, true},
		{"negative y", FieldBounds{X: 1, Y: -1, Z: 1}, true},
		{"NaN z", FieldBounds{X: 1, Y: 1, Z: nan()}, true},
		{"infinite x", FieldBounds{X: math.Inf(1), Y: 1, Z: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.b.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v; wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRandomAgents_InsideFieldWithUnitVelocities(t *testing.T) {
	b := DefaultBounds()
	agents := RandomAgents(NewSeededRand(5), 500, b)
	if len(agents) != 500 {
		t.Fatalf("len = %d; want 500", len(agents))
	}
	for i, a := range agents {
		if a.ID != i {
			t.Errorf("agent %d has ID %d", i, a.ID)
		}
		if !b.Contains(a.Position) {
			t.Errorf("agent %d spawned outside: %v", i, a.Position)
		}
		v := a.Velocity
		if math.Abs(v.X) > 1 || math.Abs(v.Y) > 1 || math.Abs(v.Z) > 1 {
			t.Errorf("agent %d velocity out of [-1,1]: %v", i, v)
		}
	}
}

func TestRandomAgents_SeedIsReproducible(t *testing.T) {
	a := RandomAgents(NewSeededRand(9), 10, DefaultBounds())
	b := RandomAgents(NewSeededRand(9), 10, DefaultBounds())
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("agent %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestComputeStats(t *testing.T) {
	if st := ComputeStats(nil); st != (Stats{}) {
		t.Errorf("ComputeStats(nil) = %+v; want zero", st)
	}

	agents := []Agent{
		{Position: geometry.Vector3D{X: 2}, Velocity: geometry.Vector3D{X: 3, Y: 4}},
		{Position: geometry.Vector3D{Y: 2, Z: 4}, Velocity: geometry.Vector3D{}},
	}
	st := ComputeStats(agents)
	if st.Agents != 2 {
		t.Errorf("Agents = %d; want 2", st.Agents)
	}
	if want := (geometry.Vector3D{X: 1, Y: 1, Z: 2}); !st.Centroid.Eq(want) {
		t.Errorf("Centroid = %v; want %v", st.Centroid, want)
	}
	if !floatEq(st.MeanSpeed, 2.5) {
		t.Errorf("MeanSpeed = %v; want 2.5", st.MeanSpeed)
	}
	if !floatEq(st.MaxSpeed, 5) {
		t.Errorf("MaxSpeed = %v; want 5", st.MaxSpeed)
	}
}
