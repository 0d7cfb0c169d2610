package flock

import (
	"errors"
	"testing"

	"github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"
)

func TestNewSimulator_RejectsZeroDivisors(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*Config)
		field string
	}{
		{"r1", func(c *Config) { c.R1 = 0 }, "r1"},
		{"r2", func(c *Config) { c.R2 = 0 }, "r2"},
		{"r3", func(c *Config) { c.R3 = 0 }, "r3"},
		{"negative nearDistance", func(c *Config) { c.NearDistance = -1 }, "nearDistance"},
		{"unknown mode", func(c *Config) { c.Mode = "parallel" }, "updateMode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mod(&cfg)

			s, err := NewSimulator(nil, DefaultBounds(), cfg)
			if s != nil {
				t.Errorf("NewSimulator returned a simulator with invalid config")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("err = %v; want ErrInvalidConfig", err)
			}
			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("err = %T; want *ConfigError", err)
			}
			if cerr.Field != tt.field {
				t.Errorf("ConfigError.Field = %q; want %q", cerr.Field, tt.field)
			}
		})
	}
}

func TestNewSimulator_RejectsBadBoundsAndAgents(t *testing.T) {
	if _, err := NewSimulator(nil, FieldBounds{X: 17, Y: 10, Z: 0}, DefaultConfig()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("zero depth: err = %v; want ErrInvalidConfig", err)
	}

	bad := []Agent{{Velocity: geometry.Vector3D{X: 1}}, {Position: geometry.Vector3D{Z: 1}, Velocity: geometry.Vector3D{Y: nan()}}}
	_, err := NewSimulator(bad, DefaultBounds(), DefaultConfig())
	var cerr *ConfigError
	if !errors.As(err, &cerr) || cerr.Field != "agents[1].velocity" {
		t.Errorf("err = %v; want ConfigError on agents[1].velocity", err)
	}
}

func TestNewSimulator_OwnsItsAgents(t *testing.T) {
	agents := []Agent{{ID: 42, Position: geometry.Vector3D{Z: 1}}, {ID: 7, Position: geometry.Vector3D{X: 1, Z: 1}}}
	s := mustSimulator(t, agents, DefaultBounds(), DefaultConfig())

	agents[0].Position.X = 99
	if got := s.Agent(0).Position.X; got != 0 {
		t.Errorf("caller mutation leaked into simulator: x = %v", got)
	}
	for i, a := range s.Agents() {
		if a.ID != i {
			t.Errorf("Agents()[%d].ID = %d; want %d", i, a.ID, i)
		}
	}

	out := s.Agents()
	out[1].Position.X = -99
	if got := s.Agent(1).Position.X; got != 1 {
		t.Errorf("Agents() returned shared storage: x = %v", got)
	}
}

func TestStep_EmptyFlockIsNoop(t *testing.T) {
	s := mustSimulator(t, nil, DefaultBounds(), DefaultConfig())
	s.Step()
	if s.Len() != 0 {
		t.Errorf("Len = %d; want 0", s.Len())
	}
	if s.Tick() != 1 {
		t.Errorf("Tick = %d; want 1", s.Tick())
	}
}

func TestStep_LoneAgentStaysPut(t *testing.T) {
	start := Agent{Position: geometry.Vector3D{X: 3, Y: -2, Z: 1}, Velocity: geometry.Vector3D{X: 0.5, Y: 0.5, Z: 0.5}}
	s := mustSimulator(t, []Agent{start}, DefaultBounds(), DefaultConfig())

	for i := 0; i < 10; i++ {
		s.Step()
	}
	got := s.Agent(0)
	if !got.Velocity.Eq(geometry.Zero) {
		t.Errorf("velocity = %v; want zero", got.Velocity)
	}
	if !got.Position.Eq(start.Position) {
		t.Errorf("position = %v; want %v", got.Position, start.Position)
	}
}

func TestStep_AllRulesOffFreezesFlock(t *testing.T) {
	agents := RandomAgents(NewSeededRand(7), 25, DefaultBounds())
	s := mustSimulator(t, agents, DefaultBounds(), onlyRules(false, false, false))

	for i := 0; i < 5; i++ {
		s.Step()
		for j, a := range s.Agents() {
			if !a.Velocity.Eq(geometry.Zero) {
				t.Fatalf("tick %d agent %d velocity = %v; want zero", i, j, a.Velocity)
			}
			if !a.Position.Eq(agents[j].Position) {
				t.Fatalf("tick %d agent %d moved from %v to %v", i, j, agents[j].Position, a.Position)
			}
		}
	}
}

func TestStep_SequentialReadsEarlierUpdates(t *testing.T) {
	cfg := onlyRules(false, true, false)
	cfg.R2 = 8
	s := mustSimulator(t, []Agent{at(0, 0, 50), at(1, 0, 50)}, wideField, cfg)

	s.Step()

	// agent 0 moves to x=-1 first; agent 1 is then pushed by the moved agent 0.
	if got, want := s.Agent(0).Position, (geometry.Vector3D{X: -1, Z: 50}); !got.Eq(want) {
		t.Errorf("agent 0 position = %v; want %v", got, want)
	}
	if got, want := s.Agent(1).Velocity, (geometry.Vector3D{X: 2}); !got.Eq(want) {
		t.Errorf("agent 1 velocity = %v; want %v", got, want)
	}
	if got, want := s.Agent(1).Position, (geometry.Vector3D{X: 3, Z: 50}); !got.Eq(want) {
		t.Errorf("agent 1 position = %v; want %v", got, want)
	}
}

func TestStep_SnapshotReadsPreviousState(t *testing.T) {
	cfg := onlyRules(false, true, false)
	cfg.R2 = 8
	cfg.Mode = Snapshot
	s := mustSimulator(t, []Agent{at(0, 0, 50), at(1, 0, 50)}, wideField, cfg)

	s.Step()

	if got, want := s.Agent(0).Position, (geometry.Vector3D{X: -1, Z: 50}); !got.Eq(want) {
		t.Errorf("agent 0 position = %v; want %v", got, want)
	}
	if got, want := s.Agent(1).Position, (geometry.Vector3D{X: 2, Z: 50}); !got.Eq(want) {
		t.Errorf("agent 1 position = %v; want %v", got, want)
	}
}

func TestStep_AlignmentSeesPartialVelocity(t *testing.T) {
	agents := []Agent{
		{Position: geometry.Vector3D{Z: 50}},
		{Position: geometry.Vector3D{X: 1, Z: 50}, Velocity: geometry.Vector3D{X: 3}},
	}
	cfg := onlyRules(false, true, true)
	cfg.R2 = 8
	cfg.R3 = 1
	cfg.AlignmentSpeed = 1

	tests := []struct {
		mode UpdateMode
		want geometry.Vector3D
	}{
		// separation (-1,0,0), then alignment (1,0,0) - (-1,0,0)
		{Sequential, geometry.Vector3D{X: 1}},
		// separation (-1,0,0), then alignment (1,0,0) - previous (0,0,0)
		{Snapshot, geometry.Vector3D{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			c := cfg
			c.Mode = tt.mode
			s := mustSimulator(t, agents, wideField, c)
			s.Step()
			if got := s.Agent(0).Velocity; !got.Eq(tt.want) {
				t.Errorf("agent 0 velocity = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestStep_WrapsLeavingAgents(t *testing.T) {
	cfg := onlyRules(false, true, false)
	cfg.R2 = 8
	bounds := FieldBounds{X: 5, Y: 5, Z: 5}
	// agent 0 gets pushed by (-4,0,0) from x=-2 to x=-6, past -5.
	s := mustSimulator(t, []Agent{at(-2, 0, 2), at(2, 0, 2)}, bounds, cfg)

	s.Step()

	if got, want := s.Agent(0).Position.X, bounds.X-WrapOffset; !floatEq(got, want) {
		t.Errorf("agent 0 x = %v; want %v", got, want)
	}
}

func TestStep_StaysFiniteAndInBounds(t *testing.T) {
	for _, mode := range []UpdateMode{Sequential, Snapshot} {
		t.Run(string(mode), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Mode = mode
			bounds := DefaultBounds()
			s := mustSimulator(t, RandomAgents(NewSeededRand(42), 60, bounds), bounds, cfg)

			for i := 0; i < 300; i++ {
				s.Step()
			}
			for j, a := range s.Agents() {
				if !a.Position.IsFinite() || !a.Velocity.IsFinite() {
					t.Fatalf("agent %d not finite: %+v", j, a)
				}
				if !bounds.Contains(a.Position) {
					t.Fatalf("agent %d left the field: %v", j, a.Position)
				}
			}
		})
	}
}

func TestStep_Deterministic(t *testing.T) {
	bounds := DefaultBounds()
	agents := RandomAgents(NewSeededRand(3), 30, bounds)
	a := mustSimulator(t, agents, bounds, DefaultConfig())
	b := mustSimulator(t, agents, bounds, DefaultConfig())

	for i := 0; i < 50; i++ {
		a.Step()
		b.Step()
	}
	for j := range agents {
		if a.Agent(j) != b.Agent(j) {
			t.Fatalf("agent %d diverged: %+v vs %+v", j, a.Agent(j), b.Agent(j))
		}
	}
}

func TestSetConfig_KeepsPreviousOnError(t *testing.T) {
	s := mustSimulator(t, nil, DefaultBounds(), DefaultConfig())
	bad := DefaultConfig()
	bad.R3 = 0

	if err := s.SetConfig(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("SetConfig err = %v; want ErrInvalidConfig", err)
	}
	if s.Config().R3 != DefaultConfig().R3 {
		t.Errorf("R3 = %v; want previous value kept", s.Config().R3)
	}
}

func BenchmarkStep(b *testing.B) {
	bounds := DefaultBounds()
	s, err := NewSimulator(RandomAgents(NewSeededRand(1), 250, bounds), bounds, DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Step()
	}
}
