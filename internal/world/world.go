// Package world hosts a flock simulator inside a goakt actor. The actor owns
// the simulator: ticks and rule changes arrive as messages and every advance
// is published as a Snapshot on a channel.
package world

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lao-tseu-is-alive/go-flock3d/internal/metrics"
	"github.com/lao-tseu-is-alive/go-flock3d/pkg/flock"
	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/goaktpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// FrameSink receives the flock after every step, typically a recorder.Writer.
type FrameSink interface {
	WriteFrame(tick uint64, agents []flock.Agent) error
}

// Snapshot is the state published after a tick message was handled.
type Snapshot struct {
	Tick   uint64
	Agents []flock.Agent
	Stats  flock.Stats
	Config flock.Config
	// Err is the first sink error seen; recording stops after it.
	Err error
}

// Option configures a WorldActor.
type Option func(*WorldActor)

// WithSink records every step to sink.
func WithSink(sink FrameSink) Option {
	return func(w *WorldActor) { w.sink = sink }
}

// WithMetrics reports step timings and flock stats to c.
func WithMetrics(c *metrics.FlockCollector) Option {
	return func(w *WorldActor) { w.metrics = c }
}

// WorldActor advances the simulator on Tick messages.
type WorldActor struct {
	sim        *flock.Simulator
	snapshotCh chan<- *Snapshot
	sink       FrameSink
	sinkErr    error
	metrics    *metrics.FlockCollector

	stepsSinceLog int
	lastLogTime   time.Time
}

// NewWorldActor wraps sim. The caller must not touch sim while the actor runs.
func NewWorldActor(sim *flock.Simulator, snapshotCh chan<- *Snapshot, opts ...Option) *WorldActor {
	w := &WorldActor{
		sim:         sim,
		snapshotCh:  snapshotCh,
		lastLogTime: time.Now(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Tick asks the world to advance n steps. Zero only republishes the current state.
func Tick(n uint32) *wrapperspb.UInt32Value {
	return wrapperspb.UInt32(n)
}

// UpdateRules encodes cfg as a rule update message.
func UpdateRules(cfg flock.Config) (*structpb.Struct, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}
	return structpb.NewStruct(fields)
}

// SendRules tells the world at pid to switch to cfg.
func SendRules(ctx context.Context, pid *actor.PID, cfg flock.Config) error {
	msg, err := UpdateRules(cfg)
	if err != nil {
		return err
	}
	if err := actor.Tell(ctx, pid, msg); err != nil {
		return fmt.Errorf("send rules: %w", err)
	}
	return nil
}

// ApplyRules overlays the keys present in msg on base. Absent keys keep their
// value from base, so a message may carry a single rule.
func ApplyRules(base flock.Config, msg *structpb.Struct) (flock.Config, error) {
	data, err := json.Marshal(msg.AsMap())
	if err != nil {
		return base, fmt.Errorf("decode rules: %w", err)
	}
	cfg := base
	if err := json.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("decode rules: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}

func (w *WorldActor) PreStart(ctx *actor.Context) error {
	if w.sim == nil {
		return fmt.Errorf("world actor started without a simulator")
	}
	return nil
}

func (w *WorldActor) Receive(ctx *actor.ReceiveContext) {
	switch msg := ctx.Message().(type) {
	case *goaktpb.PostStart:
		b := w.sim.Bounds()
		ctx.Logger().Infof("world started: %d agents in %.1fx%.1fx%.1f, mode %s",
			w.sim.Len(), b.X, b.Y, b.Z, w.sim.Config().Mode)

	case *wrapperspb.UInt32Value:
		w.advance(ctx, int(msg.GetValue()))

	case *structpb.Struct:
		cfg, err := ApplyRules(w.sim.Config(), msg)
		if err != nil {
			ctx.Logger().Warnf("rule update rejected: %v", err)
			return
		}
		if err := w.sim.SetConfig(cfg); err != nil {
			ctx.Logger().Warnf("rule update rejected: %v", err)
			return
		}
		ctx.Logger().Debugf("rules updated at tick %d", w.sim.Tick())

	default:
		ctx.Unhandled()
	}
}

func (w *WorldActor) PostStop(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Infof("world stopped at tick %d", w.sim.Tick())
	return nil
}

func (w *WorldActor) advance(ctx *actor.ReceiveContext, n int) {
	for range n {
		start := time.Now()
		w.sim.Step()
		elapsed := time.Since(start)

		if w.metrics != nil {
			w.metrics.ObserveStep(elapsed, w.sim.Stats())
		}
		if w.sink != nil && w.sinkErr == nil {
			if err := w.sink.WriteFrame(w.sim.Tick(), w.sim.Agents()); err != nil {
				w.sinkErr = err
				ctx.Logger().Errorf("recording stopped at tick %d: %v", w.sim.Tick(), err)
			}
		}
		w.stepsSinceLog++
	}
	w.logRate(ctx)
	w.pushSnapshot()
}

func (w *WorldActor) logRate(ctx *actor.ReceiveContext) {
	if since := time.Since(w.lastLogTime); since >= time.Second {
		ctx.Logger().Infof("tick %d: %.0f steps/sec", w.sim.Tick(), float64(w.stepsSinceLog)/since.Seconds())
		w.stepsSinceLog = 0
		w.lastLogTime = time.Now()
	}
}

func (w *WorldActor) pushSnapshot() {
	if w.snapshotCh == nil {
		return
	}
	snap := &Snapshot{
		Tick:   w.sim.Tick(),
		Agents: w.sim.Agents(),
		Stats:  w.sim.Stats(),
		Config: w.sim.Config(),
		Err:    w.sinkErr,
	}
	select {
	case w.snapshotCh <- snap:
	default:
		// consumer busy, skip frame
	}
}
