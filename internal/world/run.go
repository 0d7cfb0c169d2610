package world

import (
	"context"
	"fmt"

	"github.com/lao-tseu-is-alive/go-flock3d/pkg/flock"
	"github.com/tochemey/goakt/v3/actor"
)

// Run spawns a world actor named name on system and drives it for steps
// ticks in lockstep: each tick is sent only once the previous snapshot was
// received. onSnapshot, when set, sees every snapshot. The actor is shut down
// before Run returns the last snapshot.
func Run(ctx context.Context, system actor.ActorSystem, name string, sim *flock.Simulator, steps int,
	onSnapshot func(*Snapshot), opts ...Option) (*Snapshot, error) {
	snapshotCh := make(chan *Snapshot, 1)
	pid, err := system.Spawn(ctx, name, NewWorldActor(sim, snapshotCh, opts...))
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", name, err)
	}
	defer func() { _ = pid.Shutdown(context.WithoutCancel(ctx)) }()

	var last *Snapshot
	for i := 0; i < steps; i++ {
		if err := actor.Tell(ctx, pid, Tick(1)); err != nil {
			return last, fmt.Errorf("tick %d: %w", i+1, err)
		}
		select {
		case snap := <-snapshotCh:
			last = snap
		case <-ctx.Done():
			return last, ctx.Err()
		}
		if onSnapshot != nil {
			onSnapshot(last)
		}
		if last.Err != nil {
			return last, fmt.Errorf("record tick %d: %w", last.Tick, last.Err)
		}
	}
	if last == nil {
		if err := actor.Tell(ctx, pid, Tick(0)); err != nil {
			return nil, err
		}
		select {
		case last = <-snapshotCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return last, nil
}
