package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lao-tseu-is-alive/go-flock3d/internal/recorder"
	"github.com/lao-tseu-is-alive/go-flock3d/pkg/flock"
	"github.com/spf13/cobra"
)

func newReplayCmd() *cobra.Command {
	var (
		every   int
		asJSON  bool
		summary bool
	)
	cmd := &cobra.Command{
		Use:   "replay <recording>",
		Short: "Print the frames of a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if every < 1 {
				return fmt.Errorf("--every must be at least 1, got %d", every)
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			r, err := recorder.NewReader(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			defer r.Close()
			return replay(cmd.OutOrStdout(), r, every, asJSON, summary)
		},
	}
	cmd.Flags().IntVar(&every, "every", 1, "print one frame out of n")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print frames as JSON lines")
	cmd.Flags().BoolVar(&summary, "summary", false, "print only the header and frame count")
	return cmd
}

type frameLine struct {
	Tick   uint64        `json:"tick"`
	Stats  flock.Stats   `json:"stats"`
	Agents []flock.Agent `json:"agents"`
}

func replay(w io.Writer, r *recorder.Reader, every int, asJSON, summary bool) error {
	h := r.Header()
	if !asJSON {
		fmt.Fprintf(w, "run %s, %d agents, field %.1fx%.1fx%.1f\n", h.RunID, h.Agents, h.Bounds.X, h.Bounds.Y, h.Bounds.Z)
	}
	enc := json.NewEncoder(w)

	var frames uint64
	for {
		frame, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("after %d frames: %w", frames, err)
		}
		frames++
		if summary || (frames-1)%uint64(every) != 0 {
			continue
		}

		st := flock.ComputeStats(frame.Agents)
		if asJSON {
			if err := enc.Encode(frameLine{Tick: frame.Tick, Stats: st, Agents: frame.Agents}); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(w, "tick %6d  centroid %s  mean speed %.3f  max speed %.3f\n",
			frame.Tick, st.Centroid, st.MeanSpeed, st.MaxSpeed)
	}
	if !asJSON {
		fmt.Fprintf(w, "%d frames\n", frames)
	}
	return nil
}
