package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/lao-tseu-is-alive/go-flock3d/internal/config"
	"github.com/spf13/cobra"
	"github.com/tochemey/goakt/v3/actor"
	golog "github.com/tochemey/goakt/v3/log"
)

const (
	screenWidth  = 1100
	screenHeight = 700
)

func main() {
	var (
		configFile string
		boids      int
		verbose    bool
	)
	cmd := &cobra.Command{
		Use:           "flockview",
		Short:         "Watch a 3D boids flock",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultConfig()
			if configFile != "" {
				var err error
				if cfg, err = config.Load(configFile); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("boids") {
				cfg.BoidAmount = boids
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			var logger golog.Logger = golog.DiscardLogger
			if verbose {
				logger = golog.DefaultLogger
			}
			return runView(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file (.json, .yaml or .toml)")
	cmd.Flags().IntVar(&boids, "boids", 60, "number of agents, overrides the config")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log actor activity to stdout")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "flockview:", err)
		os.Exit(1)
	}
}

func runView(ctx context.Context, cfg *config.Config, logger golog.Logger) error {
	system, err := actor.NewActorSystem("FlockView",
		actor.WithLogger(logger),
		actor.WithActorInitMaxRetries(3))
	if err != nil {
		return err
	}
	if err := system.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = system.Stop(ctx) }()

	game, err := NewGame(ctx, system, cfg)
	if err != nil {
		return err
	}

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Flock 3D")
	return ebiten.RunGame(game)
}
