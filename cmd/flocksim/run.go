package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lao-tseu-is-alive/go-flock3d/internal/config"
	"github.com/lao-tseu-is-alive/go-flock3d/internal/metrics"
	"github.com/lao-tseu-is-alive/go-flock3d/internal/recorder"
	"github.com/lao-tseu-is-alive/go-flock3d/internal/world"
	"github.com/lao-tseu-is-alive/go-flock3d/pkg/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/tochemey/goakt/v3/actor"
	golog "github.com/tochemey/goakt/v3/log"
)

type runOptions struct {
	configFile  string
	schemaFile  string
	steps       int
	seed        uint64
	boids       int
	record      string
	metricsAddr string
	logEvery    int
	verbose     bool
	quiet       bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a flock for a number of steps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runFlock(ctx, cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.configFile, "config", "c", "", "config file (.json, .yaml or .toml); defaults when empty")
	f.StringVar(&opts.schemaFile, "schema", "", "JSON schema to validate the config against instead of the built-in one")
	f.IntVarP(&opts.steps, "steps", "n", -1, "number of steps, overrides the config")
	f.Uint64Var(&opts.seed, "seed", 0, "random seed for the initial flock, overrides the config")
	f.IntVar(&opts.boids, "boids", -1, "number of agents, overrides the config")
	f.StringVarP(&opts.record, "record", "o", "", "write a zstd recording of every step to this file")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	f.IntVar(&opts.logEvery, "log-every", 100, "log flock stats every n steps, 0 disables")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "no logging")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	return cmd
}

func (o *runOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if o.configFile != "" {
		var err error
		if cfg, err = config.LoadConfig(o.configFile, o.schemaFile); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("steps") {
		cfg.Steps = o.steps
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = o.seed
	}
	if cmd.Flags().Changed("boids") {
		cfg.BoidAmount = o.boids
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *runOptions) logger() golog.Logger {
	switch {
	case o.quiet:
		return golog.DiscardLogger
	case o.verbose:
		return golog.New(golog.DebugLevel, os.Stderr)
	default:
		return golog.New(golog.InfoLevel, os.Stderr)
	}
}

func runFlock(ctx context.Context, cmd *cobra.Command, opts *runOptions) error {
	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}

	agents := flock.RandomAgents(flock.NewSeededRand(cfg.Seed), cfg.BoidAmount, cfg.Field)
	sim, err := flock.NewSimulator(agents, cfg.Field, cfg.Rules)
	if err != nil {
		return err
	}

	logger := opts.logger()
	system, err := actor.NewActorSystem("FlockWorld",
		actor.WithLogger(logger),
		actor.WithActorInitMaxRetries(3))
	if err != nil {
		return fmt.Errorf("create actor system: %w", err)
	}
	if err := system.Start(ctx); err != nil {
		return fmt.Errorf("start actor system: %w", err)
	}
	defer func() { _ = system.Stop(context.WithoutCancel(ctx)) }()

	var worldOpts []world.Option

	header := recorder.NewHeader(cfg.Field, cfg.BoidAmount, cfg.Rules)
	if opts.record != "" {
		rec, closeRec, err := openRecording(opts.record, header)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeRec(); err != nil {
				logger.Errorf("close recording %s: %v", opts.record, err)
			}
		}()
		worldOpts = append(worldOpts, world.WithSink(rec))
		logger.Infof("recording run %s to %s", header.RunID, opts.record)
	}

	if opts.metricsAddr != "" {
		collector, err := metrics.NewFlockCollector(prometheus.NewRegistry())
		if err != nil {
			return err
		}
		srv := serveMetrics(opts.metricsAddr, collector, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		worldOpts = append(worldOpts, world.WithMetrics(collector))
	}

	onSnapshot := func(s *world.Snapshot) {
		if opts.logEvery > 0 && s.Tick%uint64(opts.logEvery) == 0 {
			logger.Infof("tick %d: centroid %s mean speed %.3f max speed %.3f",
				s.Tick, s.Stats.Centroid, s.Stats.MeanSpeed, s.Stats.MaxSpeed)
		}
	}

	start := time.Now()
	last, err := world.Run(ctx, system, "world", sim, cfg.Steps, onSnapshot, worldOpts...)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if last == nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), header, last, time.Since(start))
	return nil
}

func openRecording(path string, h recorder.Header) (*recorder.Writer, func() error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create recording: %w", err)
	}
	w, err := recorder.NewWriter(f, h)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	closeFn := func() error {
		return errors.Join(w.Close(), f.Close())
	}
	return w, closeFn, nil
}

func serveMetrics(addr string, c *metrics.FlockCollector, logger golog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server: %v", err)
		}
	}()
	return srv
}

func printSummary(w io.Writer, h recorder.Header, s *world.Snapshot, elapsed time.Duration) {
	fmt.Fprintf(w, "run       %s\n", h.RunID)
	fmt.Fprintf(w, "ticks     %d in %s\n", s.Tick, elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "agents    %d\n", s.Stats.Agents)
	fmt.Fprintf(w, "centroid  %s\n", s.Stats.Centroid)
	fmt.Fprintf(w, "speed     mean %.3f max %.3f\n", s.Stats.MeanSpeed, s.Stats.MaxSpeed)
}
