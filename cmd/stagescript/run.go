package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/deckwise/stagescript/internal/host"
	"github.com/deckwise/stagescript/internal/scripting"
	"github.com/deckwise/stagescript/internal/sim"
)

var (
	flagTicks    int
	flagRealtime bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load behavior scripts, instantiate the scene and run the simulation",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := scripting.NewRuntime(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = rt.Close() }()

		engine, err := scripting.NewEngine(rt, logger)
		if err != nil {
			return err
		}
		if err := loadScripts(engine, logger, cfg.ScriptDirs); err != nil {
			return err
		}

		h := host.New(engine, sim.NewStage(), logger, host.Options{
			DefaultActionDuration: cfg.DefaultActionDuration,
			DefaultPulseInterval:  cfg.DefaultPulseInterval,
		})

		for _, sa := range cfg.Scene {
			actor := h.CreateActor(sa.Name)
			actor.OnStage = !sa.OffStage
			for _, sb := range sa.Behaviors {
				if _, err := h.AttachBehavior(actor, sb.Name, sb.Values); err != nil {
					return fmt.Errorf("scene actor %q: %w", sa.Name, err)
				}
			}
		}
		h.Load()

		dt := 1 / cfg.TickRate
		logger.Info("running simulation",
			"actors", h.Stage().Len(), "ticks", flagTicks, "tickRate", cfg.TickRate)

		ticker := time.NewTicker(time.Duration(float64(time.Second) * dt))
		defer ticker.Stop()
		for i := 0; i < flagTicks; i++ {
			if flagRealtime {
				select {
				case <-ctx.Done():
					logger.Info("interrupted", "tick", i)
					return nil
				case <-ticker.C:
				}
			} else if ctx.Err() != nil {
				logger.Info("interrupted", "tick", i)
				return nil
			}
			h.Tick(dt)
		}

		logger.Info("simulation finished", "simTime", h.Now())
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&flagTicks, "ticks", 600, "number of simulation ticks to run")
	runCmd.Flags().BoolVar(&flagRealtime, "realtime", false, "pace ticks against wall-clock time")
}
