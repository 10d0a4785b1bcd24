package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Weynie/van-construction-web-sub000/pkg/api"
	"github.com/Weynie/van-construction-web-sub000/pkg/events"
	"github.com/Weynie/van-construction-web-sub000/pkg/log"
	"github.com/Weynie/van-construction-web-sub000/pkg/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local bridge for a UI process",
	Long: `Load the workspace and serve it to a local UI process.

The bridge exposes /workspace and per-entity JSON views, streams every
engine event on the /events websocket, and reports /health, /ready and
/metrics. Backend health is checked periodically.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			a.cfg.Bridge.Addr = addr
		}
		metrics.SetVersion(Version)

		eng := a.engine
		stopLog := eng.Events().Listen(logNotification)
		defer stopLog()

		if _, err := eng.Load(cmd.Context()); err != nil {
			// Serve anyway; /ready reports the engine as not ready
			log.Logger.Error().Err(err).Msg("Initial workspace load failed")
		}

		collector := metrics.NewCollector(eng, a.cfg.Bridge.MetricsInterval)
		collector.Start()
		defer collector.Stop()

		eng.StartHealthLoop(a.cfg.Backend.HealthInterval)

		server := api.NewServer(eng, Version,
			api.WithRateLimit(a.cfg.Bridge.RateLimit, a.cfg.Bridge.RateBurst),
			api.WithAllowedNetworks(a.cfg.Bridge.AllowedNetworks),
		)
		errCh := make(chan error, 1)
		go func() {
			if err := server.Start(a.cfg.Bridge.Addr); err != nil {
				errCh <- fmt.Errorf("bridge error: %w", err)
			}
		}()

		fmt.Printf("✓ Bridge listening on %s (backend: %s)\n", a.cfg.Bridge.Addr, a.cfg.Backend.Mode)
		fmt.Println("Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		var runErr error
		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case runErr = <-errCh:
			fmt.Fprintf(os.Stderr, "\nError: %v\n", runErr)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Logger.Warn().Err(err).Msg("Bridge shutdown incomplete")
		}

		fmt.Println("✓ Shutdown complete")
		return runErr
	},
}

// logNotification mirrors user-facing notifications into the log
func logNotification(event *events.Event) {
	if event.Type != events.EventNotification {
		return
	}
	logger := log.WithComponent("notify")
	switch event.Level {
	case events.LevelError:
		logger.Error().Msg(event.Message)
	case events.LevelWarning:
		logger.Warn().Msg(event.Message)
	default:
		logger.Info().Msg(event.Message)
	}
}

func init() {
	serveCmd.Flags().String("addr", "", "Bridge listen address (overrides bridge.addr)")
}
