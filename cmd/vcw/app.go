package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Weynie/van-construction-web-sub000/pkg/config"
	"github.com/Weynie/van-construction-web-sub000/pkg/engine"
	"github.com/Weynie/van-construction-web-sub000/pkg/gateway"
	"github.com/Weynie/van-construction-web-sub000/pkg/log"
	"github.com/Weynie/van-construction-web-sub000/pkg/security"
	"github.com/Weynie/van-construction-web-sub000/pkg/storage"
	"github.com/Weynie/van-construction-web-sub000/pkg/template"
)

// passwordEnv holds the session password. It is read from the environment
// only so it never appears in shell history or process listings.
const passwordEnv = "VCW_PASSWORD"

// app is one CLI session: configuration, gateway and a loaded engine
type app struct {
	cfg      *config.Config
	engine   *engine.Engine
	registry *template.Registry
	closers  []func() error
}

// loadConfig reads the config file and environment, then applies any
// persistent flags the user set explicitly
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	override := func(flag string, dst *string) {
		if cmd.Flags().Changed(flag) {
			*dst, _ = cmd.Flags().GetString(flag)
		}
	}
	override("backend", &cfg.Backend.Mode)
	override("api-url", &cfg.Backend.URL)
	override("token", &cfg.Backend.Token)
	override("data-dir", &cfg.Backend.DataDir)
	override("log-level", &cfg.Log.Level)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openApp builds the gateway and engine from configuration. When load is
// true the workspace is fetched before returning.
func openApp(cmd *cobra.Command, load bool) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log.Init(cfg.LoggerConfig())

	a := &app{cfg: cfg, registry: template.MustNewRegistry()}

	gw, err := a.gateway()
	if err != nil {
		a.close()
		return nil, err
	}

	logger := log.WithComponent("engine")
	a.engine = engine.New(gw, engine.Options{
		Registry:          a.registry,
		Credentials:       security.NewSessionCredentials(os.Getenv(passwordEnv)),
		Logger:            &logger,
		DebounceWindow:    cfg.Sync.DebounceWindow,
		CommitTimeout:     cfg.Sync.CommitTimeout,
		RequireEncryption: cfg.Sync.RequireEncryption,
		HealthRetries:     cfg.Backend.HealthRetries,
	})

	if load {
		if _, err := a.engine.Load(cmd.Context()); err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) gateway() (gateway.Gateway, error) {
	switch a.cfg.Backend.Mode {
	case config.BackendLocal:
		if err := os.MkdirAll(a.cfg.Backend.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err := storage.NewBoltStore(a.cfg.Backend.DataDir)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return gateway.NewLocal(store, a.registry)
	default:
		return gateway.NewHTTPClient(a.cfg.Backend.URL, a.cfg.Backend.Token,
			gateway.WithRetries(a.cfg.Backend.MaxRetries, 100*time.Millisecond, 2*time.Second),
		), nil
	}
}

// close flushes pending tab content and releases the backend
func (a *app) close() {
	if a.engine != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Sync.CommitTimeout)
		if err := a.engine.Close(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save pending changes: %v\n", err)
		}
		cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}
