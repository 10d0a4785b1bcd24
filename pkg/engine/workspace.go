package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Weynie/van-construction-web-sub000/pkg/events"
	"github.com/Weynie/van-construction-web-sub000/pkg/gateway"
	"github.com/Weynie/van-construction-web-sub000/pkg/metrics"
	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

// loadConcurrency bounds parallel tab content fetches during Load
const loadConcurrency = 8

// Load fetches the whole workspace, merges every tab's content with its
// template and replaces the local tree
func (e *Engine) Load(ctx context.Context) (*types.Workspace, error) {
	e.publish(&events.Event{Type: events.EventLoadingWorkspace})

	var ws *types.Workspace
	err := e.commit(ctx, "workspace", func(ctx context.Context) error {
		var err error
		ws, err = e.gw.GetWorkspace(ctx)
		if err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(loadConcurrency)
		for _, project := range ws.Projects {
			if project.Pages == nil {
				project.Pages = []*types.Page{}
			}
			for _, page := range project.Pages {
				if page.Tabs == nil {
					page.Tabs = []*types.Tab{}
				}
				for _, tab := range page.Tabs {
					if canonical, err := e.registry.Resolve(tab.Kind); err == nil {
						tab.Kind = canonical
					}
					g.Go(func() error {
						e.loadTabContent(gctx, tab)
						return gctx.Err()
					})
				}
			}
		}
		return g.Wait()
	})
	if err != nil {
		metrics.UpdateComponent(metrics.ComponentEngine, false, "workspace load failed")
		e.logger.Error().Err(err).Msg("Failed to load workspace")
		e.publish(&events.Event{Type: events.EventWorkspaceError, Error: err.Error()})
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}

	e.tree.Replace(ws)
	snapshot := e.tree.Snapshot()
	projects, pages, tabs := e.tree.Counts()
	metrics.UpdateComponent(metrics.ComponentEngine, true, "")
	e.logger.Info().Int("projects", projects).Int("pages", pages).Int("tabs", tabs).Msg("Workspace loaded")
	e.publish(&events.Event{Type: events.EventWorkspaceLoaded, Workspace: snapshot})
	return snapshot, nil
}

// Initialize asks the backend to seed a new user's workspace, then loads it
func (e *Engine) Initialize(ctx context.Context) (*types.Workspace, error) {
	err := e.commit(ctx, "workspace", e.gw.InitializeWorkspace)
	if err != nil {
		e.publish(&events.Event{Type: events.EventWorkspaceError, Error: err.Error()})
		return nil, fmt.Errorf("failed to initialize workspace: %w", err)
	}
	return e.Load(ctx)
}

// passwordSetter is implemented by credentials that accept a new secret
type passwordSetter interface {
	Set(secret string)
}

// Unlock validates password against the backend, stores it in the session
// credentials and reloads every tab that was waiting for it
func (e *Engine) Unlock(ctx context.Context, password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	setter, ok := e.creds.(passwordSetter)
	if !ok {
		return invalid("unlock", "credentials are read-only", nil)
	}

	var valid bool
	err := e.commit(ctx, "workspace", func(ctx context.Context) error {
		var err error
		valid, err = e.gw.ValidatePassword(ctx, password)
		return err
	})
	if err != nil {
		return err
	}
	if !valid {
		return gateway.ErrInvalidPassword
	}
	setter.Set(password)

	for _, tab := range e.tree.Tabs() {
		if !tab.NeedsPassword {
			continue
		}
		if _, err := e.ReloadTabData(ctx, tab.ID); err != nil {
			e.logger.Warn().Err(err).Str("tab_id", tab.ID).Msg("Failed to reload tab after unlock")
		}
	}
	e.Notify(events.LevelSuccess, "Encrypted content unlocked")
	return nil
}
