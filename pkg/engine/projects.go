package engine

import (
	"context"
	"errors"
	"time"

	"github.com/Weynie/van-construction-web-sub000/pkg/events"
	"github.com/Weynie/van-construction-web-sub000/pkg/gateway"
	"github.com/Weynie/van-construction-web-sub000/pkg/metrics"
	"github.com/Weynie/van-construction-web-sub000/pkg/reconciler"
	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

// CreateProject adds a project under a temporary id and commits it. The
// returned project carries the server id on success.
func (e *Engine) CreateProject(ctx context.Context, name string) (*types.Project, error) {
	name, err := cleanName("create project", "project", name)
	if err != nil {
		return nil, err
	}

	tempID := e.store.IDs.GenerateTempID()
	e.store.IDs.BeginCreate(tempID)
	optimistic := &types.Project{
		ID:        tempID,
		Name:      name,
		Pages:     []*types.Page{},
		CreatedAt: time.Now(),
	}
	e.tree.InsertProject(optimistic, -1)
	optimistic, _ = e.tree.Project(tempID)

	e.publish(&events.Event{
		Type:    events.EventProjectCreatedOptimistic,
		TempID:  tempID,
		Project: optimistic,
	})

	var created *types.Project
	err = e.commit(ctx, "project", func(ctx context.Context) error {
		var err error
		created, err = e.gw.CreateProject(ctx, name)
		return err
	})
	if err != nil {
		e.tree.RemoveProject(tempID)
		e.store.IDs.FailCreate(tempID)
		e.rollback("project", "create", &events.Event{
			Type:   events.EventProjectCreateFailed,
			TempID: tempID,
		}, err)
		return nil, err
	}

	e.tree.RenameID(tempID, created.ID)
	e.tree.UpdateProject(created.ID, func(p *types.Project) {
		p.Name = created.Name
		p.IsExpanded = created.IsExpanded
		p.CreatedAt = created.CreatedAt
		p.UpdatedAt = created.UpdatedAt
	})
	if err := e.store.IDs.MapTempID(tempID, created.ID); err != nil {
		e.logger.Error().Err(err).Str("temp_id", tempID).Msg("Failed to record id mapping")
	}

	project, ok := e.tree.Project(created.ID)
	if !ok {
		// Deleted locally while the create was in flight
		project = created
	}
	e.confirmed("project", "create")
	e.logger.Info().Str("temp_id", tempID).Str("project_id", created.ID).Msg("Project created")
	e.publish(&events.Event{
		Type:     events.EventProjectCreated,
		TempID:   tempID,
		EntityID: created.ID,
		Project:  project,
	})
	return project, nil
}

// UpdateProject applies patch locally and commits it
func (e *Engine) UpdateProject(ctx context.Context, id string, patch types.ProjectPatch) (*types.Project, error) {
	if patch.IsEmpty() {
		return nil, invalid("update project", "empty patch", nil)
	}
	if patch.Name != nil {
		name, err := cleanName("update project", "project", *patch.Name)
		if err != nil {
			return nil, err
		}
		patch.Name = &name
	}

	lid := e.localID(id)
	previous, ok := e.tree.ApplyProjectPatch(lid, patch)
	if !ok {
		return nil, notInTree("update project", "project", id)
	}
	current, _ := e.tree.Project(lid)

	e.publish(&events.Event{
		Type:            events.EventProjectUpdatedOptimistic,
		EntityID:        lid,
		Project:         current,
		PreviousProject: previous,
		Patch:           patch,
	})

	var updated *types.Project
	err := e.commit(ctx, "project", func(ctx context.Context) error {
		realID, err := e.resolve(ctx, id)
		if err != nil {
			return err
		}
		updated, err = e.gw.UpdateProject(ctx, realID, patch)
		return err
	})

	lid = e.localID(id)
	if err != nil {
		e.tree.ApplyProjectPatch(lid, revertProjectPatch(patch, previous))
		e.rollback("project", "update", &events.Event{
			Type:            events.EventProjectUpdateFailed,
			EntityID:        lid,
			PreviousProject: previous,
		}, err)
		return nil, err
	}

	e.tree.UpdateProject(lid, func(p *types.Project) {
		p.Name = updated.Name
		p.IsExpanded = updated.IsExpanded
		p.UpdatedAt = updated.UpdatedAt
	})
	current, _ = e.tree.Project(lid)
	e.confirmed("project", "update")
	e.publish(&events.Event{
		Type:     events.EventProjectUpdated,
		EntityID: lid,
		Project:  current,
	})
	return current, nil
}

func revertProjectPatch(patch types.ProjectPatch, previous *types.Project) types.ProjectPatch {
	var out types.ProjectPatch
	if patch.Name != nil {
		out.Name = types.StringPtr(previous.Name)
	}
	if patch.IsExpanded != nil {
		out.IsExpanded = types.BoolPtr(previous.IsExpanded)
	}
	return out
}

// DeleteProject removes a project and everything under it. A delete for
// the same project issued while one is in flight is dropped.
func (e *Engine) DeleteProject(ctx context.Context, id string) error {
	lid := e.localID(id)
	keys := e.deleteKeys(id)
	if !e.store.Pending.TryAcquireAll(keys...) {
		e.suppressDelete("project", lid)
		return nil
	}
	defer e.store.Pending.Release(keys...)

	removed, index, _ := e.tree.RemoveProject(lid)
	if removed != nil {
		e.dropWriters(projectTabIDs(removed)...)
	}
	e.publish(&events.Event{
		Type:            events.EventProjectDeletedOptimistic,
		EntityID:        lid,
		PreviousProject: removed,
		PreviousIndex:   index,
	})

	err := e.commit(ctx, "project", func(ctx context.Context) error {
		realID, err := e.resolveForDelete(ctx, id)
		if err != nil || realID == "" {
			return err
		}
		return ignoreNotFound(e.gw.DeleteProject(ctx, realID))
	})
	if err != nil {
		if removed != nil {
			e.tree.InsertProject(removed, index)
		}
		e.rollback("project", "delete", &events.Event{
			Type:            events.EventProjectDeleteFailed,
			EntityID:        lid,
			PreviousProject: removed,
			PreviousIndex:   index,
		}, err)
		return err
	}

	e.confirmed("project", "delete")
	e.logger.Info().Str("project_id", lid).Msg("Project deleted")
	e.publish(&events.Event{Type: events.EventProjectDeleted, EntityID: e.localID(id)})
	return nil
}

// resolveForDelete returns "" without error when the entity was never
// created on the server
func (e *Engine) resolveForDelete(ctx context.Context, id string) (string, error) {
	realID, err := e.resolve(ctx, id)
	if err != nil {
		if errors.Is(err, reconciler.ErrCreateFailed) {
			return "", nil
		}
		return "", err
	}
	return realID, nil
}

func ignoreNotFound(err error) error {
	if gateway.IsNotFound(err) {
		return nil
	}
	return err
}

// deleteKeys guards every alias of id, so a delete issued through a temp id
// and a later one through its mapped real id suppress each other
func (e *Engine) deleteKeys(id string) []string {
	aliases := e.store.IDs.Aliases(id)
	keys := make([]string, len(aliases))
	for i, alias := range aliases {
		keys[i] = reconciler.DeleteKey(alias)
	}
	return keys
}

func (e *Engine) suppressDelete(entity, id string) {
	metrics.DeletesSuppressedTotal.Inc()
	metrics.MutationsTotal.WithLabelValues(entity, "delete", "suppressed").Inc()
	e.logger.Warn().
		Str("entity", entity).
		Str("entity_id", id).
		Msg("Delete already in progress, ignoring duplicate request")
}

func projectTabIDs(p *types.Project) []string {
	var ids []string
	for _, page := range p.Pages {
		ids = append(ids, pageTabIDs(page)...)
	}
	return ids
}

func pageTabIDs(page *types.Page) []string {
	ids := make([]string, 0, len(page.Tabs))
	for _, tab := range page.Tabs {
		ids = append(ids, tab.ID)
	}
	return ids
}
