package engine

import (
	"context"
	"time"

	"github.com/Weynie/van-construction-web-sub000/pkg/events"
	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

// CreatePage appends a page to a project under a temporary id and commits it
func (e *Engine) CreatePage(ctx context.Context, projectID, name string) (*types.Page, error) {
	name, err := cleanName("create page", "page", name)
	if err != nil {
		return nil, err
	}
	parent := e.localID(projectID)
	if _, ok := e.tree.Project(parent); !ok {
		return nil, notInTree("create page", "project", projectID)
	}

	tempID := e.store.IDs.GenerateTempID()
	e.store.IDs.BeginCreate(tempID)
	optimistic := &types.Page{
		ID:        tempID,
		ProjectID: parent,
		Name:      name,
		Tabs:      []*types.Tab{},
		CreatedAt: time.Now(),
	}
	if err := e.tree.InsertPage(optimistic, -1); err != nil {
		e.store.IDs.FailCreate(tempID)
		return nil, invalid("create page", "project "+projectID, err)
	}
	optimistic, _ = e.tree.Page(tempID)

	e.publish(&events.Event{
		Type:     events.EventPageCreatedOptimistic,
		TempID:   tempID,
		ParentID: parent,
		Page:     optimistic,
	})

	var created *types.Page
	err = e.commit(ctx, "page", func(ctx context.Context) error {
		realParent, err := e.resolve(ctx, projectID)
		if err != nil {
			return err
		}
		created, err = e.gw.CreatePage(ctx, realParent, name)
		return err
	})
	if err != nil {
		e.tree.RemovePage(tempID)
		e.store.IDs.FailCreate(tempID)
		e.rollback("page", "create", &events.Event{
			Type:     events.EventPageCreateFailed,
			TempID:   tempID,
			ParentID: e.localID(projectID),
		}, err)
		return nil, err
	}

	e.tree.RenameID(tempID, created.ID)
	e.tree.UpdatePage(created.ID, func(p *types.Page) {
		p.Name = created.Name
		p.CreatedAt = created.CreatedAt
		p.UpdatedAt = created.UpdatedAt
	})
	if err := e.store.IDs.MapTempID(tempID, created.ID); err != nil {
		e.logger.Error().Err(err).Str("temp_id", tempID).Msg("Failed to record id mapping")
	}

	page, ok := e.tree.Page(created.ID)
	if !ok {
		page = created
	}
	e.confirmed("page", "create")
	e.logger.Info().Str("temp_id", tempID).Str("page_id", created.ID).Msg("Page created")
	e.publish(&events.Event{
		Type:     events.EventPageCreated,
		TempID:   tempID,
		EntityID: created.ID,
		ParentID: page.ProjectID,
		Page:     page,
	})
	return page, nil
}

// UpdatePage applies patch locally and commits it
func (e *Engine) UpdatePage(ctx context.Context, id string, patch types.PagePatch) (*types.Page, error) {
	if patch.IsEmpty() {
		return nil, invalid("update page", "empty patch", nil)
	}
	name, err := cleanName("update page", "page", *patch.Name)
	if err != nil {
		return nil, err
	}
	patch.Name = &name

	lid := e.localID(id)
	previous, ok := e.tree.ApplyPagePatch(lid, patch)
	if !ok {
		return nil, notInTree("update page", "page", id)
	}
	current, _ := e.tree.Page(lid)

	e.publish(&events.Event{
		Type:         events.EventPageUpdatedOptimistic,
		EntityID:     lid,
		Page:         current,
		PreviousPage: previous,
		Patch:        patch,
	})

	var updated *types.Page
	err = e.commit(ctx, "page", func(ctx context.Context) error {
		realID, err := e.resolve(ctx, id)
		if err != nil {
			return err
		}
		updated, err = e.gw.UpdatePage(ctx, realID, patch)
		return err
	})

	lid = e.localID(id)
	if err != nil {
		e.tree.ApplyPagePatch(lid, types.PagePatch{Name: types.StringPtr(previous.Name)})
		e.rollback("page", "update", &events.Event{
			Type:         events.EventPageUpdateFailed,
			EntityID:     lid,
			PreviousPage: previous,
		}, err)
		return nil, err
	}

	e.tree.UpdatePage(lid, func(p *types.Page) {
		p.Name = updated.Name
		p.UpdatedAt = updated.UpdatedAt
	})
	current, _ = e.tree.Page(lid)
	e.confirmed("page", "update")
	e.publish(&events.Event{
		Type:     events.EventPageUpdated,
		EntityID: lid,
		Page:     current,
	})
	return current, nil
}

// DeletePage removes a page and its tabs
func (e *Engine) DeletePage(ctx context.Context, id string) error {
	lid := e.localID(id)
	keys := e.deleteKeys(id)
	if !e.store.Pending.TryAcquireAll(keys...) {
		e.suppressDelete("page", lid)
		return nil
	}
	defer e.store.Pending.Release(keys...)

	removed, index, _ := e.tree.RemovePage(lid)
	parent := ""
	if removed != nil {
		parent = removed.ProjectID
		e.dropWriters(pageTabIDs(removed)...)
	}
	e.publish(&events.Event{
		Type:          events.EventPageDeletedOptimistic,
		EntityID:      lid,
		ParentID:      parent,
		PreviousPage:  removed,
		PreviousIndex: index,
	})

	err := e.commit(ctx, "page", func(ctx context.Context) error {
		realID, err := e.resolveForDelete(ctx, id)
		if err != nil || realID == "" {
			return err
		}
		return ignoreNotFound(e.gw.DeletePage(ctx, realID))
	})
	if err != nil {
		if removed != nil {
			removed.ProjectID = e.localID(removed.ProjectID)
			if insertErr := e.tree.InsertPage(removed, index); insertErr != nil {
				e.logger.Warn().Err(insertErr).Str("page_id", lid).Msg("Could not restore deleted page")
			}
		}
		e.rollback("page", "delete", &events.Event{
			Type:          events.EventPageDeleteFailed,
			EntityID:      lid,
			ParentID:      e.localID(parent),
			PreviousPage:  removed,
			PreviousIndex: index,
		}, err)
		return err
	}

	e.confirmed("page", "delete")
	e.logger.Info().Str("page_id", lid).Msg("Page deleted")
	e.publish(&events.Event{
		Type:     events.EventPageDeleted,
		EntityID: e.localID(id),
		ParentID: e.localID(parent),
	})
	return nil
}

// MovePage transfers a page to the end of another project
func (e *Engine) MovePage(ctx context.Context, id, newProjectID string) error {
	lid := e.localID(id)
	target := e.localID(newProjectID)
	source, index, err := e.tree.MovePage(lid, target)
	if err != nil {
		return invalid("move page", "page "+id, err)
	}
	if source == target {
		return nil
	}

	page, _ := e.tree.Page(lid)
	e.publish(&events.Event{
		Type:           events.EventPageMovedOptimistic,
		EntityID:       lid,
		ParentID:       target,
		PreviousParent: source,
		PreviousIndex:  index,
		Page:           page,
	})

	err = e.commit(ctx, "page", func(ctx context.Context) error {
		realID, err := e.resolve(ctx, id)
		if err != nil {
			return err
		}
		realTarget, err := e.resolve(ctx, newProjectID)
		if err != nil {
			return err
		}
		return e.gw.MovePage(ctx, realID, realTarget)
	})
	if err != nil {
		if restoreErr := e.tree.RestorePage(e.localID(id), e.localID(source), index); restoreErr != nil {
			e.logger.Warn().Err(restoreErr).Str("page_id", lid).Msg("Could not restore moved page")
		}
		e.rollback("page", "move", &events.Event{
			Type:           events.EventPageMoveFailed,
			EntityID:       e.localID(id),
			ParentID:       e.localID(newProjectID),
			PreviousParent: e.localID(source),
			PreviousIndex:  index,
		}, err)
		return err
	}

	e.confirmed("page", "move")
	e.publish(&events.Event{
		Type:           events.EventPageMoved,
		EntityID:       e.localID(id),
		ParentID:       e.localID(newProjectID),
		PreviousParent: e.localID(source),
	})
	return nil
}
