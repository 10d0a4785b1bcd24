package engine

import (
	"context"
	"time"

	"github.com/Weynie/van-construction-web-sub000/pkg/events"
	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

// CreateTab inserts a tab with its template content and commits it. A nil
// position or one past the end appends. The new tab becomes active.
func (e *Engine) CreateTab(ctx context.Context, pageID, name string, kind types.Kind, position *int) (*types.Tab, error) {
	name, err := cleanName("create tab", "tab", name)
	if err != nil {
		return nil, err
	}
	canonical, err := e.registry.Resolve(kind)
	if err != nil {
		return nil, invalid("create tab", "kind "+string(kind), err)
	}
	parent := e.localID(pageID)
	if _, ok := e.tree.Page(parent); !ok {
		return nil, notInTree("create tab", "page", pageID)
	}
	merged, err := e.registry.Merge(canonical, nil)
	if err != nil {
		return nil, invalid("create tab", "kind "+string(kind), err)
	}

	tempID := e.store.IDs.GenerateTempID()
	e.store.IDs.BeginCreate(tempID)
	optimistic := &types.Tab{
		ID:        tempID,
		PageID:    parent,
		Name:      name,
		Kind:      canonical,
		Delta:     types.Content{},
		Merged:    merged,
		CreatedAt: time.Now(),
	}
	index := -1
	if position != nil {
		index = *position
	}
	if err := e.tree.InsertTab(optimistic, index); err != nil {
		e.store.IDs.FailCreate(tempID)
		return nil, invalid("create tab", "page "+pageID, err)
	}
	previousActive, _ := e.tree.SetActiveTab(tempID)
	optimistic, _ = e.tree.Tab(tempID)

	e.publish(&events.Event{
		Type:           events.EventTabCreatedOptimistic,
		TempID:         tempID,
		ParentID:       parent,
		Tab:            optimistic,
		PreviousActive: previousActive,
	})

	var created *types.Tab
	err = e.commit(ctx, "tab", func(ctx context.Context) error {
		realParent, err := e.resolve(ctx, pageID)
		if err != nil {
			return err
		}
		created, err = e.gw.CreateTab(ctx, realParent, name, canonical, position)
		return err
	})
	if err != nil {
		e.tree.RemoveTab(tempID)
		if previousActive != "" {
			e.tree.SetActiveTab(e.localID(previousActive))
		}
		e.store.IDs.FailCreate(tempID)
		e.rollback("tab", "create", &events.Event{
			Type:           events.EventTabCreateFailed,
			TempID:         tempID,
			ParentID:       e.localID(pageID),
			PreviousActive: e.localID(previousActive),
		}, err)
		return nil, err
	}

	e.tree.RenameID(tempID, created.ID)
	e.tree.UpdateTab(created.ID, func(t *types.Tab) {
		t.Name = created.Name
		t.IsLocked = created.IsLocked
		t.CreatedAt = created.CreatedAt
		t.UpdatedAt = created.UpdatedAt
	})
	e.renameWriter(tempID, created.ID)
	if err := e.store.IDs.MapTempID(tempID, created.ID); err != nil {
		e.logger.Error().Err(err).Str("temp_id", tempID).Msg("Failed to record id mapping")
	}

	tab, ok := e.tree.Tab(created.ID)
	if !ok {
		tab = created
	}
	e.confirmed("tab", "create")
	e.logger.Info().Str("temp_id", tempID).Str("tab_id", created.ID).Msg("Tab created")
	e.publish(&events.Event{
		Type:     events.EventTabCreated,
		TempID:   tempID,
		EntityID: created.ID,
		ParentID: tab.PageID,
		Tab:      tab,
	})
	return tab, nil
}

// UpdateTab applies patch locally and commits it. Changing the kind resets
// the content to the new kind's template.
func (e *Engine) UpdateTab(ctx context.Context, id string, patch types.TabPatch) (*types.Tab, error) {
	if patch.IsEmpty() {
		return nil, invalid("update tab", "empty patch", nil)
	}
	if patch.Name != nil {
		name, err := cleanName("update tab", "tab", *patch.Name)
		if err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	var defaults types.Content
	if patch.Kind != nil {
		canonical, err := e.registry.Resolve(*patch.Kind)
		if err != nil {
			return nil, invalid("update tab", "kind "+string(*patch.Kind), err)
		}
		patch.Kind = &canonical
		defaults, _ = e.registry.Merge(canonical, nil)
	}

	lid := e.localID(id)
	previous, ok := e.tree.ApplyTabPatch(lid, patch)
	if !ok {
		return nil, notInTree("update tab", "tab", id)
	}
	kindChanged := patch.Kind != nil && *patch.Kind != previous.Kind
	if kindChanged {
		e.dropWriters(lid)
		e.tree.SetTabContent(lid, types.Content{}, defaults, false)
	}
	previousActive := ""
	if patch.IsActive != nil && *patch.IsActive {
		previousActive, _ = e.tree.SetActiveTab(lid)
	}
	current, _ := e.tree.Tab(lid)

	e.publish(&events.Event{
		Type:           events.EventTabUpdatedOptimistic,
		EntityID:       lid,
		Tab:            current,
		PreviousTab:    previous,
		PreviousActive: previousActive,
		Patch:          patch,
	})

	var updated *types.Tab
	err := e.commit(ctx, "tab", func(ctx context.Context) error {
		realID, err := e.resolve(ctx, id)
		if err != nil {
			return err
		}
		updated, err = e.gw.UpdateTab(ctx, realID, patch)
		return err
	})

	lid = e.localID(id)
	if err != nil {
		e.tree.ApplyTabPatch(lid, revertTabPatch(patch, previous))
		if kindChanged {
			e.tree.SetTabContent(lid, previous.Delta, previous.Merged, previous.NeedsPassword)
		}
		if previousActive != "" && previousActive != lid {
			e.tree.SetActiveTab(e.localID(previousActive))
		}
		e.rollback("tab", "update", &events.Event{
			Type:           events.EventTabUpdateFailed,
			EntityID:       lid,
			PreviousTab:    previous,
			PreviousActive: e.localID(previousActive),
		}, err)
		return nil, err
	}

	e.tree.UpdateTab(lid, func(t *types.Tab) {
		t.Name = updated.Name
		t.IsLocked = updated.IsLocked
		t.UpdatedAt = updated.UpdatedAt
	})
	current, _ = e.tree.Tab(lid)
	e.confirmed("tab", "update")
	e.publish(&events.Event{
		Type:     events.EventTabUpdated,
		EntityID: lid,
		Tab:      current,
	})
	return current, nil
}

func revertTabPatch(patch types.TabPatch, previous *types.Tab) types.TabPatch {
	var out types.TabPatch
	if patch.Name != nil {
		out.Name = types.StringPtr(previous.Name)
	}
	if patch.Kind != nil {
		out.Kind = types.KindPtr(previous.Kind)
	}
	if patch.IsActive != nil {
		out.IsActive = types.BoolPtr(previous.IsActive)
	}
	if patch.IsLocked != nil {
		out.IsLocked = types.BoolPtr(previous.IsLocked)
	}
	return out
}

// DeleteTab removes a tab. Unsaved debounced content for it is dropped.
func (e *Engine) DeleteTab(ctx context.Context, id string) error {
	lid := e.localID(id)
	keys := e.deleteKeys(id)
	if !e.store.Pending.TryAcquireAll(keys...) {
		e.suppressDelete("tab", lid)
		return nil
	}
	defer e.store.Pending.Release(keys...)

	e.dropWriters(lid)
	removed, index, _ := e.tree.RemoveTab(lid)
	parent := ""
	if removed != nil {
		parent = removed.PageID
	}
	e.publish(&events.Event{
		Type:          events.EventTabDeletedOptimistic,
		EntityID:      lid,
		ParentID:      parent,
		PreviousTab:   removed,
		PreviousIndex: index,
	})

	err := e.commit(ctx, "tab", func(ctx context.Context) error {
		realID, err := e.resolveForDelete(ctx, id)
		if err != nil || realID == "" {
			return err
		}
		return ignoreNotFound(e.gw.DeleteTab(ctx, realID))
	})
	if err != nil {
		if removed != nil {
			removed.PageID = e.localID(removed.PageID)
			if insertErr := e.tree.InsertTab(removed, index); insertErr != nil {
				e.logger.Warn().Err(insertErr).Str("tab_id", lid).Msg("Could not restore deleted tab")
			}
		}
		e.rollback("tab", "delete", &events.Event{
			Type:          events.EventTabDeleteFailed,
			EntityID:      lid,
			ParentID:      e.localID(parent),
			PreviousTab:   removed,
			PreviousIndex: index,
		}, err)
		return err
	}

	e.confirmed("tab", "delete")
	e.logger.Info().Str("tab_id", lid).Msg("Tab deleted")
	e.publish(&events.Event{
		Type:     events.EventTabDeleted,
		EntityID: e.localID(id),
		ParentID: e.localID(parent),
	})
	return nil
}

// ActivateTab makes a tab the only active one on its page. The switch is
// published immediately as TAB_ACTIVATED and undone with
// TAB_ACTIVATE_FAILED if the backend rejects it.
func (e *Engine) ActivateTab(ctx context.Context, id string) error {
	lid := e.localID(id)
	tab, ok := e.tree.Tab(lid)
	if !ok {
		return notInTree("activate tab", "tab", id)
	}
	if tab.IsActive {
		return nil
	}
	previousActive, _ := e.tree.SetActiveTab(lid)

	e.publish(&events.Event{
		Type:           events.EventTabActivated,
		EntityID:       lid,
		ParentID:       tab.PageID,
		PreviousActive: previousActive,
	})

	err := e.commit(ctx, "tab", func(ctx context.Context) error {
		realID, err := e.resolve(ctx, id)
		if err != nil {
			return err
		}
		return e.gw.ActivateTab(ctx, realID)
	})
	if err != nil {
		if previousActive != "" {
			e.tree.SetActiveTab(e.localID(previousActive))
		} else {
			e.tree.UpdateTab(e.localID(id), func(t *types.Tab) { t.IsActive = false })
		}
		e.rollback("tab", "activate", &events.Event{
			Type:           events.EventTabActivateFailed,
			EntityID:       e.localID(id),
			ParentID:       e.localID(tab.PageID),
			PreviousActive: e.localID(previousActive),
		}, err)
		return err
	}

	e.confirmed("tab", "activate")
	return nil
}
