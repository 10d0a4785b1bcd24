package engine

import (
	"context"
	"errors"

	"github.com/Weynie/van-construction-web-sub000/pkg/events"
	"github.com/Weynie/van-construction-web-sub000/pkg/reconciler"
)

// ReorderProjects arranges projects to follow ids, which must list every
// project exactly once. On failure the previous order is restored.
func (e *Engine) ReorderProjects(ctx context.Context, ids []string) error {
	previous := e.tree.ProjectOrder()
	if err := e.tree.ReorderProjects(e.localIDs(ids)); err != nil {
		return invalid("reorder projects", "order", err)
	}
	current := e.tree.ProjectOrder()

	return e.reorder(ctx, reorderSpec{
		entity:     "project",
		optimistic: events.EventProjectOrderOptimistic,
		confirmed:  events.EventProjectOrderUpdated,
		failed:     events.EventProjectOrderFailed,
		previous:   previous,
		current:    current,
		send: func(ctx context.Context, _ string, ids []string) error {
			return e.gw.ReorderProjects(ctx, ids)
		},
		restore: func(order []string) {
			_ = e.tree.ReorderProjects(restoreOrder(order, e.tree.ProjectOrder()))
		},
	})
}

// ReorderPages arranges the pages of a project to follow ids, which must
// list every page of the project exactly once
func (e *Engine) ReorderPages(ctx context.Context, projectID string, ids []string) error {
	parent := e.localID(projectID)
	previous, ok := e.tree.PageOrder(parent)
	if !ok {
		return notInTree("reorder pages", "project", projectID)
	}
	if err := e.tree.ReorderPages(parent, e.localIDs(ids)); err != nil {
		return invalid("reorder pages", "project "+projectID, err)
	}
	current, _ := e.tree.PageOrder(parent)

	return e.reorder(ctx, reorderSpec{
		entity:     "page",
		parentID:   projectID,
		optimistic: events.EventPageOrderOptimistic,
		confirmed:  events.EventPageOrderUpdated,
		failed:     events.EventPageOrderFailed,
		previous:   previous,
		current:    current,
		send:       e.gw.ReorderPages,
		restore: func(order []string) {
			lid := e.localID(projectID)
			present, _ := e.tree.PageOrder(lid)
			_ = e.tree.ReorderPages(lid, restoreOrder(order, present))
		},
	})
}

// ReorderTabs arranges the tabs of a page to follow ids, which must list
// every tab of the page exactly once
func (e *Engine) ReorderTabs(ctx context.Context, pageID string, ids []string) error {
	parent := e.localID(pageID)
	previous, ok := e.tree.TabOrder(parent)
	if !ok {
		return notInTree("reorder tabs", "page", pageID)
	}
	if err := e.tree.ReorderTabs(parent, e.localIDs(ids)); err != nil {
		return invalid("reorder tabs", "page "+pageID, err)
	}
	current, _ := e.tree.TabOrder(parent)

	return e.reorder(ctx, reorderSpec{
		entity:     "tab",
		parentID:   pageID,
		optimistic: events.EventTabOrderOptimistic,
		confirmed:  events.EventTabOrderUpdated,
		failed:     events.EventTabOrderFailed,
		previous:   previous,
		current:    current,
		send:       e.gw.ReorderTabs,
		restore: func(order []string) {
			lid := e.localID(pageID)
			present, _ := e.tree.TabOrder(lid)
			_ = e.tree.ReorderTabs(lid, restoreOrder(order, present))
		},
	})
}

type reorderSpec struct {
	entity     string
	parentID   string
	optimistic events.EventType
	confirmed  events.EventType
	failed     events.EventType
	previous   []string
	current    []string
	send       func(ctx context.Context, parentID string, ids []string) error
	restore    func(order []string)
}

func (e *Engine) reorder(ctx context.Context, spec reorderSpec) error {
	parent := ""
	if spec.parentID != "" {
		parent = e.localID(spec.parentID)
	}
	e.publish(&events.Event{
		Type:          spec.optimistic,
		ParentID:      parent,
		Order:         spec.current,
		PreviousOrder: spec.previous,
	})

	var sent []string
	err := e.commit(ctx, spec.entity, func(ctx context.Context) error {
		realParent := ""
		if spec.parentID != "" {
			var err error
			if realParent, err = e.resolve(ctx, spec.parentID); err != nil {
				return err
			}
		}
		ids, err := e.resolveOrder(ctx, spec.current)
		if err != nil {
			return err
		}
		sent = ids
		return spec.send(ctx, realParent, ids)
	})
	if err != nil {
		spec.restore(e.localIDs(spec.previous))
		e.rollback(spec.entity, "reorder", &events.Event{
			Type:          spec.failed,
			ParentID:      e.localID(parent),
			Order:         e.localIDs(spec.current),
			PreviousOrder: e.localIDs(spec.previous),
		}, err)
		return err
	}

	e.confirmed(spec.entity, "reorder")
	e.publish(&events.Event{
		Type:     spec.confirmed,
		ParentID: e.localID(parent),
		Order:    sent,
	})
	return nil
}

// resolveOrder maps an order onto server ids. Entities whose create failed
// are left out.
func (e *Engine) resolveOrder(ctx context.Context, order []string) ([]string, error) {
	out := make([]string, 0, len(order))
	for _, id := range order {
		realID, err := e.resolve(ctx, id)
		if errors.Is(err, reconciler.ErrCreateFailed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, realID)
	}
	return out, nil
}

// restoreOrder puts present back into the order of previous. Siblings
// created while the reorder was in flight keep their place at the end.
func restoreOrder(previous, present []string) []string {
	here := make(map[string]bool, len(present))
	for _, id := range present {
		here[id] = true
	}
	out := make([]string, 0, len(present))
	seen := make(map[string]bool, len(present))
	for _, id := range previous {
		if here[id] && !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	for _, id := range present {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}

func (e *Engine) localIDs(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = e.localID(id)
	}
	return out
}
