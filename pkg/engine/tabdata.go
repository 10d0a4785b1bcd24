package engine

import (
	"context"
	"errors"

	"github.com/Weynie/van-construction-web-sub000/pkg/events"
	"github.com/Weynie/van-construction-web-sub000/pkg/gateway"
	"github.com/Weynie/van-construction-web-sub000/pkg/metrics"
	"github.com/Weynie/van-construction-web-sub000/pkg/template"
	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

type writeMode string

const (
	modeUpdate  writeMode = "update"
	modeReplace writeMode = "replace"
)

// contentTab looks up a tab for a content operation and checks that kind,
// when given, matches it
func (e *Engine) contentTab(op, id string, kind types.Kind) (*types.Tab, error) {
	tab, ok := e.tree.Tab(e.localID(id))
	if !ok {
		return nil, notInTree(op, "tab", id)
	}
	if kind == "" {
		return tab, nil
	}
	canonical, err := e.registry.Resolve(kind)
	if err != nil {
		return nil, invalid(op, "kind "+string(kind), err)
	}
	if canonical != tab.Kind {
		return nil, invalid(op, "kind "+string(kind)+" does not match tab kind "+string(tab.Kind), nil)
	}
	return tab, nil
}

// checkSecret fails when a write for tab would have to be encrypted but no
// session password is available
func (e *Engine) checkSecret(tab *types.Tab) error {
	if _, ok := e.creds.Secret(); ok {
		return nil
	}
	if e.requireEncryption || tab.NeedsPassword {
		return ErrPasswordRequired
	}
	return nil
}

// applyContent validates delta against the tab's kind and stores it with
// its merged view in the local tree
func (e *Engine) applyContent(op string, tab *types.Tab, delta types.Content) (types.Content, error) {
	merged, err := e.registry.Merge(tab.Kind, delta)
	if err != nil {
		return nil, invalid(op, "kind "+string(tab.Kind), err)
	}
	if err := e.registry.Validate(tab.Kind, merged); err != nil {
		return nil, invalid(op, "content", err)
	}
	e.tree.SetTabContent(tab.ID, delta, merged, tab.NeedsPassword)
	return merged, nil
}

// UpdateTabData merges fragment into the tab's content immediately and
// schedules a debounced write. Fragments arriving within the quiet window
// are coalesced into one write, later fragments winning per key.
func (e *Engine) UpdateTabData(ctx context.Context, tabID string, kind types.Kind, fragment types.Content) error {
	const op = "update tab data"
	tab, err := e.contentTab(op, tabID, kind)
	if err != nil {
		return err
	}
	if err := e.checkSecret(tab); err != nil {
		return err
	}

	fragment = template.StripImmutable(fragment)
	if len(fragment) == 0 {
		return nil
	}
	delta := template.MergeFragments(tab.Delta, fragment)
	merged, err := e.applyContent(op, tab, delta)
	if err != nil {
		return err
	}

	metrics.TabDataFragmentsTotal.Inc()
	e.publish(&events.Event{
		Type:     events.EventTabDataUpdatedOptimistic,
		EntityID: tab.ID,
		Data:     merged,
		Patch:    fragment,
	})

	if !e.registry.IsStorageBacked(tab.Kind) {
		return nil
	}
	e.writer(tab.ID).add(fragment)
	e.logger.Debug().Str("tab_id", tab.ID).Int("keys", len(fragment)).Msg("Scheduled tab data write")
	return nil
}

// SaveTabDataImmediately stores full content without waiting for the
// debounce window. Only the difference from the template is sent.
func (e *Engine) SaveTabDataImmediately(ctx context.Context, tabID string, kind types.Kind, full types.Content) error {
	const op = "save tab data"
	tab, err := e.contentTab(op, tabID, kind)
	if err != nil {
		return err
	}
	if err := e.checkSecret(tab); err != nil {
		return err
	}
	delta, err := e.registry.ExtractDelta(tab.Kind, full)
	if err != nil {
		return invalid(op, "kind "+string(tab.Kind), err)
	}
	merged, err := e.applyContent(op, tab, delta)
	if err != nil {
		return err
	}

	e.publish(&events.Event{
		Type:     events.EventTabDataUpdatedOptimistic,
		EntityID: tab.ID,
		Data:     merged,
	})

	if !e.registry.IsStorageBacked(tab.Kind) {
		return nil
	}
	// Pending fragments are contained in the full content
	e.writer(tab.ID).cancel()
	return e.persist(ctx, tab.ID, delta, modeUpdate)
}

// ReplaceTabData overwrites the stored content with exactly content. It is
// used to clear a tab.
func (e *Engine) ReplaceTabData(ctx context.Context, tabID string, content types.Content) error {
	const op = "replace tab data"
	tab, err := e.contentTab(op, tabID, "")
	if err != nil {
		return err
	}
	if err := e.checkSecret(tab); err != nil {
		return err
	}
	content = template.StripImmutable(content)
	merged, err := e.applyContent(op, tab, content)
	if err != nil {
		return err
	}

	e.publish(&events.Event{
		Type:     events.EventTabDataUpdatedOptimistic,
		EntityID: tab.ID,
		Data:     merged,
	})

	if !e.registry.IsStorageBacked(tab.Kind) {
		return nil
	}
	e.writer(tab.ID).cancel()
	return e.persist(ctx, tab.ID, content, modeReplace)
}

// persist sends content for a tab, encrypted when a session password is
// available, and publishes TAB_DATA_SAVED or TAB_DATA_SAVE_FAILED
func (e *Engine) persist(ctx context.Context, tabID string, content types.Content, mode writeMode) error {
	secret, hasSecret := e.creds.Secret()
	encrypted := hasSecret

	err := e.commit(ctx, "tab_data", func(ctx context.Context) error {
		if !hasSecret {
			tab, ok := e.tree.Tab(e.localID(tabID))
			if e.requireEncryption || (ok && tab.NeedsPassword) {
				return ErrPasswordRequired
			}
		}
		realID, err := e.resolve(ctx, tabID)
		if err != nil {
			return err
		}
		switch {
		case mode == modeReplace && encrypted:
			return e.gw.ReplaceTabDataEncrypted(ctx, realID, content, secret)
		case mode == modeReplace:
			return e.gw.ReplaceTabData(ctx, realID, content)
		case encrypted:
			return e.gw.UpdateTabDataEncrypted(ctx, realID, content, secret)
		default:
			return e.gw.UpdateTabData(ctx, realID, content)
		}
	})

	lid := e.localID(tabID)
	if err != nil {
		metrics.TabDataWritesTotal.WithLabelValues(string(mode), "failed").Inc()
		if errors.Is(err, gateway.ErrInvalidPassword) {
			e.tree.UpdateTab(lid, func(t *types.Tab) { t.NeedsPassword = true })
		}
		e.rollback("tab_data", "save", &events.Event{
			Type:     events.EventTabDataSaveFailed,
			EntityID: lid,
		}, err)
		return err
	}

	metrics.TabDataWritesTotal.WithLabelValues(string(mode), "saved").Inc()
	e.logger.Debug().Str("tab_id", lid).Str("mode", string(mode)).Bool("encrypted", encrypted).Msg("Tab data saved")
	e.publish(&events.Event{
		Type:     events.EventTabDataSaved,
		EntityID: lid,
		Data:     content,
	})
	return nil
}

// ReloadTabData fetches a tab's content from the backend and re-merges it.
// Encrypted content without a session password yields the template and
// marks the tab as needing a password.
func (e *Engine) ReloadTabData(ctx context.Context, tabID string) (*types.Tab, error) {
	tab, err := e.contentTab("reload tab data", tabID, "")
	if err != nil {
		return nil, err
	}

	var loaded *types.Tab
	err = e.commit(ctx, "tab_data", func(ctx context.Context) error {
		realID, err := e.resolve(ctx, tabID)
		if err != nil {
			return err
		}
		probe := tab.Clone()
		probe.ID = realID
		loaded = e.loadTabContent(ctx, probe)
		return nil
	})
	if err != nil {
		return nil, err
	}

	lid := e.localID(tabID)
	e.tree.SetTabContent(lid, loaded.Delta, loaded.Merged, loaded.NeedsPassword)
	current, _ := e.tree.Tab(lid)
	e.publish(&events.Event{
		Type:          events.EventTabDataLoaded,
		EntityID:      lid,
		Data:          loaded.Merged,
		NeedsPassword: loaded.NeedsPassword,
	})
	return current, nil
}

// loadTabContent fills Delta, Merged and NeedsPassword of tab from the
// backend. It never fails: any error degrades to template defaults.
func (e *Engine) loadTabContent(ctx context.Context, tab *types.Tab) *types.Tab {
	logger := e.logger.With().Str("tab_id", tab.ID).Str("kind", string(tab.Kind)).Logger()

	defaults, err := e.registry.Merge(tab.Kind, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("Tab has an unknown kind")
		tab.Delta = types.Content{}
		tab.Merged = types.Content{}
		return tab
	}
	tab.Delta = types.Content{}
	tab.Merged = defaults
	tab.NeedsPassword = false

	if !e.registry.IsStorageBacked(tab.Kind) {
		return tab
	}

	var data *types.TabData
	if secret, ok := e.creds.Secret(); ok {
		data, err = e.gw.GetTabDataDecrypted(ctx, tab.ID, secret)
	} else {
		data, err = e.gw.GetTabData(ctx, tab.ID)
	}
	switch {
	case errors.Is(err, gateway.ErrInvalidPassword), errors.Is(err, gateway.ErrPasswordRequired):
		logger.Warn().Err(err).Msg("Tab content needs a password")
		tab.NeedsPassword = true
		return tab
	case err != nil:
		logger.Warn().Err(err).Msg("Failed to load tab content, using template defaults")
		return tab
	case data.IsEncrypted && data.Delta == nil:
		tab.NeedsPassword = true
		return tab
	}

	delta := template.StripImmutable(data.Delta)
	merged, err := e.registry.Merge(tab.Kind, delta)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to merge tab content, using template defaults")
		return tab
	}
	tab.Delta = delta
	tab.Merged = merged
	return tab
}
