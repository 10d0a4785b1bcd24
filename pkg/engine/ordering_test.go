package engine

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Weynie/van-construction-web-sub000/pkg/events"
	"github.com/Weynie/van-construction-web-sub000/pkg/gateway"
	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

func TestReorderProjects(t *testing.T) {
	e, gw := newTestEngine(t, Options{})
	rec := record(t, e)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"A", "B", "C"} {
		p, err := e.CreateProject(ctx, name)
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	reordered := []string{ids[2], ids[0], ids[1]}
	require.NoError(t, e.ReorderProjects(ctx, reordered))
	assert.Equal(t, reordered, projectIDs(e.Workspace()))

	remote, err := gw.Local.GetWorkspace(ctx)
	require.NoError(t, err)
	assert.Equal(t, reordered, projectIDs(remote))

	updated := rec.waitFor(t, events.EventProjectOrderUpdated)
	assert.Equal(t, reordered, updated.Order)
}

func TestReorderFailureRestoresOrder(t *testing.T) {
	e, gw := newTestEngine(t, Options{})
	rec := record(t, e)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"A", "B", "C"} {
		p, err := e.CreateProject(ctx, name)
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	gw.fail("ReorderProjects", &gateway.HTTPError{StatusCode: http.StatusInternalServerError})
	err := e.ReorderProjects(ctx, []string{ids[1], ids[2], ids[0]})
	require.Error(t, err)

	assert.Equal(t, ids, projectIDs(e.Workspace()))
	failed := rec.waitFor(t, events.EventProjectOrderFailed)
	assert.Equal(t, ids, failed.PreviousOrder)
	assert.Equal(t, []string{ids[1], ids[2], ids[0]}, failed.Order)

	optimistic := rec.find(events.EventProjectOrderOptimistic)
	require.NotNil(t, optimistic)
	assert.Equal(t, failed.Order, optimistic.Order)
	assert.Equal(t, failed.PreviousOrder, optimistic.PreviousOrder)
}

func TestReorderRejectsInvalidOrders(t *testing.T) {
	tests := []struct {
		name  string
		order func(a, b string) []string
	}{
		{"foreign id", func(a, b string) []string { return []string{a, "stranger"} }},
		{"missing id", func(a, b string) []string { return []string{b} }},
		{"duplicate id", func(a, b string) []string { return []string{a, a} }},
		{"extra id", func(a, b string) []string { return []string{b, a, "stranger"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, gw := newTestEngine(t, Options{})
			rec := record(t, e)
			ctx := context.Background()
			_, page, first := seed(t, e, types.KindWelcome)
			second, err := e.CreateTab(ctx, page.ID, "Notes", types.KindWelcome, nil)
			require.NoError(t, err)
			require.Eventually(t, func() bool { return rec.count(events.EventTabCreated) == 2 }, time.Second, 5*time.Millisecond)

			err = e.ReorderTabs(ctx, page.ID, tt.order(first.ID, second.ID))
			assert.True(t, IsValidation(err))
			assert.Zero(t, gw.count("ReorderTabs"))

			current, _ := e.Page(page.ID)
			require.Len(t, current.Tabs, 2)
			assert.Equal(t, first.ID, current.Tabs[0].ID)

			e.CheckHealth(ctx)
			require.Eventually(t, func() bool { return rec.count(events.EventHealthCheck) == 1 }, time.Second, 5*time.Millisecond)
			assert.Zero(t, rec.count(events.EventTabOrderOptimistic))
		})
	}

	e, _ := newTestEngine(t, Options{})
	ctx := context.Background()
	project, err := e.CreateProject(ctx, "Solo")
	require.NoError(t, err)
	assert.True(t, IsValidation(e.ReorderProjects(ctx, []string{project.ID, project.ID})))
}

func TestMovePage(t *testing.T) {
	e, gw := newTestEngine(t, Options{})
	ctx := context.Background()
	source, page, _ := seed(t, e, types.KindWelcome)
	target, err := e.CreateProject(ctx, "Annex")
	require.NoError(t, err)

	require.NoError(t, e.MovePage(ctx, page.ID, target.ID))
	moved, ok := e.Page(page.ID)
	require.True(t, ok)
	assert.Equal(t, target.ID, moved.ProjectID)

	src, _ := e.Project(source.ID)
	assert.Empty(t, src.Pages)
	assert.Equal(t, []string{page.ID}, gw.calledWith("MovePage"))
}

func TestMovePageFailureRestores(t *testing.T) {
	e, gw := newTestEngine(t, Options{})
	rec := record(t, e)
	ctx := context.Background()
	source, page, _ := seed(t, e, types.KindWelcome)
	second, err := e.CreatePage(ctx, source.ID, "Level 2")
	require.NoError(t, err)
	target, err := e.CreateProject(ctx, "Annex")
	require.NoError(t, err)

	gw.fail("MovePage", &gateway.HTTPError{StatusCode: http.StatusConflict})
	require.Error(t, e.MovePage(ctx, page.ID, target.ID))

	src, _ := e.Project(source.ID)
	require.Len(t, src.Pages, 2)
	assert.Equal(t, page.ID, src.Pages[0].ID)
	assert.Equal(t, second.ID, src.Pages[1].ID)
	rec.waitFor(t, events.EventPageMoveFailed)
}

func TestActivateTab(t *testing.T) {
	e, gw := newTestEngine(t, Options{})
	rec := record(t, e)
	ctx := context.Background()
	_, page, first := seed(t, e, types.KindWelcome)
	second, err := e.CreateTab(ctx, page.ID, "Wind", types.KindWindLoad, nil)
	require.NoError(t, err)

	current, _ := e.Tab(first.ID)
	assert.False(t, current.IsActive)

	require.NoError(t, e.ActivateTab(ctx, first.ID))
	current, _ = e.Tab(first.ID)
	assert.True(t, current.IsActive)
	other, _ := e.Tab(second.ID)
	assert.False(t, other.IsActive)

	// Activating the active tab is a no-op
	require.NoError(t, e.ActivateTab(ctx, first.ID))
	assert.Equal(t, 1, gw.count("ActivateTab"))

	gw.fail("ActivateTab", &gateway.HTTPError{StatusCode: http.StatusInternalServerError})
	require.Error(t, e.ActivateTab(ctx, second.ID))
	current, _ = e.Tab(first.ID)
	assert.True(t, current.IsActive)
	failed := rec.waitFor(t, events.EventTabActivateFailed)
	assert.Equal(t, first.ID, failed.PreviousActive)
}

func TestCreateTabAtPosition(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	ctx := context.Background()
	_, page, first := seed(t, e, types.KindWelcome)
	last, err := e.CreateTab(ctx, page.ID, "Seismic", types.KindSeismic, nil)
	require.NoError(t, err)

	pos := 1
	middle, err := e.CreateTab(ctx, page.ID, "Snow", types.KindSnowLoad, &pos)
	require.NoError(t, err)

	got, _ := e.Page(page.ID)
	var ids []string
	for _, tab := range got.Tabs {
		ids = append(ids, tab.ID)
	}
	assert.Equal(t, []string{first.ID, middle.ID, last.ID}, ids)
}

func TestRestoreOrder(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, restoreOrder([]string{"a", "b", "c"}, []string{"c", "a", "b"}))
	// Deleted siblings drop out, new ones keep their place at the end
	assert.Equal(t, []string{"a", "c", "d"}, restoreOrder([]string{"a", "b", "c"}, []string{"c", "d", "a"}))
}
