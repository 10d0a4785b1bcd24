package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestProjectCRUD(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreateProject(&types.Project{ID: "b", Name: "Annex", DisplayOrder: 1}))
	require.NoError(t, store.CreateProject(&types.Project{
		ID: "a", Name: "Tower", DisplayOrder: 0,
		Pages: []*types.Page{{ID: "ignored"}},
	}))

	got, err := store.GetProject("a")
	require.NoError(t, err)
	assert.Equal(t, "Tower", got.Name)
	assert.Empty(t, got.Pages, "children are not stored inline")

	projects, err := store.ListProjects()
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "a", projects[0].ID)
	assert.Equal(t, "b", projects[1].ID)

	got.Name = "Tower B"
	require.NoError(t, store.UpdateProject(got))
	got, err = store.GetProject("a")
	require.NoError(t, err)
	assert.Equal(t, "Tower B", got.Name)

	require.NoError(t, store.DeleteProject("a"))
	_, err = store.GetProject("a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPagesByProject(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreatePage(&types.Page{ID: "pg2", ProjectID: "p1", DisplayOrder: 1}))
	require.NoError(t, store.CreatePage(&types.Page{ID: "pg1", ProjectID: "p1", DisplayOrder: 0}))
	require.NoError(t, store.CreatePage(&types.Page{ID: "pg3", ProjectID: "p2"}))

	pages, err := store.ListPages("p1")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "pg1", pages[0].ID)
	assert.Equal(t, "pg2", pages[1].ID)

	pages, err = store.ListPages("none")
	require.NoError(t, err)
	assert.Empty(t, pages)

	require.NoError(t, store.DeletePage("pg3"))
	_, err = store.GetPage("pg3")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTabsDropContent(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreateTab(&types.Tab{
		ID: "t1", PageID: "pg1", Name: "Snow", Kind: types.KindSnowLoad,
		Merged:        types.Content{"x": 1.0},
		NeedsPassword: true,
	}))

	tab, err := store.GetTab("t1")
	require.NoError(t, err)
	assert.Equal(t, types.KindSnowLoad, tab.Kind)
	assert.Nil(t, tab.Merged)
	assert.False(t, tab.NeedsPassword)

	tabs, err := store.ListTabs("pg1")
	require.NoError(t, err)
	assert.Len(t, tabs, 1)
}

func TestTabData(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetTabData("t1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.PutTabData(&TabDataRecord{
		TabID: "t1",
		Data:  types.Content{"snowDefaults": map[string]any{"slope": 3.0}},
	}))

	record, err := store.GetTabData("t1")
	require.NoError(t, err)
	assert.False(t, record.IsEncrypted)
	assert.Equal(t, 3.0, record.Data["snowDefaults"].(map[string]any)["slope"])

	require.NoError(t, store.DeleteTabData("t1"))
	_, err = store.GetTabData("t1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMeta(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetMeta("verifier")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.PutMeta("verifier", []byte("abc")))
	value, err := store.GetMeta("verifier")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), value)
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBoltStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.CreateProject(&types.Project{ID: "a", Name: "Tower"}))
	require.NoError(t, store.Close())

	store, err = NewBoltStore(dir)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.GetProject("a")
	require.NoError(t, err)
	assert.Equal(t, "Tower", got.Name)
}
