package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

var (
	// ErrNotFound is returned when an entity is not in the tree
	ErrNotFound = errors.New("not found in workspace tree")

	// ErrInvalidOrder is returned when a reorder does not list every
	// sibling exactly once
	ErrInvalidOrder = errors.New("order must list every sibling exactly once")
)

// Tree is the locally held copy of the workspace. The engine applies every
// optimistic change here first and reads rollback information from it.
// Values passed in and returned are copies.
type Tree struct {
	mu       sync.RWMutex
	projects []*types.Project
}

// NewTree creates an empty tree
func NewTree() *Tree {
	return &Tree{}
}

// Replace swaps the whole tree for a copy of ws
func (t *Tree) Replace(ws *types.Workspace) {
	clone := ws.Clone()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.projects = clone.Projects
}

// Snapshot returns a deep copy of the tree
func (t *Tree) Snapshot() *types.Workspace {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return (&types.Workspace{Projects: t.projects}).Clone()
}

// Clear empties the tree
func (t *Tree) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.projects = nil
}

func (t *Tree) findProject(id string) (int, *types.Project) {
	for i, p := range t.projects {
		if p.ID == id {
			return i, p
		}
	}
	return -1, nil
}

func (t *Tree) findPage(id string) (*types.Project, int, *types.Page) {
	for _, p := range t.projects {
		for i, page := range p.Pages {
			if page.ID == id {
				return p, i, page
			}
		}
	}
	return nil, -1, nil
}

func (t *Tree) findTab(id string) (*types.Page, int, *types.Tab) {
	for _, p := range t.projects {
		for _, page := range p.Pages {
			for i, tab := range page.Tabs {
				if tab.ID == id {
					return page, i, tab
				}
			}
		}
	}
	return nil, -1, nil
}

// Project returns a copy of the project with id
func (t *Tree) Project(id string) (*types.Project, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, p := t.findProject(id)
	return p.Clone(), p != nil
}

// Page returns a copy of the page with id
func (t *Tree) Page(id string) (*types.Page, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, _, page := t.findPage(id)
	return page.Clone(), page != nil
}

// Tab returns a copy of the tab with id
func (t *Tree) Tab(id string) (*types.Tab, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, _, tab := t.findTab(id)
	return tab.Clone(), tab != nil
}

// Tabs returns copies of every tab in the tree
func (t *Tree) Tabs() []*types.Tab {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []*types.Tab
	for _, p := range t.projects {
		for _, page := range p.Pages {
			for _, tab := range page.Tabs {
				out = append(out, tab.Clone())
			}
		}
	}
	return out
}

func clampIndex(index, length int) int {
	if index < 0 || index > length {
		return length
	}
	return index
}

func insertAt[T any](list []T, index int, item T) []T {
	index = clampIndex(index, len(list))
	list = append(list, item)
	copy(list[index+1:], list[index:])
	list[index] = item
	return list
}

func removeAt[T any](list []T, index int) []T {
	return append(list[:index], list[index+1:]...)
}

func renumberProjects(list []*types.Project) {
	for i, p := range list {
		p.DisplayOrder = i
	}
}

func renumberPages(list []*types.Page) {
	for i, p := range list {
		p.DisplayOrder = i
	}
}

func renumberTabs(list []*types.Tab) {
	for i, tab := range list {
		tab.DisplayOrder = i
	}
}

// InsertProject inserts a copy of p at index. A negative or out of range
// index appends.
func (t *Tree) InsertProject(p *types.Project, index int) {
	clone := p.Clone()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.projects = insertAt(t.projects, index, clone)
	renumberProjects(t.projects)
}

// InsertPage inserts a copy of page into its project at index
func (t *Tree) InsertPage(page *types.Page, index int) error {
	clone := page.Clone()

	t.mu.Lock()
	defer t.mu.Unlock()

	_, project := t.findProject(page.ProjectID)
	if project == nil {
		return fmt.Errorf("project %s: %w", page.ProjectID, ErrNotFound)
	}
	project.Pages = insertAt(project.Pages, index, clone)
	renumberPages(project.Pages)
	return nil
}

// InsertTab inserts a copy of tab into its page at index
func (t *Tree) InsertTab(tab *types.Tab, index int) error {
	clone := tab.Clone()

	t.mu.Lock()
	defer t.mu.Unlock()

	_, _, page := t.findPage(tab.PageID)
	if page == nil {
		return fmt.Errorf("page %s: %w", tab.PageID, ErrNotFound)
	}
	page.Tabs = insertAt(page.Tabs, index, clone)
	renumberTabs(page.Tabs)
	return nil
}

// RemoveProject removes the project with id and returns it with its index
func (t *Tree) RemoveProject(id string) (*types.Project, int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, p := t.findProject(id)
	if p == nil {
		return nil, -1, false
	}
	t.projects = removeAt(t.projects, i)
	renumberProjects(t.projects)
	return p, i, true
}

// RemovePage removes the page with id and returns it with its index
func (t *Tree) RemovePage(id string) (*types.Page, int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	project, i, page := t.findPage(id)
	if page == nil {
		return nil, -1, false
	}
	project.Pages = removeAt(project.Pages, i)
	renumberPages(project.Pages)
	return page, i, true
}

// RemoveTab removes the tab with id and returns it with its index
func (t *Tree) RemoveTab(id string) (*types.Tab, int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	page, i, tab := t.findTab(id)
	if tab == nil {
		return nil, -1, false
	}
	page.Tabs = removeAt(page.Tabs, i)
	renumberTabs(page.Tabs)
	return tab, i, true
}

// RenameID replaces a temporary id with the real one wherever it appears,
// including the parent references of children.
func (t *Tree) RenameID(tempID, realID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, p := range t.projects {
		if p.ID == tempID {
			p.ID = realID
		}
		for _, page := range p.Pages {
			if page.ID == tempID {
				page.ID = realID
			}
			page.ProjectID = p.ID
			for _, tab := range page.Tabs {
				if tab.ID == tempID {
					tab.ID = realID
				}
				tab.PageID = page.ID
			}
		}
	}
}

// UpdateProject calls fn on the stored project with id
func (t *Tree) UpdateProject(id string, fn func(*types.Project)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, p := t.findProject(id)
	if p == nil {
		return false
	}
	fn(p)
	return true
}

// UpdatePage calls fn on the stored page with id
func (t *Tree) UpdatePage(id string, fn func(*types.Page)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, _, page := t.findPage(id)
	if page == nil {
		return false
	}
	fn(page)
	return true
}

// UpdateTab calls fn on the stored tab with id
func (t *Tree) UpdateTab(id string, fn func(*types.Tab)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, _, tab := t.findTab(id)
	if tab == nil {
		return false
	}
	fn(tab)
	return true
}

// ApplyProjectPatch applies patch and returns the project as it was before
func (t *Tree) ApplyProjectPatch(id string, patch types.ProjectPatch) (*types.Project, bool) {
	var previous *types.Project
	ok := t.UpdateProject(id, func(p *types.Project) {
		previous = p.Clone()
		patch.Apply(p)
	})
	return previous, ok
}

// ApplyPagePatch applies patch and returns the page as it was before
func (t *Tree) ApplyPagePatch(id string, patch types.PagePatch) (*types.Page, bool) {
	var previous *types.Page
	ok := t.UpdatePage(id, func(p *types.Page) {
		previous = p.Clone()
		patch.Apply(p)
	})
	return previous, ok
}

// ApplyTabPatch applies patch and returns the tab as it was before
func (t *Tree) ApplyTabPatch(id string, patch types.TabPatch) (*types.Tab, bool) {
	var previous *types.Tab
	ok := t.UpdateTab(id, func(tab *types.Tab) {
		previous = tab.Clone()
		patch.Apply(tab)
	})
	return previous, ok
}

// SetTabContent stores the delta and merged view of a tab
func (t *Tree) SetTabContent(id string, delta, merged types.Content, needsPassword bool) bool {
	return t.UpdateTab(id, func(tab *types.Tab) {
		tab.Delta = delta.Clone()
		tab.Merged = merged.Clone()
		tab.NeedsPassword = needsPassword
	})
}

// SetActiveTab makes id the only active tab of its page and returns the id
// of the tab that was active before, if any.
func (t *Tree) SetActiveTab(id string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	page, _, tab := t.findTab(id)
	if tab == nil {
		return "", false
	}

	previous := ""
	for _, other := range page.Tabs {
		if other.IsActive && previous == "" {
			previous = other.ID
		}
		other.IsActive = other.ID == id
	}
	return previous, true
}

// ProjectOrder returns project ids in display order
func (t *Tree) ProjectOrder() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.projects))
	for _, p := range t.projects {
		ids = append(ids, p.ID)
	}
	return ids
}

// PageOrder returns the page ids of a project in display order
func (t *Tree) PageOrder(projectID string) ([]string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, p := t.findProject(projectID)
	if p == nil {
		return nil, false
	}
	ids := make([]string, 0, len(p.Pages))
	for _, page := range p.Pages {
		ids = append(ids, page.ID)
	}
	return ids, true
}

// TabOrder returns the tab ids of a page in display order
func (t *Tree) TabOrder(pageID string) ([]string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, _, page := t.findPage(pageID)
	if page == nil {
		return nil, false
	}
	ids := make([]string, 0, len(page.Tabs))
	for _, tab := range page.Tabs {
		ids = append(ids, tab.ID)
	}
	return ids, true
}

// reorder arranges list to follow ids, which must name every entry of
// list exactly once
func reorder[T any](list []T, ids []string, idOf func(T) string) ([]T, error) {
	if len(ids) != len(list) {
		return nil, fmt.Errorf("%w: got %d ids for %d entries", ErrInvalidOrder, len(ids), len(list))
	}
	byID := make(map[string]T, len(list))
	for _, item := range list {
		byID[idOf(item)] = item
	}

	out := make([]T, 0, len(list))
	used := make(map[string]bool, len(list))
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a sibling", ErrInvalidOrder, id)
		}
		if used[id] {
			return nil, fmt.Errorf("%w: %s appears twice", ErrInvalidOrder, id)
		}
		used[id] = true
		out = append(out, item)
	}
	return out, nil
}

// ReorderProjects arranges projects to follow ids
func (t *Tree) ReorderProjects(ids []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	projects, err := reorder(t.projects, ids, func(p *types.Project) string { return p.ID })
	if err != nil {
		return err
	}
	t.projects = projects
	renumberProjects(t.projects)
	return nil
}

// ReorderPages arranges the pages of a project to follow ids
func (t *Tree) ReorderPages(projectID string, ids []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, p := t.findProject(projectID)
	if p == nil {
		return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	pages, err := reorder(p.Pages, ids, func(page *types.Page) string { return page.ID })
	if err != nil {
		return err
	}
	p.Pages = pages
	renumberPages(p.Pages)
	return nil
}

// ReorderTabs arranges the tabs of a page to follow ids
func (t *Tree) ReorderTabs(pageID string, ids []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, _, page := t.findPage(pageID)
	if page == nil {
		return fmt.Errorf("page %s: %w", pageID, ErrNotFound)
	}
	tabs, err := reorder(page.Tabs, ids, func(tab *types.Tab) string { return tab.ID })
	if err != nil {
		return err
	}
	page.Tabs = tabs
	renumberTabs(page.Tabs)
	return nil
}

// MovePage moves a page to the end of another project, renumbering both.
// It returns the source project id and the page's index there.
func (t *Tree) MovePage(pageID, newProjectID string) (string, int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	source, index, page := t.findPage(pageID)
	if page == nil {
		return "", -1, fmt.Errorf("page %s: %w", pageID, ErrNotFound)
	}
	_, target := t.findProject(newProjectID)
	if target == nil {
		return "", -1, fmt.Errorf("project %s: %w", newProjectID, ErrNotFound)
	}
	if source == target {
		return source.ID, index, nil
	}

	source.Pages = removeAt(source.Pages, index)
	renumberPages(source.Pages)

	page.ProjectID = target.ID
	target.Pages = append(target.Pages, page)
	renumberPages(target.Pages)
	return source.ID, index, nil
}

// RestorePage moves a page back into projectID at index, undoing MovePage
func (t *Tree) RestorePage(pageID, projectID string, index int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, i, page := t.findPage(pageID)
	if page == nil {
		return fmt.Errorf("page %s: %w", pageID, ErrNotFound)
	}
	_, target := t.findProject(projectID)
	if target == nil {
		return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}

	current.Pages = removeAt(current.Pages, i)
	renumberPages(current.Pages)

	page.ProjectID = target.ID
	target.Pages = insertAt(target.Pages, index, page)
	renumberPages(target.Pages)
	return nil
}

// Counts returns the number of projects, pages and tabs
func (t *Tree) Counts() (projects, pages, tabs int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	projects = len(t.projects)
	for _, p := range t.projects {
		pages += len(p.Pages)
		for _, page := range p.Pages {
			tabs += len(page.Tabs)
		}
	}
	return projects, pages, tabs
}
