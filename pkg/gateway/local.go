package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Weynie/van-construction-web-sub000/pkg/log"
	"github.com/Weynie/van-construction-web-sub000/pkg/metrics"
	"github.com/Weynie/van-construction-web-sub000/pkg/security"
	"github.com/Weynie/van-construction-web-sub000/pkg/storage"
	"github.com/Weynie/van-construction-web-sub000/pkg/template"
	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

const (
	metaSchemaVersion    = "schema_version"
	metaPasswordVerifier = "password_verifier"

	schemaVersion = "1"
)

// Local is an embedded gateway that keeps the workspace in a bbolt file.
// It applies the same ordering, uniqueness and encryption rules as the REST
// backend so the engine behaves identically against either.
type Local struct {
	mu       sync.Mutex
	store    storage.Store
	registry *template.Registry
	ciphers  map[string]*security.ContentCipher
	now      func() time.Time
}

// NewLocal creates an embedded gateway over store
func NewLocal(store storage.Store, registry *template.Registry) (*Local, error) {
	if _, err := store.GetMeta(metaSchemaVersion); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("failed to read schema version: %w", err)
		}
		if err := store.PutMeta(metaSchemaVersion, []byte(schemaVersion)); err != nil {
			return nil, fmt.Errorf("failed to write schema version: %w", err)
		}
	}

	return &Local{
		store:    store,
		registry: registry,
		ciphers:  make(map[string]*security.ContentCipher),
		now:      time.Now,
	}, nil
}

func (l *Local) track(op string) func(*error) {
	timer := metrics.NewTimer()
	return func(errp *error) {
		observe(op, timer, *errp)
	}
}

func (l *Local) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	return nil
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

// storeErr translates storage misses into the gateway sentinel
func storeErr(kind, id string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return notFound(kind, id)
	}
	return err
}

// GetWorkspace returns the full tree without tab content
func (l *Local) GetWorkspace(ctx context.Context) (ws *types.Workspace, err error) {
	defer l.track("get_workspace")(&err)
	if err = l.lock(ctx); err != nil {
		return nil, err
	}
	defer l.mu.Unlock()

	projects, err := l.store.ListProjects()
	if err != nil {
		return nil, err
	}
	ws = &types.Workspace{Projects: make([]*types.Project, 0, len(projects))}
	for _, project := range projects {
		pages, err := l.store.ListPages(project.ID)
		if err != nil {
			return nil, err
		}
		project.Pages = make([]*types.Page, 0, len(pages))
		for _, page := range pages {
			tabs, err := l.store.ListTabs(page.ID)
			if err != nil {
				return nil, err
			}
			page.Tabs = append([]*types.Tab{}, tabs...)
			project.Pages = append(project.Pages, page)
		}
		ws.Projects = append(ws.Projects, project)
	}
	return ws, nil
}

// InitializeWorkspace seeds a starter project for a user without any
func (l *Local) InitializeWorkspace(ctx context.Context) (err error) {
	defer l.track("initialize_workspace")(&err)
	if err = l.lock(ctx); err != nil {
		return err
	}
	defer l.mu.Unlock()

	projects, err := l.store.ListProjects()
	if err != nil {
		return err
	}
	if len(projects) > 0 {
		return nil
	}

	project, err := l.createProject("My First Project")
	if err != nil {
		return err
	}
	page, err := l.createPage(project.ID, "Page 1")
	if err != nil {
		return err
	}
	if _, err := l.createTab(page.ID, "Welcome", types.KindWelcome, nil); err != nil {
		return err
	}

	logger := log.WithComponent("gateway")
	logger.Info().Str("project_id", project.ID).Msg("Workspace initialized")
	return nil
}

// Project operations

func (l *Local) CreateProject(ctx context.Context, name string) (project *types.Project, err error) {
	defer l.track("create_project")(&err)
	if err = l.lock(ctx); err != nil {
		return nil, err
	}
	defer l.mu.Unlock()
	return l.createProject(name)
}

func (l *Local) createProject(name string) (*types.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("project name is required: %w", ErrInvalid)
	}
	projects, err := l.store.ListProjects()
	if err != nil {
		return nil, err
	}
	order := 0
	for _, p := range projects {
		if strings.EqualFold(p.Name, name) {
			return nil, fmt.Errorf("project %q already exists: %w", name, ErrConflict)
		}
		if p.DisplayOrder >= order {
			order = p.DisplayOrder + 1
		}
	}

	now := l.now()
	project := &types.Project{
		ID:           uuid.NewString(),
		Name:         name,
		DisplayOrder: order,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := l.store.CreateProject(project); err != nil {
		return nil, err
	}
	project.Pages = []*types.Page{}
	return project, nil
}

func (l *Local) UpdateProject(ctx context.Context, id string, patch types.ProjectPatch) (project *types.Project, err error) {
	defer l.track("update_project")(&err)
	if err = l.lock(ctx); err != nil {
		return nil, err
	}
	defer l.mu.Unlock()

	project, err = l.store.GetProject(id)
	if err != nil {
		return nil, storeErr("project", id, err)
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("project name is required: %w", ErrInvalid)
		}
		projects, err := l.store.ListProjects()
		if err != nil {
			return nil, err
		}
		for _, p := range projects {
			if p.ID != id && strings.EqualFold(p.Name, name) {
				return nil, fmt.Errorf("project %q already exists: %w", name, ErrConflict)
			}
		}
		patch.Name = &name
	}
	patch.Apply(project)
	project.UpdatedAt = l.now()
	if err := l.store.UpdateProject(project); err != nil {
		return nil, err
	}
	return project, nil
}

func (l *Local) DeleteProject(ctx context.Context, id string) (err error) {
	defer l.track("delete_project")(&err)
	if err = l.lock(ctx); err != nil {
		return err
	}
	defer l.mu.Unlock()

	project, err := l.store.GetProject(id)
	if err != nil {
		return storeErr("project", id, err)
	}
	pages, err := l.store.ListPages(id)
	if err != nil {
		return err
	}
	for _, page := range pages {
		if err := l.deletePageCascade(page.ID); err != nil {
			return err
		}
	}
	if err := l.store.DeleteProject(id); err != nil {
		return err
	}

	projects, err := l.store.ListProjects()
	if err != nil {
		return err
	}
	for _, p := range projects {
		if p.DisplayOrder > project.DisplayOrder {
			p.DisplayOrder--
			if err := l.store.UpdateProject(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Local) ReorderProjects(ctx context.Context, ids []string) (err error) {
	defer l.track("reorder_projects")(&err)
	if err = l.lock(ctx); err != nil {
		return err
	}
	defer l.mu.Unlock()

	projects := make([]*types.Project, 0, len(ids))
	for _, id := range ids {
		project, err := l.store.GetProject(id)
		if err != nil {
			return storeErr("project", id, err)
		}
		projects = append(projects, project)
	}
	for i, project := range projects {
		project.DisplayOrder = i
		if err := l.store.UpdateProject(project); err != nil {
			return err
		}
	}
	return nil
}

// Page operations

func (l *Local) CreatePage(ctx context.Context, projectID, name string) (page *types.Page, err error) {
	defer l.track("create_page")(&err)
	if err = l.lock(ctx); err != nil {
		return nil, err
	}
	defer l.mu.Unlock()
	return l.createPage(projectID, name)
}

func (l *Local) createPage(projectID, name string) (*types.Page, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("page name is required: %w", ErrInvalid)
	}
	if _, err := l.store.GetProject(projectID); err != nil {
		return nil, storeErr("project", projectID, err)
	}
	pages, err := l.store.ListPages(projectID)
	if err != nil {
		return nil, err
	}
	if err := uniquePageName(pages, "", name); err != nil {
		return nil, err
	}

	now := l.now()
	page := &types.Page{
		ID:           uuid.NewString(),
		ProjectID:    projectID,
		Name:         name,
		DisplayOrder: nextPageOrder(pages),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := l.store.CreatePage(page); err != nil {
		return nil, err
	}
	page.Tabs = []*types.Tab{}
	return page, nil
}

func uniquePageName(pages []*types.Page, selfID, name string) error {
	for _, p := range pages {
		if p.ID != selfID && strings.EqualFold(p.Name, name) {
			return fmt.Errorf("page %q already exists in project: %w", name, ErrConflict)
		}
	}
	return nil
}

func nextPageOrder(pages []*types.Page) int {
	order := 0
	for _, p := range pages {
		if p.DisplayOrder >= order {
			order = p.DisplayOrder + 1
		}
	}
	return order
}

func (l *Local) UpdatePage(ctx context.Context, id string, patch types.PagePatch) (page *types.Page, err error) {
	defer l.track("update_page")(&err)
	if err = l.lock(ctx); err != nil {
		return nil, err
	}
	defer l.mu.Unlock()

	page, err = l.store.GetPage(id)
	if err != nil {
		return nil, storeErr("page", id, err)
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("page name is required: %w", ErrInvalid)
		}
		siblings, err := l.store.ListPages(page.ProjectID)
		if err != nil {
			return nil, err
		}
		if err := uniquePageName(siblings, id, name); err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	patch.Apply(page)
	page.UpdatedAt = l.now()
	if err := l.store.UpdatePage(page); err != nil {
		return nil, err
	}
	return page, nil
}

func (l *Local) DeletePage(ctx context.Context, id string) (err error) {
	defer l.track("delete_page")(&err)
	if err = l.lock(ctx); err != nil {
		return err
	}
	defer l.mu.Unlock()

	page, err := l.store.GetPage(id)
	if err != nil {
		return storeErr("page", id, err)
	}
	if err := l.deletePageCascade(id); err != nil {
		return err
	}
	return l.closePageGap(page.ProjectID, page.DisplayOrder)
}

func (l *Local) deletePageCascade(pageID string) error {
	tabs, err := l.store.ListTabs(pageID)
	if err != nil {
		return err
	}
	for _, tab := range tabs {
		if err := l.store.DeleteTabData(tab.ID); err != nil {
			return err
		}
		if err := l.store.DeleteTab(tab.ID); err != nil {
			return err
		}
	}
	return l.store.DeletePage(pageID)
}

// closePageGap shifts pages after a removed position up by one
func (l *Local) closePageGap(projectID string, removedOrder int) error {
	pages, err := l.store.ListPages(projectID)
	if err != nil {
		return err
	}
	for _, p := range pages {
		if p.DisplayOrder > removedOrder {
			p.DisplayOrder--
			if err := l.store.UpdatePage(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Local) ReorderPages(ctx context.Context, projectID string, ids []string) (err error) {
	defer l.track("reorder_pages")(&err)
	if err = l.lock(ctx); err != nil {
		return err
	}
	defer l.mu.Unlock()

	pages := make([]*types.Page, 0, len(ids))
	for _, id := range ids {
		page, err := l.store.GetPage(id)
		if err != nil {
			return storeErr("page", id, err)
		}
		if page.ProjectID != projectID {
			return fmt.Errorf("page %s does not belong to project %s: %w", id, projectID, ErrInvalid)
		}
		pages = append(pages, page)
	}
	for i, page := range pages {
		page.DisplayOrder = i
		if err := l.store.UpdatePage(page); err != nil {
			return err
		}
	}
	return nil
}

func (l *Local) MovePage(ctx context.Context, id, newProjectID string) (err error) {
	defer l.track("move_page")(&err)
	if err = l.lock(ctx); err != nil {
		return err
	}
	defer l.mu.Unlock()

	page, err := l.store.GetPage(id)
	if err != nil {
		return storeErr("page", id, err)
	}
	if _, err := l.store.GetProject(newProjectID); err != nil {
		return storeErr("project", newProjectID, err)
	}
	if page.ProjectID == newProjectID {
		return nil
	}

	target, err := l.store.ListPages(newProjectID)
	if err != nil {
		return err
	}
	if err := uniquePageName(target, id, page.Name); err != nil {
		return err
	}

	sourceID, oldOrder := page.ProjectID, page.DisplayOrder
	page.ProjectID = newProjectID
	page.DisplayOrder = nextPageOrder(target)
	page.UpdatedAt = l.now()
	if err := l.store.UpdatePage(page); err != nil {
		return err
	}
	return l.closePageGap(sourceID, oldOrder)
}

// Tab operations

func (l *Local) CreateTab(ctx context.Context, pageID, name string, kind types.Kind, position *int) (tab *types.Tab, err error) {
	defer l.track("create_tab")(&err)
	if err = l.lock(ctx); err != nil {
		return nil, err
	}
	defer l.mu.Unlock()
	return l.createTab(pageID, name, kind, position)
}

func (l *Local) createTab(pageID, name string, kind types.Kind, position *int) (*types.Tab, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("tab name is required: %w", ErrInvalid)
	}
	canonical, err := l.registry.Resolve(kind)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalid)
	}
	if _, err := l.store.GetPage(pageID); err != nil {
		return nil, storeErr("page", pageID, err)
	}
	tabs, err := l.store.ListTabs(pageID)
	if err != nil {
		return nil, err
	}
	if err := uniqueTabName(tabs, "", name); err != nil {
		return nil, err
	}

	order := nextTabOrder(tabs)
	insert := position != nil && *position >= 0 && *position < len(tabs)
	if insert {
		order = *position
	}

	// The new tab becomes the active one
	for _, t := range tabs {
		changed := false
		if t.IsActive {
			t.IsActive = false
			changed = true
		}
		if insert && t.DisplayOrder >= order {
			t.DisplayOrder++
			changed = true
		}
		if changed {
			if err := l.store.UpdateTab(t); err != nil {
				return nil, err
			}
		}
	}

	now := l.now()
	tab := &types.Tab{
		ID:           uuid.NewString(),
		PageID:       pageID,
		Name:         name,
		Kind:         canonical,
		DisplayOrder: order,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := l.store.CreateTab(tab); err != nil {
		return nil, err
	}
	return tab, nil
}

func uniqueTabName(tabs []*types.Tab, selfID, name string) error {
	for _, t := range tabs {
		if t.ID != selfID && strings.EqualFold(t.Name, name) {
			return fmt.Errorf("tab %q already exists on page: %w", name, ErrConflict)
		}
	}
	return nil
}

func nextTabOrder(tabs []*types.Tab) int {
	order := 0
	for _, t := range tabs {
		if t.DisplayOrder >= order {
			order = t.DisplayOrder + 1
		}
	}
	return order
}

func (l *Local) UpdateTab(ctx context.Context, id string, patch types.TabPatch) (tab *types.Tab, err error) {
	defer l.track("update_tab")(&err)
	if err = l.lock(ctx); err != nil {
		return nil, err
	}
	defer l.mu.Unlock()

	tab, err = l.store.GetTab(id)
	if err != nil {
		return nil, storeErr("tab", id, err)
	}
	siblings, err := l.store.ListTabs(tab.PageID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("tab name is required: %w", ErrInvalid)
		}
		if err := uniqueTabName(siblings, id, name); err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	if patch.Kind != nil {
		canonical, err := l.registry.Resolve(*patch.Kind)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, ErrInvalid)
		}
		if canonical != tab.Kind {
			// Content of the old kind is meaningless under the new template
			if err := l.store.DeleteTabData(id); err != nil {
				return nil, err
			}
		}
		patch.Kind = &canonical
	}
	if patch.IsActive != nil && *patch.IsActive {
		if err := l.deactivateSiblings(siblings, id); err != nil {
			return nil, err
		}
	}

	patch.Apply(tab)
	tab.UpdatedAt = l.now()
	if err := l.store.UpdateTab(tab); err != nil {
		return nil, err
	}
	return tab, nil
}

func (l *Local) deactivateSiblings(siblings []*types.Tab, activeID string) error {
	for _, t := range siblings {
		if t.ID != activeID && t.IsActive {
			t.IsActive = false
			if err := l.store.UpdateTab(t); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Local) DeleteTab(ctx context.Context, id string) (err error) {
	defer l.track("delete_tab")(&err)
	if err = l.lock(ctx); err != nil {
		return err
	}
	defer l.mu.Unlock()

	tab, err := l.store.GetTab(id)
	if err != nil {
		return storeErr("tab", id, err)
	}
	if err := l.store.DeleteTabData(id); err != nil {
		return err
	}
	if err := l.store.DeleteTab(id); err != nil {
		return err
	}

	tabs, err := l.store.ListTabs(tab.PageID)
	if err != nil {
		return err
	}
	for _, t := range tabs {
		if t.DisplayOrder > tab.DisplayOrder {
			t.DisplayOrder--
			if err := l.store.UpdateTab(t); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Local) ReorderTabs(ctx context.Context, pageID string, ids []string) (err error) {
	defer l.track("reorder_tabs")(&err)
	if err = l.lock(ctx); err != nil {
		return err
	}
	defer l.mu.Unlock()

	tabs := make([]*types.Tab, 0, len(ids))
	for _, id := range ids {
		tab, err := l.store.GetTab(id)
		if err != nil {
			return storeErr("tab", id, err)
		}
		if tab.PageID != pageID {
			return fmt.Errorf("tab %s does not belong to page %s: %w", id, pageID, ErrInvalid)
		}
		tabs = append(tabs, tab)
	}
	for i, tab := range tabs {
		tab.DisplayOrder = i
		if err := l.store.UpdateTab(tab); err != nil {
			return err
		}
	}
	return nil
}

func (l *Local) ActivateTab(ctx context.Context, id string) (err error) {
	defer l.track("activate_tab")(&err)
	if err = l.lock(ctx); err != nil {
		return err
	}
	defer l.mu.Unlock()

	tab, err := l.store.GetTab(id)
	if err != nil {
		return storeErr("tab", id, err)
	}
	siblings, err := l.store.ListTabs(tab.PageID)
	if err != nil {
		return err
	}
	if err := l.deactivateSiblings(siblings, id); err != nil {
		return err
	}
	if tab.IsActive {
		return nil
	}
	tab.IsActive = true
	return l.store.UpdateTab(tab)
}

// Tab content operations

// storedTab returns the tab and whether its kind persists content
func (l *Local) storedTab(id string) (*types.Tab, bool, error) {
	tab, err := l.store.GetTab(id)
	if err != nil {
		return nil, false, storeErr("tab", id, err)
	}
	return tab, l.registry.IsStorageBacked(tab.Kind), nil
}

func (l *Local) record(tabID string) (*storage.TabDataRecord, error) {
	record, err := l.store.GetTabData(tabID)
	if errors.Is(err, storage.ErrNotFound) {
		return &storage.TabDataRecord{TabID: tabID}, nil
	}
	return record, err
}

func (l *Local) GetTabData(ctx context.Context, id string) (data *types.TabData, err error) {
	defer l.track("get_tab_data")(&err)
	if err = l.lock(ctx); err != nil {
		return nil, err
	}
	defer l.mu.Unlock()

	_, backed, err := l.storedTab(id)
	if err != nil {
		return nil, err
	}
	if !backed {
		return &types.TabData{TabID: id, Delta: types.Content{}}, nil
	}
	record, err := l.record(id)
	if err != nil {
		return nil, err
	}
	if record.IsEncrypted {
		return &types.TabData{TabID: id, IsEncrypted: true}, nil
	}
	return &types.TabData{TabID: id, Delta: nonNil(record.Data)}, nil
}

func (l *Local) GetTabDataDecrypted(ctx context.Context, id, secret string) (data *types.TabData, err error) {
	defer l.track("get_tab_data_decrypted")(&err)
	if secret == "" {
		return nil, ErrPasswordRequired
	}
	if err = l.lock(ctx); err != nil {
		return nil, err
	}
	defer l.mu.Unlock()

	if err := l.verifyPassword(secret); err != nil {
		return nil, err
	}
	_, backed, err := l.storedTab(id)
	if err != nil {
		return nil, err
	}
	if !backed {
		return &types.TabData{TabID: id, Delta: types.Content{}}, nil
	}
	record, err := l.record(id)
	if err != nil {
		return nil, err
	}
	content, err := l.decrypt(record, secret)
	if err != nil {
		return nil, err
	}
	return &types.TabData{TabID: id, Delta: content, IsEncrypted: record.IsEncrypted}, nil
}

func (l *Local) UpdateTabData(ctx context.Context, id string, delta types.Content) (err error) {
	defer l.track("update_tab_data")(&err)
	if err = l.lock(ctx); err != nil {
		return err
	}
	defer l.mu.Unlock()

	_, backed, err := l.storedTab(id)
	if err != nil || !backed {
		return err
	}
	record, err := l.record(id)
	if err != nil {
		return err
	}
	if record.IsEncrypted {
		return fmt.Errorf("tab %s content is encrypted: %w", id, ErrPasswordRequired)
	}
	record.Data = template.MergeFragments(record.Data, template.StripImmutable(delta))
	record.UpdatedAt = l.now()
	return l.store.PutTabData(record)
}

func (l *Local) UpdateTabDataEncrypted(ctx context.Context, id string, delta types.Content, secret string) (err error) {
	defer l.track("update_tab_data_encrypted")(&err)
	if secret == "" {
		return ErrPasswordRequired
	}
	if err = l.lock(ctx); err != nil {
		return err
	}
	defer l.mu.Unlock()

	if err := l.verifyPassword(secret); err != nil {
		return err
	}
	_, backed, err := l.storedTab(id)
	if err != nil || !backed {
		return err
	}
	record, err := l.record(id)
	if err != nil {
		return err
	}
	current, err := l.decrypt(record, secret)
	if err != nil {
		return err
	}
	return l.putEncrypted(record, template.MergeFragments(current, template.StripImmutable(delta)), secret)
}

func (l *Local) ReplaceTabData(ctx context.Context, id string, content types.Content) (err error) {
	defer l.track("replace_tab_data")(&err)
	if err = l.lock(ctx); err != nil {
		return err
	}
	defer l.mu.Unlock()

	_, backed, err := l.storedTab(id)
	if err != nil || !backed {
		return err
	}
	record, err := l.record(id)
	if err != nil {
		return err
	}
	if record.IsEncrypted {
		return fmt.Errorf("tab %s content is encrypted: %w", id, ErrPasswordRequired)
	}
	record.Data = template.StripImmutable(content)
	record.UpdatedAt = l.now()
	return l.store.PutTabData(record)
}

func (l *Local) ReplaceTabDataEncrypted(ctx context.Context, id string, content types.Content, secret string) (err error) {
	defer l.track("replace_tab_data_encrypted")(&err)
	if secret == "" {
		return ErrPasswordRequired
	}
	if err = l.lock(ctx); err != nil {
		return err
	}
	defer l.mu.Unlock()

	if err := l.verifyPassword(secret); err != nil {
		return err
	}
	_, backed, err := l.storedTab(id)
	if err != nil || !backed {
		return err
	}
	record, err := l.record(id)
	if err != nil {
		return err
	}
	return l.putEncrypted(record, template.StripImmutable(content), secret)
}

// ValidatePassword reports whether secret matches the account password.
// Before any password has been enrolled every non-empty secret is valid.
func (l *Local) ValidatePassword(ctx context.Context, secret string) (valid bool, err error) {
	defer l.track("validate_password")(&err)
	if secret == "" {
		return false, nil
	}
	if err = l.lock(ctx); err != nil {
		return false, err
	}
	defer l.mu.Unlock()

	verifier, err := l.store.GetMeta(metaPasswordVerifier)
	if errors.Is(err, storage.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return security.VerifyPassword(secret, string(verifier)), nil
}

// Health reports whether the database answers reads
func (l *Local) Health(ctx context.Context) (err error) {
	defer l.track("health")(&err)
	if err = l.lock(ctx); err != nil {
		return err
	}
	defer l.mu.Unlock()

	if _, err := l.store.GetMeta(metaSchemaVersion); err != nil {
		return fmt.Errorf("storage unavailable: %w", err)
	}
	return nil
}

// verifyPassword checks secret against the stored verifier. The first
// encrypted write enrolls the password.
func (l *Local) verifyPassword(secret string) error {
	verifier, err := l.store.GetMeta(metaPasswordVerifier)
	if errors.Is(err, storage.ErrNotFound) {
		hashed, err := security.HashPassword(secret)
		if err != nil {
			return err
		}
		return l.store.PutMeta(metaPasswordVerifier, []byte(hashed))
	}
	if err != nil {
		return err
	}
	if !security.VerifyPassword(secret, string(verifier)) {
		return ErrInvalidPassword
	}
	return nil
}

func (l *Local) cipher(secret, salt string) (*security.ContentCipher, error) {
	sum := sha256.Sum256([]byte(secret))
	key := salt + ":" + hex.EncodeToString(sum[:])
	if c, ok := l.ciphers[key]; ok {
		return c, nil
	}
	c, err := security.NewContentCipher(secret, salt)
	if err != nil {
		return nil, err
	}
	l.ciphers[key] = c
	return c, nil
}

// decrypt returns the plaintext content of record, encrypted or not
func (l *Local) decrypt(record *storage.TabDataRecord, secret string) (types.Content, error) {
	if !record.IsEncrypted {
		return nonNil(record.Data.Clone()), nil
	}
	c, err := l.cipher(secret, record.Salt)
	if err != nil {
		return nil, err
	}
	content, err := c.DecryptContent(record.EncryptedData)
	if err != nil {
		return nil, fmt.Errorf("tab %s: %w", record.TabID, err)
	}
	return nonNil(content), nil
}

func (l *Local) putEncrypted(record *storage.TabDataRecord, content types.Content, secret string) error {
	if record.Salt == "" {
		salt, err := security.GenerateSalt()
		if err != nil {
			return err
		}
		record.Salt = salt
	}
	c, err := l.cipher(secret, record.Salt)
	if err != nil {
		return err
	}
	encoded, err := c.EncryptContent(content)
	if err != nil {
		return err
	}
	record.Data = nil
	record.EncryptedData = encoded
	record.IsEncrypted = true
	record.UpdatedAt = l.now()
	return l.store.PutTabData(record)
}

func nonNil(c types.Content) types.Content {
	if c == nil {
		return types.Content{}
	}
	return c
}
