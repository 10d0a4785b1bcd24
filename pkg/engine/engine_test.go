package engine

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Weynie/van-construction-web-sub000/pkg/events"
	"github.com/Weynie/van-construction-web-sub000/pkg/gateway"
	"github.com/Weynie/van-construction-web-sub000/pkg/reconciler"
	"github.com/Weynie/van-construction-web-sub000/pkg/storage"
	"github.com/Weynie/van-construction-web-sub000/pkg/template"
	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

// fakeGateway wraps a bbolt-backed Local gateway with call counting,
// error injection and the ability to hold a call until released.
type fakeGateway struct {
	*gateway.Local

	mu       sync.Mutex
	calls    map[string]int
	ids      map[string][]string
	failures map[string]error
	holds    map[string]chan struct{}
	writes   []types.Content
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	local, err := gateway.NewLocal(store, template.MustNewRegistry())
	require.NoError(t, err)
	return &fakeGateway{
		Local:    local,
		calls:    make(map[string]int),
		ids:      make(map[string][]string),
		failures: make(map[string]error),
		holds:    make(map[string]chan struct{}),
	}
}

func (f *fakeGateway) fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
}

// hold makes the next calls to op block until the returned func is called
func (f *fakeGateway) hold(op string) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.holds[op] = ch
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.holds, op)
			f.mu.Unlock()
			close(ch)
		})
	}
}

func (f *fakeGateway) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeGateway) calledWith(op string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids[op]...)
}

func (f *fakeGateway) dataWrites() []types.Content {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Content(nil), f.writes...)
}

func (f *fakeGateway) enter(ctx context.Context, op, id string) error {
	f.mu.Lock()
	f.calls[op]++
	if id != "" {
		f.ids[op] = append(f.ids[op], id)
	}
	hold := f.holds[op]
	failure := f.failures[op]
	f.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return failure
}

func (f *fakeGateway) GetWorkspace(ctx context.Context) (*types.Workspace, error) {
	if err := f.enter(ctx, "GetWorkspace", ""); err != nil {
		return nil, err
	}
	return f.Local.GetWorkspace(ctx)
}

func (f *fakeGateway) CreateProject(ctx context.Context, name string) (*types.Project, error) {
	if err := f.enter(ctx, "CreateProject", ""); err != nil {
		return nil, err
	}
	return f.Local.CreateProject(ctx, name)
}

func (f *fakeGateway) UpdateProject(ctx context.Context, id string, patch types.ProjectPatch) (*types.Project, error) {
	if err := f.enter(ctx, "UpdateProject", id); err != nil {
		return nil, err
	}
	return f.Local.UpdateProject(ctx, id, patch)
}

func (f *fakeGateway) DeleteProject(ctx context.Context, id string) error {
	if err := f.enter(ctx, "DeleteProject", id); err != nil {
		return err
	}
	return f.Local.DeleteProject(ctx, id)
}

func (f *fakeGateway) ReorderProjects(ctx context.Context, ids []string) error {
	if err := f.enter(ctx, "ReorderProjects", ""); err != nil {
		return err
	}
	return f.Local.ReorderProjects(ctx, ids)
}

func (f *fakeGateway) CreatePage(ctx context.Context, projectID, name string) (*types.Page, error) {
	if err := f.enter(ctx, "CreatePage", projectID); err != nil {
		return nil, err
	}
	return f.Local.CreatePage(ctx, projectID, name)
}

func (f *fakeGateway) DeletePage(ctx context.Context, id string) error {
	if err := f.enter(ctx, "DeletePage", id); err != nil {
		return err
	}
	return f.Local.DeletePage(ctx, id)
}

func (f *fakeGateway) MovePage(ctx context.Context, id, newProjectID string) error {
	if err := f.enter(ctx, "MovePage", id); err != nil {
		return err
	}
	return f.Local.MovePage(ctx, id, newProjectID)
}

func (f *fakeGateway) CreateTab(ctx context.Context, pageID, name string, kind types.Kind, position *int) (*types.Tab, error) {
	if err := f.enter(ctx, "CreateTab", pageID); err != nil {
		return nil, err
	}
	return f.Local.CreateTab(ctx, pageID, name, kind, position)
}

func (f *fakeGateway) ActivateTab(ctx context.Context, id string) error {
	if err := f.enter(ctx, "ActivateTab", id); err != nil {
		return err
	}
	return f.Local.ActivateTab(ctx, id)
}

func (f *fakeGateway) UpdateTabData(ctx context.Context, id string, delta types.Content) error {
	if err := f.enter(ctx, "UpdateTabData", id); err != nil {
		return err
	}
	f.mu.Lock()
	f.writes = append(f.writes, delta.Clone())
	f.mu.Unlock()
	return f.Local.UpdateTabData(ctx, id, delta)
}

func (f *fakeGateway) ReplaceTabData(ctx context.Context, id string, content types.Content) error {
	if err := f.enter(ctx, "ReplaceTabData", id); err != nil {
		return err
	}
	return f.Local.ReplaceTabData(ctx, id, content)
}

func (f *fakeGateway) UpdateTabDataEncrypted(ctx context.Context, id string, delta types.Content, secret string) error {
	if err := f.enter(ctx, "UpdateTabDataEncrypted", id); err != nil {
		return err
	}
	return f.Local.UpdateTabDataEncrypted(ctx, id, delta, secret)
}

func (f *fakeGateway) Health(ctx context.Context) error {
	if err := f.enter(ctx, "Health", ""); err != nil {
		return err
	}
	return f.Local.Health(ctx)
}

// recorder collects every event the engine broadcasts
type recorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func record(t *testing.T, e *Engine) *recorder {
	t.Helper()
	r := &recorder{}
	stop := e.Events().Listen(func(event *events.Event) {
		r.mu.Lock()
		r.events = append(r.events, event)
		r.mu.Unlock()
	})
	t.Cleanup(stop)
	return r
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, event := range r.events {
		out = append(out, event.Type)
	}
	return out
}

func (r *recorder) count(typ events.EventType) int {
	n := 0
	for _, got := range r.types() {
		if got == typ {
			n++
		}
	}
	return n
}

func (r *recorder) find(typ events.EventType) *events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.events {
		if event.Type == typ {
			return event
		}
	}
	return nil
}

func (r *recorder) waitFor(t *testing.T, typ events.EventType) *events.Event {
	t.Helper()
	var found *events.Event
	require.Eventually(t, func() bool {
		found = r.find(typ)
		return found != nil
	}, 2*time.Second, 5*time.Millisecond, "no %s event", typ)
	return found
}

func newTestEngine(t *testing.T, opts Options) (*Engine, *fakeGateway) {
	t.Helper()
	gw := newFakeGateway(t)
	if opts.DebounceWindow == 0 {
		opts.DebounceWindow = 50 * time.Millisecond
	}
	e := New(gw, opts)
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e, gw
}

// seed creates a project with one page and one tab of kind
func seed(t *testing.T, e *Engine, kind types.Kind) (*types.Project, *types.Page, *types.Tab) {
	t.Helper()
	ctx := context.Background()
	project, err := e.CreateProject(ctx, "Tower")
	require.NoError(t, err)
	page, err := e.CreatePage(ctx, project.ID, "Level 1")
	require.NoError(t, err)
	tab, err := e.CreateTab(ctx, page.ID, "Loads", kind, nil)
	require.NoError(t, err)
	return project, page, tab
}

func projectIDs(ws *types.Workspace) []string {
	ids := make([]string, 0, len(ws.Projects))
	for _, p := range ws.Projects {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestCreateProjectMapsTempID(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	rec := record(t, e)

	project, err := e.CreateProject(context.Background(), "  Tower  ")
	require.NoError(t, err)
	assert.False(t, reconciler.IsTempID(project.ID))
	assert.Equal(t, "Tower", project.Name)

	created := rec.waitFor(t, events.EventProjectCreated)
	assert.True(t, reconciler.IsTempID(created.TempID))
	assert.Equal(t, project.ID, created.EntityID)
	assert.Equal(t, project.ID, e.store.IDs.RealID(created.TempID))

	assert.Equal(t, []events.EventType{
		events.EventProjectCreatedOptimistic,
		events.EventIDMapped,
		events.EventProjectCreated,
	}, rec.types())

	got, ok := e.Project(created.TempID)
	require.True(t, ok)
	assert.Equal(t, project.ID, got.ID)
}

func TestValidationPublishesNothing(t *testing.T) {
	e, gw := newTestEngine(t, Options{})
	rec := record(t, e)
	ctx := context.Background()

	_, err := e.CreateProject(ctx, "   ")
	assert.True(t, IsValidation(err))

	_, err = e.CreatePage(ctx, "missing", "Page")
	assert.True(t, IsValidation(err))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.UpdateProject(ctx, "missing", types.ProjectPatch{})
	assert.True(t, IsValidation(err))

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, rec.types())
	assert.Zero(t, gw.count("CreateProject"))
}

func TestOperationsOnTempIDWaitForCreate(t *testing.T) {
	e, gw := newTestEngine(t, Options{})
	rec := record(t, e)
	ctx := context.Background()

	release := gw.hold("CreateProject")
	type result struct {
		project *types.Project
		err     error
	}
	createDone := make(chan result, 1)
	go func() {
		p, err := e.CreateProject(ctx, "Draft")
		createDone <- result{p, err}
	}()

	tempID := rec.waitFor(t, events.EventProjectCreatedOptimistic).TempID
	require.True(t, reconciler.IsTempID(tempID))

	renameDone := make(chan error, 1)
	go func() {
		_, err := e.UpdateProject(ctx, tempID, types.ProjectPatch{Name: types.StringPtr("Final")})
		renameDone <- err
	}()
	pageDone := make(chan error, 1)
	go func() {
		_, err := e.CreatePage(ctx, tempID, "Roof")
		pageDone <- err
	}()

	// Both are applied locally while the create is still in flight
	require.Eventually(t, func() bool {
		p, ok := e.Project(tempID)
		return ok && p.Name == "Final" && len(p.Pages) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, gw.count("UpdateProject"))
	assert.Zero(t, gw.count("CreatePage"))

	release()
	created := <-createDone
	require.NoError(t, created.err)
	require.NoError(t, <-renameDone)
	require.NoError(t, <-pageDone)

	realID := created.project.ID
	assert.Equal(t, []string{realID}, gw.calledWith("UpdateProject"))
	assert.Equal(t, []string{realID}, gw.calledWith("CreatePage"))

	ws := e.Workspace()
	require.Len(t, ws.Projects, 1)
	assert.Equal(t, realID, ws.Projects[0].ID)
	assert.Equal(t, "Final", ws.Projects[0].Name)
	require.Len(t, ws.Projects[0].Pages, 1)
	assert.Equal(t, realID, ws.Projects[0].Pages[0].ProjectID)
	assert.False(t, reconciler.IsTempID(ws.Projects[0].Pages[0].ID))

	remote, err := gw.Local.GetWorkspace(ctx)
	require.NoError(t, err)
	require.Len(t, remote.Projects, 1)
	assert.Equal(t, "Final", remote.Projects[0].Name)
	require.Len(t, remote.Projects[0].Pages, 1)
}

func TestCreateFailureRollsBack(t *testing.T) {
	e, gw := newTestEngine(t, Options{})
	rec := record(t, e)
	gw.fail("CreateProject", &gateway.HTTPError{StatusCode: http.StatusConflict, Message: "Project name already exists"})

	_, err := e.CreateProject(context.Background(), "Tower")
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrConflict)

	failed := rec.waitFor(t, events.EventProjectCreateFailed)
	assert.NotEmpty(t, failed.Error)
	note := rec.waitFor(t, events.EventNotification)
	assert.Equal(t, events.LevelError, note.Level)
	assert.Equal(t, "Project name already exists", note.Message)

	assert.Empty(t, e.Workspace().Projects)
	assert.Zero(t, rec.count(events.EventIDMapped))
	assert.Zero(t, e.store.IDs.Len())
}

func TestDeleteDuringFailedCreate(t *testing.T) {
	e, gw := newTestEngine(t, Options{})
	rec := record(t, e)
	ctx := context.Background()

	gw.fail("CreateProject", &gateway.HTTPError{StatusCode: http.StatusInternalServerError})
	release := gw.hold("CreateProject")
	createDone := make(chan error, 1)
	go func() {
		_, err := e.CreateProject(ctx, "Doomed")
		createDone <- err
	}()
	tempID := rec.waitFor(t, events.EventProjectCreatedOptimistic).TempID

	deleteDone := make(chan error, 1)
	go func() { deleteDone <- e.DeleteProject(ctx, tempID) }()
	require.Eventually(t, func() bool {
		_, ok := e.Project(tempID)
		return !ok
	}, time.Second, 5*time.Millisecond)

	release()
	assert.Error(t, <-createDone)
	assert.NoError(t, <-deleteDone)
	assert.Zero(t, gw.count("DeleteProject"))
	assert.Empty(t, e.Workspace().Projects)
}

func TestDeleteThroughTempAndRealIDRunsOnce(t *testing.T) {
	e, gw := newTestEngine(t, Options{})
	rec := record(t, e)
	ctx := context.Background()

	releaseCreate := gw.hold("CreateProject")
	releaseDelete := gw.hold("DeleteProject")
	defer releaseDelete()

	createDone := make(chan *types.Project, 1)
	go func() {
		p, err := e.CreateProject(ctx, "Draft")
		assert.NoError(t, err)
		createDone <- p
	}()
	tempID := rec.waitFor(t, events.EventProjectCreatedOptimistic).TempID

	deleteDone := make(chan error, 1)
	go func() { deleteDone <- e.DeleteProject(ctx, tempID) }()
	rec.waitFor(t, events.EventProjectDeletedOptimistic)

	releaseCreate()
	created := <-createDone
	require.NotNil(t, created)
	require.False(t, reconciler.IsTempID(created.ID))

	// The temp id delete still owns the entity once it has a real id
	require.NoError(t, e.DeleteProject(ctx, created.ID))
	assert.Equal(t, 1, rec.count(events.EventProjectDeletedOptimistic))

	releaseDelete()
	require.NoError(t, <-deleteDone)
	assert.Equal(t, 1, gw.count("DeleteProject"))
	assert.Empty(t, e.store.Pending.Keys())
}

func TestDeleteAtMostOnce(t *testing.T) {
	e, gw := newTestEngine(t, Options{})
	rec := record(t, e)
	ctx := context.Background()

	project, err := e.CreateProject(ctx, "Tower")
	require.NoError(t, err)

	release := gw.hold("DeleteProject")
	first := make(chan error, 1)
	go func() { first <- e.DeleteProject(ctx, project.ID) }()
	require.Eventually(t, func() bool {
		return gw.count("DeleteProject") == 1
	}, time.Second, 5*time.Millisecond)

	assert.NoError(t, e.DeleteProject(ctx, project.ID))
	assert.NoError(t, e.DeleteProject(ctx, project.ID))
	assert.Equal(t, 1, e.PendingOperations())

	release()
	require.NoError(t, <-first)
	assert.Equal(t, 1, gw.count("DeleteProject"))
	assert.Zero(t, e.PendingOperations())

	rec.waitFor(t, events.EventProjectDeleted)
	assert.Equal(t, 1, rec.count(events.EventProjectDeletedOptimistic))
	assert.Equal(t, 1, rec.count(events.EventProjectDeleted))
}

func TestDeleteFailureRestores(t *testing.T) {
	e, gw := newTestEngine(t, Options{})
	rec := record(t, e)
	ctx := context.Background()

	a, err := e.CreateProject(ctx, "A")
	require.NoError(t, err)
	b, err := e.CreateProject(ctx, "B")
	require.NoError(t, err)
	c, err := e.CreateProject(ctx, "C")
	require.NoError(t, err)

	gw.fail("DeleteProject", &gateway.HTTPError{StatusCode: http.StatusInternalServerError})
	require.Error(t, e.DeleteProject(ctx, b.ID))

	assert.Equal(t, []string{a.ID, b.ID, c.ID}, projectIDs(e.Workspace()))
	failed := rec.waitFor(t, events.EventProjectDeleteFailed)
	assert.Equal(t, 1, failed.PreviousIndex)
	assert.Zero(t, e.PendingOperations())

	// The key is released, so a retry goes through
	gw.fail("DeleteProject", nil)
	require.NoError(t, e.DeleteProject(ctx, b.ID))
	assert.Equal(t, []string{a.ID, c.ID}, projectIDs(e.Workspace()))
}

func TestDeleteTreatsNotFoundAsDone(t *testing.T) {
	e, gw := newTestEngine(t, Options{})
	_, page, _ := seed(t, e, types.KindWelcome)

	gw.fail("DeletePage", &gateway.HTTPError{StatusCode: http.StatusNotFound})
	require.NoError(t, e.DeletePage(context.Background(), page.ID))
	_, ok := e.Page(page.ID)
	assert.False(t, ok)
}

func TestCommitTimeout(t *testing.T) {
	e, gw := newTestEngine(t, Options{CommitTimeout: 30 * time.Millisecond})
	rec := record(t, e)

	release := gw.hold("CreateProject")
	defer release()

	_, err := e.CreateProject(context.Background(), "Slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	rec.waitFor(t, events.EventProjectCreateFailed)
	assert.Empty(t, e.Workspace().Projects)
}
