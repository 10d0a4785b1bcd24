package gateway

import (
	"context"

	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

// Gateway is the backend contract consumed by the engine. Implementations
// are stateless from the caller's point of view: every call is a single
// request/response and may fail with a transport or validation error.
type Gateway interface {
	// Bulk
	GetWorkspace(ctx context.Context) (*types.Workspace, error)
	InitializeWorkspace(ctx context.Context) error

	// Projects
	CreateProject(ctx context.Context, name string) (*types.Project, error)
	UpdateProject(ctx context.Context, id string, patch types.ProjectPatch) (*types.Project, error)
	DeleteProject(ctx context.Context, id string) error
	ReorderProjects(ctx context.Context, ids []string) error

	// Pages
	CreatePage(ctx context.Context, projectID, name string) (*types.Page, error)
	UpdatePage(ctx context.Context, id string, patch types.PagePatch) (*types.Page, error)
	DeletePage(ctx context.Context, id string) error
	ReorderPages(ctx context.Context, projectID string, ids []string) error
	MovePage(ctx context.Context, id, newProjectID string) error

	// Tabs
	CreateTab(ctx context.Context, pageID, name string, kind types.Kind, position *int) (*types.Tab, error)
	UpdateTab(ctx context.Context, id string, patch types.TabPatch) (*types.Tab, error)
	DeleteTab(ctx context.Context, id string) error
	ReorderTabs(ctx context.Context, pageID string, ids []string) error
	ActivateTab(ctx context.Context, id string) error

	// Tab content
	GetTabData(ctx context.Context, id string) (*types.TabData, error)
	GetTabDataDecrypted(ctx context.Context, id, secret string) (*types.TabData, error)
	UpdateTabData(ctx context.Context, id string, delta types.Content) error
	UpdateTabDataEncrypted(ctx context.Context, id string, delta types.Content, secret string) error
	ReplaceTabData(ctx context.Context, id string, content types.Content) error
	ReplaceTabDataEncrypted(ctx context.Context, id string, content types.Content, secret string) error
	ValidatePassword(ctx context.Context, secret string) (bool, error)

	// Health reports nil when the backend is reachable
	Health(ctx context.Context) error
}
