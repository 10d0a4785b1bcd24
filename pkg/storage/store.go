package storage

import (
	"errors"
	"time"

	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// TabDataRecord is the stored content of one tab. Exactly one of Data and
// EncryptedData is set once content has been written.
type TabDataRecord struct {
	TabID         string        `json:"tabId"`
	Data          types.Content `json:"data,omitempty"`
	EncryptedData string        `json:"encryptedData,omitempty"`
	IsEncrypted   bool          `json:"isEncrypted"`
	Salt          string        `json:"dataSalt,omitempty"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Store defines the interface for workspace persistence. Projects, pages
// and tabs are stored flat; children are linked by parent id.
type Store interface {
	// Projects
	CreateProject(project *types.Project) error
	GetProject(id string) (*types.Project, error)
	ListProjects() ([]*types.Project, error)
	UpdateProject(project *types.Project) error
	DeleteProject(id string) error

	// Pages
	CreatePage(page *types.Page) error
	GetPage(id string) (*types.Page, error)
	ListPages(projectID string) ([]*types.Page, error)
	UpdatePage(page *types.Page) error
	DeletePage(id string) error

	// Tabs
	CreateTab(tab *types.Tab) error
	GetTab(id string) (*types.Tab, error)
	ListTabs(pageID string) ([]*types.Tab, error)
	UpdateTab(tab *types.Tab) error
	DeleteTab(id string) error

	// Tab content
	GetTabData(tabID string) (*TabDataRecord, error)
	PutTabData(record *TabDataRecord) error
	DeleteTabData(tabID string) error

	// Metadata
	GetMeta(key string) ([]byte, error)
	PutMeta(key string, value []byte) error

	// Utility
	Close() error
}
