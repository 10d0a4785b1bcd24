package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

var (
	// Bucket names
	bucketProjects = []byte("projects")
	bucketPages    = []byte("pages")
	bucketTabs     = []byte("tabs")
	bucketTabData  = []byte("tab_data")
	bucketMeta     = []byte("meta")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store in dataDir
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "workspace.db")

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketProjects,
			bucketPages,
			bucketTabs,
			bucketTabData,
			bucketMeta,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) put(bucket []byte, id string, v any) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return tx.Bucket(bucket).Put([]byte(id), data)
	})
}

func (s *BoltStore) get(bucket []byte, kind, id string, v any) error {
	return s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
		}
		return json.Unmarshal(data, v)
	})
}

func (s *BoltStore) delete(bucket []byte, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(id))
	})
}

// Project operations
func (s *BoltStore) CreateProject(project *types.Project) error {
	stored := *project
	stored.Pages = nil
	return s.put(bucketProjects, project.ID, &stored)
}

func (s *BoltStore) GetProject(id string) (*types.Project, error) {
	var project types.Project
	if err := s.get(bucketProjects, "project", id, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *BoltStore) ListProjects() ([]*types.Project, error) {
	var projects []*types.Project
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProjects)
		return b.ForEach(func(k, v []byte) error {
			var project types.Project
			if err := json.Unmarshal(v, &project); err != nil {
				return err
			}
			projects = append(projects, &project)
			return nil
		})
	})
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].DisplayOrder < projects[j].DisplayOrder
	})
	return projects, err
}

func (s *BoltStore) UpdateProject(project *types.Project) error {
	return s.CreateProject(project) // Same as create (upsert)
}

func (s *BoltStore) DeleteProject(id string) error {
	return s.delete(bucketProjects, id)
}

// Page operations
func (s *BoltStore) CreatePage(page *types.Page) error {
	stored := *page
	stored.Tabs = nil
	return s.put(bucketPages, page.ID, &stored)
}

func (s *BoltStore) GetPage(id string) (*types.Page, error) {
	var page types.Page
	if err := s.get(bucketPages, "page", id, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *BoltStore) ListPages(projectID string) ([]*types.Page, error) {
	var pages []*types.Page
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPages)
		return b.ForEach(func(k, v []byte) error {
			var page types.Page
			if err := json.Unmarshal(v, &page); err != nil {
				return err
			}
			if page.ProjectID == projectID {
				pages = append(pages, &page)
			}
			return nil
		})
	})
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].DisplayOrder < pages[j].DisplayOrder
	})
	return pages, err
}

func (s *BoltStore) UpdatePage(page *types.Page) error {
	return s.CreatePage(page)
}

func (s *BoltStore) DeletePage(id string) error {
	return s.delete(bucketPages, id)
}

// Tab operations
func (s *BoltStore) CreateTab(tab *types.Tab) error {
	stored := *tab
	stored.Delta = nil
	stored.Merged = nil
	stored.NeedsPassword = false
	return s.put(bucketTabs, tab.ID, &stored)
}

func (s *BoltStore) GetTab(id string) (*types.Tab, error) {
	var tab types.Tab
	if err := s.get(bucketTabs, "tab", id, &tab); err != nil {
		return nil, err
	}
	return &tab, nil
}

func (s *BoltStore) ListTabs(pageID string) ([]*types.Tab, error) {
	var tabs []*types.Tab
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTabs)
		return b.ForEach(func(k, v []byte) error {
			var tab types.Tab
			if err := json.Unmarshal(v, &tab); err != nil {
				return err
			}
			if tab.PageID == pageID {
				tabs = append(tabs, &tab)
			}
			return nil
		})
	})
	sort.SliceStable(tabs, func(i, j int) bool {
		return tabs[i].DisplayOrder < tabs[j].DisplayOrder
	})
	return tabs, err
}

func (s *BoltStore) UpdateTab(tab *types.Tab) error {
	return s.CreateTab(tab)
}

func (s *BoltStore) DeleteTab(id string) error {
	return s.delete(bucketTabs, id)
}

// Tab content operations
func (s *BoltStore) GetTabData(tabID string) (*TabDataRecord, error) {
	var record TabDataRecord
	if err := s.get(bucketTabData, "tab data", tabID, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *BoltStore) PutTabData(record *TabDataRecord) error {
	return s.put(bucketTabData, record.TabID, record)
}

func (s *BoltStore) DeleteTabData(tabID string) error {
	return s.delete(bucketTabData, tabID)
}

// Metadata operations
func (s *BoltStore) GetMeta(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("meta %s: %w", key, ErrNotFound)
		}
		value = append([]byte(nil), data...)
		return nil
	})
	return value, err
}

func (s *BoltStore) PutMeta(key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put([]byte(key), value)
	})
}
