package types

import (
	"time"
)

// Kind identifies the calculator/template a tab renders
type Kind string

const (
	KindWelcome      Kind = "welcome"
	KindDesignTables Kind = "design_tables"
	KindSnowLoad     Kind = "snow_load"
	KindWindLoad     Kind = "wind_load"
	KindSeismic      Kind = "seismic"
)

// Content is a JSON object tree. Deltas, templates and merged views all
// share this representation.
type Content map[string]any

// Workspace is the root of a user's tree. It is created once and never
// deleted, only emptied.
type Workspace struct {
	Projects []*Project `json:"projects"`
}

// Project exclusively owns its pages
type Project struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	DisplayOrder int       `json:"displayOrder"`
	IsExpanded   bool      `json:"isExpanded"`
	Pages        []*Page   `json:"pages,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

// Page belongs to exactly one project at a time
type Page struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"projectId"`
	Name         string    `json:"name"`
	DisplayOrder int       `json:"displayOrder"`
	Tabs         []*Tab    `json:"tabs,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

// Tab holds one calculator instance. Only Delta is ever persisted;
// Merged is always re-derived from the template.
type Tab struct {
	ID            string    `json:"id"`
	PageID        string    `json:"pageId"`
	Name          string    `json:"name"`
	Kind          Kind      `json:"tabType"`
	DisplayOrder  int       `json:"displayOrder"`
	IsActive      bool      `json:"isActive"`
	IsLocked      bool      `json:"isLocked"`
	Delta         Content   `json:"-"`
	Merged        Content   `json:"mergedData,omitempty"`
	NeedsPassword bool      `json:"needsPassword,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

// TabData is the stored content of a tab as returned by the backend
type TabData struct {
	TabID       string  `json:"tabId"`
	Delta       Content `json:"data"`
	IsEncrypted bool    `json:"isEncrypted"`
}

// ProjectPatch is a partial project update. Nil fields are left unchanged.
type ProjectPatch struct {
	Name       *string `json:"name,omitempty"`
	IsExpanded *bool   `json:"isExpanded,omitempty"`
}

// PagePatch is a partial page update
type PagePatch struct {
	Name *string `json:"name,omitempty"`
}

// TabPatch is a partial tab update
type TabPatch struct {
	Name     *string `json:"name,omitempty"`
	Kind     *Kind   `json:"tabType,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
	IsLocked *bool   `json:"isLocked,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p ProjectPatch) IsEmpty() bool {
	return p.Name == nil && p.IsExpanded == nil
}

// IsEmpty reports whether the patch changes nothing
func (p PagePatch) IsEmpty() bool {
	return p.Name == nil
}

// IsEmpty reports whether the patch changes nothing
func (p TabPatch) IsEmpty() bool {
	return p.Name == nil && p.Kind == nil && p.IsActive == nil && p.IsLocked == nil
}

// Apply applies the patch to the project in place
func (p ProjectPatch) Apply(project *Project) {
	if p.Name != nil {
		project.Name = *p.Name
	}
	if p.IsExpanded != nil {
		project.IsExpanded = *p.IsExpanded
	}
}

// Apply applies the patch to the page in place
func (p PagePatch) Apply(page *Page) {
	if p.Name != nil {
		page.Name = *p.Name
	}
}

// Apply applies the patch to the tab in place
func (p TabPatch) Apply(tab *Tab) {
	if p.Name != nil {
		tab.Name = *p.Name
	}
	if p.Kind != nil {
		tab.Kind = *p.Kind
	}
	if p.IsActive != nil {
		tab.IsActive = *p.IsActive
	}
	if p.IsLocked != nil {
		tab.IsLocked = *p.IsLocked
	}
}

// Clone returns a deep copy of the content tree
func (c Content) Clone() Content {
	if c == nil {
		return nil
	}
	return CloneValue(map[string]any(c)).(map[string]any)
}

// CloneValue deep-copies a JSON value. Maps and slices are copied,
// scalars are returned as is.
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = CloneValue(child)
		}
		return out
	case Content:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = CloneValue(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = CloneValue(child)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return val
	}
}

// Clone returns a deep copy of the project including pages and tabs
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := *p
	out.Pages = make([]*Page, 0, len(p.Pages))
	for _, page := range p.Pages {
		out.Pages = append(out.Pages, page.Clone())
	}
	return &out
}

// Clone returns a deep copy of the page including tabs
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	out := *p
	out.Tabs = make([]*Tab, 0, len(p.Tabs))
	for _, tab := range p.Tabs {
		out.Tabs = append(out.Tabs, tab.Clone())
	}
	return &out
}

// Clone returns a deep copy of the tab
func (t *Tab) Clone() *Tab {
	if t == nil {
		return nil
	}
	out := *t
	out.Delta = t.Delta.Clone()
	out.Merged = t.Merged.Clone()
	return &out
}

// Clone returns a deep copy of the workspace
func (w *Workspace) Clone() *Workspace {
	if w == nil {
		return &Workspace{}
	}
	out := &Workspace{Projects: make([]*Project, 0, len(w.Projects))}
	for _, p := range w.Projects {
		out.Projects = append(out.Projects, p.Clone())
	}
	return out
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string { return &s }

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool { return &b }

// KindPtr returns a pointer to k
func KindPtr(k Kind) *Kind { return &k }
