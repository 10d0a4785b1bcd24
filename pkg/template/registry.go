package template

import (
	"errors"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

// ErrUnknownKind is returned for a tab kind that has no template
var ErrUnknownKind = errors.New("unknown tab kind")

// Registry holds the canonical template of every tab kind. Templates are
// never handed out directly; every read returns a fresh deep copy.
type Registry struct {
	templates map[types.Kind]types.Content
	schemas   map[types.Kind]*jsonschema.Schema
}

// NewRegistry creates a registry with the built-in templates
func NewRegistry() (*Registry, error) {
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	return &Registry{
		templates: builtinTemplates(),
		schemas:   schemas,
	}, nil
}

// MustNewRegistry is like NewRegistry but panics on error
func MustNewRegistry() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve maps a kind or one of its legacy display names to the canonical kind
func (r *Registry) Resolve(kind types.Kind) (types.Kind, error) {
	if _, ok := r.templates[kind]; ok {
		return kind, nil
	}
	if canonical, ok := aliases[string(kind)]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// IsValidKind reports whether kind, or the alias it stands for, has a template
func (r *Registry) IsValidKind(kind types.Kind) bool {
	_, err := r.Resolve(kind)
	return err == nil
}

// Kinds returns the canonical kinds, sorted
func (r *Registry) Kinds() []types.Kind {
	kinds := make([]types.Kind, 0, len(r.templates))
	for kind := range r.templates {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// IsStorageBacked reports whether tabs of this kind persist content.
// Welcome and design table tabs render their template only.
func (r *Registry) IsStorageBacked(kind types.Kind) bool {
	canonical, err := r.Resolve(kind)
	if err != nil {
		return false
	}
	return !templateOnly[canonical]
}

// Get returns a deep copy of the template for kind
func (r *Registry) Get(kind types.Kind) (types.Content, error) {
	canonical, err := r.Resolve(kind)
	if err != nil {
		return nil, err
	}
	return r.templates[canonical].Clone(), nil
}

// Merge deep-merges delta onto the template of kind
func (r *Registry) Merge(kind types.Kind, delta types.Content) (types.Content, error) {
	merged, err := r.Get(kind)
	if err != nil {
		return nil, err
	}
	if len(delta) == 0 {
		return merged, nil
	}
	return mergeInto(merged, delta), nil
}

// ExtractDelta returns the minimal delta that reproduces current when merged
// onto the template of kind. The immutable subtree is never included.
func (r *Registry) ExtractDelta(kind types.Kind, current types.Content) (types.Content, error) {
	tmpl, err := r.Get(kind)
	if err != nil {
		return nil, err
	}
	return diff(tmpl, current), nil
}

// Validate checks a merged view against the schema of kind
func (r *Registry) Validate(kind types.Kind, merged types.Content) error {
	canonical, err := r.Resolve(kind)
	if err != nil {
		return err
	}
	sch, ok := r.schemas[canonical]
	if !ok {
		return nil
	}

	inst, err := normalize(merged)
	if err != nil {
		return &ValidationError{Kind: canonical, Reason: err.Error()}
	}
	if err := sch.Validate(inst); err != nil {
		return newValidationError(canonical, err)
	}
	return nil
}
