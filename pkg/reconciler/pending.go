package reconciler

import (
	"sort"
	"sync"
)

// DeleteKey is the pending-set key guarding deletes of one entity
func DeleteKey(realID string) string {
	return "delete:" + realID
}

// Pending is the set of in-flight operation keys used to suppress
// duplicate concurrent operations on the same entity.
type Pending struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewPending creates an empty set
func NewPending() *Pending {
	return &Pending{keys: make(map[string]struct{})}
}

// TryAcquire adds key and reports true, or reports false if key is
// already held.
func (p *Pending) TryAcquire(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, held := p.keys[key]; held {
		return false
	}
	p.keys[key] = struct{}{}
	return true
}

// TryAcquireAll adds every key and reports true, or adds none and reports
// false if any of them is already held.
func (p *Pending) TryAcquireAll(keys ...string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, key := range keys {
		if _, held := p.keys[key]; held {
			return false
		}
	}
	for _, key := range keys {
		p.keys[key] = struct{}{}
	}
	return true
}

// Release removes keys
func (p *Pending) Release(keys ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, key := range keys {
		delete(p.keys, key)
	}
}

// Has reports whether key is held
func (p *Pending) Has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, held := p.keys[key]
	return held
}

// Len returns the number of held keys
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// Keys returns the held keys, sorted
func (p *Pending) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	keys := make([]string, 0, len(p.keys))
	for key := range p.keys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Reset drops every key
func (p *Pending) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = make(map[string]struct{})
}
