// Package registry caches schema-bound handles for the ad-hoc per-room
// collections. A handle is constructed at most once per collection name
// and reused for the remainder of the process lifetime; it is never
// evicted or invalidated.
package registry

import (
	"errors"
	"regexp"
	"sync"
)

// ErrInvalidName is returned for collection names that do not match the
// generated format. Rejecting them here also keeps unvetted input out of
// SQL identifiers further down.
var ErrInvalidName = errors.New("registry: invalid collection name")

// Collection names are 8 random bytes, hex encoded.
var namePattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

// ValidName reports whether name is a well-formed collection name.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Handle is a resolved, schema-bound reference to one collection. All
// rows written through a handle share the canonical inventory row shape.
type Handle struct {
	name  string
	shape RowShape
}

// Name returns the collection name the handle was resolved for.
func (h *Handle) Name() string { return h.name }

// Table returns the physical table identifier for the collection. The
// prefix keeps generated names (which may start with a digit) valid as
// unquoted SQL identifiers.
func (h *Handle) Table() string { return "inv_" + h.name }

// Shape returns the row shape the handle is bound to.
func (h *Handle) Shape() RowShape { return h.shape }

// Registry maps collection names to handles with create-on-miss
// semantics. Safe for concurrent use: at most one handle is constructed
// per name, and every caller observes the same handle afterwards.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*Handle
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// Resolve returns the handle for name, constructing and caching it on
// first use. The only failure mode is a malformed name.
func (r *Registry) Resolve(name string) (*Handle, error) {
	if !ValidName(name) {
		return nil, ErrInvalidName
	}

	r.mu.RLock()
	h, ok := r.handles[name]
	r.mu.RUnlock()
	if ok {
		return h, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have raced us here; keep the first handle.
	if h, ok := r.handles[name]; ok {
		return h, nil
	}

	h = &Handle{name: name, shape: InventoryShape()}
	r.handles[name] = h
	return h, nil
}

// Len returns the number of cached handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
