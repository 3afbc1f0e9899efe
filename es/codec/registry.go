package codec

import (
	"reflect"
	"sort"
	"sync"
)

// Registry maps event type names to Go types for decoding.
type Registry struct {
	types map[string]reflect.Type
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]reflect.Type)}
}

// Register maps name to T. Payloads stored under name decode into a T value.
// Registering a name twice replaces the previous type.
func Register[T any](r *Registry, name string) {
	var zero T
	t := reflect.TypeOf(&zero).Elem()
	r.mu.Lock()
	r.types[name] = t
	r.mu.Unlock()
}

// New returns a pointer to a new zero value of the type registered under name.
func (r *Registry) New(name string) (reflect.Value, bool) {
	r.mu.RLock()
	t, ok := r.types[name]
	r.mu.RUnlock()
	if !ok {
		return reflect.Value{}, false
	}
	return reflect.New(t), true
}

// Names returns the registered type names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
