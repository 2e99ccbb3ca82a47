package provider

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Category groups providers by the pipeline stage they serve
type Category string

// Provider categories
const (
	CategoryContent    Category = "content"
	CategoryAI         Category = "ai"
	CategoryTTS        Category = "tts"
	CategoryBackground Category = "background"
	CategoryStore      Category = "store"
)

// Categories lists every category in pipeline order
var Categories = []Category{CategoryContent, CategoryAI, CategoryTTS, CategoryBackground, CategoryStore}

// Kind identifies one registered provider
type Kind struct {
	Category Category
	Name     string
}

func (k Kind) String() string {
	return string(k.Category) + "/" + k.Name
}

// Constructor builds a provider instance
type Constructor func() (any, error)

// Registry maps provider kinds to constructors and holds lazily built instances
type Registry struct {
	mu           sync.Mutex
	constructors map[Kind]Constructor
	instances    map[Kind]any
	built        []Kind
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[Kind]Constructor),
		instances:    make(map[Kind]any),
	}
}

// Register adds a constructor for kind
func (r *Registry) Register(kind Kind, ctor Constructor) error {
	if kind.Name == "" || ctor == nil {
		return fmt.Errorf("register %s: name and constructor are required", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[kind]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, kind)
	}
	r.constructors[kind] = ctor
	return nil
}

// Resolve returns the instance for (category, name), constructing it on first use.
// A failed construction is not cached so a later Resolve retries it.
func (r *Registry) Resolve(category Category, name string) (any, error) {
	kind := Kind{Category: category, Name: name}

	r.mu.Lock()
	defer r.mu.Unlock()

	if inst, ok := r.instances[kind]; ok {
		return inst, nil
	}

	ctor, ok := r.constructors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, kind)
	}

	inst, err := ctor()
	if err != nil {
		return nil, &InitError{Kind: kind, Err: err}
	}
	if inst == nil {
		return nil, &InitError{Kind: kind, Err: errors.New("constructor returned nil")}
	}

	r.instances[kind] = inst
	r.built = append(r.built, kind)
	return inst, nil
}

// Names returns the registered provider names in category, sorted
func (r *Registry) Names(category Category) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var names []string
	for kind := range r.constructors {
		if kind.Category == category {
			names = append(names, kind.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Built reports whether kind has a live instance
func (r *Registry) Built(kind Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.instances[kind]
	return ok
}

// Close closes every built instance that implements io.Closer, newest first
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.built) - 1; i >= 0; i-- {
		kind := r.built[i]
		if closer, ok := r.instances[kind].(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", kind, err))
			}
		}
		delete(r.instances, kind)
	}
	r.built = nil
	return errors.Join(errs...)
}

// Resolve returns the provider for (category, name) as capability T
func Resolve[T any](r *Registry, category Category, name string) (T, error) {
	var zero T
	inst, err := r.Resolve(category, name)
	if err != nil {
		return zero, err
	}
	typed, ok := inst.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrWrongCapability, Kind{Category: category, Name: name}, inst)
	}
	return typed, nil
}
