package analysis

import (
	"context"
	"errors"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrRegistryClosed is returned once Close has been called.
var ErrRegistryClosed = errors.New("analyzer registry closed")

// Factory builds the analyzer of a language.
type Factory func(ctx context.Context, language string) (*Analyzer, error)

// Registry is the process-wide cache of analyzers. Concurrent requests for the
// same language share one construction; a failed construction is not cached.
type Registry struct {
	factory Factory
	group   singleflight.Group
	cache   sync.Map // language -> *Analyzer

	mu     sync.RWMutex
	closed bool
}

// NewRegistry creates a registry around factory.
func NewRegistry(factory Factory) *Registry {
	return &Registry{factory: factory}
}

// Analyzer returns the cached analyzer of language, building it at most once.
func (r *Registry) Analyzer(ctx context.Context, language string) (*Analyzer, error) {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrRegistryClosed
	}

	if a, ok := r.cache.Load(language); ok {
		return a.(*Analyzer), nil
	}

	v, err, _ := r.group.Do(language, func() (any, error) {
		if a, ok := r.cache.Load(language); ok {
			return a, nil
		}
		a, err := r.factory(ctx, language)
		if err != nil {
			return nil, err
		}
		actual, _ := r.cache.LoadOrStore(language, a)
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Analyzer), nil
}

// Languages lists the languages built so far.
func (r *Registry) Languages() []string {
	var out []string
	r.cache.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	sort.Strings(out)
	return out
}

// Close drops every cached analyzer. Later lookups fail.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.cache.Range(func(k, _ any) bool {
		r.cache.Delete(k)
		return true
	})
	return nil
}
