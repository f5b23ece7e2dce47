// Package resolvers implements the four content fields served by the handler
package resolvers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownField is returned for a field name with no registered resolver
var ErrUnknownField = errors.New("unknown field")

// ErrInvalidArgs is returned when a field's args do not decode
var ErrInvalidArgs = errors.New("invalid args")

// Resolver defines the interface every content field implements
type Resolver interface {
	// Name returns the field name (e.g., "getContentPage")
	Name() string

	// Resolve loads the field's content through l and returns the transformed output
	Resolve(ctx context.Context, l *Loader, args json.RawMessage) (any, error)
}

// Registry maps field names to resolvers
type Registry struct {
	resolvers map[string]Resolver
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		resolvers: make(map[string]Resolver),
	}
}

// NewDefaultRegistry returns a registry holding the four content fields
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ContentPage{})
	r.Register(BlogList{})
	r.Register(BlogCategoryList{})
	r.Register(SitemapBlogList{})
	return r
}

// Register adds a resolver to the registry
func (r *Registry) Register(res Resolver) {
	r.resolvers[res.Name()] = res
}

// Get retrieves a resolver by field name
func (r *Registry) Get(field string) (Resolver, error) {
	res, ok := r.resolvers[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return res, nil
}

// List returns all registered field names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.resolvers))
	for name := range r.resolvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
