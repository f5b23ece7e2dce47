// Package cache persists fetched WordPress content in a blob store with
// provenance metadata and classifies cached entries by freshness.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a Store when no object exists for a key
var ErrNotFound = errors.New("cache object not found")

// Metadata keys attached to every content object
const (
	MetaOrigin       = "origin"
	MetaCacheVersion = "cache_version"
)

// Object is a stored blob with its metadata
type Object struct {
	Key          string
	Body         []byte
	ContentType  string
	Metadata     map[string]string
	LastModified time.Time // assigned by the store
}

// Reader defines the interface for reading stored objects
type Reader interface {
	// Get returns the object stored under key, or ErrNotFound
	Get(ctx context.Context, key string) (*Object, error)
}

// Writer defines the interface for writing stored objects
type Writer interface {
	// Put creates or overwrites the object under obj.Key
	Put(ctx context.Context, obj *Object) error
}

// Store combines both operations
type Store interface {
	Reader
	Writer
}
