package cache

import (
	"time"
)

// Status is the freshness classification of a cache lookup.
type Status int

const (
	// ForceFetch means the entry is unusable and must be fetched from source.
	ForceFetch Status = iota
	// QueueFetch means the entry is served but a refresh must be scheduled.
	QueueFetch
	// NoFetch means the entry is served as-is.
	NoFetch
)

func (s Status) String() string {
	switch s {
	case ForceFetch:
		return "force_fetch"
	case QueueFetch:
		return "queue_fetch"
	case NoFetch:
		return "no_fetch"
	default:
		return "unknown"
	}
}

// Provenance is the origin and schema version every served entry must carry.
type Provenance struct {
	Origin  string
	Version string
}

// Metadata returns the object metadata recorded for new writes.
func (p Provenance) Metadata() map[string]string {
	return map[string]string{
		MetaOrigin:       p.Origin,
		MetaCacheVersion: p.Version,
	}
}

// Admits reports whether obj was written under this provenance.
func (p Provenance) Admits(obj *Object) bool {
	if obj == nil || obj.Metadata == nil {
		return false
	}
	origin, ok := obj.Metadata[MetaOrigin]
	if !ok || origin != p.Origin {
		return false
	}
	version, ok := obj.Metadata[MetaCacheVersion]
	return ok && version == p.Version
}

// IsStale compares age against timeout in whole milliseconds; an entry exactly
// at the timeout is still fresh.
func IsStale(lastModified, now time.Time, timeout time.Duration) bool {
	return now.Sub(lastModified).Milliseconds() > timeout.Milliseconds()
}

// Evaluate classifies an object already known to decode correctly.
// A nil object, a read error or a provenance mismatch yields ForceFetch.
func Evaluate(obj *Object, readErr error, prov Provenance, timeout time.Duration, now time.Time) Status {
	if readErr != nil || !prov.Admits(obj) {
		return ForceFetch
	}
	if IsStale(obj.LastModified, now, timeout) {
		return QueueFetch
	}
	return NoFetch
}
