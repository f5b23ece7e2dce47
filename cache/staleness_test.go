package cache

import (
	"errors"
	"testing"
	"time"
)

func TestEvaluate(t *testing.T) {
	prov := Provenance{Origin: "https://wp.example.com", Version: "3"}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	timeout := 10 * time.Minute

	obj := func(origin, version string, age time.Duration) *Object {
		return &Object{
			Metadata:     map[string]string{MetaOrigin: origin, MetaCacheVersion: version},
			LastModified: now.Add(-age),
		}
	}

	tests := []struct {
		name     string
		obj      *Object
		err      error
		expected Status
	}{
		{"missing", nil, ErrNotFound, ForceFetch},
		{"unreadable", obj(prov.Origin, prov.Version, 0), errors.New("access denied"), ForceFetch},
		{"no metadata", &Object{LastModified: now}, nil, ForceFetch},
		{"origin mismatch", obj("https://old.example.com", prov.Version, time.Minute), nil, ForceFetch},
		{"version mismatch", obj(prov.Origin, "2", time.Minute), nil, ForceFetch},
		{"mismatch ignores age", obj(prov.Origin, "2", time.Hour), nil, ForceFetch},
		{"fresh", obj(prov.Origin, prov.Version, time.Minute), nil, NoFetch},
		{"exactly at timeout", obj(prov.Origin, prov.Version, timeout), nil, NoFetch},
		{"one millisecond past timeout", obj(prov.Origin, prov.Version, timeout+time.Millisecond), nil, QueueFetch},
		{"sub-millisecond past timeout", obj(prov.Origin, prov.Version, timeout+time.Microsecond), nil, NoFetch},
		{"stale", obj(prov.Origin, prov.Version, time.Hour), nil, QueueFetch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.obj, tt.err, prov, timeout, now); got != tt.expected {
				t.Errorf("Evaluate() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestImageKey(t *testing.T) {
	tests := []struct {
		htmlSrc  string
		expected string
	}{
		{"$$DOMAIN$$/2024/05/team.jpg", "images/2024/05/team.jpg"},
		{"$$DOMAIN$$2024/05/team.jpg", "images/2024/05/team.jpg"},
		{"/uploads/logo.png", "images/uploads/logo.png"},
	}

	for _, tt := range tests {
		if got := ImageKey(tt.htmlSrc); got != tt.expected {
			t.Errorf("ImageKey(%q) = %s, want %s", tt.htmlSrc, got, tt.expected)
		}
	}
}
