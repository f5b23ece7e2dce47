package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/briangreenhill/wpcache/cache"
	"github.com/briangreenhill/wpcache/internal/config"
	"github.com/briangreenhill/wpcache/internal/jobs"
	"github.com/briangreenhill/wpcache/internal/refresh"
	"github.com/briangreenhill/wpcache/resolvers"
	"github.com/briangreenhill/wpcache/wordpress"
)

func TestFailureLevel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want zerolog.Level
	}{
		{"invoke timeout", errors.New("invoke wp-fetcher: context deadline exceeded"), zerolog.ErrorLevel},
		{"upstream", fmt.Errorf("getBlogList: %w: db down", wordpress.ErrUpstream), zerolog.ErrorLevel},
		{"corrupt", fmt.Errorf("%w: pages/about.json", cache.ErrCorrupt), zerolog.ErrorLevel},
		{"config", &config.ConfigError{Var: "SNS_TOPIC_ARN", Err: errors.New("missing")}, zerolog.ErrorLevel},
		{"shape", fmt.Errorf("getContentPage: %w", wordpress.ErrShape), zerolog.WarnLevel},
		{"not found", fmt.Errorf("getBlogList: %w", wordpress.ErrNotFound), zerolog.WarnLevel},
		{"unknown field", resolvers.ErrUnknownField, zerolog.WarnLevel},
		{"disabled", fmt.Errorf("schedule refresh: %w", refresh.ErrDisabled), zerolog.WarnLevel},
	}

	for _, tt := range tests {
		if got := failureLevel(tt.err); got != tt.want {
			t.Errorf("%s: failureLevel() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestDropTaskSkipsRetry(t *testing.T) {
	upstream := fmt.Errorf("getBlogList: %w: db down", wordpress.ErrUpstream)
	err := dropTask(upstream)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.ErrorIs(t, err, wordpress.ErrUpstream)

	err = refreshContent(context.Background(), nil, zerolog.Nop(), asynq.NewTask(jobs.TaskRefreshContent, []byte("{bad")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
