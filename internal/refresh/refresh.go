// Package refresh schedules background re-fetches of stale cache entries.
package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrDisabled is returned by Disabled. Reaching it means a request that must
// not re-publish tried to, which is a configuration error.
var ErrDisabled = errors.New("refresh publishing disabled for this request")

// Message is the event re-delivered to the handler. Args always carries
// forceFetch: true.
type Message struct {
	Field string          `json:"field"`
	Args  json.RawMessage `json:"args"`
}

// Publisher delivers refresh messages
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// NewMessage copies args and sets forceFetch. Null or empty args become an
// object holding only the flag.
func NewMessage(field string, args json.RawMessage) (Message, error) {
	obj := map[string]json.RawMessage{}
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, &obj); err != nil {
			return Message{}, fmt.Errorf("refresh args for %s: %w", field, err)
		}
		if obj == nil {
			obj = map[string]json.RawMessage{}
		}
	}
	obj["forceFetch"] = json.RawMessage("true")

	out, err := json.Marshal(obj)
	if err != nil {
		return Message{}, err
	}
	return Message{Field: field, Args: out}, nil
}

type disabled struct{}

// Disabled is the publisher used for notification-sourced requests
var Disabled Publisher = disabled{}

func (disabled) Publish(ctx context.Context, msg Message) error {
	zerolog.Ctx(ctx).Error().Str("field", msg.Field).Msg("refresh publish attempted without a topic")
	return ErrDisabled
}
