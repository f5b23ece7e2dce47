// Package event decodes inbound handler events, unwrapping SNS envelopes.
package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
)

// ErrMalformed is returned for events matching neither the direct nor the SNS shape
var ErrMalformed = errors.New("malformed event")

// Event is a decoded request
type Event struct {
	Field string
	Args  json.RawMessage
	// FromNotification is set when the event arrived inside an SNS envelope.
	FromNotification bool
}

type direct struct {
	Field string          `json:"field"`
	Args  json.RawMessage `json:"args"`
}

// Decode accepts {field, args} or {Records:[{Sns:{Message}}]} whose Message
// is a JSON string of the direct shape. Only Records[0] is read.
func Decode(raw []byte) (Event, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if _, ok := probe["Records"]; ok {
		var env events.SNSEvent
		if err := json.Unmarshal(raw, &env); err != nil {
			return Event{}, fmt.Errorf("%w: sns envelope: %v", ErrMalformed, err)
		}
		if len(env.Records) == 0 {
			return Event{}, fmt.Errorf("%w: sns envelope has no records", ErrMalformed)
		}
		ev, err := decodeDirect([]byte(env.Records[0].SNS.Message))
		if err != nil {
			return Event{}, fmt.Errorf("sns message: %w", err)
		}
		ev.FromNotification = true
		return ev, nil
	}

	return decodeDirect(raw)
}

func decodeDirect(raw []byte) (Event, error) {
	var d direct
	if err := json.Unmarshal(raw, &d); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if d.Field == "" {
		return Event{}, fmt.Errorf("%w: missing field", ErrMalformed)
	}
	args := bytes.TrimSpace(d.Args)
	if len(args) == 0 || bytes.Equal(args, []byte("null")) {
		args = []byte("{}")
	}
	if args[0] != '{' {
		return Event{}, fmt.Errorf("%w: args must be an object", ErrMalformed)
	}
	return Event{Field: d.Field, Args: json.RawMessage(args)}, nil
}
