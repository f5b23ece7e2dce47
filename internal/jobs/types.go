package jobs

import "encoding/json"

const (
	TaskRefreshContent = "content:refresh"
	QueueRefresh       = "refresh"
)

// RefreshContentPayload re-runs a field resolver with forceFetch set in Args
type RefreshContentPayload struct {
	Field string          `json:"field"`
	Args  json.RawMessage `json:"args"`
}
