package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/wpcache/internal/jobs"
)

// Enqueuer is the subset of *asynq.Client used by QueuePublisher
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueuePublisher enqueues refresh tasks for cmd/worker
type QueuePublisher struct {
	client Enqueuer
}

func NewQueuePublisher(client Enqueuer) *QueuePublisher {
	return &QueuePublisher{client: client}
}

func (p *QueuePublisher) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(jobs.RefreshContentPayload{Field: msg.Field, Args: msg.Args})
	if err != nil {
		return fmt.Errorf("encode refresh task: %w", err)
	}
	task := asynq.NewTask(jobs.TaskRefreshContent, payload)

	info, err := p.client.EnqueueContext(ctx, task,
		asynq.Queue(jobs.QueueRefresh),
		asynq.MaxRetry(0),
		asynq.Timeout(2*time.Minute),
	)
	if err != nil {
		return fmt.Errorf("enqueue refresh %s: %w", msg.Field, err)
	}
	zerolog.Ctx(ctx).Info().Str("field", msg.Field).Str("task_id", info.ID).Str("queue", info.Queue).
		Msg("refresh enqueued")
	return nil
}
