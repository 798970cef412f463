// Package jobs wraps the asynq deferred-job queue. Jobs are keyed by order
// id, so at most one sync per order is ever pending.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/faelmarcondeli/backorder-confirmation/internal/tiny"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

const (
	TaskTinySync = "tiny:sync"

	queueNotifications = "notifications"
)

type TinySyncPayload struct {
	OrderID int64 `json:"order_id"`
}

type Queue struct{ client *asynq.Client }

func NewQueue(redisAddr string) *Queue {
	return &Queue{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

func (q *Queue) Close() error { return q.client.Close() }

// ScheduleTinySync enqueues the deferred sync for orderID. The task id pins
// one pending job per order: a conflict means one is already queued, which is
// reported as scheduled=false, not an error. The job never auto-retries;
// a failed run completes the task so the id frees and a manual PROCESSING
// re-save can schedule a fresh attempt.
func (q *Queue) ScheduleTinySync(ctx context.Context, orderID int64, delay time.Duration) (bool, error) {
	b, err := json.Marshal(TinySyncPayload{OrderID: orderID})
	if err != nil {
		return false, err
	}
	task := asynq.NewTask(TaskTinySync, b)
	_, err = q.client.EnqueueContext(ctx, task,
		asynq.TaskID(fmt.Sprintf("%s:%d", TaskTinySync, orderID)),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(0),
		asynq.Queue(queueNotifications),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func NewMux(wf *tiny.Workflow) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTinySync, func(ctx context.Context, t *asynq.Task) error {
		var p TinySyncPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			log.Error().Err(err).Msg("tiny sync: dropping malformed payload")
			return nil
		}
		// failures are terminal but complete the task instead of archiving
		// it: an archived task would keep holding the task id and block the
		// operator's re-trigger from enqueueing
		if err := wf.Run(ctx, p.OrderID); err != nil {
			log.Error().Err(err).Int64("order_id", p.OrderID).Msg("tiny sync aborted")
		}
		return nil
	})
	return mux
}

// StartServer runs the asynq server in the background and returns a shutdown
// func.
func StartServer(redisAddr string, concurrency int, mux *asynq.ServeMux) func() {
	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queueNotifications: 1},
	})
	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatal().Err(err).Msg("asynq server exited")
		}
	}()
	return srv.Shutdown
}
