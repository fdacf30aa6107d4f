package worker

import (
	"github.com/hibiken/asynq"
)

// NewStageServer builds an asynq server bound to exactly one stage queue with
// its own concurrency bound. Running one server per stage keeps the pools
// independent: a burst of JPEG work cannot starve WEBP workers or vice versa.
func NewStageServer(opt asynq.RedisConnOpt, queueName string, concurrency int) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queueName: 1},
	})
}
