package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueAlerts = "jobs:alerts"

	JobDiscrepancyAlert = "discrepancy_alert"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Processor handles one job payload. Returning an error sends the job to the
// dead letter queue.
type Processor interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueAlert pushes a discrepancy alert job to Redis.
func (d *Dispatcher) EnqueueAlert(ctx context.Context, payload AlertJobPayload) error {
	return d.enqueue(ctx, QueueAlerts, JobDiscrepancyAlert, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Pool consumes job queues with a fixed number of goroutines.
type Pool struct {
	rdb        *redis.Client
	processors map[string]Processor
	queues     []string
}

func NewPool(rdb *redis.Client) *Pool {
	return &Pool{rdb: rdb, processors: map[string]Processor{}}
}

// Register routes jobs of jobType, read from queue, to p.
func (p *Pool) Register(queue, jobType string, proc Processor) {
	p.processors[jobType] = proc
	for _, q := range p.queues {
		if q == queue {
			return
		}
	}
	p.queues = append(p.queues, queue)
}

// Start launches numWorkers goroutines. Each blocks on BRPOP, so idle
// workers cost nothing.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	if len(p.queues) == 0 {
		log.Warn().Msg("worker pool: no queues registered")
		return
	}
	for i := 0; i < numWorkers; i++ {
		go p.run(ctx, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

// Poll backoff while Redis is unreachable.
const (
	minPollBackoff = 500 * time.Millisecond
	maxPollBackoff = 30 * time.Second
)

func nextPollBackoff(cur time.Duration) time.Duration {
	if cur < minPollBackoff {
		return minPollBackoff
	}
	if cur*2 > maxPollBackoff {
		return maxPollBackoff
	}
	return cur * 2
}

func (p *Pool) run(ctx context.Context, id int) {
	var backoff time.Duration
	for {
		if ctx.Err() != nil {
			log.Info().Msgf("worker %d shutting down", id)
			return
		}
		// waits up to 5s then loops to check ctx
		result, err := p.rdb.BRPop(ctx, 5*time.Second, p.queues...).Result()
		switch {
		case err == nil:
			backoff = 0
		case errors.Is(err, redis.Nil) || ctx.Err() != nil:
			continue
		default:
			backoff = nextPollBackoff(backoff)
			log.Error().Err(err).Int("worker", id).Dur("retry_in", backoff).Msg("worker pool: dequeue failed")
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
			continue
		}
		if len(result) < 2 {
			continue
		}
		p.dispatch(ctx, result[0], result[1])
	}
}

func (p *Pool) dispatch(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, p.rdb, queue, "unknown", json.RawMessage(raw), "unmarshal: "+err.Error(), 0)
		return
	}
	proc, ok := p.processors[job.Type]
	if !ok {
		log.Error().Str("type", job.Type).Str("queue", queue).Msg("no processor for job type")
		SendToDLQ(ctx, p.rdb, queue, job.Type, job.Payload, "no processor", 0)
		return
	}
	if err := proc.Process(ctx, job.Payload); err != nil {
		SendToDLQ(ctx, p.rdb, queue, job.Type, job.Payload, err.Error(), maxAttempts)
	}
}
