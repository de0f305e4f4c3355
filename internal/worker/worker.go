package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	DefaultKeyPrefix = "tasktracker:jobs:"
	defaultMaxTries  = 3
	jobTimeout       = 30 * time.Second
	promoteBatchSize = 100
)

type JobType string

const (
	JobTypeTokenCleanup JobType = "token_cleanup"
)

type Job struct {
	ID        string                 `json:"id"`
	Type      JobType                `json:"type"`
	Queue     string                 `json:"queue"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Attempts  int                    `json:"attempts"`
	MaxTries  int                    `json:"max_tries"`
	CreatedAt time.Time              `json:"created_at"`
	ProcessAt time.Time              `json:"process_at"`
}

type JobHandler func(ctx context.Context, job *Job) error

var ErrNoHandler = errors.New("no handler registered for job type")

type Worker struct {
	queue    *JobQueue
	handlers map[JobType]JobHandler
	queues   []string
	poll     time.Duration
	backoff  func(attempts int) time.Duration
	logger   zerolog.Logger
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

type WorkerConfig struct {
	Queue        *JobQueue
	PollInterval time.Duration
	Queues       []string
}

func NewWorker(config WorkerConfig, logger zerolog.Logger) *Worker {
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if len(config.Queues) == 0 {
		config.Queues = []string{"default"}
	}

	return &Worker{
		queue:    config.Queue,
		handlers: make(map[JobType]JobHandler),
		queues:   config.Queues,
		poll:     config.PollInterval,
		backoff: func(attempts int) time.Duration {
			return time.Duration(1<<attempts) * time.Minute
		},
		logger: logger.With().Str("component", "worker").Logger(),
	}
}

func (w *Worker) RegisterHandler(jobType JobType, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

// Start launches the worker loops. They exit when ctx is cancelled; Wait
// blocks until they have.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	if concurrency < 1 {
		concurrency = 1
	}
	w.logger.Info().Int("concurrency", concurrency).Strs("queues", w.queues).Msg("starting worker")

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.loop(ctx)
	}
}

func (w *Worker) Wait() {
	w.wg.Wait()
	w.logger.Info().Msg("worker stopped")
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()

	for ctx.Err() == nil {
		if err := w.processNext(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("error processing job")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// processNext moves due delayed jobs onto their queues, then waits up to
// the poll interval for one job and runs it.
func (w *Worker) processNext(ctx context.Context) error {
	if _, err := w.queue.PromoteDue(ctx); err != nil {
		return err
	}

	job, err := w.queue.Pop(ctx, w.poll, w.queues...)
	if err != nil || job == nil {
		return err
	}
	return w.execute(ctx, job)
}

func (w *Worker) execute(ctx context.Context, job *Job) error {
	w.mu.RLock()
	handler, exists := w.handlers[job.Type]
	w.mu.RUnlock()

	log := w.logger.With().Str("job_id", job.ID).Str("job_type", string(job.Type)).Logger()
	if !exists {
		log.Error().Msg("dropping job without handler")
		return w.queue.Bury(ctx, job, fmt.Errorf("%w: %s", ErrNoHandler, job.Type))
	}

	jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	err := handler(jobCtx, job)
	if err == nil {
		log.Debug().Msg("job completed")
		return nil
	}

	job.Attempts++
	if job.Attempts < job.MaxTries {
		delay := w.backoff(job.Attempts)
		log.Warn().Err(err).Int("attempt", job.Attempts).Int("max_tries", job.MaxTries).
			Dur("retry_in", delay).Msg("job failed, retrying")
		job.ProcessAt = w.queue.now().Add(delay)
		return w.queue.push(ctx, job)
	}

	log.Error().Err(err).Int("attempts", job.Attempts).Msg("job failed permanently")
	return w.queue.Bury(ctx, job, err)
}

// JobQueue stores jobs in redis lists, one per queue. Jobs scheduled for
// later sit in a sorted set scored by their due time until promoted.
type JobQueue struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewJobQueue(client *redis.Client, prefix string) *JobQueue {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &JobQueue{client: client, prefix: prefix, now: time.Now}
}

func (q *JobQueue) queueKey(queue string) string { return q.prefix + "queue:" + queue }
func (q *JobQueue) delayedKey() string           { return q.prefix + "delayed" }
func (q *JobQueue) deadKey() string              { return q.prefix + "dead" }

func (q *JobQueue) Enqueue(ctx context.Context, queue string, jobType JobType, payload map[string]interface{}) (*Job, error) {
	return q.EnqueueAt(ctx, queue, jobType, payload, q.now())
}

func (q *JobQueue) EnqueueAt(ctx context.Context, queue string, jobType JobType, payload map[string]interface{}, processAt time.Time) (*Job, error) {
	id, err := newJobID()
	if err != nil {
		return nil, err
	}

	job := &Job{
		ID:        id,
		Type:      jobType,
		Queue:     queue,
		Payload:   payload,
		MaxTries:  defaultMaxTries,
		CreatedAt: q.now(),
		ProcessAt: processAt,
	}
	if err := q.push(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// push appends a due job to its queue or parks a future one in the
// delayed set.
func (q *JobQueue) push(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if job.ProcessAt.After(q.now()) {
		return q.client.ZAdd(ctx, q.delayedKey(), redis.Z{
			Score:  float64(job.ProcessAt.UnixMilli()),
			Member: data,
		}).Err()
	}
	return q.client.RPush(ctx, q.queueKey(job.Queue), data).Err()
}

// Pop blocks up to timeout for a job on any of the queues, in order.
// It returns nil, nil when nothing arrived.
func (q *JobQueue) Pop(ctx context.Context, timeout time.Duration, queues ...string) (*Job, error) {
	keys := make([]string, len(queues))
	for i, queue := range queues {
		keys[i] = q.queueKey(queue)
	}

	result, err := q.client.BLPop(ctx, timeout, keys...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop job: %w", err)
	}
	if len(result) < 2 {
		return nil, errors.New("invalid job result")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// PromoteDue moves delayed jobs whose time has come onto their queues.
// ZREM decides ownership, so concurrent workers never promote a job twice.
func (q *JobQueue) PromoteDue(ctx context.Context) (int, error) {
	due, err := q.client.ZRangeByScore(ctx, q.delayedKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(q.now().UnixMilli(), 10),
		Count: promoteBatchSize,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read delayed jobs: %w", err)
	}

	promoted := 0
	for _, data := range due {
		removed, err := q.client.ZRem(ctx, q.delayedKey(), data).Result()
		if err != nil {
			return promoted, fmt.Errorf("failed to claim delayed job: %w", err)
		}
		if removed == 0 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(data), &job); err != nil {
			return promoted, fmt.Errorf("failed to unmarshal job: %w", err)
		}
		if err := q.client.RPush(ctx, q.queueKey(job.Queue), data).Err(); err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

// Bury records a job that will not be retried.
func (q *JobQueue) Bury(ctx context.Context, job *Job, jobErr error) error {
	data, err := json.Marshal(map[string]interface{}{
		"job":       job,
		"error":     jobErr.Error(),
		"failed_at": q.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal dead job: %w", err)
	}
	return q.client.RPush(ctx, q.deadKey(), data).Err()
}

func (q *JobQueue) Size(ctx context.Context, queue string) (int64, error) {
	return q.client.LLen(ctx, q.queueKey(queue)).Result()
}

func (q *JobQueue) DelayedSize(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.delayedKey()).Result()
}

func (q *JobQueue) DeadSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.deadKey()).Result()
}

func (q *JobQueue) Stats(ctx context.Context, queues ...string) map[string]interface{} {
	stats := make(map[string]interface{}, len(queues)+2)
	for _, queue := range queues {
		if size, err := q.Size(ctx, queue); err == nil {
			stats["queue_"+queue] = size
		}
	}
	if size, err := q.DelayedSize(ctx); err == nil {
		stats["delayed"] = size
	}
	if size, err := q.DeadSize(ctx); err == nil {
		stats["dead"] = size
	}
	return stats
}
