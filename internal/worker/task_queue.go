package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var errPanicked = errors.New("task panicked")

// TaskFunc is a unit of best-effort background work.
type TaskFunc func(ctx context.Context) error

// Recorder receives queue outcome counts. *metrics.Metrics satisfies it.
type Recorder interface {
	TaskDropped(kind string)
	TaskFailed(kind string)
}

type task struct {
	kind string
	key  string
	fn   TaskFunc
}

// TaskQueue runs small side effects (timestamp touches, access log writes) off the request path.
// Enqueue never blocks: when the buffer is full the task is dropped and counted.
type TaskQueue struct {
	logger   *slog.Logger
	recorder Recorder

	// Channel with buffer to prevent blocking
	tasks chan task

	// Debounce: keys that ran recently are skipped
	recentlyRun map[string]time.Time
	mu          sync.RWMutex

	debounceInterval time.Duration
	batchInterval    time.Duration
	maxBatchSize     int
	taskTimeout      time.Duration

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Config holds configuration for the queue
type Config struct {
	BufferSize       int           // Channel buffer size (default: 1000)
	DebounceInterval time.Duration // Min interval between runs for the same key (default: 1 minute)
	BatchInterval    time.Duration // Interval to flush a partial batch (default: 2 seconds)
	MaxBatchSize     int           // Tasks per batch (default: 100)
	TaskTimeout      time.Duration // Deadline for a whole batch (default: 10 seconds)
}

func DefaultConfig() Config {
	return Config{
		BufferSize:       1000,
		DebounceInterval: time.Minute,
		BatchInterval:    2 * time.Second,
		MaxBatchSize:     100,
		TaskTimeout:      10 * time.Second,
	}
}

func NewTaskQueue(logger *slog.Logger, recorder Recorder, config Config) *TaskQueue {
	def := DefaultConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = def.BufferSize
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = def.DebounceInterval
	}
	if config.BatchInterval <= 0 {
		config.BatchInterval = def.BatchInterval
	}
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = def.MaxBatchSize
	}
	if config.TaskTimeout <= 0 {
		config.TaskTimeout = def.TaskTimeout
	}

	return &TaskQueue{
		logger:           logger.With("component", "task_queue"),
		recorder:         recorder,
		tasks:            make(chan task, config.BufferSize),
		recentlyRun:      make(map[string]time.Time),
		debounceInterval: config.DebounceInterval,
		batchInterval:    config.BatchInterval,
		maxBatchSize:     config.MaxBatchSize,
		taskTimeout:      config.TaskTimeout,
		done:             make(chan struct{}),
	}
}

func (q *TaskQueue) Start() {
	q.wg.Add(1)
	go q.run()
	q.logger.Info("task queue started",
		"buffer_size", cap(q.tasks),
		"debounce_interval", q.debounceInterval,
		"batch_interval", q.batchInterval,
	)
}

// Stop drains buffered tasks and waits for the worker to exit.
func (q *TaskQueue) Stop() {
	q.stopOnce.Do(func() {
		close(q.done)
		q.wg.Wait()
		q.logger.Info("task queue stopped")
	})
}

// Enqueue schedules fn. A non-empty key is debounced: if a task with the same key ran
// within the debounce interval the new one is skipped. Returns false when dropped.
func (q *TaskQueue) Enqueue(kind, key string, fn TaskFunc) bool {
	if key != "" && q.ranRecently(key) {
		return true
	}

	select {
	case q.tasks <- task{kind: kind, key: key, fn: fn}:
		return true
	default:
		q.logger.Debug("background task dropped - buffer full", "kind", kind, "key", key)
		if q.recorder != nil {
			q.recorder.TaskDropped(kind)
		}
		return false
	}
}

// Len returns the number of buffered tasks.
func (q *TaskQueue) Len() int {
	return len(q.tasks)
}

func (q *TaskQueue) run() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.batchInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(5 * time.Minute)
	defer cleanupTicker.Stop()

	var batch []task

	for {
		select {
		case <-q.done:
			for {
				select {
				case t := <-q.tasks:
					batch = append(batch, t)
				default:
					q.processBatch(batch)
					return
				}
			}

		case t := <-q.tasks:
			batch = append(batch, t)
			if len(batch) >= q.maxBatchSize {
				q.processBatch(batch)
				batch = nil
			}

		case <-ticker.C:
			if len(batch) > 0 {
				q.processBatch(batch)
				batch = nil
			}

		case <-cleanupTicker.C:
			q.cleanupDebounceMap()
		}
	}
}

func (q *TaskQueue) processBatch(batch []task) {
	if len(batch) == 0 {
		return
	}

	// Keyed tasks collapse to one run per key
	seen := make(map[string]struct{})
	unique := make([]task, 0, len(batch))
	for _, t := range batch {
		if t.key != "" {
			if _, ok := seen[t.key]; ok || q.ranRecently(t.key) {
				continue
			}
			seen[t.key] = struct{}{}
		}
		unique = append(unique, t)
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.taskTimeout)
	defer cancel()

	var successCount int
	for _, t := range unique {
		if err := q.runTask(ctx, t); err != nil {
			q.logger.Error("background task failed", "kind", t.kind, "key", t.key, "error", err)
			if q.recorder != nil {
				q.recorder.TaskFailed(t.kind)
			}
			continue
		}

		if t.key != "" {
			q.mu.Lock()
			q.recentlyRun[t.key] = time.Now()
			q.mu.Unlock()
		}
		successCount++
	}

	if successCount > 0 {
		q.logger.Debug("background batch processed", "count", successCount)
	}
}

func (q *TaskQueue) runTask(ctx context.Context, t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("background task panicked", "kind", t.kind, "panic", r)
			err = errPanicked
		}
	}()
	return t.fn(ctx)
}

func (q *TaskQueue) ranRecently(key string) bool {
	q.mu.RLock()
	last, exists := q.recentlyRun[key]
	q.mu.RUnlock()

	return exists && time.Since(last) < q.debounceInterval
}

func (q *TaskQueue) cleanupDebounceMap() {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	for key, last := range q.recentlyRun {
		if now.Sub(last) > 2*q.debounceInterval {
			delete(q.recentlyRun, key)
		}
	}
}
