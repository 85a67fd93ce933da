package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cliprelay/cliprelay/app/cfg"
	"github.com/cliprelay/cliprelay/app/channel"
	"github.com/cliprelay/cliprelay/app/store"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	registry       *store.CreatorRegistry
	ledger         *store.ProcessedLedger
	manifests      *store.ManifestStore
	lister         channel.Lister
	processor      VideoProcessor
	publisher      Publisher
	videosPerCheck int
	maxPosts       int
	interval       time.Duration
	workerCount    int
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	taskQueue      chan TaskInterface
}

func NewScheduler(registry *store.CreatorRegistry, ledger *store.ProcessedLedger,
	manifests *store.ManifestStore, lister channel.Lister, processor VideoProcessor,
	publisher Publisher) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	interval := registry.MinCheckInterval()
	if configured := time.Duration(cfg.CheckIntervalMinutes) * time.Minute; interval == 0 || configured < interval {
		interval = configured
	}

	return &Scheduler{
		registry:       registry,
		ledger:         ledger,
		manifests:      manifests,
		lister:         lister,
		processor:      processor,
		publisher:      publisher,
		videosPerCheck: cfg.VideosPerCheck,
		maxPosts:       cfg.MaxPostsPerRun,
		interval:       interval,
		workerCount:    cfg.WorkerCount,
		ctx:            ctx,
		cancel:         cancel,
		taskQueue:      make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()

}

// Stop cancels the scheduler and waits for workers to drain. The task
// queue is deliberately left open: a late retry goroutine may still
// call EnqueueTask after Stop, and a send on a closed channel would
// panic where a send into the abandoned buffer is harmless.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueTasks() {
	if s.registry.Count() == 0 {
		slog.Debug("No creators registered")
		return
	}

	now := time.Now().UTC()

	for creator := range s.registry.All() {
		if !creator.Active {
			slog.Debug("Creator disabled, skipping", "creator", creator.Name)
			continue
		}
		if !creator.Due(now) {
			slog.Debug("Creator not due for check yet", "creator", creator.Name,
				"last_checked_at", creator.LastCheckedAt)
			continue
		}

		task := NewCheckCreatorTask(creator, s.lister, s.ledger, s.registry, s.processor, s.videosPerCheck)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue CheckCreatorTask", "creator", creator.Name, "error", err)
		}
	}

	if s.publisher != nil {
		task := NewPostApprovedTask(s.manifests, s.publisher, s.maxPosts)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue PostApprovedTask", "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 30*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "creator", task.GetCreatorName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
