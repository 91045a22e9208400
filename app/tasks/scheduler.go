package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/3dxone/news-mirror/app/feed"
)

var ErrQueueFull = errors.New("task queue is full")

type Settings struct {
	Interval     time.Duration
	TaskTimeout  time.Duration
	MessageLimit int
}

// Scheduler runs refresh cycles on a fixed interval. A single worker
// executes tasks, so cycles never overlap; ticks that arrive while a cycle
// is running and another is already queued are dropped.
type Scheduler struct {
	source        MessageSource
	builder       ItemBuilder
	filterer      *feed.Filterer
	store         *feed.Store
	channelConfig *feed.ChannelConfig
	interval      time.Duration
	taskTimeout   time.Duration
	messageLimit  int
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	taskQueue     chan TaskInterface
	stopOnce      sync.Once
}

func NewScheduler(source MessageSource, builder ItemBuilder, filterer *feed.Filterer,
	store *feed.Store, channelConfig *feed.ChannelConfig, settings Settings) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if settings.TaskTimeout <= 0 {
		settings.TaskTimeout = 5 * time.Minute
	}

	return &Scheduler{
		source:        source,
		builder:       builder,
		filterer:      filterer,
		store:         store,
		channelConfig: channelConfig,
		interval:      settings.Interval,
		taskTimeout:   settings.TaskTimeout,
		messageLimit:  settings.MessageLimit,
		ctx:           ctx,
		cancel:        cancel,
		taskQueue:     make(chan TaskInterface, 1),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.worker()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueRefresh()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueRefresh()
			}
		}
	}()

	slog.Debug("Scheduler started", "interval", s.interval.String())
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		slog.Debug("Scheduler stopped")
	})
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Scheduler) enqueueRefresh() {
	task := NewRefreshNewsTask(s.source, s.builder, s.filterer, s.store, s.channelConfig, s.messageLimit)
	if err := s.EnqueueTask(task); err != nil {
		slog.Debug("Refresh already pending, skipping tick", "error", err)
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		slog.Error("Task execution failed", "type", string(task.GetType()), "id", task.GetID(), "duration", task.GetDuration().String(), "error", err)
		return
	}

	slog.Debug("Task completed", "type", string(task.GetType()), "id", task.GetID(), "duration", task.GetDuration().String())
}
