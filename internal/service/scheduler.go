package service

import (
	"context"
	"log"
	"sync"
	"time"
)

// QueueScheduler periodically triggers the queue processor for
// deployments without an external cron. The processor itself owns no
// loop; this is just a built-in trigger.
type QueueScheduler struct {
	queue    *QueueService
	interval time.Duration
	limit    int

	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewQueueScheduler creates a scheduler that runs every interval.
func NewQueueScheduler(queue *QueueService, interval time.Duration, limit int) *QueueScheduler {
	return &QueueScheduler{
		queue:    queue,
		interval: interval,
		limit:    limit,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic trigger.
func (s *QueueScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.interval)
	s.mu.Unlock()

	log.Printf("[QueueScheduler] started - interval: %v, batch limit: %d", s.interval, s.limit)
	go s.run()
}

// run is the trigger loop.
func (s *QueueScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.runOnce()
		case <-s.stopCh:
			log.Printf("[QueueScheduler] stopped")
			return
		}
	}
}

// runOnce reclaims stale items and processes one batch, bounded by a
// run-level timeout so a hung platform call cannot wedge the loop.
func (s *QueueScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	s.queue.ReclaimStale(ctx)
	s.queue.ProcessBatch(ctx, s.limit)
}

// Stop stops the scheduler.
func (s *QueueScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}
