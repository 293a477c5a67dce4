// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/MKhiriev/go-favsync/internal/logger"
)

// Serial executes submitted tasks one at a time, in submission order, on a
// single background goroutine. Tasks submitted before Run wait in the queue.
type Serial struct {
	tasks chan Task

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	stopped bool
	wg      sync.WaitGroup

	logger *logger.Logger
}

// NewSerial returns a stopped worker whose queue holds up to queueSize
// tasks. A queueSize below one is treated as one.
func NewSerial(queueSize int, log *logger.Logger) *Serial {
	if queueSize < 1 {
		queueSize = 1
	}

	return &Serial{
		tasks:  make(chan Task, queueSize),
		logger: log,
	}
}

// Run starts the worker goroutine. Calling Run on a running or stopped
// worker does nothing.
func (s *Serial) Run(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || s.stopped {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.wg.Add(1)

	go s.loop(ctx)
}

// Submit enqueues task without blocking.
func (s *Serial) Submit(task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrWorkerStopped
	}

	select {
	case s.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop cancels the running task's context, waits for the goroutine to exit
// and rejects further submissions. Queued tasks that have not started are
// dropped.
func (s *Serial) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Serial) loop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-s.tasks:
			s.execute(ctx, task)
		}
	}
}

func (s *Serial) execute(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("func", "Serial.execute").
				Err(fmt.Errorf("panic: %v", r)).
				Msg("task panicked")
		}
	}()

	task(ctx)
}
