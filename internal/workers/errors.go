package workers

import "errors"

var (
	// ErrWorkerStopped is returned by [Serial.Submit] after Stop.
	ErrWorkerStopped = errors.New("worker is stopped")
	// ErrQueueFull is returned by [Serial.Submit] when the task queue has no
	// free slot.
	ErrQueueFull = errors.New("worker queue is full")
)
