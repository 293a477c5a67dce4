// Package workers provides abstractions for managing and running
// background workers in the application.
// It defines the Worker interface, a Workers aggregate that starts and stops
// several workers in a unified way, and [Serial], the single-goroutine task
// queue the sync engine runs its pipelines on.
package workers

import "context"

// Worker is the interface that must be implemented by any background worker.
//
// Run starts the worker and returns immediately; the work itself happens on
// goroutines owned by the worker and ends when ctx is cancelled or Stop is
// called. Stop blocks until those goroutines have exited and is safe to call
// more than once.
//
// Example implementation:
//
//	type MyWorker struct{ cancel context.CancelFunc }
//
//	func (w *MyWorker) Run(ctx context.Context) {
//	    ctx, w.cancel = context.WithCancel(ctx)
//	    go process(ctx)
//	}
type Worker interface {
	Run(ctx context.Context)
	Stop()
}

// Task is a unit of work executed by [Serial]. The context is cancelled when
// the worker stops.
type Task func(ctx context.Context)
