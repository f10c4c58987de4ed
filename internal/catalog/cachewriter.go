package catalog

import (
	"context"
	"sync"
	"time"

	"storesync/internal/logger"
)

const cacheWriteTimeout = 30 * time.Second

// CacheWriter runs cache writes off the request path. Failures are reported
// on an error channel that a single goroutine drains into the log.
type CacheWriter struct {
	logger  *logger.Logger
	pending sync.WaitGroup
	errs    chan error
	drained chan struct{}

	mu       sync.Mutex
	closed   bool
	failures int
}

func NewCacheWriter(logger *logger.Logger) *CacheWriter {
	w := &CacheWriter{
		logger:  logger,
		errs:    make(chan error, 64),
		drained: make(chan struct{}),
	}
	go w.drain()
	return w
}

// Go schedules fn with its own deadline, detached from any request context.
func (w *CacheWriter) Go(fn func(ctx context.Context) error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.logger.Warn("Cache writer closed, dropping write")
		return
	}
	w.pending.Add(1)
	w.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
		err := fn(ctx)
		cancel()
		if err != nil {
			// drain marks the write done once the failure is logged
			w.errs <- err
			return
		}
		w.pending.Done()
	}()
}

// Wait blocks until every scheduled write has finished and its failure, if
// any, has been logged.
func (w *CacheWriter) Wait() {
	w.pending.Wait()
}

// Failures is the number of writes that have failed and been logged.
func (w *CacheWriter) Failures() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failures
}

// Close waits for pending writes and stops the drain goroutine.
func (w *CacheWriter) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	w.pending.Wait()
	close(w.errs)
	<-w.drained
}

func (w *CacheWriter) drain() {
	defer close(w.drained)
	for err := range w.errs {
		w.mu.Lock()
		w.failures++
		w.mu.Unlock()
		w.logger.Error("Background cache write failed: %v", err)
		w.pending.Done()
	}
}
