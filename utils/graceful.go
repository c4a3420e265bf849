package utils

import (
	"context"
	"sync"
	"time"
)

// GracefulShutdown runs a set of registered teardown functions
// concurrently, bounded by a timeout. walloc uses it to release
// backing-memory resources (mmaps, Wasmer stores) on process exit.
type GracefulShutdown struct {
	mu         sync.Mutex
	shutdownFn []func() error
	timeout    time.Duration
	logger     *Logger
}

// NewGracefulShutdown creates a shutdown manager with the given timeout.
func NewGracefulShutdown(timeout time.Duration, logger *Logger) *GracefulShutdown {
	if logger == nil {
		logger = DefaultLogger("shutdown")
	}
	return &GracefulShutdown{timeout: timeout, logger: logger}
}

// Register adds fn to the list of functions run on Shutdown.
func (g *GracefulShutdown) Register(fn func() error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shutdownFn = append(g.shutdownFn, fn)
}

// Shutdown starts every registered function in its own goroutine (launched
// in reverse registration order, with no ordering between them once
// started), waiting up to the configured timeout for them all to finish.
func (g *GracefulShutdown) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.logger.Info("starting graceful shutdown", Int("components", len(g.shutdownFn)))

	shutdownCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	errChan := make(chan error, len(g.shutdownFn))
	var wg sync.WaitGroup

	for i := len(g.shutdownFn) - 1; i >= 0; i-- {
		wg.Add(1)
		fn := g.shutdownFn[i]
		go func(idx int, shutdownFn func() error) {
			defer wg.Done()
			if err := shutdownFn(); err != nil {
				g.logger.Error("shutdown function failed", Int("index", idx), Err(err))
				errChan <- err
			}
		}(i, fn)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		g.logger.Info("graceful shutdown complete")
		return nil
	case <-shutdownCtx.Done():
		g.logger.Warn("graceful shutdown timed out")
		return NewError("shutdown timeout")
	}
}
