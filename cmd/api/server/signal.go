package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// exit is replaced in tests.
var exit = os.Exit

// WithSignal returns a context canceled by the first SIGINT or SIGTERM. A
// second signal during shutdown terminates the process with status 1.
// The returned stop function releases the signal handler and cancels ctx.
func WithSignal(ctx context.Context, log *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			log.Info("shutdown signal received", zap.Stringer("signal", sig))
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigCh:
			log.Warn("second signal received, forcing exit", zap.Stringer("signal", sig))
			exit(1)
		case <-done:
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		close(done)
		cancel()
	}
}
