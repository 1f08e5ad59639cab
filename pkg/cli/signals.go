package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// exit is replaced in tests.
var exit = os.Exit

// SetupSignalHandler returns a context that is cancelled on the first SIGINT
// or SIGTERM. A second signal exits the process with status 1. Call stop to
// release the handler.
func SetupSignalHandler(parent context.Context, logger *slog.Logger) (ctx context.Context, stop func()) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received shutdown signal", "signal", sig.String())
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigChan:
			logger.Warn("received second signal, exiting", "signal", sig.String())
			exit(ExitFailure)
		case <-done:
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(sigChan)
			close(done)
			cancel()
		})
	}
}
