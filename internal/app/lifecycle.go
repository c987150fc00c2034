package app

import (
	"context"
	"errors"
	"time"
)

// shutdownTimeout bounds how long Shutdown waits for each subsystem.
const shutdownTimeout = 5 * time.Second

// Shutdown stops every subsystem in reverse construction order:
// watcher, bus-driven handlers, tokenization, language servers,
// session persistence, and finally the bus itself. Subsequent calls
// are no-ops.
func (a *App) Shutdown() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	a.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error

	// Stop watching files before buffers go away.
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			errs = append(errs, &ComponentError{Component: "watch", Action: "close", Err: err})
		}
	}

	// Detach the bus-driven handlers.
	for _, sub := range a.subs {
		a.bus.Unsubscribe(sub)
	}
	a.subs = nil

	// Drain in-flight tokenization.
	done := make(chan struct{})
	go func() {
		a.tokens.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, &ComponentError{Component: "syntax", Action: "drain", Err: ErrShutdownTimeout})
	}

	// Stop language servers.
	if err := a.servers.StopAll(ctx); err != nil {
		errs = append(errs, &ComponentError{Component: "lsp", Action: "stop", Err: err})
	}

	// Flush and close session persistence.
	if a.session != nil {
		if err := a.session.Close(); err != nil {
			errs = append(errs, &ComponentError{Component: "session", Action: "close", Err: err})
		}
	}

	// Close the bus last so publishes from the steps above still
	// deliver.
	if err := a.bus.Close(ctx); err != nil {
		errs = append(errs, &ComponentError{Component: "event", Action: "close", Err: err})
	}

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
