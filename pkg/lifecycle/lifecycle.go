package lifecycle

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/multierr"
)

// Serve runs server until it stops on its own or ctx is cancelled. A
// cancelled ctx drains the server within timeout. Resources are closed either
// way and every failure is combined into the returned error.
func Serve(ctx context.Context, server *http.Server, timeout time.Duration, resources ...io.Closer) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	var err error
	select {
	case serveErr := <-errCh:
		if !errors.Is(serveErr, http.ErrServerClosed) {
			err = serveErr
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err = server.Shutdown(shutdownCtx)
	}
	return multierr.Append(err, Close(resources...))
}

// Close closes resources in reverse order and keeps going past failures.
func Close(resources ...io.Closer) error {
	var err error
	for i := len(resources) - 1; i >= 0; i-- {
		if resources[i] == nil {
			continue
		}
		multierr.AppendInto(&err, resources[i].Close())
	}
	return err
}

// CloserFunc adapts a func() to io.Closer.
type CloserFunc func()

func (f CloserFunc) Close() error {
	f()
	return nil
}
