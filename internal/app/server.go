package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/coincraze/authd/internal/pkg/goerror"
	"github.com/coincraze/authd/internal/pkg/router"
)

const healthTimeout = 2 * time.Second

type dependency struct {
	name string
	ping func(context.Context) error
}

// dependencies lists what /health pings: always postgres, redis only when
// one is configured.
func (a *App) dependencies() []dependency {
	deps := []dependency{{name: "database", ping: a.dbConn.Ping}}
	if a.cacheConn != nil {
		deps = append(deps, dependency{name: "redis", ping: func(ctx context.Context) error {
			return a.cacheConn.Ping(ctx).Err()
		}})
	}
	return deps
}

type healthResponse map[string]string

func (healthResponse) Message() string { return "authd is healthy" }

func (a *App) health(r *router.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{}
	for _, d := range a.dependencies() {
		if err := d.ping(ctx); err != nil {
			slog.ErrorContext(ctx, "health check failed", "dependency", d.name, "error", err)
			return nil, goerror.NewServer(fmt.Errorf("%s: %w", d.name, err))
		}
		resp[d.name] = "up"
	}
	return resp, nil
}

// Run serves HTTP until ctx is canceled or the listener fails, then shuts
// down within app.server.shutdown_timeout_seconds.
func (a *App) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("app: listen %s: %w", a.httpServer.Addr, err)
	}
	slog.InfoContext(ctx, "http server listening", "address", l.Addr().String())

	var serveErr error
	select {
	case serveErr = <-a.Serve(l):
		slog.ErrorContext(ctx, "http server stopped unexpectedly", "error", serveErr)
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutdown requested")
	}

	timeout := a.config.GetSecond("app.server.shutdown_timeout_seconds")
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	a.Stop(sctx)

	return serveErr
}

// Serve runs the HTTP server on l. The channel yields the error that ended
// serving, unless that was a normal shutdown.
func (a *App) Serve(l net.Listener) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		if err := a.httpServer.Serve(l); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	return errc
}

// Stop shuts the server down in order: stop accepting requests, cancel and
// wait for background work, then release resources newest first.
func (a *App) Stop(ctx context.Context) {
	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to shut down http server", "error", err)
	}

	a.cancel()
	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "background job ended with error", "error", err)
	}

	a.release(ctx)
	slog.InfoContext(ctx, "application stopped")
}
