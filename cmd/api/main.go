package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/activation"

	"zetlive.dev/internal/app"
	"zetlive.dev/internal/appconf"
	"zetlive.dev/internal/logging"
)

// shutdownGrace bounds graceful shutdown. When it elapses the process exits
// non-zero instead of hanging on a connection that will not drain.
const shutdownGrace = 8 * time.Second

func main() {
	cfg, err := appconf.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	application, err := BuildApplication(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(application); err != nil {
		logging.LogError(application.Logger, "server exited", err)
		os.Exit(1)
	}
}

// buildListener prefers a socket inherited from the service manager and
// falls back to binding the configured address.
func buildListener(cfg appconf.Config) (net.Listener, error) {
	listeners, err := activation.Listeners()
	if err != nil {
		return nil, fmt.Errorf("inspecting activation sockets: %w", err)
	}
	active := listeners[:0]
	for _, l := range listeners {
		if l != nil {
			active = append(active, l)
		}
	}
	switch len(active) {
	case 0:
		return net.Listen("tcp", cfg.Addr())
	case 1:
		return active[0], nil
	default:
		return nil, fmt.Errorf("expected one activation socket, got %d", len(active))
	}
}

func run(application *app.Application) error {
	logger := application.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application.Manager.Start()
	application.Engine.Start()
	defer application.Shutdown()

	logging.LogOperation(logger, "waiting_for_first_snapshots")
	if err := application.WaitReady(ctx); err != nil {
		if ctx.Err() != nil {
			// Signalled while warming up; nothing is listening yet.
			return nil
		}
		return err
	}

	ln, err := buildListener(application.Config)
	if err != nil {
		return err
	}

	srv, _ := CreateServer(application)
	logging.LogOperation(logger, "listening",
		slog.String("addr", ln.Addr().String()),
		slog.String("env", application.Config.Env.String()))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	// From here a second signal takes the default disposition and kills the
	// process immediately.
	stop()

	logging.LogOperation(logger, "shutting_down", slog.Duration("grace", shutdownGrace))
	force := time.AfterFunc(shutdownGrace, func() {
		logger.Error("graceful shutdown timed out, forcing exit")
		os.Exit(1)
	})
	defer force.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
