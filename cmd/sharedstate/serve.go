package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/vango-dev/sharedstate/pkg/inspector"
	"github.com/vango-dev/sharedstate/pkg/shared"
)

func serveCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inspector over the persisted values",
		Long: `Load every persisted value into a shared store and serve the
read-only inspector.

Routes:
  GET /keys         all entries
  GET /keys/{key}   one entry
  GET /metrics      Prometheus metrics
  GET /ws           websocket change feed

The change feed reports writes made through this process's store.
Values written with "sharedstate set" go straight to storage from
another process and do not appear on the feed; restart serve to see
them.

Examples:
  sharedstate serve
  sharedstate serve --addr :7070`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Inspector.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, cmd)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")

	return cmd
}

// newStore builds a store over the configured storage, with metrics
// registered on reg.
func (a *app) newStore(ctx context.Context, reg prometheus.Registerer) (*shared.Store, error) {
	st, err := openStorage(a.cfg)
	if err != nil {
		return nil, err
	}
	timeout, _ := a.cfg.PersistTimeoutDuration()

	metrics := shared.NewMetrics(
		shared.WithRegistry(reg),
		shared.WithNamespace(a.cfg.Metrics.Namespace),
	)

	return shared.New(
		shared.WithStorage(st),
		shared.WithLogger(a.logger),
		shared.WithDebug(a.cfg.Debug),
		shared.WithMetrics(metrics),
		shared.WithContext(ctx),
		shared.WithPersistTimeout(timeout),
	), nil
}

func (a *app) serve(ctx context.Context, cmd *cobra.Command) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store, err := a.newStore(ctx, reg)
	if err != nil {
		return err
	}
	n, err := store.Hydrate(ctx)
	if err != nil {
		return err
	}

	insp := inspector.New(store,
		inspector.WithGatherer(reg),
		inspector.WithLogger(a.logger),
		inspector.WithCheckOrigin(originChecker(a.cfg.Inspector.AllowedOrigins)),
	)
	defer insp.Close()

	srv := &http.Server{
		Addr:              a.cfg.Inspector.Addr,
		Handler:           insp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	out := cmd.OutOrStdout()
	success(out, "inspector listening on http://%s", a.cfg.Inspector.Addr)
	info(out, "%d persisted values loaded from %s storage", n, a.cfg.Storage.Backend)
	a.logger.Info("inspector started", "addr", a.cfg.Inspector.Addr, "keys", n)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.logger.Info("inspector shutting down")
	return srv.Shutdown(shutdownCtx)
}

// originChecker returns the websocket origin check for allowed. nil keeps
// the same-origin default.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin] || origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}
