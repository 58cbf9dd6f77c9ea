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
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/ephemeris-registry/internal/logging"
	"github.com/signalsfoundry/ephemeris-registry/internal/observability"
	"github.com/signalsfoundry/ephemeris-registry/kernel"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch DIR",
		Short: "Keep the kernels under DIR loaded as files change, serving /metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, args[0], prometheus.NewRegistry())
		},
	}
}

// watch runs until ctx is done or a component fails.
func (a *app) watch(ctx context.Context, dir string, promReg *prometheus.Registry) error {
	log := a.log

	shutdownTracing, err := observability.InitTracing(ctx, a.cfg.TracingOptions(), log)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewRegistryCollector(promReg)
	if err != nil {
		return err
	}
	reg := a.newRegistry(kernel.WithMetricsRecorder(collector))
	defer func() {
		if err := reg.Close(); err != nil {
			log.Warn(context.Background(), "unload on exit", logging.Err(err))
		}
	}()

	opts := a.walkOptions()
	ids, err := reg.Load(ctx, dir, opts...)
	switch {
	case errors.Is(err, kernel.ErrNoFilesFound):
		log.Info(ctx, "no kernels yet", logging.Path(dir))
	case err != nil:
		return err
	default:
		log.Info(ctx, "initial load complete", logging.Path(dir), logging.Int("ids", len(ids)))
	}

	w, err := kernel.NewWatcher(reg, dir, opts...)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "serving Prometheus metrics", logging.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		for ev := range w.Events {
			if ev.Err != nil {
				continue
			}
			log.Info(gctx, "kernels changed",
				logging.Path(ev.Path),
				logging.String("op", ev.Op.String()),
				logging.Any("ids", ev.IDs))
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		w.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
