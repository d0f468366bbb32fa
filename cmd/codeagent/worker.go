package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Cyclone1070/codeagent/internal/codeagent"
	"github.com/Cyclone1070/codeagent/internal/metrics"
	"github.com/Cyclone1070/codeagent/internal/queue"
	"github.com/Cyclone1070/codeagent/internal/sandbox"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume run triggers and execute them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runWorker(ctx)
		},
	}
}

func (a *app) runWorker(ctx context.Context) error {
	cfg := a.cfg

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	deps, err := buildDependencies(ctx, cfg, a.logger, m, nil)
	if err != nil {
		return err
	}
	defer deps.Close()

	rdb, err := queue.Dial(ctx, cfg.Queue.RedisURL)
	if err != nil {
		return err
	}
	defer rdb.Close()

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.WithError(err).Error("metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		a.logger.WithField("addr", cfg.Metrics.Addr).Info("serving metrics")
	}

	reaper := sandbox.NewReaper(deps.Docker, time.Duration(cfg.Sandbox.ReapSeconds)*time.Second, a.logger)
	reapCtx, stopReaper := context.WithCancel(ctx)
	reaped := make(chan struct{})
	go func() {
		defer close(reaped)
		reaper.Start(reapCtx)
	}()
	defer func() {
		stopReaper()
		<-reaped
	}()

	consumer := cfg.Queue.Consumer
	if consumer == "" {
		consumer, _ = os.Hostname()
	}

	w := codeagent.NewWorker(
		queue.New(rdb, cfg.Queue.Stream, cfg.Queue.Group),
		deps.Function,
		codeagent.WorkerConfig{
			Consumer:    consumer,
			Block:       time.Duration(cfg.Queue.BlockMs) * time.Millisecond,
			ClaimIdle:   time.Duration(cfg.Queue.ClaimIdleMs) * time.Millisecond,
			MaxAttempts: cfg.Worker.MaxAttempts,
			Backoff:     time.Duration(cfg.Worker.RetryBackoffMs) * time.Millisecond,
		},
		a.logger,
	)
	return w.Start(ctx)
}

func metricsMux(g prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
