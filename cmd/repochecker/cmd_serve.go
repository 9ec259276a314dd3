package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mkowalski/repochecker/internal/config"
	"github.com/mkowalski/repochecker/internal/driver"
	"github.com/mkowalski/repochecker/internal/httpapi"
	"github.com/mkowalski/repochecker/internal/kubewatch"
	"github.com/mkowalski/repochecker/internal/mirror"
	"github.com/mkowalski/repochecker/internal/persistence"
	"github.com/mkowalski/repochecker/internal/scheduler"
	"github.com/mkowalski/repochecker/internal/snapshot"
	"github.com/mkowalski/repochecker/pkg/logger"
	"github.com/mkowalski/repochecker/pkg/metrics"
)

const (
	defaultAddr      = "127.0.0.1:3030"
	shutdownGrace    = 30 * time.Second
	defaultOverrides = "."
)

// serveCommand wires the daemon together and runs it until SIGINT/SIGTERM,
// grounded on the teacher's cmd/server/main.go: structured logging first,
// then dependency construction, an HTTP server in its own goroutine, and a
// signal channel gating a timed graceful shutdown.
func serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the audit scheduler and HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "HTTP listen address")
	return cmd
}

func runServe(ctx context.Context, addr string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.NewLogger(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	slog.SetDefault(log)
	slog.Info("repochecker starting", "addr", addr)

	mirrorBackend, err := mirror.New(ctx, cfg.Mirror)
	if err != nil {
		return err
	}
	defer mirrorBackend.Close()

	reg := metrics.New(prometheus.DefaultRegisterer)

	snap := snapshot.New()
	persist := persistence.New()
	drv := driver.New()
	httpSrv := httpapi.New(snap, reg)
	sched := scheduler.New(snap, persist, mirrorBackend, drv, reg, httpSrv.Hub())

	if err := sched.Bootstrap(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := sched.Run(runCtx); err != nil {
			slog.Error("scheduler exited", "error", err)
		}
	}()

	startKubewatch(runCtx, sched)

	server := &http.Server{
		Addr:    addr,
		Handler: httpSrv.Router(log),
	}

	go func() {
		slog.Info("http server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	slog.Info("shutdown complete")
	return nil
}

// startKubewatch wires the optional in-cluster ConfigMap reload trigger.
// Namespace and ConfigMap name come from the environment (not repochecker's
// TOML config) since they describe the deployment, not the audit itself;
// outside a cluster kubewatch.New returns a nil watcher and this is a no-op.
func startKubewatch(ctx context.Context, sched *scheduler.Scheduler) {
	namespace := os.Getenv("REPOCHECKER_KUBE_NAMESPACE")
	if namespace == "" {
		namespace = "default"
	}
	name := os.Getenv("REPOCHECKER_KUBE_CONFIGMAP")
	if name == "" {
		name = "repochecker-overrides"
	}

	watcher, err := kubewatch.New(namespace, name, defaultOverrides)
	if err != nil {
		slog.Error("kubewatch: disabled due to setup error", "error", err)
		return
	}
	if watcher == nil {
		return
	}

	go func() {
		if err := watcher.Run(ctx, func() { sched.ReloadNow(ctx) }); err != nil {
			slog.Error("kubewatch: watcher exited", "error", err)
		}
	}()
}
