package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"innerbloom-server/internal/messaging"
	"innerbloom-server/internal/model"
	"innerbloom-server/internal/runner"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume generation requests from RabbitMQ",
	Long: `worker reads GenerationRequest messages from REQUEST_QUEUE, runs the interactive
pipeline for each one and serves /metrics and /health on METRICS_PORT. Storage is
enabled when DATABASE_URL is set.`,
	RunE: runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stages, err := a.stages()
	if err != nil {
		return err
	}
	if a.cfg.DatabaseURL != "" {
		if stages.Writer, err = a.connectStorage(ctx); err != nil {
			return err
		}
	}
	if err := a.connectRabbitMQ(); err != nil {
		return err
	}
	if stages.Notifier, err = a.notifier(); err != nil {
		return err
	}

	it, err := runner.NewInteractive(stages, a.options())
	if err != nil {
		return err
	}

	consumer := messaging.NewRequestConsumer(a.channel, a.cfg.RequestQueue, requestHandler(it, a.log), a.log)
	if a.cfg.RedisAddr != "" {
		client, err := messaging.ConnectRedis(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB, a.log)
		if err != nil {
			return err
		}
		defer client.Close()
		consumer.WithGuard(messaging.NewRedisGuard(client, a.cfg.RequestDedupeTTL))
	}

	srv := newMetricsServer(a.cfg.MetricsPort)
	go func() {
		a.log.Info("Metrics server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Metrics server failed", zap.Error(err))
		}
	}()

	if err := consumer.Start(ctx); err != nil {
		_ = srv.Close()
		return err
	}

	select {
	case <-ctx.Done():
		a.log.Info("Shutdown signal received")
	case <-consumer.Done():
		a.log.Warn("Request consumer exited")
	}
	consumer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("Metrics server shutdown failed", zap.Error(err))
	}
	a.log.Info("Worker stopped")
	return nil
}

func newMetricsServer(port string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// interactiveRunner is the part of *runner.Interactive the worker uses.
type interactiveRunner interface {
	Run(ctx context.Context, req runner.InteractiveRequest) (*runner.InteractiveResult, error)
}

func toInteractiveRequest(req messaging.GenerationRequest) runner.InteractiveRequest {
	return runner.InteractiveRequest{
		UserID:         req.UserID,
		Mode:           req.Mode,
		Source:         model.ParseSource(req.Source),
		PromptOverride: req.PromptOverride,
		Persist:        req.Persist,
		DryRun:         req.DryRun,
		Seed:           req.Seed,
	}
}

// requestHandler runs one request. Generation failures are terminal results
// and the message is acked; only a persistence failure rejects it.
func requestHandler(it interactiveRunner, log *zap.Logger) messaging.RequestHandler {
	return func(ctx context.Context, req messaging.GenerationRequest) error {
		out, err := it.Run(ctx, toInteractiveRequest(req))
		if err != nil {
			return fmt.Errorf("request %s: %w", req.RequestID, err)
		}
		res := out.Result
		log.Info("Generation request finished",
			zap.String("request_id", req.RequestID),
			zap.String("user_id", res.UserID),
			zap.String("status", string(res.Status)),
			zap.String("source", string(res.Source)),
			zap.String("mode", string(res.Mode)),
			zap.Int("task_count", len(res.Tasks)),
			zap.Bool("persisted", out.Persisted),
			zap.Strings("errors", res.Errors))
		return nil
	}
}
