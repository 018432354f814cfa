package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/isml-go/isml/log"
)

// StartInstrumentation starts serving or pushing metrics for registry
// according to cfg.Mode: push mode runs a push.Pusher on a ticker, pull
// mode serves promhttp on an HTTP listener, and "none" is a no-op. The
// returned context.CancelFunc stops the background goroutine (push mode)
// or the HTTP server (pull mode); callers should defer it, or call it
// from MessagingService.Stop.
func StartInstrumentation(ctx context.Context, cfg *MetricsConfig, registry *prometheus.Registry, logger log.Logger) context.CancelFunc {
	switch cfg.Mode {
	case metricsModePush:
		return startPush(ctx, cfg, registry, logger)
	case metricsModePull:
		return startPull(cfg, registry, logger)
	default:
		return func() {}
	}
}

func startPush(ctx context.Context, cfg *MetricsConfig, registry *prometheus.Registry, logger log.Logger) context.CancelFunc {
	childCtx, cancel := context.WithCancel(ctx)

	interval := cfg.PushInterval
	if interval <= 0 {
		interval = defaultPushInterval * time.Second
	}

	pusher := push.New(cfg.PushAddr, cfg.PushJobName).
		Grouping("instance", cfg.PushInstanceLabel).
		Gatherer(registry)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-childCtx.Done():
				return
			case <-ticker.C:
				if err := pusher.Push(); err != nil && logger != nil {
					logger.Warn(childCtx, "failed to push metrics", log.MapFields{"err": err.Error()})
				}
			}
		}
	}()

	return cancel
}

func startPull(cfg *MetricsConfig, registry *prometheus.Registry, logger log.Logger) context.CancelFunc {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.PullAddr, cfg.PullPort),
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed && logger != nil {
			logger.Error(context.Background(), "metrics pull server failed", log.MapFields{"err": err.Error()})
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
