package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/jayljohnson/nordhus.site/internal/faults"
	"github.com/jayljohnson/nordhus.site/internal/logfields"
)

// Daemon runs monitor ticks on a fixed interval until the context is
// canceled. A systemic authorization failure stops the daemon: rescheduling
// ticks against a dead credential only spams the provider.
type Daemon struct {
	scheduler   *Scheduler
	interval    time.Duration
	metricsAddr string
}

// NewDaemon validates the interval and wraps the tick scheduler.
func NewDaemon(scheduler *Scheduler, interval time.Duration, metricsAddr string) (*Daemon, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("monitor interval must be positive, got %v", interval)
	}
	return &Daemon{scheduler: scheduler, interval: interval, metricsAddr: metricsAddr}, nil
}

// Run blocks until ctx is done or a systemic failure occurs.
func (d *Daemon) Run(ctx context.Context) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	fatal := make(chan error, 1)
	_, err = s.NewJob(
		gocron.DurationJob(d.interval),
		gocron.NewTask(func() {
			if _, err := d.scheduler.RunTick(ctx); err != nil {
				if faults.IsAuthorization(err) {
					select {
					case fatal <- err:
					default:
					}
					return
				}
				slog.Error("monitor tick failed", logfields.Error(err))
			}
		}),
		gocron.WithName("photo-monitor"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule monitor job: %w", err)
	}

	var metricsSrv *http.Server
	if d.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", MetricsHandler())
		metricsSrv = &http.Server{Addr: d.metricsAddr, Handler: mux}
		go func() {
			slog.Info("metrics listener started", slog.String("addr", d.metricsAddr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics listener failed", logfields.Error(err))
			}
		}()
	}

	slog.Info("monitor daemon started", slog.Duration("interval", d.interval))
	s.Start()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-fatal:
	}

	if err := s.Shutdown(); err != nil {
		slog.Warn("scheduler shutdown failed", logfields.Error(err))
	}
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	slog.Info("monitor daemon stopped")
	return runErr
}
