package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	syncPasses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nordhus_sync_passes_total",
		Help: "Completed photo sync passes.",
	})
	photosSynced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nordhus_photos_synced_total",
		Help: "Photos downloaded and committed across all projects.",
	})
	tickFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nordhus_tick_failures_total",
		Help: "Per-project failures recorded during monitor ticks.",
	}, []string{"category"})
)

// MetricsHandler exposes the monitor metrics; mounted by daemon mode only.
func MetricsHandler() http.Handler { return promhttp.Handler() }
