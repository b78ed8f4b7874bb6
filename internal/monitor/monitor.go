// Package monitor sweeps all active projects for new photos. Per-project
// failures are recorded and never stop the tick; an authorization failure is
// systemic (one shared credential) and aborts the remainder immediately.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jayljohnson/nordhus.site/internal/faults"
	"github.com/jayljohnson/nordhus.site/internal/logfields"
	"github.com/jayljohnson/nordhus.site/internal/manifest"
	"github.com/jayljohnson/nordhus.site/internal/photosync"
)

// Lifecycle is the slice of the lifecycle manager the monitor drives.
type Lifecycle interface {
	Active() ([]*manifest.Record, error)
	AddPhotos(ctx context.Context, name string, promote bool) (photosync.Result, error)
}

// Failure records one project-scoped error inside a tick.
type Failure struct {
	Slug     string
	Category faults.Category
	Err      error
}

// TickReport aggregates one monitor tick. A tick with failures but no
// systemic error is still a successful tick.
type TickReport struct {
	TickID    string
	Projects  int
	OK        int
	NewPhotos int
	Failures  []Failure
	Duration  time.Duration
}

// Scheduler iterates active projects once per invocation.
type Scheduler struct {
	enabled   bool
	lifecycle Lifecycle
}

// NewScheduler creates a scheduler. With enabled false every tick is a no-op
// that reports zero projects and performs no photo-service calls.
func NewScheduler(enabled bool, lc Lifecycle) *Scheduler {
	return &Scheduler{enabled: enabled, lifecycle: lc}
}

// RunTick sweeps every PhotosActive project. The returned error is non-nil
// only for a systemic condition (authorization, or failure to enumerate
// projects); all project-scoped errors land in the report instead.
func (s *Scheduler) RunTick(ctx context.Context) (TickReport, error) {
	report := TickReport{TickID: uuid.NewString()}
	if !s.enabled {
		slog.Info("photo monitoring disabled, skipping tick", logfields.TickID(report.TickID))
		return report, nil
	}

	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()

	active, err := s.lifecycle.Active()
	if err != nil {
		return report, err
	}
	report.Projects = len(active)
	slog.Info("monitor tick started", logfields.TickID(report.TickID), slog.Int("projects", len(active)))

	for _, rec := range active {
		res, err := s.lifecycle.AddPhotos(ctx, rec.Slug, false)
		if err != nil {
			if faults.IsAuthorization(err) {
				// The credential is shared; every remaining project would hit
				// the same wall.
				tickFailures.WithLabelValues(string(faults.CategoryAuth)).Inc()
				slog.Error("systemic authorization failure, aborting tick",
					logfields.TickID(report.TickID), logfields.Project(rec.Slug), logfields.Error(err))
				return report, err
			}
			cat := faults.Classify(err)
			report.Failures = append(report.Failures, Failure{Slug: rec.Slug, Category: cat, Err: err})
			tickFailures.WithLabelValues(string(cat)).Inc()
			slog.Warn("project sync failed, continuing tick",
				logfields.TickID(report.TickID), logfields.Project(rec.Slug), logfields.Error(err))
			continue
		}
		report.OK++
		report.NewPhotos += res.NewAssets
		syncPasses.Inc()
		photosSynced.Add(float64(res.NewAssets))
	}

	slog.Info("monitor tick complete",
		logfields.TickID(report.TickID),
		slog.Int("ok", report.OK),
		slog.Int("failed", len(report.Failures)),
		logfields.NewPhotos(report.NewPhotos),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	return report, nil
}
