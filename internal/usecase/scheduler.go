package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"AuctionHarvester/internal/domain"
	"AuctionHarvester/internal/logging"
	"AuctionHarvester/internal/ports"
)

// ErrRunInProgress is returned when a run is triggered while another is active.
var ErrRunInProgress = errors.New("run already in progress")

// SchedulerDeps wires the recurring harvest then geocode job.
type SchedulerDeps struct {
	Driver    ports.Scheduler
	Harvester *Harvester
	Geocoder  *GeocodePipeline
	Notifier  ports.Notifier
	Logger    *slog.Logger
}

// Scheduler wires the interval driver with the harvest and geocode use cases.
type Scheduler struct {
	driver    ports.Scheduler
	harvester *Harvester
	geocoder  *GeocodePipeline
	notifier  ports.Notifier
	logger    *slog.Logger
	running   sync.Mutex
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	s := &Scheduler{
		driver:    deps.Driver,
		harvester: deps.Harvester,
		geocoder:  deps.Geocoder,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	return s
}

// Start registers RunOnce with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if err := s.RunOnce(ctx, trigger); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("scheduled run failed", "trigger", trigger, "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

// RunOnce harvests, then geocodes, then publishes a digest. Overlapping
// calls return ErrRunInProgress.
func (s *Scheduler) RunOnce(ctx context.Context, trigger time.Time) error {
	if !s.running.TryLock() {
		s.logger.Warn("previous run still active, skipping", "trigger", trigger)
		return ErrRunInProgress
	}
	defer s.running.Unlock()

	var (
		harvest *domain.HarvestReport
		geocode *domain.GeocodeReport
		errs    []error
	)

	if s.harvester != nil {
		report, err := s.harvester.Run(ctx)
		harvest = &report
		if err != nil {
			errs = append(errs, fmt.Errorf("harvest: %w", err))
		}
	}

	if s.geocoder != nil && ctx.Err() == nil {
		report, err := s.geocoder.Run(ctx)
		geocode = &report
		if err != nil {
			errs = append(errs, fmt.Errorf("geocode: %w", err))
		}
	}

	if s.notifier != nil && (harvest != nil || geocode != nil) {
		if err := s.notifier.PublishDigest(ctx, FormatDigest(trigger, harvest, geocode)); err != nil {
			s.logger.Error("publish digest failed", "error", err)
		}
	}

	return errors.Join(errs...)
}

// FormatDigest renders a Markdown run summary.
func FormatDigest(trigger time.Time, harvest *domain.HarvestReport, geocode *domain.GeocodeReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Auction harvest* %s\n", trigger.Format("02/01/2006 15:04"))

	if harvest != nil {
		fmt.Fprintf(&b, "Created: %d, updated: %d, skipped: %d, failed: %d\n",
			harvest.Created, harvest.Updated, harvest.Skipped, harvest.Failed)

		var failedRegions []string
		failedBatches := 0
		for _, r := range harvest.Regions {
			if r.Err != nil {
				failedRegions = append(failedRegions, r.Region+"/"+r.Category)
			}
			failedBatches += r.FailedBatch
		}
		if len(failedRegions) > 0 {
			fmt.Fprintf(&b, "Regions with failed search: %s\n", strings.Join(failedRegions, ", "))
		}
		if failedBatches > 0 {
			fmt.Fprintf(&b, "Failed batches: %d\n", failedBatches)
		}
	}

	if geocode != nil {
		fmt.Fprintf(&b, "Geocoded: %d, not found: %d, skipped: %d, failed: %d\n",
			geocode.Succeeded, geocode.NotFound, geocode.Skipped, geocode.Failed)
	}

	return strings.TrimRight(b.String(), "\n")
}
