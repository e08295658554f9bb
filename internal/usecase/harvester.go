package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"

	"AuctionHarvester/internal/domain"
	"AuctionHarvester/internal/logging"
	"AuctionHarvester/internal/ports"
	"AuctionHarvester/internal/scanner"
)

// HarvesterDeps wires the driven adapters and run settings into the harvester.
type HarvesterDeps struct {
	Scanner      scanner.Scanner
	Repository   ports.ListingRepository
	Logger       *slog.Logger
	Regions      []string
	Categories   []domain.Category
	BatchSize    int
	ItemDelayMin time.Duration
	ItemDelayMax time.Duration
	BatchPause   time.Duration
	Sleep        func(ctx context.Context, d time.Duration) error
}

// Harvester walks regions and categories, reads every listing and upserts
// it under its content identity.
type Harvester struct {
	scanner    scanner.Scanner
	repository ports.ListingRepository
	logger     *slog.Logger
	regions    []string
	categories []domain.Category
	batchSize  int
	delayMin   time.Duration
	delayMax   time.Duration
	batchPause time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewHarvester constructs the harvest workflow.
func NewHarvester(deps HarvesterDeps) *Harvester {
	h := &Harvester{
		scanner:    deps.Scanner,
		repository: deps.Repository,
		logger:     deps.Logger,
		regions:    slices.Clone(deps.Regions),
		categories: slices.Clone(deps.Categories),
		batchSize:  deps.BatchSize,
		delayMin:   deps.ItemDelayMin,
		delayMax:   deps.ItemDelayMax,
		batchPause: deps.BatchPause,
		sleep:      deps.Sleep,
	}
	if h.logger == nil {
		h.logger = logging.Discard()
	}
	if h.batchSize <= 0 {
		h.batchSize = 10
	}
	if h.delayMax < h.delayMin {
		h.delayMax = h.delayMin
	}
	if h.sleep == nil {
		h.sleep = sleepContext
	}
	return h
}

// Run harvests every region and category once. Item, batch and region
// failures land in the report; only cancellation returns an error.
func (h *Harvester) Run(ctx context.Context) (domain.HarvestReport, error) {
	report := domain.HarvestReport{RunID: uuid.NewString(), StartedAt: time.Now()}
	logger := h.logger.With("run_id", report.RunID)

	if h.scanner == nil || h.repository == nil {
		return report, fmt.Errorf("harvester not configured")
	}

	logger.Info("harvest started", "regions", len(h.regions), "categories", len(h.categories))

	for _, category := range h.categories {
		for _, region := range h.regions {
			if err := ctx.Err(); err != nil {
				report.FinishedAt = time.Now()
				return report, err
			}

			req := scanner.Request{Region: region, Category: category}
			rr := h.harvestRegion(ctx, logger.With("region", region, "category", category.Code), req)
			report.Regions = append(report.Regions, rr)
			report.Created += rr.Created
			report.Updated += rr.Updated
			report.Skipped += rr.Skipped
			report.Failed += rr.Failed
		}
	}

	report.FinishedAt = time.Now()
	logger.Info("harvest finished",
		"created", report.Created,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
	)
	return report, ctx.Err()
}

func (h *Harvester) harvestRegion(ctx context.Context, logger *slog.Logger, req scanner.Request) domain.RegionReport {
	rr := domain.RegionReport{Region: req.Region, Category: req.Category.Code}

	ids, err := h.scanner.DiscoverIDs(ctx, req)
	if err != nil {
		logger.Error("search failed, skipping region", "error", err)
		rr.Err = err
		return rr
	}
	rr.Discovered = len(ids)
	if len(ids) == 0 {
		logger.Warn("no listings found, skipping region")
		return rr
	}
	logger.Info("listings discovered", "ids", len(ids))

	index := 0
	for chunk := range slices.Chunk(ids, h.batchSize) {
		if ctx.Err() != nil {
			break
		}
		index++

		batch := h.harvestBatch(ctx, logger.With("batch", index), req, index, chunk)
		rr.Batches = append(rr.Batches, batch)
		if batch.Err != nil {
			rr.FailedBatch++
		}
		rr.Created += batch.Count(domain.ActionCreated)
		rr.Updated += batch.Count(domain.ActionUpdated)
		rr.Skipped += batch.Count(domain.ActionSkipped)
		rr.Failed += batch.Count(domain.ActionFailed)

		if err := h.sleep(ctx, h.batchPause); err != nil {
			break
		}
	}

	logger.Info("region finished",
		"created", rr.Created,
		"updated", rr.Updated,
		"skipped", rr.Skipped,
		"failed", rr.Failed,
		"failed_batches", rr.FailedBatch,
	)
	return rr
}

func (h *Harvester) harvestBatch(ctx context.Context, logger *slog.Logger, req scanner.Request, index int, ids []string) domain.BatchReport {
	batch := domain.BatchReport{Index: index, IDs: ids}

	entries, err := h.scanner.FetchBatch(ctx, req, ids)
	if err != nil {
		logger.Error("list request failed", "error", err)
		batch.Err = err
		return batch
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		outcome := h.harvestItem(ctx, req, entry)
		batch.Outcomes = append(batch.Outcomes, outcome)
	}

	for _, o := range batch.Outcomes {
		switch o.Action {
		case domain.ActionSkipped:
			logger.Warn("item skipped", "number", o.Number, "reason", o.Err)
		case domain.ActionFailed:
			logger.Error("item failed", "number", o.Number, "error", o.Err)
		}
	}
	logger.Info("batch processed",
		"entries", len(entries),
		"created", batch.Count(domain.ActionCreated),
		"updated", batch.Count(domain.ActionUpdated),
		"skipped", batch.Count(domain.ActionSkipped),
		"failed", batch.Count(domain.ActionFailed),
	)
	return batch
}

// harvestItem never panics or returns an error; everything ends up in the
// outcome.
func (h *Harvester) harvestItem(ctx context.Context, req scanner.Request, entry scanner.Entry) (outcome domain.ItemOutcome) {
	outcome.Number = entry.Item.Number
	defer func() {
		if r := recover(); r != nil {
			outcome.Action = domain.ActionFailed
			outcome.Err = fmt.Errorf("panic: %v", r)
		}
	}()

	if entry.Skip != nil {
		outcome.Action = domain.ActionSkipped
		outcome.Err = entry.Skip
		return outcome
	}

	if err := h.sleep(ctx, h.itemDelay()); err != nil {
		outcome.Action = domain.ActionFailed
		outcome.Err = err
		return outcome
	}

	listing, err := h.scanner.FetchDetail(ctx, req, entry.Item)
	if err != nil {
		var skip *domain.ExtractionSkip
		if errors.As(err, &skip) {
			outcome.Action = domain.ActionSkipped
		} else {
			outcome.Action = domain.ActionFailed
		}
		outcome.Err = err
		return outcome
	}

	listing.Slug = domain.ContentIdentity(listing.Title, listing.Description, listing.Amount)
	listing.Latitude, listing.Longitude = nil, nil

	created, err := h.repository.Upsert(ctx, listing)
	if err != nil {
		outcome.Action = domain.ActionFailed
		outcome.Err = fmt.Errorf("save %s: %w", entry.Item.Number, err)
		return outcome
	}

	outcome.Action = domain.ActionUpdated
	if created {
		outcome.Action = domain.ActionCreated
	}
	return outcome
}

func (h *Harvester) itemDelay() time.Duration {
	span := h.delayMax - h.delayMin
	if span <= 0 {
		return h.delayMin
	}
	return h.delayMin + rand.N(span+1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
