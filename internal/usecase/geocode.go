package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"AuctionHarvester/internal/address"
	"AuctionHarvester/internal/domain"
	"AuctionHarvester/internal/logging"
	"AuctionHarvester/internal/ports"
)

// NewProviderLimiter paces provider calls to one per interval.
func NewProviderLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// GeocodeDeps wires the geocoding pass.
type GeocodeDeps struct {
	Repository ports.ListingRepository
	Geocoder   ports.Geocoder
	Limiter    *rate.Limiter
	Logger     *slog.Logger
}

// GeocodePipeline fills coordinates for listings that have none.
type GeocodePipeline struct {
	repository ports.ListingRepository
	geocoder   ports.Geocoder
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewGeocodePipeline constructs the geocoding pass.
func NewGeocodePipeline(deps GeocodeDeps) *GeocodePipeline {
	p := &GeocodePipeline{
		repository: deps.Repository,
		geocoder:   deps.Geocoder,
		limiter:    deps.Limiter,
		logger:     deps.Logger,
	}
	if p.limiter == nil {
		p.limiter = NewProviderLimiter(0)
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	return p
}

// Run geocodes every listing without coordinates once. Not-found and
// failed listings stay without coordinates for the next pass.
func (p *GeocodePipeline) Run(ctx context.Context) (domain.GeocodeReport, error) {
	var report domain.GeocodeReport
	if p.repository == nil || p.geocoder == nil {
		return report, fmt.Errorf("geocode pipeline not configured")
	}

	logger := p.logger.With("provider", p.geocoder.Name())
	logger.Info("geocoding started")

	for listing, err := range p.repository.MissingCoordinates(ctx) {
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			return report, fmt.Errorf("load listings without coordinates: %w", err)
		}

		formatted := address.Normalize(listing.Address, listing.Title)
		if formatted == "" {
			logger.Warn("skipping listing", "error", &domain.InsufficientAddressError{ListingID: listing.ID})
			report.Skipped++
			continue
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return report, err
		}

		candidates, err := p.geocoder.Search(ctx, formatted)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			logger.Error("provider error", "id", listing.ID, "address", formatted, "error", err)
			report.Failed++
			continue
		}
		if len(candidates) == 0 {
			logger.Warn("address not found", "id", listing.ID, "address", formatted)
			report.NotFound++
			continue
		}

		best := candidates[0]
		if err := p.repository.UpdateCoordinates(ctx, listing.ID, best.Latitude, best.Longitude); err != nil {
			logger.Error("save coordinates failed", "id", listing.ID, "error", err)
			report.Failed++
			continue
		}
		logger.Debug("geocoded", "id", listing.ID, "lat", best.Latitude, "lon", best.Longitude)
		report.Succeeded++
	}

	logger.Info("geocoding finished",
		"succeeded", report.Succeeded,
		"not_found", report.NotFound,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report, nil
}

const minAutocompleteRunes = 3

// Autocompleter proxies place suggestions for map navigation.
type Autocompleter struct {
	geocoder ports.Geocoder
}

// NewAutocompleter wires a provider.
func NewAutocompleter(geocoder ports.Geocoder) *Autocompleter {
	return &Autocompleter{geocoder: geocoder}
}

// Suggest returns an empty list for queries shorter than three characters
// without calling the provider.
func (a *Autocompleter) Suggest(ctx context.Context, text string) ([]domain.Suggestion, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minAutocompleteRunes {
		return []domain.Suggestion{}, nil
	}
	if a.geocoder == nil {
		return nil, fmt.Errorf("autocomplete provider not configured")
	}

	suggestions, err := a.geocoder.Autocomplete(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("autocomplete: %w", err)
	}
	if suggestions == nil {
		suggestions = []domain.Suggestion{}
	}
	return suggestions, nil
}

// StateBackfill derives the state code from the stored address.
type StateBackfill struct {
	repository ports.ListingRepository
	logger     *slog.Logger
}

// NewStateBackfill wires the repository.
func NewStateBackfill(repository ports.ListingRepository, logger *slog.Logger) *StateBackfill {
	if logger == nil {
		logger = logging.Discard()
	}
	return &StateBackfill{repository: repository, logger: logger}
}

// Run writes the state code of every listing that lacks one and whose
// address ends in a known state name.
func (s *StateBackfill) Run(ctx context.Context) (domain.StateReport, error) {
	var report domain.StateReport
	for listing, err := range s.repository.MissingState(ctx) {
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			return report, fmt.Errorf("load listings without state: %w", err)
		}

		code, segment, ok := address.StateCode(listing.Address)
		if !ok {
			s.logger.Warn("state not mapped", "id", listing.ID, "segment", segment)
			report.Unmapped++
			continue
		}
		if err := s.repository.UpdateState(ctx, listing.ID, code); err != nil {
			s.logger.Error("save state failed", "id", listing.ID, "error", err)
			report.Failed++
			continue
		}
		report.Updated++
	}

	s.logger.Info("state backfill finished", "updated", report.Updated, "unmapped", report.Unmapped, "failed", report.Failed)
	return report, nil
}
