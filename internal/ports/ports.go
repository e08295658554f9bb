package ports

import (
	"context"
	"iter"
	"time"

	"AuctionHarvester/internal/domain"
)

// ListingRepository persists harvested listings keyed by content identity.
// Upsert never writes coordinates; UpdateCoordinates writes nothing else.
type ListingRepository interface {
	FindBySlug(ctx context.Context, slug string) (domain.Listing, bool, error)
	Upsert(ctx context.Context, listing domain.Listing) (created bool, err error)
	MissingCoordinates(ctx context.Context) iter.Seq2[domain.Listing, error]
	UpdateCoordinates(ctx context.Context, id int64, lat, lon float64) error
	MissingState(ctx context.Context) iter.Seq2[domain.Listing, error]
	UpdateState(ctx context.Context, id int64, state string) error
}

// Geocoder resolves addresses and serves autocomplete suggestions.
type Geocoder interface {
	Name() string
	Search(ctx context.Context, address string) ([]domain.GeoCandidate, error)
	Autocomplete(ctx context.Context, text string) ([]domain.Suggestion, error)
}

// Notifier streams run summaries to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
