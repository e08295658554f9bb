package storage

import (
	"context"
	"iter"
	"slices"
	"sync"

	"AuctionHarvester/internal/domain"
	"AuctionHarvester/internal/ports"
)

// MemoryRepository keeps listings in process. Used for dry runs and tests.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	bySlug map[string]*domain.Listing
}

var _ ports.ListingRepository = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{bySlug: make(map[string]*domain.Listing)}
}

// FindBySlug returns a copy of the stored listing.
func (r *MemoryRepository) FindBySlug(_ context.Context, slug string) (domain.Listing, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.bySlug[slug]
	if !ok {
		return domain.Listing{}, false, nil
	}
	return clone(*stored), true, nil
}

// Upsert merges into an existing record or inserts a new one.
func (r *MemoryRepository) Upsert(_ context.Context, listing domain.Listing) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stored, ok := r.bySlug[listing.Slug]; ok {
		merged := domain.Merge(*stored, listing)
		*stored = clone(merged)
		return false, nil
	}

	r.nextID++
	fresh := clone(listing)
	fresh.ID = r.nextID
	fresh.Latitude, fresh.Longitude = nil, nil
	r.bySlug[listing.Slug] = &fresh
	return true, nil
}

// MissingCoordinates yields a snapshot of listings without coordinates.
func (r *MemoryRepository) MissingCoordinates(ctx context.Context) iter.Seq2[domain.Listing, error] {
	return r.snapshot(ctx, func(l *domain.Listing) bool { return !l.HasCoordinates() })
}

// MissingState yields a snapshot of listings with no state code.
func (r *MemoryRepository) MissingState(ctx context.Context) iter.Seq2[domain.Listing, error] {
	return r.snapshot(ctx, func(l *domain.Listing) bool { return l.State == "" })
}

// UpdateCoordinates sets latitude and longitude on the listing with id.
func (r *MemoryRepository) UpdateCoordinates(_ context.Context, id int64, lat, lon float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l := r.byID(id); l != nil {
		l.Latitude, l.Longitude = domain.Float(lat), domain.Float(lon)
	}
	return nil
}

// UpdateState sets the state code on the listing with id.
func (r *MemoryRepository) UpdateState(_ context.Context, id int64, state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l := r.byID(id); l != nil {
		l.State = state
	}
	return nil
}

// All returns every stored listing ordered by id.
func (r *MemoryRepository) All() []domain.Listing {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Listing, 0, len(r.bySlug))
	for _, l := range r.bySlug {
		out = append(out, clone(*l))
	}
	slices.SortFunc(out, func(a, b domain.Listing) int { return int(a.ID - b.ID) })
	return out
}

func (r *MemoryRepository) byID(id int64) *domain.Listing {
	for _, l := range r.bySlug {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func (r *MemoryRepository) snapshot(ctx context.Context, keep func(*domain.Listing) bool) iter.Seq2[domain.Listing, error] {
	return func(yield func(domain.Listing, error) bool) {
		var matched []domain.Listing
		for _, l := range r.All() {
			if keep(&l) {
				matched = append(matched, l)
			}
		}
		for _, l := range matched {
			if err := ctx.Err(); err != nil {
				yield(domain.Listing{}, err)
				return
			}
			if !yield(l, nil) {
				return
			}
		}
	}
}

func clone(l domain.Listing) domain.Listing {
	l.Photos = slices.Clone(l.Photos)
	return l
}
