package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"AuctionHarvester/internal/domain"
	"AuctionHarvester/internal/infrastructure/storage"
)

type fakeGeocoder struct {
	mu          sync.Mutex
	results     map[string][]domain.GeoCandidate
	errs        map[string]error
	searched    []string
	searchedAt  []time.Time
	completions []string
	suggestions []domain.Suggestion
}

func (f *fakeGeocoder) Name() string { return "fake" }

func (f *fakeGeocoder) Search(_ context.Context, addr string) ([]domain.GeoCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searched = append(f.searched, addr)
	f.searchedAt = append(f.searchedAt, time.Now())
	if err := f.errs[addr]; err != nil {
		return nil, err
	}
	return f.results[addr], nil
}

func (f *fakeGeocoder) Autocomplete(_ context.Context, text string) ([]domain.Suggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completions = append(f.completions, text)
	return f.suggestions, nil
}

func seed(t *testing.T, repo *storage.MemoryRepository, listings ...domain.Listing) {
	t.Helper()
	for _, l := range listings {
		if _, err := repo.Upsert(context.Background(), l); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestGeocodePipelineOutcomes(t *testing.T) {
	t.Parallel()

	repo := storage.NewMemoryRepository()
	seed(t, repo,
		domain.Listing{Slug: "found", Address: "RUA A, N. 50, SAO PAULO - SAO PAULO"},
		domain.Listing{Slug: "missing", Address: "RUA B, 10, CAMPINAS - SAO PAULO"},
		domain.Listing{Slug: "broken", Address: "RUA C, 1, SANTOS - SAO PAULO"},
		domain.Listing{Slug: "empty"},
	)

	geo := &fakeGeocoder{
		results: map[string][]domain.GeoCandidate{
			"RUA A - 50 - SAO PAULO - SAO PAULO": {{Latitude: -23.5, Longitude: -46.6}, {Latitude: 0, Longitude: 0}},
		},
		errs: map[string]error{"RUA C - 1 - SANTOS - SAO PAULO": errors.New("status 500")},
	}

	report, err := NewGeocodePipeline(GeocodeDeps{Repository: repo, Geocoder: geo}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := domain.GeocodeReport{Succeeded: 1, NotFound: 1, Failed: 1, Skipped: 1}
	if report != want {
		t.Fatalf("report = %+v, want %+v", report, want)
	}
	if len(geo.searched) != 3 {
		t.Fatalf("empty address must not call the provider, got calls %v", geo.searched)
	}

	found, _, _ := repo.FindBySlug(context.Background(), "found")
	if !found.HasCoordinates() || *found.Latitude != -23.5 || *found.Longitude != -46.6 {
		t.Fatalf("first candidate should be stored: %+v", found)
	}
	for _, slug := range []string{"missing", "broken", "empty"} {
		l, _, _ := repo.FindBySlug(context.Background(), slug)
		if l.HasCoordinates() {
			t.Fatalf("%s should stay without coordinates", slug)
		}
	}
}

func TestGeocodePipelineSecondPassOnlyRetriesRemaining(t *testing.T) {
	t.Parallel()

	repo := storage.NewMemoryRepository()
	seed(t, repo, domain.Listing{Slug: "a", Address: "RUA A, 1, X - Y"})
	geo := &fakeGeocoder{results: map[string][]domain.GeoCandidate{"RUA A - 1 - X - Y": {{Latitude: 1, Longitude: 2}}}}
	p := NewGeocodePipeline(GeocodeDeps{Repository: repo, Geocoder: geo})

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if report != (domain.GeocodeReport{}) || len(geo.searched) != 1 {
		t.Fatalf("geocoded listing was searched again: %+v %v", report, geo.searched)
	}
}

func TestGeocodePipelineWaitsBetweenProviderCalls(t *testing.T) {
	t.Parallel()

	repo := storage.NewMemoryRepository()
	seed(t, repo,
		domain.Listing{Slug: "a", Address: "RUA A, 1, X - Y"},
		domain.Listing{Slug: "b", Address: "RUA B, 2, X - Y"},
		domain.Listing{Slug: "c", Address: "RUA C, 3, X - Y"},
	)

	const interval = 50 * time.Millisecond
	geo := &fakeGeocoder{}
	p := NewGeocodePipeline(GeocodeDeps{Repository: repo, Geocoder: geo, Limiter: NewProviderLimiter(interval)})

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.NotFound != 3 || len(geo.searchedAt) != 3 {
		t.Fatalf("unexpected report %+v, calls %d", report, len(geo.searchedAt))
	}
	for i := 1; i < len(geo.searchedAt); i++ {
		if gap := geo.searchedAt[i].Sub(geo.searchedAt[i-1]); gap < interval*9/10 {
			t.Fatalf("calls %d and %d only %v apart", i-1, i, gap)
		}
	}
}

func TestAutocompleterShortQuery(t *testing.T) {
	t.Parallel()

	geo := &fakeGeocoder{suggestions: []domain.Suggestion{{Text: "São Paulo", StateCode: "SP"}}}
	a := NewAutocompleter(geo)

	for _, text := range []string{"", "sa", "  sã  "} {
		got, err := a.Suggest(context.Background(), text)
		if err != nil {
			t.Fatalf("Suggest(%q): %v", text, err)
		}
		if got == nil || len(got) != 0 {
			t.Fatalf("Suggest(%q) should be an empty list, got %v", text, got)
		}
	}
	if len(geo.completions) != 0 {
		t.Fatalf("short queries must not call the provider: %v", geo.completions)
	}

	got, err := a.Suggest(context.Background(), " são ")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 1 || got[0].StateCode != "SP" || geo.completions[0] != "são" {
		t.Fatalf("unexpected result %v, calls %v", got, geo.completions)
	}
}

func TestAutocompleterNilResultIsEmptyList(t *testing.T) {
	t.Parallel()

	got, err := NewAutocompleter(&fakeGeocoder{}).Suggest(context.Background(), "campinas")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if got == nil {
		t.Fatalf("expected empty non-nil list")
	}
}

func TestStateBackfill(t *testing.T) {
	t.Parallel()

	repo := storage.NewMemoryRepository()
	seed(t, repo,
		domain.Listing{Slug: "sp", Address: "RUA A, 50, CENTRO - SAO PAULO"},
		domain.Listing{Slug: "pr", Address: "AV B, 10, CURITIBA - PARANÁ"},
		domain.Listing{Slug: "unknown", Address: "RUA C, 1"},
		domain.Listing{Slug: "done", Address: "RUA D - BAHIA", State: "BA"},
	)

	report, err := NewStateBackfill(repo, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Updated != 2 || report.Unmapped != 1 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	for slug, want := range map[string]string{"sp": "SP", "pr": "PR", "unknown": "", "done": "BA"} {
		l, _, _ := repo.FindBySlug(context.Background(), slug)
		if l.State != want {
			t.Fatalf("%s: state = %q, want %q", slug, l.State, want)
		}
	}
}
