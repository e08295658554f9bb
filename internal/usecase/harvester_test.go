package usecase

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"AuctionHarvester/internal/domain"
	"AuctionHarvester/internal/infrastructure/storage"
	"AuctionHarvester/internal/scanner"
)

type fakeScanner struct {
	mu        sync.Mutex
	ids       map[string][]string
	searchErr map[string]error
	batchErr  error
	detail    func(item scanner.ListItem) (domain.Listing, error)
	batches   [][]string
	details   int
}

func (f *fakeScanner) Name() string { return "fake" }

func (f *fakeScanner) DiscoverIDs(_ context.Context, req scanner.Request) ([]string, error) {
	if err := f.searchErr[req.Region]; err != nil {
		return nil, err
	}
	return f.ids[req.Region], nil
}

func (f *fakeScanner) FetchBatch(_ context.Context, _ scanner.Request, ids []string) ([]scanner.Entry, error) {
	f.mu.Lock()
	f.batches = append(f.batches, ids)
	f.mu.Unlock()
	if f.batchErr != nil {
		return nil, f.batchErr
	}

	entries := make([]scanner.Entry, 0, len(ids))
	for _, id := range ids {
		if strings.HasPrefix(id, "nonumber") {
			entries = append(entries, scanner.Entry{Skip: &domain.ExtractionSkip{Reason: "listing number not found"}})
			continue
		}
		entries = append(entries, scanner.Entry{Item: scanner.ListItem{
			Number:      id,
			NumericID:   id,
			Description: "desc " + id,
		}})
	}
	return entries, nil
}

func (f *fakeScanner) FetchDetail(_ context.Context, _ scanner.Request, item scanner.ListItem) (domain.Listing, error) {
	f.mu.Lock()
	f.details++
	f.mu.Unlock()
	if f.detail != nil {
		return f.detail(item)
	}
	return domain.Listing{
		Number:      item.Number,
		Title:       "CASA " + item.Number,
		Description: item.Description,
		Amount:      domain.Float(100000),
	}, nil
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func newTestHarvester(s *fakeScanner, repo *storage.MemoryRepository, regions ...string) *Harvester {
	return NewHarvester(HarvesterDeps{
		Scanner:    s,
		Repository: repo,
		Regions:    regions,
		Categories: []domain.Category{{Code: "34", Name: "Venda Online", Modality: "Venda Direta"}},
		BatchSize:  10,
		Sleep:      noSleep,
	})
}

func TestHarvesterUpsertsGoodItemAndSkipsMissingNumber(t *testing.T) {
	t.Parallel()

	s := &fakeScanner{ids: map[string][]string{"SP": {"0001", "nonumber-1"}}}
	repo := storage.NewMemoryRepository()

	report, err := newTestHarvester(s, repo, "SP").Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Created != 1 || report.Skipped != 1 || report.Failed != 0 {
		t.Fatalf("unexpected totals: %+v", report)
	}
	if report.RunID == "" {
		t.Fatalf("run id missing")
	}
	if n := len(repo.All()); n != 1 {
		t.Fatalf("expected 1 stored listing, got %d", n)
	}
	if s.details != 1 {
		t.Fatalf("skipped entry must not fetch detail, got %d detail calls", s.details)
	}

	batch := report.Regions[0].Batches[0]
	if batch.Count(domain.ActionSkipped) != 1 || batch.Count(domain.ActionCreated) != 1 {
		t.Fatalf("unexpected batch outcomes: %+v", batch.Outcomes)
	}
}

func TestHarvesterIsIdempotent(t *testing.T) {
	t.Parallel()

	s := &fakeScanner{ids: map[string][]string{"SP": {"0001", "0002"}}}
	repo := storage.NewMemoryRepository()
	h := newTestHarvester(s, repo, "SP")

	first, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.Created != 2 || second.Created != 0 || second.Updated != 2 {
		t.Fatalf("unexpected totals: first=%+v second=%+v", first, second)
	}
	if n := len(repo.All()); n != 2 {
		t.Fatalf("expected 2 stored listings, got %d", n)
	}
	if first.RunID == second.RunID {
		t.Fatalf("runs should have distinct ids")
	}
}

func TestHarvesterChunksBatches(t *testing.T) {
	t.Parallel()

	ids := make([]string, 25)
	for i := range ids {
		ids[i] = string(rune('A'+i)) + "-id"
	}
	s := &fakeScanner{ids: map[string][]string{"SP": ids}}

	report, err := newTestHarvester(s, storage.NewMemoryRepository(), "SP").Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(s.batches) != 3 || len(s.batches[0]) != 10 || len(s.batches[2]) != 5 {
		t.Fatalf("unexpected batches: %v", s.batches)
	}
	if report.Regions[0].Discovered != 25 || report.Created != 25 {
		t.Fatalf("unexpected report: %+v", report.Regions[0])
	}
}

func TestHarvesterSkipsFailedRegionAndContinues(t *testing.T) {
	t.Parallel()

	s := &fakeScanner{
		ids:       map[string][]string{"RJ": {"0001"}},
		searchErr: map[string]error{"SP": errors.New("connection reset")},
	}

	report, err := newTestHarvester(s, storage.NewMemoryRepository(), "SP", "MG", "RJ").Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Regions) != 3 {
		t.Fatalf("expected 3 region reports, got %d", len(report.Regions))
	}
	if report.Regions[0].Err == nil {
		t.Fatalf("SP should carry the search error")
	}
	if report.Regions[1].Discovered != 0 || len(report.Regions[1].Batches) != 0 {
		t.Fatalf("MG has no ids and should be skipped: %+v", report.Regions[1])
	}
	if report.Regions[2].Created != 1 {
		t.Fatalf("RJ should still be harvested: %+v", report.Regions[2])
	}
}

func TestHarvesterCountsFailedBatch(t *testing.T) {
	t.Parallel()

	s := &fakeScanner{
		ids:      map[string][]string{"SP": {"0001", "0002"}},
		batchErr: errors.New("status 500"),
	}

	report, err := newTestHarvester(s, storage.NewMemoryRepository(), "SP").Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Regions[0].FailedBatch != 1 || report.Created != 0 {
		t.Fatalf("unexpected report: %+v", report.Regions[0])
	}
}

func TestHarvesterIsolatesItemFailures(t *testing.T) {
	t.Parallel()

	s := &fakeScanner{ids: map[string][]string{"SP": {"ok", "panic", "gone", "broken"}}}
	s.detail = func(item scanner.ListItem) (domain.Listing, error) {
		switch item.Number {
		case "panic":
			var m map[string]int
			m["boom"]++
		case "gone":
			return domain.Listing{}, &domain.ExtractionSkip{Reason: "detail block missing"}
		case "broken":
			return domain.Listing{}, errors.New("timeout")
		}
		return domain.Listing{Number: item.Number, Title: "T", Description: "D", Amount: domain.Float(1)}, nil
	}

	report, err := newTestHarvester(s, storage.NewMemoryRepository(), "SP").Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Created != 1 || report.Skipped != 1 || report.Failed != 2 {
		t.Fatalf("unexpected totals: %+v", report)
	}

	for _, o := range report.Regions[0].Batches[0].Outcomes {
		if o.Number == "panic" && (o.Action != domain.ActionFailed || !strings.Contains(o.Err.Error(), "panic")) {
			t.Fatalf("panic not recovered into outcome: %+v", o)
		}
	}
}

func TestHarvesterNeverWritesCoordinates(t *testing.T) {
	t.Parallel()

	s := &fakeScanner{ids: map[string][]string{"SP": {"0001"}}}
	s.detail = func(item scanner.ListItem) (domain.Listing, error) {
		return domain.Listing{Title: "T", Description: "D", Amount: domain.Float(1), Latitude: domain.Float(1), Longitude: domain.Float(1)}, nil
	}
	repo := storage.NewMemoryRepository()

	if _, err := newTestHarvester(s, repo, "SP").Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if repo.All()[0].HasCoordinates() {
		t.Fatalf("harvester wrote coordinates")
	}
}

func TestHarvesterStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s := &fakeScanner{ids: map[string][]string{"SP": {"0001"}, "RJ": {"0002"}}}
	s.detail = func(item scanner.ListItem) (domain.Listing, error) {
		cancel()
		return domain.Listing{Title: "T", Description: item.Number, Amount: domain.Float(1)}, nil
	}

	report, err := newTestHarvester(s, storage.NewMemoryRepository(), "SP", "RJ").Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(report.Regions) != 1 {
		t.Fatalf("second region should not start, got %d regions", len(report.Regions))
	}
}

func TestHarvesterPacesDetailsAndBatches(t *testing.T) {
	t.Parallel()

	var events []string
	s := &fakeScanner{ids: map[string][]string{"SP": {"0001", "nonumber-1", "0002"}}}
	s.detail = func(item scanner.ListItem) (domain.Listing, error) {
		events = append(events, "detail "+item.Number)
		return domain.Listing{Number: item.Number, Title: "T", Description: item.Number, Amount: domain.Float(1)}, nil
	}

	h := NewHarvester(HarvesterDeps{
		Scanner:      s,
		Repository:   storage.NewMemoryRepository(),
		Regions:      []string{"SP"},
		Categories:   []domain.Category{{Code: "34"}},
		BatchSize:    2,
		ItemDelayMin: 500 * time.Millisecond,
		ItemDelayMax: 500 * time.Millisecond,
		BatchPause:   2 * time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			events = append(events, "sleep "+d.String())
			return ctx.Err()
		},
	})

	if _, err := h.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{
		"sleep 500ms", "detail 0001", "sleep 2s",
		"sleep 500ms", "detail 0002", "sleep 2s",
	}
	if !slices.Equal(events, want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
}

func TestItemDelayWithinBounds(t *testing.T) {
	t.Parallel()

	h := NewHarvester(HarvesterDeps{ItemDelayMin: 500 * time.Millisecond, ItemDelayMax: time.Second})
	for range 100 {
		d := h.itemDelay()
		if d < 500*time.Millisecond || d > time.Second {
			t.Fatalf("delay %v out of bounds", d)
		}
	}
}
