package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"AuctionHarvester/internal/domain"
	"AuctionHarvester/internal/infrastructure/storage"
	"AuctionHarvester/internal/scanner"
)

type captureNotifier struct {
	digests []string
}

func (c *captureNotifier) PublishDigest(_ context.Context, digest string) error {
	c.digests = append(c.digests, digest)
	return nil
}

func TestRunOnceHarvestsThenGeocodes(t *testing.T) {
	t.Parallel()

	repo := storage.NewMemoryRepository()
	s := &fakeScanner{ids: map[string][]string{"SP": {"0001"}}}
	s.detail = func(_ scanner.ListItem) (domain.Listing, error) {
		return domain.Listing{
			Title:       "SAO PAULO - CENTRO",
			Description: "Casa",
			Amount:      domain.Float(150000),
			Address:     "RUA A, N. 50, SAO PAULO - SAO PAULO",
		}, nil
	}
	geo := &fakeGeocoder{results: map[string][]domain.GeoCandidate{
		"RUA A - 50 - SAO PAULO - SAO PAULO": {{Latitude: -23.5, Longitude: -46.6}},
	}}
	notifier := &captureNotifier{}

	sched := NewScheduler(SchedulerDeps{
		Harvester: newTestHarvester(s, repo, "SP"),
		Geocoder:  NewGeocodePipeline(GeocodeDeps{Repository: repo, Geocoder: geo}),
		Notifier:  notifier,
	})

	if err := sched.RunOnce(context.Background(), time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	stored := repo.All()
	if len(stored) != 1 || !stored[0].HasCoordinates() {
		t.Fatalf("harvested listing should be geocoded: %+v", stored)
	}
	if len(notifier.digests) != 1 {
		t.Fatalf("expected one digest, got %d", len(notifier.digests))
	}
	for _, want := range []string{"01/06/2024 08:00", "Created: 1", "Geocoded: 1"} {
		if !strings.Contains(notifier.digests[0], want) {
			t.Fatalf("digest missing %q:\n%s", want, notifier.digests[0])
		}
	}
}

func TestRunOnceRejectsOverlap(t *testing.T) {
	t.Parallel()

	sched := NewScheduler(SchedulerDeps{})
	sched.running.Lock()
	defer sched.running.Unlock()

	if err := sched.RunOnce(context.Background(), time.Now()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
}

func TestFormatDigestListsFailures(t *testing.T) {
	t.Parallel()

	digest := FormatDigest(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), &domain.HarvestReport{
		Created: 3,
		Regions: []domain.RegionReport{
			{Region: "SP", Category: "34", Err: errors.New("timeout")},
			{Region: "RJ", Category: "34", FailedBatch: 2},
		},
	}, nil)

	if !strings.Contains(digest, "SP/34") || !strings.Contains(digest, "Failed batches: 2") {
		t.Fatalf("unexpected digest:\n%s", digest)
	}
	if strings.Contains(digest, "Geocoded") {
		t.Fatalf("geocode line without a geocode report:\n%s", digest)
	}
}
