package storage

import (
	"context"
	"testing"

	"AuctionHarvester/internal/domain"
)

func TestMemoryRepositoryUpsertMerges(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository()

	created, err := repo.Upsert(ctx, domain.Listing{
		Slug:   "abc",
		Title:  "CASA",
		Status: "Ocupado",
		Photos: []string{"f1"},
	})
	if err != nil || !created {
		t.Fatalf("first upsert: created=%v err=%v", created, err)
	}

	created, err = repo.Upsert(ctx, domain.Listing{Slug: "abc", Title: "CASA", Rooms: domain.Int(2)})
	if err != nil || created {
		t.Fatalf("second upsert: created=%v err=%v", created, err)
	}

	got, ok, err := repo.FindBySlug(ctx, "abc")
	if err != nil || !ok {
		t.Fatalf("find: ok=%v err=%v", ok, err)
	}
	if got.ID != 1 {
		t.Fatalf("id should be stable, got %d", got.ID)
	}
	if got.Status != "Ocupado" || len(got.Photos) != 1 {
		t.Fatalf("absent fields overwrote stored values: %+v", got)
	}
	if got.Rooms == nil || *got.Rooms != 2 {
		t.Fatalf("rooms not merged: %v", got.Rooms)
	}
	if n := len(repo.All()); n != 1 {
		t.Fatalf("expected 1 record, got %d", n)
	}
}

func TestMemoryRepositoryUpsertIgnoresCoordinates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository()

	if _, err := repo.Upsert(ctx, domain.Listing{Slug: "abc", Latitude: domain.Float(1), Longitude: domain.Float(2)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, _, _ := repo.FindBySlug(ctx, "abc")
	if got.HasCoordinates() {
		t.Fatalf("upsert must not write coordinates")
	}

	if err := repo.UpdateCoordinates(ctx, got.ID, -23.5, -46.6); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := repo.Upsert(ctx, domain.Listing{Slug: "abc", Title: "x"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, _, _ = repo.FindBySlug(ctx, "abc")
	if !got.HasCoordinates() || *got.Latitude != -23.5 {
		t.Fatalf("re-harvest cleared coordinates: %+v", got)
	}
}

func TestMemoryRepositoryMissingIterators(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository()
	for _, l := range []domain.Listing{
		{Slug: "a", State: "SP"},
		{Slug: "b"},
		{Slug: "c", State: "RJ"},
	} {
		if _, err := repo.Upsert(ctx, l); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if err := repo.UpdateCoordinates(ctx, 1, 1, 1); err != nil {
		t.Fatalf("update: %v", err)
	}

	var missingGeo []string
	for l, err := range repo.MissingCoordinates(ctx) {
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		missingGeo = append(missingGeo, l.Slug)
	}
	if len(missingGeo) != 2 || missingGeo[0] != "b" || missingGeo[1] != "c" {
		t.Fatalf("unexpected missing coordinates: %v", missingGeo)
	}

	var missingState []string
	for l, err := range repo.MissingState(ctx) {
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		missingState = append(missingState, l.Slug)
	}
	if len(missingState) != 1 || missingState[0] != "b" {
		t.Fatalf("unexpected missing state: %v", missingState)
	}

	if err := repo.UpdateState(ctx, 2, "MG"); err != nil {
		t.Fatalf("update state: %v", err)
	}
	got, _, _ := repo.FindBySlug(ctx, "b")
	if got.State != "MG" {
		t.Fatalf("state not updated: %q", got.State)
	}
}

func TestMemoryRepositoryIteratorStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	repo := NewMemoryRepository()
	_, _ = repo.Upsert(ctx, domain.Listing{Slug: "a"})
	cancel()

	for _, err := range repo.MissingCoordinates(ctx) {
		if err == nil {
			t.Fatalf("expected context error")
		}
		return
	}
	t.Fatalf("iterator yielded nothing")
}
