package scanner

import (
	"context"
	"fmt"

	"AuctionHarvester/internal/domain"
)

// Request selects one region/category slice of the source.
type Request struct {
	Region   string
	Category domain.Category
}

// ListItem is what the batch list page tells us about one listing.
type ListItem struct {
	Number      string
	NumericID   string
	Description string
	RawAmount   string
	ImageURL    string
}

// Entry is one list item or the reason it could not be read.
type Entry struct {
	Item ListItem
	Skip error
}

// Scanner captures a single listing-site strategy.
type Scanner interface {
	Name() string
	DiscoverIDs(ctx context.Context, req Request) ([]string, error)
	FetchBatch(ctx context.Context, req Request, ids []string) ([]Entry, error)
	FetchDetail(ctx context.Context, req Request, item ListItem) (domain.Listing, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}
