// Package geocoding adapts the Geoapify and LocationIQ HTTP APIs to
// ports.Geocoder.
package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"AuctionHarvester/internal/infrastructure/httpclient"
	"AuctionHarvester/internal/ports"
)

// ErrMissingAPIKey is returned by every call of a provider without a key.
var ErrMissingAPIKey = errors.New("geocoding: api key not configured")

// Requester is the subset of httpclient.Client the providers need.
type Requester interface {
	Execute(ctx context.Context, req httpclient.Request) (*httpclient.Response, error)
}

// Options configures a single provider.
type Options struct {
	BaseURL     string
	APIKey      string
	CountryCode string
	Language    string
	Limit       int
	Timeout     time.Duration
}

func (o Options) withDefaults(baseURL string) Options {
	if o.BaseURL == "" {
		o.BaseURL = baseURL
	}
	o.BaseURL = strings.TrimSuffix(o.BaseURL, "/")
	if o.CountryCode == "" {
		o.CountryCode = "br"
	}
	if o.Language == "" {
		o.Language = "pt"
	}
	if o.Limit <= 0 {
		o.Limit = 5
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return o
}

// New resolves a provider by name.
func New(provider string, client Requester, opts Options) (ports.Geocoder, error) {
	switch strings.ToLower(provider) {
	case "", "geoapify":
		return NewGeoapify(client, opts), nil
	case "locationiq":
		return NewLocationIQ(client, opts), nil
	default:
		return nil, fmt.Errorf("unknown geocoding provider %q", provider)
	}
}

func decode(resp *httpclient.Response, into any) error {
	if err := json.Unmarshal(resp.Body, into); err != nil {
		return fmt.Errorf("decode %s: %w", resp.URL, err)
	}
	return nil
}
