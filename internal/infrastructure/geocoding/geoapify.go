package geocoding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"AuctionHarvester/internal/domain"
	"AuctionHarvester/internal/infrastructure/httpclient"
	"AuctionHarvester/internal/ports"
)

const geoapifyBaseURL = "https://api.geoapify.com"

// Geoapify calls the Geoapify geocoding API.
type Geoapify struct {
	client Requester
	opts   Options
}

var _ ports.Geocoder = (*Geoapify)(nil)

// NewGeoapify wires the provider; empty options take Geoapify defaults.
func NewGeoapify(client Requester, opts Options) *Geoapify {
	return &Geoapify{client: client, opts: opts.withDefaults(geoapifyBaseURL)}
}

func (g *Geoapify) Name() string { return "geoapify" }

type geoapifyFeature struct {
	BBox       []float64 `json:"bbox"`
	Properties struct {
		Lat       float64 `json:"lat"`
		Lon       float64 `json:"lon"`
		Formatted string  `json:"formatted"`
		City      string  `json:"city"`
		StateCode string  `json:"state_code"`
	} `json:"properties"`
}

type geoapifyResponse struct {
	Results []struct {
		Lat       float64 `json:"lat"`
		Lon       float64 `json:"lon"`
		Formatted string  `json:"formatted"`
	} `json:"results"`
	Features []geoapifyFeature `json:"features"`
}

// Search geocodes a formatted address; candidates keep provider order.
func (g *Geoapify) Search(ctx context.Context, address string) ([]domain.GeoCandidate, error) {
	query := url.Values{}
	query.Set("text", address)
	query.Set("format", "json")

	var body geoapifyResponse
	if err := g.get(ctx, "/v1/geocode/search", query, &body); err != nil {
		return nil, err
	}

	out := make([]domain.GeoCandidate, 0, len(body.Results)+len(body.Features))
	for _, r := range body.Results {
		out = append(out, domain.GeoCandidate{Latitude: r.Lat, Longitude: r.Lon, Label: r.Formatted})
	}
	if len(out) == 0 {
		for _, f := range body.Features {
			p := f.Properties
			out = append(out, domain.GeoCandidate{Latitude: p.Lat, Longitude: p.Lon, Label: p.Formatted})
		}
	}
	return out, nil
}

// Autocomplete returns place suggestions scoped to the configured country.
func (g *Geoapify) Autocomplete(ctx context.Context, text string) ([]domain.Suggestion, error) {
	query := url.Values{}
	query.Set("text", text)
	query.Set("lang", g.opts.Language)
	query.Set("limit", strconv.Itoa(g.opts.Limit))
	query.Set("filter", "countrycode:"+g.opts.CountryCode)

	var body geoapifyResponse
	if err := g.get(ctx, "/v1/geocode/autocomplete", query, &body); err != nil {
		return nil, err
	}

	out := make([]domain.Suggestion, 0, len(body.Features))
	for _, f := range body.Features {
		out = append(out, domain.Suggestion{
			Text:      f.Properties.Formatted,
			BBox:      f.BBox,
			City:      f.Properties.City,
			StateCode: f.Properties.StateCode,
		})
	}
	return out, nil
}

func (g *Geoapify) get(ctx context.Context, path string, query url.Values, into any) error {
	if g.opts.APIKey == "" {
		return ErrMissingAPIKey
	}
	query.Set("apiKey", g.opts.APIKey)

	resp, err := g.client.Execute(ctx, httpclient.Request{
		Method:  http.MethodGet,
		URL:     g.opts.BaseURL + path,
		Query:   query,
		Header:  http.Header{"Accept": {"application/json"}},
		Timeout: g.opts.Timeout,
	})
	if err != nil {
		return fmt.Errorf("geoapify %s: %w", path, err)
	}
	return decode(resp, into)
}
