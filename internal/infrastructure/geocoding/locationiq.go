package geocoding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"AuctionHarvester/internal/address"
	"AuctionHarvester/internal/domain"
	"AuctionHarvester/internal/infrastructure/httpclient"
	"AuctionHarvester/internal/ports"
)

const locationIQBaseURL = "https://us1.locationiq.com"

// LocationIQ calls the LocationIQ search and autocomplete APIs.
type LocationIQ struct {
	client Requester
	opts   Options
}

var _ ports.Geocoder = (*LocationIQ)(nil)

// NewLocationIQ wires the provider; empty options take LocationIQ defaults.
func NewLocationIQ(client Requester, opts Options) *LocationIQ {
	return &LocationIQ{client: client, opts: opts.withDefaults(locationIQBaseURL)}
}

func (l *LocationIQ) Name() string { return "locationiq" }

// locationIQPlace carries coordinates as strings, as the API sends them.
type locationIQPlace struct {
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	DisplayName string   `json:"display_name"`
	BoundingBox []string `json:"boundingbox"`
	Address     struct {
		Name  string `json:"name"`
		City  string `json:"city"`
		Town  string `json:"town"`
		State string `json:"state"`
	} `json:"address"`
}

// Search geocodes a formatted address. A 404 means no match.
func (l *LocationIQ) Search(ctx context.Context, addr string) ([]domain.GeoCandidate, error) {
	query := url.Values{}
	query.Set("q", addr)
	query.Set("format", "json")

	places, err := l.get(ctx, "/v1/search", query)
	if err != nil {
		return nil, err
	}

	out := make([]domain.GeoCandidate, 0, len(places))
	for _, p := range places {
		lat, errLat := strconv.ParseFloat(p.Lat, 64)
		lon, errLon := strconv.ParseFloat(p.Lon, 64)
		if errLat != nil || errLon != nil {
			continue
		}
		out = append(out, domain.GeoCandidate{Latitude: lat, Longitude: lon, Label: p.DisplayName})
	}
	return out, nil
}

// Autocomplete returns place suggestions; the bounding box is reordered to
// lon1,lat1,lon2,lat2 so both providers agree.
func (l *LocationIQ) Autocomplete(ctx context.Context, text string) ([]domain.Suggestion, error) {
	query := url.Values{}
	query.Set("q", text)
	query.Set("countrycodes", l.opts.CountryCode)
	query.Set("limit", strconv.Itoa(l.opts.Limit))
	query.Set("accept-language", l.opts.Language)

	places, err := l.get(ctx, "/v1/autocomplete", query)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Suggestion, 0, len(places))
	for _, p := range places {
		city := p.Address.City
		if city == "" {
			city = p.Address.Town
		}
		state, _ := address.LookupState(p.Address.State)
		out = append(out, domain.Suggestion{
			Text:      p.DisplayName,
			BBox:      lonLatBox(p.BoundingBox),
			City:      city,
			StateCode: state,
		})
	}
	return out, nil
}

func (l *LocationIQ) get(ctx context.Context, path string, query url.Values) ([]locationIQPlace, error) {
	if l.opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	query.Set("key", l.opts.APIKey)

	resp, err := l.client.Execute(ctx, httpclient.Request{
		Method:  http.MethodGet,
		URL:     l.opts.BaseURL + path,
		Query:   query,
		Header:  http.Header{"Accept": {"application/json"}},
		Timeout: l.opts.Timeout,
	})
	if err != nil {
		var statusErr *httpclient.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("locationiq %s: %w", path, err)
	}

	var places []locationIQPlace
	if err := decode(resp, &places); err != nil {
		return nil, err
	}
	return places, nil
}

// lonLatBox converts [minlat, maxlat, minlon, maxlon] to
// [minlon, minlat, maxlon, maxlat].
func lonLatBox(box []string) []float64 {
	if len(box) != 4 {
		return nil
	}
	v := make([]float64, 4)
	for i, s := range box {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		v[i] = f
	}
	return []float64{v[2], v[0], v[3], v[1]}
}
