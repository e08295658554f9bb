package domain

import "time"

// Listing is one property offered through the auction/sale process.
// Empty strings, nil pointers and nil slices mean the field was not found.
type Listing struct {
	ID        int64
	Slug      string
	Number    string
	NumericID string
	HiddenID  string

	Title               string
	Modality            string
	PropertyType        string
	Description         string
	DetailedDescription string

	AppraisalValue   *float64
	FirstAuctionMin  *float64
	SecondAuctionMin *float64
	Amount           *float64

	Rooms       *int
	Garage      *int
	TotalArea   *float64
	PrivateArea *float64
	LandArea    *float64

	Registry            string
	Jurisdiction        string
	RegistryOffice      string
	Inscription         string
	NegativeAuctionNote string

	Status            string
	Edital            string
	ItemNumber        string
	Auctioneer        string
	FirstAuctionAt    *time.Time
	SecondAuctionAt   *time.Time
	EditalPublishedAt *time.Time
	PaymentTerms      string
	ExpenseRules      string

	Address    string
	PostalCode string
	State      string

	Photos            []string
	ImageURL          string
	SourceURL         string
	RegistryDocURL    string
	EditalURL         string
	OnlineSaleURL     string
	PaymentTermsURL   string
	AuctioneerSiteURL string

	Latitude  *float64
	Longitude *float64
}

// HasCoordinates reports whether the listing was already geocoded.
func (l Listing) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// Category is one sale modality harvested from the source.
type Category struct {
	Code     string
	Name     string
	Modality string
}

// Suggestion is a single autocomplete candidate for map navigation.
type Suggestion struct {
	Text      string    `json:"text"`
	BBox      []float64 `json:"bbox,omitempty"`
	City      string    `json:"city,omitempty"`
	StateCode string    `json:"state_code,omitempty"`
}

// GeoCandidate is a geocoder hit, ordered by provider relevance.
type GeoCandidate struct {
	Latitude  float64
	Longitude float64
	Label     string
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
