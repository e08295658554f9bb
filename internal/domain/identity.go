package domain

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ContentIdentity derives the dedup key from title, description and amount.
// When any of the three is missing the key is random, so such listings never
// collapse into one another.
func ContentIdentity(title, description string, amount *float64) string {
	var input string
	if title != "" && description != "" && amount != nil && *amount != 0 {
		input = title + "-" + description + "-" + formatAmount(*amount)
	} else {
		input = "imovel-" + uuid.NewString()
	}
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}

// formatAmount renders v the way slugs already stored in the listings table
// were built: shortest round-trip digits, always with a fractional part, and
// exponent notation outside [1e-4, 1e16).
func formatAmount(v float64) string {
	if a := math.Abs(v); a != 0 && (a < 1e-4 || a >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Merge copies every present field of incoming over existing. Absent fields
// never clear stored values and coordinates are left untouched.
func Merge(existing, incoming Listing) Listing {
	out := existing

	mergeString(&out.Slug, incoming.Slug)
	mergeString(&out.Number, incoming.Number)
	mergeString(&out.NumericID, incoming.NumericID)
	mergeString(&out.HiddenID, incoming.HiddenID)
	mergeString(&out.Title, incoming.Title)
	mergeString(&out.Modality, incoming.Modality)
	mergeString(&out.PropertyType, incoming.PropertyType)
	mergeString(&out.Description, incoming.Description)
	mergeString(&out.DetailedDescription, incoming.DetailedDescription)

	mergePtr(&out.AppraisalValue, incoming.AppraisalValue)
	mergePtr(&out.FirstAuctionMin, incoming.FirstAuctionMin)
	mergePtr(&out.SecondAuctionMin, incoming.SecondAuctionMin)
	mergePtr(&out.Amount, incoming.Amount)

	mergePtr(&out.Rooms, incoming.Rooms)
	mergePtr(&out.Garage, incoming.Garage)
	mergePtr(&out.TotalArea, incoming.TotalArea)
	mergePtr(&out.PrivateArea, incoming.PrivateArea)
	mergePtr(&out.LandArea, incoming.LandArea)

	mergeString(&out.Registry, incoming.Registry)
	mergeString(&out.Jurisdiction, incoming.Jurisdiction)
	mergeString(&out.RegistryOffice, incoming.RegistryOffice)
	mergeString(&out.Inscription, incoming.Inscription)
	mergeString(&out.NegativeAuctionNote, incoming.NegativeAuctionNote)

	mergeString(&out.Status, incoming.Status)
	mergeString(&out.Edital, incoming.Edital)
	mergeString(&out.ItemNumber, incoming.ItemNumber)
	mergeString(&out.Auctioneer, incoming.Auctioneer)
	mergePtr(&out.FirstAuctionAt, incoming.FirstAuctionAt)
	mergePtr(&out.SecondAuctionAt, incoming.SecondAuctionAt)
	mergePtr(&out.EditalPublishedAt, incoming.EditalPublishedAt)
	mergeString(&out.PaymentTerms, incoming.PaymentTerms)
	mergeString(&out.ExpenseRules, incoming.ExpenseRules)

	mergeString(&out.Address, incoming.Address)
	mergeString(&out.PostalCode, incoming.PostalCode)
	mergeString(&out.State, incoming.State)

	if len(incoming.Photos) > 0 {
		out.Photos = append([]string(nil), incoming.Photos...)
	}
	mergeString(&out.ImageURL, incoming.ImageURL)
	mergeString(&out.SourceURL, incoming.SourceURL)
	mergeString(&out.RegistryDocURL, incoming.RegistryDocURL)
	mergeString(&out.EditalURL, incoming.EditalURL)
	mergeString(&out.OnlineSaleURL, incoming.OnlineSaleURL)
	mergeString(&out.PaymentTermsURL, incoming.PaymentTermsURL)
	mergeString(&out.AuctioneerSiteURL, incoming.AuctioneerSiteURL)

	return out
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergePtr[T any](dst **T, v *T) {
	if v != nil {
		c := *v
		*dst = &c
	}
}
