package domain

import "fmt"

// ExtractionSkip marks an item that is expected to be unrecoverable,
// such as a list entry without a listing number.
type ExtractionSkip struct {
	Reason string
}

func (e *ExtractionSkip) Error() string {
	return "extraction skipped: " + e.Reason
}

// InsufficientAddressError is returned when an address normalizes to nothing.
type InsufficientAddressError struct {
	ListingID int64
}

func (e *InsufficientAddressError) Error() string {
	return fmt.Sprintf("listing %d: insufficient address data", e.ListingID)
}
