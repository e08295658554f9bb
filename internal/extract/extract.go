// Package extract holds total parsing helpers for scraped text. None of them
// panic; every helper degrades to "absent" on malformed input.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DateLayouts are tried in order; the first layout that parses wins.
var DateLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006 - 15h04",
}

// SourceLocation is the default zone for dates printed by the source.
var SourceLocation = time.FixedZone("BRT", -3*60*60)

// ErrEmpty is returned by ParseDate for blank input.
var ErrEmpty = errors.New("empty input")

// MalformedDateError reports text that matched none of the layouts.
type MalformedDateError struct {
	Text    string
	Layouts []string
}

func (e *MalformedDateError) Error() string {
	return fmt.Sprintf("date %q matches none of %v", e.Text, e.Layouts)
}

var (
	nonNumeric  = regexp.MustCompile(`[^\d,.]`)
	numberToken = regexp.MustCompile(`\d+\.?\d*`)
)

// ParseNumber reads a Brazilian formatted number such as "R$ 1.234,56".
// When both separators are present the dots are thousands separators.
func ParseNumber(text string) (float64, bool) {
	cleaned := nonNumeric.ReplaceAllString(text, "")
	if cleaned == "" {
		return 0, false
	}
	if strings.Contains(cleaned, ",") && strings.Contains(cleaned, ".") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	token := numberToken.FindString(cleaned)
	if token == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// ParseNumberPtr is ParseNumber returning nil when absent.
func ParseNumberPtr(text string) *float64 {
	if v, ok := ParseNumber(text); ok {
		return &v
	}
	return nil
}

// ParseInt accepts only an all-digit string, as used for room counts.
func ParseInt(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseDate parses text in the source zone using DateLayouts.
func ParseDate(text string) (time.Time, error) {
	return ParseDateIn(text, SourceLocation)
}

// ParseDateIn parses text in loc using DateLayouts, first match wins.
func ParseDateIn(text string, loc *time.Location) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, ErrEmpty
	}
	if loc == nil {
		loc = SourceLocation
	}
	for _, layout := range DateLayouts {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &MalformedDateError{Text: text, Layouts: DateLayouts}
}

var patternCache sync.Map

// Span returns the trimmed first capture group of pattern in text. Matching
// is case-insensitive and '.' crosses newlines. Invalid patterns, missing
// groups and no match all yield ok=false.
func Span(pattern, text string) (string, bool) {
	re, ok := compile(pattern)
	if !ok || re.NumSubexp() < 1 {
		return "", false
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func compile(pattern string) (*regexp.Regexp, bool) {
	if cached, ok := patternCache.Load(pattern); ok {
		re, _ := cached.(*regexp.Regexp)
		return re, re != nil
	}
	re, err := regexp.Compile(`(?is)` + pattern)
	if err != nil {
		patternCache.Store(pattern, (*regexp.Regexp)(nil))
		return nil, false
	}
	patternCache.Store(pattern, re)
	return re, true
}

// FirstPresent returns the first non-nil candidate in priority order.
func FirstPresent[T any](candidates ...*T) *T {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}
