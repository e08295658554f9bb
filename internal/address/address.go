// Package address turns free-form listing addresses into geocoder queries.
package address

import (
	"regexp"
	"strings"
)

// Components is the decomposed form of a listing address.
type Components struct {
	Street string
	Number string
	City   string
	State  string
}

// String joins the present parts with " - ".
func (c Components) String() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{c.Street, c.Number, c.City, c.State} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " - ")
}

var (
	cityStateSuffix = regexp.MustCompile(`,\s*([^,]+?)\s*-\s*([A-Z\s]+)$`)
	houseNumber     = regexp.MustCompile(`(?:,?\s*N[º°.]?\s*|,\s*)(\d+)`)
)

// Normalize formats raw as "STREET - NUMBER - CITY - STATE", falling back to
// the title for city and state. It returns "" when nothing usable is found.
func Normalize(raw, title string) string {
	return Decompose(raw, title).String()
}

// Decompose runs the heuristic cascade. Stages that do not match leave
// their field empty.
func Decompose(raw, title string) Components {
	var c Components
	if strings.TrimSpace(raw) == "" {
		return c
	}

	s := strings.ToUpper(raw)

	if loc := cityStateSuffix.FindStringSubmatchIndex(s); loc != nil {
		c.City = strings.TrimSpace(s[loc[2]:loc[3]])
		c.State = strings.TrimSpace(s[loc[4]:loc[5]])
		s = s[:loc[0]]
	}

	if loc := houseNumber.FindStringSubmatchIndex(s); loc != nil {
		c.Number = strings.TrimSpace(s[loc[2]:loc[3]])
		c.Street = strings.Trim(s[:loc[0]], ", ")
	} else {
		street, _, _ := strings.Cut(s, ",")
		c.Street = strings.TrimSpace(street)
	}

	if c.City == "" && title != "" {
		parts := strings.Split(strings.ToUpper(title), "-")
		c.City = strings.TrimSpace(parts[0])
		if len(parts) > 1 && c.State == "" {
			c.State = strings.TrimSpace(parts[1])
		}
	}

	return c
}
