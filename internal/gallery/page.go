package gallery

import (
	"fmt"
	"strconv"
	"strings"
)

// Page bounds a listing.
type Page struct {
	Limit  int
	Offset int
}

// PageLimits holds the configured default and ceiling for Page.Limit.
type PageLimits struct {
	Default int
	Max     int
}

// ParsePage converts raw limit/offset query values. Empty values fall back to the
// defaults, limits above the ceiling are clamped to it.
func (l PageLimits) ParsePage(rawLimit, rawOffset string) (Page, error) {
	p := Page{Limit: l.Default}

	if s := strings.TrimSpace(rawLimit); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Page{}, fmt.Errorf("%w: limit must be an integer", ErrValidation)
		}
		if n <= 0 {
			return Page{}, fmt.Errorf("%w: limit must be positive", ErrValidation)
		}
		p.Limit = n
	}
	if l.Max > 0 && p.Limit > l.Max {
		p.Limit = l.Max
	}

	if s := strings.TrimSpace(rawOffset); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Page{}, fmt.Errorf("%w: offset must be an integer", ErrValidation)
		}
		if n < 0 {
			return Page{}, fmt.Errorf("%w: offset must not be negative", ErrValidation)
		}
		p.Offset = n
	}
	return p, nil
}
