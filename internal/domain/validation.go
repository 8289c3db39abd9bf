package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseBookID parses a book id given on the command line or in a URL path
func ParseBookID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid book id %q: must be a positive integer", s)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid book id %q: must be a positive integer", s)
	}
	return id, nil
}

// ValidateVersion validates a release or catalog version number
func ValidateVersion(v int) error {
	if v < 0 {
		return fmt.Errorf("invalid version %d: must not be negative", v)
	}
	return nil
}

// KnownYear returns nil when year is the unknown-year marker, otherwise a
// pointer to year.
func KnownYear(year int64) *int64 {
	if year == UnknownYear {
		return nil
	}
	return &year
}
