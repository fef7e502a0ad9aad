package core

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultGeoRadiusKm is the radius used when a geopicker value has none.
	DefaultGeoRadiusKm = 20
	// EarthRadiusKm is the sphere radius both backends use for distances.
	EarthRadiusKm = 6378.1
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

var datetimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseNumber parses a user-entered number. NaN and infinities are rejected.
func parseNumber(raw string) (float64, bool) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// parseDate parses a calendar date and returns midnight UTC of that day.
func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// parseDatetime parses a timestamp. Layouts without a zone are read in loc.
func parseDatetime(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, true
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseCheckBox reads a check box filter value; only "true" is true.
func parseCheckBox(raw string) bool {
	return raw == "true"
}

// parseGeopicker splits "<place>:<radius_km>". A missing or unreadable
// radius falls back to DefaultGeoRadiusKm.
func parseGeopicker(raw string) (place string, radiusKm float64) {
	place, radius, hasRadius := strings.Cut(raw, ":")
	place = strings.TrimSpace(place)
	radiusKm = DefaultGeoRadiusKm
	if hasRadius {
		if value, ok := parseNumber(radius); ok && value > 0 {
			radiusKm = value
		}
	}
	return place, radiusKm
}
