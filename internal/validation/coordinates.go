package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"proptracker/server/config"
	"proptracker/server/internal/geo"
)

const (
	MsgBothRequired = "Both latitude and longitude are required"
	MsgNotNumbers   = "Latitude and longitude must both be provided as numbers"
	MsgLatRange     = "Latitude must be between -90 and 90"
	MsgLngRange     = "Longitude must be between -180 and 180"
)

// Error is a caller-facing validation failure.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

type Options struct {
	// Clamp pulls out-of-range values back into range instead of rejecting.
	Clamp bool

	// Region is advisory. A zero Region disables the check.
	Region config.Region
}

type Result struct {
	// Nil when both inputs were absent.
	Coordinate *geo.Coordinate

	Warnings      []string
	Clamped       bool
	OutsideRegion bool
}

// ValidateCoordinate normalises a raw (lat, lng) pair as received from a
// request body or query string. Both absent is valid and yields a nil
// Coordinate; exactly one absent is an error.
func ValidateCoordinate(rawLat, rawLng interface{}, opts Options) (Result, error) {
	lat, latPresent, latErr := parseNumber(rawLat)
	lng, lngPresent, lngErr := parseNumber(rawLng)

	if !latPresent && !lngPresent {
		return Result{Warnings: []string{}}, nil
	}
	if latPresent != lngPresent {
		field := "gpsLat"
		if latPresent {
			field = "gpsLng"
		}
		return Result{}, &Error{Field: field, Message: MsgBothRequired}
	}
	if latErr != nil || lngErr != nil {
		field := "gpsLat"
		if latErr == nil {
			field = "gpsLng"
		}
		return Result{}, &Error{Field: field, Message: MsgNotNumbers}
	}

	res := Result{Warnings: []string{}}

	if lat < -90 || lat > 90 {
		if !opts.Clamp {
			return Result{}, &Error{Field: "gpsLat", Message: MsgLatRange}
		}
		clamped := clamp(lat, -90, 90)
		res.Warnings = append(res.Warnings, fmt.Sprintf("Latitude %v clamped to %v", lat, clamped))
		res.Clamped = true
		lat = clamped
	}
	if lng < -180 || lng > 180 {
		if !opts.Clamp {
			return Result{}, &Error{Field: "gpsLng", Message: MsgLngRange}
		}
		clamped := clamp(lng, -180, 180)
		res.Warnings = append(res.Warnings, fmt.Sprintf("Longitude %v clamped to %v", lng, clamped))
		res.Clamped = true
		lng = clamped
	}

	if opts.Region.Name != "" && !opts.Region.Contains(lat, lng) {
		res.OutsideRegion = true
		res.Warnings = append(res.Warnings, fmt.Sprintf("Coordinates (%v, %v) are outside the %s area", lat, lng, opts.Region.Name))
	}

	res.Coordinate = &geo.Coordinate{Lat: lat, Lng: lng}
	return res, nil
}

var errNotNumber = fmt.Errorf("not a finite number")

// parseNumber reports whether v carries a value and, if so, whether it is a
// finite number. Blank strings count as absent.
func parseNumber(v interface{}) (float64, bool, error) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false, nil
	case *float64:
		if n == nil {
			return 0, false, nil
		}
		f = *n
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, true, errNotNumber
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false, nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, true, errNotNumber
		}
		f = parsed
	default:
		return 0, true, errNotNumber
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, true, errNotNumber
	}
	return f, true, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
