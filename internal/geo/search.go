package geo

import (
	"math"
	"sort"
)

// Locatable is anything with a fixed position, such as a station or school.
type Locatable interface {
	Position() Coordinate
}

// Match pairs a POI with its distance from a search origin.
type Match[T Locatable] struct {
	Item        T
	Distance    float64
	WalkingTime int
}

// RoundedDistance is the distance in whole meters, as exposed to clients.
func (m Match[T]) RoundedDistance() int {
	return roundMeters(m.Distance)
}

// FindWithinRadius returns every item no further than radius meters from
// origin, nearest first. Items at equal distance keep their input order.
func FindWithinRadius[T Locatable](origin Coordinate, items []T, radius float64) []Match[T] {
	matches := make([]Match[T], 0)
	for _, item := range items {
		d := Distance(origin, item.Position())
		if d <= radius {
			matches = append(matches, Match[T]{
				Item:        item,
				Distance:    d,
				WalkingTime: WalkingTimeMinutes(d),
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	return matches
}

// FindNearest returns the closest item to origin. The first of several
// equidistant items wins. ok is false when items is empty.
func FindNearest[T Locatable](origin Coordinate, items []T) (match Match[T], ok bool) {
	for _, item := range items {
		d := Distance(origin, item.Position())
		if !ok || d < match.Distance {
			match = Match[T]{Item: item, Distance: d}
			ok = true
		}
	}
	if ok {
		match.WalkingTime = WalkingTimeMinutes(match.Distance)
	}
	return match, ok
}

func roundMeters(d float64) int {
	return int(math.Round(d))
}
