package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"proptracker/server/internal/geo"
)

type StationType string

const (
	StationTube         StationType = "tube"
	StationOverground   StationType = "overground"
	StationNationalRail StationType = "national_rail"
	StationTram         StationType = "tram"
)

func (t StationType) IsValid() bool {
	switch t {
	case StationTube, StationOverground, StationNationalRail, StationTram:
		return true
	}
	return false
}

// Station is a transit stop. AllTypes lists every mode served at
// interchanges; Type is the primary one.
type Station struct {
	ID       string      `gorm:"primaryKey" json:"id"`
	Name     string      `gorm:"not null" json:"name"`
	Lat      float64     `gorm:"not null" json:"lat"`
	Lng      float64     `gorm:"not null" json:"lng"`
	Lines    StringList  `gorm:"type:text" json:"lines"`
	Type     StationType `gorm:"not null;index" json:"type"`
	Zone     *int        `json:"zone,omitempty"`
	Networks StringList  `gorm:"type:text" json:"networks,omitempty"`
	AllTypes StringList  `gorm:"type:text" json:"allTypes,omitempty"`
}

func (Station) TableName() string { return "train_stations" }

func (s Station) Position() geo.Coordinate {
	return geo.Coordinate{Lat: s.Lat, Lng: s.Lng}
}

// School is a school with its latest inspection data. A zero
// PerformancePercentage means not reported.
type School struct {
	ID                    string  `gorm:"primaryKey" json:"id"`
	Name                  string  `gorm:"not null" json:"name"`
	Lat                   float64 `gorm:"not null" json:"lat"`
	Lng                   float64 `gorm:"not null" json:"lng"`
	OfstedRating          string  `json:"ofstedRating"`
	SchoolType            string  `json:"schoolType"`
	PerformancePercentage float64 `json:"performancePercentage"`
}

func (School) TableName() string { return "schools" }

func (s School) Position() geo.Coordinate {
	return geo.Coordinate{Lat: s.Lat, Lng: s.Lng}
}

type StationWithDistance struct {
	Station
	Distance    int `json:"distance"`
	WalkingTime int `json:"walkingTime"`
}

type SchoolWithDistance struct {
	School
	Distance    int `json:"distance"`
	WalkingTime int `json:"walkingTime"`
}

// StationMatches converts radius search output to the stored shape.
func StationMatches(matches []geo.Match[Station]) NearbyStations {
	out := make(NearbyStations, len(matches))
	for i, m := range matches {
		out[i] = StationWithDistance{Station: m.Item, Distance: m.RoundedDistance(), WalkingTime: m.WalkingTime}
	}
	return out
}

func SchoolMatches(matches []geo.Match[School]) NearbySchools {
	out := make(NearbySchools, len(matches))
	for i, m := range matches {
		out[i] = SchoolWithDistance{School: m.Item, Distance: m.RoundedDistance(), WalkingTime: m.WalkingTime}
	}
	return out
}

// NearbyStations is stored as a JSON array in a text column.
type NearbyStations []StationWithDistance

func (n NearbyStations) Value() (driver.Value, error) {
	return marshalList([]StationWithDistance(n))
}

func (n *NearbyStations) Scan(value interface{}) error {
	return scanList(value, (*[]StationWithDistance)(n))
}

func (n NearbyStations) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]StationWithDistance(n))
}

type NearbySchools []SchoolWithDistance

func (n NearbySchools) Value() (driver.Value, error) {
	return marshalList([]SchoolWithDistance(n))
}

func (n *NearbySchools) Scan(value interface{}) error {
	return scanList(value, (*[]SchoolWithDistance)(n))
}

func (n NearbySchools) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]SchoolWithDistance(n))
}

type StringList []string

func (l StringList) Value() (driver.Value, error) {
	return marshalList([]string(l))
}

func (l *StringList) Scan(value interface{}) error {
	return scanList(value, (*[]string)(l))
}

func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

func marshalList[T any](items []T) (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func scanList[T any](value interface{}, dest *[]T) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*dest = []T{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for JSON list column", value)
	}
	if len(data) == 0 {
		*dest = []T{}
		return nil
	}
	out := []T{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("failed to decode JSON list column: %w", err)
	}
	*dest = out
	return nil
}
