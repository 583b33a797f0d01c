package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

type PropertyStatus string

const (
	StatusNotContacted  PropertyStatus = "Not contacted"
	StatusContacted     PropertyStatus = "Contacted"
	StatusViewingBooked PropertyStatus = "Viewing booked"
	StatusViewed        PropertyStatus = "Viewed"
	StatusRejected      PropertyStatus = "Rejected"
	StatusSold          PropertyStatus = "Sold"
)

var AllStatuses = []PropertyStatus{
	StatusNotContacted,
	StatusContacted,
	StatusViewingBooked,
	StatusViewed,
	StatusRejected,
	StatusSold,
}

func (s PropertyStatus) IsValid() bool {
	for _, status := range AllStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// DateLayout is the format of firstListedDate and dateViewed.
const DateLayout = "2006-01-02"

// Property is a candidate home being tracked. NearbyStations and
// NearbySchools are written only by the proximity service.
type Property struct {
	ID                 int64           `gorm:"primaryKey" json:"id"`
	Name               string          `gorm:"not null" json:"name"`
	Price              *int64          `json:"price"` // pence
	SquareFeet         *int            `json:"squareFeet"`
	Bedrooms           *int            `json:"bedrooms"`
	Bathrooms          *int            `json:"bathrooms"`
	Status             PropertyStatus  `gorm:"not null;default:'Not contacted';index" json:"status"`
	Link               string          `json:"link"`
	Agency             string          `json:"agency"`
	GPSLat             *float64        `gorm:"column:gps_lat;index:idx_properties_coordinates" json:"gpsLat"`
	GPSLng             *float64        `gorm:"column:gps_lng;index:idx_properties_coordinates" json:"gpsLng"`
	MapReference       string          `json:"mapReference"`
	Notes              string          `json:"notes"`
	FirstListedDate    *string         `json:"firstListedDate"`
	TimeOnMarketMonths *int            `gorm:"-" json:"timeOnMarketMonths"`
	NearbyStations     NearbyStations  `gorm:"type:text" json:"nearbyStations"`
	NearbySchools      NearbySchools   `gorm:"type:text" json:"nearbySchools"`
	CoverImage         *string         `gorm:"-" json:"coverImage"`
	Images             []PropertyImage `gorm:"constraint:OnDelete:CASCADE" json:"images,omitempty"`
	DateAdded          time.Time       `gorm:"autoCreateTime" json:"dateAdded"`
	DateViewed         *string         `json:"dateViewed"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// HasCoordinates reports whether both axes are set.
func (p *Property) HasCoordinates() bool {
	return p.GPSLat != nil && p.GPSLng != nil
}

func (p *Property) AfterFind(tx *gorm.DB) error {
	p.TimeOnMarketMonths = MonthsOnMarket(p.FirstListedDate, time.Now())
	return nil
}

// MonthsOnMarket counts whole 30-day months since firstListed. Dates in the
// future count as zero; a missing or malformed date yields nil.
func MonthsOnMarket(firstListed *string, now time.Time) *int {
	if firstListed == nil || *firstListed == "" {
		return nil
	}
	listed, err := time.Parse(DateLayout, *firstListed)
	if err != nil {
		return nil
	}
	days := now.Sub(listed).Hours() / 24
	months := int(math.Floor(days / 30))
	if months < 0 {
		months = 0
	}
	return &months
}

type PropertyImage struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	PropertyID   int64     `gorm:"not null;index" json:"propertyId"`
	Filename     string    `gorm:"not null;uniqueIndex" json:"filename"`
	OriginalName string    `json:"originalName"`
	IsCover      bool      `gorm:"not null;default:false" json:"isCover"`
	CreatedAt    time.Time `json:"createdAt"`
}
