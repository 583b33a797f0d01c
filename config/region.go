package config

import "github.com/paulmach/orb"

// Region is the area the tracker is tuned for. Coordinates outside it are
// accepted but flagged.
type Region struct {
	Name      string    `json:"name"`
	Bound     orb.Bound `json:"-"`
	Center    orb.Point `json:"center"`
	ZoomLevel int       `json:"zoom_level"`
}

var SouthLondon = NewRegion("south-london", 51.3, 51.6, -0.3, 0.1)

func NewRegion(name string, minLat, maxLat, minLng, maxLng float64) Region {
	bound := orb.Bound{
		Min: orb.Point{minLng, minLat},
		Max: orb.Point{maxLng, maxLat},
	}
	return Region{
		Name:      name,
		Bound:     bound,
		Center:    bound.Center(),
		ZoomLevel: 12,
	}
}

// Contains reports whether the coordinate lies inside the region, edges included.
func (r Region) Contains(lat, lng float64) bool {
	return r.Bound.Contains(orb.Point{lng, lat})
}
