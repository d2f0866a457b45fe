package domain

import (
	"fmt"
	"math"
)

// Immutable geographic coordinates (longitude, latitude).
// The zero value (0,0) is the "missing" sentinel.
type Coordinates struct {
	Lon float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Valid reports whether c is a usable measurement: finite, in range, and not (0,0).
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return false
	}
	return !(c.Lat == 0 && c.Lon == 0)
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// LatLngString formats c as "lat,lng", the form most matrix APIs expect in query strings.
func (c Coordinates) LatLngString() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}
