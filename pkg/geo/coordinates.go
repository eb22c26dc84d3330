// Package geo provides geographic coordinate helpers.
package geo

import "strconv"

// Coordinates represents a geographic point in decimal degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// IsValid returns true if the coordinates are within valid ranges.
// Latitude must be between -90 and 90, longitude between -180 and 180.
func (c Coordinates) IsValid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// IsZero returns true if both coordinates are zero (likely unset).
func (c Coordinates) IsZero() bool {
	return c.Lat == 0 && c.Lon == 0
}

// LatString formats the latitude with six decimals, the precision lookup
// services expect in query strings.
func (c Coordinates) LatString() string {
	return strconv.FormatFloat(c.Lat, 'f', 6, 64)
}

// LonString formats the longitude with six decimals.
func (c Coordinates) LonString() string {
	return strconv.FormatFloat(c.Lon, 'f', 6, 64)
}
