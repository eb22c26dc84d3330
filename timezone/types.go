// Package timezone converts flight timestamps between GMT and the local time
// of an airport, using GMT offsets resolved from an external position to
// time zone service and kept in an append-only local cache.
package timezone

import (
	"fmt"

	"github.com/gilby125/cs509-reservation-client/pkg/geo"
)

// AirportRecord is the part of an airport the resolver needs to look up its zone.
type AirportRecord struct {
	Code      string
	Latitude  float64
	Longitude float64
}

// Coordinates returns the airport position.
func (a AirportRecord) Coordinates() geo.Coordinates {
	return geo.Coordinates{Lat: a.Latitude, Lon: a.Longitude}
}

// ZoneEntry is the resolved zone of one airport.
type ZoneEntry struct {
	Code         string
	GMTOffset    int // seconds east of GMT
	Abbreviation string
}

func (z ZoneEntry) String() string {
	return fmt.Sprintf("%s,%d,%s", z.Code, z.GMTOffset, z.Abbreviation)
}

// offsetParts splits an offset in seconds into the hour and minute components
// used to build a fixed zone. Hours truncate toward zero and minutes are taken
// from the absolute remainder, so -21600 gives (-6, 0) and -12600 gives (-3, 30).
func offsetParts(seconds int) (hours, minutes int) {
	hours = seconds / 3600
	minutes = abs(seconds%3600) / 60
	return hours, minutes
}

// offsetSeconds rebuilds the zone offset from offsetParts, carrying the sign of
// the original offset onto the minutes. Sub-minute offsets are dropped.
func offsetSeconds(seconds int) int {
	hours, minutes := offsetParts(seconds)
	total := hours*3600 + minutes*60
	if seconds < 0 {
		total = hours*3600 - minutes*60
	}
	return total
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
