package timezone

import (
	"fmt"
	"time"
	_ "time/tzdata" // zone rules for hosts without a zoneinfo database

	"github.com/ringsaturn/tzf"
)

// Fallback derives a zone entry without the lookup service.
type Fallback interface {
	Entry(airport AirportRecord) (ZoneEntry, error)
}

// zoneFinder names the IANA zone containing a point.
type zoneFinder interface {
	GetTimezoneName(lng, lat float64) string
}

// OfflineLookup finds an airport's zone from its coordinates using embedded
// zone boundaries, and reads the offset and abbreviation in effect now. The
// result matches what the lookup service reports for the same instant.
type OfflineLookup struct {
	finder zoneFinder
	now    func() time.Time
}

// NewOfflineLookup loads the zone boundary data. Loading takes a moment and
// holds the boundaries in memory; create one and share it.
func NewOfflineLookup() (*OfflineLookup, error) {
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("load zone boundaries: %w", err)
	}
	return &OfflineLookup{finder: finder, now: time.Now}, nil
}

// Entry returns the zone entry for airport.
func (o *OfflineLookup) Entry(airport AirportRecord) (ZoneEntry, error) {
	coords := airport.Coordinates()
	if !coords.IsValid() {
		return ZoneEntry{}, fmt.Errorf("%w: invalid coordinates %v for %s", ErrParse, coords, airport.Code)
	}

	name := o.finder.GetTimezoneName(coords.Lon, coords.Lat)
	if name == "" {
		return ZoneEntry{}, fmt.Errorf("%w: no zone at %v for %s", ErrUnknownAirport, coords, airport.Code)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return ZoneEntry{}, fmt.Errorf("%w: zone %s for %s: %w", ErrUnknownAirport, name, airport.Code, err)
	}

	abbreviation, offset := o.now().In(loc).Zone()
	return ZoneEntry{Code: airport.Code, GMTOffset: offset, Abbreviation: abbreviation}, nil
}
