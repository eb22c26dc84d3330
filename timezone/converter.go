package timezone

import (
	"fmt"
	"strings"
	"time"
)

// Converter moves timestamps between GMT and airport local time using the
// offsets held in an OffsetCache. Conversions for an airport missing from
// the cache fail with ErrUnknownAirport; no default offset is ever applied.
type Converter struct {
	cache *OffsetCache
}

// NewConverter creates a converter reading offsets from cache.
func NewConverter(cache *OffsetCache) *Converter {
	return &Converter{cache: cache}
}

// Cache returns the offset cache backing the converter.
func (c *Converter) Cache() *OffsetCache {
	return c.cache
}

// Location returns a fixed zone for the airport's cached offset.
func (c *Converter) Location(code string) (*time.Location, error) {
	entry, err := c.cache.Lookup(code)
	if err != nil {
		return nil, err
	}
	return entryLocation(entry), nil
}

func entryLocation(entry ZoneEntry) *time.Location {
	return time.FixedZone(entry.Abbreviation, offsetSeconds(entry.GMTOffset))
}

// ToLocal converts a GMT timestamp ("2024 Jun 15 13:05 GMT") to the local time
// at the airport, suffixed with the airport's zone abbreviation
// ("2024 Jun 15 09:05 EDT"). The zone suffix of gmtText may be omitted.
func (c *Converter) ToLocal(gmtText, code string) (string, error) {
	ts, err := parseDateTime(gmtText)
	if err != nil {
		return "", err
	}
	if ts.Zone != "" && !isGMT(ts.Zone) {
		return "", fmt.Errorf("%w: %q is not a GMT timestamp", ErrParse, gmtText)
	}

	entry, err := c.cache.Lookup(code)
	if err != nil {
		return "", err
	}

	local := ts.Time(0).In(entryLocation(entry))
	return FromTime(local).WithZone(entry.Abbreviation).Format(LayoutZoned), nil
}

// ToGMT converts an airport local timestamp ("2024 Jun 15 09:05") to GMT
// ("2024 Jun 15 13:05 GMT"). A zone suffix on localText is accepted only if
// it matches the airport's cached abbreviation.
func (c *Converter) ToGMT(localText, code string) (string, error) {
	ts, err := parseDateTime(localText)
	if err != nil {
		return "", err
	}

	entry, err := c.cache.Lookup(code)
	if err != nil {
		return "", err
	}
	if ts.Zone != "" && !strings.EqualFold(ts.Zone, entry.Abbreviation) {
		return "", fmt.Errorf("%w: zone %s of %q does not match %s at %s", ErrParse, ts.Zone, localText, entry.Abbreviation, code)
	}

	gmt := ts.Time(offsetSeconds(entry.GMTOffset)).UTC()
	return FromTime(gmt).WithZone(GMT).Format(LayoutZoned), nil
}

func isGMT(zone string) bool {
	switch strings.ToUpper(zone) {
	case GMT, "UTC", "Z":
		return true
	}
	return false
}
