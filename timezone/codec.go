package timezone

import (
	"fmt"
	"strings"
	"time"
)

// Layout selects one of the textual timestamp layouts used by the
// reservation server and by the conversions in this package.
type Layout int

const (
	// LayoutZoned is "yyyy MMM dd HH:mm zzz", e.g. "2024 Jun 15 13:05 GMT".
	LayoutZoned Layout = iota
	// LayoutLocal is "yyyy MMM dd HH:mm" with the zone implied by context.
	LayoutLocal
	// LayoutDate is "yyyy_MM_dd" and always denotes local midnight.
	LayoutDate
)

const (
	localLayout = "2006 Jan 02 15:04"
	dateLayout  = "2006_01_02"

	// GMT is the zone suffix written on converted GMT timestamps.
	GMT = "GMT"
)

func (l Layout) String() string {
	switch l {
	case LayoutZoned:
		return "yyyy MMM dd HH:mm zzz"
	case LayoutLocal:
		return "yyyy MMM dd HH:mm"
	case LayoutDate:
		return "yyyy_MM_dd"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// Timestamp is the structural form of a textual timestamp: a wall clock
// reading with an optional zone abbreviation. It carries no offset; offsets
// come from the OffsetCache.
type Timestamp struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Zone   string // abbreviation, set for LayoutZoned
}

// FromTime returns the wall clock reading of t in its own location.
func FromTime(t time.Time) Timestamp {
	year, month, day := t.Date()
	return Timestamp{
		Year:   year,
		Month:  month,
		Day:    day,
		Hour:   t.Hour(),
		Minute: t.Minute(),
	}
}

// Parse reads text in the given layout.
func Parse(text string, layout Layout) (Timestamp, error) {
	switch layout {
	case LayoutZoned:
		idx := strings.LastIndexByte(text, ' ')
		if idx < 0 {
			return Timestamp{}, fmt.Errorf("%w: %q does not match %s", ErrParse, text, layout)
		}
		zone := text[idx+1:]
		if !isZoneAbbreviation(zone) {
			return Timestamp{}, fmt.Errorf("%w: %q has no zone abbreviation", ErrParse, text)
		}
		ts, err := parseWith(text[:idx], localLayout, layout)
		if err != nil {
			return Timestamp{}, err
		}
		ts.Zone = zone
		return ts, nil
	case LayoutLocal:
		return parseWith(text, localLayout, layout)
	case LayoutDate:
		return parseWith(text, dateLayout, layout)
	default:
		return Timestamp{}, fmt.Errorf("%w: unknown layout %s", ErrParse, layout)
	}
}

func parseWith(text, goLayout string, layout Layout) (Timestamp, error) {
	t, err := time.Parse(goLayout, text)
	if err != nil {
		return Timestamp{}, fmt.Errorf("%w: %q does not match %s: %w", ErrParse, text, layout, err)
	}
	return FromTime(t), nil
}

// parseDateTime accepts either LayoutZoned or LayoutLocal.
func parseDateTime(text string) (Timestamp, error) {
	if strings.Count(strings.TrimSpace(text), " ") >= 4 {
		return Parse(strings.TrimSpace(text), LayoutZoned)
	}
	return Parse(strings.TrimSpace(text), LayoutLocal)
}

func isZoneAbbreviation(s string) bool {
	if s == "" {
		return false
	}
	letters := 0
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
			letters++
		case r >= '0' && r <= '9', r == '+', r == '-':
		default:
			return false
		}
	}
	// Abbreviations are either alphabetic ("EST") or signed numerals ("+0530").
	return letters > 0 || s[0] == '+' || s[0] == '-'
}

// Format renders ts in the given layout. LayoutZoned appends ts.Zone.
func (ts Timestamp) Format(layout Layout) string {
	t := ts.Time(0)
	switch layout {
	case LayoutZoned:
		if ts.Zone == "" {
			return t.Format(localLayout)
		}
		return t.Format(localLayout) + " " + ts.Zone
	case LayoutDate:
		return t.Format(dateLayout)
	default:
		return t.Format(localLayout)
	}
}

// Time returns the instant at which the wall clock of a zone offset seconds
// east of GMT reads ts.
func (ts Timestamp) Time(offset int) time.Time {
	loc := time.UTC
	if offset != 0 {
		loc = time.FixedZone("", offset)
	}
	return time.Date(ts.Year, ts.Month, ts.Day, ts.Hour, ts.Minute, 0, 0, loc)
}

// WithZone returns a copy of ts with the zone abbreviation set.
func (ts Timestamp) WithZone(zone string) Timestamp {
	ts.Zone = zone
	return ts
}
