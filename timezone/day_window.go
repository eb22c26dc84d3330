package timezone

import (
	"fmt"
	"time"
)

// StartOfDay returns local midnight of a "yyyy_MM_dd" date as "yyyy MMM dd HH:mm".
func StartOfDay(date string) (string, error) {
	ts, err := Parse(date, LayoutDate)
	if err != nil {
		return "", err
	}
	return ts.Format(LayoutLocal), nil
}

// EndOfDay returns 23:59 of a "yyyy_MM_dd" date as "yyyy MMM dd HH:mm". It is
// computed as start of day plus 24 hours minus one minute.
func EndOfDay(date string) (string, error) {
	start, err := StartOfDay(date)
	if err != nil {
		return "", err
	}
	ts, err := Parse(start, LayoutLocal)
	if err != nil {
		return "", err
	}
	end := ts.Time(0).Add(24 * time.Hour).Add(-time.Minute)
	return FromTime(end).Format(LayoutLocal), nil
}

// NextDate returns the calendar day after a "yyyy_MM_dd" date.
func NextDate(date string) (string, error) {
	ts, err := Parse(date, LayoutDate)
	if err != nil {
		return "", err
	}
	return FromTime(ts.Time(0).AddDate(0, 0, 1)).Format(LayoutDate), nil
}

// Window returns the GMT instants of local start and end of day for date at
// the airport.
func (c *Converter) Window(date, code string) (start, end time.Time, err error) {
	startLocal, err := StartOfDay(date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endLocal, err := EndOfDay(date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if start, err = c.gmtInstant(startLocal, code); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end, err = c.gmtInstant(endLocal, code); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (c *Converter) gmtInstant(localText, code string) (time.Time, error) {
	gmtText, err := c.ToGMT(localText, code)
	if err != nil {
		return time.Time{}, err
	}
	ts, err := Parse(gmtText, LayoutZoned)
	if err != nil {
		return time.Time{}, err
	}
	return ts.Time(0), nil
}

// Contains reports whether candidate, a GMT timestamp, falls strictly inside
// the local day date at the airport. Both ends are exclusive: local midnight
// and local 23:59 are outside the window.
func (c *Converter) Contains(date, candidate, code string) (bool, error) {
	start, end, err := c.Window(date, code)
	if err != nil {
		return false, err
	}

	ts, err := parseDateTime(candidate)
	if err != nil {
		return false, err
	}
	if ts.Zone != "" && !isGMT(ts.Zone) {
		return false, fmt.Errorf("%w: %q is not a GMT timestamp", ErrParse, candidate)
	}

	t := ts.Time(0)
	return t.After(start) && t.Before(end), nil
}

// WindowDates returns the GMT calendar dates, as "yyyy_MM_dd", that the local
// day date at the airport overlaps. West of GMT this is date and the day
// after; east of GMT it is the day before and date.
func (c *Converter) WindowDates(date, code string) ([]string, error) {
	start, end, err := c.Window(date, code)
	if err != nil {
		return nil, err
	}

	first := FromTime(start).Format(LayoutDate)
	last := FromTime(end).Format(LayoutDate)
	dates := []string{first}
	for current := first; current != last; {
		next, err := NextDate(current)
		if err != nil {
			return nil, err
		}
		dates = append(dates, next)
		current = next
	}
	return dates, nil
}
