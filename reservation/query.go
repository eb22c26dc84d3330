package reservation

import "net/url"

// Direction selects whether a flight listing is by departure or arrival airport.
type Direction string

const (
	Departing Direction = "departing"
	Arriving  Direction = "arriving"
)

// ParseDirection reads a direction, defaulting to Departing for "".
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case "", Departing:
		return Departing, true
	case Arriving:
		return Arriving, true
	}
	return "", false
}

func listQuery(team, listType string) url.Values {
	q := url.Values{}
	q.Set("team", team)
	q.Set("action", "list")
	q.Set("list_type", listType)
	return q
}

// airportsQuery lists all airports.
func airportsQuery(team string) url.Values {
	return listQuery(team, "airports")
}

// airplanesQuery lists all airplanes.
func airplanesQuery(team string) url.Values {
	return listQuery(team, "airplanes")
}

// flightsQuery lists flights leaving or reaching airport on a GMT day
// formatted as yyyy_MM_dd.
func flightsQuery(team string, dir Direction, airport, day string) url.Values {
	q := listQuery(team, string(dir))
	q.Set("airport", airport)
	q.Set("day", day)
	return q
}

func lockQuery(team string) url.Values {
	q := url.Values{}
	q.Set("team", team)
	q.Set("action", "lockDB")
	return q
}

func unlockQuery(team string) url.Values {
	q := url.Values{}
	q.Set("team", team)
	q.Set("action", "unlockDB")
	return q
}

func buyTicketsQuery(team, flightData string) url.Values {
	q := url.Values{}
	q.Set("team", team)
	q.Set("action", "buyTickets")
	q.Set("flightData", flightData)
	return q
}
