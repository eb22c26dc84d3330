package reservation

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gilby125/cs509-reservation-client/timezone"
)

// FlightLister lists flights for one GMT day.
type FlightLister interface {
	Flights(ctx context.Context, dir Direction, airport, day string) ([]Flight, error)
}

// FlightsOnLocalDay lists the flights leaving (or reaching) airport during the
// airport's local calendar day date ("yyyy_MM_dd"). The server lists flights
// by GMT day, so every GMT day the local day overlaps is fetched and flights
// are kept when their departure (or arrival) time falls inside the local day.
// Flights are returned in GMT day order, then server order.
func FlightsOnLocalDay(ctx context.Context, lister FlightLister, conv *timezone.Converter, dir Direction, airport, date string) ([]Flight, error) {
	days, err := conv.WindowDates(date, airport)
	if err != nil {
		return nil, err
	}

	listed := make([][]Flight, len(days))
	g, gctx := errgroup.WithContext(ctx)
	for i, day := range days {
		g.Go(func() error {
			flights, err := lister.Flights(gctx, dir, airport, day)
			if err != nil {
				return err
			}
			listed[i] = flights
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var flights []Flight
	for _, dayFlights := range listed {
		for _, f := range dayFlights {
			leg := f.Departure
			if dir == Arriving {
				leg = f.Arrival
			}
			inside, err := conv.Contains(date, leg.Time, airport)
			if err != nil {
				return nil, fmt.Errorf("flight %s: %w", f.Number, err)
			}
			if !inside || seen[f.Number] {
				continue
			}
			seen[f.Number] = true
			flights = append(flights, f)
		}
	}
	return flights, nil
}
