// Package reservation is a client for the CS509 reservation server: it lists
// airports, airplanes and flights, coordinates the server's database lock and
// submits ticket purchases.
package reservation

import (
	"fmt"
	"strings"
	"time"

	"github.com/anyascii/go"
	"golang.org/x/text/currency"

	"github.com/gilby125/cs509-reservation-client/timezone"
)

// Airport is an airport known to the reservation server.
type Airport struct {
	Code      string
	Name      string
	Latitude  float64
	Longitude float64
}

// Record returns the fields the time zone resolver needs.
func (a Airport) Record() timezone.AirportRecord {
	return timezone.AirportRecord{
		Code:      a.Code,
		Latitude:  a.Latitude,
		Longitude: a.Longitude,
	}
}

// Airports is the airport list returned by the server.
type Airports []Airport

// Records returns the resolver records for all airports.
func (as Airports) Records() []timezone.AirportRecord {
	records := make([]timezone.AirportRecord, 0, len(as))
	for _, a := range as {
		records = append(records, a.Record())
	}
	return records
}

// Find returns the airport with the given code.
func (as Airports) Find(code string) (Airport, bool) {
	for _, a := range as {
		if strings.EqualFold(a.Code, code) {
			return a, true
		}
	}
	return Airport{}, false
}

// SearchName returns the airports whose name contains query, ignoring case
// and diacritics ("sao paulo" matches "São Paulo").
func (as Airports) SearchName(query string) Airports {
	needle := foldName(query)
	if needle == "" {
		return nil
	}
	var found Airports
	for _, a := range as {
		if strings.Contains(foldName(a.Name), needle) {
			found = append(found, a)
		}
	}
	return found
}

func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(anyascii.Transliterate(s)))
}

// Airplane is an airplane model flown by the server's airlines.
type Airplane struct {
	Manufacturer    string
	Model           string
	FirstClassSeats int
	CoachSeats      int
}

// Seats returns the number of seats of the given class.
func (a Airplane) Seats(class SeatClass) int {
	if class == FirstClass {
		return a.FirstClassSeats
	}
	return a.CoachSeats
}

// Airplanes is the airplane list returned by the server.
type Airplanes []Airplane

// Find returns the airplane with the given model.
func (as Airplanes) Find(model string) (Airplane, bool) {
	for _, a := range as {
		if a.Model == model {
			return a, true
		}
	}
	return Airplane{}, false
}

// SeatClass is a cabin class.
type SeatClass string

const (
	FirstClass SeatClass = "FirstClass"
	Coach      SeatClass = "Coach"
)

// ParseSeatClass reads a seat class, accepting the server spelling and
// lower case or spaced variants.
func ParseSeatClass(s string) (SeatClass, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "")) {
	case "firstclass", "first":
		return FirstClass, nil
	case "coach":
		return Coach, nil
	}
	return "", fmt.Errorf("unknown seat class %q", s)
}

// Leg is one end of a flight. Time is a GMT timestamp such as
// "2016 May 10 00:19 GMT".
type Leg struct {
	Code string
	Time string
}

// Seating is the price and number of reserved seats of one class.
type Seating struct {
	Price    float64
	Currency currency.Unit
	Reserved int
}

// Amount returns the seat price as a currency amount.
func (s Seating) Amount() currency.Amount {
	return s.Currency.Amount(s.Price)
}

// Flight is a scheduled flight as listed by the server.
type Flight struct {
	Airplane   string
	FlightTime int // minutes
	Number     string
	Departure  Leg
	Arrival    Leg
	FirstClass Seating
	Coach      Seating
}

// Duration returns the flight time.
func (f Flight) Duration() time.Duration {
	return time.Duration(f.FlightTime) * time.Minute
}

// Seating returns the seating of the given class.
func (f Flight) Seating(class SeatClass) Seating {
	if class == FirstClass {
		return f.FirstClass
	}
	return f.Coach
}

// SeatsAvailable returns the unreserved seats of class on airplane.
func (f Flight) SeatsAvailable(class SeatClass, airplane Airplane) int {
	free := airplane.Seats(class) - f.Seating(class).Reserved
	if free < 0 {
		return 0
	}
	return free
}

func (f Flight) String() string {
	return fmt.Sprintf("Flight %s (%s): %s %s -> %s %s, %v, first class %v, coach %v",
		f.Number, f.Airplane,
		f.Departure.Code, f.Departure.Time,
		f.Arrival.Code, f.Arrival.Time,
		f.Duration(),
		currency.Symbol(f.FirstClass.Amount()),
		currency.Symbol(f.Coach.Amount()),
	)
}

// Reservation requests one seat of a class on a flight.
type Reservation struct {
	Number  string
	Seating SeatClass
}
