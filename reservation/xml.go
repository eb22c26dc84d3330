package reservation

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
)

// ErrDecode reports a server response that is not the expected XML.
var ErrDecode = errors.New("decode server response")

type xmlAirports struct {
	XMLName  xml.Name     `xml:"Airports"`
	Airports []xmlAirport `xml:"Airport"`
}

type xmlAirport struct {
	Code      string  `xml:"Code,attr"`
	Name      string  `xml:"Name,attr"`
	Latitude  float64 `xml:"Latitude"`
	Longitude float64 `xml:"Longitude"`
}

type xmlAirplanes struct {
	XMLName   xml.Name      `xml:"Airplanes"`
	Airplanes []xmlAirplane `xml:"Airplane"`
}

type xmlAirplane struct {
	Manufacturer    string `xml:"Manufacturer,attr"`
	Model           string `xml:"Model,attr"`
	FirstClassSeats int    `xml:"FirstClassSeats"`
	CoachSeats      int    `xml:"CoachSeats"`
}

type xmlFlights struct {
	XMLName xml.Name    `xml:"Flights"`
	Flights []xmlFlight `xml:"Flight"`
}

type xmlFlight struct {
	Airplane   string     `xml:"Airplane,attr"`
	FlightTime int        `xml:"FlightTime,attr"`
	Number     string     `xml:"Number,attr"`
	Departure  xmlLeg     `xml:"Departure"`
	Arrival    xmlLeg     `xml:"Arrival"`
	FirstClass xmlSeating `xml:"Seating>FirstClass"`
	Coach      xmlSeating `xml:"Seating>Coach"`
}

type xmlLeg struct {
	Code string `xml:"Code"`
	Time string `xml:"Time"`
}

type xmlSeating struct {
	Price    string `xml:"Price,attr"`
	Reserved int    `xml:",chardata"`
}

type xmlReservations struct {
	XMLName xml.Name         `xml:"Flights"`
	Flights []xmlReservation `xml:"Flight"`
}

type xmlReservation struct {
	Number  string `xml:"number,attr"`
	Seating string `xml:"seating,attr"`
}

// ParseAirports decodes an <Airports> listing.
func ParseAirports(data []byte) (Airports, error) {
	var doc xmlAirports
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: airports: %w", ErrDecode, err)
	}
	airports := make(Airports, 0, len(doc.Airports))
	for _, a := range doc.Airports {
		airports = append(airports, Airport{
			Code:      strings.TrimSpace(a.Code),
			Name:      strings.TrimSpace(a.Name),
			Latitude:  a.Latitude,
			Longitude: a.Longitude,
		})
	}
	return airports, nil
}

// ParseAirplanes decodes an <Airplanes> listing.
func ParseAirplanes(data []byte) (Airplanes, error) {
	var doc xmlAirplanes
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: airplanes: %w", ErrDecode, err)
	}
	airplanes := make(Airplanes, 0, len(doc.Airplanes))
	for _, a := range doc.Airplanes {
		airplanes = append(airplanes, Airplane(a))
	}
	return airplanes, nil
}

// ParseFlights decodes a <Flights> listing.
func ParseFlights(data []byte) ([]Flight, error) {
	var doc xmlFlights
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: flights: %w", ErrDecode, err)
	}
	flights := make([]Flight, 0, len(doc.Flights))
	for _, f := range doc.Flights {
		firstClass, err := f.FirstClass.seating()
		if err != nil {
			return nil, fmt.Errorf("%w: flight %s first class: %w", ErrDecode, f.Number, err)
		}
		coach, err := f.Coach.seating()
		if err != nil {
			return nil, fmt.Errorf("%w: flight %s coach: %w", ErrDecode, f.Number, err)
		}
		flights = append(flights, Flight{
			Airplane:   f.Airplane,
			FlightTime: f.FlightTime,
			Number:     f.Number,
			Departure:  Leg{Code: strings.TrimSpace(f.Departure.Code), Time: strings.TrimSpace(f.Departure.Time)},
			Arrival:    Leg{Code: strings.TrimSpace(f.Arrival.Code), Time: strings.TrimSpace(f.Arrival.Time)},
			FirstClass: firstClass,
			Coach:      coach,
		})
	}
	return flights, nil
}

func (s xmlSeating) seating() (Seating, error) {
	price, err := parsePrice(s.Price)
	if err != nil {
		return Seating{}, err
	}
	return Seating{Price: price, Currency: currency.USD, Reserved: s.Reserved}, nil
}

// parsePrice reads a server price such as "$1,134.32". An empty price is zero.
func parsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	price, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("price %q: %w", s, err)
	}
	return price, nil
}

// MarshalReservations encodes reservations as the <Flights> document the
// server expects in a buyTickets request.
func MarshalReservations(reservations []Reservation) (string, error) {
	doc := xmlReservations{Flights: make([]xmlReservation, 0, len(reservations))}
	for _, r := range reservations {
		doc.Flights = append(doc.Flights, xmlReservation{Number: r.Number, Seating: string(r.Seating)})
	}
	data, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal reservations: %w", err)
	}
	return string(data), nil
}
