package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gilby125/cs509-reservation-client/pkg/logger"
	"github.com/gilby125/cs509-reservation-client/reservation"
	"github.com/gilby125/cs509-reservation-client/timezone"
	"github.com/gilby125/cs509-reservation-client/worker"
)

// AirportLister lists the server's airports.
type AirportLister interface {
	Airports(ctx context.Context) (reservation.Airports, error)
}

// Refresher runs and reports zone refreshes.
type Refresher interface {
	Trigger(ctx context.Context) error
	Status() worker.RefreshStatus
}

// ConvertResponse is the result of a single conversion.
type ConvertResponse struct {
	Airport string `json:"airport"`
	Input   string `json:"input"`
	Result  string `json:"result"`
}

// WindowResponse describes an airport's local day.
type WindowResponse struct {
	Airport    string   `json:"airport"`
	Date       string   `json:"date"`
	StartLocal string   `json:"start_local"`
	EndLocal   string   `json:"end_local"`
	StartGMT   string   `json:"start_gmt"`
	EndGMT     string   `json:"end_gmt"`
	GMTDates   []string `json:"gmt_dates"`
}

// ZoneResponse is a cached zone entry.
type ZoneResponse struct {
	Code         string `json:"code"`
	GMTOffset    int    `json:"gmt_offset"`
	Abbreviation string `json:"abbreviation"`
}

// AirportResponse is an airport with its zone, when known.
type AirportResponse struct {
	Code      string        `json:"code"`
	Name      string        `json:"name"`
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	Zone      *ZoneResponse `json:"zone,omitempty"`
}

// LegResponse is one end of a flight in GMT and airport local time.
type LegResponse struct {
	Code      string `json:"code"`
	TimeGMT   string `json:"time_gmt"`
	TimeLocal string `json:"time_local,omitempty"`
}

// SeatingResponse is the price and reservations of one class.
type SeatingResponse struct {
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Reserved int     `json:"reserved"`
}

// FlightResponse is a flight listed for a local day.
type FlightResponse struct {
	Number     string          `json:"number"`
	Airplane   string          `json:"airplane"`
	FlightTime int             `json:"flight_time_minutes"`
	Departure  LegResponse     `json:"departure"`
	Arrival    LegResponse     `json:"arrival"`
	FirstClass SeatingResponse `json:"first_class"`
	Coach      SeatingResponse `json:"coach"`
}

// FlightsResponse lists the flights of a local day.
type FlightsResponse struct {
	Airport   string           `json:"airport"`
	Date      string           `json:"date"`
	Direction string           `json:"direction"`
	Flights   []FlightResponse `json:"flights"`
}

func zoneResponse(z timezone.ZoneEntry) ZoneResponse {
	return ZoneResponse{Code: z.Code, GMTOffset: z.GMTOffset, Abbreviation: z.Abbreviation}
}

func requiredQuery(c *gin.Context, names ...string) (map[string]string, bool) {
	values := make(map[string]string, len(names))
	var missing []string
	for _, name := range names {
		v := strings.TrimSpace(c.Query(name))
		if v == "" {
			missing = append(missing, name)
		}
		values[name] = v
	}
	if len(missing) > 0 {
		badRequest(c, "missing query parameter: "+strings.Join(missing, ", "))
		return nil, false
	}
	return values, true
}

// convertToLocal handles GET /convert/local?time=&airport=
func convertToLocal(conv *timezone.Converter) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, ok := requiredQuery(c, "time", "airport")
		if !ok {
			return
		}
		result, err := conv.ToLocal(q["time"], q["airport"])
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, ConvertResponse{Airport: q["airport"], Input: q["time"], Result: result})
	}
}

// convertToGMT handles GET /convert/gmt?time=&airport=
func convertToGMT(conv *timezone.Converter) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, ok := requiredQuery(c, "time", "airport")
		if !ok {
			return
		}
		result, err := conv.ToGMT(q["time"], q["airport"])
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, ConvertResponse{Airport: q["airport"], Input: q["time"], Result: result})
	}
}

// dayWindow handles GET /window?date=&airport=
func dayWindow(conv *timezone.Converter) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, ok := requiredQuery(c, "date", "airport")
		if !ok {
			return
		}
		resp, err := buildWindow(conv, q["date"], q["airport"])
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func buildWindow(conv *timezone.Converter, date, code string) (WindowResponse, error) {
	startLocal, err := timezone.StartOfDay(date)
	if err != nil {
		return WindowResponse{}, err
	}
	endLocal, err := timezone.EndOfDay(date)
	if err != nil {
		return WindowResponse{}, err
	}
	startGMT, err := conv.ToGMT(startLocal, code)
	if err != nil {
		return WindowResponse{}, err
	}
	endGMT, err := conv.ToGMT(endLocal, code)
	if err != nil {
		return WindowResponse{}, err
	}
	dates, err := conv.WindowDates(date, code)
	if err != nil {
		return WindowResponse{}, err
	}
	return WindowResponse{
		Airport:    code,
		Date:       date,
		StartLocal: startLocal,
		EndLocal:   endLocal,
		StartGMT:   startGMT,
		EndGMT:     endGMT,
		GMTDates:   dates,
	}, nil
}

// getZone handles GET /zones/:code
func getZone(conv *timezone.Converter) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, err := conv.Cache().Lookup(c.Param("code"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, zoneResponse(entry))
	}
}

// listZones handles GET /admin/zones
func listZones(conv *timezone.Converter) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries := conv.Cache().Entries()
		zones := make([]ZoneResponse, 0, len(entries))
		for _, e := range entries {
			zones = append(zones, zoneResponse(e))
		}
		c.JSON(http.StatusOK, gin.H{"zones": zones, "count": len(zones)})
	}
}

// listAirports handles GET /airports?q=
func listAirports(airports AirportLister, conv *timezone.Converter) gin.HandlerFunc {
	return func(c *gin.Context) {
		all, err := airports.Airports(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			all = all.SearchName(q)
		}

		resp := make([]AirportResponse, 0, len(all))
		for _, a := range all {
			item := AirportResponse{Code: a.Code, Name: a.Name, Latitude: a.Latitude, Longitude: a.Longitude}
			if entry, ok := conv.Cache().Get(a.Code); ok {
				z := zoneResponse(entry)
				item.Zone = &z
			}
			resp = append(resp, item)
		}
		c.JSON(http.StatusOK, gin.H{"airports": resp, "count": len(resp)})
	}
}

// listFlights handles GET /flights?airport=&date=&direction=
func listFlights(lister reservation.FlightLister, conv *timezone.Converter) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, ok := requiredQuery(c, "airport", "date")
		if !ok {
			return
		}
		dir, ok := reservation.ParseDirection(c.Query("direction"))
		if !ok {
			badRequest(c, "direction must be departing or arriving")
			return
		}

		flights, err := reservation.FlightsOnLocalDay(c.Request.Context(), lister, conv, dir, q["airport"], q["date"])
		if err != nil {
			abortWithError(c, err)
			return
		}

		resp := FlightsResponse{
			Airport:   q["airport"],
			Date:      q["date"],
			Direction: string(dir),
			Flights:   make([]FlightResponse, 0, len(flights)),
		}
		for _, f := range flights {
			resp.Flights = append(resp.Flights, FlightResponse{
				Number:     f.Number,
				Airplane:   f.Airplane,
				FlightTime: f.FlightTime,
				Departure:  legResponse(conv, f.Departure),
				Arrival:    legResponse(conv, f.Arrival),
				FirstClass: seatingResponse(f.FirstClass),
				Coach:      seatingResponse(f.Coach),
			})
		}
		c.JSON(http.StatusOK, resp)
	}
}

// legResponse renders a leg; the local time is omitted when the airport's
// zone is not cached.
func legResponse(conv *timezone.Converter, leg reservation.Leg) LegResponse {
	resp := LegResponse{Code: leg.Code, TimeGMT: leg.Time}
	local, err := conv.ToLocal(leg.Time, leg.Code)
	switch {
	case err == nil:
		resp.TimeLocal = local
	case !errors.Is(err, timezone.ErrUnknownAirport):
		logger.Warn("Failed to convert flight time", "airport", leg.Code, "time", leg.Time, "error", err)
	}
	return resp
}

func seatingResponse(s reservation.Seating) SeatingResponse {
	return SeatingResponse{Price: s.Price, Currency: s.Currency.String(), Reserved: s.Reserved}
}

// triggerRefresh handles POST /admin/refresh. The refresh runs in the
// background; its outcome is reported by refreshStatus.
func triggerRefresh(refresher Refresher) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := refresher.Trigger(context.WithoutCancel(c.Request.Context())); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "refresh started"})
	}
}

// refreshStatus handles GET /admin/refresh
func refreshStatus(refresher Refresher) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, refresher.Status())
	}
}
