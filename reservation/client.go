package reservation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/gilby125/cs509-reservation-client/pkg/cache"
	"github.com/gilby125/cs509-reservation-client/pkg/logger"
	"github.com/gilby125/cs509-reservation-client/timezone"
)

// ErrServer reports a non 2xx response from the reservation server.
var ErrServer = errors.New("reservation server error")

// ServerError carries the status of a failed server call.
type ServerError struct {
	Action     string
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("reservation server %s: status %d", e.Action, e.StatusCode)
	}
	return fmt.Sprintf("reservation server %s: status %d: %s", e.Action, e.StatusCode, e.Body)
}

func (e *ServerError) Is(target error) bool {
	return target == ErrServer
}

type httpClient interface {
	Do(req *retryablehttp.Request) (*http.Response, error)
}

type noRetryKey struct{}

// Client talks to the reservation server on behalf of one team.
type Client struct {
	client   httpClient
	baseURL  string
	team     string
	cache    cache.Cache
	cacheTTL time.Duration
	log      *logger.Logger
}

// ClientOption configures a Client.
type ClientOption func(c *Client)

// WithHTTPClient overrides the retrying HTTP client.
func WithHTTPClient(client httpClient) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithCache caches airport and airplane listings for ttl.
func WithCache(listings cache.Cache, ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.cache = listings
		c.cacheTTL = ttl
	}
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// customRetryPolicy retries failed GETs. Requests whose context is marked
// with noRetryKey, the state changing POSTs, are never retried.
func customRetryPolicy() func(ctx context.Context, resp *http.Response, err error) (bool, error) {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if noRetry, _ := ctx.Value(noRetryKey{}).(bool); noRetry {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
}

// NewHTTPClient returns the retrying client used by NewClient.
func NewHTTPClient(timeout time.Duration, retryMax int) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.Logger = nil
	client.CheckRetry = customRetryPolicy()
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.RetryWaitMin = time.Second
	client.HTTPClient.Timeout = timeout
	return client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL, team string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "?"),
		team:     team,
		cacheTTL: cache.MediumTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = NewHTTPClient(30*time.Second, 3)
	}
	if c.log == nil {
		c.log = logger.WithField("component", "reservation_client")
	}
	return c
}

// Team returns the team the client acts for.
func (c *Client) Team() string {
	return c.team
}

func (c *Client) newRequest(ctx context.Context, method, action string, query url.Values) (*retryablehttp.Request, error) {
	var (
		req *retryablehttp.Request
		err error
	)
	if method == http.MethodGet {
		req, err = retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+"?"+query.Encode(), nil)
	} else {
		ctx = context.WithValue(ctx, noRetryKey{}, true)
		req, err = retryablehttp.NewRequestWithContext(ctx, method, c.baseURL, strings.NewReader(query.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", action, err)
	}
	req.Header.Set("User-Agent", c.team)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func (c *Client) do(ctx context.Context, method, action string, query url.Values) ([]byte, error) {
	req, err := c.newRequest(ctx, method, action, query)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reservation server %s: %w", action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reservation server %s: read body: %w", action, err)
	}

	c.log.Debug("Reservation server call",
		"action", action,
		"method", method,
		"status", resp.StatusCode,
		"latency", time.Since(start),
		"request_id", req.Header.Get("X-Request-ID"),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServerError{Action: action, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// Airports lists all airports. Listings are cached when a cache is configured.
func (c *Client) Airports(ctx context.Context) (Airports, error) {
	data, err := cache.GetOrFetch(ctx, c.cache, cache.AirportsKey(c.team), c.cacheTTL, func() ([]byte, error) {
		return c.do(ctx, http.MethodGet, "list airports", airportsQuery(c.team))
	})
	if err != nil {
		return nil, err
	}
	airports, err := ParseAirports(data)
	if err != nil {
		c.dropCached(ctx, cache.AirportsKey(c.team))
		return nil, err
	}
	return airports, nil
}

// Airplanes lists all airplanes. Listings are cached when a cache is configured.
func (c *Client) Airplanes(ctx context.Context) (Airplanes, error) {
	data, err := cache.GetOrFetch(ctx, c.cache, cache.AirplanesKey(c.team), c.cacheTTL, func() ([]byte, error) {
		return c.do(ctx, http.MethodGet, "list airplanes", airplanesQuery(c.team))
	})
	if err != nil {
		return nil, err
	}
	airplanes, err := ParseAirplanes(data)
	if err != nil {
		c.dropCached(ctx, cache.AirplanesKey(c.team))
		return nil, err
	}
	return airplanes, nil
}

func (c *Client) dropCached(ctx context.Context, key string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(ctx, key); err != nil {
		c.log.Warn("Failed to drop undecodable cached listing", "key", key, "error", err)
	}
}

// Flights lists the flights leaving (or reaching) airport on a GMT day given
// as yyyy_MM_dd. Flight listings are never cached.
func (c *Client) Flights(ctx context.Context, dir Direction, airport, day string) ([]Flight, error) {
	if _, err := timezone.Parse(day, timezone.LayoutDate); err != nil {
		return nil, err
	}
	data, err := c.do(ctx, http.MethodGet, "list "+string(dir)+" flights", flightsQuery(c.team, dir, airport, day))
	if err != nil {
		return nil, err
	}
	return ParseFlights(data)
}

// FlightsDeparting lists flights leaving airport on a GMT day.
func (c *Client) FlightsDeparting(ctx context.Context, airport, day string) ([]Flight, error) {
	return c.Flights(ctx, Departing, airport, day)
}

// FlightsArriving lists flights reaching airport on a GMT day.
func (c *Client) FlightsArriving(ctx context.Context, airport, day string) ([]Flight, error) {
	return c.Flights(ctx, Arriving, airport, day)
}

// Lock takes the server's database lock for the team.
func (c *Client) Lock(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "lockDB", lockQuery(c.team))
	return err
}

// Unlock releases the server's database lock.
func (c *Client) Unlock(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "unlockDB", unlockQuery(c.team))
	return err
}

// WithLock runs fn while holding the database lock. The lock is released even
// when fn fails; an unlock failure is joined to fn's error.
func (c *Client) WithLock(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := c.Lock(ctx); err != nil {
		return err
	}

	fnErr := fn(ctx)

	// Unlock even if ctx was cancelled while fn ran.
	unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := c.Unlock(unlockCtx); err != nil {
		c.log.Error(err, "Failed to release reservation server lock")
		return errors.Join(fnErr, err)
	}
	return fnErr
}

// BuyTickets reserves one seat per reservation. The server must be locked by
// the caller, see WithLock.
func (c *Client) BuyTickets(ctx context.Context, reservations []Reservation) error {
	if len(reservations) == 0 {
		return errors.New("buy tickets: no reservations")
	}
	flightData, err := MarshalReservations(reservations)
	if err != nil {
		return err
	}
	if _, err := c.do(ctx, http.MethodPost, "buyTickets", buyTicketsQuery(c.team, flightData)); err != nil {
		return err
	}
	c.log.Info("Tickets purchased", "flights", len(reservations))
	return nil
}
