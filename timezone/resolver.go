package timezone

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"github.com/gilby125/cs509-reservation-client/pkg/logger"
)

const (
	// DefaultLookupURL is the position to time zone endpoint of timezonedb.com.
	DefaultLookupURL = "http://api.timezonedb.com/v2.1/get-time-zone"
	// DefaultMinInterval is the minimum spacing between two lookups.
	DefaultMinInterval = 2 * time.Second
	// DefaultRetryMax is how often a failed lookup is retried.
	DefaultRetryMax = 2
)

// errNoLookupSlot reports that the next lookup slot lies beyond the end of
// the caller's context.
var errNoLookupSlot = errors.New("no lookup slot before context end")

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type httpClient interface {
	Do(req *retryablehttp.Request) (*http.Response, error)
}

// lookupResponse holds the fields of a lookup response the resolver reads.
type lookupResponse struct {
	Status       string  `json:"status"`
	Message      string  `json:"message"`
	ZoneName     string  `json:"zoneName"`
	Abbreviation *string `json:"abbreviation"`
	GMTOffset    *int    `json:"gmtOffset"`
}

// Resolver looks up the zone of airports by position and records the result
// in an OffsetCache. Lookups made through one Resolver are spaced at least
// minInterval apart, across all airports and batches.
type Resolver struct {
	client      httpClient
	limiter     *rate.Limiter
	cache       *OffsetCache
	baseURL     string
	apiKey      string
	minInterval time.Duration
	retryMax    int
	fallback    Fallback
	log         *logger.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(r *Resolver)

// WithHTTPClient overrides the HTTP client. The client should not retry on
// its own: the resolver retries through its limiter so that every attempt
// keeps the lookup spacing.
func WithHTTPClient(client httpClient) ResolverOption {
	return func(r *Resolver) {
		r.client = client
	}
}

// WithLookupURL overrides the lookup endpoint.
func WithLookupURL(baseURL string) ResolverOption {
	return func(r *Resolver) {
		r.baseURL = baseURL
	}
}

// WithAPIKey sets the key passed to the lookup service.
func WithAPIKey(key string) ResolverOption {
	return func(r *Resolver) {
		r.apiKey = key
	}
}

// WithMinInterval sets the minimum spacing between lookups.
func WithMinInterval(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.minInterval = d
	}
}

// WithRetryMax sets how often a lookup is retried after a transport error,
// a 429 or a 5xx response.
func WithRetryMax(n int) ResolverOption {
	return func(r *Resolver) {
		r.retryMax = n
	}
}

// WithLogger sets the logger used for batch progress.
func WithLogger(l *logger.Logger) ResolverOption {
	return func(r *Resolver) {
		r.log = l
	}
}

// NewResolver creates a resolver that stores its results in cache.
func NewResolver(cache *OffsetCache, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		cache:       cache,
		baseURL:     DefaultLookupURL,
		minInterval: DefaultMinInterval,
		retryMax:    DefaultRetryMax,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.log == nil {
		r.log = logger.WithField("component", "timezone_resolver")
	}
	if r.client == nil {
		r.client = newLookupClient()
	}
	r.limiter = rate.NewLimiter(rate.Every(r.minInterval), 1)
	return r
}

// newLookupClient sends each request once; retries go through the resolver's
// limiter.
func newLookupClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.HTTPClient.Timeout = 30 * time.Second
	return client
}

// WithFallback resolves airports offline when the lookup service fails, or
// always when no API key is configured.
func WithFallback(f Fallback) ResolverOption {
	return func(r *Resolver) {
		r.fallback = f
	}
}

// Resolve looks up the zone of airport, stores it in the cache and returns it.
// It blocks until minInterval has passed since the previous lookup.
func (r *Resolver) Resolve(ctx context.Context, airport AirportRecord) (ZoneEntry, error) {
	if airport.Code == "" {
		return ZoneEntry{}, fmt.Errorf("%w: airport without code", ErrParse)
	}
	if coords := airport.Coordinates(); !coords.IsValid() {
		return ZoneEntry{}, fmt.Errorf("%w: invalid coordinates %v for %s", ErrParse, coords, airport.Code)
	}

	if r.apiKey == "" && r.fallback != nil {
		return r.resolveOffline(airport, nil)
	}

	res, err := r.lookupWithRetry(ctx, airport)
	if err != nil {
		if r.fallback != nil && errors.Is(err, ErrNetwork) {
			return r.resolveOffline(airport, err)
		}
		return ZoneEntry{}, err
	}

	entry := ZoneEntry{
		Code:         airport.Code,
		GMTOffset:    *res.GMTOffset,
		Abbreviation: *res.Abbreviation,
	}
	if err := r.cache.Put(entry); err != nil {
		return ZoneEntry{}, err
	}
	return entry, nil
}

// resolveOffline stores the fallback's entry for airport. cause is the
// lookup failure that led here, if any.
func (r *Resolver) resolveOffline(airport AirportRecord, cause error) (ZoneEntry, error) {
	entry, err := r.fallback.Entry(airport)
	if err != nil {
		if cause != nil {
			return ZoneEntry{}, errors.Join(cause, err)
		}
		return ZoneEntry{}, err
	}
	if cause != nil {
		r.log.Warn("Zone lookup failed, using offline zone", "airport", airport.Code, "error", cause)
	}
	if err := r.cache.Put(entry); err != nil {
		return ZoneEntry{}, err
	}
	return entry, nil
}

// lookupWithRetry waits for a limiter slot before every attempt, retries
// included.
func (r *Resolver) lookupWithRetry(ctx context.Context, airport AirportRecord) (lookupResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retryMax; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			slotErr := fmt.Errorf("%w: %w", errNoLookupSlot, err)
			if lastErr != nil {
				return lookupResponse{}, errors.Join(lastErr, slotErr)
			}
			return lookupResponse{}, slotErr
		}

		res, retry, err := r.lookup(ctx, airport)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retry {
			break
		}
		r.log.Debug("Retrying zone lookup", "airport", airport.Code, "attempt", attempt+1, "error", err)
	}
	return lookupResponse{}, lastErr
}

// lookup performs one lookup request. retry reports whether the failure is
// worth another attempt.
func (r *Resolver) lookup(ctx context.Context, airport AirportRecord) (res lookupResponse, retry bool, err error) {
	coords := airport.Coordinates()
	query := url.Values{}
	query.Set("key", r.apiKey)
	query.Set("format", "json")
	query.Set("by", "position")
	query.Set("lat", coords.LatString())
	query.Set("lng", coords.LonString())

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return res, false, fmt.Errorf("%w: build lookup request: %w", ErrNetwork, err)
	}

	resp, err := r.client.Do(req)
	retry, _ = retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	if err != nil {
		return res, retry, fmt.Errorf("%w: lookup %s: %w", ErrNetwork, airport.Code, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return res, retry, fmt.Errorf("%w: lookup %s: wrong status code: %d", ErrNetwork, airport.Code, resp.StatusCode)
	}

	if err := jsonAPI.NewDecoder(resp.Body).Decode(&res); err != nil {
		return lookupResponse{}, false, fmt.Errorf("%w: decode lookup response for %s: %w", ErrParse, airport.Code, err)
	}
	if res.Status != "" && res.Status != "OK" {
		return lookupResponse{}, false, fmt.Errorf("%w: lookup %s: status %s: %s", ErrNetwork, airport.Code, res.Status, res.Message)
	}
	if res.GMTOffset == nil {
		return lookupResponse{}, false, fmt.Errorf("%w: lookup response for %s has no gmtOffset", ErrParse, airport.Code)
	}
	if res.Abbreviation == nil {
		return lookupResponse{}, false, fmt.Errorf("%w: lookup response for %s has no abbreviation", ErrParse, airport.Code)
	}
	return res, false, nil
}

// BatchResult reports the outcome of resolving a set of airports.
type BatchResult struct {
	Resolved []ZoneEntry
	Failed   map[string]error
	Skipped  []string // already cached, ResolveMissing only
}

// ResolveAll resolves every airport in order. A failing airport is logged and
// skipped; the batch only stops early when ctx is done.
func (r *Resolver) ResolveAll(ctx context.Context, airports []AirportRecord) BatchResult {
	result := BatchResult{Failed: make(map[string]error)}
	for _, airport := range airports {
		entry, err := r.Resolve(ctx, airport)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, errNoLookupSlot) {
				result.Failed[airport.Code] = err
				r.log.Warn("Zone resolution interrupted", "airport", airport.Code, "error", err)
				return result
			}
			result.Failed[airport.Code] = err
			r.log.Warn("Skipping airport, zone resolution failed", "airport", airport.Code, "error", err)
			continue
		}
		result.Resolved = append(result.Resolved, entry)
		r.log.Debug("Resolved airport zone", "airport", entry.Code, "gmt_offset", entry.GMTOffset, "abbreviation", entry.Abbreviation)
	}

	r.log.Info("Zone resolution finished", "resolved", len(result.Resolved), "failed", len(result.Failed))
	return result
}

// ResolveMissing resolves only the airports that have no cache entry yet.
func (r *Resolver) ResolveMissing(ctx context.Context, airports []AirportRecord) BatchResult {
	missing := make([]AirportRecord, 0, len(airports))
	var skipped []string
	for _, airport := range airports {
		if _, ok := r.cache.Get(airport.Code); ok {
			skipped = append(skipped, airport.Code)
			continue
		}
		missing = append(missing, airport)
	}

	result := r.ResolveAll(ctx, missing)
	result.Skipped = skipped
	return result
}
