package reservation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilby125/cs509-reservation-client/pkg/cache"
	"github.com/gilby125/cs509-reservation-client/timezone"
)

const testTeam = "TeamRocket"

// fakeServer records every call made to it by action and list type.
type fakeServer struct {
	*httptest.Server

	mu      sync.Mutex
	calls   []string
	forms   []map[string]string
	status  map[string]int
	headers []http.Header
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{status: map[string]int{}}
	fs.Server = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	action := r.FormValue("action")
	if action == "list" {
		action = r.FormValue("list_type")
	}

	fs.mu.Lock()
	fs.calls = append(fs.calls, action)
	fs.forms = append(fs.forms, map[string]string{
		"method":     r.Method,
		"team":       r.FormValue("team"),
		"airport":    r.FormValue("airport"),
		"day":        r.FormValue("day"),
		"flightData": r.FormValue("flightData"),
	})
	fs.headers = append(fs.headers, r.Header.Clone())
	status := fs.status[action]
	fs.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("server says no"))
		return
	}

	switch action {
	case "airports":
		_, _ = w.Write([]byte(airportsXML))
	case "airplanes":
		_, _ = w.Write([]byte(airplanesXML))
	case "departing", "arriving":
		_, _ = w.Write([]byte(flightsXML))
	}
}

func (fs *fakeServer) failWith(action string, status int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.status[action] = status
}

func (fs *fakeServer) recorded() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.calls...)
}

func (fs *fakeServer) form(i int) map[string]string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.forms[i]
}

func (fs *fakeServer) header(i int) http.Header {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.headers[i]
}

func fastRetryClient(retryMax int) *retryablehttp.Client {
	client := NewHTTPClient(5*time.Second, retryMax)
	client.RetryWaitMin = time.Millisecond
	client.RetryWaitMax = 5 * time.Millisecond
	return client
}

func newTestClient(fs *fakeServer, opts ...ClientOption) *Client {
	opts = append([]ClientOption{WithHTTPClient(fastRetryClient(2))}, opts...)
	return NewClient(fs.URL, testTeam, opts...)
}

func TestClient_Airports(t *testing.T) {
	fs := newFakeServer(t)
	client := newTestClient(fs)

	airports, err := client.Airports(context.Background())
	require.NoError(t, err)
	require.Len(t, airports, 2)
	assert.Equal(t, "BOS", airports[0].Code)

	require.Len(t, fs.recorded(), 1)
	assert.Equal(t, http.MethodGet, fs.form(0)["method"])
	assert.Equal(t, testTeam, fs.form(0)["team"])
	assert.Equal(t, testTeam, fs.header(0).Get("User-Agent"))
	assert.NotEmpty(t, fs.header(0).Get("X-Request-ID"))
}

func TestClient_Airplanes(t *testing.T) {
	fs := newFakeServer(t)
	client := newTestClient(fs)

	airplanes, err := client.Airplanes(context.Background())
	require.NoError(t, err)
	require.Len(t, airplanes, 2)
	assert.Equal(t, []string{"airplanes"}, fs.recorded())
}

func TestClient_ListingsAreCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	fs := newFakeServer(t)
	client := newTestClient(fs, WithCache(cache.NewRedisCache(rdb, "test"), time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := client.Airports(ctx)
		require.NoError(t, err)
		_, err = client.Airplanes(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"airports", "airplanes"}, fs.recorded())
	assert.True(t, mr.Exists("test:"+cache.AirportsKey(testTeam)))

	mr.FastForward(2 * time.Minute)
	_, err := client.Airports(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"airports", "airplanes", "airports"}, fs.recorded())
}

func TestClient_UndecodableCachedListingIsDropped(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, mr.Set("test:"+cache.AirportsKey(testTeam), "garbage"))

	fs := newFakeServer(t)
	client := newTestClient(fs, WithCache(cache.NewRedisCache(rdb, "test"), time.Minute))

	_, err := client.Airports(context.Background())
	assert.ErrorIs(t, err, ErrDecode)
	assert.False(t, mr.Exists("test:"+cache.AirportsKey(testTeam)))

	airports, err := client.Airports(context.Background())
	require.NoError(t, err)
	assert.Len(t, airports, 2)
}

func TestClient_Flights(t *testing.T) {
	fs := newFakeServer(t)
	client := newTestClient(fs)
	ctx := context.Background()

	flights, err := client.FlightsDeparting(ctx, "BOS", "2016_05_10")
	require.NoError(t, err)
	assert.Len(t, flights, 2)

	_, err = client.FlightsArriving(ctx, "DEN", "2016_05_10")
	require.NoError(t, err)

	assert.Equal(t, []string{"departing", "arriving"}, fs.recorded())
	assert.Equal(t, "BOS", fs.form(0)["airport"])
	assert.Equal(t, "2016_05_10", fs.form(0)["day"])
	assert.Equal(t, "DEN", fs.form(1)["airport"])
}

func TestClient_FlightsRejectsBadDay(t *testing.T) {
	fs := newFakeServer(t)
	client := newTestClient(fs)

	_, err := client.FlightsDeparting(context.Background(), "BOS", "2016-05-10")
	assert.ErrorIs(t, err, timezone.ErrParse)
	assert.Empty(t, fs.recorded())
}

func TestClient_GetRetriesThenReportsServerError(t *testing.T) {
	fs := newFakeServer(t)
	fs.failWith("airports", http.StatusInternalServerError)
	client := newTestClient(fs)

	_, err := client.Airports(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServer)

	var serverErr *ServerError
	require.True(t, errors.As(err, &serverErr))
	assert.Equal(t, http.StatusInternalServerError, serverErr.StatusCode)
	assert.Equal(t, "server says no", serverErr.Body)
	assert.Len(t, fs.recorded(), 3)
}

func TestClient_PostIsNotRetried(t *testing.T) {
	fs := newFakeServer(t)
	fs.failWith("lockDB", http.StatusServiceUnavailable)
	client := newTestClient(fs)

	err := client.Lock(context.Background())
	assert.ErrorIs(t, err, ErrServer)
	assert.Equal(t, []string{"lockDB"}, fs.recorded())
	assert.Equal(t, http.MethodPost, fs.form(0)["method"])
}

func TestClient_WithLockBuysTickets(t *testing.T) {
	fs := newFakeServer(t)
	client := newTestClient(fs)

	err := client.WithLock(context.Background(), func(ctx context.Context) error {
		return client.BuyTickets(ctx, []Reservation{{Number: "2848", Seating: Coach}})
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"lockDB", "buyTickets", "unlockDB"}, fs.recorded())
	assert.Equal(t, `<Flights><Flight number="2848" seating="Coach"></Flight></Flights>`, fs.form(1)["flightData"])
	assert.Equal(t, testTeam, fs.form(1)["team"])
}

func TestClient_WithLockUnlocksOnFailure(t *testing.T) {
	fs := newFakeServer(t)
	fs.failWith("buyTickets", http.StatusPreconditionFailed)
	client := newTestClient(fs)

	err := client.WithLock(context.Background(), func(ctx context.Context) error {
		return client.BuyTickets(ctx, []Reservation{{Number: "2848", Seating: FirstClass}})
	})
	assert.ErrorIs(t, err, ErrServer)
	assert.Equal(t, []string{"lockDB", "buyTickets", "unlockDB"}, fs.recorded())
}

func TestClient_WithLockSkipsFnWhenLockFails(t *testing.T) {
	fs := newFakeServer(t)
	fs.failWith("lockDB", http.StatusConflict)
	client := newTestClient(fs)

	called := false
	err := client.WithLock(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrServer)
	assert.False(t, called)
	assert.Equal(t, []string{"lockDB"}, fs.recorded())
}

func TestClient_WithLockJoinsUnlockFailure(t *testing.T) {
	fs := newFakeServer(t)
	fs.failWith("unlockDB", http.StatusInternalServerError)
	client := newTestClient(fs)

	fnErr := errors.New("boom")
	err := client.WithLock(context.Background(), func(ctx context.Context) error {
		return fnErr
	})
	assert.ErrorIs(t, err, fnErr)
	assert.ErrorIs(t, err, ErrServer)
}

func TestClient_BuyTicketsRequiresReservations(t *testing.T) {
	fs := newFakeServer(t)
	client := newTestClient(fs)

	assert.Error(t, client.BuyTickets(context.Background(), nil))
	assert.Empty(t, fs.recorded())
}
