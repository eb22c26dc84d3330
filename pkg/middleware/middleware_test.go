package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilby125/cs509-reservation-client/config"
	"github.com/gilby125/cs509-reservation-client/pkg/cache"
	"github.com/gilby125/cs509-reservation-client/pkg/metrics"
)

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(), RequestLogger())
	router.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/id", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Body.String(), 36)
	assert.Equal(t, rec.Body.String(), rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = serve(router, req)
	assert.Equal(t, "abc-123", rec.Body.String())
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(), Recovery())
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAdminAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.AdminAuthConfig{Enabled: true, Username: "admin", Password: "hunter2", Token: "tok"}

	router := gin.New()
	router.GET("/admin", AdminAuth(cfg), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer tok")
	assert.Equal(t, http.StatusNoContent, serve(router, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, serve(router, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.SetBasicAuth("admin", "hunter2")
	assert.Equal(t, http.StatusNoContent, serve(router, req).Code)

	open := gin.New()
	open.GET("/admin", AdminAuth(config.AdminAuthConfig{}), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	assert.Equal(t, http.StatusNoContent, serve(open, httptest.NewRequest(http.MethodGet, "/admin", nil)).Code)
}

func TestResponseCache(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	calls := 0
	router := gin.New()
	router.Use(ResponseCache(cache.NewRedisCache(rdb, "test"), time.Minute, nil))
	router.GET("/zones/:code", func(c *gin.Context) {
		calls++
		if c.Param("code") == "XXX" {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": c.Param("code")})
	})

	first := serve(router, httptest.NewRequest(http.MethodGet, "/zones/BOS", nil))
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := serve(router, httptest.NewRequest(http.MethodGet, "/zones/BOS", nil))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	serve(router, httptest.NewRequest(http.MethodGet, "/zones/XXX", nil))
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/zones/XXX", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 3, calls, "errors are not cached")
}

func TestResponseCache_RevisionChangesKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	revision := "r1"
	calls := 0
	router := gin.New()
	router.Use(ResponseCache(cache.NewRedisCache(rdb, "test"), time.Minute, func() string { return revision }))
	router.GET("/airports", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"revision": revision})
	})

	serve(router, httptest.NewRequest(http.MethodGet, "/airports", nil))
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/airports", nil))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, 1, calls)

	revision = "r2"
	rec = serve(router, httptest.NewRequest(http.MethodGet, "/airports", nil))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"revision":"r2"}`, rec.Body.String())
	assert.Equal(t, 2, calls)
}

func TestResponseCache_DropsUnreadableEntry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	req := httptest.NewRequest(http.MethodGet, "/broken", nil)
	key := "test:" + responseKey(req, "")
	require.NoError(t, mr.Set(key, "not json"))

	router := gin.New()
	router.Use(ResponseCache(cache.NewRedisCache(rdb, "test"), time.Minute, nil))
	router.GET("/broken", func(c *gin.Context) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "down"})
	})

	rec := serve(router, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.False(t, mr.Exists(key))
}

func TestResponseCache_NilStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ResponseCache(nil, time.Minute, nil))
	router.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("X-Cache"))
}

func TestMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New(prometheus.NewRegistry(), "test")

	router := gin.New()
	router.Use(Metrics(m))
	router.GET("/zones/:code", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	serve(router, httptest.NewRequest(http.MethodGet, "/zones/BOS", nil))
	serve(router, httptest.NewRequest(http.MethodGet, "/zones/DEN", nil))
	serve(router, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/zones/:code", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "unmatched", "404")))
}
