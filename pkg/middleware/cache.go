package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"

	"github.com/gilby125/cs509-reservation-client/pkg/cache"
	"github.com/gilby125/cs509-reservation-client/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CachedResponse is a JSON response stored by ResponseCache.
type CachedResponse struct {
	StatusCode  int       `json:"status_code"`
	Body        []byte    `json:"body"`
	ContentType string    `json:"content_type"`
	CachedAt    time.Time `json:"cached_at"`
}

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

// ResponseCache caches successful JSON GET responses for ttl. A nil store
// disables caching. When revision is set its value is part of the cache key,
// so responses built from changed data are not served from cache.
func ResponseCache(store cache.Cache, ttl time.Duration, revision func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		rev := ""
		if revision != nil {
			rev = revision()
		}
		key := responseKey(c.Request, rev)
		log := logger.WithField("cache_key", key)

		if data, err := store.Get(ctx, key); err == nil {
			var cached CachedResponse
			if err := json.Unmarshal(data, &cached); err == nil {
				c.Header("X-Cache", "HIT")
				c.Data(cached.StatusCode, cached.ContentType, cached.Body)
				c.Abort()
				return
			}
			log.Warn("Dropping unreadable cached response")
			if err := store.Delete(ctx, key); err != nil {
				log.Error(err, "Cache delete error")
			}
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			log.Error(err, "Cache get error")
		}

		body := &bytes.Buffer{}
		c.Writer = &responseWriter{ResponseWriter: c.Writer, body: body}
		c.Header("X-Cache", "MISS")

		c.Next()

		status := c.Writer.Status()
		contentType := c.Writer.Header().Get("Content-Type")
		if status < 200 || status > 299 || !strings.Contains(contentType, "application/json") {
			return
		}

		data, err := json.Marshal(CachedResponse{
			StatusCode:  status,
			Body:        body.Bytes(),
			ContentType: contentType,
			CachedAt:    time.Now(),
		})
		if err != nil {
			log.Error(err, "Cache encode error")
			return
		}
		if err := store.Set(ctx, key, data, ttl); err != nil {
			log.Error(err, "Cache set error")
		}
	}
}

func responseKey(req *http.Request, revision string) string {
	sum := sha256.Sum256([]byte(revision + "|" + req.URL.Path + "?" + req.URL.RawQuery))
	return "response:" + hex.EncodeToString(sum[:16])
}
