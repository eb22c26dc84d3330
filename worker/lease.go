package worker

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gilby125/cs509-reservation-client/pkg/logger"
)

// Lease is a Redis lock that lets one instance at a time run a refresh.
// Instances sharing a lookup API key share its rate limit, so only the
// holder may issue lookups.
type Lease struct {
	client  *redis.Client
	key     string
	ttl     time.Duration
	ownerID string
}

// NewLease creates a lease on key that expires after ttl unless released.
func NewLease(client *redis.Client, key string, ttl time.Duration) *Lease {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "refresher"
	}
	return &Lease{
		client:  client,
		key:     key,
		ttl:     ttl,
		ownerID: fmt.Sprintf("%s-%d", hostname, time.Now().UnixNano()),
	}
}

// OwnerID identifies this instance in the lock value.
func (l *Lease) OwnerID() string {
	return l.ownerID
}

// TryAcquire takes the lease if nobody holds it.
func (l *Lease) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.ownerID, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", l.key, err)
	}
	return ok, nil
}

// Only the owner may release; a lease that expired and was taken by another
// instance is left alone.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// Release gives the lease up if this instance still holds it.
func (l *Lease) Release(ctx context.Context) {
	released, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.ownerID).Int()
	switch {
	case err != nil:
		logger.Error(err, "Failed to release refresh lease", "key", l.key)
	case released == 0:
		logger.Warn("Refresh lease was no longer held", "key", l.key, "owner", l.ownerID)
	}
}
