// Package health reports the state of the components the API depends on.
package health

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status of one component or of the whole service.
type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Check is the result of one health check.
type Check struct {
	Name      string            `json:"name"`
	Status    Status            `json:"status"`
	Message   string            `json:"message,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Duration  time.Duration     `json:"duration"`
	Timestamp time.Time         `json:"timestamp"`
}

// Report is the combined result of all checks.
type Report struct {
	Status    Status            `json:"status"`
	Version   map[string]string `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]Check  `json:"checks"`
	Uptime    string            `json:"uptime"`
}

// Checker runs a single health check.
type Checker interface {
	Check(ctx context.Context) Check
}

// RedisChecker pings the listing cache.
type RedisChecker struct {
	Client *redis.Client
	Name   string
}

func (c *RedisChecker) Check(ctx context.Context) Check {
	start := time.Now()
	check := Check{Name: c.Name, Timestamp: start, Details: map[string]string{}}

	pong, err := c.Client.Ping(ctx).Result()
	check.Duration = time.Since(start)
	if err != nil {
		check.Status = StatusDown
		check.Message = fmt.Sprintf("Redis connection failed: %v", err)
		return check
	}
	check.Status = StatusUp
	check.Details["ping_response"] = pong
	return check
}

// ZoneCounter reports how many airports have a known zone.
type ZoneCounter interface {
	Len() int
}

// ZoneCacheChecker reports the offset cache. An empty cache is degraded:
// conversions fail until zones are resolved.
type ZoneCacheChecker struct {
	Zones ZoneCounter
	Name  string
}

func (c *ZoneCacheChecker) Check(ctx context.Context) Check {
	n := c.Zones.Len()
	check := Check{
		Name:      c.Name,
		Status:    StatusUp,
		Timestamp: time.Now(),
		Details:   map[string]string{"airports": strconv.Itoa(n)},
	}
	if n == 0 {
		check.Status = StatusDegraded
		check.Message = "No airport zones cached yet"
	}
	return check
}

// HealthChecker runs every registered check.
type HealthChecker struct {
	checkers  []Checker
	version   map[string]string
	startTime time.Time
}

// NewHealthChecker creates a checker reporting version.
func NewHealthChecker(version map[string]string) *HealthChecker {
	return &HealthChecker{version: version, startTime: time.Now()}
}

// AddChecker registers a check.
func (h *HealthChecker) AddChecker(checker Checker) {
	h.checkers = append(h.checkers, checker)
}

// CheckHealth runs all checks. The worst component status wins.
func (h *HealthChecker) CheckHealth(ctx context.Context) Report {
	checks := make(map[string]Check, len(h.checkers))
	overall := StatusUp
	for _, checker := range h.checkers {
		check := checker.Check(ctx)
		checks[check.Name] = check
		switch {
		case check.Status == StatusDown:
			overall = StatusDown
		case check.Status == StatusDegraded && overall == StatusUp:
			overall = StatusDegraded
		}
	}

	return Report{
		Status:    overall,
		Version:   h.version,
		Timestamp: time.Now(),
		Checks:    checks,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
}
