package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gilby125/cs509-reservation-client/pkg/logger"
	"github.com/gilby125/cs509-reservation-client/pkg/metrics"
	"github.com/gilby125/cs509-reservation-client/reservation"
	"github.com/gilby125/cs509-reservation-client/timezone"
)

var (
	// ErrRefreshRunning is returned when a refresh is already in progress.
	ErrRefreshRunning = errors.New("zone refresh already running")
	// ErrLeaseHeld is returned when another instance holds the refresh lease.
	ErrLeaseHeld = errors.New("zone refresh lease held by another instance")
)

// AirportSource lists the airports whose zones are refreshed.
type AirportSource interface {
	Airports(ctx context.Context) (reservation.Airports, error)
}

// ZoneResolver resolves airport zones into the offset cache.
type ZoneResolver interface {
	ResolveAll(ctx context.Context, airports []timezone.AirportRecord) timezone.BatchResult
}

// RefreshStatus describes the last refresh run.
type RefreshStatus struct {
	Running  bool      `json:"running"`
	LastRun  time.Time `json:"last_run,omitempty"`
	Duration string    `json:"duration,omitempty"`
	Resolved int       `json:"resolved"`
	Failed   int       `json:"failed"`
	Skipped  int       `json:"skipped"`
	Error    string    `json:"error,omitempty"`
}

// Refresher re-resolves every airport's zone on a cron schedule, so offsets
// follow daylight saving changes.
type Refresher struct {
	source   AirportSource
	resolver ZoneResolver
	lease    *Lease
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
	metrics  *metrics.Metrics
	log      *logger.Logger

	mu      sync.Mutex
	running bool
	status  RefreshStatus
}

// RefresherOption configures a Refresher.
type RefresherOption func(r *Refresher)

// WithSchedule sets the cron expression. An empty schedule disables
// scheduled runs; RunOnce still works.
func WithSchedule(spec string) RefresherOption {
	return func(r *Refresher) {
		r.schedule = spec
	}
}

// WithLease makes runs skip while another instance holds lease.
func WithLease(lease *Lease) RefresherOption {
	return func(r *Refresher) {
		r.lease = lease
	}
}

// WithMetrics records run outcomes and lookup counts.
func WithMetrics(m *metrics.Metrics) RefresherOption {
	return func(r *Refresher) {
		r.metrics = m
	}
}

// WithRunTimeout bounds a scheduled run.
func WithRunTimeout(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		r.timeout = d
	}
}

// NewRefresher creates a refresher. The default schedule is weekly.
func NewRefresher(source AirportSource, resolver ZoneResolver, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		source:   source,
		resolver: resolver,
		schedule: "@weekly",
		timeout:  time.Hour,
		cron:     cron.New(),
		log:      logger.WithField("component", "zone_refresher"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start schedules the refresh job and starts the cron runner.
func (r *Refresher) Start() error {
	if r.schedule == "" {
		r.log.Info("Zone refresh schedule disabled")
		return nil
	}
	if _, err := r.cron.AddFunc(r.schedule, r.runScheduled); err != nil {
		return fmt.Errorf("schedule zone refresh %q: %w", r.schedule, err)
	}
	r.cron.Start()
	r.log.Info("Zone refresher started", "schedule", r.schedule)
	return nil
}

// Stop stops the cron runner and waits for a running job to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
	r.log.Info("Zone refresher stopped")
}

func (r *Refresher) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, ErrLeaseHeld) {
		r.log.Error(err, "Scheduled zone refresh failed")
	}
}

// RunOnce lists the airports and re-resolves all of them. Only one run
// proceeds at a time.
func (r *Refresher) RunOnce(ctx context.Context) (timezone.BatchResult, error) {
	if !r.claim() {
		return timezone.BatchResult{}, ErrRefreshRunning
	}
	return r.execute(ctx)
}

// Trigger starts a run in the background and returns once the run is
// claimed. It returns ErrRefreshRunning when a run is already in progress.
func (r *Refresher) Trigger(ctx context.Context) error {
	if !r.claim() {
		return ErrRefreshRunning
	}
	go func() {
		if _, err := r.execute(ctx); err != nil && !errors.Is(err, ErrLeaseHeld) {
			r.log.Error(err, "Triggered zone refresh failed")
		}
	}()
	return nil
}

func (r *Refresher) claim() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	r.status.Running = true
	return true
}

// execute runs a claimed refresh and releases the claim.
func (r *Refresher) execute(ctx context.Context) (timezone.BatchResult, error) {
	start := time.Now()
	result, err := r.run(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.status = RefreshStatus{
		LastRun:  start,
		Duration: time.Since(start).Round(time.Millisecond).String(),
		Resolved: len(result.Resolved),
		Failed:   len(result.Failed),
		Skipped:  len(result.Skipped),
	}
	if err != nil {
		r.status.Error = err.Error()
	}
	r.record(result, err, time.Since(start))
	return result, err
}

func (r *Refresher) record(result timezone.BatchResult, err error, elapsed time.Duration) {
	if r.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case errors.Is(err, ErrLeaseHeld):
		outcome = "skipped"
	case err != nil:
		outcome = "error"
	}
	r.metrics.RefreshRuns.WithLabelValues(outcome).Inc()
	r.metrics.ZoneLookups.WithLabelValues("resolved").Add(float64(len(result.Resolved)))
	r.metrics.ZoneLookups.WithLabelValues("failed").Add(float64(len(result.Failed)))
	if outcome != "skipped" {
		r.metrics.RefreshDuration.Observe(elapsed.Seconds())
	}
}

func (r *Refresher) run(ctx context.Context) (timezone.BatchResult, error) {
	if r.lease != nil {
		ok, err := r.lease.TryAcquire(ctx)
		if err != nil {
			return timezone.BatchResult{}, err
		}
		if !ok {
			r.log.Info("Skipping zone refresh, lease held elsewhere")
			return timezone.BatchResult{}, ErrLeaseHeld
		}
		defer r.lease.Release(context.WithoutCancel(ctx))
	}

	airports, err := r.source.Airports(ctx)
	if err != nil {
		return timezone.BatchResult{}, fmt.Errorf("list airports: %w", err)
	}

	r.log.Info("Refreshing airport zones", "airports", len(airports))
	return r.resolver.ResolveAll(ctx, airports.Records()), nil
}

// Status returns the state of the last run.
func (r *Refresher) Status() RefreshStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}
