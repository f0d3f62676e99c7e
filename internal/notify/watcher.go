package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/cars-service-log/internal/metrics"
	"github.com/ukydev/cars-service-log/internal/models"
	"github.com/ukydev/cars-service-log/internal/servicedue"
)

// FleetSource supplies the current fleet as one consistent snapshot.
// *servicelog.Manager implements it.
type FleetSource interface {
	ExportState() models.Snapshot
}

// Watcher periodically evaluates every interval and publishes an alert
// when an interval turns due soon or overdue.
type Watcher struct {
	source    FleetSource
	publisher Publisher
	interval  time.Duration
	clock     func() time.Time
	log       *logrus.Entry
	metrics   *metrics.Metrics

	mu   sync.Mutex
	last map[string]servicedue.Status // by interval id
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

func WithClock(clock func() time.Time) WatcherOption {
	return func(w *Watcher) {
		if clock != nil {
			w.clock = clock
		}
	}
}

func WithLogger(log *logrus.Entry) WatcherOption {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

func WithMetrics(mt *metrics.Metrics) WatcherOption {
	return func(w *Watcher) { w.metrics = mt }
}

// NewWatcher creates a watcher that checks every interval. An interval of
// zero or less disables Run.
func NewWatcher(source FleetSource, publisher Publisher, interval time.Duration, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		source:    source,
		publisher: publisher,
		interval:  interval,
		clock:     time.Now,
		log:       logrus.NewEntry(logrus.StandardLogger()),
		last:      make(map[string]servicedue.Status),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.WithField("component", "notify")
	return w
}

// Run checks once immediately and then on every tick until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	if w.interval <= 0 {
		w.log.Info("Due alert watcher disabled")
		return
	}
	w.log.WithField("interval", w.interval.String()).Info("Due alert watcher started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Due alert watcher stopped")
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

// Check evaluates the fleet once and returns the number of alerts published.
// An interval whose alert could not be published is retried on the next check.
func (w *Watcher) Check(ctx context.Context) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock()
	fleet := w.source.ExportState()
	items := servicedue.CollectIntervalDueItems(fleet.ServiceIntervals, fleet.ServiceEntries, fleet.Vehicles, now)

	seen := make(map[string]bool, len(items))
	published := 0
	for _, item := range items {
		id := item.DueData.Interval.ID
		status := item.DueData.Status
		seen[id] = true

		if prev, ok := w.last[id]; ok && prev == status {
			continue
		}
		if status == servicedue.StatusOK {
			w.last[id] = status
			continue
		}

		alert := NewAlert(item, now)
		if err := w.publisher.Publish(ctx, alert); err != nil {
			w.log.WithError(err).WithFields(logrus.Fields{
				"vehicle_id":  alert.VehicleID,
				"interval_id": alert.IntervalID,
			}).Warn("Failed to publish due alert")
			continue
		}
		w.last[id] = status
		w.metrics.ObserveAlert(string(status))
		published++
	}

	for id := range w.last {
		if !seen[id] {
			delete(w.last, id)
		}
	}

	if published > 0 {
		w.log.WithField("alerts", published).Info("Published due alerts")
	}
	return published
}
