package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"netmon-dashboard/backend/models"
	"netmon-dashboard/backend/system"
)

const (
	DefaultFlushInterval = 3 * time.Second
	pruneInterval        = time.Hour
	flushTimeout         = 10 * time.Second
)

// HistoryRecorder queues samples and alerts from the monitor and writes them
// in batches to every configured HistoryWriter. Enqueueing never blocks; when
// the queue is full the event is dropped and counted.
type HistoryRecorder struct {
	writers  []HistoryWriter
	pruner   *GormHistoryWriter
	geoip    *GeoIPService
	interval time.Duration

	samples chan models.TrafficSample
	alerts  chan models.SecurityAlert
	dropped atomic.Int64

	flushMu      sync.Mutex // one flush at a time
	retentionMu  sync.Mutex
	snapshotDays int
	alertDays    int
	lastPrune    time.Time

	loop *tickerLoop
}

// NewHistoryRecorder creates a stopped recorder. pruner may be nil to
// disable retention cleanup.
func NewHistoryRecorder(geoip *GeoIPService, pruner *GormHistoryWriter, interval time.Duration, queueSize int, writers ...HistoryWriter) *HistoryRecorder {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	r := &HistoryRecorder{
		writers:      writers,
		pruner:       pruner,
		geoip:        geoip,
		interval:     interval,
		samples:      make(chan models.TrafficSample, queueSize),
		alerts:       make(chan models.SecurityAlert, queueSize),
		snapshotDays: 7,
		alertDays:    30,
	}
	r.loop = newTickerLoop(interval, r.flushTick)
	return r
}

// SetRetention sets how many days of snapshots and alerts are kept.
func (r *HistoryRecorder) SetRetention(snapshotDays, alertDays int) {
	r.retentionMu.Lock()
	defer r.retentionMu.Unlock()
	if snapshotDays > 0 {
		r.snapshotDays = snapshotDays
	}
	if alertDays > 0 {
		r.alertDays = alertDays
	}
}

// RecordSample queues a traffic sample.
func (r *HistoryRecorder) RecordSample(s models.TrafficSample) {
	select {
	case r.samples <- s:
	default:
		r.dropped.Add(1)
	}
}

// RecordAlert queues an alert.
func (r *HistoryRecorder) RecordAlert(a models.SecurityAlert) {
	select {
	case r.alerts <- a:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (r *HistoryRecorder) Dropped() int64 {
	return r.dropped.Load()
}

func (r *HistoryRecorder) Start() {
	if r.loop.start() {
		system.Info("History recorder started (flush: %s, writers: %d)", r.interval, len(r.writers))
	}
}

// Stop halts the flush loop and writes whatever is still queued.
func (r *HistoryRecorder) Stop() {
	if !r.loop.stop() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	r.Flush(ctx)
	system.Info("History recorder stopped")
}

func (r *HistoryRecorder) flushTick() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	r.Flush(ctx)
	r.pruneIfDue(ctx, time.Now())
}

// Flush drains the queues and writes them out.
func (r *HistoryRecorder) Flush(ctx context.Context) {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	snapshots := make([]models.TrafficSnapshot, 0, len(r.samples))
	events := make([]models.AlertEvent, 0, len(r.alerts))

drain:
	for {
		select {
		case s := <-r.samples:
			snapshots = append(snapshots, models.NewTrafficSnapshot(s))
		case a := <-r.alerts:
			countryName, countryCode := unknownCountryName, unknownCountryCode
			if r.geoip != nil {
				countryName, countryCode = r.geoip.GetCountry(a.SourceIP)
			}
			events = append(events, models.NewAlertEvent(a, countryName, countryCode))
		default:
			break drain
		}
	}

	if len(snapshots) == 0 && len(events) == 0 {
		return
	}

	for _, w := range r.writers {
		if err := w.WriteSnapshots(ctx, snapshots); err != nil {
			system.Warn("History writer %s: %v", w.Name(), err)
		}
		if err := w.WriteAlerts(ctx, events); err != nil {
			system.Warn("History writer %s: %v", w.Name(), err)
		}
	}
}

func (r *HistoryRecorder) pruneIfDue(ctx context.Context, now time.Time) {
	if r.pruner == nil {
		return
	}

	r.retentionMu.Lock()
	if now.Sub(r.lastPrune) < pruneInterval {
		r.retentionMu.Unlock()
		return
	}
	r.lastPrune = now
	snapshotCutoff := now.AddDate(0, 0, -r.snapshotDays)
	alertCutoff := now.AddDate(0, 0, -r.alertDays)
	r.retentionMu.Unlock()

	snaps, alerts, err := r.pruner.Prune(ctx, snapshotCutoff, alertCutoff)
	if err != nil {
		system.Warn("History cleanup failed: %v", err)
		return
	}
	if snaps > 0 || alerts > 0 {
		system.Info("History cleanup removed %d snapshots and %d alerts", snaps, alerts)
	}
}
