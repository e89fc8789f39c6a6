package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/citizen-feed-service/internal/domain"
	"github.com/couchcryptid/citizen-feed-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Emitter receives the result of each successful tick.
type Emitter interface {
	Emit(ctx context.Context, snap *domain.Snapshot) error
}

// NopEmitter discards snapshots. Used when change-event publishing is disabled.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, *domain.Snapshot) error { return nil }

// Options fixes the feed parameters for one poller run. Changing them means
// constructing a new poller.
type Options struct {
	Center   domain.Geo
	RadiusKm float64
	Limit    int
	Interval time.Duration
}

// Poller drives the fetch-classify-reconcile pipeline on a fixed wall-clock
// interval. Ticks are strictly sequential: a tick finishes (or its fetch
// times out) before the next one starts. All cache and reconciler calls are
// serialized through the tick, and the last result is published as an
// immutable snapshot for between-tick readers.
type Poller struct {
	cache      *Cache
	reconciler *Reconciler
	emitter    Emitter
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
	opts       Options

	ready    atomic.Bool
	snapshot atomic.Pointer[domain.Snapshot]
}

// NewPoller creates a poller. Each configured region gets its own instance
// with its own cache and reconciler; instances are fully independent.
func NewPoller(cache *Cache, reconciler *Reconciler, emitter Emitter, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Poller {
	return &Poller{
		cache:      cache,
		reconciler: reconciler,
		emitter:    emitter,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
		opts:       opts,
	}
}

// CheckReadiness returns nil once at least one tick has completed
// successfully.
func (p *Poller) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no successful feed fetch yet")
	}
	return nil
}

// Snapshot returns the last published snapshot, or nil before the first
// successful tick. The value is immutable.
func (p *Poller) Snapshot() *domain.Snapshot {
	return p.snapshot.Load()
}

// Run executes the polling loop until the context is cancelled. The first
// tick runs immediately so presentation is never empty for a whole interval
// after a cold start; cancellation takes effect between ticks.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started",
		"center_lat", p.opts.Center.Lat,
		"center_lon", p.opts.Center.Lon,
		"radius_km", p.opts.RadiusKm,
		"limit", p.opts.Limit,
		"interval", p.opts.Interval,
	)
	p.metrics.PollerRunning.Set(1)
	defer p.metrics.PollerRunning.Set(0)

	ticker := p.clock.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			p.tick(ctx)
		}
	}
}

// tick runs one fetch-classify-reconcile-emit pass. A fetch failure skips
// the pass entirely: the known set and the published snapshot keep their
// last good state.
func (p *Poller) tick(ctx context.Context) {
	start := p.clock.Now()

	incidents, err := p.cache.Get(ctx, p.opts.Center, p.opts.RadiusKm, p.opts.Limit)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Error("tick skipped, keeping last known state", "error", err)
		p.metrics.TicksTotal.WithLabelValues("skipped").Inc()
		return
	}

	now := p.clock.Now()
	classified := make([]domain.ClassifiedIncident, 0, len(incidents))
	for _, inc := range incidents {
		classified = append(classified, domain.ClassifyIncident(inc, p.opts.Center, now))
	}

	changes := p.reconciler.Reconcile(incidents)

	snap := &domain.Snapshot{
		TakenAt:   now,
		Incidents: classified,
		Changes:   changes,
	}
	p.snapshot.Store(snap)
	p.ready.Store(true)

	p.metrics.ActiveIncidents.Set(float64(len(classified)))
	p.metrics.IncidentsCreated.Add(float64(len(changes.Created)))
	p.metrics.IncidentsUpdated.Add(float64(len(changes.Updated)))
	p.metrics.IncidentsRemoved.Add(float64(len(changes.Removed)))
	p.metrics.TicksTotal.WithLabelValues("success").Inc()
	p.metrics.TickDuration.Observe(p.clock.Since(start).Seconds())

	if !changes.Empty() {
		p.logger.Info("reconciled feed",
			"active", len(classified),
			"created", len(changes.Created),
			"updated", len(changes.Updated),
			"removed", len(changes.Removed),
		)
	}

	// Emit failures are reported but never fail the tick.
	if err := p.emitter.Emit(ctx, snap); err != nil {
		p.logger.Warn("emit failed", "error", err)
	}
}
