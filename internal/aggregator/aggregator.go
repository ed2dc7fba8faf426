// Package aggregator averages sampler output over fixed windows and publishes
// one reduced-noise snapshot per window.
package aggregator

import (
	"context"
	"time"

	"github.com/Dicklesworthstone/sysmoni/internal/cache"
	"github.com/Dicklesworthstone/sysmoni/internal/logger"
	"github.com/Dicklesworthstone/sysmoni/internal/model"
	"github.com/Dicklesworthstone/sysmoni/internal/observability"
)

// Publisher receives aggregated snapshots. Delivery is fire-and-forget.
type Publisher interface {
	Publish(model.Snapshot)
}

type Options struct {
	Poll       time.Duration
	Emit       time.Duration
	Alpha      float64
	TopN       int
	ProcessTTL int
	// Drain empties the cache on every read so a sample is folded at most
	// once. By default the latest sample is re-read each poll.
	Drain bool
}

func DefaultOptions() Options {
	return Options{
		Poll:  30 * time.Millisecond,
		Emit:  1500 * time.Millisecond,
		Alpha: 0.3,
		TopN:  10,
	}
}

type Aggregator struct {
	cache   *cache.Latest
	pub     Publisher
	opts    Options
	log     logger.Logger
	metrics *observability.Metrics
}

func New(c *cache.Latest, pub Publisher, opts Options, log logger.Logger, m *observability.Metrics) *Aggregator {
	return &Aggregator{cache: c, pub: pub, opts: opts, log: log, metrics: m}
}

// Run polls the cache and publishes one snapshot per emit interval until ctx
// is done.
func (a *Aggregator) Run(ctx context.Context) error {
	a.log.Info("aggregator started", "poll", a.opts.Poll, "emit", a.opts.Emit, "alpha", a.opts.Alpha, "top", a.opts.TopN)
	defer a.log.Info("aggregator stopped")

	acc := NewAccumulator(NewSmoother(a.opts.Alpha, a.opts.ProcessTTL))

	ticker := time.NewTicker(a.opts.Poll)
	defer ticker.Stop()
	lastEmit := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			a.poll(acc)
			if now.Sub(lastEmit) >= a.opts.Emit {
				a.emit(acc)
				// The baseline moves even for an empty window.
				lastEmit = now
			}
		}
	}
}

func (a *Aggregator) poll(acc *Accumulator) {
	var (
		snap model.Snapshot
		ok   bool
	)
	if a.opts.Drain {
		snap, ok = a.cache.Take()
	} else {
		snap, ok = a.cache.Load()
	}
	if ok {
		acc.Fold(snap)
	}
}

func (a *Aggregator) emit(acc *Accumulator) {
	folded := acc.Count()
	if snap, ok := acc.Reduce(a.opts.TopN); ok {
		a.pub.Publish(snap)
		a.metrics.WindowEmitted()
		a.log.Debug("window emitted", "samples", folded, "cpu", snap.CPU.Global)
	} else {
		a.metrics.WindowEmpty()
		a.log.Debug("window empty, nothing published")
	}
	acc.Reset()
	a.metrics.SetTrackedProcesses(acc.ema.Len())
}
