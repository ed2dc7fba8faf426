package sampler

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/Dicklesworthstone/sysmoni/internal/cache"
	"github.com/Dicklesworthstone/sysmoni/internal/logger"
	"github.com/Dicklesworthstone/sysmoni/internal/model"
	"github.com/Dicklesworthstone/sysmoni/internal/observability"
	"github.com/Dicklesworthstone/sysmoni/internal/platform"
)

// Builder turns one round of platform queries into a Snapshot. It holds no
// sampling state of its own; rates come from the Previous passed in.
type Builder struct {
	provider          platform.Provider
	log               logger.Logger
	now               func() time.Time
	candidatesPerCore int
	minCandidates     int
}

type Option func(*Builder)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithCandidates sets how many processes are kept per core and the floor.
func WithCandidates(perCore, min int) Option {
	return func(b *Builder) {
		b.candidatesPerCore = perCore
		b.minCandidates = min
	}
}

func NewBuilder(p platform.Provider, log logger.Logger, opts ...Option) *Builder {
	b := &Builder{
		provider:          p,
		log:               log,
		now:               time.Now,
		candidatesPerCore: 4,
		minCandidates:     10,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// OnDemand builds a snapshot with no previous sample, so every rate is absent.
func (b *Builder) OnDemand() model.Snapshot { return b.Build(nil) }

// Build queries every capability once. Failures leave the matching fields
// empty; Build never fails.
func (b *Builder) Build(prev *model.Previous) model.Snapshot {
	snap := model.Snapshot{Timestamp: b.now()}

	var elapsed time.Duration
	if prev != nil && !prev.At.IsZero() {
		elapsed = Elapsed(prev.At, snap.Timestamp)
	}

	snap.CPU = b.cpu()
	snap.Mem = b.memory()
	snap.Disk = b.disk(prev, elapsed)
	snap.Net = b.network(prev, elapsed)
	return snap
}

func (b *Builder) degrade(what string, err error) {
	if errors.Is(err, platform.ErrUnsupported) {
		b.log.Debug("capability unsupported", "capability", what)
		return
	}
	b.log.Debug("platform query failed", "capability", what, "error", err)
}

func (b *Builder) cpu() model.CPU {
	var out model.CPU

	r, err := b.provider.CPU()
	if err != nil {
		b.degrade("cpu", err)
	} else {
		out.Global = r.Global
		out.PerCore = r.PerCore
		out.Cores = len(r.PerCore)
		if out.Cores == 0 {
			out.Cores = r.Logical
		}
		if len(r.FreqMHz) > 0 {
			var sum float64
			for _, f := range r.FreqMHz {
				sum += f
			}
			out.FreqGHz = sum / float64(len(r.FreqMHz)) / 1000
		}
	}

	out.TempC = b.maxTemperature()
	out.Top = b.topProcesses(out.Cores)
	return out
}

func (b *Builder) maxTemperature() *float64 {
	temps, err := b.provider.Temperatures()
	if err != nil {
		b.degrade("temperature", err)
		return nil
	}
	var max *float64
	for _, t := range temps {
		if math.IsNaN(t) || t <= 0 {
			continue
		}
		if max == nil || t > *max {
			v := t
			max = &v
		}
	}
	return max
}

func (b *Builder) topProcesses(cores int) []model.Process {
	procs, err := b.provider.Processes()
	if err != nil {
		b.degrade("processes", err)
		return nil
	}

	top := make([]model.Process, 0, len(procs))
	for _, p := range procs {
		top = append(top, model.Process{Name: p.Name, PID: p.PID, CPU: p.CPU, Mem: p.RSS})
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].CPU > top[j].CPU })

	limit := cores * b.candidatesPerCore
	if limit < b.minCandidates {
		limit = b.minCandidates
	}
	if len(top) > limit {
		top = top[:limit]
	}
	return top
}

func (b *Builder) memory() model.Memory {
	r, err := b.provider.Memory()
	if err != nil {
		b.degrade("memory", err)
		return model.Memory{}
	}
	return model.Memory{
		Total:     r.Total,
		Used:      r.Used,
		Available: r.Available,
		Cached:    r.Cached,
		Buffers:   r.Buffers,
		SwapTotal: r.SwapTotal,
		SwapUsed:  r.SwapUsed,
	}
}

func (b *Builder) disk(prev *model.Previous, elapsed time.Duration) model.Disk {
	r, err := b.provider.Disks()
	if err != nil {
		b.degrade("disk", err)
		return model.Disk{}
	}

	var out model.Disk
	for _, p := range r.Partitions {
		out.Parts = append(out.Parts, model.Partition{
			Name:  p.Device,
			Mount: p.Mountpoint,
			FS:    p.Fstype,
			Total: p.Total,
			Used:  p.Used,
		})
	}

	if r.IO == nil {
		return out
	}
	out.ReadBytes = model.Ptr(r.IO.ReadBytes)
	out.WriteBytes = model.Ptr(r.IO.WriteBytes)
	if elapsed > 0 && prev.Disk != nil {
		out.ReadBps = model.Ptr(Rate(r.IO.ReadBytes, prev.Disk.In, elapsed))
		out.WriteBps = model.Ptr(Rate(r.IO.WriteBytes, prev.Disk.Out, elapsed))
	}
	return out
}

func (b *Builder) network(prev *model.Previous, elapsed time.Duration) []model.Interface {
	ifaces, err := b.provider.Network()
	if err != nil {
		b.degrade("network", err)
		return nil
	}

	out := make([]model.Interface, 0, len(ifaces))
	for _, r := range ifaces {
		n := model.Interface{
			Name:      r.Name,
			IPv4:      r.IPv4,
			MAC:       r.MAC,
			SpeedMbps: r.SpeedMbps,
			RxPackets: r.RxPackets,
			TxPackets: r.TxPackets,
			RxBytes:   r.RxBytes,
			TxBytes:   r.TxBytes,
		}
		if elapsed > 0 {
			if pc, ok := prev.Net[r.Name]; ok {
				n.RxBps = Rate(r.RxBytes, pc.In, elapsed)
				n.TxBps = Rate(r.TxBytes, pc.Out, elapsed)
			}
		}
		out = append(out, n)
	}
	return out
}

// Loop samples continuously into the cache.
type Loop struct {
	builder *Builder
	cache   *cache.Latest
	tick    time.Duration
	log     logger.Logger
	metrics *observability.Metrics
}

func NewLoop(b *Builder, c *cache.Latest, tick time.Duration, log logger.Logger, m *observability.Metrics) *Loop {
	return &Loop{builder: b, cache: c, tick: tick, log: log, metrics: m}
}

// Run samples until ctx is done. A slow build delays the next one; there is
// no catch-up.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("sampler started", "tick", l.tick)
	defer l.log.Info("sampler stopped")

	var prev *model.Previous
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		start := time.Now()
		snap := l.builder.Build(prev)
		l.metrics.SnapshotBuilt(time.Since(start))

		if l.cache.Store(snap) {
			l.metrics.CacheOverwritten()
		}
		prev = model.PreviousOf(snap)

		timer.Reset(l.tick)
	}
}
