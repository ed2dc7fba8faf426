package aggregator

import (
	"sort"

	"github.com/Dicklesworthstone/sysmoni/internal/model"
)

type netSum struct {
	rx, tx float64
	n      uint64
}

// Accumulator folds samples of one emission window. It is owned by a single
// goroutine.
type Accumulator struct {
	count  uint64
	cpuSum float64

	// per-slot counts so a core that appears mid-window averages only its
	// own samples
	coreSums   []float64
	coreCounts []uint64

	memUsedSum  uint64
	memAvailSum uint64

	diskCount    uint64
	diskReadSum  float64
	diskWriteSum float64

	net map[string]*netSum

	last model.Snapshot

	ema *Smoother
}

// NewAccumulator uses ema for per-process smoothing; ema survives Reset.
func NewAccumulator(ema *Smoother) *Accumulator {
	return &Accumulator{net: make(map[string]*netSum), ema: ema}
}

func (a *Accumulator) Count() uint64 { return a.count }

func (a *Accumulator) Fold(s model.Snapshot) {
	a.count++
	a.cpuSum += s.CPU.Global

	n := len(s.CPU.PerCore)
	if len(a.coreSums) > n {
		a.coreSums = a.coreSums[:n]
		a.coreCounts = a.coreCounts[:n]
	}
	for len(a.coreSums) < n {
		a.coreSums = append(a.coreSums, 0)
		a.coreCounts = append(a.coreCounts, 0)
	}
	for i, v := range s.CPU.PerCore {
		a.coreSums[i] += v
		a.coreCounts[i]++
	}

	a.memUsedSum += s.Mem.Used
	a.memAvailSum += s.Mem.Available

	if s.Disk.ReadBps != nil && s.Disk.WriteBps != nil {
		a.diskCount++
		a.diskReadSum += *s.Disk.ReadBps
		a.diskWriteSum += *s.Disk.WriteBps
	}

	for _, in := range s.Net {
		e, ok := a.net[in.Name]
		if !ok {
			e = &netSum{}
			a.net[in.Name] = e
		}
		e.rx += in.RxBps
		e.tx += in.TxBps
		e.n++
	}

	for _, p := range s.CPU.Top {
		a.ema.Update(p.Name, p.CPU)
	}

	a.last = s
}

// Reduce returns the window average laid over the last folded snapshot, with
// the top list re-ranked by smoothed CPU and cut to topN. ok is false when
// nothing was folded.
func (a *Accumulator) Reduce(topN int) (model.Snapshot, bool) {
	if a.count == 0 {
		return model.Snapshot{}, false
	}
	n := float64(a.count)

	out := a.last.Clone()
	out.CPU.Global = a.cpuSum / n
	for i := range out.CPU.PerCore {
		if i < len(a.coreSums) && a.coreCounts[i] > 0 {
			out.CPU.PerCore[i] = a.coreSums[i] / float64(a.coreCounts[i])
		}
	}
	out.Mem.Used = a.memUsedSum / a.count
	out.Mem.Available = a.memAvailSum / a.count

	if a.diskCount > 0 {
		out.Disk.ReadBps = model.Ptr(a.diskReadSum / float64(a.diskCount))
		out.Disk.WriteBps = model.Ptr(a.diskWriteSum / float64(a.diskCount))
	}

	for i := range out.Net {
		if e, ok := a.net[out.Net[i].Name]; ok && e.n > 0 {
			out.Net[i].RxBps = e.rx / float64(e.n)
			out.Net[i].TxBps = e.tx / float64(e.n)
		}
	}

	top := out.CPU.Top
	for i := range top {
		if v, ok := a.ema.Value(top[i].Name); ok {
			top[i].CPU = v
		}
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].CPU > top[j].CPU })
	if len(top) > topN {
		top = top[:topN]
	}
	out.CPU.Top = top

	return out, true
}

// Reset clears the window sums and closes the smoothing window. The
// smoothing table itself is kept.
func (a *Accumulator) Reset() {
	a.count = 0
	a.cpuSum = 0
	for i := range a.coreSums {
		a.coreSums[i] = 0
		a.coreCounts[i] = 0
	}
	a.memUsedSum, a.memAvailSum = 0, 0
	a.diskCount, a.diskReadSum, a.diskWriteSum = 0, 0, 0
	clear(a.net)
	a.ema.EndWindow()
}
