package platform

import (
	"fmt"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// Gopsutil reads the local host through gopsutil and procfs/sysfs shims.
type Gopsutil struct {
	// process handles are kept between calls so Percent(0) measures the
	// delta since the previous sample instead of the process lifetime.
	mu    sync.Mutex
	procs map[int32]*process.Process
}

func NewGopsutil() *Gopsutil {
	return &Gopsutil{procs: make(map[int32]*process.Process)}
}

func (g *Gopsutil) CPU() (CPUReading, error) {
	var r CPUReading

	total, err := cpu.Percent(0, false)
	if err != nil {
		return r, fmt.Errorf("cpu percent: %w", err)
	}
	if len(total) > 0 {
		r.Global = total[0]
	}
	r.PerCore, _ = cpu.Percent(0, true)
	r.Logical, _ = cpu.Counts(true)

	if infos, err := cpu.Info(); err == nil {
		for _, in := range infos {
			if in.Mhz > 0 {
				r.FreqMHz = append(r.FreqMHz, in.Mhz)
			}
		}
	}
	return r, nil
}

func (g *Gopsutil) Temperatures() ([]float64, error) {
	stats, err := host.SensorsTemperatures()
	// Linux returns partial readings together with warnings; keep what we got.
	if len(stats) == 0 {
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		return nil, ErrUnsupported
	}
	out := make([]float64, 0, len(stats))
	for _, s := range stats {
		out = append(out, s.Temperature)
	}
	return out, nil
}

func (g *Gopsutil) Processes() ([]ProcessReading, error) {
	pids, err := process.Pids()
	if err != nil {
		return nil, fmt.Errorf("list pids: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	alive := make(map[int32]*process.Process, len(pids))
	out := make([]ProcessReading, 0, len(pids))
	for _, pid := range pids {
		p, seen := g.procs[pid]
		if !seen {
			p, err = process.NewProcess(pid)
			if err != nil {
				continue
			}
		}
		name, _ := p.Name()
		// Skip kernel threads without name
		if name == "" {
			continue
		}
		alive[pid] = p

		pct, err := processCPU(p, !seen)
		if err != nil {
			continue
		}
		var rss uint64
		if mi, err := p.MemoryInfo(); err == nil && mi != nil {
			rss = mi.RSS
		}
		out = append(out, ProcessReading{PID: pid, Name: name, CPU: pct, RSS: rss})
	}
	g.procs = alive
	return out, nil
}

type cpuSampler interface {
	Percent(interval time.Duration) (float64, error)
	CPUPercent() (float64, error)
}

// processCPU returns usage since the previous scan. A handle seen for the
// first time has no previous scan, so it reports its lifetime average while
// Percent(0) primes the next delta.
func processCPU(p cpuSampler, fresh bool) (float64, error) {
	pct, err := p.Percent(0)
	if err != nil || !fresh {
		return pct, err
	}
	return p.CPUPercent()
}

func (g *Gopsutil) Memory() (MemoryReading, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return MemoryReading{}, fmt.Errorf("virtual memory: %w", err)
	}
	r := MemoryReading{
		Total:     vm.Total,
		Used:      vm.Used,
		Available: vm.Available,
	}
	r.Cached, r.Buffers = pageCache(vm)

	if sw, err := mem.SwapMemory(); err == nil {
		r.SwapTotal, r.SwapUsed = sw.Total, sw.Used
	}
	return r, nil
}

func (g *Gopsutil) Disks() (DiskReading, error) {
	parts, err := disk.Partitions(false)
	if err != nil {
		return DiskReading{}, fmt.Errorf("partitions: %w", err)
	}

	var r DiskReading
	for _, p := range parts {
		u, err := disk.Usage(p.Mountpoint)
		if err != nil {
			continue
		}
		r.Partitions = append(r.Partitions, PartitionReading{
			Device:     p.Device,
			Mountpoint: p.Mountpoint,
			Fstype:     p.Fstype,
			Total:      u.Total,
			Used:       u.Used,
		})
	}

	if counters, err := disk.IOCounters(); err == nil && len(counters) > 0 {
		var io IOCounters
		for name, st := range counters {
			if strings.HasPrefix(name, "loop") || strings.HasPrefix(name, "ram") || !wholeDisk(name) {
				continue
			}
			io.ReadBytes += st.ReadBytes
			io.WriteBytes += st.WriteBytes
		}
		r.IO = &io
	}
	return r, nil
}

func (g *Gopsutil) Network() ([]InterfaceReading, error) {
	counters, err := net.IOCounters(true)
	if err != nil {
		return nil, fmt.Errorf("net counters: %w", err)
	}

	addrs := make(map[string]net.InterfaceStat)
	if ifaces, err := net.Interfaces(); err == nil {
		for _, in := range ifaces {
			addrs[in.Name] = in
		}
	}

	out := make([]InterfaceReading, 0, len(counters))
	for _, c := range counters {
		r := InterfaceReading{
			Name:      c.Name,
			RxBytes:   c.BytesRecv,
			TxBytes:   c.BytesSent,
			RxPackets: c.PacketsRecv,
			TxPackets: c.PacketsSent,
			SpeedMbps: linkSpeed(c.Name),
		}
		if in, ok := addrs[c.Name]; ok {
			r.IPv4 = ipv4Addrs(in.Addrs)
			if mac := normalizeMAC(in.HardwareAddr); mac != "" {
				r.MAC = []string{mac}
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func ipv4Addrs(list net.InterfaceAddrList) []string {
	var out []string
	for _, a := range list {
		prefix, err := netip.ParsePrefix(a.Addr)
		if err != nil {
			continue
		}
		if ip := prefix.Addr(); ip.Is4() {
			out = append(out, ip.String())
		}
	}
	return out
}

func normalizeMAC(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, "-", ":"))
}
