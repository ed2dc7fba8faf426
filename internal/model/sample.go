package model

import "time"

// Process is a lightweight top entry.
type Process struct {
	Name string  `json:"name"`
	PID  int32   `json:"pid"`
	CPU  float64 `json:"cpu"` // percent, may exceed 100 on multi-core hosts
	Mem  uint64  `json:"mem"` // resident bytes
}

// CPU aggregates instantaneous CPU usage.
type CPU struct {
	Global  float64   `json:"global"`   // percent 0-100
	PerCore []float64 `json:"per_core"` // per-core percent
	FreqGHz float64   `json:"freq_ghz"`
	Cores   int       `json:"cores"`
	TempC   *float64  `json:"temp_c,omitempty"`
	Top     []Process `json:"top"`
}

// Memory captures RAM and swap usage in bytes.
type Memory struct {
	Total     uint64  `json:"total"`
	Used      uint64  `json:"used"`
	Available uint64  `json:"available"`
	Cached    *uint64 `json:"cached,omitempty"`
	Buffers   *uint64 `json:"buffers,omitempty"`
	SwapTotal uint64  `json:"swap_total"`
	SwapUsed  uint64  `json:"swap_used"`
}

// Partition is one mounted filesystem.
type Partition struct {
	Name  string `json:"name"`
	Mount string `json:"mount"`
	FS    string `json:"fs"`
	Total uint64 `json:"total"`
	Used  uint64 `json:"used"`
}

// Disk holds partitions plus aggregate block I/O. Rates are nil unless the
// platform exposes block counters and a previous sample exists.
type Disk struct {
	Parts      []Partition `json:"parts"`
	ReadBps    *float64    `json:"read_bps,omitempty"`
	WriteBps   *float64    `json:"write_bps,omitempty"`
	ReadBytes  *uint64     `json:"read_bytes,omitempty"`
	WriteBytes *uint64     `json:"write_bytes,omitempty"`
}

// Interface is one network adapter.
type Interface struct {
	Name      string   `json:"name"`
	IPv4      []string `json:"ipv4"`
	MAC       []string `json:"mac"`
	SpeedMbps *uint64  `json:"speed_mbps,omitempty"`
	RxBps     float64  `json:"rx_bps"`
	TxBps     float64  `json:"tx_bps"`
	RxPackets uint64   `json:"rx_packets"`
	TxPackets uint64   `json:"tx_packets"`
	RxBytes   uint64   `json:"rx_bytes"`
	TxBytes   uint64   `json:"tx_bytes"`
}

// Snapshot is one complete reading exchanged between sampler, aggregator and consumers.
type Snapshot struct {
	Timestamp time.Time   `json:"timestamp"`
	CPU       CPU         `json:"cpu"`
	Mem       Memory      `json:"mem"`
	Disk      Disk        `json:"disk"`
	Net       []Interface `json:"net"`
}

// Clone returns a deep copy so callers can overwrite fields without touching
// a snapshot another goroutine may still hold.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.CPU.PerCore = cloneSlice(s.CPU.PerCore)
	out.CPU.TempC = clonePtr(s.CPU.TempC)
	out.CPU.Top = cloneSlice(s.CPU.Top)
	out.Mem.Cached = clonePtr(s.Mem.Cached)
	out.Mem.Buffers = clonePtr(s.Mem.Buffers)
	out.Disk.Parts = cloneSlice(s.Disk.Parts)
	out.Disk.ReadBps = clonePtr(s.Disk.ReadBps)
	out.Disk.WriteBps = clonePtr(s.Disk.WriteBps)
	out.Disk.ReadBytes = clonePtr(s.Disk.ReadBytes)
	out.Disk.WriteBytes = clonePtr(s.Disk.WriteBytes)
	if s.Net != nil {
		out.Net = make([]Interface, len(s.Net))
		for i, n := range s.Net {
			n.IPv4 = cloneSlice(n.IPv4)
			n.MAC = cloneSlice(n.MAC)
			n.SpeedMbps = clonePtr(n.SpeedMbps)
			out.Net[i] = n
		}
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v, for filling optional fields.
func Ptr[T any](v T) *T { return &v }
