// Package platform exposes the host counters the snapshot builder consumes.
//
// Every method may fail with ErrUnsupported when the host does not expose
// the capability; callers treat that the same as a transient failure and
// leave the corresponding snapshot field empty.
package platform

import "errors"

var ErrUnsupported = errors.New("platform: capability unsupported")

type CPUReading struct {
	Global  float64
	PerCore []float64
	FreqMHz []float64 // per logical CPU, may be empty
	Logical int
}

type ProcessReading struct {
	PID  int32
	Name string
	CPU  float64
	RSS  uint64
}

type MemoryReading struct {
	Total     uint64
	Used      uint64
	Available uint64
	Cached    *uint64
	Buffers   *uint64
	SwapTotal uint64
	SwapUsed  uint64
}

type PartitionReading struct {
	Device     string
	Mountpoint string
	Fstype     string
	Total      uint64
	Used       uint64
}

// IOCounters are aggregate cumulative block device bytes.
type IOCounters struct {
	ReadBytes  uint64
	WriteBytes uint64
}

type DiskReading struct {
	Partitions []PartitionReading
	IO         *IOCounters // nil when block counters are unavailable
}

type InterfaceReading struct {
	Name      string
	RxBytes   uint64
	TxBytes   uint64
	RxPackets uint64
	TxPackets uint64
	IPv4      []string
	MAC       []string
	SpeedMbps *uint64
}

// Provider is the capability surface of one host.
type Provider interface {
	CPU() (CPUReading, error)
	Temperatures() ([]float64, error)
	Processes() ([]ProcessReading, error)
	Memory() (MemoryReading, error)
	Disks() (DiskReading, error)
	Network() ([]InterfaceReading, error)
}
