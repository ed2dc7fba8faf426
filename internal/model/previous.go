package model

import "time"

// ByteCounters is a cumulative (rx, tx) or (read, write) pair.
type ByteCounters struct {
	In  uint64
	Out uint64
}

// Previous holds the cumulative counters of the last sample, used only to
// derive rates on the next build.
type Previous struct {
	At   time.Time
	Net  map[string]ByteCounters
	Disk *ByteCounters
}

// PreviousOf extracts the counters of s.
func PreviousOf(s Snapshot) *Previous {
	p := &Previous{
		At:  s.Timestamp,
		Net: make(map[string]ByteCounters, len(s.Net)),
	}
	for _, n := range s.Net {
		p.Net[n.Name] = ByteCounters{In: n.RxBytes, Out: n.TxBytes}
	}
	if s.Disk.ReadBytes != nil && s.Disk.WriteBytes != nil {
		p.Disk = &ByteCounters{In: *s.Disk.ReadBytes, Out: *s.Disk.WriteBytes}
	}
	return p
}
