package sampler

import "time"

// MinElapsed floors the divisor of every rate.
const MinElapsed = time.Millisecond

// SatSub returns cur-prev, or 0 when the counter went backwards (reset,
// wraparound, device replaced).
func SatSub(cur, prev uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}

// Elapsed returns now-since floored to MinElapsed.
func Elapsed(since, now time.Time) time.Duration {
	d := now.Sub(since)
	if d < MinElapsed {
		return MinElapsed
	}
	return d
}

// Rate converts two readings of a cumulative counter into units per second.
func Rate(cur, prev uint64, elapsed time.Duration) float64 {
	if elapsed < MinElapsed {
		elapsed = MinElapsed
	}
	return float64(SatSub(cur, prev)) / elapsed.Seconds()
}
