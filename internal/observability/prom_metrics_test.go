package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SnapshotBuilt(5 * time.Millisecond)
	m.SnapshotBuilt(7 * time.Millisecond)
	if got := testutil.ToFloat64(m.built); got != 2 {
		t.Fatalf("expected 2 snapshots built, got %f", got)
	}
	if n := testutil.CollectAndCount(m.buildTime); n != 1 {
		t.Fatalf("expected build histogram to be collected, got %d", n)
	}

	m.CacheOverwritten()
	m.WindowEmitted()
	m.WindowEmpty()
	m.WindowEmpty()
	m.PublishDropped()
	if got := testutil.ToFloat64(m.empty); got != 2 {
		t.Fatalf("expected 2 empty windows, got %f", got)
	}
	if got := testutil.ToFloat64(m.overwrites); got != 1 {
		t.Fatalf("expected 1 overwrite, got %f", got)
	}

	m.SetTrackedProcesses(12)
	m.SetSubscribers(3)
	if got := testutil.ToFloat64(m.tracked); got != 12 {
		t.Fatalf("expected tracked gauge 12, got %f", got)
	}
	if got := testutil.ToFloat64(m.subs); got != 3 {
		t.Fatalf("expected subscribers gauge 3, got %f", got)
	}

	if n, err := testutil.GatherAndCount(reg); err != nil || n != 8 {
		t.Fatalf("expected 8 registered families, got %d (%v)", n, err)
	}
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *Metrics
	m.SnapshotBuilt(time.Second)
	m.CacheOverwritten()
	m.WindowEmitted()
	m.WindowEmpty()
	m.PublishDropped()
	m.SetTrackedProcesses(1)
	m.SetSubscribers(1)
}
