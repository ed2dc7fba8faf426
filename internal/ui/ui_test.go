package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dicklesworthstone/sysmoni/internal/broadcast"
	"github.com/Dicklesworthstone/sysmoni/internal/logger"
	"github.com/Dicklesworthstone/sysmoni/internal/model"
)

type fixedRefresher struct{ calls int }

func (f *fixedRefresher) OnDemand() model.Snapshot {
	f.calls++
	return model.Snapshot{CPU: model.CPU{Global: 3, Top: []model.Process{{Name: "manual", CPU: 1}}}}
}

func newModel(t *testing.T) (*Model, *broadcast.Hub, *fixedRefresher, *bool) {
	t.Helper()
	hub := broadcast.NewHub(logger.Nop(), nil)
	t.Cleanup(hub.Close)
	ref := &fixedRefresher{}
	cancelled := false
	m := New(hub.Subscribe(4), ref, func() { cancelled = true }, 5)
	return m, hub, ref, &cancelled
}

func TestTickConsumesPublishedSnapshot(t *testing.T) {
	m, hub, _, _ := newModel(t)
	hub.Publish(model.Snapshot{
		CPU: model.CPU{Global: 42, PerCore: []float64{40, 44}, Cores: 2, Top: []model.Process{{Name: "postgres", PID: 7, CPU: 12}}},
		Net: []model.Interface{{Name: "eth0", IPv4: []string{"10.0.0.5"}, RxBps: 2048}},
	})

	_, cmd := m.Update(tickMsg{})
	if cmd == nil {
		t.Fatalf("tick should reschedule itself")
	}
	if m.latest.CPU.Global != 42 {
		t.Fatalf("expected published snapshot to be shown, got %v", m.latest.CPU.Global)
	}

	view := m.View()
	for _, want := range []string{"postgres", "eth0", "10.0.0.5", "2.0 KiB/s", "smoothed"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

func TestRefreshKey(t *testing.T) {
	m, _, ref, _ := newModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil {
		t.Fatalf("refresh should return a command")
	}
	m.Update(cmd())

	if ref.calls != 1 {
		t.Fatalf("expected one on-demand call, got %d", ref.calls)
	}
	if !m.refreshed || m.latest.CPU.Global != 3 {
		t.Fatalf("refresh result not applied: %+v", m.latest.CPU)
	}
	if !strings.Contains(m.View(), "manual refresh") {
		t.Fatalf("view should flag a manual refresh")
	}
}

func TestQuitCancelsPipeline(t *testing.T) {
	m, _, _, cancelled := newModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil || !*cancelled {
		t.Fatalf("quit should cancel the pipeline and return tea.Quit")
	}
}

func TestHelpers(t *testing.T) {
	if got := gaugeBar(150, 4); got != "[████] 100.0%" {
		t.Fatalf("unexpected gauge %q", got)
	}
	if got := miniBar(-5, 3); got != "░░░" {
		t.Fatalf("unexpected mini bar %q", got)
	}
	if got := humanRate(3 * (1 << 20)); got != "3.0 MiB/s" {
		t.Fatalf("unexpected rate %q", got)
	}
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Fatalf("unexpected truncate %q", got)
	}
	if pct(1, 0) != 0 {
		t.Fatalf("pct with zero total must be 0")
	}
}
