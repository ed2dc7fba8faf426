package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Dicklesworthstone/sysmoni/internal/broadcast"
	"github.com/Dicklesworthstone/sysmoni/internal/logger"
	"github.com/Dicklesworthstone/sysmoni/internal/model"
	"github.com/Dicklesworthstone/sysmoni/internal/observability"
)

type staticSource struct{ snap model.Snapshot }

func (s staticSource) OnDemand() model.Snapshot { return s.snap }

func newTestServer(t *testing.T) (*httptest.Server, *broadcast.Hub) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := observability.New(reg)
	hub := broadcast.NewHub(logger.Nop(), m)

	src := staticSource{snap: model.Snapshot{
		CPU: model.CPU{Global: 12.5, Cores: 4},
		Net: []model.Interface{{Name: "eth0"}},
	}}
	srv := New(":0", hub, src, reg, logger.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
	})
	return ts, hub
}

func TestSnapshotEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/snapshot")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	disk := raw["disk"].(map[string]any)
	if _, ok := disk["read_bps"]; ok {
		t.Fatalf("on-demand snapshot must omit disk rates: %v", disk)
	}
	cpu := raw["cpu"].(map[string]any)
	if cpu["global"].(float64) != 12.5 {
		t.Fatalf("unexpected cpu payload: %v", cpu)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Fatalf("unexpected health body %q", body)
	}

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "sysmoni_windows_emitted_total") {
		t.Fatalf("metrics output missing pipeline counters")
	}
}

func TestWebSocketStreamsPublishedSnapshots(t *testing.T) {
	ts, hub := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("listener never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish(model.Snapshot{CPU: model.CPU{Global: 64}})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got model.Snapshot
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.CPU.Global != 64 {
		t.Fatalf("unexpected snapshot %+v", got.CPU)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("listener not detached after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
