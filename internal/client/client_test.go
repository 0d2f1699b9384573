package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/haskel/vitals/internal/monitor"
	"github.com/haskel/vitals/internal/speedtest"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestClient_SpeedTestEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /speedtest", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("wait") == "true" {
			writeJSON(w, http.StatusOK, speedtest.Payload{Result: speedtest.Result{Download: 55.2, Upload: 12.1, Ping: 14}})
			return
		}
		writeJSON(w, http.StatusOK, speedtest.StartResponse{
			Message: speedtest.MessageStarted,
			Status:  speedtest.Status{ID: "abc", Running: true, Phase: speedtest.PhaseStarting},
		})
	})
	mux.HandleFunc("GET /speedtest/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"running": true, "progress": 42, "phase": "Testing download speed..."})
	})
	mux.HandleFunc("GET /speedtest/result", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"error": "server unreachable", "download": 0, "upload": 0, "ping": 0})
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := New(Options{BaseURL: ts.URL})
	ctx := context.Background()

	start, err := c.StartSpeedTest(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if start.Message != speedtest.MessageStarted || !start.Status.Running {
		t.Errorf("unexpected start response %+v", start)
	}

	st, err := c.SpeedTestStatus(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Running || st.Progress != 42 || st.Phase != "Testing download speed..." {
		t.Errorf("unexpected status %+v", st)
	}

	res, err := c.SpeedTestResult(ctx)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if !res.Failed() || res.Error != "server unreachable" {
		t.Errorf("expected application error, got %+v", res)
	}

	p, err := c.RunSpeedTest(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if p.Download != 55.2 || p.Failed() {
		t.Errorf("unexpected payload %+v", p)
	}
}

func TestClient_RunSpeedTestConflict(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, speedtest.Payload{Error: speedtest.MessageInProgress})
	}))
	defer ts.Close()

	p, err := New(Options{BaseURL: ts.URL}).RunSpeedTest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Error != speedtest.MessageInProgress {
		t.Errorf("expected in-progress payload, got %+v", p)
	}
}

func TestClient_StatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := New(Options{BaseURL: ts.URL}).All(context.Background())

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusInternalServerError || se.Body != "boom" {
		t.Errorf("unexpected status error %+v", se)
	}
}

func TestClient_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	err := New(Options{BaseURL: url}).Health(context.Background())
	if err == nil {
		t.Fatal("expected error for closed server")
	}
}

func TestClient_BasicAuth(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != "admin" || p != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))
	defer ts.Close()

	if err := New(Options{BaseURL: ts.URL, User: "admin", Password: "secret"}).Health(context.Background()); err != nil {
		t.Errorf("expected authorized request: %v", err)
	}
	if err := New(Options{BaseURL: ts.URL}).Health(context.Background()); err == nil {
		t.Error("expected unauthorized error")
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	c := New(Options{BaseURL: ts.URL, Timeout: 50 * time.Millisecond})
	if _, err := c.SpeedTestStatus(context.Background()); err == nil {
		t.Error("expected timeout error")
	}
}

func TestClient_BandwidthHistory(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("timeframe") != "1hour" {
			http.Error(w, "bad timeframe", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, []map[string]any{
			{"timestamp": time.Now(), "download": 10.5, "upload": 2, "isSpeedTest": true},
		})
	}))
	defer ts.Close()

	points, err := New(Options{BaseURL: ts.URL}).BandwidthHistory(context.Background(), "1hour")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(points) != 1 || !points[0].IsSpeedTest || points[0].Download != 10.5 {
		t.Errorf("unexpected points %+v", points)
	}
}

func TestClient_Battery(t *testing.T) {
	present := true
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/battery":
			if !present {
				writeJSON(w, http.StatusOK, map[string]any{"error": monitor.MessageNoBattery})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"percent": 72, "status": "Charging", "charging": true, "time_left_sec": 900})
		case "/power_consumption":
			writeJSON(w, http.StatusOK, map[string]any{"cpu_percent": 12.5, "battery_watts": 6, "on_battery": true})
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	c := New(Options{BaseURL: ts.URL})

	b, err := c.Battery(context.Background())
	if err != nil || b == nil {
		t.Fatalf("battery: %+v %v", b, err)
	}
	if b.Percent != 72 || !b.Charging || b.TimeLeftSec != 900 {
		t.Errorf("unexpected battery %+v", b)
	}

	present = false
	if b, err := c.Battery(context.Background()); err != nil || b != nil {
		t.Errorf("expected no battery, got %+v %v", b, err)
	}

	p, err := c.PowerConsumption(context.Background())
	if err != nil {
		t.Fatalf("power: %v", err)
	}
	if p.CPUPercent != 12.5 || p.BatteryWatts != 6 || !p.OnBattery {
		t.Errorf("unexpected power %+v", p)
	}
}
