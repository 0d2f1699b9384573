package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/haskel/vitals/internal/monitor"
	"github.com/haskel/vitals/internal/network"
	"github.com/haskel/vitals/internal/speedtest"
)

type InfoResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// MessageResponse is the body of simple acknowledgements and errors.
type MessageResponse struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, InfoResponse{
		Name:    "vitals",
		Version: s.version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeCachedJSON(w, r, s.system.GetState())
}

func (s *Server) handleBattery(w http.ResponseWriter, r *http.Request) {
	b := s.system.GetState().Battery
	if b == nil {
		s.writeJSON(w, http.StatusOK, monitor.BatteryReport{Error: monitor.MessageNoBattery})
		return
	}
	s.writeJSON(w, http.StatusOK, monitor.BatteryReport{BatteryState: b})
}

func (s *Server) handlePowerConsumption(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.system.GetState().Power())
}

// handleAll returns the aggregate network snapshot, collecting it first
// if the background collector has not run yet.
func (s *Server) handleAll(w http.ResponseWriter, r *http.Request) {
	if err := s.network.Ensure(r.Context()); err != nil {
		s.logger.Warn("initial network refresh failed", "error", err)
	}
	s.writeCachedJSON(w, r, s.network.Snapshot())
}

func (s *Server) handleBandwidthHistory(w http.ResponseWriter, r *http.Request) {
	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = network.Timeframe5Min
	}

	points := s.network.History(timeframe)
	if points == nil {
		points = []network.BandwidthPoint{}
	}
	s.writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleConnectionQuality(w http.ResponseWriter, r *http.Request) {
	if err := s.network.Ensure(r.Context()); err != nil {
		s.logger.Warn("initial network refresh failed", "error", err)
	}

	q, ok := s.network.Quality()
	if !ok {
		s.writeJSON(w, http.StatusServiceUnavailable, MessageResponse{Error: "network data not available yet"})
		return
	}
	s.writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.network.ClearHistory()
	s.writeJSON(w, http.StatusOK, MessageResponse{Status: "success", Message: "History cleared"})
}

// handleSpeedTest starts a run in the background, or with ?wait=true
// runs it within the request and returns the result payload.
func (s *Server) handleSpeedTest(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("wait") == "true" {
		s.runSpeedTest(w, r)
		return
	}

	st, started := s.speedtest.Start()
	msg := speedtest.MessageStarted
	if !started {
		msg = speedtest.MessageInProgress
	}
	s.writeJSON(w, http.StatusOK, speedtest.StartResponse{Message: msg, Status: st})
}

func (s *Server) runSpeedTest(w http.ResponseWriter, r *http.Request) {
	// A measurement outlasts the server write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Debug("could not clear write deadline", "error", err)
	}

	// The run continues if the client goes away; the runner bounds it.
	p, ok := s.speedtest.Run(context.WithoutCancel(r.Context()))
	if !ok {
		s.writeJSON(w, http.StatusConflict, speedtest.Payload{Error: speedtest.MessageInProgress})
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSpeedTestStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.speedtest.Status())
}

func (s *Server) handleSpeedTestResult(w http.ResponseWriter, r *http.Request) {
	p, ok := s.speedtest.Last()
	if !ok {
		p = speedtest.Payload{Error: speedtest.MessageNoResult}
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response",
			"error", err,
			"status", status,
		)
	}
}

// writeCachedJSON writes data with a content hash ETag and answers a
// matching If-None-Match with 304.
func (s *Server) writeCachedJSON(w http.ResponseWriter, r *http.Request, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
	h := w.Header()
	h.Set("ETag", etag)
	h.Set("Cache-Control", "no-cache")

	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(append(body, '\n')); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	if strings.TrimSpace(header) == "*" {
		return true
	}
	tags := strings.Split(header, ",")
	for i := range tags {
		tags[i] = strings.TrimPrefix(strings.TrimSpace(tags[i]), "W/")
	}
	return slices.Contains(tags, etag)
}
