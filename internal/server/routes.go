package server

import (
	"net/http"
	"net/http/pprof"

	"github.com/haskel/vitals/internal/server/middleware"
)

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleInfo)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /battery", s.handleBattery)
	mux.HandleFunc("GET /power_consumption", s.handlePowerConsumption)

	mux.HandleFunc("GET /all", s.handleAll)
	mux.HandleFunc("GET /bandwidth-history", s.handleBandwidthHistory)
	mux.HandleFunc("GET /connection-quality", s.handleConnectionQuality)
	mux.HandleFunc("POST /history/clear", s.handleClearHistory)

	mux.HandleFunc("GET /speedtest", s.handleSpeedTest)
	mux.HandleFunc("GET /speedtest/status", s.handleSpeedTestStatus)
	mux.HandleFunc("GET /speedtest/result", s.handleSpeedTestResult)

	s.setupDebugRoutes(mux)

	return mux
}

// setupDebugRoutes configures debug and profiling endpoints behind their
// own authentication.
func (s *Server) setupDebugRoutes(mux *http.ServeMux) {
	profilingEnabled := s.config.Server.Profiling.Enabled
	debugEnabled := s.config.Debug.Enabled

	if !profilingEnabled && !debugEnabled {
		return
	}

	debugAuth := middleware.DebugAuth(&middleware.DebugAuthConfig{
		Token:              s.config.Debug.Auth.Token,
		FallbackAuthConfig: s.authConfig,
	})

	if profilingEnabled {
		s.logger.Info("profiling endpoints enabled at /debug/pprof/ (auth required)")
		mux.Handle("GET /debug/pprof/{$}", debugAuth(http.HandlerFunc(pprof.Index)))
		mux.Handle("GET /debug/pprof/cmdline", debugAuth(http.HandlerFunc(pprof.Cmdline)))
		mux.Handle("GET /debug/pprof/profile", debugAuth(http.HandlerFunc(pprof.Profile)))
		mux.Handle("GET /debug/pprof/symbol", debugAuth(http.HandlerFunc(pprof.Symbol)))
		mux.Handle("POST /debug/pprof/symbol", debugAuth(http.HandlerFunc(pprof.Symbol)))
		mux.Handle("GET /debug/pprof/trace", debugAuth(http.HandlerFunc(pprof.Trace)))
		mux.Handle("GET /debug/pprof/{name}", debugAuth(http.HandlerFunc(pprof.Index)))
	}

	if debugEnabled {
		s.logger.Warn("debug mode enabled - debug endpoints require authentication")
		mux.Handle("GET /debug/status", debugAuth(http.HandlerFunc(s.handleDebugStatus)))
	}
}
