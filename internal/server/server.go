package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/haskel/vitals/internal/config"
	"github.com/haskel/vitals/internal/monitor"
	"github.com/haskel/vitals/internal/network"
	"github.com/haskel/vitals/internal/server/middleware"
	"github.com/haskel/vitals/internal/speedtest"
)

// SystemSource provides the latest system snapshot.
type SystemSource interface {
	GetState() *monitor.SystemState
}

// NetworkSource provides network telemetry and bandwidth history.
type NetworkSource interface {
	Ensure(ctx context.Context) error
	Snapshot() network.Snapshot
	History(timeframe string) []network.BandwidthPoint
	Quality() (network.Quality, bool)
	ClearHistory()
}

// SpeedTester runs speed tests one at a time.
type SpeedTester interface {
	Start() (speedtest.Status, bool)
	Run(ctx context.Context) (speedtest.Payload, bool)
	Status() speedtest.Status
	Last() (speedtest.Payload, bool)
}

type Server struct {
	httpServer *http.Server
	system     SystemSource
	network    NetworkSource
	speedtest  SpeedTester
	config     *config.Config
	logger     *slog.Logger
	version    string
	authConfig *middleware.AuthConfig
	startedAt  time.Time
}

func New(cfg *config.Config, system SystemSource, nw NetworkSource, st SpeedTester, logger *slog.Logger, version string) *Server {
	authConfig := &middleware.AuthConfig{
		Enabled:  cfg.Auth.Enabled,
		User:     cfg.Auth.User,
		Password: cfg.Auth.Password,
	}

	s := &Server{
		system:     system,
		network:    nw,
		speedtest:  st,
		config:     cfg,
		logger:     logger,
		version:    version,
		authConfig: authConfig,
		startedAt:  time.Now(),
	}

	mux := s.setupRoutes()

	rl := cfg.Server.RateLimit
	handler := middleware.Chain(
		mux,
		middleware.Recovery(logger),
		middleware.Logging(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Server.CORSOrigins),
		middleware.RateLimit(middleware.RateLimitConfig{
			Enabled:           rl.Enabled,
			RequestsPerSecond: rl.RequestsPerSecond,
			Burst:             rl.Burst,
			PerIP:             rl.PerIP,
		}),
		middleware.MaxBody(0),
		middleware.Auth(authConfig, "/health"),
	)

	// Blocking speed tests lift the write deadline per request.
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// ReloadConfig applies settings that can change at runtime. Host, port
// and middleware settings other than auth require a restart.
func (s *Server) ReloadConfig(cfg *config.Config) {
	s.authConfig.Update(cfg.Auth.Enabled, cfg.Auth.User, cfg.Auth.Password)

	s.logger.Info("configuration reloaded",
		"auth_enabled", cfg.Auth.Enabled,
	)
}

func (s *Server) Start() error {
	s.logger.Info("server starting",
		"addr", s.httpServer.Addr,
	)
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("server starting", "addr", l.Addr().String())
	return s.httpServer.Serve(l)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
