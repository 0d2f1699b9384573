package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/haskel/vitals/internal/config"
	"github.com/haskel/vitals/internal/network"
	"github.com/haskel/vitals/internal/speedtest"
	"github.com/haskel/vitals/internal/telemetry"
)

const (
	// finalTarget is where the visual track stops before reconciliation.
	finalTarget = 99.0

	// TransportErrorMessage is shown when the backend could not be reached.
	TransportErrorMessage = "Speed test failed: could not reach the backend"
)

// Backend is the HTTP API the orchestrator drives.
type Backend interface {
	StartSpeedTest(ctx context.Context) (speedtest.StartResponse, error)
	RunSpeedTest(ctx context.Context) (speedtest.Payload, error)
	SpeedTestStatus(ctx context.Context) (speedtest.Status, error)
	SpeedTestResult(ctx context.Context) (speedtest.Payload, error)
	All(ctx context.Context) (network.Snapshot, error)
}

type Strategy string

const (
	// StrategyPoll starts the test, polls its status and fetches the result.
	StrategyPoll Strategy = "poll"
	// StrategyDirect issues one request that blocks until the result.
	StrategyDirect Strategy = "direct"
)

type Options struct {
	Strategy          Strategy
	Phases            []Phase
	PollInterval      time.Duration
	FrameInterval     time.Duration
	FinalizeDuration  time.Duration
	MaxStatusFailures int
	TelemetryInterval time.Duration
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Strategy:          Strategy(cfg.Orchestrator.Strategy),
		Phases:            PhasesFromConfig(cfg.Orchestrator.Phases),
		PollInterval:      cfg.PollInterval(),
		FrameInterval:     cfg.FrameInterval(),
		FinalizeDuration:  cfg.FinalizeDuration(),
		MaxStatusFailures: cfg.Orchestrator.MaxStatusFailures,
		TelemetryInterval: cfg.TelemetryInterval(),
	}
}

func (o Options) withDefaults() Options {
	if o.Strategy == "" {
		o.Strategy = StrategyPoll
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.FrameInterval <= 0 {
		o.FrameInterval = 16 * time.Millisecond
	}
	if o.MaxStatusFailures <= 0 {
		o.MaxStatusFailures = 1
	}
	if o.TelemetryInterval <= 0 {
		o.TelemetryInterval = 2 * time.Second
	}
	return o
}

// failure is a terminal run error; Error is the user-facing text.
type failure struct {
	message string
	cause   error
}

func (f *failure) Error() string { return f.message }
func (f *failure) Unwrap() error { return f.cause }

// Orchestrator owns the single speed test session. All mutations go
// through it; readers get copies via Snapshot or Subscribe.
type Orchestrator struct {
	backend   Backend
	opts      Options
	logger    *slog.Logger
	telemetry *telemetry.Poller[network.Snapshot]

	mu      sync.Mutex
	session Session
	subs    map[int]chan Session
	nextSub int

	wg sync.WaitGroup
}

func New(backend Backend, opts Options, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		backend: backend,
		opts:    opts.withDefaults(),
		logger:  logger,
		session: Session{State: StateIdle},
		subs:    make(map[int]chan Session),
	}

	o.telemetry = telemetry.NewPoller[network.Snapshot]("all", o.opts.TelemetryInterval, backend.All, network.Snapshot{}, logger)
	o.telemetry.OnUpdate(func(snap network.Snapshot) {
		if len(snap.BandwidthHistory) > 0 {
			o.markDataReady()
		}
	})

	return o
}

// StartTest begins a new run. It is a no-op returning false while a run
// is in progress. ctx bounds backend I/O for the whole run.
func (o *Orchestrator) StartTest(ctx context.Context) bool {
	o.mu.Lock()
	if o.session.IsRunning {
		current := o.session.ID
		o.mu.Unlock()
		o.logger.Debug("speed test already running, start ignored", "id", current)
		return false
	}

	id := uuid.NewString()
	label := ""
	if len(o.opts.Phases) > 0 {
		label = o.opts.Phases[0].Label
	}
	o.session = Session{
		ID:                id,
		State:             StateRunning,
		IsRunning:         true,
		ProgressPercent:   0,
		CurrentPhaseLabel: label,
		DataReady:         o.session.DataReady,
		StartedAt:         time.Now(),
	}
	o.publishLocked()
	o.mu.Unlock()

	o.logger.Info("speed test started", "id", id, "strategy", o.opts.Strategy)

	track := o.pollTrack(true)
	if o.opts.Strategy == StrategyDirect {
		track = o.directTrack
	}

	o.wg.Add(1)
	go o.run(ctx, id, 0, track)
	return true
}

// RecoverInFlightTest adopts a run the backend reports as running. It
// returns false, without changing the session, when no run is found or
// the status check fails.
func (o *Orchestrator) RecoverInFlightTest(ctx context.Context) bool {
	o.mu.Lock()
	running := o.session.IsRunning
	o.mu.Unlock()
	if running {
		return false
	}

	st, err := o.backend.SpeedTestStatus(ctx)
	if err != nil {
		o.logger.Debug("speed test status check failed, assuming none running", "error", err)
		return false
	}
	if !st.Running {
		return false
	}

	progress := min(max(st.Progress, 0), finalTarget)
	label := st.Phase
	if label == "" {
		_, label, _ = ProgressAt(o.opts.Phases, ElapsedFor(o.opts.Phases, progress))
	}
	id := st.ID
	if id == "" {
		id = uuid.NewString()
	}
	started := time.Now()
	if st.StartTime != nil {
		started = *st.StartTime
	}

	o.mu.Lock()
	if o.session.IsRunning {
		o.mu.Unlock()
		return false
	}
	o.session = Session{
		ID:                id,
		State:             StateRunning,
		IsRunning:         true,
		ProgressPercent:   progress,
		CurrentPhaseLabel: label,
		DataReady:         o.session.DataReady,
		StartedAt:         started,
	}
	o.publishLocked()
	o.mu.Unlock()

	o.logger.Info("adopted in-flight speed test", "id", id, "progress", progress, "phase", label)

	o.wg.Add(1)
	go o.run(ctx, id, ElapsedFor(o.opts.Phases, progress), o.pollTrack(false))
	return true
}

// run drives both tracks, joins them and reconciles the outcome.
func (o *Orchestrator) run(ctx context.Context, id string, offset time.Duration, track func(context.Context) (*speedtest.Result, error)) {
	defer o.wg.Done()

	var result *speedtest.Result
	var g errgroup.Group
	g.Go(func() error {
		o.animate(ctx, id, offset)
		return nil
	})
	g.Go(func() error {
		var err error
		result, err = track(ctx)
		return err
	})
	err := g.Wait()

	o.finalize(ctx, id, result, err)
}

// animate plays the phases from offset until the last one completes.
func (o *Orchestrator) animate(ctx context.Context, id string, offset time.Duration) {
	start := time.Now().Add(-offset)
	ticker := time.NewTicker(o.opts.FrameInterval)
	defer ticker.Stop()

	for {
		progress, label, done := ProgressAt(o.opts.Phases, time.Since(start))
		if !o.advance(id, StateRunning, progress, label) || done {
			return
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// advance raises progress for run id. It returns false once the session
// belongs to another run or has left state.
func (o *Orchestrator) advance(id string, state State, progress float64, label string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session.ID != id || o.session.State != state {
		return false
	}
	if progress > o.session.ProgressPercent {
		o.session.ProgressPercent = min(progress, 100)
		if label != "" {
			o.session.CurrentPhaseLabel = label
		}
		o.publishLocked()
	}
	return true
}

func (o *Orchestrator) finalize(ctx context.Context, id string, result *speedtest.Result, err error) {
	o.mu.Lock()
	if o.session.ID != id {
		o.mu.Unlock()
		return
	}
	o.session.State = StateFinalizing
	o.session.CurrentPhaseLabel = CompletedLabel
	o.session.ProgressPercent = max(o.session.ProgressPercent, finalTarget)
	o.publishLocked()
	o.mu.Unlock()

	if d := o.opts.FinalizeDuration; d > 0 {
		start := time.Now()
		ticker := time.NewTicker(o.opts.FrameInterval)
		for elapsed := time.Duration(0); elapsed < d; elapsed = time.Since(start) {
			o.advance(id, StateFinalizing, finalTarget+float64(elapsed)/float64(d), "")
			<-ticker.C
		}
		ticker.Stop()
	}

	o.mu.Lock()
	o.session.ProgressPercent = 100
	o.session.IsRunning = false
	o.session.CompletedAt = time.Now()
	if err != nil {
		o.session.State = StateFailed
		o.session.Result = nil
		o.session.LastError = err.Error()
	} else {
		o.session.State = StateCompleted
		o.session.Result = result
		o.session.LastError = ""
		o.session.DataReady = true
	}
	o.publishLocked()
	o.mu.Unlock()

	if err != nil {
		o.logger.Warn("speed test failed", "id", id, "error", err)
		return
	}

	o.logger.Info("speed test completed",
		"id", id,
		"download_mbps", result.Download,
		"upload_mbps", result.Upload,
		"ping_ms", result.Ping,
	)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.RefreshTelemetry(ctx); err != nil {
			o.logger.Warn("telemetry refresh after speed test failed", "error", err)
		}
	}()
}

func (o *Orchestrator) directTrack(ctx context.Context) (*speedtest.Result, error) {
	p, err := o.backend.RunSpeedTest(ctx)
	if err != nil {
		return nil, o.transportFailure("speed test request failed", err)
	}
	return resolve(p)
}

// pollTrack returns the start/poll/fetch real track. With start false it
// follows a run that is already in progress.
func (o *Orchestrator) pollTrack(start bool) func(context.Context) (*speedtest.Result, error) {
	return func(ctx context.Context) (*speedtest.Result, error) {
		if start {
			resp, err := o.backend.StartSpeedTest(ctx)
			if err != nil {
				return nil, o.transportFailure("speed test start failed", err)
			}
			o.logger.Debug("backend acknowledged speed test", "message", resp.Message, "backend_id", resp.Status.ID)
		}

		if err := o.waitUntilIdle(ctx); err != nil {
			return nil, err
		}

		p, err := o.backend.SpeedTestResult(ctx)
		if err != nil {
			return nil, o.transportFailure("speed test result fetch failed", err)
		}
		return resolve(p)
	}
}

// waitUntilIdle polls the status endpoint until the backend reports no
// running test. Consecutive failures up to MaxStatusFailures are retried
// on the next interval.
func (o *Orchestrator) waitUntilIdle(ctx context.Context) error {
	ticker := time.NewTicker(o.opts.PollInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return o.transportFailure("speed test polling cancelled", ctx.Err())
		}

		st, err := o.backend.SpeedTestStatus(ctx)
		if err != nil {
			failures++
			o.logger.Warn("speed test status poll failed", "error", err, "failures", failures)
			if failures >= o.opts.MaxStatusFailures {
				return o.transportFailure("speed test status polling failed", err)
			}
			continue
		}
		failures = 0

		if !st.Running {
			return nil
		}
	}
}

func (o *Orchestrator) transportFailure(msg string, err error) error {
	o.logger.Error(msg, "error", err)
	return &failure{message: TransportErrorMessage, cause: fmt.Errorf("%s: %w", msg, err)}
}

// resolve maps a backend payload to a result or an application failure.
func resolve(p speedtest.Payload) (*speedtest.Result, error) {
	if p.Failed() {
		return nil, &failure{message: p.Error, cause: errors.New(p.Error)}
	}
	r := p.Result
	return &r, nil
}

func (o *Orchestrator) markDataReady() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session.DataReady {
		return
	}
	o.session.DataReady = true
	o.publishLocked()
}

// Snapshot returns a copy of the current session.
func (o *Orchestrator) Snapshot() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.clone()
}

// Subscribe returns a channel that always holds the latest session. The
// current session is delivered immediately. Call cancel to unsubscribe.
func (o *Orchestrator) Subscribe() (<-chan Session, func()) {
	ch := make(chan Session, 1)

	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch
	ch <- o.session.clone()
	o.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

func (o *Orchestrator) publishLocked() {
	s := o.session.clone()
	for _, ch := range o.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

// Wait blocks until in-flight runs and their follow-up work finish.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// RefreshTelemetry fetches the aggregate snapshot once.
func (o *Orchestrator) RefreshTelemetry(ctx context.Context) error {
	return o.telemetry.Poll(ctx)
}

// Telemetry returns the last aggregate snapshot and whether one was fetched.
func (o *Orchestrator) Telemetry() (network.Snapshot, bool) {
	return o.telemetry.Latest()
}

// StartTelemetry polls the aggregate snapshot in the background.
func (o *Orchestrator) StartTelemetry(ctx context.Context) error {
	return o.telemetry.Start(ctx)
}

func (o *Orchestrator) Close() error {
	return o.telemetry.Stop()
}
