package speedtest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haskel/vitals/internal/config"
)

// ResultHandler is called after a successful measurement, while the run
// still reports itself as running.
type ResultHandler func(ctx context.Context, res Result)

// Runner executes at most one speed test at a time and keeps the status
// of the current run and the payload of the last one.
type Runner struct {
	measurer   Measurer
	cfg        config.SpeedTestConfig
	staleAfter time.Duration
	logger     *slog.Logger
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	status   Status
	running  bool
	last     *Payload
	handlers []ResultHandler
}

func NewRunner(m Measurer, cfg config.SpeedTestConfig, logger *slog.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		measurer:   m,
		cfg:        cfg,
		staleAfter: time.Duration(cfg.StaleAfterSec) * time.Second,
		logger:     logger,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (r *Runner) OnResult(h ResultHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, h)
}

// Start launches a run in the background. It returns false, with the
// current status, when a run is already in progress.
func (r *Runner) Start() (Status, bool) {
	id, ok := r.begin()
	if !ok {
		return r.Status(), false
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.execute(r.ctx, id)
	}()

	return r.Status(), true
}

// Run performs a run synchronously. It returns false when a run is
// already in progress.
func (r *Runner) Run(ctx context.Context) (Payload, bool) {
	id, ok := r.begin()
	if !ok {
		return Payload{}, false
	}
	return r.execute(ctx, id), true
}

// Status reports the current run. A run older than the stale limit is
// reported as not running.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.status
	if r.staleLocked() {
		return Status{}
	}
	if st.StartTime != nil {
		t := *st.StartTime
		st.StartTime = &t
	}
	return st
}

// Last returns the payload of the most recent finished run. While a run
// is in progress it returns an error payload instead of the previous
// run's numbers.
func (r *Runner) Last() (Payload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		if r.staleLocked() {
			return Payload{Error: MessageTimedOut}, true
		}
		return Payload{Error: MessageInProgress}, true
	}
	if r.last == nil {
		return Payload{}, false
	}
	return *r.last, true
}

func (r *Runner) staleLocked() bool {
	st := r.status
	return st.Running && st.StartTime != nil && r.now().Sub(*st.StartTime) > r.staleAfter
}

// Close cancels background runs and waits for them to finish.
func (r *Runner) Close() {
	r.cancel()
	r.wg.Wait()
}

func (r *Runner) begin() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return "", false
	}

	id := uuid.NewString()
	start := r.now()
	r.running = true
	r.status = Status{
		ID:        id,
		Running:   true,
		Progress:  0,
		Phase:     PhaseStarting,
		StartTime: &start,
	}
	return id, true
}

func (r *Runner) setPhase(id string, progress float64, phase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.ID != id {
		return
	}
	r.status.Progress = progress
	r.status.Phase = phase
}

func (r *Runner) execute(ctx context.Context, id string) Payload {
	ctx, cancel := context.WithTimeout(ctx, r.staleAfter)
	defer cancel()

	r.logger.Info("speed test started", "id", id)

	res, err := r.measure(ctx, id)
	if err != nil {
		r.logger.Error("speed test failed", "id", id, "error", err)
		return r.finish(id, Payload{Error: fmt.Sprintf("Speed test failed: %v", err)})
	}

	r.setPhase(id, 90, PhaseUpdating)
	r.mu.Lock()
	handlers := append([]ResultHandler(nil), r.handlers...)
	r.mu.Unlock()
	for _, h := range handlers {
		h(ctx, res)
	}

	r.logger.Info("speed test completed",
		"id", id,
		"download_mbps", res.Download,
		"upload_mbps", res.Upload,
		"ping_ms", res.Ping,
	)
	return r.finish(id, Payload{Result: res})
}

func (r *Runner) measure(ctx context.Context, id string) (Result, error) {
	r.setPhase(id, 5, PhaseServer)
	srv, latency, err := r.measurer.BestServer(ctx)
	if err != nil {
		return Result{}, err
	}

	r.setPhase(id, 20, PhaseDownload)
	download, err := r.measurer.Download(ctx, srv)
	if err != nil {
		return Result{}, err
	}

	r.setPhase(id, 50, PhaseUpload)
	upload, err := r.measurer.Upload(ctx, srv)
	if err != nil {
		return Result{}, err
	}

	if download < 0 || upload < 0 || latency < 0 {
		return Result{}, fmt.Errorf("invalid negative speed values")
	}

	download *= r.cfg.DownloadOverhead
	upload *= r.cfg.UploadOverhead

	if r.cfg.MaxMbps > 0 && (download > r.cfg.MaxMbps || upload > r.cfg.MaxMbps) {
		return Result{}, fmt.Errorf("unrealistic speed values detected")
	}
	if download < r.cfg.MinMbps || upload < r.cfg.MinMbps {
		return Result{}, fmt.Errorf("speed too low to be reliable")
	}

	pingMS := float64(latency) / float64(time.Millisecond)
	return Result{
		Download: round(download, 1),
		Upload:   round(upload, 1),
		Ping:     round(pingMS, 0),
		Server:   describe(srv, pingMS),
	}, nil
}

func (r *Runner) finish(id string, p Payload) Payload {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last = &p
	r.running = false
	if p.Failed() {
		r.status = Status{}
	} else {
		r.status = Status{ID: id, Progress: 100, Phase: PhaseCompleted}
	}
	return p
}

func describe(srv config.SpeedTestServer, latencyMS float64) *ServerInfo {
	info := &ServerInfo{
		Name:     srv.Name,
		Location: srv.Location,
		Sponsor:  srv.Sponsor,
		Latency:  round(latencyMS, 2),
	}
	if srv.DistanceKM > 0 {
		info.Distance = fmt.Sprintf("%.1f km", srv.DistanceKM)
	}
	return info
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
