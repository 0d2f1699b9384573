package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Aggregator samples all monitors on an interval and keeps the latest
// combined SystemState.
type Aggregator struct {
	monitors []Monitor
	state    *SystemState
	interval time.Duration
	mu       sync.RWMutex
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *slog.Logger
}

func NewAggregator(monitors []Monitor, interval time.Duration, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		monitors: monitors,
		state:    &SystemState{GPUs: []GPUState{}, Storage: StorageState{}},
		interval: interval,
		done:     make(chan struct{}),
		logger:   logger,
	}
}

func (a *Aggregator) Start(ctx context.Context) error {
	a.collect(ctx)

	a.wg.Add(1)
	go a.runLoop(ctx)

	a.logger.Info("aggregator started", "interval", a.interval, "monitors", len(a.monitors))
	return nil
}

func (a *Aggregator) Stop() error {
	a.stopOnce.Do(func() {
		close(a.done)
		a.wg.Wait()
		a.logger.Info("aggregator stopped")
	})
	return nil
}

func (a *Aggregator) GetState() *SystemState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.Clone()
}

func (a *Aggregator) GetStateJSON() ([]byte, error) {
	return json.Marshal(a.GetState())
}

func (a *Aggregator) runLoop(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.collect(ctx)
		case <-ctx.Done():
			return
		case <-a.done:
			return
		}
	}
}

// collect builds a new state from every monitor. A failing monitor
// leaves its section zeroed; the others are still published.
func (a *Aggregator) collect(ctx context.Context) {
	state := &SystemState{
		Timestamp: time.Now(),
		GPUs:      []GPUState{},
		Storage:   make(StorageState),
	}

	for _, m := range a.monitors {
		if err := m.Collect(ctx, state); err != nil {
			a.logger.Warn("monitor collection failed",
				"monitor", m.Name(),
				"error", err,
			)
		}
	}

	a.mu.Lock()
	a.state = state
	a.mu.Unlock()
}
