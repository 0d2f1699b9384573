package telemetry

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// FetchFunc retrieves one snapshot of a telemetry source.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Poller fetches a value on a fixed interval and keeps the last good one.
// Failures never replace a good value; before the first success Latest
// returns the fallback.
type Poller[T any] struct {
	name     string
	interval time.Duration
	fetch    FetchFunc[T]
	fallback T
	logger   *slog.Logger

	mu        sync.RWMutex
	value     T
	ok        bool
	updatedAt time.Time
	lastErr   error
	listeners []func(T)

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewPoller[T any](name string, interval time.Duration, fetch FetchFunc[T], fallback T, logger *slog.Logger) *Poller[T] {
	return &Poller[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		fallback: fallback,
		value:    fallback,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// OnUpdate registers fn to be called after every successful fetch.
func (p *Poller[T]) OnUpdate(fn func(T)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

func (p *Poller[T]) Start(ctx context.Context) error {
	p.wg.Add(1)
	go p.runLoop(ctx)
	p.logger.Debug("poller started", "source", p.name, "interval", p.interval)
	return nil
}

func (p *Poller[T]) Stop() error {
	p.stopOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
	return nil
}

func (p *Poller[T]) runLoop(ctx context.Context) {
	defer p.wg.Done()

	_ = p.Poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = p.Poll(ctx)
		case <-ctx.Done():
			return
		case <-p.done:
			return
		}
	}
}

// Poll fetches once. The error is returned for callers that want it and
// otherwise only logged.
func (p *Poller[T]) Poll(ctx context.Context) error {
	v, err := p.fetch(ctx)

	p.mu.Lock()
	if err != nil {
		p.lastErr = err
		p.mu.Unlock()
		p.logger.Debug("telemetry fetch failed", "source", p.name, "error", err)
		return err
	}
	p.value = v
	p.ok = true
	p.updatedAt = time.Now()
	p.lastErr = nil
	listeners := slices.Clone(p.listeners)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(v)
	}
	return nil
}

// Latest returns the last good value, or the fallback and false.
func (p *Poller[T]) Latest() (T, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value, p.ok
}

func (p *Poller[T]) UpdatedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updatedAt
}

// Err returns the error of the most recent fetch, if it failed.
func (p *Poller[T]) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}
