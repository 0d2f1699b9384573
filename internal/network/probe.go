package network

import (
	"context"
	"math"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
)

// ProbeResult summarizes TCP connect probes. Ping and Jitter are in ms,
// PacketLoss in percent.
type ProbeResult struct {
	Ping       float64
	Jitter     float64
	PacketLoss float64
}

// Prober measures latency with TCP connects to host:port targets.
type Prober struct {
	targets []string
	count   int
	timeout time.Duration
}

func NewProber(targets []string, count int, timeout time.Duration) *Prober {
	return &Prober{
		targets: targets,
		count:   max(count, 1),
		timeout: timeout,
	}
}

// Probe connects count times to every target concurrently. A failed
// connect counts as a lost packet.
func (p *Prober) Probe(ctx context.Context) ProbeResult {
	if len(p.targets) == 0 {
		return ProbeResult{}
	}

	samples := make([][]float64, len(p.targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, target := range p.targets {
		g.Go(func() error {
			samples[i] = p.probeTarget(gctx, target)
			return nil
		})
	}
	_ = g.Wait()

	var (
		all     []float64
		jitters []float64
	)
	attempts := len(p.targets) * p.count
	for _, s := range samples {
		all = append(all, s...)
		if len(s) > 1 {
			jitters = append(jitters, jitter(s))
		}
	}

	lost := attempts - len(all)
	res := ProbeResult{
		PacketLoss: round(float64(lost)/float64(attempts)*100, 1),
	}
	if len(all) > 0 {
		res.Ping = round(mean(all), 1)
	}
	if len(jitters) > 0 {
		res.Jitter = round(mean(jitters), 2)
	}
	return res
}

func (p *Prober) probeTarget(ctx context.Context, target string) []float64 {
	d := net.Dialer{Timeout: p.timeout}
	var out []float64
	for range p.count {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		conn, err := d.DialContext(ctx, "tcp", target)
		if err != nil {
			continue
		}
		out = append(out, float64(time.Since(start))/float64(time.Millisecond))
		conn.Close()
	}
	return out
}

// jitter is the mean absolute difference between consecutive samples.
func jitter(samples []float64) float64 {
	var sum float64
	for i := 1; i < len(samples); i++ {
		sum += math.Abs(samples[i] - samples[i-1])
	}
	return sum / float64(len(samples)-1)
}

func mean(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Component thresholds considered "good"; each sigmoid is centred there.
const (
	goodPing       = 50.0
	goodJitter     = 10.0
	goodPacketLoss = 0.5

	stabilitySteepness = 0.1
)

// Stability scores a connection from 0 to 100. Ping, jitter and packet
// loss contribute 40, 35 and 25 percent through a logistic curve.
func Stability(ping, jitter, packetLoss float64) float64 {
	component := func(value, good, weight float64) float64 {
		return 100 * weight / (1 + math.Exp(-stabilitySteepness*(good-value)))
	}

	score := component(ping, goodPing, 0.40) +
		component(jitter, goodJitter, 0.35) +
		component(packetLoss, goodPacketLoss, 0.25)

	return round(math.Max(0, math.Min(100, score)), 1)
}
