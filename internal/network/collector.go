package network

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/host"
	psnet "github.com/shirou/gopsutil/v4/net"

	"github.com/haskel/vitals/internal/config"
	"github.com/haskel/vitals/internal/speedtest"
)

const followUpDelay = 5 * time.Second

type counters struct {
	bytesSent   uint64
	bytesRecv   uint64
	packetsSent uint64
	packetsRecv uint64
	at          time.Time
}

// Collector refreshes network data on an interval and keeps the bandwidth history.
type Collector struct {
	interval   time.Duration
	rateWindow time.Duration
	prober     *Prober
	scanner    *Scanner
	history    *History
	logger     *slog.Logger

	refreshMu sync.Mutex
	prev      *counters

	mu          sync.RWMutex
	data        *Data
	io          *IOData
	devices     []Device
	lastUpdated time.Time
	speedTest   *speedtest.Result

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewCollector(cfg config.NetworkConfig, logger *slog.Logger) *Collector {
	return &Collector{
		interval:   time.Duration(cfg.IntervalSec) * time.Second,
		rateWindow: time.Second,
		prober:     NewProber(cfg.ProbeTargets, cfg.ProbeCount, time.Duration(cfg.ProbeTimeoutMS)*time.Millisecond),
		scanner:    NewScanner(cfg.ScanHosts, time.Duration(cfg.ProbeTimeoutMS)*time.Millisecond),
		history:    NewHistory(cfg.HistorySize),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) error {
	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("network collector started", "interval", c.interval)
	return nil
}

func (c *Collector) Stop() error {
	c.stopOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
		c.logger.Info("network collector stopped")
	})
	return nil
}

func (c *Collector) runLoop(ctx context.Context) {
	defer c.wg.Done()

	c.refreshLogged(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.refreshLogged(ctx)
		case <-ctx.Done():
			return
		case <-c.done:
			return
		}
	}
}

func (c *Collector) refreshLogged(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("network refresh failed", "error", err)
	}
}

// Ensure refreshes once if no data has been collected yet.
func (c *Collector) Ensure(ctx context.Context) error {
	c.mu.RLock()
	ready := c.data != nil
	c.mu.RUnlock()
	if ready {
		return nil
	}
	return c.Refresh(ctx)
}

// Refresh samples interface counters, probes latency, scans for
// neighbours and appends a history point.
func (c *Collector) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	cur, prev, err := c.sampleCounters(ctx)
	if err != nil {
		return err
	}

	elapsed := cur.at.Sub(prev.at).Seconds()
	sent := delta(cur.bytesSent, prev.bytesSent)
	recv := delta(cur.bytesRecv, prev.bytesRecv)
	var downMbps, upMbps float64
	if elapsed > 0 {
		downMbps = float64(recv) * 8 / elapsed / 1e6
		upMbps = float64(sent) * 8 / elapsed / 1e6
	}

	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		c.logger.Debug("interface listing failed", "error", err)
	}
	primary, active := primaryInterface(ifaces)

	hostname := ""
	if info, err := host.InfoWithContext(ctx); err == nil {
		hostname = info.Hostname
	}

	probe := c.prober.Probe(ctx)
	stability := Stability(probe.Ping, probe.Jitter, probe.PacketLoss)
	if probe.PacketLoss >= 100 {
		stability = 0
	}
	now := time.Now()

	data := &Data{
		ConnectionType: connectionType(primary.name),
		Interface:      primary.name,
		DownloadSpeed:  round(downMbps, 2),
		UploadSpeed:    round(upMbps, 2),
		Ping:           probe.Ping,
		Jitter:         probe.Jitter,
		PacketLoss:     probe.PacketLoss,
		Stability:      stability,
		IPAddress:      primary.ip,
		MACAddress:     primary.mac,
		Hostname:       hostname,
	}
	if data.IPAddress == "" {
		data.IPAddress = "127.0.0.1"
	}

	devices := c.scanner.Scan(ctx, Device{
		ID:         "this-device",
		Name:       deviceName(hostname),
		Status:     "Active",
		IPAddress:  data.IPAddress,
		MACAddress: data.MACAddress,
	})

	c.history.Add(BandwidthPoint{
		Timestamp: now,
		Download:  data.DownloadSpeed,
		Upload:    data.UploadSpeed,
	})

	c.mu.Lock()
	io := &IOData{
		UploadSpeed:      data.UploadSpeed,
		DownloadSpeed:    data.DownloadSpeed,
		UploadPackets:    delta(cur.packetsSent, prev.packetsSent),
		DownloadPackets:  delta(cur.packetsRecv, prev.packetsRecv),
		ActiveInterfaces: active,
		BytesSent:        sent,
		BytesReceived:    recv,
	}
	if c.speedTest != nil {
		io.UploadSpeed = c.speedTest.Upload
		io.DownloadSpeed = c.speedTest.Download
	}
	c.data = data
	c.io = io
	c.devices = devices
	c.lastUpdated = now
	c.mu.Unlock()

	c.logger.Debug("network data updated",
		"download_mbps", data.DownloadSpeed,
		"upload_mbps", data.UploadSpeed,
		"ping_ms", data.Ping,
		"stability", data.Stability,
	)
	return nil
}

// sampleCounters returns the current counters and the previous sample.
// Without a previous sample it waits one rate window and samples again.
func (c *Collector) sampleCounters(ctx context.Context) (counters, counters, error) {
	prev := c.prev
	if prev == nil {
		first, err := readCounters(ctx)
		if err != nil {
			return counters{}, counters{}, err
		}
		select {
		case <-time.After(c.rateWindow):
		case <-ctx.Done():
			return counters{}, counters{}, ctx.Err()
		}
		prev = &first
	}

	cur, err := readCounters(ctx)
	if err != nil {
		return counters{}, counters{}, err
	}
	c.prev = &cur
	return cur, *prev, nil
}

func readCounters(ctx context.Context) (counters, error) {
	stats, err := psnet.IOCountersWithContext(ctx, false)
	if err != nil {
		return counters{}, fmt.Errorf("read io counters: %w", err)
	}
	c := counters{at: time.Now()}
	for _, s := range stats {
		c.bytesSent += s.BytesSent
		c.bytesRecv += s.BytesRecv
		c.packetsSent += s.PacketsSent
		c.packetsRecv += s.PacketsRecv
	}
	return c, nil
}

// delta guards against counter resets.
func delta(cur, prev uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}

type ifaceInfo struct {
	name string
	ip   string
	mac  string
}

// primaryInterface returns the first up, non-loopback interface with an
// IPv4 address, and the names of all interfaces that are up.
func primaryInterface(ifaces []psnet.InterfaceStat) (ifaceInfo, []string) {
	var (
		primary ifaceInfo
		active  = []string{}
	)
	for _, iface := range ifaces {
		if !slices.Contains(iface.Flags, "up") {
			continue
		}
		active = append(active, iface.Name)
		if primary.name != "" || slices.Contains(iface.Flags, "loopback") {
			continue
		}
		for _, addr := range iface.Addrs {
			ip, _, _ := strings.Cut(addr.Addr, "/")
			if strings.Contains(ip, ".") && !strings.HasPrefix(ip, "127.") {
				primary = ifaceInfo{name: iface.Name, ip: ip, mac: iface.HardwareAddr}
				break
			}
		}
	}
	return primary, active
}

func connectionType(name string) string {
	lower := strings.ToLower(name)
	switch {
	case lower == "":
		return "Unknown"
	case strings.HasPrefix(lower, "wl"), strings.Contains(lower, "wi-fi"), strings.Contains(lower, "wifi"):
		return "Wi-Fi"
	case strings.HasPrefix(lower, "en"), strings.HasPrefix(lower, "eth"), strings.Contains(lower, "ethernet"):
		return "Ethernet"
	case strings.HasPrefix(lower, "ww"), strings.HasPrefix(lower, "rmnet"):
		return "Cellular"
	default:
		return "Other"
	}
}

func deviceName(hostname string) string {
	if hostname == "" {
		return "This Device"
	}
	return hostname
}

// RecordSpeedTest stores a speed test point and refreshes network data
// now and once more shortly after.
func (c *Collector) RecordSpeedTest(ctx context.Context, res speedtest.Result) {
	c.history.Add(BandwidthPoint{
		Timestamp:   time.Now(),
		Download:    res.Download,
		Upload:      res.Upload,
		IsSpeedTest: true,
	})

	c.mu.Lock()
	r := res
	c.speedTest = &r
	c.mu.Unlock()

	c.refreshLogged(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case <-time.After(followUpDelay):
			c.refreshLogged(context.Background())
		case <-c.done:
		}
	}()
}

func (c *Collector) Snapshot() Snapshot {
	points := c.history.Since(time.Now().Add(-TimeframeWindow(Timeframe5Min)))

	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		ConnectedDevices: slices.Clone(c.devices),
		BandwidthHistory: points,
	}
	if snap.ConnectedDevices == nil {
		snap.ConnectedDevices = []Device{}
	}
	if c.data != nil {
		d := *c.data
		snap.NetworkData = &d
	}
	if c.io != nil {
		io := *c.io
		io.ActiveInterfaces = slices.Clone(c.io.ActiveInterfaces)
		snap.IOData = &io
	}
	if !c.lastUpdated.IsZero() {
		t := c.lastUpdated
		snap.LastUpdated = &t
	}
	return snap
}

func (c *Collector) Quality() (Quality, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil {
		return Quality{}, false
	}
	return Quality{
		Ping:       c.data.Ping,
		Jitter:     c.data.Jitter,
		PacketLoss: c.data.PacketLoss,
		Stability:  c.data.Stability,
	}, true
}

func (c *Collector) History(timeframe string) []BandwidthPoint {
	return c.history.Since(time.Now().Add(-TimeframeWindow(timeframe)))
}

func (c *Collector) ClearHistory() {
	c.history.Clear()
	c.logger.Info("bandwidth history cleared")
}
