package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/haskel/vitals/internal/monitor"
	"github.com/haskel/vitals/internal/network"
	"github.com/haskel/vitals/internal/orchestrator"
)

const gib = 1024 * 1024 * 1024

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var sections []string

	sections = append(sections, m.renderTitleBar(), m.renderTabs())

	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	switch m.page {
	case PageSystem:
		sections = append(sections, m.renderSystemPage())
	case PageNetwork:
		sections = append(sections, m.renderNetworkPage())
	case PageSpeedTest:
		sections = append(sections, m.renderSpeedTestPage())
	}

	if n := Notify(m.session, m.now, m.config.NotificationWindow); n.Visible() {
		sections = append(sections, renderNotification(n))
	}

	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTitleBar() string {
	title := titleStyle.Render("VITALS DASHBOARD")

	help := "tab/1-3:page s:speed test r:refresh q:quit"
	spacing := max(m.width-lipgloss.Width(title)-lipgloss.Width(help)-2, 1)

	return title + strings.Repeat(" ", spacing) + helpStyle.Render(help)
}

func (m Model) renderTabs() string {
	tabs := make([]string, len(pageNames))
	for i, name := range pageNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if Page(i) == m.page {
			tabs[i] = activeTabStyle.Render(label)
		} else {
			tabs[i] = inactiveTabStyle.Render(label)
		}
	}
	return "  " + strings.Join(tabs, "   ")
}

func (m Model) renderSystemPage() string {
	s := m.system
	if s == nil {
		return helpStyle.Render("  Waiting for system data...")
	}

	var lines []string

	if s.Host.Hostname != "" {
		lines = append(lines, labelStyle.Render(fmt.Sprintf("  %s · %s %s · up %s",
			s.Host.Hostname, s.Host.Platform, s.Host.PlatformVer, formatUptime(s.Host.UptimeSec))))
	}

	cpuBar := renderProgressBar("CPU", s.CPU.UsagePercent, 20)
	memBar := renderProgressBar("Memory", s.Memory.UsagePercent, 20)
	lines = append(lines, fmt.Sprintf("  %s    %s", cpuBar, memBar))

	cpuInfo := fmt.Sprintf("  %s · %d cores / %d threads · load %.2f %.2f %.2f",
		s.CPU.Model, s.CPU.Physical, s.CPU.Logical, s.Load.Load1, s.Load.Load5, s.Load.Load15)
	if s.CPU.TemperatureC > 0 {
		cpuInfo += fmt.Sprintf(" · %.0f°C", s.CPU.TemperatureC)
	}
	lines = append(lines, labelStyle.Render(cpuInfo))

	for _, gpu := range s.GPUs {
		name := gpu.Name
		if len(name) > 30 {
			name = name[:30]
		}
		lines = append(lines, sectionHeaderStyle.Render(fmt.Sprintf("  GPU %d: %s", gpu.Index, name)))

		vramPercent := 0.0
		if gpu.VRAMTotalBytes > 0 {
			vramPercent = float64(gpu.VRAMUsedBytes) / float64(gpu.VRAMTotalBytes) * 100
		}
		vramInfo := fmt.Sprintf("%.1f/%.1f GB %d°C", float64(gpu.VRAMUsedBytes)/gib, float64(gpu.VRAMTotalBytes)/gib, gpu.Temperature)
		lines = append(lines, fmt.Sprintf("  %s    %s %s",
			renderProgressBar("Usage", gpu.UsagePercent, 12),
			renderProgressBar("VRAM", vramPercent, 12),
			valueStyle.Render(vramInfo)))
	}

	if len(s.Storage) > 0 {
		lines = append(lines, sectionHeaderStyle.Render("  Storage"))
		for _, path := range slices.Sorted(maps.Keys(s.Storage)) {
			disk := s.Storage[path]
			label := fmt.Sprintf("%-6.6s", path)
			info := fmt.Sprintf("(%.1f / %.1f GB)", float64(disk.UsedBytes)/gib, float64(disk.TotalBytes)/gib)
			lines = append(lines, fmt.Sprintf("  %s  %s", renderProgressBar(label, disk.UsagePercent, 20), valueStyle.Render(info)))
		}
	}

	if b := s.Battery; b != nil {
		lines = append(lines, sectionHeaderStyle.Render("  Power"))
		lines = append(lines, "  "+renderBattery(b))
	}

	if top := s.Processes.Top; len(top) > 0 {
		lines = append(lines, sectionHeaderStyle.Render("  Top Processes"))
		lines = append(lines, tableHeaderStyle.Render(fmt.Sprintf("  %7s │ %-24s │ %6s │ %9s", "PID", "Name", "CPU", "RSS")))
		for _, p := range top {
			lines = append(lines, valueStyle.Render(fmt.Sprintf("  %7d │ %-24.24s │ %5.1f%% │ %6.1f MB",
				p.PID, p.Name, p.CPUPercent, float64(p.RSSBytes)/1024/1024)))
		}
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderNetworkPage() string {
	d := m.network.NetworkData
	if !m.hasNetwork || d == nil {
		return helpStyle.Render("  Waiting for network data...")
	}

	lines := []string{
		sectionHeaderStyle.Render(fmt.Sprintf("  %s · %s", d.ConnectionType, d.Interface)),
		fmt.Sprintf("  %s %s   %s %s",
			labelStyle.Render("IP"), valueStyle.Render(d.IPAddress),
			labelStyle.Render("MAC"), valueStyle.Render(d.MACAddress)),
		fmt.Sprintf("  %s %s   %s %s",
			labelStyle.Render("↓"), valueStyle.Render(fmt.Sprintf("%.1f Mbps", d.DownloadSpeed)),
			labelStyle.Render("↑"), valueStyle.Render(fmt.Sprintf("%.1f Mbps", d.UploadSpeed))),
	}

	if q := m.quality; q != nil {
		lines = append(lines, labelStyle.Render(fmt.Sprintf("  ping %.0f ms · jitter %.1f ms · loss %.1f%% · stability %.1f%%",
			q.Ping, q.Jitter, q.PacketLoss, q.Stability)))
	}

	lines = append(lines, sectionHeaderStyle.Render("  Bandwidth (5 min)"))
	// History panels wait until enough telemetry has accumulated.
	if !m.session.DataReady {
		lines = append(lines, helpStyle.Render("  Collecting bandwidth history..."))
		return strings.Join(lines, "\n")
	}

	width := max(m.width-16, 10)
	lines = append(lines,
		fmt.Sprintf("  %s %s", labelStyle.Render("down"), sparkline(m.network.BandwidthHistory, width, func(p network.BandwidthPoint) float64 { return p.Download })),
		fmt.Sprintf("  %s %s", labelStyle.Render("up  "), sparkline(m.network.BandwidthHistory, width, func(p network.BandwidthPoint) float64 { return p.Upload })),
	)

	return strings.Join(lines, "\n")
}

func (m Model) renderSpeedTestPage() string {
	s := m.session
	var lines []string

	switch {
	case s.IsRunning:
		lines = append(lines,
			sectionHeaderStyle.Render("  "+s.CurrentPhaseLabel),
			"  "+renderProgressBar("Progress", s.ProgressPercent, 30))
	case s.State == orchestrator.StateFailed:
		lines = append(lines, errorStyle.Render("  "+s.LastError))
	case s.Result == nil:
		lines = append(lines, helpStyle.Render("  No speed test run yet. Press s to start."))
	}

	if r := s.Result; r != nil && !s.IsRunning {
		lines = append(lines,
			sectionHeaderStyle.Render("  Last Result"),
			fmt.Sprintf("  %s %s", labelStyle.Render("Download"), valueStyle.Render(fmt.Sprintf("%8.1f Mbps", r.Download))),
			fmt.Sprintf("  %s %s", labelStyle.Render("Upload  "), valueStyle.Render(fmt.Sprintf("%8.1f Mbps", r.Upload))),
			fmt.Sprintf("  %s %s", labelStyle.Render("Ping    "), valueStyle.Render(fmt.Sprintf("%8.0f ms", r.Ping))),
		)
		if srv := r.Server; srv != nil {
			lines = append(lines, labelStyle.Render(fmt.Sprintf("  %s · %s · %s · %s", srv.Name, srv.Location, srv.Sponsor, srv.Distance)))
		}
		if !s.CompletedAt.IsZero() {
			lines = append(lines, helpStyle.Render("  Completed "+s.CompletedAt.Format("15:04:05")+" · press s to run again"))
		}
	}

	return strings.Join(lines, "\n")
}

func renderNotification(n Notification) string {
	color := notificationColor(n.Kind)
	body := []string{
		notificationTitleStyle.Foreground(color).Render(n.Title),
	}
	if n.Kind == NotificationProgress {
		filled := int(min(max(n.Progress, 0), 100) / 100 * 40)
		body = append(body, lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))+
			progressBarEmptyStyle.Render(strings.Repeat("░", 40-filled)))
	}
	if n.Detail != "" {
		body = append(body, labelStyle.Render(n.Detail))
	}
	return notificationStyle.BorderForeground(color).Render(strings.Join(body, "\n"))
}

func renderProgressBar(label string, percent float64, width int) string {
	return renderBar(label, percent, width, getProgressColor(percent))
}

func renderBar(label string, percent float64, width int, color lipgloss.Color) string {
	filled := min(max(int(percent/100*float64(width)), 0), width)

	filledBar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
	emptyBar := progressBarEmptyStyle.Render(strings.Repeat("░", width-filled))

	return fmt.Sprintf("%s [%s%s] %5.1f%%", labelStyle.Render(label), filledBar, emptyBar, percent)
}

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

// sparkline scales the newest width points to the block characters.
// Speed test samples are highlighted.
func sparkline(points []network.BandwidthPoint, width int, value func(network.BandwidthPoint) float64) string {
	if len(points) == 0 {
		return helpStyle.Render("no data")
	}
	if len(points) > width {
		points = points[len(points)-width:]
	}

	peak := 0.0
	for _, p := range points {
		peak = max(peak, value(p))
	}

	var b strings.Builder
	for _, p := range points {
		idx := 0
		if peak > 0 {
			idx = int(value(p) / peak * float64(len(sparkTicks)-1))
		}
		tick := string(sparkTicks[idx])
		if p.IsSpeedTest {
			b.WriteString(speedTestMarkStyle.Render(tick))
		} else {
			b.WriteString(sparklineStyle.Render(tick))
		}
	}
	b.WriteString(valueStyle.Render(fmt.Sprintf(" %.1f", value(points[len(points)-1]))))
	return b.String()
}

func (m Model) renderFooter() string {
	if m.system == nil {
		return ""
	}

	p := m.system.Processes
	return helpStyle.Render(fmt.Sprintf(
		"  Processes: %d │ Threads: %s │ Ctx switches: %s/s │ Updated: %s",
		p.Count,
		formatNumber(int64(p.Threads)),
		formatNumber(p.ContextSwitchesPerSec),
		m.lastUpdated.Format("15:04:05"),
	))
}

func renderBattery(b *monitor.BatteryState) string {
	status := b.Status
	if b.Charging {
		status += " ⚡"
	}
	info := status
	if b.TimeLeftSec >= 0 {
		info += fmt.Sprintf(" · %dh %02dm left", b.TimeLeftSec/3600, b.TimeLeftSec%3600/60)
	}
	if b.PowerWatts > 0 {
		info += fmt.Sprintf(" · %.1f W", b.PowerWatts)
	}
	if b.HealthPercent > 0 {
		info += fmt.Sprintf(" · health %.0f%%", b.HealthPercent)
	}
	return fmt.Sprintf("%s  %s", renderBar("Battery", b.Percent, 20, getBatteryColor(b.Percent)), valueStyle.Render(info))
}

func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return s
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}

func formatUptime(sec uint64) string {
	days := sec / 86400
	hours := sec % 86400 / 3600
	minutes := sec % 3600 / 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
