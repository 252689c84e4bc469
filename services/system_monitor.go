package services

import (
	"context"
	"fmt"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"golang.org/x/sync/errgroup"

	"media-site-service/logging"
	"media-site-service/models"
)

const bytesPerGB = 1024 * 1024 * 1024

// MemorySample is raw memory usage in bytes.
type MemorySample struct {
	Total uint64
	Used  uint64
	Free  uint64
}

// DiskSample is raw usage of one filesystem.
type DiskSample struct {
	Total       uint64
	Used        uint64
	Free        uint64
	UsedPercent float64
	Mount       string
}

// MetricsProvider reads host metrics.
type MetricsProvider interface {
	CPUPercent(ctx context.Context) (float64, error)
	CPUInfo(ctx context.Context) (cores int, model string, err error)
	Memory(ctx context.Context) (MemorySample, error)
	Disk(ctx context.Context) (DiskSample, error)
	HostUptime(ctx context.Context) (time.Duration, error)
}

// HostMetrics is the gopsutil-backed MetricsProvider.
type HostMetrics struct{}

func (HostMetrics) CPUPercent(ctx context.Context) (float64, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, fmt.Errorf("cpu percent: no samples")
	}
	return percents[0], nil
}

func (HostMetrics) CPUInfo(ctx context.Context) (int, string, error) {
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return 0, "", err
	}
	model := "Unknown"
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 && infos[0].ModelName != "" {
		model = infos[0].ModelName
	}
	return cores, model, nil
}

func (HostMetrics) Memory(ctx context.Context) (MemorySample, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemorySample{}, err
	}
	return MemorySample{Total: vm.Total, Used: vm.Used, Free: vm.Free}, nil
}

// Disk reports the first physical partition, falling back to the root filesystem.
func (HostMetrics) Disk(ctx context.Context) (DiskSample, error) {
	mount := "/"
	if parts, err := disk.PartitionsWithContext(ctx, false); err == nil && len(parts) > 0 {
		mount = parts[0].Mountpoint
	}
	usage, err := disk.UsageWithContext(ctx, mount)
	if err != nil {
		return DiskSample{}, err
	}
	return DiskSample{
		Total:       usage.Total,
		Used:        usage.Used,
		Free:        usage.Free,
		UsedPercent: usage.UsedPercent,
		Mount:       mount,
	}, nil
}

func (HostMetrics) HostUptime(ctx context.Context) (time.Duration, error) {
	secs, err := host.UptimeWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs) * time.Second, nil
}

// SystemMonitor takes best-effort snapshots of host and process health.
// A failing probe is logged and reported as zero values; no method fails.
type SystemMonitor struct {
	provider  MetricsProvider
	startedAt time.Time
	now       func() time.Time
	log       zerolog.Logger
}

func NewSystemMonitor(provider MetricsProvider) *SystemMonitor {
	return &SystemMonitor{
		provider:  provider,
		startedAt: time.Now(),
		now:       time.Now,
		log:       logging.With("system-monitor"),
	}
}

// CPUUsage returns whole-percent CPU load.
func (m *SystemMonitor) CPUUsage(ctx context.Context) int {
	p, err := m.provider.CPUPercent(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("Error getting CPU usage")
		return 0
	}
	return int(math.Round(p))
}

func (m *SystemMonitor) MemoryUsage(ctx context.Context) models.MemoryStats {
	s, err := m.provider.Memory(ctx)
	if err != nil || s.Total == 0 {
		if err != nil {
			m.log.Error().Err(err).Msg("Error getting memory usage")
		}
		return models.MemoryStats{}
	}
	return models.MemoryStats{
		Total:        roundTenth(float64(s.Total) / bytesPerGB),
		Used:         roundTenth(float64(s.Used) / bytesPerGB),
		Free:         roundTenth(float64(s.Free) / bytesPerGB),
		UsagePercent: int(math.Round(float64(s.Used) / float64(s.Total) * 100)),
	}
}

func (m *SystemMonitor) DiskUsage(ctx context.Context) models.DiskStats {
	s, err := m.provider.Disk(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("Error getting disk usage")
		return models.DiskStats{Mount: "/"}
	}
	return models.DiskStats{
		Total:        int(math.Round(float64(s.Total) / bytesPerGB)),
		Used:         int(math.Round(float64(s.Used) / bytesPerGB)),
		Free:         int(math.Round(float64(s.Total-s.Used) / bytesPerGB)),
		UsagePercent: int(math.Round(s.UsedPercent)),
		Mount:        s.Mount,
	}
}

// Uptime is the host uptime.
func (m *SystemMonitor) Uptime(ctx context.Context) models.Uptime {
	d, err := m.provider.HostUptime(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("Error getting uptime")
	}
	u := splitUptime(d)
	u.Formatted = fmt.Sprintf("%dd %dh %dm %ds", u.Days, u.Hours, u.Minutes, int(d/time.Second)%60)
	return u
}

// ProcessUptime is the time since the monitor was created.
func (m *SystemMonitor) ProcessUptime() models.Uptime {
	d := m.now().Sub(m.startedAt)
	u := splitUptime(d)
	u.Formatted = fmt.Sprintf("%dd %dh %dm", u.Days, u.Hours, u.Minutes)
	return u
}

func splitUptime(d time.Duration) models.Uptime {
	total := int(d / time.Second)
	return models.Uptime{
		Seconds: d.Seconds(),
		Days:    total / 86400,
		Hours:   (total % 86400) / 3600,
		Minutes: (total % 3600) / 60,
	}
}

// SystemHealth probes CPU, memory and disk in parallel and adds uptime and
// host identity.
func (m *SystemMonitor) SystemHealth(ctx context.Context) models.SystemHealth {
	var (
		health models.SystemHealth
		cores  int
		model  = "Unknown"
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		health.CPU.Usage = m.CPUUsage(gctx)
		return nil
	})
	g.Go(func() error {
		c, mdl, err := m.provider.CPUInfo(gctx)
		if err != nil {
			m.log.Error().Err(err).Msg("Error getting CPU info")
			return nil
		}
		cores, model = c, mdl
		return nil
	})
	g.Go(func() error {
		health.Memory = m.MemoryUsage(gctx)
		return nil
	})
	g.Go(func() error {
		health.Disk = m.DiskUsage(gctx)
		return nil
	})
	g.Go(func() error {
		health.Uptime = m.Uptime(gctx)
		return nil
	})
	_ = g.Wait()

	if cores == 0 {
		cores = runtime.NumCPU()
	}
	health.CPU.Cores = cores
	health.CPU.Model = model
	health.ProcessUptime = m.ProcessUptime()
	health.Platform = runtime.GOOS
	if hostname, err := os.Hostname(); err == nil {
		health.Hostname = hostname
	}
	health.Timestamp = m.now().UTC()
	return health
}

// QuickStats returns CPU and memory percentages for frequent polling.
func (m *SystemMonitor) QuickStats(ctx context.Context) models.QuickStats {
	var stats models.QuickStats

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats.CPU = m.CPUUsage(gctx)
		return nil
	})
	g.Go(func() error {
		stats.MemoryPercent = m.MemoryUsage(gctx).UsagePercent
		return nil
	})
	_ = g.Wait()

	stats.Timestamp = m.now().UnixMilli()
	return stats
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
