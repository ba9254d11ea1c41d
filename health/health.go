// Package health performs the periodic self-check: local resource
// pressure via gopsutil plus capability pings against the external
// platforms. Findings are advisory; the orchestrator reports them and
// keeps running.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/retry"
)

const (
	// diskUsageLimit flags the work filesystem when it is this full.
	diskUsageLimit = 90.0

	// memUsageLimit flags system memory pressure.
	memUsageLimit = 95.0

	pingRetries    = 1
	pingRetryDelay = 10 * time.Second
)

// Report is the outcome of one health pass.
type Report struct {
	Healthy  bool
	Findings []string
	Took     time.Duration
}

// Checker runs the health pass. Compute and ObjectStore pings are
// skipped when the corresponding field is nil.
type Checker struct {
	WorkPath    string // filesystem path checked for disk pressure
	Compute     platform.Compute
	ObjectStore platform.ObjectStore
	Folder      string // archive folder used for the object store ping
	RetryDelay  time.Duration // delay between ping retries, default 10s
	Logger      *slog.Logger
}

// Run executes every check and returns the combined report. Individual
// check failures become findings, never errors; the pass itself always
// completes.
func (c *Checker) Run(ctx context.Context) Report {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	var findings []string

	if c.WorkPath != "" {
		if du, err := disk.UsageWithContext(ctx, c.WorkPath); err != nil {
			findings = append(findings, fmt.Sprintf("disk usage check failed: %v", err))
		} else if du.UsedPercent > diskUsageLimit {
			findings = append(findings, fmt.Sprintf("disk %.1f%% full at %s", du.UsedPercent, c.WorkPath))
		}
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		findings = append(findings, fmt.Sprintf("memory check failed: %v", err))
	} else if vm.UsedPercent > memUsageLimit {
		findings = append(findings, fmt.Sprintf("memory %.1f%% used", vm.UsedPercent))
	}

	// Load average is informational only on platforms that report it.
	if avg, err := load.AvgWithContext(ctx); err == nil {
		logger.Debug("health: load average", slog.Float64("load1", avg.Load1))
	}

	if c.Compute != nil {
		if err := c.ping(ctx, logger, "compute auth", c.Compute.CheckAuth); err != nil {
			findings = append(findings, fmt.Sprintf("compute auth ping failed: %v", err))
		}
	}
	if c.ObjectStore != nil {
		listPing := func(ctx context.Context) error {
			_, err := c.ObjectStore.List(ctx, c.Folder)
			return err
		}
		if err := c.ping(ctx, logger, "object store", listPing); err != nil {
			findings = append(findings, fmt.Sprintf("object store ping failed: %v", err))
		}
	}

	report := Report{
		Healthy:  len(findings) == 0,
		Findings: findings,
		Took:     time.Since(start),
	}
	if report.Healthy {
		logger.Info("health: all checks passed", slog.Duration("took", report.Took))
	} else {
		logger.Warn("health: checks reported findings",
			slog.Int("findings", len(findings)),
			slog.Duration("took", report.Took))
	}
	return report
}

func (c *Checker) ping(ctx context.Context, logger *slog.Logger, name string, op retry.Op) error {
	delay := c.RetryDelay
	if delay == 0 {
		delay = pingRetryDelay
	}
	return retry.Do(ctx, retry.Policy{
		Name:       "health " + name,
		MaxRetries: pingRetries,
		Strategy:   retry.NewConstant(delay),
		Logger:     logger,
	}, op)
}
