package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jordanlanch/prospectroute/pkg/logger"
	"github.com/robfig/cron/v3"
)

// DefaultWarmupSchedule runs the geocode warm-up daily at 3 AM
const DefaultWarmupSchedule = "0 3 * * *"

// CronManager manages scheduled jobs
type CronManager struct {
	cron     *cron.Cron
	warmup   *GeocodeWarmup
	schedule string
	timeout  time.Duration
	logger   logger.Logger
}

// NewCronManager creates a new cron manager
func NewCronManager(warmup *GeocodeWarmup, schedule string, log logger.Logger) *CronManager {
	if schedule == "" {
		schedule = DefaultWarmupSchedule
	}
	return &CronManager{
		cron:     cron.New(),
		warmup:   warmup,
		schedule: schedule,
		timeout:  30 * time.Minute,
		logger:   logger.OrDefault(log),
	}
}

// SetupJobs configures all scheduled jobs
func (cm *CronManager) SetupJobs() error {
	if _, err := cm.cron.AddFunc(cm.schedule, cm.runWarmup); err != nil {
		return fmt.Errorf("invalid warm-up schedule %q: %w", cm.schedule, err)
	}
	cm.logger.Info("cron jobs configured", "geocode_warmup", cm.schedule)
	return nil
}

func (cm *CronManager) runWarmup() {
	ctx, cancel := context.WithTimeout(context.Background(), cm.timeout)
	defer cancel()

	start := time.Now()
	stats, err := cm.warmup.Run(ctx)
	if err != nil {
		cm.logger.Error("geocode warm-up failed", "error", err, "resolved", stats.Resolved)
		return
	}
	cm.logger.Info("geocode warm-up completed",
		"addresses", stats.Addresses,
		"resolved", stats.Resolved,
		"no_result", stats.NoResult,
		"failed", stats.Failed,
		"duration", time.Since(start).String())
}

// Entries returns the number of scheduled jobs
func (cm *CronManager) Entries() int {
	return len(cm.cron.Entries())
}

// Start starts the cron scheduler
func (cm *CronManager) Start() {
	cm.logger.Info("starting cron scheduler")
	cm.cron.Start()
}

// Stop stops the scheduler and waits for a running job to finish
func (cm *CronManager) Stop() {
	cm.logger.Info("stopping cron scheduler")
	<-cm.cron.Stop().Done()
}
