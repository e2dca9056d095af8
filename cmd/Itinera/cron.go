package main

import (
	"Itinera/internal/biz"
	"Itinera/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// NewStorageProbeCron schedules the storage probe. The schedule has six fields
// (seconds first); the default runs every 30 seconds. Returns nil when the
// schedule is empty or invalid.
func NewStorageProbeCron(probe *biz.StorageProbe, rc *conf.Resilience, logger log.Logger) *cron.Cron {
	helper := log.NewHelper(log.With(logger, "module", "cron/storage_probe"))

	schedule := ""
	if p := rc.GetStorageProbe(); p != nil {
		schedule = p.Cron
	}
	if schedule == "" {
		helper.Info("storage probe cron disabled")
		return nil
	}

	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, probe.Run); err != nil {
		helper.Errorw("msg", "failed to register storage probe cron job", "schedule", schedule, "error", err)
		return nil
	}

	helper.Infow("msg", "storage probe cron job registered", "schedule", schedule)
	return c
}
