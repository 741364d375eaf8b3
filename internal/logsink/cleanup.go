package logsink

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/ijonas/omikuji/internal/config"
	"github.com/ijonas/omikuji/internal/logger"
)

// CleanupJob reaps feed_logs rows older than each feed's data_retention_days
// on a configured cron schedule (spec.md §4.7, DatabaseCleanup).
type CleanupJob struct {
	sink  Sink
	feeds []config.Feed
	cron  *cron.Cron
}

func NewCleanupJob(sink Sink, feeds []config.Feed) *CleanupJob {
	return &CleanupJob{sink: sink, feeds: feeds, cron: cron.New(cron.WithSeconds())}
}

// Start schedules the cleanup job if cfg.Enabled; it is a no-op otherwise.
func (c *CleanupJob) Start(ctx context.Context, cfg config.DatabaseCleanup) error {
	if !cfg.Enabled {
		logger.Infof("database cleanup disabled")
		return nil
	}

	_, err := c.cron.AddFunc(cfg.Schedule, func() { c.runOnce(ctx) })
	if err != nil {
		return err
	}
	c.cron.Start()
	return nil
}

func (c *CleanupJob) Stop() {
	<-c.cron.Stop().Done()
}

func (c *CleanupJob) runOnce(ctx context.Context) {
	var totalDeleted int64
	for _, feed := range c.feeds {
		if feed.DataRetentionDays == 0 {
			continue
		}
		deleted, err := c.sink.DeleteFeedLogsOlderThan(ctx, feed.Name, feed.NetworkName, feed.DataRetentionDays)
		if err != nil {
			logger.Warnw("database cleanup failed for feed", "feed", feed.Name, "error", err)
			continue
		}
		totalDeleted += deleted
	}
	if totalDeleted > 0 {
		logger.Infof("database cleanup deleted %d old feed_logs rows", totalDeleted)
	}
}
