package logsink

import "context"

// Sink is the persistence boundary FeedMonitor writes feed and transaction
// rows through. A nil-backed deployment uses Noop, so every caller
// can hold a non-nil Sink unconditionally.
type Sink interface {
	SaveFeedLog(ctx context.Context, row FeedLog) error
	SaveTransactionLog(ctx context.Context, row TransactionLog) error
	DeleteFeedLogsOlderThan(ctx context.Context, feedName, networkName string, retentionDays uint32) (int64, error)
	Close() error
}

// Noop discards every write; used when no LogSink backend is configured, or
// when opening the configured one failed at startup (spec.md §4.7 step 4:
// "failures are non-fatal, disabling persistence").
type Noop struct{}

func (Noop) SaveFeedLog(context.Context, FeedLog) error                { return nil }
func (Noop) SaveTransactionLog(context.Context, TransactionLog) error   { return nil }
func (Noop) DeleteFeedLogsOlderThan(context.Context, string, string, uint32) (int64, error) {
	return 0, nil
}
func (Noop) Close() error { return nil }
