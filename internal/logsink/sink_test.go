package logsink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopDiscardsWrites(t *testing.T) {
	var sink Sink = Noop{}
	ctx := context.Background()

	assert.NoError(t, sink.SaveFeedLog(ctx, FeedLog{FeedName: "eth_usd"}))
	assert.NoError(t, sink.SaveTransactionLog(ctx, TransactionLog{TxHash: "0xdead"}))

	deleted, err := sink.DeleteFeedLogsOlderThan(ctx, "eth_usd", "mainnet", 30)
	assert.NoError(t, err)
	assert.Zero(t, deleted)

	assert.NoError(t, sink.Close())
}
