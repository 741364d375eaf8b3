package logsink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	null "gopkg.in/guregu/null.v4"
	"gorm.io/datatypes"
)

func TestFeedLogTableName(t *testing.T) {
	assert.Equal(t, "feed_logs", FeedLog{}.TableName())
}

func TestTransactionLogTableName(t *testing.T) {
	assert.Equal(t, "transaction_logs", TransactionLog{}.TableName())
}

func TestFeedLogErrorStatusCodeDefaultsToNull(t *testing.T) {
	var row FeedLog
	assert.False(t, row.ErrorStatusCode.Valid)

	row.ErrorStatusCode = null.IntFrom(502)
	assert.True(t, row.ErrorStatusCode.Valid)
	assert.EqualValues(t, 502, row.ErrorStatusCode.Int64)
}

func TestTransactionLogRetryMetadataRoundTrips(t *testing.T) {
	row := TransactionLog{
		RetryMetadata: datatypes.JSONMap{
			"attempts":       2,
			"gas_price_gwei": 12.5,
		},
	}
	assert.EqualValues(t, 2, row.RetryMetadata["attempts"])
	assert.InDelta(t, 12.5, row.RetryMetadata["gas_price_gwei"], 0.0001)
}

func TestTransactionLogNullableFeeFields(t *testing.T) {
	var row TransactionLog
	assert.False(t, row.MaxFeePerGasGwei.Valid)
	assert.False(t, row.MaxPriorityFeePerGasGwei.Valid)
	assert.False(t, row.ErrorMessage.Valid)

	row.ErrorMessage = null.StringFrom("max retries exceeded")
	assert.True(t, row.ErrorMessage.Valid)
	assert.Equal(t, "max retries exceeded", row.ErrorMessage.String)
}
