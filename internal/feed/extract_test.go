package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFloat_NestedPath(t *testing.T) {
	json := []byte(`{"data":{"price":2557.96}}`)
	v, err := ExtractFloat(json, "data.price")
	require.NoError(t, err)
	assert.Equal(t, 2557.96, v)
}

func TestExtractFloat_NumericString(t *testing.T) {
	json := []byte(`{"price":"123.45"}`)
	v, err := ExtractFloat(json, "price")
	require.NoError(t, err)
	assert.Equal(t, 123.45, v)
}

func TestExtractFloat_MissingPath(t *testing.T) {
	json := []byte(`{"data":{}}`)
	_, err := ExtractFloat(json, "data.price")
	assert.Error(t, err)
}

func TestExtractFloat_NonNumericLeaf(t *testing.T) {
	json := []byte(`{"price":"not-a-number"}`)
	_, err := ExtractFloat(json, "price")
	assert.Error(t, err)
}

func TestExtractTimestamp_NoPathUsesNow(t *testing.T) {
	ts, err := ExtractTimestamp([]byte(`{}`), "")
	require.NoError(t, err)
	assert.Positive(t, ts)
}

func TestExtractTimestamp_UnixSeconds(t *testing.T) {
	json := []byte(`{"data":{"timestamp":1700000000}}`)
	ts, err := ExtractTimestamp(json, "data.timestamp")
	require.NoError(t, err)
	assert.Equal(t, uint64(1700000000), ts)
}

func TestExtractTimestamp_ISOString(t *testing.T) {
	json := []byte(`{"timestamp":"2023-11-14T22:13:20Z"}`)
	ts, err := ExtractTimestamp(json, "timestamp")
	require.NoError(t, err)
	assert.Equal(t, uint64(1700000000), ts)
}

func TestExtractFeedData(t *testing.T) {
	json := []byte(`{"data":{"price":2500.5,"timestamp":1700000000}}`)
	value, timestamp, err := ExtractFeedData(json, "data.price", "data.timestamp")
	require.NoError(t, err)
	assert.Equal(t, 2500.5, value)
	assert.Equal(t, uint64(1700000000), timestamp)
}
