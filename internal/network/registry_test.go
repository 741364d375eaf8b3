package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimHexPrefix(t *testing.T) {
	assert.Equal(t, "abc123", trimHexPrefix("0xabc123"))
	assert.Equal(t, "abc123", trimHexPrefix("abc123"))
	assert.Equal(t, "ABC123", trimHexPrefix("0XABC123"))
}

func TestRegistry_UnknownNetwork(t *testing.T) {
	r := &Registry{chains: map[string]*chain{}}

	_, err := r.Provider("nope")
	require.Error(t, err)

	_, err = r.Signer("nope")
	require.Error(t, err)

	_, err = r.WalletAddress("nope")
	require.Error(t, err)

	assert.Empty(t, r.Networks())
}
