package network

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ijonas/omikuji/internal/metrics"
)

func TestClassifyRPCError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want metrics.RPCErrorType
	}{
		{"deadline exceeded", context.DeadlineExceeded, metrics.RPCErrorTimeout},
		{"timeout substring", errors.New("dial tcp: i/o timeout"), metrics.RPCErrorTimeout},
		{"dns failure", errors.New("lookup rpc.example.com: no such host"), metrics.RPCErrorDNS},
		{"connection refused", errors.New("dial tcp 127.0.0.1:8545: connection refused"), metrics.RPCErrorConnection},
		{"unclassified", errors.New("execution reverted"), metrics.RPCErrorOther},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyRPCError(tc.err))
		})
	}
}

func TestClassifyRPCError_Nil(t *testing.T) {
	assert.Equal(t, metrics.RPCErrorType(""), classifyRPCError(nil))
}
