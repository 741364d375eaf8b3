package network

import (
	"context"
	"errors"
	"strings"

	"github.com/ijonas/omikuji/internal/metrics"
)

// classifyRPCError buckets a raw RPC error into the timeout|connection|dns|
// other classification spec.md §4.2 requires for metrics. go-ethereum wraps
// the underlying net errors without a stable sentinel type, so classification
// matches on context deadline/cancellation and common substrings, the same
// way original_source/src/metrics classified alloy/ethers transport errors by
// their Display text.
func classifyRPCError(err error) metrics.RPCErrorType {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return metrics.RPCErrorTimeout
	}
	if errors.Is(err, context.Canceled) {
		return metrics.RPCErrorOther
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return metrics.RPCErrorTimeout
	case strings.Contains(msg, "no such host") || strings.Contains(msg, "lookup"):
		return metrics.RPCErrorDNS
	case strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "eof") ||
		strings.Contains(msg, "broken pipe"):
		return metrics.RPCErrorConnection
	default:
		return metrics.RPCErrorOther
	}
}
