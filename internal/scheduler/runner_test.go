package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ijonas/omikuji/internal/config"
	"github.com/ijonas/omikuji/internal/network"
)

func validTask() config.ScheduledTask {
	return config.ScheduledTask{
		Name:     "heartbeat",
		Network:  "testnet",
		Schedule: "0 0 * * * *",
		TargetFunction: config.TargetFunction{
			ContractAddress: "0x1234567890123456789012345678901234567890",
			Function:        "execute()",
		},
	}
}

func TestValidate_AcceptsValidTask(t *testing.T) {
	err := Validate([]config.ScheduledTask{validTask()}, map[string]bool{"testnet": true})
	assert.NoError(t, err)
}

func TestValidate_RejectsInvalidCron(t *testing.T) {
	task := validTask()
	task.Schedule = "not a cron expression"
	err := Validate([]config.ScheduledTask{task}, map[string]bool{"testnet": true})
	assert.Error(t, err)
}

func TestValidate_RejectsUnknownNetwork(t *testing.T) {
	task := validTask()
	task.Network = "nonexistent"
	err := Validate([]config.ScheduledTask{task}, map[string]bool{"testnet": true})
	assert.Error(t, err)
}

func TestValidate_RejectsInvalidTargetAddress(t *testing.T) {
	task := validTask()
	task.TargetFunction.ContractAddress = "not-an-address"
	err := Validate([]config.ScheduledTask{task}, map[string]bool{"testnet": true})
	assert.Error(t, err)
}

func TestValidate_RejectsInvalidCheckConditionAddress(t *testing.T) {
	task := validTask()
	task.CheckCondition = &config.CheckCondition{ContractAddress: "bad", Property: "isReady"}
	err := Validate([]config.ScheduledTask{task}, map[string]bool{"testnet": true})
	assert.Error(t, err)
}

// jsonRPCStub answers eth_blockNumber (the registry's startup probe) and
// eth_call with a canned bool result, enough to drive evaluateCondition
// through a real *ethclient.Client without a live chain.
func jsonRPCStub(t *testing.T, callResultBool bool) *httptest.Server {
	t.Helper()
	word := "0000000000000000000000000000000000000000000000000000000000000000"
	if callResultBool {
		word = "0000000000000000000000000000000000000000000000000000000000000001"
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.Unmarshal(body, &req))

		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "eth_blockNumber":
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":"0x1"}`, req.ID)
		case "eth_call":
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":"0x%s"}`, req.ID, word)
		default:
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":null}`, req.ID)
		}
	}))
}

func scheduledTaskOutcomeCount(t *testing.T, task, network, outcome string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "omikuji_scheduled_task_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["task"] == task && labels["network"] == network && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func buildTestRegistry(t *testing.T, srv *httptest.Server) *network.Registry {
	t.Helper()
	registry, err := network.Build(context.Background(), []config.Network{
		{Name: "testnet", RPCURL: srv.URL},
	}, nil, "")
	require.NoError(t, err)
	t.Cleanup(registry.Close)
	return registry
}

// TestRunJob_ConditionNotMet_RecordsMetric exercises the scenario where
// check_condition evaluates false: runJob must skip invokeTarget and record
// a "condition_not_met" outcome, per spec.md §8 scenario 6.
func TestRunJob_ConditionNotMet_RecordsMetric(t *testing.T) {
	srv := jsonRPCStub(t, false)
	defer srv.Close()
	registry := buildTestRegistry(t, srv)

	task := validTask()
	task.Name = "condition-not-met-test"
	task.CheckCondition = &config.CheckCondition{
		ContractAddress: "0x1234567890123456789012345678901234567890",
		Property:        "isReady",
		ExpectedValue:   true,
	}

	before := scheduledTaskOutcomeCount(t, task.Name, task.Network, "condition_not_met")

	runner := NewRunner(registry, nil)
	runner.runJob(context.Background(), task)

	after := scheduledTaskOutcomeCount(t, task.Name, task.Network, "condition_not_met")
	assert.Equal(t, before+1, after)
}

// TestRunJob_ConditionError_RecordsMetric exercises the evaluateCondition
// error path (e.g. a malformed expected_value), which should record
// "condition_error" rather than silently dropping the task run.
func TestRunJob_ConditionError_RecordsMetric(t *testing.T) {
	srv := jsonRPCStub(t, true)
	defer srv.Close()
	registry := buildTestRegistry(t, srv)

	task := validTask()
	task.Name = "condition-error-test"
	task.CheckCondition = &config.CheckCondition{
		ContractAddress: "0x1234567890123456789012345678901234567890",
		Property:        "isReady",
		ExpectedValue:   "not-a-bool",
	}

	before := scheduledTaskOutcomeCount(t, task.Name, task.Network, "condition_error")

	runner := NewRunner(registry, nil)
	runner.runJob(context.Background(), task)

	after := scheduledTaskOutcomeCount(t, task.Name, task.Network, "condition_error")
	assert.Equal(t, before+1, after)
}
