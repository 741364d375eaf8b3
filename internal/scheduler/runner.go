// Package scheduler runs the cron-scheduled on-chain calls of spec.md §4.6:
// an optional on-chain precondition gates an arbitrary contract function
// call, each on its own 6-field cron schedule.
package scheduler

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/robfig/cron/v3"
	"go.uber.org/atomic"

	"github.com/pkg/errors"

	"github.com/ijonas/omikuji/internal/config"
	"github.com/ijonas/omikuji/internal/contracts"
	"github.com/ijonas/omikuji/internal/gasoracle"
	"github.com/ijonas/omikuji/internal/logger"
	"github.com/ijonas/omikuji/internal/metrics"
	"github.com/ijonas/omikuji/internal/network"
)

// Runner validates and schedules every configured task.
type Runner struct {
	registry *network.Registry
	oracle   *gasoracle.Oracle
	cron     *cron.Cron

	// activeJobs counts jobs currently executing, across every task. Per
	// spec.md §5 "jobs run concurrently across tasks", there is no per-task
	// serialization to guard, so a lock-free counter is enough to expose how
	// much concurrent work the scheduler is doing at any moment.
	activeJobs atomic.Int64
}

func NewRunner(registry *network.Registry, oracle *gasoracle.Oracle) *Runner {
	return &Runner{
		registry: registry,
		oracle:   oracle,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// ActiveJobs returns the number of scheduled-task jobs currently executing.
func (r *Runner) ActiveJobs() int64 {
	return r.activeJobs.Load()
}

// Validate checks every task's cron expression, address hex-validity, and
// network reference before any job is scheduled. Per spec.md §4.6, a single
// invalid task aborts startup.
func Validate(tasks []config.ScheduledTask, knownNetworks map[string]bool) error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for _, task := range tasks {
		if _, err := parser.Parse(task.Schedule); err != nil {
			return errors.Wrapf(err, "task %q: invalid cron expression %q", task.Name, task.Schedule)
		}
		if !knownNetworks[task.Network] {
			return errors.Errorf("task %q: unknown network %q", task.Name, task.Network)
		}
		if !common.IsHexAddress(task.TargetFunction.ContractAddress) {
			return errors.Errorf("task %q: invalid target contract address %q", task.Name, task.TargetFunction.ContractAddress)
		}
		if task.CheckCondition != nil && !common.IsHexAddress(task.CheckCondition.ContractAddress) {
			return errors.Errorf("task %q: invalid check_condition contract address %q", task.Name, task.CheckCondition.ContractAddress)
		}
	}
	return nil
}

// Start schedules every task and begins running the cron loop.
func (r *Runner) Start(ctx context.Context, tasks []config.ScheduledTask) error {
	for _, task := range tasks {
		task := task
		_, err := r.cron.AddFunc(task.Schedule, func() { r.runJob(ctx, task) })
		if err != nil {
			return errors.Wrapf(err, "scheduling task %q", task.Name)
		}
	}
	r.cron.Start()
	return nil
}

// Stop aborts in-flight jobs cooperatively: it waits for the jobs already
// running to return before the cron context is considered stopped.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Runner) runJob(ctx context.Context, task config.ScheduledTask) {
	r.activeJobs.Inc()
	defer r.activeJobs.Dec()

	if task.CheckCondition != nil {
		proceed, err := r.evaluateCondition(ctx, task)
		if err != nil {
			logger.Errorf("scheduled task %s: check_condition failed: %v", task.Name, err)
			metrics.RecordScheduledTaskOutcome(task.Name, task.Network, "condition_error")
			return
		}
		if !proceed {
			logger.Debugf("scheduled task %s: check_condition not met, skipping", task.Name)
			metrics.RecordScheduledTaskOutcome(task.Name, task.Network, "condition_not_met")
			return
		}
	}

	if err := r.invokeTarget(ctx, task); err != nil {
		logger.Errorf("scheduled task %s: target function call failed: %v", task.Name, err)
		metrics.RecordScheduledTaskOutcome(task.Name, task.Network, "failure")
		return
	}
	metrics.RecordScheduledTaskOutcome(task.Name, task.Network, "success")
}

// evaluateCondition reads condition.Property (a bare getter name) or
// condition.Function (a full signature), decodes the result as bool (spec.md
// §4.6 step 1's "default bool"), and compares it to ExpectedValue.
func (r *Runner) evaluateCondition(ctx context.Context, task config.ScheduledTask) (bool, error) {
	cond := task.CheckCondition
	client, err := r.registry.Provider(task.Network)
	if err != nil {
		return false, err
	}

	signature := cond.Function
	if !cond.IsFunction() {
		signature = cond.Property
	}
	if !strings.Contains(signature, "(") {
		signature += "()"
	}

	address := common.HexToAddress(cond.ContractAddress)
	codec := contracts.NewCodec(client, address, task.Network, "")
	result, err := codec.CallRaw(ctx, signature, "bool")
	if err != nil {
		return false, errors.Wrapf(err, "evaluating check_condition for task %q", task.Name)
	}

	actual, ok := result.(bool)
	if !ok {
		return false, errors.Errorf("check_condition %q: expected bool result, got %T", signature, result)
	}
	expected, ok := cond.ExpectedValue.(bool)
	if !ok {
		return false, errors.Errorf("check_condition %q: expected_value must be a boolean", signature)
	}
	return actual == expected, nil
}

func (r *Runner) invokeTarget(ctx context.Context, task config.ScheduledTask) error {
	fn := task.TargetFunction
	if len(fn.Parameters) == 0 && !strings.Contains(fn.Function, "(") {
		return errors.Errorf("task %q: target_function %q is not a valid signature", task.Name, fn.Function)
	}

	args := make([]interface{}, len(fn.Parameters))
	for i, p := range fn.Parameters {
		args[i] = p.Value
	}

	signer, err := r.registry.Signer(task.Network)
	if err != nil {
		return errors.Wrap(err, "no signer available")
	}
	client, err := r.registry.Provider(task.Network)
	if err != nil {
		return err
	}
	networkCfg, err := r.registry.NetworkConfig(task.Network)
	if err != nil {
		return err
	}
	if task.GasConfig != nil {
		networkCfg.GasConfig = *task.GasConfig
	}

	adapter := contracts.NewAdapter(client, signer, networkCfg, r.oracle)
	address := common.HexToAddress(fn.ContractAddress)

	submission, err := adapter.SubmitRaw(ctx, "", address, fn.Function, args...)
	if err != nil {
		return err
	}
	receipt := submission.Receipt
	logger.Infof("scheduled task %s: tx %s confirmed in block %d", task.Name, receipt.TxHash.Hex(), receipt.BlockNumber.Uint64())
	return nil
}
