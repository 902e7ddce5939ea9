package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/shlex"
	"go.uber.org/zap"
)

// DirectInvoker runs the script without isolation. It exists for restricted
// container hosts where nsjail cannot apply its privilege restrictions; the
// context deadline is exactly the request timeout, with no grace and no
// memory bound.
type DirectInvoker struct {
	logger *zap.Logger
	config *Config
	runner CommandRunner
}

// DirectInvokerOption defines a functional option for DirectInvoker
type DirectInvokerOption func(*DirectInvoker)

// WithDirectCommandRunner sets the CommandRunner for DirectInvoker
func WithDirectCommandRunner(runner CommandRunner) DirectInvokerOption {
	return func(d *DirectInvoker) {
		d.runner = runner
	}
}

// NewDirectInvoker creates a new DirectInvoker with default implementations and optional interfaces
func NewDirectInvoker(logger *zap.Logger, config *Config, opts ...DirectInvokerOption) *DirectInvoker {
	invoker := &DirectInvoker{
		logger: logger,
		config: config,
		runner: RealCommandRunner{},
	}

	for _, opt := range opts {
		opt(invoker)
	}

	return invoker
}

// Invoke runs the script directly under the invocation's timeout
func (d *DirectInvoker) Invoke(ctx context.Context, inv Invocation) (Outcome, error) {
	python, err := shlex.Split(d.config.PythonCommand)
	if err != nil || len(python) == 0 {
		return Outcome{}, fmt.Errorf("invalid python command %q: %w", d.config.PythonCommand, err)
	}

	args := append(python, inv.ScriptPath)

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(inv.TimeoutSec)*time.Second)
	defer cancel()

	d.logger.Info("executing script directly without isolation",
		zap.Strings("command", args))

	start := time.Now()
	stdout, stderr, exitCode, err := d.runner.RunCommand(runCtx, args)
	elapsed := time.Since(start)
	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded)

	if err != nil && !timedOut {
		return Outcome{}, fmt.Errorf("failed to spawn interpreter: %w", err)
	}

	d.logger.Info("direct execution finished",
		zap.Int("exit_code", exitCode),
		zap.Bool("timed_out", timedOut),
		zap.Duration("elapsed", elapsed),
		zap.Int("stdout_len", len(stdout)),
		zap.Int("stderr_len", len(stderr)))

	return Outcome{
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: exitCode,
		TimedOut: timedOut,
		Elapsed:  elapsed,
	}, nil
}
