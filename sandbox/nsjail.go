package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/shlex"
	"go.uber.org/zap"
)

// Config holds invocation configuration shared by both invokers
type Config struct {
	NsjailPath    string
	PythonCommand string
	GraceSec      int
}

// NsjailInvoker spawns the interpreter inside nsjail. The isolation layer
// owns primary timeout enforcement via --time_limit; the context deadline of
// timeout plus grace is an independent re-bound of the wait in case the
// isolation layer fails to enforce it.
type NsjailInvoker struct {
	logger  *zap.Logger
	config  *Config
	catalog *Catalog
	runner  CommandRunner
}

// NsjailInvokerOption defines a functional option for NsjailInvoker
type NsjailInvokerOption func(*NsjailInvoker)

// WithNsjailCommandRunner sets the CommandRunner for NsjailInvoker
func WithNsjailCommandRunner(runner CommandRunner) NsjailInvokerOption {
	return func(n *NsjailInvoker) {
		n.runner = runner
	}
}

// NewNsjailInvoker creates a new NsjailInvoker with default implementations and optional interfaces
func NewNsjailInvoker(logger *zap.Logger, config *Config, catalog *Catalog, opts ...NsjailInvokerOption) *NsjailInvoker {
	invoker := &NsjailInvoker{
		logger:  logger,
		config:  config,
		catalog: catalog,
		runner:  RealCommandRunner{},
	}

	for _, opt := range opts {
		opt(invoker)
	}

	return invoker
}

// Invoke runs the script inside nsjail under the invocation's budgets
func (n *NsjailInvoker) Invoke(ctx context.Context, inv Invocation) (Outcome, error) {
	profile, err := n.catalog.Resolve()
	if err != nil {
		return Outcome{}, err
	}

	python, err := shlex.Split(n.config.PythonCommand)
	if err != nil || len(python) == 0 {
		return Outcome{}, fmt.Errorf("invalid python command %q: %w", n.config.PythonCommand, err)
	}

	args := []string{
		n.config.NsjailPath,
		"--config", n.catalog.ConfigPath(profile),
		"--time_limit", strconv.Itoa(inv.TimeoutSec),
		"--rlimit_as", strconv.Itoa(inv.MemoryMB),
	}
	if profile.ExtraFlags != "" {
		extra, splitErr := shlex.Split(profile.ExtraFlags)
		if splitErr != nil {
			return Outcome{}, fmt.Errorf("invalid extra flags for profile %s: %w", profile.Name, splitErr)
		}
		args = append(args, extra...)
	}
	args = append(args, "--")
	args = append(args, python...)
	args = append(args, inv.ScriptPath)

	budget := time.Duration(inv.TimeoutSec+n.config.GraceSec) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	n.logger.Info("executing sandboxed script",
		zap.String("profile", profile.Name),
		zap.Strings("command", args))

	start := time.Now()
	stdout, stderr, exitCode, err := n.runner.RunCommand(runCtx, args)
	elapsed := time.Since(start)
	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded)

	if err != nil && !timedOut {
		return Outcome{}, fmt.Errorf("failed to spawn nsjail: %w", err)
	}

	n.logger.Info("sandboxed execution finished",
		zap.String("profile", profile.Name),
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
