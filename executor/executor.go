package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Khagendra01/cloud-py-exec/apierrors"
	"github.com/Khagendra01/cloud-py-exec/config"
	"github.com/Khagendra01/cloud-py-exec/sandbox"
	"github.com/Khagendra01/cloud-py-exec/script"
)

// Execution method tags
const (
	MethodNsjail = "nsjail"
	MethodDirect = "direct"
)

// securebitsSignature is the kernel capability error nsjail emits when it
// cannot apply its privilege restrictions on restricted container hosts such
// as Cloud Run. Fallback detection keys off this exact external wording; if
// nsjail ever rephrases it, the fallback path goes dark.
const securebitsSignature = "PR_SET_SECUREBITS"

const preflightTimeout = 5 * time.Second

// Report is the terminal success value of one execution
type Report struct {
	Result json.RawMessage // The value returned by main(), byte-faithful
	Stdout string          // Everything main() wrote to stdout
	Method string          // "nsjail" or "direct"
}

// Service orchestrates validation, wrapper synthesis, invocation,
// extraction, and classification for one submission at a time. It holds no
// package-level mutable state; concurrent requests only share the artifact
// directory, where names are unique per request.
type Service struct {
	logger      *zap.Logger
	artifactDir string
	nsjailPath  string
	sandboxed   sandbox.Invoker
	direct      sandbox.Invoker
	catalog     *sandbox.Catalog
	fs          sandbox.FileSystem
	runner      sandbox.CommandRunner
}

// Option defines a functional option for Service
type Option func(*Service)

// WithFileSystem sets the FileSystem for Service
func WithFileSystem(fs sandbox.FileSystem) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// WithCommandRunner sets the CommandRunner used by the startup preflight
func WithCommandRunner(runner sandbox.CommandRunner) Option {
	return func(s *Service) {
		s.runner = runner
	}
}

// New creates a new Service with default implementations and optional interfaces
func New(logger *zap.Logger, artifactDir, nsjailPath string, invokers *sandbox.Invokers, opts ...Option) *Service {
	svc := &Service{
		logger:      logger,
		artifactDir: artifactDir,
		nsjailPath:  nsjailPath,
		sandboxed:   invokers.Nsjail,
		direct:      invokers.Direct,
		catalog:     invokers.Catalog,
		fs:          sandbox.RealFileSystem{},
		runner:      sandbox.RealCommandRunner{},
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

// NewFromConfig creates a Service from the application configuration
func NewFromConfig(cfg *config.Config, logger *zap.Logger, invokers *sandbox.Invokers) *Service {
	return New(logger, cfg.Executor.ArtifactDir, cfg.Sandbox.NsjailPath, invokers)
}

// Execute runs one submission through the full pipeline. All failures are
// tagged apierrors values; the wrapper artifact is removed exactly once on
// every path.
func (s *Service) Execute(ctx context.Context, sub script.Submission) (Report, error) {
	if err := script.Validate(sub.Source); err != nil {
		return Report{}, err
	}

	name := script.ArtifactName()
	path := filepath.Join(s.artifactDir, name)
	log := s.logger.With(zap.String("artifact", name))

	wrapper := script.BuildWrapper(sub.Source)
	if err := s.fs.WriteFile(path, []byte(wrapper), sandbox.ScriptPermission); err != nil {
		log.Error("failed to write wrapper artifact", zap.Error(err))
		return Report{}, apierrors.Internal("Failed to stage script for execution")
	}
	defer func() {
		if err := s.fs.Remove(path); err != nil {
			log.Warn("failed to remove wrapper artifact", zap.Error(err))
		}
	}()

	outcome, err := s.sandboxed.Invoke(ctx, sandbox.Invocation{
		ScriptPath: path,
		TimeoutSec: sub.Timeout,
		MemoryMB:   sub.Memory,
	})
	if err != nil {
		log.Error("sandboxed invocation failed", zap.Error(err))
		return Report{}, apierrors.Wrap(apierrors.KindExecution, err)
	}

	line, found := ExtractStructured(outcome.Stderr)
	switch {
	case found:
		report, perr := parseStructured(line)
		if perr != nil {
			return Report{}, perr
		}
		report.Method = MethodNsjail
		return report, nil

	case outcome.ExitCode == 0:
		// The harness always emits a line before exiting 0; its absence
		// means host-side truncation or an internal fault.
		log.Error("no structured output with zero exit",
			zap.Int("stderr_len", len(outcome.Stderr)))
		return Report{}, apierrors.Internal("No JSON output found in script execution")

	case strings.Contains(outcome.Stderr, securebitsSignature):
		log.Warn("nsjail cannot apply privilege restrictions on this host, falling back to direct execution",
			zap.Int("exit_code", outcome.ExitCode))
		return s.executeDirect(ctx, path, sub, log)

	default:
		return Report{}, apierrors.Executionf("Script execution failed: %s", outcome.Stderr)
	}
}

// executeDirect is the one fallback attempt per request. The same decision
// table applies, except that rows which would consult the fallback signature
// classify as execution_error instead; there is never a second fallback.
func (s *Service) executeDirect(ctx context.Context, path string, sub script.Submission, log *zap.Logger) (Report, error) {
	outcome, err := s.direct.Invoke(ctx, sandbox.Invocation{
		ScriptPath: path,
		TimeoutSec: sub.Timeout,
	})
	if err != nil {
		log.Error("direct invocation failed", zap.Error(err))
		return Report{}, apierrors.Wrap(apierrors.KindExecution, err)
	}

	line, found := ExtractStructured(outcome.Stderr)
	if !found {
		if outcome.ExitCode != 0 {
			return Report{}, apierrors.Executionf("Script execution failed: %s", outcome.Stderr)
		}
		return Report{}, apierrors.Internal("No JSON output found in script execution")
	}

	report, perr := parseStructured(line)
	if perr != nil {
		return Report{}, perr
	}
	report.Method = MethodDirect
	return report, nil
}

// Preflight verifies the deployment before serving: the artifact directory
// is writable, the nsjail binary runs, and the profile catalog resolves.
func (s *Service) Preflight(ctx context.Context) error {
	if err := s.fs.MkdirAll(s.artifactDir, sandbox.DirPermission); err != nil {
		return fmt.Errorf("failed to create artifact directory %s: %w", s.artifactDir, err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, preflightTimeout)
	defer cancel()

	// nsjail has no --version; --help is the cheapest liveness probe.
	_, _, exitCode, err := s.runner.RunCommand(checkCtx, []string{s.nsjailPath, "--help"})
	if err != nil {
		return fmt.Errorf("nsjail is not available: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("nsjail is not working properly, exit code %d", exitCode)
	}

	if _, err := s.catalog.Resolve(); err != nil {
		return fmt.Errorf("nsjail configuration missing: %w", err)
	}

	s.logger.Info("preflight passed",
		zap.String("artifact_dir", s.artifactDir),
		zap.String("nsjail_path", s.nsjailPath))
	return nil
}

// SandboxConfigPresent reports whether profile resolution currently
// succeeds. Exposed for the health endpoint.
func (s *Service) SandboxConfigPresent() bool {
	return s.catalog.ConfigPresent()
}
