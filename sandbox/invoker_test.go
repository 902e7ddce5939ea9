package sandbox

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockCommandRunner implements CommandRunner for testing
type MockCommandRunner struct {
	calls   [][]string
	ctxs    []context.Context
	handler func(ctx context.Context, args []string) (string, string, int, error)
}

func (m *MockCommandRunner) RunCommand(ctx context.Context, args []string) (string, string, int, error) {
	m.calls = append(m.calls, args)
	m.ctxs = append(m.ctxs, ctx)
	if m.handler != nil {
		return m.handler(ctx, args)
	}
	return "", "", 0, nil
}

// MockFileSystem implements FileSystem for testing
type MockFileSystem struct {
	files          map[string][]byte
	writeErrors    map[string]error
	removeErrors   map[string]error
	mkdirAllErrors map[string]error
	removed        []string
	mkdirCalls     []string
}

func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		files:          make(map[string][]byte),
		writeErrors:    make(map[string]error),
		removeErrors:   make(map[string]error),
		mkdirAllErrors: make(map[string]error),
	}
}

func (m *MockFileSystem) MkdirAll(path string, _ os.FileMode) error {
	m.mkdirCalls = append(m.mkdirCalls, path)
	return m.mkdirAllErrors[path]
}

func (m *MockFileSystem) WriteFile(filename string, data []byte, _ os.FileMode) error {
	if err := m.writeErrors[filename]; err != nil {
		return err
	}
	m.files[filename] = data
	return nil
}

func (m *MockFileSystem) ReadFile(filename string) ([]byte, error) {
	if data, ok := m.files[filename]; ok {
		return data, nil
	}
	return nil, os.ErrNotExist
}

func (m *MockFileSystem) Remove(path string) error {
	m.removed = append(m.removed, path)
	if err := m.removeErrors[path]; err != nil {
		return err
	}
	delete(m.files, path)
	return nil
}

func (m *MockFileSystem) FileExists(path string) (bool, error) {
	_, ok := m.files[path]
	return ok, nil
}

func testCatalog(t *testing.T) (*Catalog, *MockFileSystem) {
	t.Helper()
	fs := NewMockFileSystem()
	fs.files["/etc/nsjail/python_cloud_run.cfg"] = []byte("mode: ONCE")
	catalog, err := LoadCatalog("/etc/nsjail", "profiles.yaml", WithCatalogFileSystem(fs))
	require.NoError(t, err)
	return catalog, fs
}

func TestNsjailInvokerInvoke(t *testing.T) {
	logger := zaptest.NewLogger(t)
	config := &Config{
		NsjailPath:    "nsjail",
		PythonCommand: "/usr/local/bin/python3",
		GraceSec:      5,
	}

	t.Run("BuildsArgv", func(t *testing.T) {
		catalog, _ := testCatalog(t)
		runner := &MockCommandRunner{
			handler: func(_ context.Context, _ []string) (string, string, int, error) {
				return "", `{"result": 1, "stdout": ""}`, 0, nil
			},
		}
		invoker := NewNsjailInvoker(logger, config, catalog, WithNsjailCommandRunner(runner))

		outcome, err := invoker.Invoke(context.Background(), Invocation{
			ScriptPath: "/tmp/scripts/script_x.py",
			TimeoutSec: 30,
			MemoryMB:   128,
		})
		require.NoError(t, err)
		assert.Equal(t, 0, outcome.ExitCode)
		assert.False(t, outcome.TimedOut)

		require.Len(t, runner.calls, 1)
		assert.Equal(t, []string{
			"nsjail",
			"--config", "/etc/nsjail/python_cloud_run.cfg",
			"--time_limit", "30",
			"--rlimit_as", "128",
			"--",
			"/usr/local/bin/python3",
			"/tmp/scripts/script_x.py",
		}, runner.calls[0])
	})

	t.Run("DeadlineIsTimeoutPlusGrace", func(t *testing.T) {
		catalog, _ := testCatalog(t)
		runner := &MockCommandRunner{}
		invoker := NewNsjailInvoker(logger, config, catalog, WithNsjailCommandRunner(runner))

		before := time.Now()
		_, err := invoker.Invoke(context.Background(), Invocation{
			ScriptPath: "/tmp/s.py", TimeoutSec: 10, MemoryMB: 64,
		})
		require.NoError(t, err)

		require.Len(t, runner.ctxs, 1)
		deadline, ok := runner.ctxs[0].Deadline()
		require.True(t, ok)
		budget := deadline.Sub(before)
		assert.Greater(t, budget, 14*time.Second)
		assert.LessOrEqual(t, budget, 15*time.Second+time.Second)
	})

	t.Run("ExtraFlagsAreShlexSplit", func(t *testing.T) {
		fs := NewMockFileSystem()
		fs.files["/etc/nsjail/profiles.yaml"] = []byte(
			"profiles:\n  - name: custom\n    config_file: custom.cfg\n    extra_flags: \"--env HOME=/tmp --quiet\"\n")
		fs.files["/etc/nsjail/custom.cfg"] = []byte("mode: ONCE")
		catalog, err := LoadCatalog("/etc/nsjail", "profiles.yaml", WithCatalogFileSystem(fs))
		require.NoError(t, err)

		runner := &MockCommandRunner{}
		invoker := NewNsjailInvoker(logger, config, catalog, WithNsjailCommandRunner(runner))
		_, err = invoker.Invoke(context.Background(), Invocation{ScriptPath: "/tmp/s.py", TimeoutSec: 5, MemoryMB: 64})
		require.NoError(t, err)

		require.Len(t, runner.calls, 1)
		assert.Equal(t, []string{
			"nsjail",
			"--config", "/etc/nsjail/custom.cfg",
			"--time_limit", "5",
			"--rlimit_as", "64",
			"--env", "HOME=/tmp", "--quiet",
			"--",
			"/usr/local/bin/python3",
			"/tmp/s.py",
		}, runner.calls[0])
	})

	t.Run("NonZeroExitIsData", func(t *testing.T) {
		catalog, _ := testCatalog(t)
		runner := &MockCommandRunner{
			handler: func(_ context.Context, _ []string) (string, string, int, error) {
				return "", "Traceback (most recent call last):", 1, nil
			},
		}
		invoker := NewNsjailInvoker(logger, config, catalog, WithNsjailCommandRunner(runner))

		outcome, err := invoker.Invoke(context.Background(), Invocation{ScriptPath: "/tmp/s.py", TimeoutSec: 5, MemoryMB: 64})
		require.NoError(t, err)
		assert.Equal(t, 1, outcome.ExitCode)
	})

	t.Run("SpawnFaultIsError", func(t *testing.T) {
		catalog, _ := testCatalog(t)
		runner := &MockCommandRunner{
			handler: func(_ context.Context, _ []string) (string, string, int, error) {
				return "", "", 0, errors.New("executable file not found")
			},
		}
		invoker := NewNsjailInvoker(logger, config, catalog, WithNsjailCommandRunner(runner))

		_, err := invoker.Invoke(context.Background(), Invocation{ScriptPath: "/tmp/s.py", TimeoutSec: 5, MemoryMB: 64})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to spawn nsjail")
	})

	t.Run("TimedOutRunKeepsObservation", func(t *testing.T) {
		// When the deadline races process completion the runner can report
		// the context error instead of an ExitError; the captured output is
		// still data for classification, not a spawn fault.
		catalog, _ := testCatalog(t)
		expired := &Config{NsjailPath: "nsjail", PythonCommand: "/usr/local/bin/python3", GraceSec: 0}
		runner := &MockCommandRunner{
			handler: func(ctx context.Context, _ []string) (string, string, int, error) {
				return "partial stdout", "killed mid-write", -1, ctx.Err()
			},
		}
		invoker := NewNsjailInvoker(logger, expired, catalog, WithNsjailCommandRunner(runner))

		outcome, err := invoker.Invoke(context.Background(), Invocation{
			ScriptPath: "/tmp/s.py", TimeoutSec: 0, MemoryMB: 64,
		})
		require.NoError(t, err)
		assert.True(t, outcome.TimedOut)
		assert.Equal(t, -1, outcome.ExitCode)
		assert.Equal(t, "partial stdout", outcome.Stdout)
		assert.Equal(t, "killed mid-write", outcome.Stderr)
	})

	t.Run("NoResolvableProfile", func(t *testing.T) {
		fs := NewMockFileSystem()
		catalog, err := LoadCatalog("/etc/nsjail", "profiles.yaml", WithCatalogFileSystem(fs))
		require.NoError(t, err)

		invoker := NewNsjailInvoker(logger, config, catalog, WithNsjailCommandRunner(&MockCommandRunner{}))
		_, err = invoker.Invoke(context.Background(), Invocation{ScriptPath: "/tmp/s.py", TimeoutSec: 5, MemoryMB: 64})
		require.ErrorIs(t, err, ErrNoProfileConfig)
	})
}

func TestDirectInvokerInvoke(t *testing.T) {
	logger := zaptest.NewLogger(t)
	config := &Config{
		NsjailPath:    "nsjail",
		PythonCommand: "/usr/local/bin/python3 -I",
		GraceSec:      5,
	}

	t.Run("BuildsArgvWithoutIsolation", func(t *testing.T) {
		runner := &MockCommandRunner{
			handler: func(_ context.Context, _ []string) (string, string, int, error) {
				return "", `{"result": true, "stdout": ""}`, 0, nil
			},
		}
		invoker := NewDirectInvoker(logger, config, WithDirectCommandRunner(runner))

		outcome, err := invoker.Invoke(context.Background(), Invocation{
			ScriptPath: "/tmp/scripts/script_y.py",
			TimeoutSec: 20,
		})
		require.NoError(t, err)
		assert.Equal(t, 0, outcome.ExitCode)

		require.Len(t, runner.calls, 1)
		assert.Equal(t, []string{"/usr/local/bin/python3", "-I", "/tmp/scripts/script_y.py"}, runner.calls[0])
	})

	t.Run("DeadlineIsExactlyTimeout", func(t *testing.T) {
		runner := &MockCommandRunner{}
		invoker := NewDirectInvoker(logger, config, WithDirectCommandRunner(runner))

		before := time.Now()
		_, err := invoker.Invoke(context.Background(), Invocation{ScriptPath: "/tmp/s.py", TimeoutSec: 20})
		require.NoError(t, err)

		require.Len(t, runner.ctxs, 1)
		deadline, ok := runner.ctxs[0].Deadline()
		require.True(t, ok)
		budget := deadline.Sub(before)
		assert.Greater(t, budget, 19*time.Second)
		assert.LessOrEqual(t, budget, 20*time.Second+time.Second)
	})

	t.Run("SpawnFaultIsError", func(t *testing.T) {
		runner := &MockCommandRunner{
			handler: func(_ context.Context, _ []string) (string, string, int, error) {
				return "", "", 0, errors.New("no such file or directory")
			},
		}
		invoker := NewDirectInvoker(logger, config, WithDirectCommandRunner(runner))

		_, err := invoker.Invoke(context.Background(), Invocation{ScriptPath: "/tmp/s.py", TimeoutSec: 5})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to spawn interpreter")
	})
}
