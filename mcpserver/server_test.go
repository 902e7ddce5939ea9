package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Khagendra01/cloud-py-exec/apierrors"
	"github.com/Khagendra01/cloud-py-exec/config"
	"github.com/Khagendra01/cloud-py-exec/executor"
	"github.com/Khagendra01/cloud-py-exec/script"
)

// mockExecutor implements Executor for testing
type mockExecutor struct {
	subs   []script.Submission
	report executor.Report
	err    error
}

func (m *mockExecutor) Execute(_ context.Context, sub script.Submission) (executor.Report, error) {
	m.subs = append(m.subs, sub)
	return m.report, m.err
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Transport: "mcp", HTTPPort: 8080},
		Sandbox: config.SandboxConfig{
			NsjailPath:    "nsjail",
			ProfileDir:    "./configs",
			PythonCommand: "/usr/local/bin/python3",
			GraceSec:      5,
		},
		Executor: config.ExecutorConfig{
			ArtifactDir:       "/tmp/scripts",
			DefaultTimeoutSec: 30,
			MaxTimeoutSec:     300,
			DefaultMemoryMB:   128,
			MaxMemoryMB:       1024,
		},
		Logging: config.LoggingConfig{Mode: "production", Level: "info"},
	}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = "execute_python"
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestNewMCPServer(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := testConfig()
	exec := &mockExecutor{}

	server, err := New(cfg, logger, exec)
	require.NoError(t, err)
	require.NotNil(t, server)
	assert.Equal(t, cfg, server.config)
	assert.Equal(t, logger, server.logger)
	assert.Equal(t, exec, server.exec)
	assert.NotNil(t, server.GetMCPServer())
}

func TestHandleExecutePython(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("Success", func(t *testing.T) {
		exec := &mockExecutor{report: executor.Report{
			Result: json.RawMessage(`{"message": "hello"}`),
			Stdout: "hi\n",
			Method: executor.MethodNsjail,
		}}
		server, err := New(testConfig(), logger, exec)
		require.NoError(t, err)

		result, err := server.handleExecutePython(context.Background(), callRequest(map[string]any{
			"script": "def main():\n    return {\"message\": \"hello\"}",
		}))
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.False(t, result.IsError)

		assert.JSONEq(t,
			`{"result": {"message": "hello"}, "stdout": "hi\n", "execution_method": "nsjail"}`,
			textOf(t, result))

		// Defaults applied for absent optional parameters.
		require.Len(t, exec.subs, 1)
		assert.Equal(t, 30, exec.subs[0].Timeout)
		assert.Equal(t, 128, exec.subs[0].Memory)
	})

	t.Run("ExplicitBounds", func(t *testing.T) {
		exec := &mockExecutor{report: executor.Report{Result: json.RawMessage(`1`), Method: executor.MethodDirect}}
		server, err := New(testConfig(), logger, exec)
		require.NoError(t, err)

		result, err := server.handleExecutePython(context.Background(), callRequest(map[string]any{
			"script":      "def main():\n    return 1",
			"timeout_sec": 60,
			"memory_mb":   256,
		}))
		require.NoError(t, err)
		assert.False(t, result.IsError)
		require.Len(t, exec.subs, 1)
		assert.Equal(t, 60, exec.subs[0].Timeout)
		assert.Equal(t, 256, exec.subs[0].Memory)
	})

	t.Run("MissingScript", func(t *testing.T) {
		server, err := New(testConfig(), logger, &mockExecutor{})
		require.NoError(t, err)

		_, err = server.handleExecutePython(context.Background(), callRequest(map[string]any{}))
		require.Error(t, err)
	})

	t.Run("TimeoutOutOfBounds", func(t *testing.T) {
		exec := &mockExecutor{}
		server, err := New(testConfig(), logger, exec)
		require.NoError(t, err)

		result, err := server.handleExecutePython(context.Background(), callRequest(map[string]any{
			"script":      "def main():\n    return 1",
			"timeout_sec": 301,
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, textOf(t, result), "bad_request: Timeout must be between 1 and 300 seconds")
		assert.Empty(t, exec.subs)
	})

	t.Run("MemoryOutOfBounds", func(t *testing.T) {
		exec := &mockExecutor{}
		server, err := New(testConfig(), logger, exec)
		require.NoError(t, err)

		result, err := server.handleExecutePython(context.Background(), callRequest(map[string]any{
			"script":    "def main():\n    return 1",
			"memory_mb": 2000,
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, textOf(t, result), "bad_request: Memory must be between 1 and 1024 MB")
		assert.Empty(t, exec.subs)
	})

	t.Run("TaggedErrorCarriesKind", func(t *testing.T) {
		exec := &mockExecutor{err: apierrors.Validation("Script must contain a 'main()' function")}
		server, err := New(testConfig(), logger, exec)
		require.NoError(t, err)

		result, err := server.handleExecutePython(context.Background(), callRequest(map[string]any{
			"script": "print('hi')",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Equal(t, "validation_error: Script must contain a 'main()' function", textOf(t, result))
	})
}
