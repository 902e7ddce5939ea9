package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/Khagendra01/cloud-py-exec/apierrors"
	"github.com/Khagendra01/cloud-py-exec/config"
	"github.com/Khagendra01/cloud-py-exec/executor"
	"github.com/Khagendra01/cloud-py-exec/script"
)

// Executor is the execution operation the MCP surface depends on
type Executor interface {
	Execute(ctx context.Context, sub script.Submission) (executor.Report, error)
}

// MCPServer represents the MCP server
type MCPServer struct {
	config    *config.Config
	logger    *zap.Logger
	exec      Executor
	mcpServer *server.MCPServer
}

// executeReport is the tool's JSON response payload
type executeReport struct {
	Result          json.RawMessage `json:"result"`
	Stdout          string          `json:"stdout"`
	ExecutionMethod string          `json:"execution_method"`
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, exec Executor) (*MCPServer, error) {
	s := &MCPServer{
		config: cfg,
		logger: logger,
		exec:   exec,
	}

	// Log configuration parameters on startup
	logger.Info("configuration loaded",
		zap.String("server.transport", cfg.Server.Transport),
		zap.Int("server.http_port", cfg.Server.HTTPPort),
		zap.String("sandbox.nsjail_path", cfg.Sandbox.NsjailPath),
		zap.String("sandbox.profile_dir", cfg.Sandbox.ProfileDir),
		zap.String("sandbox.python_command", cfg.Sandbox.PythonCommand),
		zap.Int("sandbox.grace_sec", cfg.Sandbox.GraceSec),
		zap.String("executor.artifact_dir", cfg.Executor.ArtifactDir),
		zap.Int("executor.default_timeout_sec", cfg.Executor.DefaultTimeoutSec),
		zap.Int("executor.max_timeout_sec", cfg.Executor.MaxTimeoutSec),
		zap.Int("executor.default_memory_mb", cfg.Executor.DefaultMemoryMB),
		zap.Int("executor.max_memory_mb", cfg.Executor.MaxMemoryMB),
	)

	// Create the MCP server
	s.mcpServer = server.NewMCPServer("cloud-py-exec", "A sandboxed Python script execution server")

	// Register the execute_python tool
	s.registerExecutePythonTool()

	return s, nil
}

// registerExecutePythonTool registers the execute_python tool
func (s *MCPServer) registerExecutePythonTool() {
	tool := mcp.Tool{
		Name:        "execute_python",
		Description: "Execute an untrusted Python script defining main() in a sandboxed environment",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"script": map[string]any{
					"type":        "string",
					"description": "Python source defining a zero-argument main() that returns a JSON-serializable value",
				},
				"timeout_sec": map[string]any{
					"type":        "number",
					"description": "Execution timeout in seconds (optional)",
				},
				"memory_mb": map[string]any{
					"type":        "number",
					"description": "Memory ceiling in MB (optional)",
				},
			},
			Required: []string{"script"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleExecutePython)
}

// handleExecutePython handles the execute_python tool
func (s *MCPServer) handleExecutePython(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Info("script execution requested")

	source, err := request.RequireString("script")
	if err != nil {
		return nil, fmt.Errorf("script parameter is required: %w", err)
	}

	bounds := s.config.Executor

	timeout := request.GetInt("timeout_sec", bounds.DefaultTimeoutSec)
	if timeout < 1 || timeout > bounds.MaxTimeoutSec {
		return toolError(apierrors.Newf(apierrors.KindBadRequest,
			"Timeout must be between 1 and %d seconds", bounds.MaxTimeoutSec)), nil
	}

	memory := request.GetInt("memory_mb", bounds.DefaultMemoryMB)
	if memory < 1 || memory > bounds.MaxMemoryMB {
		return toolError(apierrors.Newf(apierrors.KindBadRequest,
			"Memory must be between 1 and %d MB", bounds.MaxMemoryMB)), nil
	}

	report, err := s.exec.Execute(ctx, script.Submission{
		Source:  source,
		Timeout: timeout,
		Memory:  memory,
	})
	if err != nil {
		s.logger.Warn("script execution failed",
			zap.Error(err),
			zap.String("error_type", string(apierrors.KindOf(err))))
		return toolError(err), nil
	}

	s.logger.Info("script execution completed",
		zap.String("execution_method", report.Method),
		zap.Int("stdout_len", len(report.Stdout)))

	payload, err := json.Marshal(executeReport{
		Result:          report.Result,
		Stdout:          report.Stdout,
		ExecutionMethod: report.Method,
	})
	if err != nil {
		return toolError(apierrors.Internal("Failed to encode execution report")), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: string(payload),
			},
		},
	}, nil
}

// toolError wraps a taxonomy error as an MCP tool failure, keeping the
// machine-readable kind as a prefix.
func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: fmt.Sprintf("%s: %s", apierrors.KindOf(err), err.Error()),
			},
		},
		IsError: true,
	}
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// GetMCPServer returns the underlying MCP server
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
