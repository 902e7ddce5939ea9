package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Khagendra01/cloud-py-exec/apierrors"
	"github.com/Khagendra01/cloud-py-exec/config"
	"github.com/Khagendra01/cloud-py-exec/executor"
	"github.com/Khagendra01/cloud-py-exec/script"
)

// Executor is the execution operation the HTTP surface depends on
type Executor interface {
	Execute(ctx context.Context, sub script.Submission) (executor.Report, error)
	SandboxConfigPresent() bool
}

type handlers struct {
	cfg  *config.Config
	exec Executor
}

// executeRequest keeps the fields raw so that absent, wrongly typed, and
// out-of-range values produce distinct bad_request messages.
type executeRequest struct {
	Script  json.RawMessage `json:"script"`
	Timeout json.RawMessage `json:"timeout"`
	Memory  json.RawMessage `json:"memory"`
}

// NewRouter builds the gin engine with middleware, routes, and the uniform
// 404/405 envelopes.
func NewRouter(cfg *config.Config, log *zap.Logger, exec Executor) *gin.Engine {
	if cfg.Logging.Mode != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestIDMiddleware(log))
	engine.Use(RequestLoggerMiddleware())

	h := &handlers{cfg: cfg, exec: exec}

	engine.HandleMethodNotAllowed = true
	engine.NoRoute(func(c *gin.Context) {
		writeError(c, apierrors.New(apierrors.KindNotFound, "Endpoint not found"))
	})
	engine.NoMethod(func(c *gin.Context) {
		writeError(c, apierrors.New(apierrors.KindMethodNotAllowed, "Method not allowed"))
	})

	engine.POST("/execute", h.execute)
	engine.GET("/health", h.health)

	return engine
}

// execute handles POST /execute
func (h *handlers) execute(c *gin.Context) {
	if c.ContentType() != "application/json" {
		writeError(c, apierrors.BadRequest("Request must be JSON"))
		return
	}

	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apierrors.BadRequest("Request body must be valid JSON"))
		return
	}

	sub, err := h.toSubmission(&req)
	if err != nil {
		writeError(c, err)
		return
	}

	report, err := h.exec.Execute(c.Request.Context(), sub)
	if err != nil {
		requestLogger(c).Warn("script execution failed", zap.Error(err),
			zap.String("error_type", string(apierrors.KindOf(err))))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"result":           report.Result,
		"stdout":           report.Stdout,
		"execution_method": report.Method,
		"timestamp":        time.Now().Format(time.RFC3339Nano),
	})
}

// toSubmission decodes and bounds-checks the raw envelope fields, applying
// configured defaults for absent optional fields.
func (h *handlers) toSubmission(req *executeRequest) (script.Submission, error) {
	if len(req.Script) == 0 {
		return script.Submission{}, apierrors.BadRequest("Missing 'script' field in request")
	}
	var source string
	if isJSONNull(req.Script) || json.Unmarshal(req.Script, &source) != nil {
		return script.Submission{}, apierrors.BadRequest("Script must be a string")
	}

	bounds := h.cfg.Executor

	timeout := bounds.DefaultTimeoutSec
	if len(req.Timeout) != 0 {
		if isJSONNull(req.Timeout) || json.Unmarshal(req.Timeout, &timeout) != nil {
			return script.Submission{}, apierrors.BadRequest("Timeout must be an integer")
		}
		if timeout < 1 || timeout > bounds.MaxTimeoutSec {
			return script.Submission{}, apierrors.Newf(apierrors.KindBadRequest,
				"Timeout must be between 1 and %d seconds", bounds.MaxTimeoutSec)
		}
	}

	memory := bounds.DefaultMemoryMB
	if len(req.Memory) != 0 {
		if isJSONNull(req.Memory) || json.Unmarshal(req.Memory, &memory) != nil {
			return script.Submission{}, apierrors.BadRequest("Memory must be an integer")
		}
		if memory < 1 || memory > bounds.MaxMemoryMB {
			return script.Submission{}, apierrors.Newf(apierrors.KindBadRequest,
				"Memory must be between 1 and %d MB", bounds.MaxMemoryMB)
		}
	}

	return script.Submission{Source: source, Timeout: timeout, Memory: memory}, nil
}

// isJSONNull reports whether a raw field carries the literal null.
// json.Unmarshal treats null as a no-op for string and int targets, which
// would let an explicit null masquerade as a well-typed or absent value.
func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// health handles GET /health
func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":                 "healthy",
		"timestamp":              time.Now().Format(time.RFC3339Nano),
		"sandbox_config_present": h.exec.SandboxConfigPresent(),
	})
}

// writeError is the single translation point from the error taxonomy to
// HTTP. Untagged errors never leak their message.
func writeError(c *gin.Context, err error) {
	kind := apierrors.KindOf(err)

	message := err.Error()
	var apiErr *apierrors.Error
	if !errors.As(err, &apiErr) {
		message = "Internal server error"
	}

	c.JSON(apierrors.HTTPStatus(kind), gin.H{
		"success":    false,
		"error":      message,
		"error_type": string(kind),
		"timestamp":  time.Now().Format(time.RFC3339Nano),
	})
}
