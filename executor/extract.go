package executor

import (
	"encoding/json"
	"strings"

	"github.com/Khagendra01/cloud-py-exec/apierrors"
)

// ExtractStructured scans stderr lines from the last to the first and
// returns the latest trimmed line that is syntactically a JSON object. The
// isolation runtime prepends its own diagnostics to the same channel; only
// the harness's final emission is trustworthy.
func ExtractStructured(stderr string) (string, bool) {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "{") && strings.HasSuffix(line, "}") {
			return line, true
		}
	}
	return "", false
}

// parseStructured interprets one extracted protocol line. A line that fails
// to parse, or that carries the harness's error key, classifies as
// execution_error; otherwise the result value is kept as raw JSON so it
// round-trips without number mangling.
func parseStructured(line string) (Report, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		return Report{}, apierrors.Execution("Failed to parse script output as JSON")
	}

	if raw, ok := payload["error"]; ok {
		message := "Unknown error"
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			message = s
		}
		return Report{}, apierrors.Executionf("Script execution failed: %s", message)
	}

	var stdout string
	if raw, ok := payload["stdout"]; ok {
		_ = json.Unmarshal(raw, &stdout)
	}

	return Report{Result: payload["result"], Stdout: stdout}, nil
}
