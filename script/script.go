package script

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Khagendra01/cloud-py-exec/apierrors"
)

// Submission is an inbound execution request after transport decoding
type Submission struct {
	Source  string // Untrusted Python source text
	Timeout int    // Execution timeout in seconds
	Memory  int    // Memory ceiling in MB
}

// Process-wide counter disambiguating artifacts created in the same microsecond
var artifactSeq atomic.Uint64

// Validate checks that the source defines a main() function that returns a
// value. It is a shallow prefix scan over trimmed lines, never a parse, and
// never executes the source. Failures are tagged validation_error.
func Validate(source string) error {
	if strings.TrimSpace(source) == "" {
		return apierrors.Validation("Script content cannot be empty")
	}

	lines := strings.Split(source, "\n")

	mainIdx := -1
	mainIndent := 0
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "def main()") {
			mainIdx = i
			mainIndent = indentOf(line)
			break
		}
	}
	if mainIdx < 0 {
		return apierrors.Validation("Script must contain a 'main()' function")
	}

	// The lexical span of main ends at the next def at the same or lesser
	// indentation; nested defs inside main do not end it.
	for _, line := range lines[mainIdx+1:] {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "def ") && indentOf(line) <= mainIndent {
			break
		}
		if strings.HasPrefix(trimmed, "return ") {
			return nil
		}
	}

	return apierrors.Validation("Script must contain a 'main()' function that returns a value")
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// wrapperPrefix and wrapperSuffix sandwich the user source verbatim. The
// harness captures stdout only for the duration of the main() call, rejects
// a None return, verifies JSON serializability, and emits exactly one JSON
// object line to stderr: {"result", "stdout"} on success with exit 0, or
// {"error", "type", "traceback"} on any exception with exit 1. stderr is the
// protocol channel because user code owns stdout.
const wrapperPrefix = `#!/usr/bin/env python3
import json
import sys
import traceback
import io
import contextlib

`

const wrapperSuffix = `

if __name__ == "__main__":
    try:
        stdout_capture = io.StringIO()

        with contextlib.redirect_stdout(stdout_capture):
            result = main()

        if result is None:
            raise ValueError("main() function must return a value")

        json.dumps(result)

        output = {
            "result": result,
            "stdout": stdout_capture.getvalue()
        }
        print(json.dumps(output), file=sys.stderr)

    except Exception as e:
        error_info = {
            "error": str(e),
            "type": type(e).__name__,
            "traceback": traceback.format_exc()
        }
        print(json.dumps(error_info), file=sys.stderr)
        sys.exit(1)
`

// BuildWrapper embeds the user source verbatim in the capture harness. The
// source is concatenated, never formatted, so literal percent signs and
// braces in user code pass through untouched.
func BuildWrapper(source string) string {
	return wrapperPrefix + source + wrapperSuffix
}

// ArtifactName derives a unique on-disk name from the current time plus a
// process-wide counter. Concurrent requests in the same microsecond still
// receive distinct names.
func ArtifactName() string {
	now := time.Now()
	seq := artifactSeq.Add(1)
	return fmt.Sprintf("script_%s_%06d_%04d.py",
		now.Format("20060102_150405"), now.Nanosecond()/1000, seq%10000)
}
