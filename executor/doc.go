// Package executor orchestrates the execution of untrusted scripts.
//
// The executor package sequences validation, wrapper synthesis, sandboxed
// invocation, structured-output extraction, and outcome classification into
// one pipeline, guaranteeing that the wrapper artifact is removed exactly
// once on every exit path. When the isolation runtime reports that it cannot
// apply its privilege restrictions on the current host, the pipeline retries
// the same artifact exactly once without isolation.
//
// Usage:
//
//	svc := executor.NewFromConfig(cfg, logger, invokers)
//	report, err := svc.Execute(ctx, script.Submission{Source: src, Timeout: 30, Memory: 128})
package executor
