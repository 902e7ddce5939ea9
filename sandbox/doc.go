// Package sandbox provides isolated process invocation for untrusted scripts.
//
// The sandbox package selects an nsjail isolation profile from an ordered
// catalog and spawns the interpreter under time and memory budgets, capturing
// stdout, stderr, and the exit code. A non-zero exit or an elapsed timeout is
// ordinary outcome data here, never a Go error; only spawn-level faults
// (missing binary) surface as errors. The DirectInvoker runs the same script
// without isolation for the environment-fallback path.
//
// Usage:
//
//	invokers, err := sandbox.NewInvokers(logger, cfg)
//	outcome, err := invokers.Nsjail.Invoke(ctx, sandbox.Invocation{
//	    ScriptPath: "/tmp/scripts/script_x.py",
//	    TimeoutSec: 30,
//	    MemoryMB:   128,
//	})
package sandbox
