// Package script handles untrusted Python source before execution.
//
// The script package validates that submitted source defines a conforming
// entry point (a zero-argument main() that returns a value), synthesizes the
// wrapper harness that captures stdout and emits the structured result line,
// and derives collision-free artifact names for concurrent requests.
//
// Validation is deliberately a prefix scan over trimmed lines, not a parse:
// checking the shape of untrusted code must never execute it. Gaps in the
// scan (unreachable returns, returns inside nested closures) surface later
// as ordinary runtime failures.
//
// Usage:
//
//	if err := script.Validate(source); err != nil {
//	    return err
//	}
//	wrapper := script.BuildWrapper(source)
//	name := script.ArtifactName()
package script
