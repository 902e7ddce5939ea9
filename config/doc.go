// Package config provides application configuration management.
//
// The config package handles loading and validation of the application's
// configuration from YAML files and CLOUDPYEXEC-prefixed environment
// variables. It covers server transport selection, sandbox invocation
// parameters, executor request bounds, and logging settings.
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Server transport: %s\n", cfg.Server.Transport)
package config
