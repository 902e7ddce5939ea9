// Package mcpserver provides the Model Context Protocol (MCP) transport.
//
// The mcpserver package exposes the same execute operation as the HTTP
// surface through an MCP stdio tool, using the mark3labs/mcp-go library for
// the protocol details. The execute_python tool accepts a script plus
// optional timeout and memory bounds and returns the execution report as
// JSON text.
//
// Usage:
//
//	server, err := mcpserver.New(cfg, logger, svc)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = server.ServeStdio()
package mcpserver
