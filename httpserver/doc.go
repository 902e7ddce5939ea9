// Package httpserver provides the HTTP transport for script execution.
//
// The httpserver package exposes POST /execute and GET /health over gin,
// decodes and bounds-checks request envelopes, and translates the tagged
// error taxonomy to HTTP status codes in exactly one place. Unmatched routes
// and methods answer with the same uniform JSON envelope as every other
// failure.
//
// Usage:
//
//	srv := httpserver.New(cfg, logger, svc)
//	go srv.Start()
//	defer srv.Stop(ctx)
package httpserver
