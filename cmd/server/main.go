// Package main is the entry point for the cloud-py-exec server.
//
// cloud-py-exec executes untrusted Python scripts inside an NSJail sandbox
// and returns the JSON-serialized value of the script's main() function.
// The server exposes the execute operation over HTTP or as a Model Context
// Protocol (MCP) stdio tool, selected by configuration.
//
// The application uses Uber's fx framework for dependency injection and
// lifecycle management, with zap for structured logging and viper for
// configuration.
package main

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/Khagendra01/cloud-py-exec/config"
	"github.com/Khagendra01/cloud-py-exec/executor"
	"github.com/Khagendra01/cloud-py-exec/httpserver"
	"github.com/Khagendra01/cloud-py-exec/logger"
	"github.com/Khagendra01/cloud-py-exec/mcpserver"
	"github.com/Khagendra01/cloud-py-exec/sandbox"
)

func main() {
	app := fx.New(
		// Provide dependencies
		fx.Provide(
			// Config
			config.New,

			// Logger with configuration
			logger.NewFromConfig,

			// Sandbox invokers and profile catalog
			sandbox.NewInvokers,

			// Execution service
			executor.NewFromConfig,

			// Transport-facing views of the execution service
			func(svc *executor.Service) httpserver.Executor { return svc },
			func(svc *executor.Service) mcpserver.Executor { return svc },

			// Transports
			httpserver.New,
			mcpserver.New,
		),

		// Run preflight checks and start the configured transport
		fx.Invoke(registerLifecycle),

		// Use the application logger for fx logs
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	// Start the application
	app.Run()
}

func registerLifecycle(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	svc *executor.Service,
	httpSrv *httpserver.Server,
	mcpSrv *mcpserver.MCPServer,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := svc.Preflight(ctx); err != nil {
				return err
			}

			switch cfg.Server.Transport {
			case "http":
				go func() {
					if err := httpSrv.Start(); err != nil {
						log.Fatal("HTTP server failed", zap.Error(err))
					}
				}()
			case "mcp":
				go func() {
					if err := mcpSrv.ServeStdio(); err != nil {
						log.Fatal("MCP server failed", zap.Error(err))
					}
				}()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cfg.Server.Transport == "http" {
				return httpSrv.Stop(ctx)
			}
			return nil
		},
	})
}
