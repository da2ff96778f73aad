package bootstrap

import (
	"context"
	"os"
	"stepgen/internal/console"
	"stepgen/internal/ports"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type consoleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Console    *console.Interface
	Browser    ports.BrowserManager
	Logger     *zap.Logger
	Tracing    *sdktrace.TracerProvider
}

// runConsole executes the command line once the graph is started and shuts
// the app down with the command's exit code. The browser is launched lazily
// by the first crawl, so commands that never crawl never start Chromium.
func runConsole(params consoleParams) {
	logger := params.Logger

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Debug("Starting stepgen console...")

			go func() {
				code := params.Console.Run(os.Args[1:])

				if err := params.Shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
					logger.Error("Failed to shut down", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Debug("Shutting down stepgen...")

			if err := params.Console.Stop(ctx); err != nil {
				logger.Error("Failed to stop console", zap.Error(err))
			}

			if err := params.Browser.Close(ctx); err != nil {
				logger.Error("Failed to close browser", zap.Error(err))
			}

			return nil
		},
	})
}
