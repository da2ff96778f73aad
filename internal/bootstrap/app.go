package bootstrap

import (
	"stepgen/internal/browser"
	"stepgen/internal/capture"
	"stepgen/internal/config"
	"stepgen/internal/console"
	"stepgen/internal/crawl"
	"stepgen/internal/output"
	"stepgen/internal/ports"
	"stepgen/internal/synth"
	"stepgen/internal/usecase"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewApp() *fx.App {
	return fx.New(options()...)
}

func options() []fx.Option {
	return []fx.Option{
		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,

			fx.Annotate(browser.NewManager, fx.As(new(ports.BrowserManager))),
			fx.Annotate(capture.NewCapturer, fx.As(new(ports.Capturer))),
			fx.Annotate(crawl.NewOrchestrator, fx.As(new(ports.Crawler))),
			fx.Annotate(synth.NewSynthesizer, fx.As(new(ports.Synthesizer))),
			fx.Annotate(output.NewAssembler, fx.As(new(ports.Assembler))),

			usecase.NewUsecase,

			console.NewInterface,
		),

		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			fxLogger := &fxevent.ZapLogger{Logger: logger.Named("fx")}
			fxLogger.UseLogLevel(zapcore.DebugLevel)

			return fxLogger
		}),

		fx.Invoke(
			runConsole,
		),

		fx.StartTimeout(10 * time.Second),
		fx.StopTimeout(30 * time.Second),
	}
}
