package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"stepgen/internal/config"
	"stepgen/internal/usecase"
	"stepgen/pkg/logg"
	"sync/atomic"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Interface struct {
	config  *config.Config
	logger  *zap.Logger
	usecase *usecase.Service
	ctx     context.Context
	cancel  context.CancelFunc
	out     io.Writer
	errOut  io.Writer
	started atomic.Bool
	done    chan struct{}
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Usecase *usecase.Service
}

func NewInterface(params Params) *Interface {
	ctx, cancel := context.WithCancel(context.Background())

	return &Interface{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, "Console")),
		usecase: params.Usecase,
		ctx:     ctx,
		cancel:  cancel,
		out:     os.Stdout,
		errOut:  os.Stderr,
		done:    make(chan struct{}),
	}
}

// Run executes one command line and returns the process exit code. It must
// be called at most once.
func (i *Interface) Run(args []string) int {
	if !i.started.CompareAndSwap(false, true) {
		return 1
	}
	defer close(i.done)

	root := i.newRootCmd()
	root.SetArgs(args)
	root.SetOut(i.out)
	root.SetErr(i.errOut)

	if err := root.ExecuteContext(i.ctx); err != nil {
		errorLine(i.errOut, err.Error())
		return 1
	}

	return 0
}

// Stop cancels the running command and waits for it to return, or for ctx.
func (i *Interface) Stop(ctx context.Context) error {
	i.logger.Debug("Stopping console interface...")

	i.cancel()
	i.usecase.Generator.Stop()

	if !i.started.Load() {
		return nil
	}

	select {
	case <-i.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("console did not stop: %w", ctx.Err())
	}
}
