package ports

import (
	"context"
	"stepgen/internal/entity"
	"time"
)

// BrowserManager owns the browser process. Each crawl run gets its own
// Session, which the caller must close.
type BrowserManager interface {
	Launch(ctx context.Context) error
	NewSession(ctx context.Context) (Session, error)
	Close(ctx context.Context) error
	IsReady() bool
}

// Session is one browsing context with a single page. Operations are
// sequential; none of them is safe for concurrent use.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	Evaluate(ctx context.Context, script string, arg any) (any, error)
	Screenshot(ctx context.Context, path string) error
	URL() string
	Pause(ctx context.Context, d time.Duration) error
	Close(ctx context.Context) error
}

type Capturer interface {
	Capture(ctx context.Context, session Session, screen entity.ScreenID) (entity.CapturedScreen, error)
}

type Crawler interface {
	Crawl(ctx context.Context, session Session, feature *entity.Feature) *entity.Registry
}

type Synthesizer interface {
	Synthesize(step entity.Step, registry *entity.Registry) entity.StepImplementation
}

type Assembler interface {
	Render(feature *entity.Feature, impls [][]entity.StepImplementation, featurePath string) ([]byte, error)
	Write(ctx context.Context, path string, src []byte) error
	WriteSnapshot(ctx context.Context, path string, snapshot entity.Snapshot) error
}
