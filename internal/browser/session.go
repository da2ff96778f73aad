package browser

import (
	"context"
	"stepgen/internal/config"
	"stepgen/pkg/apperr"
	"stepgen/pkg/logg"
	"stepgen/pkg/tracing"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Session is one browsing context and its page. Playwright calls are not
// context aware, so every operation checks ctx first and relies on the
// per-operation timeout to bound the call itself.
type Session struct {
	config         *config.Config
	logger         *zap.Logger
	tracer         trace.Tracer
	browserContext playwright.BrowserContext
	page           playwright.Page
}

func newSession(cfg *config.Config, logger *zap.Logger, tracer trace.Tracer, browserContext playwright.BrowserContext, page playwright.Page) *Session {
	return &Session{
		config:         cfg,
		logger:         logger.With(zap.String(logg.Layer, "BrowserSession")),
		tracer:         tracer,
		browserContext: browserContext,
		page:           page,
	}
}

func milliseconds(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

func waitUntil(state string) *playwright.WaitUntilState {
	switch state {
	case "load":
		return playwright.WaitUntilStateLoad
	case "domcontentloaded":
		return playwright.WaitUntilStateDomcontentloaded
	case "commit":
		return playwright.WaitUntilStateCommit
	default:
		return playwright.WaitUntilStateNetworkidle
	}
}

func (s *Session) Navigate(ctx context.Context, url string) (err error) {
	const op = "Navigate"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}

	_, err = s.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   milliseconds(s.config.BrowserConfig.NavigationTimeout),
		WaitUntil: waitUntil(s.config.BrowserConfig.WaitUntil),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	step.AddEvent("navigation completed")

	return nil
}

func (s *Session) Fill(ctx context.Context, selector, value string) (err error) {
	const op = "Fill"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}

	err = s.page.Fill(selector, value, playwright.PageFillOptions{
		Timeout: milliseconds(s.config.BrowserConfig.ActionTimeout),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "fill_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: selector,
		})
	}

	return nil
}

func (s *Session) Click(ctx context.Context, selector string) (err error) {
	const op = "Click"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}

	err = s.page.Click(selector, playwright.PageClickOptions{
		Timeout: milliseconds(s.config.BrowserConfig.ActionTimeout),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "click_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: selector,
		})
	}

	return nil
}

func (s *Session) Evaluate(ctx context.Context, script string, arg any) (result any, err error) {
	const op = "Evaluate"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	result, err = s.page.Evaluate(script, arg)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeCaptureFailed, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
			apperr.MetaStage:  apperr.StageCapture,
			apperr.MetaURL:    s.page.URL(),
		})
	}

	return result, nil
}

func (s *Session) Screenshot(ctx context.Context, path string) (err error) {
	const op = "Screenshot"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Path, path))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("path", path))
	defer func() {
		step.End(err)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}

	_, err = s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
		Timeout:  milliseconds(s.config.BrowserConfig.ScreenshotTimeout),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
			apperr.MetaReason: "screenshot_failed",
			apperr.MetaStage:  apperr.StageScreenshot,
			apperr.MetaPath:   path,
		})
	}

	return nil
}

func (s *Session) URL() string {
	return s.page.URL()
}

// Pause waits for d or until ctx is done.
func (s *Session) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Close releases the context and its page. Recorded video is flushed here.
func (s *Session) Close(ctx context.Context) (err error) {
	const op = "CloseSession"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err = s.browserContext.Close(); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "context_close_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	logger.Info("Session closed")

	return nil
}
