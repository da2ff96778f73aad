package browser

import (
	"context"
	"os"
	"stepgen/internal/config"
	"stepgen/internal/ports"
	"stepgen/pkg/apperr"
	"stepgen/pkg/logg"
	"stepgen/pkg/tracing"
	"sync"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	browserManagerName = "BrowserManager"
	browserTracer      = "browser.manager"
	viewportWidth      = 1920
	viewportHeight     = 1080
)

var launchArgs = []string{
	"--start-maximized",
	"--disable-web-security",
	"--disable-dev-shm-usage",
}

// Manager owns the playwright driver and one Chromium process. The browser
// is launched on first use and shared by all sessions of the process.
type Manager struct {
	config     *config.Config
	logger     *zap.Logger
	tracer     trace.Tracer
	mu         sync.Mutex
	playwright *playwright.Playwright
	browser    playwright.Browser
	ready      bool
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewManager(params Params) *Manager {
	return &Manager{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, browserManagerName)),
		tracer: otel.Tracer(browserTracer),
		ready:  false,
	}
}

func (m *Manager) Launch(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.launch(ctx)
}

func (m *Manager) launch(ctx context.Context) (err error) {
	const op = "Launch"
	logger := m.logger.With(zap.String(logg.Operation, op))

	if m.ready {
		return nil
	}

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.Bool("headless", m.config.BrowserConfig.Headless))
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching browser...")

	if m.config.BrowserConfig.Install {
		step.AddEvent("installing playwright")

		err = playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
		if err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "playwright_install_failed",
				apperr.MetaStage:  apperr.StageBrowser,
			})
		}
	}

	step.AddEvent("starting playwright")

	pw, err := playwright.Run()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.playwright = pw

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.config.BrowserConfig.Headless),
		SlowMo:   playwright.Float(float64(m.config.BrowserConfig.SlowMo)),
		Args:     launchArgs,
	})
	if err != nil {
		if stopErr := pw.Stop(); stopErr != nil {
			logger.Warn("Failed to stop playwright", zap.Error(stopErr))
		}
		m.playwright = nil

		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "browser_launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.browser = browser

	m.ready = true
	logger.Info("Browser launched successfully", zap.String("version", browser.Version()))

	return nil
}

// NewSession opens a fresh browsing context with a single page. The caller
// owns the session and must close it.
func (m *Manager) NewSession(ctx context.Context) (session ports.Session, err error) {
	const op = "NewSession"
	logger := m.logger.With(zap.String(logg.Operation, op))

	m.mu.Lock()
	defer m.mu.Unlock()

	if err = m.launch(ctx); err != nil {
		return nil, err
	}

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.Bool("record_video", m.config.BrowserConfig.RecordVideo))
	defer func() {
		step.End(err)
	}()

	options := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  viewportWidth,
			Height: viewportHeight,
		},
		JavaScriptEnabled: playwright.Bool(true),
		IgnoreHttpsErrors: playwright.Bool(true),
	}

	if m.config.BrowserConfig.RecordVideo {
		if mkErr := os.MkdirAll(m.config.BrowserConfig.VideoDir, 0o755); mkErr != nil {
			logger.Warn("Cannot create video directory, recording disabled", zap.String(logg.Path, m.config.BrowserConfig.VideoDir), zap.Error(mkErr))
		} else {
			options.RecordVideo = &playwright.RecordVideo{
				Dir: m.config.BrowserConfig.VideoDir,
				Size: &playwright.Size{
					Width:  viewportWidth,
					Height: viewportHeight,
				},
			}
		}
	}

	browserContext, err := m.browser.NewContext(options)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "context_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	browserContext.SetDefaultTimeout(float64(m.config.BrowserConfig.ActionTimeout.Milliseconds()))
	browserContext.SetDefaultNavigationTimeout(float64(m.config.BrowserConfig.NavigationTimeout.Milliseconds()))

	page, err := browserContext.NewPage()
	if err != nil {
		if closeErr := browserContext.Close(); closeErr != nil {
			logger.Warn("Failed to close context", zap.Error(closeErr))
		}

		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "page_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	logger.Info("Session opened")

	return newSession(m.config, m.logger, m.tracer, browserContext, page), nil
}

func (m *Manager) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := m.logger.With(zap.String(logg.Operation, op))

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.playwright == nil {
		return nil
	}

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Closing browser...")

	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
		m.browser = nil
	}

	if err = m.playwright.Stop(); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_stop_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.playwright = nil

	m.ready = false
	logger.Info("Browser closed")

	return nil
}

func (m *Manager) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ready
}
