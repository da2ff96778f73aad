package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"stepgen/internal/config"
	"stepgen/internal/entity"
	"stepgen/internal/output"
	"stepgen/internal/ports"
	"stepgen/internal/synth"
	"stepgen/pkg/apperr"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const loginFeature = `Feature: Login
  Scenario: Successful login
    Given the user navigates to the application login page
    When the user fills in email address and password
    Then the user clicks on the "Sign In" button
    And the user hums a tune
`

type nopSession struct {
	closed bool
}

func (s *nopSession) Navigate(context.Context, string) error             { return nil }
func (s *nopSession) Fill(context.Context, string, string) error         { return nil }
func (s *nopSession) Click(context.Context, string) error                { return nil }
func (s *nopSession) Evaluate(context.Context, string, any) (any, error) { return nil, nil }
func (s *nopSession) Screenshot(context.Context, string) error           { return nil }
func (s *nopSession) URL() string                                        { return "" }
func (s *nopSession) Pause(context.Context, time.Duration) error         { return nil }
func (s *nopSession) Close(context.Context) error {
	s.closed = true
	return nil
}

type fakeBrowser struct {
	sessions []*nopSession
	err      error
}

func (b *fakeBrowser) Launch(context.Context) error { return b.err }
func (b *fakeBrowser) Close(context.Context) error  { return nil }
func (b *fakeBrowser) IsReady() bool                { return b.err == nil }

func (b *fakeBrowser) NewSession(context.Context) (ports.Session, error) {
	if b.err != nil {
		return nil, b.err
	}

	session := &nopSession{}
	b.sessions = append(b.sessions, session)

	return session, nil
}

// loginCrawler seals a registry holding a captured login screen.
type loginCrawler struct {
	crawled []string
}

func (c *loginCrawler) Crawl(_ context.Context, _ ports.Session, feature *entity.Feature) *entity.Registry {
	c.crawled = append(c.crawled, feature.Name)

	screen := entity.NewCapturedScreen(entity.ScreenLogin)
	screen.Elements[entity.RoleEmailInput] = entity.ElementDescriptor{
		Kind:               entity.KindInput,
		Attributes:         entity.Attributes{Tag: "input", ID: "login-email"},
		SelectorCandidates: []string{"#login-email"},
	}

	registry := entity.NewRegistry()
	_ = registry.Add(screen)
	registry.Seal()

	return registry
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()

	return &config.Config{
		AppConfig: &config.AppConfig{LogLevel: "debug"},
		TargetConfig: &config.TargetConfig{
			BaseURL:     "https://app.test",
			LoginPath:   "/sign-in",
			SuccessText: "We've got you covered",
		},
		BrowserConfig: &config.BrowserConfig{
			WaitUntil:         "networkidle",
			NavigationTimeout: 30 * time.Second,
			ActionTimeout:     5 * time.Second,
			ScreenshotTimeout: 10 * time.Second,
		},
		OutputConfig: &config.OutputConfig{
			FeaturesDir: filepath.Join(dir, "features"),
			OutputDir:   filepath.Join(dir, "AI-generated"),
		},
	}
}

func newTestGenerator(t *testing.T, cfg *config.Config, browser ports.BrowserManager, crawler ports.Crawler) *GeneratorService {
	logger := zaptest.NewLogger(t)

	return NewGeneratorService(GeneratorServiceParams{
		Config:      cfg,
		Logger:      logger,
		Browser:     browser,
		Crawler:     crawler,
		Synthesizer: synth.NewSynthesizer(synth.Params{Config: cfg, Logger: logger}),
		Assembler:   output.NewAssembler(output.Params{Logger: logger}),
	})
}

func writeFeature(t *testing.T, dir, name, content string) string {
	require.NoError(t, os.MkdirAll(dir, 0o755))

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestGenerate_WritesStepFile(t *testing.T) {
	cfg := testConfig(t)
	browser := &fakeBrowser{}
	crawler := &loginCrawler{}
	path := writeFeature(t, cfg.OutputConfig.FeaturesDir, "login.feature", loginFeature)

	result, err := newTestGenerator(t, cfg, browser, crawler).Generate(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.OutputConfig.OutputDir, "login", "login_steps.go"), result.OutputPath)
	assert.Equal(t, 4, result.Steps)
	assert.Equal(t, 3, result.Matched)
	assert.Equal(t, []entity.ScreenID{entity.ScreenLogin}, result.Screens)
	assert.Equal(t, []string{"Login"}, crawler.crawled)

	require.Len(t, browser.sessions, 1)
	assert.True(t, browser.sessions[0].closed, "session closed after crawl")

	content, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)

	out := string(content)
	assert.Contains(t, out, "func RegisterLoginSteps(sc *godog.ScenarioContext, w *World) {")
	assert.Contains(t, out, `"#login-email"`)
	assert.Contains(t, out, `s.And("the user hums a tune", func(ctx context.Context) error {`)

	_, err = os.Stat(output.SnapshotPath(cfg.OutputConfig.OutputDir, path))
	assert.True(t, errors.Is(err, os.ErrNotExist), "snapshot only written on request")
}

func TestGenerate_BrowserUnavailableStillWrites(t *testing.T) {
	cfg := testConfig(t)
	crawler := &loginCrawler{}
	path := writeFeature(t, cfg.OutputConfig.FeaturesDir, "login.feature", loginFeature)

	result, err := newTestGenerator(t, cfg, &fakeBrowser{err: errors.New("no chromium")}, crawler).Generate(context.Background(), path)
	require.NoError(t, err)

	assert.Empty(t, result.Screens)
	assert.Empty(t, crawler.crawled)
	assert.Equal(t, 3, result.Matched)

	content, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"input[type=\"email\"]"`)
}

func TestGenerate_SetupFaults(t *testing.T) {
	cfg := testConfig(t)
	g := newTestGenerator(t, cfg, &fakeBrowser{}, &loginCrawler{})

	_, err := g.Generate(context.Background(), filepath.Join(cfg.OutputConfig.FeaturesDir, "missing.feature"))
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))

	empty := writeFeature(t, cfg.OutputConfig.FeaturesDir, "empty.feature", "Feature: Empty\n")
	_, err = g.Generate(context.Background(), empty)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNoScenarios))

	_, err = os.Stat(output.OutputPath(cfg.OutputConfig.OutputDir, empty))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestGenerate_DumpsCaptures(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputConfig.DumpCaptures = true
	path := writeFeature(t, cfg.OutputConfig.FeaturesDir, "login.feature", loginFeature)

	result, err := newTestGenerator(t, cfg, &fakeBrowser{}, &loginCrawler{}).Generate(context.Background(), path)
	require.NoError(t, err)

	data, err := os.ReadFile(output.SnapshotPath(cfg.OutputConfig.OutputDir, path))
	require.NoError(t, err)
	assert.Contains(t, string(data), result.RunID.String())
	assert.Contains(t, string(data), "#login-email")
}

func TestGenerateAll_SkipsFailedFeatures(t *testing.T) {
	cfg := testConfig(t)
	dir := cfg.OutputConfig.FeaturesDir
	writeFeature(t, dir, "b-login.feature", loginFeature)
	writeFeature(t, dir, "a-empty.feature", "Feature: Nothing here\n")
	writeFeature(t, dir, "notes.txt", "not a feature")

	results, err := newTestGenerator(t, cfg, &fakeBrowser{}, &loginCrawler{}).GenerateAll(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNoScenarios))
	assert.Contains(t, err.Error(), "a-empty.feature")

	require.Len(t, results, 2)
	assert.Equal(t, filepath.Join(dir, "a-empty.feature"), results[0].FeaturePath)
	assert.Equal(t, filepath.Join(dir, "b-login.feature"), results[1].FeaturePath)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)

	_, statErr := os.Stat(results[1].OutputPath)
	assert.NoError(t, statErr)
}

func TestGenerateAll_NoFeatures(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.OutputConfig.FeaturesDir, 0o755))

	_, err := newTestGenerator(t, cfg, &fakeBrowser{}, &loginCrawler{}).GenerateAll(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestGenerateAll_StopAndCancel(t *testing.T) {
	cfg := testConfig(t)
	path := writeFeature(t, cfg.OutputConfig.FeaturesDir, "login.feature", loginFeature)

	g := newTestGenerator(t, cfg, &fakeBrowser{}, &loginCrawler{})
	g.Stop()
	g.Stop()

	results, err := g.GenerateAll(context.Background(), []string{path})
	assert.NoError(t, err)
	assert.Empty(t, results)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err = newTestGenerator(t, cfg, &fakeBrowser{}, &loginCrawler{}).GenerateAll(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestGenerateAll_OutputCollisionIsSetupFault(t *testing.T) {
	cfg := testConfig(t)
	first := writeFeature(t, filepath.Join(cfg.OutputConfig.FeaturesDir, "web"), "login.feature", loginFeature)
	second := writeFeature(t, filepath.Join(cfg.OutputConfig.FeaturesDir, "mobile"), "login.feature", loginFeature)

	crawler := &loginCrawler{}
	results, err := newTestGenerator(t, cfg, &fakeBrowser{}, crawler).GenerateAll(context.Background(), []string{first, second})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument))
	assert.Contains(t, err.Error(), second)

	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	require.Error(t, results[1].Err)
	assert.Equal(t, "output_collision", apperr.Reason(results[1].Err))
	assert.Equal(t, results[0].OutputPath, results[1].OutputPath)
	assert.Len(t, crawler.crawled, 1, "the colliding feature is never crawled")
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFeature(t, filepath.Join(dir, "nested"), "z.feature", loginFeature)
	writeFeature(t, dir, "a.FEATURE", loginFeature)
	writeFeature(t, dir, "readme.md", "# features")

	writeFeature(t, dir, "b.feature", loginFeature)

	paths, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.FEATURE"), filepath.Join(dir, "b.feature")}, paths, "subdirectories are not scanned")

	_, err = Discover(filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestAlign_RewritesStaleRegistrations(t *testing.T) {
	cfg := testConfig(t)
	path := writeFeature(t, cfg.OutputConfig.FeaturesDir, "login.feature", loginFeature)

	_, err := newTestGenerator(t, cfg, &fakeBrowser{}, &loginCrawler{}).Generate(context.Background(), path)
	require.NoError(t, err)

	edited := strings.Replace(loginFeature, "the user hums a tune", "the user whistles a tune", 1)
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))

	aligner := NewAlignService(AlignServiceParams{Config: cfg, Logger: zap.NewNop()})

	fixes, err := aligner.Align(context.Background(), "", path)
	require.NoError(t, err)
	require.Len(t, fixes, 1)
	assert.Contains(t, fixes[0].Previous, "the user hums a tune")
	assert.Equal(t, "the user whistles a tune", fixes[0].Text)

	content, err := os.ReadFile(output.OutputPath(cfg.OutputConfig.OutputDir, path))
	require.NoError(t, err)
	assert.Contains(t, string(content), `s.And("the user whistles a tune"`)
	assert.NotContains(t, string(content), `s.And("the user hums a tune"`)

	fixes, err = aligner.Align(context.Background(), "", path)
	require.NoError(t, err)
	assert.Empty(t, fixes)
}

func TestPreview_ReportsIntentsWithoutBrowser(t *testing.T) {
	cfg := testConfig(t)
	browser := &fakeBrowser{}
	path := writeFeature(t, cfg.OutputConfig.FeaturesDir, "login.feature", loginFeature)

	parsed, impls, err := newTestGenerator(t, cfg, browser, &loginCrawler{}).Preview(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Login", parsed.Name)
	require.Len(t, impls, 1)
	require.Len(t, impls[0], 4)
	assert.Equal(t, "navigate-login", impls[0][0].MatchedPattern)
	assert.Equal(t, "fill-credentials", impls[0][1].MatchedPattern)
	assert.Equal(t, "click-sign-in", impls[0][2].MatchedPattern)
	assert.Equal(t, synth.DefaultIntent, impls[0][3].MatchedPattern)

	assert.Empty(t, browser.sessions)
	_, err = os.Stat(output.OutputPath(cfg.OutputConfig.OutputDir, path))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
