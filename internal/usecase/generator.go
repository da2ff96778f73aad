package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"stepgen/internal/config"
	"stepgen/internal/entity"
	"stepgen/internal/feature"
	"stepgen/internal/output"
	"stepgen/internal/ports"
	"stepgen/internal/synth"
	"stepgen/pkg/apperr"
	"stepgen/pkg/logg"
	"stepgen/pkg/tracing"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	generatorServiceName = "GeneratorService"
	generatorTracer      = "usecase.generator"
	featureExt           = ".feature"
	sessionCloseTimeout  = 10 * time.Second
)

type GeneratorService struct {
	config      *config.Config
	logger      *zap.Logger
	tracer      trace.Tracer
	browser     ports.BrowserManager
	crawler     ports.Crawler
	synthesizer ports.Synthesizer
	assembler   ports.Assembler
	mu          sync.Mutex
	stopChan    chan struct{}
	now         func() time.Time
}

type GeneratorServiceParams struct {
	fx.In

	Config      *config.Config
	Logger      *zap.Logger
	Browser     ports.BrowserManager
	Crawler     ports.Crawler
	Synthesizer ports.Synthesizer
	Assembler   ports.Assembler
}

func NewGeneratorService(params GeneratorServiceParams) *GeneratorService {
	return &GeneratorService{
		config:      params.Config,
		logger:      params.Logger.With(zap.String(logg.Layer, generatorServiceName)),
		tracer:      otel.Tracer(generatorTracer),
		browser:     params.Browser,
		crawler:     params.Crawler,
		synthesizer: params.Synthesizer,
		assembler:   params.Assembler,
		stopChan:    make(chan struct{}),
		now:         time.Now,
	}
}

// Generate runs the whole pipeline for one feature file: parse, crawl,
// synthesize, render and write. Only setup and write faults are returned;
// an unreachable application still yields a complete module.
func (s *GeneratorService) Generate(ctx context.Context, featurePath string) (result *entity.GenerationResult, err error) {
	const op = "Generate"

	result = &entity.GenerationResult{
		RunID:       uuid.New(),
		FeaturePath: featurePath,
		OutputPath:  output.OutputPath(s.config.OutputConfig.OutputDir, featurePath),
		StartedAt:   s.now(),
	}

	logger := s.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.RunID, result.RunID.String()),
		zap.String(logg.Feature, featurePath),
	)

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("feature", featurePath),
		attribute.String("run_id", result.RunID.String()))
	defer func() {
		result.Duration = s.now().Sub(result.StartedAt)
		step.End(err)
	}()

	parsed, err := feature.ParseFile(featurePath)
	if err != nil {
		logger.Error("Feature skipped", zap.String("reason", apperr.Reason(err)), zap.Error(err))
		return result, err
	}

	logger = logger.With(zap.String("feature_name", parsed.Name))
	logger.Info("Feature parsed", zap.Int("scenarios", len(parsed.Scenarios)), zap.Int("steps", parsed.StepCount()))
	step.AddEvent("feature parsed", attribute.Int("scenarios", len(parsed.Scenarios)))

	registry := s.crawl(ctx, logger, parsed)
	result.Screens = registry.Screens()
	step.AddEvent("crawl finished", attribute.Int("screens", registry.Len()))

	impls := make([][]entity.StepImplementation, len(parsed.Scenarios))
	for i, sc := range parsed.Scenarios {
		impls[i] = make([]entity.StepImplementation, 0, len(sc.Steps))

		for _, st := range sc.Steps {
			impl := s.synthesizer.Synthesize(st, registry)
			if impl.MatchedPattern != synth.DefaultIntent {
				result.Matched++
			}
			impls[i] = append(impls[i], impl)
			result.Steps++
		}
	}

	src, err := s.assembler.Render(parsed, impls, featurePath)
	if err != nil {
		return result, err
	}

	if err = s.assembler.Write(ctx, result.OutputPath, src); err != nil {
		return result, err
	}

	if s.config.OutputConfig.DumpCaptures {
		path := output.SnapshotPath(s.config.OutputConfig.OutputDir, featurePath)
		snapshot := registry.Snapshot(result.RunID, featurePath, s.now())

		if snapErr := s.assembler.WriteSnapshot(ctx, path, snapshot); snapErr != nil {
			logger.Warn("Failed to write capture snapshot", zap.Error(snapErr))
		}
	}

	logger.Info("Step definitions generated",
		zap.String(logg.Path, result.OutputPath),
		zap.Int("steps", result.Steps),
		zap.Int("matched", result.Matched),
	)

	return result, nil
}

// Preview parses a feature and synthesizes every step against an empty
// registry, reporting which template each step selects. No browser is used
// and nothing is written.
func (s *GeneratorService) Preview(ctx context.Context, featurePath string) (parsed *entity.Feature, impls [][]entity.StepImplementation, err error) {
	const op = "Preview"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Feature, featurePath))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("feature", featurePath))
	defer func() {
		step.End(err)
	}()

	parsed, err = feature.ParseFile(featurePath)
	if err != nil {
		return nil, nil, err
	}

	registry := entity.NewRegistry()
	registry.Seal()

	impls = make([][]entity.StepImplementation, len(parsed.Scenarios))
	for i, sc := range parsed.Scenarios {
		for _, st := range sc.Steps {
			impls[i] = append(impls[i], s.synthesizer.Synthesize(st, registry))
		}
	}

	return parsed, impls, nil
}

// crawl opens a session, crawls and closes the session on every path. A
// session that cannot be opened leaves the registry empty.
func (s *GeneratorService) crawl(ctx context.Context, logger *zap.Logger, parsed *entity.Feature) *entity.Registry {
	session, err := s.browser.NewSession(ctx)
	if err != nil {
		logger.Warn("Browser session unavailable, generating with generic selectors only", zap.Error(err))

		registry := entity.NewRegistry()
		registry.Seal()

		return registry
	}

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sessionCloseTimeout)
		defer cancel()

		if closeErr := session.Close(closeCtx); closeErr != nil {
			logger.Warn("Failed to close browser session", zap.Error(closeErr))
		}
	}()

	return s.crawler.Crawl(ctx, session, parsed)
}

// GenerateAll processes feature files one at a time. With no paths the
// configured features directory is scanned. A failed feature is logged and
// skipped; the returned error joins every failure. A feature whose output
// path was already claimed by an earlier one is a setup fault and is not
// generated.
func (s *GeneratorService) GenerateAll(ctx context.Context, paths []string) (results []*entity.GenerationResult, err error) {
	const op = "GenerateAll"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if len(paths) == 0 {
		paths, err = Discover(s.config.OutputConfig.FeaturesDir)
		if err != nil {
			return nil, err
		}
	}

	if len(paths) == 0 {
		return nil, apperr.NotFoundError(op, fmt.Errorf("no %s files in %s", featureExt, s.config.OutputConfig.FeaturesDir))
	}

	s.mu.Lock()
	stop := s.stopChan
	s.mu.Unlock()

	var failures []error
	targets := make(map[string]string, len(paths))

	for i, path := range paths {
		select {
		case <-ctx.Done():
			logger.Warn("Generation cancelled", zap.Int("remaining", len(paths)-i))
			return results, errors.Join(append(failures, ctx.Err())...)
		case <-stop:
			logger.Warn("Generation stopped", zap.Int("remaining", len(paths)-i))
			return results, errors.Join(failures...)
		default:
		}

		target := output.OutputPath(s.config.OutputConfig.OutputDir, path)
		if prev, taken := targets[target]; taken {
			collErr := apperr.Wrap(op, apperr.CodeInvalidArgument, fmt.Errorf("%s and %s both generate %s", prev, path, target), map[string]any{
				apperr.MetaReason: "output_collision",
				apperr.MetaStage:  apperr.StageSetup,
				apperr.MetaPath:   target,
			})
			logger.Error("Feature skipped", zap.String(logg.Feature, path), zap.String("reason", "output_collision"), zap.Error(collErr))

			results = append(results, &entity.GenerationResult{
				RunID:       uuid.New(),
				FeaturePath: path,
				OutputPath:  target,
				StartedAt:   s.now(),
				Err:         collErr,
			})
			failures = append(failures, fmt.Errorf("%s: %w", path, collErr))
			continue
		}
		targets[target] = path

		logger.Info("Processing feature", zap.String(logg.Feature, path), zap.Int("index", i+1), zap.Int("total", len(paths)))

		result, genErr := s.Generate(ctx, path)
		results = append(results, result)

		if genErr != nil {
			result.Err = genErr
			failures = append(failures, fmt.Errorf("%s: %w", path, genErr))
		}
	}

	step.SetAttributes(attribute.Int("features", len(paths)), attribute.Int("failed", len(failures)))

	return results, errors.Join(failures...)
}

// Stop makes a running GenerateAll return before its next feature.
func (s *GeneratorService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
}

// Discover lists the feature files directly inside dir in lexical order.
// Subdirectories are not scanned: output is keyed by base name only.
func Discover(dir string) ([]string, error) {
	const op = "Discover"

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NotFoundError(op, fmt.Errorf("features directory %s: %w", dir, err))
		}

		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "read_dir_failed",
			apperr.MetaStage:  apperr.StageSetup,
			apperr.MetaPath:   dir,
		})
	}

	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), featureExt) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}

	return paths, nil
}
