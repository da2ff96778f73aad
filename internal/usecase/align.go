package usecase

import (
	"context"
	"stepgen/internal/config"
	"stepgen/internal/feature"
	"stepgen/internal/output"
	"stepgen/pkg/logg"
	"stepgen/pkg/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	alignServiceName = "AlignService"
	alignTracer      = "usecase.align"
)

type AlignService struct {
	config *config.Config
	logger *zap.Logger
	tracer trace.Tracer
}

type AlignServiceParams struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewAlignService(params AlignServiceParams) *AlignService {
	return &AlignService{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, alignServiceName)),
		tracer: otel.Tracer(alignTracer),
	}
}

// Align rewrites stale registrations in a generated file so that they match
// the feature's current step texts. An empty generatedPath resolves to the
// file Generate would have written for featurePath.
func (s *AlignService) Align(ctx context.Context, generatedPath, featurePath string) (fixes []feature.Fix, err error) {
	const op = "Align"

	if generatedPath == "" {
		generatedPath = output.OutputPath(s.config.OutputConfig.OutputDir, featurePath)
	}

	logger := s.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.Path, generatedPath),
		zap.String(logg.Feature, featurePath),
	)

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("generated", generatedPath),
		attribute.String("feature", featurePath))
	defer func() {
		step.End(err)
	}()

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	fixes, err = feature.AlignFile(generatedPath, featurePath)
	if err != nil {
		return nil, err
	}

	for _, fix := range fixes {
		logger.Info("Registration aligned",
			zap.Int("line", fix.Line),
			zap.String("previous", fix.Previous),
			zap.String(logg.Step, string(fix.Keyword)+" "+fix.Text),
		)
	}

	step.SetAttributes(attribute.Int("fixes", len(fixes)))

	if len(fixes) == 0 {
		logger.Info("Generated file already aligned")
	}

	return fixes, nil
}
