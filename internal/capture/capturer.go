package capture

import (
	"context"
	"sort"
	"stepgen/internal/config"
	"stepgen/internal/entity"
	"stepgen/internal/ports"
	"stepgen/pkg/apperr"
	"stepgen/pkg/logg"
	"stepgen/pkg/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	capturerName   = "Capturer"
	capturerTracer = "capture.capturer"
)

type Capturer struct {
	successText string
	logger      *zap.Logger
	tracer      trace.Tracer
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewCapturer(params Params) *Capturer {
	return &Capturer{
		successText: params.Config.TargetConfig.SuccessText,
		logger:      params.Logger.With(zap.String(logg.Layer, capturerName)),
		tracer:      otel.Tracer(capturerTracer),
	}
}

// Capture runs the extraction pass on the session's current page and
// classifies the result for screen. When the script fails midway the
// elements gathered so far are still classified and the screen is marked
// partial; the error is returned alongside.
func (c *Capturer) Capture(ctx context.Context, session ports.Session, screen entity.ScreenID) (captured entity.CapturedScreen, err error) {
	const op = "Capture"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String(logg.Screen, string(screen)))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op, attribute.String("screen", string(screen)))
	defer func() {
		step.End(err)
	}()

	captured = entity.NewCapturedScreen(screen)
	captured.URL = session.URL()

	options := map[string]any{
		"includeText": screen == entity.ScreenSuccess,
		"textNeedle":  c.successText,
	}

	result, err := session.Evaluate(ctx, extractionScript, options)
	if err != nil {
		captured.Partial = true
		captured.Error = err.Error()

		return captured, apperr.Wrap(op, apperr.CodeCaptureFailed, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
			apperr.MetaStage:  apperr.StageCapture,
			apperr.MetaScreen: string(screen),
		})
	}

	raw, decodeErr := Decode(result)
	step.AddEvent("extraction decoded", attribute.Int("elements", len(raw)))

	classified := Classify(screen, raw, RulesFor(screen, c.successText))
	classified.URL = captured.URL

	if decodeErr != nil {
		classified.Partial = true
		classified.Error = decodeErr.Error()

		return classified, apperr.Wrap(op, apperr.CodeCaptureFailed, decodeErr, map[string]any{
			apperr.MetaReason: "decode_failed",
			apperr.MetaStage:  apperr.StageCapture,
			apperr.MetaScreen: string(screen),
		})
	}

	roles := make([]string, 0, len(classified.Elements))
	for role := range classified.Elements {
		roles = append(roles, string(role))
	}
	sort.Strings(roles)

	logger.Info("Screen captured",
		zap.String(logg.URL, classified.URL),
		zap.Int("elements", len(raw)),
		zap.Strings("roles", roles),
	)

	return classified, nil
}
