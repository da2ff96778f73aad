package synth

import (
	"stepgen/internal/config"
	"stepgen/internal/entity"
	"stepgen/pkg/logg"
	"strconv"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	synthesizerName          = "StepSynthesizer"
	defaultSelectorTimeoutMS = 5000
)

// Synthesize is pure: the same step and registry always produce the same
// implementation.
func Synthesize(catalog []Intent, step entity.Step, registry *entity.Registry, opts Options) entity.StepImplementation {
	emit := template(placeholder)
	name := DefaultIntent

	if intent, ok := Match(catalog, step.Text); ok {
		emit = intent.emit
		name = intent.Name
	}

	return entity.StepImplementation{
		MatchedPattern: name,
		GeneratedBody:  Registration(step, emit(step, registry, opts)),
	}
}

// Registration wraps body into a keyword registration on the generated
// Steps registrar, with the step text as a Go string literal.
func Registration(step entity.Step, body string) string {
	var b strings.Builder

	b.WriteString("s.")
	b.WriteString(string(step.Keyword))
	b.WriteString("(")
	b.WriteString(strconv.Quote(step.Text))
	b.WriteString(", func(ctx context.Context) error {\n")

	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		if line != "" {
			b.WriteString("\t")
			b.WriteString(line)
		}
		b.WriteString("\n")
	}

	b.WriteString("})\n")

	return b.String()
}

type Synthesizer struct {
	catalog []Intent
	options Options
	logger  *zap.Logger
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewSynthesizer(params Params) *Synthesizer {
	opts := Options{
		LoginPath:         params.Config.TargetConfig.LoginPath,
		SuccessText:       params.Config.TargetConfig.SuccessText,
		SelectorTimeoutMS: defaultSelectorTimeoutMS,
	}

	if timeout := params.Config.BrowserConfig.ActionTimeout.Milliseconds(); timeout > 0 {
		opts.SelectorTimeoutMS = int(timeout)
	}

	return &Synthesizer{
		catalog: Catalog(opts),
		options: opts,
		logger:  params.Logger.With(zap.String(logg.Layer, synthesizerName)),
	}
}

func (s *Synthesizer) Synthesize(step entity.Step, registry *entity.Registry) entity.StepImplementation {
	impl := Synthesize(s.catalog, step, registry, s.options)

	logger := s.logger.With(zap.String(logg.Step, string(step.Keyword)+" "+step.Text))
	if impl.MatchedPattern == DefaultIntent {
		logger.Warn("No intent matched, emitting placeholder")
	} else {
		logger.Debug("Intent matched", zap.String(logg.Pattern, impl.MatchedPattern))
	}

	return impl
}
