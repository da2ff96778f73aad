// Package crawl walks the target application's screens in a fixed order and
// records what each one contains.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"stepgen/internal/config"
	"stepgen/internal/entity"
	"stepgen/internal/ports"
	"stepgen/pkg/apperr"
	"stepgen/pkg/logg"
	"stepgen/pkg/tracing"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	orchestratorName   = "CrawlOrchestrator"
	orchestratorTracer = "crawl.orchestrator"
	radioSettleDelay   = time.Second
)

type State string

const (
	StateLogin          State = "Login"
	StateAuthenticated  State = "Authenticated"
	StateForgotPassword State = "ForgotPassword"
	StateSuccess        State = "Success"
	StateDone           State = "Done"
)

// Plan holds the scenario-derived switches of one crawl.
type Plan struct {
	ForgotPassword bool
}

func PlanFor(feature *entity.Feature) Plan {
	if feature == nil {
		return Plan{}
	}

	return Plan{ForgotPassword: NeedsForgotPassword(feature.Scenarios)}
}

// NeedsForgotPassword reports whether any scenario name mentions a reset or
// forgotten credential.
func NeedsForgotPassword(scenarios []entity.Scenario) bool {
	for _, sc := range scenarios {
		name := strings.ToLower(sc.Name)
		if strings.Contains(name, "reset") || strings.Contains(name, "forgot") {
			return true
		}
	}

	return false
}

// Next is the crawl's transition function. It only looks at what has been
// captured so far, so a failed screen never blocks later ones that do not
// depend on it.
func Next(state State, registry *entity.Registry, plan Plan) State {
	afterAuth := StateDone
	if plan.ForgotPassword {
		afterAuth = StateForgotPassword
	}

	switch state {
	case StateLogin:
		if registry.Element(entity.ScreenLogin, entity.RoleSignInButton).Found() {
			return StateAuthenticated
		}
		return afterAuth
	case StateAuthenticated:
		return afterAuth
	case StateForgotPassword:
		radio := registry.Element(entity.ScreenForgotPassword, entity.RoleForgotEmailRadio)
		next := registry.Element(entity.ScreenForgotPassword, entity.RoleNextButton)
		if radio.Found() && next.Found() && !next.Attributes.Disabled {
			return StateSuccess
		}
		return StateDone
	default:
		return StateDone
	}
}

var stateScreens = map[State]entity.ScreenID{
	StateLogin:          entity.ScreenLogin,
	StateAuthenticated:  entity.ScreenAuthenticated,
	StateForgotPassword: entity.ScreenForgotPassword,
	StateSuccess:        entity.ScreenSuccess,
}

type Orchestrator struct {
	config   *config.Config
	capturer ports.Capturer
	logger   *zap.Logger
	tracer   trace.Tracer
}

type Params struct {
	fx.In

	Config   *config.Config
	Logger   *zap.Logger
	Capturer ports.Capturer
}

func NewOrchestrator(params Params) *Orchestrator {
	return &Orchestrator{
		config:   params.Config,
		capturer: params.Capturer,
		logger:   params.Logger.With(zap.String(logg.Layer, orchestratorName)),
		tracer:   otel.Tracer(orchestratorTracer),
	}
}

// Crawl drives session through the screens feature needs and returns the
// sealed registry. Screen failures are logged and recorded as partial
// captures; Crawl itself never fails. The session stays open.
func (o *Orchestrator) Crawl(ctx context.Context, session ports.Session, feature *entity.Feature) *entity.Registry {
	const op = "Crawl"
	logger := o.logger.With(zap.String(logg.Operation, op))

	plan := PlanFor(feature)
	registry := entity.NewRegistry()

	ctx, step := tracing.StartSpan(ctx, o.tracer, logger, op, attribute.Bool("forgot_password", plan.ForgotPassword))
	defer func() {
		registry.Seal()
		step.SetAttributes(attribute.Int("screens", registry.Len()))
		step.End(nil)
	}()

	logger.Info("Starting crawl", zap.Bool("forgot_password", plan.ForgotPassword))

	for state := StateLogin; state != StateDone; state = Next(state, registry, plan) {
		if err := ctx.Err(); err != nil {
			logger.Warn("Crawl interrupted", zap.String("state", string(state)), zap.Error(err))
			break
		}

		o.runState(ctx, session, state, registry)
	}

	logger.Info("Crawl finished", zap.Int("screens", registry.Len()))

	return registry
}

func (o *Orchestrator) runState(ctx context.Context, session ports.Session, state State, registry *entity.Registry) {
	const op = "runState"
	screen := stateScreens[state]
	logger := o.logger.With(zap.String(logg.Operation, op), zap.String(logg.Screen, string(screen)))

	var (
		captured entity.CapturedScreen
		err      error
	)

	switch state {
	case StateLogin:
		captured, err = o.login(ctx, session)
	case StateAuthenticated:
		captured, err = o.authenticate(ctx, session, registry)
	case StateForgotPassword:
		captured, err = o.forgotPassword(ctx, session, registry)
	case StateSuccess:
		captured, err = o.success(ctx, session, registry)
	default:
		return
	}

	if captured.ScreenID == "" {
		captured = entity.NewCapturedScreen(screen)
	}

	if err != nil {
		captured.Partial = true
		if captured.Error == "" {
			captured.Error = err.Error()
		}

		logger.Warn("Screen step failed, continuing with partial capture",
			zap.String("reason", apperr.Reason(err)),
			zap.Error(err),
		)
	}

	if addErr := registry.Add(captured); addErr != nil {
		logger.Error("Failed to record screen", zap.Error(addErr))
	}
}

func (o *Orchestrator) login(ctx context.Context, session ports.Session) (captured entity.CapturedScreen, err error) {
	const op = "login"
	logger := o.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, o.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err = o.openLogin(ctx, session); err != nil {
		return captured, err
	}

	o.screenshot(ctx, session, logger, "login-screen.png")

	return o.capturer.Capture(ctx, session, entity.ScreenLogin)
}

func (o *Orchestrator) authenticate(ctx context.Context, session ports.Session, registry *entity.Registry) (captured entity.CapturedScreen, err error) {
	const op = "authenticate"
	logger := o.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, o.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	target := o.config.TargetConfig

	if email := registry.Element(entity.ScreenLogin, entity.RoleEmailInput); email.Found() {
		if err = session.Fill(ctx, email.Primary(), target.Email); err != nil {
			return captured, err
		}
	}

	if password := registry.Element(entity.ScreenLogin, entity.RolePasswordInput); password.Found() {
		if err = session.Fill(ctx, password.Primary(), target.Password); err != nil {
			return captured, err
		}
	}

	signIn := registry.Element(entity.ScreenLogin, entity.RoleSignInButton)
	if err = session.Click(ctx, signIn.Primary()); err != nil {
		return captured, err
	}

	if err = session.Pause(ctx, o.config.BrowserConfig.LoginSettleDelay); err != nil {
		return captured, err
	}

	current := session.URL()
	if strings.Contains(current, target.LoginPath) {
		return captured, apperr.Wrap(op, apperr.CodeActionFailed, fmt.Errorf("still on login page after sign in: %s", current), map[string]any{
			apperr.MetaReason: "login_rejected",
			apperr.MetaStage:  apperr.StageInteraction,
			apperr.MetaURL:    current,
		})
	}

	step.AddEvent("login succeeded", attribute.String("url", current))
	logger.Info("Login succeeded", zap.String(logg.URL, current))

	o.screenshot(ctx, session, logger, "authenticated-screen.png")

	return o.capturer.Capture(ctx, session, entity.ScreenAuthenticated)
}

func (o *Orchestrator) forgotPassword(ctx context.Context, session ports.Session, registry *entity.Registry) (captured entity.CapturedScreen, err error) {
	const op = "forgotPassword"
	logger := o.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, o.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	link := registry.Element(entity.ScreenLogin, entity.RoleForgotPasswordLink)
	if !link.Found() {
		return captured, apperr.Wrap(op, apperr.CodeNotFound, errors.New("forgot password link was not captured on the login screen"), map[string]any{
			apperr.MetaReason: "forgot_link_missing",
			apperr.MetaStage:  apperr.StageCapture,
			apperr.MetaRole:   string(entity.RoleForgotPasswordLink),
		})
	}

	if err = o.openLogin(ctx, session); err != nil {
		return captured, err
	}

	if err = session.Click(ctx, link.Primary()); err != nil {
		return captured, err
	}

	if err = session.Pause(ctx, o.config.BrowserConfig.SettleDelay); err != nil {
		return captured, err
	}

	return o.capturer.Capture(ctx, session, entity.ScreenForgotPassword)
}

func (o *Orchestrator) success(ctx context.Context, session ports.Session, registry *entity.Registry) (captured entity.CapturedScreen, err error) {
	const op = "success"
	logger := o.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, o.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	radio := registry.Element(entity.ScreenForgotPassword, entity.RoleForgotEmailRadio)
	next := registry.Element(entity.ScreenForgotPassword, entity.RoleNextButton)

	if err = session.Click(ctx, radio.Primary()); err != nil {
		return captured, err
	}

	if err = session.Pause(ctx, radioSettleDelay); err != nil {
		return captured, err
	}

	if err = session.Click(ctx, next.Primary()); err != nil {
		return captured, err
	}

	if err = session.Pause(ctx, o.config.BrowserConfig.SettleDelay); err != nil {
		return captured, err
	}

	return o.capturer.Capture(ctx, session, entity.ScreenSuccess)
}

func (o *Orchestrator) openLogin(ctx context.Context, session ports.Session) error {
	if err := session.Navigate(ctx, o.config.LoginURL()); err != nil {
		return err
	}

	return session.Pause(ctx, o.config.BrowserConfig.SettleDelay)
}

// screenshot is best effort; failures are only logged.
func (o *Orchestrator) screenshot(ctx context.Context, session ports.Session, logger *zap.Logger, name string) {
	path := filepath.Join(o.config.BrowserConfig.ScreenshotDir, name)

	if err := session.Screenshot(ctx, path); err != nil {
		logger.Warn("Could not capture screenshot", zap.String(logg.Path, path), zap.Error(err))
		return
	}

	logger.Debug("Screenshot saved", zap.String(logg.Path, path))
}
