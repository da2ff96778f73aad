// Package output assembles synthesized steps into one Go source file per
// feature and writes it to disk.
package output

import (
	"context"
	"fmt"
	"go/format"
	"path/filepath"
	"stepgen/internal/entity"
	"stepgen/pkg/apperr"
	"stepgen/pkg/fsutil"
	"stepgen/pkg/logg"
	"stepgen/pkg/tracing"
	"strconv"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	assemblerName   = "OutputAssembler"
	assemblerTracer = "output.assembler"
	fallbackPackage = "steps"
	stepsFileSuffix = "_steps.go"
	snapshotFile    = "captures.yaml"
)

const preamble = `// Code generated by stepgen from %s. DO NOT EDIT.

package %s

import (
	"context"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/playwright-community/playwright-go"
)

var (
	BaseURL      = os.Getenv("BASE_URL")
	TestEmail    = os.Getenv("TEST_EMAIL")
	TestPassword = os.Getenv("TEST_PASSWORD")
)

var (
	_ = fmt.Errorf
	_ = log.Printf
	_ = strings.Contains
	_ = time.Second
)

// World is the per-scenario state shared by the steps. The runner assigns a
// fresh Page before each scenario.
type World struct {
	Page playwright.Page
}

// Steps registers step implementations against their literal text.
type Steps struct {
	sc *godog.ScenarioContext
}

func (s *Steps) Given(text string, fn func(ctx context.Context) error) { s.step(text, fn) }
func (s *Steps) When(text string, fn func(ctx context.Context) error)  { s.step(text, fn) }
func (s *Steps) Then(text string, fn func(ctx context.Context) error)  { s.step(text, fn) }
func (s *Steps) And(text string, fn func(ctx context.Context) error)   { s.step(text, fn) }
func (s *Steps) But(text string, fn func(ctx context.Context) error)   { s.step(text, fn) }

func (s *Steps) step(text string, fn func(ctx context.Context) error) {
	s.sc.Step("^"+regexp.QuoteMeta(text)+"$", fn)
}
`

// OutputPath is <outDir>/<base>/<base>_steps.go for a feature file.
func OutputPath(outDir, featurePath string) string {
	base := baseName(featurePath)

	return filepath.Join(outDir, base, base+stepsFileSuffix)
}

// SnapshotPath places the capture snapshot next to the generated file.
func SnapshotPath(outDir, featurePath string) string {
	return filepath.Join(outDir, baseName(featurePath), snapshotFile)
}

func baseName(featurePath string) string {
	base := filepath.Base(featurePath)

	return strings.TrimSuffix(base, filepath.Ext(base))
}

// PackageName derives a Go package name from a feature file name: lowercase,
// letters and digits only, never starting with a digit.
func PackageName(featurePath string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(baseName(featurePath)) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}

	name := b.String()
	if name == "" || unicode.IsDigit(rune(name[0])) {
		return fallbackPackage
	}

	return name
}

// FuncName is the exported identifier used in Register<Name>Steps.
func FuncName(featurePath string) string {
	var b strings.Builder
	upper := true

	for _, r := range baseName(featurePath) {
		if r >= unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			upper = true
			continue
		}

		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}

	name := b.String()
	if name == "" || unicode.IsDigit(rune(name[0])) {
		name = "Feature" + name
	}

	return name
}

type Assembler struct {
	logger *zap.Logger
	tracer trace.Tracer
}

type Params struct {
	fx.In

	Logger *zap.Logger
}

func NewAssembler(params Params) *Assembler {
	return &Assembler{
		logger: params.Logger.With(zap.String(logg.Layer, assemblerName)),
		tracer: otel.Tracer(assemblerTracer),
	}
}

// Render produces the complete generated module: the preamble, then every
// scenario's comment header followed by its step registrations in document
// order. impls[i][j] is the implementation of feature.Scenarios[i].Steps[j].
func (a *Assembler) Render(feature *entity.Feature, impls [][]entity.StepImplementation, featurePath string) ([]byte, error) {
	const op = "Render"
	logger := a.logger.With(zap.String(logg.Operation, op), zap.String(logg.Feature, featurePath))

	if len(impls) != len(feature.Scenarios) {
		return nil, apperr.InvalidReqError(op, "impls", fmt.Errorf("got %d scenario implementations for %d scenarios", len(impls), len(feature.Scenarios)))
	}

	var b strings.Builder

	fmt.Fprintf(&b, preamble, filepath.ToSlash(featurePath), PackageName(featurePath))
	b.WriteString("\n")

	if feature.Name != "" {
		fmt.Fprintf(&b, "// Register%sSteps registers the steps of feature %s.\n", FuncName(featurePath), strconv.Quote(feature.Name))
	}
	fmt.Fprintf(&b, "func Register%sSteps(sc *godog.ScenarioContext, w *World) {\n", FuncName(featurePath))
	b.WriteString("\ts := &Steps{sc: sc}\n")

	for i, sc := range feature.Scenarios {
		if len(impls[i]) != len(sc.Steps) {
			return nil, apperr.InvalidReqError(op, "impls", fmt.Errorf("scenario %q: got %d implementations for %d steps", sc.Name, len(impls[i]), len(sc.Steps)))
		}

		b.WriteString("\n")
		fmt.Fprintf(&b, "\t// Scenario: %s\n", commentText(sc.Name))

		for _, impl := range impls[i] {
			for _, line := range strings.Split(strings.TrimRight(impl.GeneratedBody, "\n"), "\n") {
				if line != "" {
					b.WriteString("\t")
					b.WriteString(line)
				}
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("}\n")

	src := []byte(b.String())

	formatted, err := format.Source(src)
	if err != nil {
		logger.Warn("Generated source did not pass gofmt, writing it unformatted", zap.Error(err))
		return src, nil
	}

	return formatted, nil
}

// commentText keeps a scenario name on a single comment line.
func commentText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Write replaces path with src in one step.
func (a *Assembler) Write(ctx context.Context, path string, src []byte) (err error) {
	const op = "Write"
	logger := a.logger.With(zap.String(logg.Operation, op), zap.String(logg.Path, path))

	_, step := tracing.StartSpan(ctx, a.tracer, logger, op, attribute.String("path", path), attribute.Int("bytes", len(src)))
	defer func() {
		step.End(err)
	}()

	if err = fsutil.WriteAtomic(path, src, 0o644); err != nil {
		return apperr.Wrap(op, apperr.CodeWriteFailed, err, map[string]any{
			apperr.MetaReason: "write_failed",
			apperr.MetaStage:  apperr.StageOutput,
			apperr.MetaPath:   path,
		})
	}

	logger.Info("Generated file written", zap.Int("bytes", len(src)))

	return nil
}

// WriteSnapshot dumps a capture snapshot as YAML.
func (a *Assembler) WriteSnapshot(ctx context.Context, path string, snapshot entity.Snapshot) (err error) {
	const op = "WriteSnapshot"
	logger := a.logger.With(zap.String(logg.Operation, op), zap.String(logg.Path, path))

	_, step := tracing.StartSpan(ctx, a.tracer, logger, op, attribute.String("path", path))
	defer func() {
		step.End(err)
	}()

	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "marshal_failed",
			apperr.MetaStage:  apperr.StageOutput,
		})
	}

	if err = fsutil.WriteAtomic(path, data, 0o644); err != nil {
		return apperr.Wrap(op, apperr.CodeWriteFailed, err, map[string]any{
			apperr.MetaReason: "write_failed",
			apperr.MetaStage:  apperr.StageOutput,
			apperr.MetaPath:   path,
		})
	}

	logger.Debug("Capture snapshot written", zap.Int("screens", len(snapshot.Screens)))

	return nil
}
