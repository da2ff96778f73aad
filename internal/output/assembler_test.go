package output

import (
	"context"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"stepgen/internal/entity"
	"stepgen/internal/synth"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"
)

var opts = synth.Options{LoginPath: "/sign-in", SuccessText: "We've got you covered", SelectorTimeoutMS: 5000}

func newTestAssembler(t *testing.T) *Assembler {
	return NewAssembler(Params{Logger: zaptest.NewLogger(t)})
}

func loginFeature() *entity.Feature {
	return &entity.Feature{
		Name: "Login",
		Scenarios: []entity.Scenario{{
			Name: "Successful login",
			Steps: []entity.Step{
				{Keyword: entity.KeywordGiven, Text: "the user navigates to the application login page"},
				{Keyword: entity.KeywordWhen, Text: "the user fills in email address and password"},
				{Keyword: entity.KeywordThen, Text: `the user clicks on the "Sign In" button`},
			},
		}},
	}
}

func synthesizeAll(feature *entity.Feature, registry *entity.Registry) [][]entity.StepImplementation {
	catalog := synth.Catalog(opts)

	impls := make([][]entity.StepImplementation, len(feature.Scenarios))
	for i, sc := range feature.Scenarios {
		for _, st := range sc.Steps {
			impls[i] = append(impls[i], synth.Synthesize(catalog, st, registry, opts))
		}
	}

	return impls
}

func TestPaths(t *testing.T) {
	assert.Equal(t, filepath.Join("AI-generated", "login", "login_steps.go"), OutputPath("AI-generated", "features/login.feature"))
	assert.Equal(t, filepath.Join("out", "reset-password", "captures.yaml"), SnapshotPath("out", "/x/reset-password.feature"))
}

func TestPackageAndFuncName(t *testing.T) {
	tests := []struct {
		path     string
		pkg      string
		funcName string
	}{
		{path: "features/login.feature", pkg: "login", funcName: "Login"},
		{path: "reset-password.feature", pkg: "resetpassword", funcName: "ResetPassword"},
		{path: "User_Sign out.feature", pkg: "usersignout", funcName: "UserSignOut"},
		{path: "2fa.feature", pkg: "steps", funcName: "Feature2fa"},
		{path: "ñ.feature", pkg: "steps", funcName: "Feature"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.pkg, PackageName(tt.path))
			assert.Equal(t, tt.funcName, FuncName(tt.path))
		})
	}
}

func TestRender_LoginExample(t *testing.T) {
	feature := loginFeature()

	src, err := newTestAssembler(t).Render(feature, synthesizeAll(feature, entity.NewRegistry()), "features/login.feature")
	require.NoError(t, err)

	out := string(src)

	_, err = parser.ParseFile(token.NewFileSet(), "login_steps.go", src, parser.AllErrors)
	require.NoError(t, err, out)

	assert.True(t, strings.HasPrefix(out, "// Code generated by stepgen from features/login.feature. DO NOT EDIT."))
	assert.Contains(t, out, "package login\n")
	assert.Contains(t, out, "func RegisterLoginSteps(sc *godog.ScenarioContext, w *World) {")
	assert.Contains(t, out, "// Scenario: Successful login")

	registrations := []string{
		`s.Given("the user navigates to the application login page", func(ctx context.Context) error {`,
		`s.When("the user fills in email address and password", func(ctx context.Context) error {`,
		`s.Then("the user clicks on the \"Sign In\" button", func(ctx context.Context) error {`,
	}

	last := -1
	for _, r := range registrations {
		idx := strings.Index(out, r)
		require.Greater(t, idx, last, "registration %s out of order", r)
		last = idx
	}

	count := 0
	for _, kw := range []string{"s.Given(", "s.When(", "s.Then(", "s.And(", "s.But("} {
		count += strings.Count(out, kw)
	}
	assert.Equal(t, 3, count)

	when := out[strings.Index(out, registrations[1]):strings.Index(out, registrations[2])]
	assert.Contains(t, when, "emailSelectors := []string{")
	assert.Contains(t, when, "passwordSelectors := []string{")
}

func TestRender_MultipleScenariosKeepOrder(t *testing.T) {
	feature := &entity.Feature{
		Name: "Account",
		Scenarios: []entity.Scenario{
			{Name: "First", Steps: []entity.Step{{Keyword: entity.KeywordGiven, Text: "one"}}},
			{Name: "Second\nline", Steps: []entity.Step{{Keyword: entity.KeywordBut, Text: "two"}}},
		},
	}

	src, err := newTestAssembler(t).Render(feature, synthesizeAll(feature, entity.NewRegistry()), "account.feature")
	require.NoError(t, err)

	out := string(src)
	assert.Less(t, strings.Index(out, "// Scenario: First"), strings.Index(out, "// Scenario: Second line"))
	assert.Contains(t, out, `s.But("two", func(ctx context.Context) error {`)
}

func TestRender_MismatchedImplementations(t *testing.T) {
	_, err := newTestAssembler(t).Render(loginFeature(), [][]entity.StepImplementation{{}}, "login.feature")
	assert.Error(t, err)

	_, err = newTestAssembler(t).Render(loginFeature(), nil, "login.feature")
	assert.Error(t, err)
}

func TestRender_UnformattableSourceIsKept(t *testing.T) {
	feature := &entity.Feature{Scenarios: []entity.Scenario{{Name: "Broken", Steps: []entity.Step{{Keyword: entity.KeywordGiven, Text: "x"}}}}}
	impls := [][]entity.StepImplementation{{{MatchedPattern: "default", GeneratedBody: "s.Given(\"x\", func( {\n"}}}

	src, err := newTestAssembler(t).Render(feature, impls, "broken.feature")
	require.NoError(t, err)
	assert.Contains(t, string(src), `s.Given("x", func( {`)
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "login", "login_steps.go")
	a := newTestAssembler(t)

	require.NoError(t, a.Write(context.Background(), path, []byte("package login\n")))
	require.NoError(t, a.Write(context.Background(), path, []byte("package login\n\n// v2\n")))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "package login\n\n// v2\n", string(content))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteSnapshot(t *testing.T) {
	screen := entity.NewCapturedScreen(entity.ScreenLogin)
	screen.URL = "https://app.test/sign-in"
	screen.Elements[entity.RoleEmailInput] = entity.ElementDescriptor{
		Kind:               entity.KindInput,
		Attributes:         entity.Attributes{Tag: "input", ID: "email"},
		SelectorCandidates: []string{"#email"},
	}

	registry := entity.NewRegistry()
	require.NoError(t, registry.Add(screen))
	registry.Seal()

	runID := uuid.New()
	path := filepath.Join(t.TempDir(), "captures.yaml")

	snapshot := registry.Snapshot(runID, "login.feature", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, newTestAssembler(t).WriteSnapshot(context.Background(), path, snapshot))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded entity.Snapshot
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, runID.String(), decoded.RunID)
	require.Len(t, decoded.Screens, 1)
	assert.Equal(t, []string{"#email"}, decoded.Screens[0].Element(entity.RoleEmailInput).SelectorCandidates)
}
