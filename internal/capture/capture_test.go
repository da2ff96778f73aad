package capture

import (
	"context"
	"errors"
	"stepgen/internal/config"
	"stepgen/internal/entity"
	"stepgen/pkg/apperr"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type evalSession struct {
	url    string
	result any
	err    error
	arg    any
}

func (s *evalSession) Navigate(context.Context, string) error     { return nil }
func (s *evalSession) Fill(context.Context, string, string) error { return nil }
func (s *evalSession) Click(context.Context, string) error        { return nil }
func (s *evalSession) Screenshot(context.Context, string) error   { return nil }
func (s *evalSession) URL() string                                { return s.url }
func (s *evalSession) Pause(context.Context, time.Duration) error { return nil }
func (s *evalSession) Close(context.Context) error                { return nil }
func (s *evalSession) Evaluate(_ context.Context, _ string, arg any) (any, error) {
	s.arg = arg
	return s.result, s.err
}

func newTestCapturer(t *testing.T) *Capturer {
	return NewCapturer(Params{
		Config: &config.Config{TargetConfig: &config.TargetConfig{SuccessText: "We've got you covered"}},
		Logger: zaptest.NewLogger(t),
	})
}

func loginPage() []RawElement {
	return []RawElement{
		{Kind: rawInput, Tag: "input", Type: "text", Placeholder: "Email or username", Index: 0},
		{Kind: rawInput, Tag: "input", Type: "text", Name: "email", Index: 1},
		{Kind: rawInput, Tag: "input", Type: "email", ID: "login-email", Index: 2},
		{Kind: rawInput, Tag: "input", Type: "password", ID: "password", Index: 3},
		{Kind: rawButton, Tag: "button", Type: "button", Text: "Show password", Index: 0},
		{Kind: rawButton, Tag: "button", Type: "submit", Text: "Sign In", Index: 1},
		{Kind: rawLink, Tag: "a", Text: "Forgot email or password?", Href: "https://app.test/forgot", Index: 0},
		{Kind: rawLink, Tag: "a", Text: "Privacy", Href: "https://app.test/privacy", Index: 1},
	}
}

func TestDecode(t *testing.T) {
	result := map[string]any{
		"elements": []any{
			map[string]any{"kind": "input", "tag": "INPUT", "type": "email", "id": "email", "index": 0},
			map[string]any{"kind": "button", "tag": "button", "text": "Sign In", "disabled": true, "index": 1},
		},
		"error": "",
	}

	raw, err := Decode(result)
	require.NoError(t, err)
	require.Len(t, raw, 2)
	assert.Equal(t, "email", raw[0].ID)
	assert.Equal(t, "input", raw[0].attributes().Tag)
	assert.True(t, raw[1].Disabled)
	assert.Equal(t, 1, raw[1].Index)
}

func TestDecode_ScriptErrorKeepsElements(t *testing.T) {
	result := map[string]any{
		"elements": []any{map[string]any{"kind": "link", "text": "Home"}},
		"error":    "TypeError: boom",
	}

	raw, err := Decode(result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Len(t, raw, 1)
}

func TestDecode_Nil(t *testing.T) {
	_, err := Decode(nil)
	assert.Error(t, err)
}

func TestClassify_EmailSignalPrecedence(t *testing.T) {
	screen := Classify(entity.ScreenLogin, loginPage(), RulesFor(entity.ScreenLogin, ""))

	email := screen.Element(entity.RoleEmailInput)
	require.True(t, email.Found())
	assert.Equal(t, "login-email", email.Attributes.ID, "type=email outranks name and placeholder")

	password := screen.Element(entity.RolePasswordInput)
	assert.Equal(t, "#password", password.Primary())
}

func TestClassify_EmailFallsBackToPlaceholder(t *testing.T) {
	raw := []RawElement{
		{Kind: rawInput, Tag: "input", Type: "text", Placeholder: "Your EMAIL"},
	}

	screen := Classify(entity.ScreenLogin, raw, RulesFor(entity.ScreenLogin, ""))

	assert.Equal(t, `[placeholder="Your EMAIL"]`, screen.Element(entity.RoleEmailInput).Primary())
}

func TestClassify_ButtonsAndLinks(t *testing.T) {
	screen := Classify(entity.ScreenLogin, loginPage(), RulesFor(entity.ScreenLogin, ""))

	assert.Equal(t, `button[type="submit"]`, screen.Element(entity.RoleSignInButton).Primary())
	assert.Equal(t, `a:has-text("Forgot email or password?")`, screen.Element(entity.RoleForgotPasswordLink).Primary())
	assert.False(t, screen.Element(entity.RoleUserAvatar).Found())
}

func TestClassify_CollectionsAreUnfiltered(t *testing.T) {
	screen := Classify(entity.ScreenLogin, loginPage(), RulesFor(entity.ScreenLogin, ""))

	assert.Len(t, screen.Collection(entity.RoleInputs), 4)
	assert.Len(t, screen.Collection(entity.RoleButtons), 2)
	assert.Len(t, screen.Collection(entity.RoleLinks), 2)
	assert.Empty(t, screen.Collection(entity.RoleRadioButtons))
}

func TestClassify_ElementClaimedOnce(t *testing.T) {
	raw := []RawElement{
		{Kind: rawMarker, Tag: "div", ClassName: "user-avatar"},
	}

	screen := Classify(entity.ScreenAuthenticated, raw, RulesFor(entity.ScreenAuthenticated, ""))

	assert.True(t, screen.Element(entity.RoleUserAvatar).Found())
	assert.Len(t, screen.Elements, 1)
}

func TestClassify_AuthenticatedRoles(t *testing.T) {
	raw := []RawElement{
		{Kind: rawLink, Tag: "a", Text: "Transactions", Href: "/transactions"},
		{Kind: rawMarker, Tag: "span", TestID: "header-user-menu"},
		{Kind: rawMarker, Tag: "img", ClassName: "avatar round"},
		{Kind: rawButton, Tag: "button", Text: "Logout"},
	}

	screen := Classify(entity.ScreenAuthenticated, raw, RulesFor(entity.ScreenAuthenticated, ""))

	assert.Equal(t, `a:has-text("Transactions")`, screen.Element(entity.RoleTransactionsLink).Primary())
	assert.Equal(t, ".avatar", screen.Element(entity.RoleUserAvatar).Primary(), "avatar outranks user")
	assert.Equal(t, `button:has-text("Logout")`, screen.Element(entity.RoleSignOutLink).Primary())
}

func TestClassify_ForgotPassword(t *testing.T) {
	raw := []RawElement{
		{Kind: rawRadio, Tag: "input", Type: "radio", ID: "pw", Label: "I forgot my password"},
		{Kind: rawRadio, Tag: "input", Type: "radio", ID: "em", Label: "I forgot my email address"},
		{Kind: rawButton, Tag: "button", Type: "submit", Text: "Continue", Disabled: true},
	}

	screen := Classify(entity.ScreenForgotPassword, raw, RulesFor(entity.ScreenForgotPassword, ""))

	assert.Equal(t, "#em", screen.Element(entity.RoleForgotEmailRadio).Primary())

	next := screen.Element(entity.RoleNextButton)
	require.True(t, next.Found())
	assert.True(t, next.Attributes.Disabled)
	assert.Len(t, screen.Collection(entity.RoleRadioButtons), 2)
}

func TestClassify_NonIdentifierMarkerClassIsClaimed(t *testing.T) {
	raw := []RawElement{
		{Kind: rawMarker, Tag: "div", ClassName: "md:avatar rounded", Index: 2},
		{Kind: rawMarker, Tag: "div", TestID: "avatar"},
	}

	screen := Classify(entity.ScreenAuthenticated, raw, RulesFor(entity.ScreenAuthenticated, ""))

	avatar := screen.Element(entity.RoleUserAvatar)
	assert.Equal(t, `[class*="md:avatar"]`, avatar.Primary())
	assert.Equal(t, "div >> nth=2", avatar.SelectorCandidates[len(avatar.SelectorCandidates)-1])
}

func TestClassify_SkipsElementsWithoutCandidates(t *testing.T) {
	raw := []RawElement{
		{Kind: rawMarker},
		{Kind: rawMarker, Tag: "div", TestID: "avatar"},
	}
	rules := Rules{{entity.RoleUserAvatar, isMarker}}

	screen := Classify(entity.ScreenAuthenticated, raw, rules)

	assert.Equal(t, `[data-testid="avatar"]`, screen.Element(entity.RoleUserAvatar).Primary())
}

func TestClassify_SuccessMessagePrefersInnermost(t *testing.T) {
	raw := []RawElement{
		{Kind: rawText, Tag: "div", ID: "root", Text: "Acme Help We've got you covered Check your inbox Privacy Terms", Index: 0},
		{Kind: rawText, Tag: "div", ClassName: "card", Text: "We've got you covered Check your inbox", Index: 5},
		{Kind: rawText, Tag: "p", ClassName: "message", Text: "We've got you covered", Index: 0},
		{Kind: rawText, Tag: "span", Text: "Privacy Terms", Index: 1},
	}

	screen := Classify(entity.ScreenSuccess, raw, RulesFor(entity.ScreenSuccess, "We've got you covered"))

	message := screen.Element(entity.RoleSuccessMessage)
	require.True(t, message.Found())
	assert.Equal(t, "p", message.Attributes.Tag)
	assert.Equal(t, `p:has-text("We've got you covered")`, message.Primary())
	assert.NotContains(t, message.SelectorCandidates, "#root")
}

func TestClassify_InnermostTieGoesToLaterElement(t *testing.T) {
	raw := []RawElement{
		{Kind: rawText, Tag: "div", ClassName: "outer", Text: "We've got you covered"},
		{Kind: rawText, Tag: "h2", Text: "We've got you covered"},
	}

	screen := Classify(entity.ScreenSuccess, raw, RulesFor(entity.ScreenSuccess, "got you covered"))

	assert.Equal(t, "h2", screen.Element(entity.RoleSuccessMessage).Attributes.Tag)
}

func TestCapture(t *testing.T) {
	session := &evalSession{
		url: "https://app.test/done",
		result: map[string]any{
			"elements": []any{
				map[string]any{"kind": "text", "tag": "h2", "text": "We've got you covered"},
			},
		},
	}

	screen, err := newTestCapturer(t).Capture(context.Background(), session, entity.ScreenSuccess)
	require.NoError(t, err)

	assert.Equal(t, entity.ScreenSuccess, screen.ScreenID)
	assert.Equal(t, "https://app.test/done", screen.URL)
	assert.False(t, screen.Partial)
	assert.Equal(t, `h2:has-text("We've got you covered")`, screen.Element(entity.RoleSuccessMessage).Primary())
	assert.Equal(t, map[string]any{"includeText": true, "textNeedle": "We've got you covered"}, session.arg)
}

func TestCapture_EvaluateFailureIsPartial(t *testing.T) {
	session := &evalSession{err: errors.New("page crashed")}

	screen, err := newTestCapturer(t).Capture(context.Background(), session, entity.ScreenLogin)
	require.Error(t, err)

	assert.True(t, apperr.IsCode(err, apperr.CodeCaptureFailed))
	assert.True(t, screen.Partial)
	assert.Equal(t, entity.ScreenLogin, screen.ScreenID)
	assert.Empty(t, screen.Elements)
}
