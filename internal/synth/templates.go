package synth

import (
	"fmt"
	"stepgen/internal/entity"
	"stepgen/internal/selector"
	"strconv"
	"strings"
)

// Generic selectors tried after the captured one, per role.
var genericSelectors = map[entity.Role][]string{
	entity.RoleEmailInput: {
		`input[type="email"]`,
		`input[name="email"]`,
		`#email`,
		`input[placeholder*="email" i]`,
	},
	entity.RolePasswordInput: {
		`input[type="password"]`,
		`input[name="password"]`,
		`#password`,
	},
	entity.RoleSignInButton: {
		`button:has-text("Sign In")`,
		`button[type="submit"]`,
		`input[type="submit"]`,
	},
	entity.RoleTransactionsLink: {
		`a:has-text("Transactions")`,
		`[href*="transactions"]`,
		`text=Transactions`,
	},
	entity.RoleUserAvatar: {
		`[data-testid*="avatar"]`,
		`.avatar`,
		`[class*="avatar"]`,
		`[data-testid*="user"]`,
	},
	entity.RoleSignOutLink: {
		`a:has-text("Sign Out")`,
		`button:has-text("Sign Out")`,
		`text=Sign Out`,
		`text=Logout`,
	},
	entity.RoleForgotPasswordLink: {
		`a:has-text("Forgot")`,
		`text=Forgot email or password?`,
		`[href*="forgot"]`,
	},
	entity.RoleForgotEmailRadio: {
		`label:has-text("I forgot my email address")`,
		`input[type="radio"][value*="email"]`,
		`input[type="radio"]`,
	},
	entity.RoleNextButton: {
		`button:has-text("Next")`,
		`button[type="submit"]`,
		`text=Next`,
	},
}

// Fallbacks is the ordered selector list for role: the captured primary
// candidate first (when the element was observed), then the generic ones.
func Fallbacks(registry *entity.Registry, screen entity.ScreenID, role entity.Role, generic ...string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	add(registry.Element(screen, role).Primary())
	for _, s := range genericSelectors[role] {
		add(s)
	}
	for _, s := range generic {
		add(s)
	}

	return out
}

func successSelectors(text string) []string {
	text = selector.Truncate(text)
	if text == "" {
		return nil
	}

	return []string{
		"text=" + selector.Quote(text),
		":has-text(" + selector.Quote(text) + ")",
	}
}

type action int

const (
	actionVisible action = iota
	actionClick
	actionFill
	actionCheck
)

// chain describes one emitted fallback loop.
type chain struct {
	name      string
	what      string
	selectors []string
	action    action
	value     string // Go expression, for actionFill
}

type code struct {
	b      strings.Builder
	indent int
}

func (c *code) line(format string, args ...any) {
	if format == "" {
		c.b.WriteByte('\n')
		return
	}

	c.b.WriteString(strings.Repeat("\t", c.indent))
	fmt.Fprintf(&c.b, format, args...)
	c.b.WriteByte('\n')
}

func (c *code) open(format string, args ...any) {
	c.line(format, args...)
	c.indent++
}

func (c *code) close(s string) {
	c.indent--
	c.line("%s", s)
}

func (c *code) String() string {
	return c.b.String()
}

// tryChain emits a loop over ch.selectors that stops at the first selector
// that becomes visible within timeoutMS and accepts the action. Exhausting
// the list returns an error from the step.
func (c *code) tryChain(ch chain, timeoutMS int) {
	list := ch.name + "Selectors"
	done := ch.name + "Done"

	c.open("%s := []string{", list)
	for _, s := range ch.selectors {
		c.line("%s,", strconv.Quote(s))
	}
	c.close("}")

	c.line("%s := false", done)
	c.open("for _, sel := range %s {", list)
	c.open("if err := ctx.Err(); err != nil {")
	c.line("return err")
	c.close("}")
	c.open("if _, err := w.Page.WaitForSelector(sel, playwright.PageWaitForSelectorOptions{")
	c.line("State:   playwright.WaitForSelectorStateVisible,")
	c.line("Timeout: playwright.Float(%d),", timeoutMS)
	c.indent--
	c.open("}); err != nil {")
	c.line("continue")
	c.close("}")

	switch ch.action {
	case actionClick:
		c.open("if err := w.Page.Click(sel); err != nil {")
		c.line("continue")
		c.close("}")
	case actionFill:
		c.open("if err := w.Page.Fill(sel, %s); err != nil {", ch.value)
		c.line("continue")
		c.close("}")
	case actionCheck:
		c.open("if err := w.Page.Check(sel); err != nil {")
		c.line("continue")
		c.close("}")
	}

	c.line("%s = true", done)
	c.line("break")
	c.close("}")

	c.open("if !%s {", done)
	c.line("return fmt.Errorf(%s, %s)", strconv.Quote(ch.what+": no fallback selector matched, tried %q"), list)
	c.close("}")
}

func (c *code) gotoLogin(opts Options) {
	c.open("if _, err := w.Page.Goto(BaseURL+%s, playwright.PageGotoOptions{", strconv.Quote(opts.LoginPath))
	c.line("WaitUntil: playwright.WaitUntilStateDomcontentloaded,")
	c.indent--
	c.open("}); err != nil {")
	c.line(`return fmt.Errorf("navigate to login page: %%w", err)`)
	c.close("}")
}

func (c *code) fillCredentials(registry *entity.Registry, opts Options) {
	c.tryChain(chain{
		name:      "email",
		what:      "email input",
		selectors: Fallbacks(registry, entity.ScreenLogin, entity.RoleEmailInput),
		action:    actionFill,
		value:     "TestEmail",
	}, opts.SelectorTimeoutMS)
	c.tryChain(chain{
		name:      "password",
		what:      "password input",
		selectors: Fallbacks(registry, entity.ScreenLogin, entity.RolePasswordInput),
		action:    actionFill,
		value:     "TestPassword",
	}, opts.SelectorTimeoutMS)
}

func (c *code) clickSignIn(registry *entity.Registry, opts Options) {
	c.tryChain(chain{
		name:      "signIn",
		what:      "sign in button",
		selectors: Fallbacks(registry, entity.ScreenLogin, entity.RoleSignInButton),
		action:    actionClick,
	}, opts.SelectorTimeoutMS)
}

func navigateLogin(_ entity.Step, registry *entity.Registry, opts Options) string {
	var c code
	c.gotoLogin(opts)
	c.tryChain(chain{
		name:      "email",
		what:      "login page email input",
		selectors: Fallbacks(registry, entity.ScreenLogin, entity.RoleEmailInput),
		action:    actionVisible,
	}, opts.SelectorTimeoutMS)
	c.line("return nil")
	return c.String()
}

func fillCredentials(_ entity.Step, registry *entity.Registry, opts Options) string {
	var c code
	c.fillCredentials(registry, opts)
	c.line("return nil")
	return c.String()
}

func clickSignIn(_ entity.Step, registry *entity.Registry, opts Options) string {
	var c code
	c.clickSignIn(registry, opts)
	c.line("w.Page.WaitForTimeout(1000)")
	c.line("return nil")
	return c.String()
}

func verifyTransactionsLink(_ entity.Step, registry *entity.Registry, opts Options) string {
	var c code
	c.tryChain(chain{
		name:      "transactions",
		what:      "transactions link",
		selectors: Fallbacks(registry, entity.ScreenAuthenticated, entity.RoleTransactionsLink),
		action:    actionVisible,
	}, opts.SelectorTimeoutMS)
	c.line("return nil")
	return c.String()
}

func loggedInSetup(_ entity.Step, registry *entity.Registry, opts Options) string {
	var c code
	c.gotoLogin(opts)
	c.fillCredentials(registry, opts)
	c.clickSignIn(registry, opts)
	c.tryChain(chain{
		name:      "transactions",
		what:      "transactions page",
		selectors: Fallbacks(registry, entity.ScreenAuthenticated, entity.RoleTransactionsLink),
		action:    actionVisible,
	}, opts.SelectorTimeoutMS)
	c.line("return nil")
	return c.String()
}

func maximizeScreen(_ entity.Step, _ *entity.Registry, _ Options) string {
	var c code
	c.open("if err := w.Page.SetViewportSize(1920, 1080); err != nil {")
	c.line(`return fmt.Errorf("maximize screen: %%w", err)`)
	c.close("}")
	c.line("return nil")
	return c.String()
}

func clickUserAvatar(_ entity.Step, registry *entity.Registry, opts Options) string {
	var c code
	c.tryChain(chain{
		name:      "avatar",
		what:      "user avatar",
		selectors: Fallbacks(registry, entity.ScreenAuthenticated, entity.RoleUserAvatar),
		action:    actionClick,
	}, opts.SelectorTimeoutMS)
	c.line("return nil")
	return c.String()
}

func clickSignOut(_ entity.Step, registry *entity.Registry, opts Options) string {
	var c code
	c.tryChain(chain{
		name:      "signOut",
		what:      "sign out control",
		selectors: Fallbacks(registry, entity.ScreenAuthenticated, entity.RoleSignOutLink),
		action:    actionClick,
	}, opts.SelectorTimeoutMS)
	c.line("return nil")
	return c.String()
}

func verifyLoggedOut(_ entity.Step, registry *entity.Registry, opts Options) string {
	var c code
	c.tryChain(chain{
		name:      "signIn",
		what:      "login page sign in button",
		selectors: Fallbacks(registry, entity.ScreenLogin, entity.RoleSignInButton),
		action:    actionVisible,
	}, opts.SelectorTimeoutMS)
	c.open("if url := w.Page.URL(); !strings.Contains(url, %s) {", strconv.Quote(opts.LoginPath))
	c.line(`return fmt.Errorf("expected to be on the login page, got %%s", url)`)
	c.close("}")
	c.line("return nil")
	return c.String()
}

func clickForgotLink(_ entity.Step, registry *entity.Registry, opts Options) string {
	var c code
	c.tryChain(chain{
		name:      "forgot",
		what:      "forgot email or password link",
		selectors: Fallbacks(registry, entity.ScreenLogin, entity.RoleForgotPasswordLink),
		action:    actionClick,
	}, opts.SelectorTimeoutMS)
	c.line("return nil")
	return c.String()
}

func selectForgotEmailRadio(_ entity.Step, registry *entity.Registry, opts Options) string {
	var c code
	c.tryChain(chain{
		name:      "radio",
		what:      "forgot email radio",
		selectors: Fallbacks(registry, entity.ScreenForgotPassword, entity.RoleForgotEmailRadio),
		action:    actionCheck,
	}, opts.SelectorTimeoutMS)
	c.line("return nil")
	return c.String()
}

func clickNext(_ entity.Step, registry *entity.Registry, opts Options) string {
	var c code
	c.tryChain(chain{
		name:      "next",
		what:      "next button",
		selectors: Fallbacks(registry, entity.ScreenForgotPassword, entity.RoleNextButton),
		action:    actionClick,
	}, opts.SelectorTimeoutMS)
	c.line("w.Page.WaitForTimeout(1000)")
	c.line("return nil")
	return c.String()
}

func verifySuccessMessage(_ entity.Step, registry *entity.Registry, opts Options) string {
	var c code
	c.tryChain(chain{
		name:      "success",
		what:      "success message",
		selectors: Fallbacks(registry, entity.ScreenSuccess, entity.RoleSuccessMessage, successSelectors(opts.SuccessText)...),
		action:    actionVisible,
	}, opts.SelectorTimeoutMS)
	c.line("return nil")
	return c.String()
}

// placeholder is emitted for steps no intent recognizes. It logs and waits
// briefly instead of failing so one unknown step does not sink the suite.
func placeholder(step entity.Step, _ *entity.Registry, _ Options) string {
	var c code
	c.line(`log.Printf("step not implemented: %%s", %s)`, strconv.Quote(string(step.Keyword)+" "+step.Text))
	c.open("select {")
	c.indent--
	c.line("case <-ctx.Done():")
	c.indent++
	c.line("return ctx.Err()")
	c.indent--
	c.line("case <-time.After(500 * time.Millisecond):")
	c.indent++
	c.close("}")
	c.line("return nil")
	return c.String()
}
