// Package synth turns scenario steps into godog step registrations that act
// on the selectors captured during the crawl.
package synth

import (
	"stepgen/internal/entity"
	"strings"
)

const DefaultIntent = "default"

// Options are the run-wide inputs of every template.
type Options struct {
	LoginPath   string
	SuccessText string
	// SelectorTimeoutMS bounds each wait of a generated fallback chain.
	SelectorTimeoutMS int
}

type template func(step entity.Step, registry *entity.Registry, opts Options) string

// Intent is one row of the catalog: a text test and the template it selects.
type Intent struct {
	Name    string
	matches func(lower string) bool
	emit    template
}

func containsAll(needles ...string) func(string) bool {
	return func(lower string) bool {
		for _, n := range needles {
			if !strings.Contains(lower, n) {
				return false
			}
		}
		return true
	}
}

// Catalog returns the intents in priority order. Matching is a
// case-insensitive substring test and the first hit wins.
func Catalog(opts Options) []Intent {
	catalog := []Intent{
		{Name: "navigate-login", matches: containsAll("navigates to the application login page"), emit: navigateLogin},
		{Name: "fill-credentials", matches: containsAll("fills in email address and password"), emit: fillCredentials},
		{Name: "click-sign-in", matches: containsAll(`clicks on the "sign in" button`), emit: clickSignIn},
		{Name: "verify-transactions-link", matches: containsAll("transactions page orders screen", "transactions", "link"), emit: verifyTransactionsLink},
		{Name: "logged-in-setup", matches: containsAll("logged in and on the transactions page"), emit: loggedInSetup},
		{Name: "maximize-screen", matches: containsAll("maximizes the screen"), emit: maximizeScreen},
		{Name: "click-user-avatar", matches: containsAll(`clicks on the "user-avatar"`), emit: clickUserAvatar},
		{Name: "click-sign-out", matches: containsAll(`clicks on the "sign out" button`), emit: clickSignOut},
		{Name: "verify-logged-out", matches: containsAll("logged out and redirected to the login page"), emit: verifyLoggedOut},
		{Name: "click-forgot-link", matches: containsAll("forgot email or password"), emit: clickForgotLink},
		{Name: "select-forgot-email-radio", matches: containsAll("i forgot my email address", "radio"), emit: selectForgotEmailRadio},
		{Name: "click-next", matches: containsAll("next button"), emit: clickNext},
	}

	if success := strings.ToLower(strings.TrimSpace(opts.SuccessText)); success != "" {
		catalog = append(catalog, Intent{
			Name:    "verify-success-message",
			matches: containsAll(success),
			emit:    verifySuccessMessage,
		})
	}

	return catalog
}

// Match returns the first intent whose test accepts text, or false when none
// does.
func Match(catalog []Intent, text string) (Intent, bool) {
	lower := strings.ToLower(text)

	for _, intent := range catalog {
		if intent.matches(lower) {
			return intent, true
		}
	}

	return Intent{}, false
}
