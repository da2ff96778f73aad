package capture

import (
	"stepgen/internal/entity"
	"stepgen/internal/selector"
	"strings"
)

type predicate func(r RawElement) bool

// rule claims one element for role. Several rules may target the same role;
// later ones only run while the role is still unclaimed.
type rule struct {
	role entity.Role
	when predicate
}

// Rules is an ordered classification table for one screen.
type Rules []rule

// innermostRoles go to the matching element with the shortest text. Wrappers
// repeat their children's text, so that is the innermost match; ties go to
// the later element in document order.
var innermostRoles = map[entity.Role]bool{
	entity.RoleSuccessMessage: true,
}

func contains(haystack, needle string) bool {
	return needle != "" && strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func kindIs(kinds ...string) predicate {
	return func(r RawElement) bool {
		for _, k := range kinds {
			if r.Kind == k {
				return true
			}
		}
		return false
	}
}

func all(preds ...predicate) predicate {
	return func(r RawElement) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

func typeEquals(t string) predicate {
	return func(r RawElement) bool {
		return strings.EqualFold(r.Type, t)
	}
}

func nameEquals(v string) predicate {
	return func(r RawElement) bool {
		return strings.EqualFold(r.Name, v)
	}
}

func idEquals(v string) predicate {
	return func(r RawElement) bool {
		return strings.EqualFold(r.ID, v)
	}
}

func placeholderContains(v string) predicate {
	return func(r RawElement) bool {
		return contains(r.Placeholder, v)
	}
}

func textContains(v string) predicate {
	return func(r RawElement) bool {
		return contains(r.Text, v)
	}
}

func labelContains(v string) predicate {
	return func(r RawElement) bool {
		return contains(r.Label, v)
	}
}

func markerContains(v string) predicate {
	return func(r RawElement) bool {
		return contains(r.ClassName, v) || contains(r.TestID, v)
	}
}

var (
	isInput  = kindIs(rawInput)
	isButton = kindIs(rawButton)
	isLink   = kindIs(rawLink)
	isRadio  = kindIs(rawRadio)
	isMarker = kindIs(rawMarker)
	isText   = kindIs(rawText)
	isAction = kindIs(rawButton, rawLink)
)

// RulesFor returns the classification table of screen. successText feeds the
// success screen's message rule.
func RulesFor(screen entity.ScreenID, successText string) Rules {
	switch screen {
	case entity.ScreenLogin:
		return Rules{
			{entity.RoleEmailInput, all(isInput, typeEquals("email"))},
			{entity.RoleEmailInput, all(isInput, nameEquals("email"))},
			{entity.RoleEmailInput, all(isInput, idEquals("email"))},
			{entity.RoleEmailInput, all(isInput, placeholderContains("email"))},
			{entity.RolePasswordInput, all(isInput, typeEquals("password"))},
			{entity.RoleSignInButton, all(isButton, textContains("sign in"))},
			{entity.RoleForgotPasswordLink, all(isLink, textContains("forgot"))},
			{entity.RoleUserAvatar, all(isMarker, markerContains("avatar"))},
		}
	case entity.ScreenAuthenticated:
		return Rules{
			{entity.RoleTransactionsLink, all(isAction, textContains("transaction"))},
			{entity.RoleUserAvatar, all(isMarker, markerContains("avatar"))},
			{entity.RoleUserAvatar, all(isMarker, markerContains("user"))},
			{entity.RoleSignOutLink, all(isAction, textContains("sign out"))},
			{entity.RoleSignOutLink, all(isAction, textContains("logout"))},
		}
	case entity.ScreenForgotPassword:
		return Rules{
			{entity.RoleForgotEmailRadio, all(isRadio, labelContains("email address"))},
			{entity.RoleNextButton, all(isButton, textContains("next"))},
			{entity.RoleNextButton, all(isButton, typeEquals("submit"))},
		}
	case entity.ScreenSuccess:
		return Rules{
			{entity.RoleSuccessMessage, all(isText, textContains(successText))},
		}
	}

	return nil
}

// Classify assigns roles on one screen and fills the unfiltered collections.
func Classify(screen entity.ScreenID, raw []RawElement, rules Rules) entity.CapturedScreen {
	captured := entity.NewCapturedScreen(screen)

	descriptors := make([]entity.ElementDescriptor, len(raw))
	for i, r := range raw {
		descriptors[i] = describe(r)
	}

	claimed := make([]bool, len(raw))
	for _, row := range rules {
		if _, taken := captured.Elements[row.role]; taken {
			continue
		}

		pick := -1
		for i, r := range raw {
			if claimed[i] || !descriptors[i].Found() || !row.when(r) {
				continue
			}

			if !innermostRoles[row.role] {
				pick = i
				break
			}

			if pick < 0 || len(r.Text) <= len(raw[pick].Text) {
				pick = i
			}
		}

		if pick >= 0 {
			claimed[pick] = true
			captured.Elements[row.role] = descriptors[pick]
		}
	}

	for i, r := range raw {
		d := descriptors[i]
		switch r.Kind {
		case rawInput:
			captured.Collections[entity.RoleInputs] = append(captured.Collections[entity.RoleInputs], d)
		case rawRadio:
			captured.Collections[entity.RoleInputs] = append(captured.Collections[entity.RoleInputs], d)
			captured.Collections[entity.RoleRadioButtons] = append(captured.Collections[entity.RoleRadioButtons], d)
		case rawButton:
			captured.Collections[entity.RoleButtons] = append(captured.Collections[entity.RoleButtons], d)
		case rawLink:
			captured.Collections[entity.RoleLinks] = append(captured.Collections[entity.RoleLinks], d)
		}
	}

	return captured
}

func describe(r RawElement) entity.ElementDescriptor {
	kind := r.elementKind()
	attrs := r.attributes()

	return entity.ElementDescriptor{
		Kind:               kind,
		Attributes:         attrs,
		SelectorCandidates: selector.Rank(kind, attrs),
	}
}
