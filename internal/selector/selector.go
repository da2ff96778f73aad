// Package selector turns observed element attributes into an ordered list of
// selector candidates, most stable first.
package selector

import (
	"net/url"
	"regexp"
	"stepgen/internal/entity"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxTextRunes bounds free text embedded into text-based selectors.
const maxTextRunes = 80

var identPattern = regexp.MustCompile(`^-?[_a-zA-Z][_a-zA-Z0-9-]*$`)

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// Escape makes text safe to embed between double quotes in a selector. The
// backslash is handled in the same pass as the other characters, so escapes
// introduced for quotes are never doubled.
func Escape(text string) string {
	return escaper.Replace(text)
}

// Quote returns text escaped and wrapped in double quotes.
func Quote(text string) string {
	return `"` + Escape(text) + `"`
}

// Rank builds the selector candidates for one element in the fixed order
// id, name, type, placeholder, test id, aria label, value, text, href, class
// and finally the element's position among its tag. Absent attributes are
// skipped; an element with a known tag always yields at least the positional
// candidate.
func Rank(kind entity.ElementKind, attrs entity.Attributes) []string {
	tag := tagFor(kind, attrs)

	var out []string
	add := func(s string) {
		for _, existing := range out {
			if existing == s {
				return
			}
		}
		out = append(out, s)
	}

	if id := strings.TrimSpace(attrs.ID); id != "" {
		if identPattern.MatchString(id) {
			add("#" + id)
		} else {
			add("[id=" + Quote(id) + "]")
		}
	}

	if attrs.Name != "" {
		add("[name=" + Quote(attrs.Name) + "]")
	}

	if attrs.Type != "" && (kind == entity.KindInput || kind == entity.KindButton || kind == entity.KindRadio) {
		add(tag + "[type=" + Quote(attrs.Type) + "]")
	}

	if attrs.Placeholder != "" {
		add("[placeholder=" + Quote(attrs.Placeholder) + "]")
	}

	if attrs.TestID != "" {
		add("[data-testid=" + Quote(attrs.TestID) + "]")
	}

	if strings.TrimSpace(attrs.AriaLabel) != "" {
		add("[aria-label=" + Quote(attrs.AriaLabel) + "]")
	}

	if attrs.Value != "" && (kind == entity.KindInput || kind == entity.KindRadio) {
		add(tag + "[value=" + Quote(attrs.Value) + "]")
	}

	for _, s := range textSelectors(kind, tag, attrs) {
		add(s)
	}

	if kind == entity.KindLink && attrs.Href != "" {
		if segment := lastPathSegment(attrs.Href); segment != "" {
			add(`a[href*=` + Quote(segment) + `]`)
		} else {
			add(`a[href=` + Quote(attrs.Href) + `]`)
		}
	}

	if class := firstClass(attrs.ClassName); class != "" {
		if identPattern.MatchString(class) {
			add("." + class)
		} else {
			add("[class*=" + Quote(class) + "]")
		}
	}

	if attrs.Tag != "" {
		add(tag + " >> nth=" + strconv.Itoa(attrs.Index))
	}

	return out
}

func textSelectors(kind entity.ElementKind, tag string, attrs entity.Attributes) []string {
	switch kind {
	case entity.KindRadio:
		if label := Truncate(attrs.Label); label != "" {
			return []string{"label:has-text(" + Quote(label) + ")"}
		}
	case entity.KindText:
		text := Truncate(attrs.Text)
		if text == "" {
			break
		}

		out := []string{tag + ":has-text(" + Quote(text) + ")"}

		// text= matches the whole text exactly, so it only works untruncated.
		if text == collapse(attrs.Text) {
			out = append(out, "text="+Quote(text))
		}

		return out
	case entity.KindButton, entity.KindLink:
		if text := Truncate(attrs.Text); text != "" {
			return []string{tag + ":has-text(" + Quote(text) + ")"}
		}
	}

	return nil
}

func tagFor(kind entity.ElementKind, attrs entity.Attributes) string {
	if tag := strings.ToLower(strings.TrimSpace(attrs.Tag)); tag != "" {
		return tag
	}

	switch kind {
	case entity.KindButton:
		return "button"
	case entity.KindLink:
		return "a"
	case entity.KindText:
		return "div"
	default:
		return "input"
	}
}

// Truncate collapses whitespace runs and bounds text to maxTextRunes runes.
func Truncate(text string) string {
	text = collapse(text)
	if utf8.RuneCountInString(text) <= maxTextRunes {
		return text
	}

	runes := []rune(text)

	return strings.TrimSpace(string(runes[:maxTextRunes]))
}

func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func lastPathSegment(href string) string {
	if href == "" {
		return ""
	}

	path := href
	if u, err := url.Parse(href); err == nil && u.Path != "" {
		path = u.Path
	}

	path = strings.TrimRight(path, "/")
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		path = path[idx+1:]
	}

	return path
}

func firstClass(className string) string {
	if fields := strings.Fields(className); len(fields) > 0 {
		return fields[0]
	}

	return ""
}
