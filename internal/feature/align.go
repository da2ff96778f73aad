package feature

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"stepgen/internal/entity"
	"stepgen/pkg/apperr"
	"stepgen/pkg/fsutil"
	"strconv"
	"strings"
)

var registrationPattern = regexp.MustCompile(`\b(Given|When|Then|And|But)\(("(?:[^"\\\n]|\\.)*")`)

// Fix records one rewritten step registration.
type Fix struct {
	Keyword  entity.Keyword
	Text     string
	Previous string
	Line     int
}

type registration struct {
	keyword entity.Keyword
	text    string
	start   int
	end     int
}

func registrationCall(keyword entity.Keyword, text string) string {
	return string(keyword) + "(" + strconv.Quote(text)
}

func findRegistrations(source string) []registration {
	var out []registration

	for _, m := range registrationPattern.FindAllStringSubmatchIndex(source, -1) {
		text, err := strconv.Unquote(source[m[4]:m[5]])
		if err != nil {
			continue
		}

		keyword, _ := entity.ParseKeyword(source[m[2]:m[3]])
		out = append(out, registration{
			keyword: keyword,
			text:    text,
			start:   m[0],
			end:     m[1],
		})
	}

	return out
}

// Align rewrites step registrations in generated source so that every step
// of feature has one. A missing step takes over the first stale registration
// with the same keyword, or else the first stale registration of any keyword.
// A registration is stale when no step of feature has its keyword and text.
// Ties are never scored; the first candidate wins.
func Align(source string, feature *entity.Feature) (string, []Fix) {
	wanted := make(map[string]bool)
	for _, sc := range feature.Scenarios {
		for _, st := range sc.Steps {
			wanted[registrationCall(st.Keyword, st.Text)] = true
		}
	}

	var fixes []Fix

	for _, sc := range feature.Scenarios {
		for _, st := range sc.Steps {
			expected := registrationCall(st.Keyword, st.Text)
			if strings.Contains(source, expected) {
				continue
			}

			var stale []registration
			for _, reg := range findRegistrations(source) {
				if !wanted[registrationCall(reg.keyword, reg.text)] {
					stale = append(stale, reg)
				}
			}

			if len(stale) == 0 {
				continue
			}

			target := stale[0]
			for _, reg := range stale {
				if reg.keyword == st.Keyword {
					target = reg
					break
				}
			}

			fixes = append(fixes, Fix{
				Keyword:  st.Keyword,
				Text:     st.Text,
				Previous: source[target.start:target.end],
				Line:     strings.Count(source[:target.start], "\n") + 1,
			})

			source = source[:target.start] + expected + source[target.end:]
		}
	}

	return source, fixes
}

// AlignFile aligns a generated step file with a feature file. The generated
// file is rewritten only when at least one registration changed.
func AlignFile(generatedPath, featurePath string) ([]Fix, error) {
	const op = "feature.AlignFile"

	feature, err := ParseFile(featurePath)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(generatedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.NotFoundError(op, fmt.Errorf("generated file %s: %w", generatedPath, err))
		}

		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "read_failed",
			apperr.MetaStage:  apperr.StageAlignment,
			apperr.MetaPath:   generatedPath,
		})
	}

	aligned, fixes := Align(string(content), feature)
	if len(fixes) == 0 {
		return fixes, nil
	}

	perm := os.FileMode(0o644)
	if info, statErr := os.Stat(generatedPath); statErr == nil {
		perm = info.Mode().Perm()
	}

	if err := fsutil.WriteAtomic(generatedPath, []byte(aligned), perm); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeWriteFailed, err, map[string]any{
			apperr.MetaReason: "write_failed",
			apperr.MetaStage:  apperr.StageAlignment,
			apperr.MetaPath:   generatedPath,
		})
	}

	return fixes, nil
}
