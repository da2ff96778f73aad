// Package feature reads Gherkin-style feature documents and keeps generated
// step files in line with them.
package feature

import (
	"errors"
	"fmt"
	"os"
	"stepgen/internal/entity"
	"stepgen/pkg/apperr"
	"strings"
)

const (
	featurePrefix         = "Feature:"
	scenarioPrefix        = "Scenario:"
	scenarioOutlinePrefix = "Scenario Outline:"
)

// Parse builds a Feature tree from document text. Indentation and blank
// lines are insignificant; comments and tags are skipped. A document without
// scenarios still yields the parsed Feature together with a no_scenarios
// error.
func Parse(content, sourcePath string) (*entity.Feature, error) {
	const op = "feature.Parse"

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	feature := &entity.Feature{SourceFile: sourcePath}

	var current *entity.Scenario
	flush := func() {
		if current != nil {
			feature.Scenarios = append(feature.Scenarios, *current)
			current = nil
		}
	}

	for i, line := range strings.Split(content, "\n") {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "", strings.HasPrefix(trimmed, "#"), strings.HasPrefix(trimmed, "@"):
			continue
		case strings.HasPrefix(trimmed, featurePrefix):
			feature.Name = strings.TrimSpace(strings.TrimPrefix(trimmed, featurePrefix))
		case strings.HasPrefix(trimmed, scenarioOutlinePrefix):
			flush()
			current = &entity.Scenario{
				Name: strings.TrimSpace(strings.TrimPrefix(trimmed, scenarioOutlinePrefix)),
				Line: lineNo,
			}
		case strings.HasPrefix(trimmed, scenarioPrefix):
			flush()
			current = &entity.Scenario{
				Name: strings.TrimSpace(strings.TrimPrefix(trimmed, scenarioPrefix)),
				Line: lineNo,
			}
		default:
			step, ok := parseStep(trimmed, lineNo)
			if !ok || current == nil {
				continue
			}
			current.Steps = append(current.Steps, step)
		}
	}

	// the last scenario has no following declaration to close it
	flush()

	if len(feature.Scenarios) == 0 {
		return feature, apperr.Wrap(op, apperr.CodeNoScenarios, errors.New("no scenarios found in feature document"), map[string]any{
			apperr.MetaReason: "no_scenarios",
			apperr.MetaStage:  apperr.StageSetup,
			apperr.MetaPath:   sourcePath,
		})
	}

	return feature, nil
}

// parseStep recognizes "<Keyword><whitespace><text>".
func parseStep(line string, lineNo int) (entity.Step, bool) {
	idx := strings.IndexAny(line, " \t")
	if idx <= 0 {
		return entity.Step{}, false
	}

	keyword, ok := entity.ParseKeyword(line[:idx])
	if !ok {
		return entity.Step{}, false
	}

	text := strings.TrimSpace(line[idx:])
	if text == "" {
		return entity.Step{}, false
	}

	return entity.Step{Keyword: keyword, Text: text, Line: lineNo}, true
}

func ParseFile(path string) (*entity.Feature, error) {
	const op = "feature.ParseFile"

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.NotFoundError(op, fmt.Errorf("feature file %s: %w", path, err))
		}

		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "read_failed",
			apperr.MetaStage:  apperr.StageSetup,
			apperr.MetaPath:   path,
		})
	}

	return Parse(string(content), path)
}
