package entity

import (
	"time"

	"github.com/google/uuid"
)

type Keyword string

const (
	KeywordGiven Keyword = "Given"
	KeywordWhen  Keyword = "When"
	KeywordThen  Keyword = "Then"
	KeywordAnd   Keyword = "And"
	KeywordBut   Keyword = "But"
)

// Keywords lists the recognized step keywords in a stable order.
var Keywords = []Keyword{KeywordGiven, KeywordWhen, KeywordThen, KeywordAnd, KeywordBut}

func ParseKeyword(s string) (Keyword, bool) {
	for _, kw := range Keywords {
		if string(kw) == s {
			return kw, true
		}
	}

	return "", false
}

// Step is one scenario line. And/But are kept literal, never resolved to the
// preceding primary keyword.
type Step struct {
	Keyword Keyword `yaml:"keyword"`
	Text    string  `yaml:"text"`
	Line    int     `yaml:"line"`
}

type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
	Line  int    `yaml:"line"`
}

type Feature struct {
	Name       string     `yaml:"name"`
	Scenarios  []Scenario `yaml:"scenarios"`
	SourceFile string     `yaml:"source_file"`
}

func (f *Feature) StepCount() int {
	count := 0
	for _, sc := range f.Scenarios {
		count += len(sc.Steps)
	}

	return count
}

type StepImplementation struct {
	MatchedPattern string
	GeneratedBody  string
}

// GenerationResult summarizes one feature's generation run.
type GenerationResult struct {
	RunID       uuid.UUID
	FeaturePath string
	OutputPath  string
	Steps       int
	Matched     int
	Screens     []ScreenID
	StartedAt   time.Time
	Duration    time.Duration
	// Err is set when the feature was skipped by a batch run.
	Err         error
}
