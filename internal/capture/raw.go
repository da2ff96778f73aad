package capture

import (
	"fmt"
	"stepgen/internal/entity"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Raw element kinds reported by the extraction script.
const (
	rawInput  = "input"
	rawRadio  = "radio"
	rawButton = "button"
	rawLink   = "link"
	rawMarker = "marker"
	rawText   = "text"
)

// RawElement is one record of the in-page extraction pass.
type RawElement struct {
	Kind        string `json:"kind"`
	Index       int    `json:"index"`
	Tag         string `json:"tag"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Placeholder string `json:"placeholder"`
	TestID      string `json:"testId"`
	ClassName   string `json:"className"`
	AriaLabel   string `json:"ariaLabel"`
	Text        string `json:"text"`
	Href        string `json:"href"`
	Label       string `json:"label"`
	Value       string `json:"value"`
	Disabled    bool   `json:"disabled"`
}

type extraction struct {
	Elements []RawElement `json:"elements"`
	Error    string       `json:"error"`
}

// Decode converts an evaluate-in-page result into raw elements. A script
// level error is returned together with whatever was extracted before it.
func Decode(result any) ([]RawElement, error) {
	if result == nil {
		return nil, fmt.Errorf("empty evaluation result")
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal evaluation result: %w", err)
	}

	var ex extraction
	if err := json.Unmarshal(data, &ex); err != nil {
		return nil, fmt.Errorf("decode evaluation result: %w", err)
	}

	if ex.Error != "" {
		return ex.Elements, fmt.Errorf("extraction script: %s", ex.Error)
	}

	return ex.Elements, nil
}

func (r RawElement) elementKind() entity.ElementKind {
	switch r.Kind {
	case rawRadio:
		return entity.KindRadio
	case rawButton:
		return entity.KindButton
	case rawLink:
		return entity.KindLink
	case rawMarker, rawText:
		return entity.KindText
	default:
		return entity.KindInput
	}
}

func (r RawElement) attributes() entity.Attributes {
	return entity.Attributes{
		Tag:         strings.ToLower(r.Tag),
		ID:          r.ID,
		Name:        r.Name,
		Type:        strings.ToLower(r.Type),
		Placeholder: r.Placeholder,
		TestID:      r.TestID,
		ClassName:   r.ClassName,
		Text:        r.Text,
		Href:        r.Href,
		Label:       r.Label,
		AriaLabel:   r.AriaLabel,
		Value:       r.Value,
		Disabled:    r.Disabled,
		Index:       r.Index,
	}
}
