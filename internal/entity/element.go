package entity

type ElementKind string

const (
	KindInput  ElementKind = "input"
	KindButton ElementKind = "button"
	KindLink   ElementKind = "link"
	KindRadio  ElementKind = "radio"
	KindText   ElementKind = "text"
)

// Attributes holds the observed DOM attributes of an element. An empty string
// means the attribute was absent. Index is the element's position among the
// elements sharing its tag, in document order.
type Attributes struct {
	Tag         string `yaml:"tag,omitempty"`
	ID          string `yaml:"id,omitempty"`
	Name        string `yaml:"name,omitempty"`
	Type        string `yaml:"type,omitempty"`
	Placeholder string `yaml:"placeholder,omitempty"`
	TestID      string `yaml:"test_id,omitempty"`
	ClassName   string `yaml:"class_name,omitempty"`
	Text        string `yaml:"text,omitempty"`
	Href        string `yaml:"href,omitempty"`
	Label       string `yaml:"label,omitempty"`
	AriaLabel   string `yaml:"aria_label,omitempty"`
	Value       string `yaml:"value,omitempty"`
	Disabled    bool   `yaml:"disabled,omitempty"`
	Index       int    `yaml:"index"`
}

// ElementDescriptor is immutable once captured. An empty SelectorCandidates
// means the element was not observed.
type ElementDescriptor struct {
	Kind               ElementKind `yaml:"kind"`
	Attributes         Attributes  `yaml:"attributes"`
	SelectorCandidates []string    `yaml:"selectors"`
}

func (d ElementDescriptor) Found() bool {
	return len(d.SelectorCandidates) > 0
}

// Primary returns the most stable selector candidate, or "" when the element
// was not observed.
func (d ElementDescriptor) Primary() string {
	if !d.Found() {
		return ""
	}

	return d.SelectorCandidates[0]
}

type Role string

const (
	RoleEmailInput         Role = "emailInput"
	RolePasswordInput      Role = "passwordInput"
	RoleSignInButton       Role = "signInButton"
	RoleForgotPasswordLink Role = "forgotPasswordLink"
	RoleUserAvatar         Role = "userAvatar"
	RoleTransactionsLink   Role = "transactionsLink"
	RoleSignOutLink        Role = "signOutLink"
	RoleForgotEmailRadio   Role = "forgotEmailRadio"
	RoleNextButton         Role = "nextButton"
	RoleSuccessMessage     Role = "successMessage"

	RoleInputs       Role = "inputs"
	RoleButtons      Role = "buttons"
	RoleLinks        Role = "links"
	RoleRadioButtons Role = "radioButtons"
)

type ScreenID string

const (
	ScreenLogin          ScreenID = "login"
	ScreenAuthenticated  ScreenID = "authenticated"
	ScreenForgotPassword ScreenID = "forgot-password"
	ScreenSuccess        ScreenID = "success"
)

// CapturedScreen owns the descriptors captured on one screen. Elements holds
// the single-element roles, Collections the unfiltered per-kind lists.
type CapturedScreen struct {
	ScreenID    ScreenID                     `yaml:"screen"`
	URL         string                       `yaml:"url,omitempty"`
	Elements    map[Role]ElementDescriptor   `yaml:"elements,omitempty"`
	Collections map[Role][]ElementDescriptor `yaml:"collections,omitempty"`
	Partial     bool                         `yaml:"partial,omitempty"`
	Error       string                       `yaml:"error,omitempty"`
}

func NewCapturedScreen(id ScreenID) CapturedScreen {
	return CapturedScreen{
		ScreenID:    id,
		Elements:    make(map[Role]ElementDescriptor),
		Collections: make(map[Role][]ElementDescriptor),
	}
}

// Element returns the descriptor for role; the zero descriptor (not found)
// when the role was not classified.
func (c CapturedScreen) Element(role Role) ElementDescriptor {
	return c.Elements[role]
}

func (c CapturedScreen) Collection(role Role) []ElementDescriptor {
	return c.Collections[role]
}
