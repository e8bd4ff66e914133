package executor

import (
	"strings"

	"github.com/v0xg/webexplore/internal/crawler"
)

// Kind is the interaction performed on an element.
type Kind string

const (
	KindClick Kind = "click"
	KindType  Kind = "type"
)

// Result is what an action reports back to the exploration loop.
type Result struct {
	Success      bool   `json:"success"`
	ResultingURL string `json:"resultingUrl,omitempty"`
	// X and Y are the viewport center of the element, 0 when unknown.
	X int `json:"x,omitempty"`
	Y int `json:"y,omitempty"`
}

// clickInputTypes are <input> types that toggle or submit rather than accept text.
var clickInputTypes = map[string]bool{
	"checkbox": true,
	"radio":    true,
	"file":     true,
	"color":    true,
	"range":    true,
	"submit":   true,
	"button":   true,
	"reset":    true,
	"image":    true,
}

// KindFor picks the interaction for el: text-like inputs are typed into,
// everything else is clicked.
func KindFor(el crawler.Element) Kind {
	if el.Type != crawler.TypeInput {
		return KindClick
	}
	tag := strings.ToLower(el.TagName)
	if tag == "select" {
		return KindClick
	}
	if tag == "input" && clickInputTypes[strings.ToLower(el.InputType)] {
		return KindClick
	}
	return KindType
}

// SampleValue returns a plausible value to type into el.
func SampleValue(el crawler.Element) string {
	switch strings.ToLower(el.InputType) {
	case "email":
		return "explorer@example.com"
	case "password":
		return "Explorer-123!"
	case "number":
		return "42"
	case "tel":
		return "+15550100"
	case "url":
		return "https://example.com"
	case "date":
		return "2024-01-15"
	case "search":
		return "test"
	}

	hint := strings.ToLower(el.Name + " " + el.Placeholder + " " + el.ID)
	switch {
	case strings.Contains(hint, "email"):
		return "explorer@example.com"
	case strings.Contains(hint, "phone"):
		return "+15550100"
	case strings.Contains(hint, "name"):
		return "Alex Explorer"
	default:
		return "test"
	}
}
