// Package heuristic picks an element without consulting the recommender.
package heuristic

import (
	"errors"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/v0xg/webexplore/internal/crawler"
	"github.com/v0xg/webexplore/internal/urlnorm"
)

// ErrNoCandidates is returned when there is nothing to choose from.
var ErrNoCandidates = errors.New("no candidate elements")

// maxLinkText skips footer boilerplate such as long legal notices.
const maxLinkText = 50

// actionVerbs mark buttons that tend to move the application forward.
var actionVerbs = []string{
	"submit", "search", "login", "log in", "sign in", "signin", "sign up", "register",
	"next", "continue", "view", "explore", "add", "start", "open", "show", "more",
	"details", "create", "new", "go", "get started", "learn", "browse", "apply",
}

// Selector is the deterministic-first fallback policy.
type Selector struct {
	rng *rand.Rand
}

// NewSelector creates a Selector. A nil rng uses a time-seeded source.
func NewSelector(rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{rng: rng}
}

// Select returns the index of the element to act on. It is total over any
// non-empty slice; only an empty slice yields ErrNoCandidates.
//
// Preference order: an unvisited link with short, non-empty text that
// navigates to another page; then such a link pointing at an in-page anchor;
// then a button whose text contains an action verb; then any element at random.
func (s *Selector) Select(elements []crawler.Element, visited *urlnorm.Set) (int, error) {
	if len(elements) == 0 {
		return -1, ErrNoCandidates
	}

	anchorLink := -1
	for i, el := range elements {
		if !qualifyingLink(el, visited) {
			continue
		}
		if !strings.Contains(el.Href, "#") {
			return i, nil
		}
		if anchorLink < 0 {
			anchorLink = i
		}
	}
	if anchorLink >= 0 {
		return anchorLink, nil
	}

	for i, el := range elements {
		if isActionButton(el) {
			return i, nil
		}
	}

	return s.rng.Intn(len(elements)), nil
}

func qualifyingLink(el crawler.Element, visited *urlnorm.Set) bool {
	if !el.IsLink || el.Href == "" {
		return false
	}
	text := strings.TrimSpace(el.Text)
	if text == "" || utf8.RuneCountInString(text) > maxLinkText {
		return false
	}
	if strings.HasPrefix(strings.TrimSpace(el.Href), "#") {
		return false
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(el.Href)), "javascript:") {
		return false
	}
	return !visited.Contains(el.Href)
}

func isActionButton(el crawler.Element) bool {
	if el.IsLink || el.Type != crawler.TypeButton {
		return false
	}
	words := strings.FieldsFunc(strings.ToLower(el.Text), func(r rune) bool {
		return r < 'a' || r > 'z'
	})
	// Padded so multi-word verbs only match on word boundaries.
	text := " " + strings.Join(words, " ") + " "
	for _, verb := range actionVerbs {
		if strings.Contains(text, " "+verb+" ") {
			return true
		}
	}
	return false
}
