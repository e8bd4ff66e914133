package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/v0xg/webexplore/internal/crawler"
)

func TestBuildUserPrompt(t *testing.T) {
	pc := PageContext{
		URL:      "https://x.com/",
		Title:    "Home",
		Headings: []string{"Welcome", "Features"},
		Elements: []crawler.Element{
			{Type: crawler.TypeLink, Text: "Go to A", Href: "/a", IsLink: true},
			{Type: crawler.TypeButton, Text: "Submit"},
			{Type: crawler.TypeInput, Placeholder: "Search docs"},
		},
		VisitedURLs:        []string{"https://x.com/"},
		TargetNavigations:  10,
		CurrentNavigations: 3,
		RecentInteractions: []string{`click:#nav "Docs"`},
	}

	prompt := buildUserPrompt(pc)

	for _, want := range []string{
		"URL: https://x.com/",
		"Title: Home",
		"Headings: Welcome | Features",
		"3/10 page navigations achieved",
		"1 distinct pages visited",
		"Do not repeat these recent interactions:\n  - click:#nav \"Docs\"",
		`0: link - "Go to A" (/a)`,
		`1: button - "Submit"`,
		`2: input - "Search docs"`,
		"between 0 and 2",
	} {
		assert.Contains(t, prompt, want)
	}
}

func TestBuildUserPromptWithoutTarget(t *testing.T) {
	prompt := buildUserPrompt(PageContext{
		URL:      "https://x.com/",
		Elements: []crawler.Element{{Type: crawler.TypeButton, Text: "Go"}},
	})

	assert.Contains(t, prompt, "0 page navigations achieved")
	assert.False(t, strings.Contains(prompt, "Do not repeat"))
	assert.False(t, strings.Contains(prompt, "Title:"))
}
