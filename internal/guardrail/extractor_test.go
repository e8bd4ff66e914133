package guardrail

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v0xg/webexplore/internal/crawler"
	"github.com/v0xg/webexplore/internal/metrics"
	"github.com/v0xg/webexplore/internal/urlnorm"
)

func link(text, href string) crawler.Element {
	return crawler.Element{
		Type:     crawler.TypeLink,
		Text:     text,
		Href:     href,
		Selector: "a[href=\"" + href + "\"]",
		IsLink:   true,
		TagName:  "a",
		Visible:  true,
	}
}

func button(text, selector string) crawler.Element {
	return crawler.Element{
		Type:     crawler.TypeButton,
		Text:     text,
		Selector: selector,
		TagName:  "button",
		Visible:  true,
	}
}

func newExtractor(t *testing.T, cfg Config) *Extractor {
	t.Helper()
	if cfg.StartURL == "" {
		cfg.StartURL = "https://x.com/"
	}
	e, err := NewExtractor(cfg, nil, nil)
	require.NoError(t, err)
	return e
}

func texts(els []crawler.Element) []string {
	out := make([]string, len(els))
	for i, el := range els {
		out[i] = el.Text
	}
	return out
}

func TestExtractStayOnDomain(t *testing.T) {
	e := newExtractor(t, Config{StayOnDomain: true})

	out, stats := e.Extract([]crawler.Element{
		link("Home", "https://x.com/home"),
		link("Elsewhere", "https://y.com/p"),
		link("Relative", "/about"),
		link("Mail", "mailto:team@x.com"),
	}, "https://x.com/", urlnorm.NewSet())

	assert.Equal(t, []string{"Home", "Relative"}, texts(out))
	assert.Equal(t, 2, stats.Removed[RuleOffDomain])
}

func TestExtractPathPrefixTakesPrecedence(t *testing.T) {
	e := newExtractor(t, Config{StayOnDomain: true, StayOnPathPrefix: "/docs"})

	out, stats := e.Extract([]crawler.Element{
		link("Docs", "/docs/intro"),
		link("Blog", "/blog"),
		link("Docs root", "https://x.com/docs"),
	}, "https://x.com/docs/", urlnorm.NewSet())

	assert.Equal(t, []string{"Docs", "Docs root"}, texts(out))
	assert.Equal(t, 1, stats.Removed[RuleOffPath])
}

func TestExtractFailOpenOnUnparseableHref(t *testing.T) {
	e := newExtractor(t, Config{StayOnDomain: true})

	out, stats := e.Extract([]crawler.Element{
		link("Broken", "http://[::1"),
		link("Escape", "/bad%zz"),
	}, "https://x.com/", urlnorm.NewSet())

	assert.Equal(t, []string{"Broken", "Escape"}, texts(out))
	assert.Equal(t, 2, stats.FailOpen)
}

func TestExtractFailOpenOnUnparseableCurrentURL(t *testing.T) {
	e := newExtractor(t, Config{StayOnDomain: true})

	out, stats := e.Extract([]crawler.Element{link("Away", "https://y.com/")}, "http://[bad", urlnorm.NewSet())

	assert.Len(t, out, 1)
	assert.Equal(t, 1, stats.FailOpen)
}

func TestExtractVisitedRedundancy(t *testing.T) {
	e := newExtractor(t, Config{StayOnDomain: true})
	visited := urlnorm.NewSet("https://x.com/a", "/raw")

	out, stats := e.Extract([]crawler.Element{
		link("A again", "https://X.com/a/#top"),
		link("A relative", "/a"),
		link("Raw", "/raw"),
		link("B", "/b"),
		button("Submit", "#submit"),
	}, "https://x.com/", visited)

	assert.Equal(t, []string{"B", "Submit"}, texts(out))
	assert.Equal(t, 3, stats.Removed[RuleVisited])
}

func TestExtractVisibilityAndTags(t *testing.T) {
	hidden := button("Hidden", "#hidden")
	hidden.Visible = false
	script := button("Script", "#script")
	script.TagName = "SCRIPT"

	e := newExtractor(t, Config{IgnoredTags: []string{"script"}})
	out, stats := e.Extract([]crawler.Element{hidden, script, button("Shown", "#shown")}, "https://x.com/", urlnorm.NewSet())
	assert.Equal(t, []string{"Shown"}, texts(out))
	assert.Equal(t, 1, stats.Removed[RuleInvisible])
	assert.Equal(t, 1, stats.Removed[RuleIgnoredTag])

	e = newExtractor(t, Config{IncludeInvisible: true})
	out, _ = e.Extract([]crawler.Element{hidden}, "https://x.com/", urlnorm.NewSet())
	assert.Len(t, out, 1)
}

func TestExtractAutoGeneratedIDs(t *testing.T) {
	generated := button("Save", "#btn-3f9a8c7d2e1b")
	generated.ID = "btn-3f9a8c7d2e1b"
	wordy := button("Facade", "#facadedecaf")
	wordy.ID = "facadedecaf"
	nested := button("Nested", "div.css-1a2b3c4d5e6f > button:nth-child(2)")

	e := newExtractor(t, Config{})
	out, stats := e.Extract([]crawler.Element{generated, wordy, nested, button("Plain", "#save")}, "https://x.com/", urlnorm.NewSet())

	assert.Equal(t, []string{"Facade", "Plain"}, texts(out))
	assert.Equal(t, 2, stats.Removed[RuleNoise])
}

func TestExtractExcludePatterns(t *testing.T) {
	e := newExtractor(t, Config{StayOnDomain: true, ExcludePatterns: []string{"/logout*", "*/delete/*"}})

	out, stats := e.Extract([]crawler.Element{
		link("Logout", "/logout?next=/"),
		link("Delete", "/items/delete/4"),
		link("Items", "/items"),
	}, "https://x.com/", urlnorm.NewSet())

	assert.Equal(t, []string{"Items"}, texts(out))
	assert.Equal(t, 2, stats.Removed[RuleExcluded])
}

func TestExtractTruncatesPreservingOrder(t *testing.T) {
	var els []crawler.Element
	for i := 0; i < 20; i++ {
		if i%3 == 0 {
			el := button(fmt.Sprintf("hidden-%d", i), fmt.Sprintf("#h%d", i))
			el.Visible = false
			els = append(els, el)
			continue
		}
		els = append(els, button(fmt.Sprintf("b-%d", i), fmt.Sprintf("#b%d", i)))
	}

	e := newExtractor(t, Config{MaxElements: 5})
	out, stats := e.Extract(els, "https://x.com/", urlnorm.NewSet())

	require.Len(t, out, 5)
	assert.Equal(t, []string{"b-1", "b-2", "b-4", "b-5", "b-7"}, texts(out))
	assert.Equal(t, 8, stats.Removed[RuleTruncated])
	assert.Equal(t, 5, stats.Output)
}

func TestExtractRecordsMetrics(t *testing.T) {
	m := metrics.New()
	e, err := NewExtractor(Config{StartURL: "https://x.com/", StayOnDomain: true}, nil, m)
	require.NoError(t, err)

	e.Extract([]crawler.Element{link("Away", "https://y.com/")}, "https://x.com/", urlnorm.NewSet())

	counters, err := m.Counters()
	require.NoError(t, err)
	assert.Equal(t, 1.0, counters["webexplore_guardrail_removed_total{rule=off-domain}"])
}

func TestAllows(t *testing.T) {
	e := newExtractor(t, Config{StayOnDomain: true, ExcludePatterns: []string{"/admin*"}})

	assert.True(t, e.Allows("https://x.com/page"))
	assert.False(t, e.Allows("https://y.com/page"))
	assert.False(t, e.Allows("https://x.com/admin/users"))
	assert.True(t, e.Allows("http://[::1"))
}

func TestNewExtractorErrors(t *testing.T) {
	_, err := NewExtractor(Config{StayOnDomain: true, StartURL: "/relative"}, nil, nil)
	assert.ErrorContains(t, err, "absolute start URL")

	_, err = NewExtractor(Config{StartURL: "https://x.com", ExcludePatterns: []string{"[oops"}}, nil, nil)
	assert.ErrorContains(t, err, "invalid exclude pattern")
}
