// Package guardrail filters raw page scans down to the elements the explorer
// is allowed to consider. Rules here apply before any decision strategy runs,
// so nothing a recommender proposes can bypass them.
package guardrail

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gobwas/glob"
	"github.com/v0xg/webexplore/internal/crawler"
	"github.com/v0xg/webexplore/internal/logging"
	"github.com/v0xg/webexplore/internal/metrics"
	"github.com/v0xg/webexplore/internal/urlnorm"
)

// Rule names, in pipeline order.
const (
	RuleInvisible  = "invisible"
	RuleIgnoredTag = "ignored-tag"
	RuleNoise      = "auto-generated"
	RuleOffPath    = "off-path"
	RuleOffDomain  = "off-domain"
	RuleExcluded   = "excluded"
	RuleVisited    = "visited"
	RuleTruncated  = "truncated"
)

// Config is the session-scoped guardrail configuration.
type Config struct {
	StartURL         string
	StayOnDomain     bool
	StayOnPathPrefix string // empty means unset
	IncludeInvisible bool
	MaxElements      int // <= 0 disables truncation
	IgnoredTags      []string
	ExcludePatterns  []string
}

// Stats counts removals per rule for one Extract call.
type Stats struct {
	Input   int
	Output  int
	Removed map[string]int
	// FailOpen counts hrefs the domain/path rule could not parse and let through.
	FailOpen int
}

// hexRun finds long hex-like tokens; ids containing one that also has a digit
// are treated as generated by a framework and unstable across loads.
var hexRun = regexp.MustCompile(`[0-9a-fA-F]{10,}`)

// Extractor applies the guardrail pipeline. It holds no per-step state.
type Extractor struct {
	cfg         Config
	startHost   string
	ignoredTags map[string]struct{}
	excludes    []glob.Glob
	logger      *log.Logger
	metrics     *metrics.Metrics
}

// NewExtractor compiles cfg. The start URL must be absolute when
// StayOnDomain is set, since its hostname defines the session domain.
func NewExtractor(cfg Config, logger *log.Logger, m *metrics.Metrics) (*Extractor, error) {
	e := &Extractor{
		cfg:         cfg,
		ignoredTags: make(map[string]struct{}, len(cfg.IgnoredTags)),
		logger:      logging.OrDiscard(logger).With("component", "guardrail"),
		metrics:     m,
	}

	if cfg.StartURL != "" {
		u, err := url.Parse(cfg.StartURL)
		if err != nil {
			return nil, fmt.Errorf("parse start URL: %w", err)
		}
		e.startHost = strings.ToLower(u.Hostname())
	}
	if cfg.StayOnDomain && e.startHost == "" {
		return nil, fmt.Errorf("stayOnDomain requires an absolute start URL, got %q", cfg.StartURL)
	}

	for _, tag := range cfg.IgnoredTags {
		e.ignoredTags[strings.ToLower(tag)] = struct{}{}
	}

	for _, pattern := range cfg.ExcludePatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern '%s': %w", pattern, err)
		}
		e.excludes = append(e.excludes, g)
	}

	return e, nil
}

// Extract filters elements scanned at currentURL. Survivors keep their
// relative order and are capped at MaxElements.
func (e *Extractor) Extract(elements []crawler.Element, currentURL string, visited *urlnorm.Set) ([]crawler.Element, Stats) {
	stats := Stats{Input: len(elements), Removed: make(map[string]int)}
	base, baseErr := url.Parse(currentURL)

	out := make([]crawler.Element, 0, len(elements))
	for _, el := range elements {
		rule, failOpen := e.check(el, base, baseErr, visited)
		if failOpen {
			stats.FailOpen++
		}
		if rule != "" {
			stats.Removed[rule]++
			continue
		}
		out = append(out, el)
	}

	if e.cfg.MaxElements > 0 && len(out) > e.cfg.MaxElements {
		stats.Removed[RuleTruncated] = len(out) - e.cfg.MaxElements
		out = out[:e.cfg.MaxElements]
	}
	stats.Output = len(out)

	for rule, n := range stats.Removed {
		e.metrics.GuardrailRemoved(rule, n)
	}
	e.logger.Debug("extracted candidates",
		"url", currentURL,
		"input", stats.Input,
		"output", stats.Output,
		"invisible", stats.Removed[RuleInvisible],
		"ignoredTag", stats.Removed[RuleIgnoredTag],
		"noise", stats.Removed[RuleNoise],
		"offPath", stats.Removed[RuleOffPath],
		"offDomain", stats.Removed[RuleOffDomain],
		"excluded", stats.Removed[RuleExcluded],
		"visited", stats.Removed[RuleVisited],
		"truncated", stats.Removed[RuleTruncated],
		"failOpen", stats.FailOpen,
	)

	return out, stats
}

// check returns the first rule that drops el, or "" to keep it.
func (e *Extractor) check(el crawler.Element, base *url.URL, baseErr error, visited *urlnorm.Set) (rule string, failOpen bool) {
	if !el.Visible && !e.cfg.IncludeInvisible {
		return RuleInvisible, false
	}

	if _, ok := e.ignoredTags[strings.ToLower(el.TagName)]; ok {
		return RuleIgnoredTag, false
	}

	if looksGenerated(el.ID) || looksGenerated(el.Selector) {
		return RuleNoise, false
	}

	if !isLink(el) {
		return "", false
	}

	// Fail-open: an href that cannot be resolved is let through so the click
	// fails visibly at the action layer instead of disappearing here.
	resolved, err := resolve(base, baseErr, el.Href)
	if err != nil {
		e.logger.Debug("guardrail fail-open", "href", el.Href, "error", err)
		failOpen = true
	} else if rule := e.navigationRule(resolved); rule != "" {
		return rule, false
	}

	if visited.Contains(el.Href) || (resolved != nil && visited.Contains(resolved.String())) {
		return RuleVisited, failOpen
	}

	return "", failOpen
}

// navigationRule applies the domain/path restriction and exclude patterns
// to an absolute URL.
func (e *Extractor) navigationRule(u *url.URL) string {
	switch {
	case e.cfg.StayOnPathPrefix != "":
		if !strings.HasPrefix(u.Path, e.cfg.StayOnPathPrefix) {
			return RuleOffPath
		}
	case e.cfg.StayOnDomain:
		if strings.ToLower(u.Hostname()) != e.startHost {
			return RuleOffDomain
		}
	}

	for _, g := range e.excludes {
		if g.Match(u.Path) || g.Match(u.String()) {
			return RuleExcluded
		}
	}
	return ""
}

// Allows reports whether navigating to rawURL respects the domain/path
// guardrail and exclude patterns. Unparseable URLs are allowed, matching
// the fail-open policy of Extract.
func (e *Extractor) Allows(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	return e.navigationRule(u) == ""
}

func isLink(el crawler.Element) bool {
	return el.Href != "" && (el.IsLink || el.Type == crawler.TypeLink)
}

func resolve(base *url.URL, baseErr error, href string) (*url.URL, error) {
	if baseErr != nil {
		return nil, fmt.Errorf("parse current URL: %w", baseErr)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(ref), nil
}

func looksGenerated(s string) bool {
	for _, run := range hexRun.FindAllString(s, -1) {
		if strings.ContainsAny(run, "0123456789") {
			return true
		}
	}
	return false
}
