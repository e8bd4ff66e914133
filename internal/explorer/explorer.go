// Package explorer runs the exploration loop: scan the page, filter the
// candidates, decide on one, act on it, settle, and repeat until a budget or
// terminal condition ends the session.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/v0xg/webexplore/internal/ai"
	"github.com/v0xg/webexplore/internal/crawler"
	"github.com/v0xg/webexplore/internal/executor"
	"github.com/v0xg/webexplore/internal/guardrail"
	"github.com/v0xg/webexplore/internal/heuristic"
	"github.com/v0xg/webexplore/internal/logging"
	"github.com/v0xg/webexplore/internal/metrics"
)

// Driver is the browser collaborator. The loop never touches the DOM
// directly; it only consumes element lists and URLs from here.
type Driver interface {
	Scan(ctx context.Context) (*crawler.PageMap, error)
	Act(ctx context.Context, el crawler.Element, kind executor.Kind, value string) (executor.Result, error)
	// Settle waits for the page to calm down and returns its location.
	Settle(ctx context.Context) (string, error)
	Navigate(ctx context.Context, url string) error
}

// Decider recommends an element, or returns nil to request the fallback.
type Decider interface {
	Decide(ctx context.Context, pc ai.PageContext) *ai.Recommendation
}

// Config holds the session budgets.
type Config struct {
	StartURL               string
	MaxClicks              int
	MaxConsecutiveFailures int
	TargetNavigations      int // 0 disables the target check
	HistorySize            int
}

// Explorer drives one exploration session.
type Explorer struct {
	cfg       Config
	driver    Driver
	extractor *guardrail.Extractor
	decider   Decider // nil runs heuristic-only
	selector  *heuristic.Selector
	logger    *log.Logger
	metrics   *metrics.Metrics

	// OnStep, when set, is called after every attempted action.
	OnStep func(ctx context.Context, rec StepRecord)

	state    State
	progress *Progress
	steps    []StepRecord

	// lastAllowed is the most recent scanned page inside the guardrail.
	lastAllowed string
}

// New creates an Explorer. decider may be nil.
func New(cfg Config, driver Driver, extractor *guardrail.Extractor, decider Decider, selector *heuristic.Selector, logger *log.Logger, m *metrics.Metrics) *Explorer {
	return &Explorer{
		cfg:       cfg,
		driver:    driver,
		extractor: extractor,
		decider:   decider,
		selector:  selector,
		logger:    logging.OrDiscard(logger).With("component", "explorer"),
		metrics:   m,
		state:     StateIdle,
		progress:  newProgress(cfg.StartURL, cfg.HistorySize),

		lastAllowed: cfg.StartURL,
	}
}

// State returns the current loop state.
func (x *Explorer) State() State {
	return x.state
}

// Progress returns the session state. Callers must not modify it.
func (x *Explorer) Progress() *Progress {
	return x.progress
}

// Run explores until a terminal condition and always returns a summary.
// Run may be called once; a terminated explorer does not resume.
func (x *Explorer) Run(ctx context.Context) *Summary {
	start := time.Now()
	summary := &Summary{
		SessionID: uuid.NewString(),
		StartURL:  x.cfg.StartURL,
		Target:    x.cfg.TargetNavigations,
		StartedAt: start,
	}

	var reason error
	if x.state == StateTerminated {
		reason = errors.New("session already terminated")
	}
	for reason == nil {
		if reason = x.checkTermination(ctx); reason != nil {
			break
		}
		reason = x.step(ctx)
	}
	x.enter(StateTerminated)

	p := x.progress
	summary.Err = reason
	summary.Reason = reason.Error()
	summary.Success = successful(reason)
	summary.Navigations = p.Navigations
	summary.TotalClicks = p.TotalClicks
	summary.Failures = p.ConsecutiveFailures
	summary.Steps = x.steps
	summary.Visited = p.Visited.List()
	summary.Duration = time.Since(start)
	summary.DurationMS = summary.Duration.Milliseconds()

	x.logger.Info("session finished",
		"reason", summary.Reason,
		"success", summary.Success,
		"navigations", p.Navigations,
		"target", x.cfg.TargetNavigations,
		"clicks", p.TotalClicks,
	)
	return summary
}

// checkTermination evaluates the end conditions in priority order.
func (x *Explorer) checkTermination(ctx context.Context) error {
	p := x.progress
	switch {
	case p.TotalClicks >= x.cfg.MaxClicks:
		return ErrBudgetExhausted
	case p.ConsecutiveFailures >= x.cfg.MaxConsecutiveFailures:
		return ErrFailureBudgetExhausted
	case x.cfg.TargetNavigations > 0 && p.Navigations >= x.cfg.TargetNavigations:
		return ErrTargetReached
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
	return nil
}

// step runs one scan-extract-decide-act-settle cycle. It returns a non-nil
// error only for terminal conditions.
func (x *Explorer) step(ctx context.Context) error {
	p := x.progress

	x.enter(StateScanning)
	page, err := x.driver.Scan(ctx)
	if err != nil {
		p.fail()
		x.logger.Warn("scan failed", "error", err, "failures", p.ConsecutiveFailures)
		return nil
	}
	x.logger.Debug("scanned", "url", page.URL, "elements", len(page.Elements), "spa", page.IsSPA)

	if !x.extractor.Allows(page.URL) {
		p.fail()
		x.logger.Warn("page outside allowed area, returning",
			"url", page.URL, "to", x.lastAllowed, "failures", p.ConsecutiveFailures)
		if navErr := x.driver.Navigate(ctx, x.lastAllowed); navErr != nil {
			x.logger.Warn("navigate back failed", "url", x.lastAllowed, "error", navErr)
		}
		return nil
	}
	x.lastAllowed = page.URL

	x.enter(StateExtracting)
	candidates, _ := x.extractor.Extract(page.Elements, page.URL, p.Visited)
	if len(candidates) == 0 {
		x.logger.Warn("no candidates left on page", "url", page.URL, "scanned", len(page.Elements))
		return fmt.Errorf("%w: %w", ErrStuck, heuristic.ErrNoCandidates)
	}

	x.enter(StateDeciding)
	idx, source, reasoning, err := x.decide(ctx, page, candidates)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStuck, err)
	}
	el := candidates[idx]

	kind := executor.KindFor(el)
	var value string
	if kind == executor.KindType {
		value = executor.SampleValue(el)
	}

	x.enter(StateActing)
	p.TotalClicks++
	rec := StepRecord{
		Step:      p.TotalClicks,
		URL:       page.URL,
		Kind:      kind,
		Selector:  el.Selector,
		Label:     el.Label(),
		Value:     value,
		Source:    source,
		Reasoning: reasoning,
	}

	res, err := x.driver.Act(ctx, el, kind, value)
	rec.X, rec.Y = res.X, res.Y
	if err == nil && !res.Success {
		err = ErrActionFailed
	}
	if err == nil {
		x.enter(StateSettling)
		res.ResultingURL, err = x.driver.Settle(ctx)
		if err != nil {
			err = fmt.Errorf("settle: %w", err)
		}
	}

	switch {
	case err != nil:
		p.fail()
		rec.Error = err.Error()
	case !x.extractor.Allows(res.ResultingURL):
		p.fail()
		rec.ResultingURL = res.ResultingURL
		rec.Error = "left allowed area: " + res.ResultingURL
		if navErr := x.driver.Navigate(ctx, page.URL); navErr != nil {
			x.logger.Warn("navigate back failed", "url", page.URL, "error", navErr)
		}
	default:
		rec.Success = true
		rec.ResultingURL = res.ResultingURL
		rec.NewPage = p.succeed(interactionKey(kind, el), res.ResultingURL)
	}
	x.metrics.Action(rec.Success)
	x.steps = append(x.steps, rec)

	x.logger.Info("step",
		"n", rec.Step,
		"kind", kind,
		"element", rec.Label,
		"source", source,
		"success", rec.Success,
		"newPage", rec.NewPage,
		"url", rec.ResultingURL,
	)
	if !rec.Success {
		x.logger.Debug("action failed", "error", rec.Error, "failures", p.ConsecutiveFailures)
	}

	if x.OnStep != nil {
		x.OnStep(ctx, rec)
	}
	return nil
}

// decide asks the recommender first and falls back to the heuristic on a
// nil answer. There is no second recommender attempt within a step.
func (x *Explorer) decide(ctx context.Context, page *crawler.PageMap, candidates []crawler.Element) (int, string, string, error) {
	p := x.progress

	if x.decider != nil {
		rec := x.decider.Decide(ctx, ai.PageContext{
			URL:                page.URL,
			Title:              page.Title,
			Headings:           page.Headings,
			Elements:           candidates,
			VisitedURLs:        p.Visited.List(),
			TargetNavigations:  x.cfg.TargetNavigations,
			CurrentNavigations: p.Navigations,
			RecentInteractions: p.Recent.List(),
		})
		if rec != nil && rec.ElementIndex >= 0 && rec.ElementIndex < len(candidates) {
			x.metrics.Decision(metrics.SourceRecommender)
			return rec.ElementIndex, metrics.SourceRecommender, rec.Reasoning, nil
		}
	}

	idx, err := x.selector.Select(candidates, p.Visited)
	if err != nil {
		return -1, "", "", err
	}
	x.metrics.Decision(metrics.SourceHeuristic)
	return idx, metrics.SourceHeuristic, "", nil
}

func (x *Explorer) enter(s State) {
	if x.state == s {
		return
	}
	x.logger.Debug("state", "from", x.state, "to", s)
	x.state = s
}

// interactionKey identifies an interaction for the do-not-repeat list.
func interactionKey(kind executor.Kind, el crawler.Element) string {
	return fmt.Sprintf("%s:%s %q", kind, el.Selector, el.Label())
}
