// Package ai decides which element to interact with next by consulting a
// remote recommender, and signals the caller to fall back when the
// recommender is unavailable or its answer cannot be trusted.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/v0xg/webexplore/internal/crawler"
	"github.com/v0xg/webexplore/internal/logging"
	"github.com/v0xg/webexplore/internal/metrics"
)

// PageContext is the value snapshot handed to the engine for one step.
type PageContext struct {
	URL                string
	Title              string
	Headings           []string
	Elements           []crawler.Element
	VisitedURLs        []string
	TargetNavigations  int
	CurrentNavigations int
	// RecentInteractions is ordered oldest first, most recent last.
	RecentInteractions []string
}

// Recommendation is a validated element choice. ElementIndex always
// addresses PageContext.Elements.
type Recommendation struct {
	ElementIndex    int    `json:"elementIndex"`
	Reasoning       string `json:"reasoning"`
	Priority        string `json:"priority"`
	ExpectedOutcome string `json:"expectedOutcome"`
}

// EngineOptions bounds the size and latency of a recommender call.
type EngineOptions struct {
	MaxElements int // elements shown to the recommender
	MaxRecent   int // recent interactions shown to the recommender
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// Engine turns a PageContext into a Recommendation.
type Engine struct {
	recommender Recommender
	opts        EngineOptions
	logger      *log.Logger
	metrics     *metrics.Metrics
}

// NewEngine creates an Engine around r.
func NewEngine(r Recommender, opts EngineOptions, logger *log.Logger, m *metrics.Metrics) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 512
	}
	return &Engine{
		recommender: r,
		opts:        opts,
		logger:      logging.OrDiscard(logger).With("component", "decision", "provider", r.Name()),
		metrics:     m,
	}
}

// Decide returns the recommended element, or nil when the caller should use
// its fallback policy. A nil result is not an error condition.
func (e *Engine) Decide(ctx context.Context, pc PageContext) *Recommendation {
	rec, err := e.Recommend(ctx, pc)
	if err != nil {
		class, hint := FailureClass(err), FailureHint(err)
		e.metrics.RecommenderFailure(class, hint)
		e.logger.Warn("recommender failed, using fallback", "class", class, "hint", hint, "error", err)
		return nil
	}
	return rec
}

// Recommend performs a single bounded recommender call. Errors wrap
// ErrRecommenderUnavailable or ErrMalformedResponse.
func (e *Engine) Recommend(ctx context.Context, pc PageContext) (*Recommendation, error) {
	pc = e.truncate(pc)
	if len(pc.Elements) == 0 {
		return nil, fmt.Errorf("%w: no elements to choose from", ErrMalformedResponse)
	}

	req := Request{
		System:      systemPrompt,
		Prompt:      buildUserPrompt(pc),
		Temperature: e.opts.Temperature,
		MaxTokens:   e.opts.MaxTokens,
	}

	callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	start := time.Now()
	text, err := e.recommender.Recommend(callCtx, req)
	elapsed := time.Since(start)
	e.metrics.RecommenderLatency(float64(elapsed.Milliseconds()))
	if err == nil && callCtx.Err() != nil {
		err = callCtx.Err()
	}
	if err != nil {
		if errors.Is(err, ErrMalformedResponse) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrRecommenderUnavailable, err)
	}

	rec, err := parseRecommendation(text, len(pc.Elements))
	if err != nil {
		e.logger.Debug("unparseable recommendation", "response", truncateText(text, 500))
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	e.logger.Debug("recommendation",
		"index", rec.ElementIndex,
		"priority", rec.Priority,
		"reasoning", rec.Reasoning,
		"elapsed", elapsed,
	)
	return rec, nil
}

// truncate cuts elements and recent interactions to the prompt budget.
// Elements keep their leading prefix so indexes stay valid in the original
// slice; recent interactions keep their newest tail.
func (e *Engine) truncate(pc PageContext) PageContext {
	if n := e.opts.MaxElements; n > 0 && len(pc.Elements) > n {
		pc.Elements = pc.Elements[:n]
	}
	if n := e.opts.MaxRecent; n > 0 && len(pc.RecentInteractions) > n {
		pc.RecentInteractions = pc.RecentInteractions[len(pc.RecentInteractions)-n:]
	}
	return pc
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
