// Package executor performs browser actions chosen by the exploration loop.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/v0xg/webexplore/internal/crawler"
	"github.com/v0xg/webexplore/internal/logging"
)

// Options configures execution behavior
type Options struct {
	Timeout time.Duration // per action, element lookup included
}

// Executor runs actions against the page of a crawler.Browser.
type Executor struct {
	browser *crawler.Browser
	opts    Options
	logger  *log.Logger
}

// New creates an Executor bound to browser.
func New(browser *crawler.Browser, opts Options, logger *log.Logger) *Executor {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Executor{
		browser: browser,
		opts:    opts,
		logger:  logging.OrDiscard(logger).With("component", "executor"),
	}
}

// Act performs kind on the element addressed by el.Selector. For KindType,
// value replaces the field's content and Enter is pressed to submit it.
func (x *Executor) Act(ctx context.Context, el crawler.Element, kind Kind, value string) (Result, error) {
	page := x.browser.Page().Context(ctx).Timeout(x.opts.Timeout)
	defer page.CancelTimeout()

	target, err := page.Element(el.Selector)
	if err != nil {
		return Result{}, fmt.Errorf("element not found: %s: %w", el.Selector, err)
	}

	if err := target.ScrollIntoView(); err != nil {
		x.logger.Debug("scroll into view failed", "selector", el.Selector, "error", err)
	}

	var res Result
	if cx, cy, err := getElementCenter(target); err == nil {
		res.X, res.Y = cx, cy
	}

	switch kind {
	case KindClick:
		err = executeClick(target)
	case KindType:
		err = executeType(target, value)
	default:
		err = fmt.Errorf("unknown action kind: %s", kind)
	}
	if err != nil {
		return res, fmt.Errorf("%s %s: %w", kind, el.Selector, err)
	}

	res.Success = true
	return res, nil
}

func executeClick(el *rod.Element) error {
	if err := el.Hover(); err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func executeType(el *rod.Element, value string) error {
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	// Not every field supports selection (number, date); overwrite anyway.
	_ = el.SelectAllText()
	if err := el.Input(value); err != nil {
		return err
	}
	return el.Type(input.Enter)
}

// Screenshot captures the current viewport.
func (x *Executor) Screenshot(ctx context.Context) (image.Image, error) {
	return captureFrame(x.browser.Page().Context(ctx))
}

func getElementCenter(el *rod.Element) (int, int, error) {
	box, err := el.Shape()
	if err != nil {
		return 0, 0, err
	}

	if len(box.Quads) == 0 {
		return 0, 0, fmt.Errorf("element has no shape")
	}

	quad := box.Quads[0]
	x := int((quad[0] + quad[2] + quad[4] + quad[6]) / 4)
	y := int((quad[1] + quad[3] + quad[5] + quad[7]) / 4)

	return x, y, nil
}

func captureFrame(page *rod.Page) (image.Image, error) {
	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	return img, nil
}
