package executor

import (
	"context"
	"image"

	"github.com/v0xg/webexplore/internal/crawler"
)

// BrowserDriver binds a crawler.Browser and an Executor into the single
// collaborator the exploration loop drives.
type BrowserDriver struct {
	browser *crawler.Browser
	exec    *Executor
}

// NewBrowserDriver creates a driver over browser.
func NewBrowserDriver(browser *crawler.Browser, exec *Executor) *BrowserDriver {
	return &BrowserDriver{browser: browser, exec: exec}
}

// Scan returns the raw, unfiltered element list of the current page.
func (d *BrowserDriver) Scan(ctx context.Context) (*crawler.PageMap, error) {
	return d.browser.Scan(ctx)
}

// Act performs one action on the current page.
func (d *BrowserDriver) Act(ctx context.Context, el crawler.Element, kind Kind, value string) (Result, error) {
	return d.exec.Act(ctx, el, kind, value)
}

// Settle waits for the page to calm down and returns its location.
func (d *BrowserDriver) Settle(ctx context.Context) (string, error) {
	if err := d.browser.Settle(ctx); err != nil {
		return "", err
	}
	return d.browser.CurrentURL(ctx)
}

// Navigate loads url and waits for it to settle.
func (d *BrowserDriver) Navigate(ctx context.Context, url string) error {
	return d.browser.Navigate(ctx, url)
}

// Screenshot captures the current viewport.
func (d *BrowserDriver) Screenshot(ctx context.Context) (image.Image, error) {
	return d.exec.Screenshot(ctx)
}
