package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/v0xg/webexplore/internal/logging"
)

// Options configures the crawler behavior
type Options struct {
	Width         int
	Height        int
	Headless      bool
	Stealth       bool
	ProfileDir    string // Chrome/Chromium profile directory for authenticated sessions
	Timeout       time.Duration
	SettleTimeout time.Duration
}

// Browser wraps the Rod browser and page for reuse
type Browser struct {
	browser *rod.Browser
	page    *rod.Page
	opts    Options
	logger  *log.Logger
}

// connect attaches to the browser at controlURL. On failure kill is called
// so a freshly launched process does not outlive the error.
func connect(ctx context.Context, controlURL string, kill func()) (*rod.Browser, error) {
	browser := rod.New().Context(ctx).ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	return browser, nil
}

// Close cleans up browser resources
func (b *Browser) Close() {
	if b.page != nil {
		_ = b.page.Close()
	}
	if b.browser != nil {
		_ = b.browser.Close()
	}
}

// Page returns the underlying Rod page
func (b *Browser) Page() *rod.Page {
	return b.page
}

// Launch starts a browser and opens url in a fresh page.
func Launch(ctx context.Context, url string, opts Options, logger *log.Logger) (*Browser, error) {
	logger = logging.OrDiscard(logger).With("component", "crawler")
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.SettleTimeout == 0 {
		opts.SettleTimeout = 5 * time.Second
	}

	path, _ := launcher.LookPath()
	l := launcher.New().Bin(path).Headless(opts.Headless)
	if opts.ProfileDir != "" {
		l = l.UserDataDir(opts.ProfileDir)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser, err := connect(ctx, controlURL, l.Kill)
	if err != nil {
		return nil, err
	}

	var page *rod.Page
	if opts.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	if opts.Width > 0 && opts.Height > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.Width,
			Height:            opts.Height,
			DeviceScaleFactor: 1,
		}); err != nil {
			logger.Warn("set viewport failed", "error", err)
		}
	}

	b := &Browser{browser: browser, page: page, opts: opts, logger: logger}
	if err := b.Navigate(ctx, url); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// Navigate loads url in the current page and waits for it to settle.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	if err := b.page.Context(ctx).Timeout(b.opts.Timeout).Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return b.Settle(ctx)
}

// Settle waits for pending navigation and network activity to calm down.
// Persistent connections (websockets, polling) are cut off by SettleTimeout.
func (b *Browser) Settle(ctx context.Context) error {
	page := b.page.Context(ctx)

	if err := page.Timeout(b.opts.Timeout).WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}

	page.Timeout(b.opts.SettleTimeout).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()

	if detectSPA(page) {
		waitForInteractiveElements(page, b.opts.SettleTimeout)
	}
	return nil
}

// Scan extracts a fresh PageMap from the current browser page state.
func (b *Browser) Scan(ctx context.Context) (*PageMap, error) {
	page := b.page.Context(ctx).Timeout(b.opts.Timeout)

	info, err := page.Info()
	if err != nil {
		return nil, fmt.Errorf("page info: %w", err)
	}

	elements, err := extractElements(page)
	if err != nil {
		return nil, err
	}

	headings, err := extractHeadings(page)
	if err != nil {
		b.logger.Debug("heading scan failed", "error", err)
	}

	return &PageMap{
		URL:      info.URL,
		Title:    info.Title,
		Headings: headings,
		Elements: elements,
		IsSPA:    detectSPA(page),
	}, nil
}

// CurrentURL returns the page's location after redirects and client-side routing.
func (b *Browser) CurrentURL(ctx context.Context) (string, error) {
	res, err := b.page.Context(ctx).Eval(`() => window.location.href`)
	if err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return res.Value.String(), nil
}

// waitForInteractiveElements polls until interactive elements appear or timeout
func waitForInteractiveElements(page *rod.Page, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	checkInterval := 200 * time.Millisecond

	for time.Now().Before(deadline) {
		res, err := page.Eval(`() => {
			const all = document.querySelectorAll('button, [role="button"], input:not([type="hidden"]), textarea, a[href]');
			let visible = 0;
			all.forEach(el => { if (el.offsetParent) visible++; });
			return visible;
		}`)
		if err != nil {
			return
		}

		if res.Value.Int() > 0 {
			// Found elements, wait a tiny bit more for any final renders
			time.Sleep(300 * time.Millisecond)
			return
		}

		time.Sleep(checkInterval)
	}
}

// detectSPA checks if the page is a Single Page Application
func detectSPA(page *rod.Page) bool {
	res, err := page.Eval(`() => {
		if (window.__REACT_DEVTOOLS_GLOBAL_HOOK__ || document.querySelector('[data-reactroot]') || document.querySelector('#__next')) return true;
		if (window.__VUE__ || document.querySelector('[data-v-app]')) return true;
		if (window.ng || document.querySelector('[ng-version]') || document.querySelector('app-root')) return true;
		if (document.querySelector('[class*="svelte-"]')) return true;
		return false;
	}`)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

// extractHeadings collects h1-h3 text, used as page identity in prompts
func extractHeadings(page *rod.Page) ([]string, error) {
	res, err := page.Eval(`() => Array.from(document.querySelectorAll('h1, h2, h3'))
		.filter(el => el.offsetParent)
		.map(el => (el.textContent || '').trim().slice(0, 80))
		.filter(t => t.length > 0)
		.slice(0, 10)`)
	if err != nil {
		return nil, fmt.Errorf("scan headings: %w", err)
	}

	var headings []string
	for _, v := range res.Value.Arr() {
		headings = append(headings, v.String())
	}
	return headings, nil
}

// extractElements finds interactive elements on the page, visible or not.
// Visibility is reported per element so the guardrail can decide.
func extractElements(page *rod.Page) ([]Element, error) {
	res, err := page.Eval(`() => {
		const elements = [];
		const seen = new Set();

		function isValidCSSIdent(s) {
			if (!s || s.length === 0) return false;
			if (/^[0-9]/.test(s)) return false;
			if (/^-[0-9]/.test(s)) return false;
			if (/[.:#\[\]()>~+*\/\\]/.test(s)) return false;
			return true;
		}

		function getSelector(el) {
			if (el.id && isValidCSSIdent(el.id)) return '#' + el.id;
			if (el.name) return el.tagName.toLowerCase() + '[name="' + el.name + '"]';

			if (el.className && typeof el.className === 'string') {
				const classes = el.className.trim().split(/\s+/).filter(isValidCSSIdent).slice(0, 2);
				if (classes.length > 0) {
					const selector = el.tagName.toLowerCase() + '.' + classes.join('.');
					try {
						if (document.querySelectorAll(selector).length === 1) return selector;
					} catch (e) {}
				}
			}

			const parent = el.parentElement;
			if (parent) {
				const index = Array.from(parent.children).indexOf(el) + 1;
				const parentSelector = getSelector(parent);
				if (parentSelector) {
					return parentSelector + ' > ' + el.tagName.toLowerCase() + ':nth-child(' + index + ')';
				}
			}
			return el.tagName.toLowerCase();
		}

		function isVisible(el) {
			if (!el.offsetParent && getComputedStyle(el).position !== 'fixed') return false;
			const r = el.getBoundingClientRect();
			return r.width > 0 && r.height > 0;
		}

		const query = 'a[href], button, [role="button"], input:not([type="hidden"]), textarea, select';
		document.querySelectorAll(query).forEach((el, domIndex) => {
			const selector = getSelector(el);
			if (seen.has(selector)) return;
			seen.add(selector);

			const tag = el.tagName.toLowerCase();
			let type = 'button';
			if (tag === 'a') type = 'link';
			else if (tag === 'textarea' || tag === 'select') type = 'input';
			else if (tag === 'input' && !['submit', 'button', 'reset', 'image'].includes(el.type)) type = 'input';

			elements.push({
				type: type,
				text: (el.textContent || el.value || el.getAttribute('aria-label') || '').trim().replace(/\s+/g, ' ').slice(0, 100),
				href: tag === 'a' ? el.href : '',
				selector: selector,
				isLink: tag === 'a',
				tagName: tag,
				domIndex: domIndex,
				id: el.id || '',
				name: el.name || '',
				inputType: tag === 'input' ? (el.type || 'text') : '',
				placeholder: el.placeholder || '',
				visible: isVisible(el)
			});
		});

		return elements;
	}`)
	if err != nil {
		return nil, fmt.Errorf("scan elements: %w", err)
	}

	var elements []Element
	for _, v := range res.Value.Arr() {
		elements = append(elements, Element{
			Type:        v.Get("type").String(),
			Text:        v.Get("text").String(),
			Href:        v.Get("href").String(),
			Selector:    v.Get("selector").String(),
			IsLink:      v.Get("isLink").Bool(),
			TagName:     v.Get("tagName").String(),
			DOMIndex:    v.Get("domIndex").Int(),
			ID:          v.Get("id").String(),
			Name:        v.Get("name").String(),
			InputType:   v.Get("inputType").String(),
			Placeholder: v.Get("placeholder").String(),
			Visible:     v.Get("visible").Bool(),
		})
	}

	return elements, nil
}
