package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// consentTexts are tried in priority order against button, link and
// div labels; the first visible match is clicked once.
var consentTexts = []string{
	"accept", "agree", "allow", "consent", "continue", "ok", "i agree", "got it",
}

// nextSelectors are tried in priority order to find a clickable next
// control; a text-based scan over anchors and buttons runs after them.
var nextSelectors = []string{
	`a[rel="next"]`,
	`li.next > a`,
	`a.next`,
	`button.next`,
	`a[aria-label="Next"]`,
	`button[aria-label="Next"]`,
	`a[aria-label="Next page"]`,
}

var nextTexts = []string{"next", "next page", ">", "›", "»"}

// ChromeDriver loads pages in a headless browser. One driver owns one
// browser process; Load opens a fresh tab per URL.
type ChromeDriver struct {
	navTimeout  time.Duration
	settleDelay time.Duration

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// NewChromeDriver starts a headless browser allocator.
func NewChromeDriver(navTimeout, settleDelay time.Duration) *ChromeDriver {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromeDriver{
		navTimeout:  navTimeout,
		settleDelay: settleDelay,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}
}

// Load navigates a new tab to the URL, waits for the page to settle,
// dismisses cookie-consent overlays and scrolls through the page so
// lazy content renders before the markup is captured.
func (d *ChromeDriver) Load(ctx context.Context, url string) (string, error) {
	if d.tabCancel != nil {
		d.tabCancel()
	}
	d.tabCtx, d.tabCancel = chromedp.NewContext(d.allocCtx)

	timeoutCtx, cancel := context.WithTimeout(d.tabCtx, d.navTimeout)
	defer cancel()

	var html string
	err := chromedp.Run(timeoutCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(d.settleDelay),
		chromedp.Evaluate(dismissConsentJS(), nil),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight/2)`, nil),
		chromedp.Sleep(d.settleDelay/2),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(d.settleDelay/2),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", url, err)
	}
	return html, nil
}

// NextPage clicks the first matching next control in the current tab
// and returns the settled markup of the next page.
func (d *ChromeDriver) NextPage(ctx context.Context) (string, bool, error) {
	if d.tabCtx == nil {
		return "", false, fmt.Errorf("no page loaded")
	}

	timeoutCtx, cancel := context.WithTimeout(d.tabCtx, d.navTimeout)
	defer cancel()

	var clicked string
	if err := chromedp.Run(timeoutCtx, chromedp.Evaluate(clickNextJS(), &clicked)); err != nil {
		return "", false, fmt.Errorf("next control lookup failed: %w", err)
	}
	if clicked == "" {
		return "", false, nil
	}

	var html string
	err := chromedp.Run(timeoutCtx,
		chromedp.Sleep(d.settleDelay),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", false, fmt.Errorf("failed to capture next page: %w", err)
	}
	return html, true, nil
}

// Close shuts the tab and the browser process
func (d *ChromeDriver) Close() error {
	if d.tabCancel != nil {
		d.tabCancel()
	}
	d.allocCancel()
	return nil
}

func dismissConsentJS() string {
	texts, _ := json.Marshal(consentTexts)
	return fmt.Sprintf(`(() => {
		const texts = %s;
		const nodes = document.querySelectorAll('button, a, div[role="button"]');
		for (const t of texts) {
			for (const el of nodes) {
				const label = (el.innerText || '').trim().toLowerCase();
				if (el.offsetParent === null) continue;
				if (label === t || (label.length <= 32 && label.includes(t))) {
					el.click();
					return t;
				}
			}
		}
		return '';
	})()`, texts)
}

func clickNextJS() string {
	selectors, _ := json.Marshal(nextSelectors)
	texts, _ := json.Marshal(nextTexts)
	return fmt.Sprintf(`(() => {
		const selectors = %s;
		const texts = %s;
		const clickable = (el) => el && el.offsetParent !== null && !el.disabled &&
			!el.classList.contains('disabled');
		for (const sel of selectors) {
			const el = document.querySelector(sel);
			if (clickable(el)) { el.click(); return sel; }
		}
		for (const el of document.querySelectorAll('a, button')) {
			const label = (el.innerText || '').trim().toLowerCase();
			if (texts.includes(label) && clickable(el)) { el.click(); return 'text:' + label; }
		}
		return '';
	})()`, selectors, texts)
}
