package nhentai

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	errs "nekodl/pkg/errors"
)

// ChromeRenderer drives a headless Chrome instance
type ChromeRenderer struct {
	browser     context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

// NewChromeRenderer starts the browser
func NewChromeRenderer() (*ChromeRenderer, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browser, cancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browser); err != nil {
		cancel()
		allocCancel()
		return nil, errs.Wrap(errs.ErrorTypeConfig, err, "starting headless browser (is Chrome installed?)")
	}
	return &ChromeRenderer{browser: browser, cancel: cancel, allocCancel: allocCancel}, nil
}

// Render opens url in a new tab and waits up to timeout for selector
func (r *ChromeRenderer) Render(ctx context.Context, url, selector string, timeout time.Duration) (string, error) {
	tab, closeTab := chromedp.NewContext(r.browser)
	defer closeTab()
	tab, cancel := context.WithTimeout(tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(tab,
		chromedp.Navigate(url),
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}

func (r *ChromeRenderer) Close() error {
	r.cancel()
	r.allocCancel()
	return nil
}
