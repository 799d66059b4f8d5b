package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/webshelf/webshelf/internal/config"
	"github.com/webshelf/webshelf/internal/types"
)

// BrowserFetcher implements Fetcher using a headless browser via Rod.
// It exists for listing pages that only materialize their product tiles
// after client-side rendering; the plain HTTP fetcher stays the default.
type BrowserFetcher struct {
	browser *rod.Browser
	timeout time.Duration
	logger  *slog.Logger
}

// NewBrowserFetcher launches a headless Chromium and connects to it.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger) (*BrowserFetcher, error) {
	launchURL, err := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	return &BrowserFetcher{
		browser: browser,
		timeout: cfg.Fetcher.RequestTimeout,
		logger:  logger.With("component", "browser_fetcher"),
	}, nil
}

// Fetch navigates to the URL and returns the rendered document.
func (f *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (*types.Response, error) {
	start := time.Now()

	page, err := stealth.Page(f.browser)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: fmt.Errorf("open page: %w", err)}
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(f.timeout)

	if err := page.Navigate(rawURL); err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: fmt.Errorf("navigate: %w", err), Retryable: true}
	}
	if err := page.WaitLoad(); err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: fmt.Errorf("wait load: %w", err), Retryable: true}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: fmt.Errorf("read html: %w", err)}
	}
	if html == "" {
		return nil, &types.FetchError{URL: rawURL, Err: types.ErrEmptyResponse, Retryable: true}
	}

	info, err := page.Info()
	finalURL := rawURL
	if err == nil && info.URL != "" {
		finalURL = info.URL
	}

	duration := time.Since(start)
	f.logger.Debug("rendered fetch complete", "url", rawURL, "size", len(html), "duration", duration)

	return &types.Response{
		StatusCode:    200,
		Body:          []byte(html),
		URL:           rawURL,
		FinalURL:      finalURL,
		ContentType:   "text/html",
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}, nil
}

// Close shuts the browser down.
func (f *BrowserFetcher) Close() error {
	return f.browser.Close()
}

// Type returns the fetcher type identifier.
func (f *BrowserFetcher) Type() string { return "browser" }
