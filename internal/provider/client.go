package provider

import (
	"context"
	"fmt"

	"github.com/naozine/nz-html-fetch/pkg/htmlfetch"

	"prospector/internal/models"
)

// Options configure the browser-backed client
type Options struct {
	Stealth     bool   // bot-detection avoidance (default: true)
	Proxy       string // proxy address
	BrowserPath string // browser binary path
}

// Client fetches profile pages through a stealth browser and parses them
// into structured data. The browser profile carries the signed-in provider
// session; the per-user credential gates each call.
type Client struct {
	fetcher *htmlfetch.Fetcher
}

// NewClient creates a client and starts its browser
func NewClient(opts *Options) (*Client, error) {
	var fetcherOpts []htmlfetch.Option

	if opts != nil {
		if opts.BrowserPath != "" {
			fetcherOpts = append(fetcherOpts, htmlfetch.WithBrowserPath(opts.BrowserPath))
		}
		if opts.Proxy != "" {
			fetcherOpts = append(fetcherOpts, htmlfetch.WithProxy(opts.Proxy))
		}
		fetcherOpts = append(fetcherOpts, htmlfetch.WithStealth(opts.Stealth))
	}

	fetcher := htmlfetch.New(fetcherOpts...)

	if err := fetcher.Start(); err != nil {
		return nil, err
	}

	return &Client{fetcher: fetcher}, nil
}

// Close shuts down the browser
func (c *Client) Close() error {
	if c.fetcher != nil {
		return c.fetcher.Close()
	}
	return nil
}

// FetchProfile retrieves a profile page as markdown and extracts its fields.
// Failures carry classification tokens in their message text: challenge
// pages, missing profiles, sign-in walls and throttling pages are detected
// from the page content.
func (c *Client) FetchProfile(ctx context.Context, credential, url string) (*models.ProfileData, error) {
	if credential == "" {
		return nil, fmt.Errorf("unauthorized: no provider session for user")
	}

	result, err := c.fetcher.Fetch(ctx, url, htmlfetch.WithMarkdown())
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	return ParseProfileMarkdown(result.Markdown)
}
