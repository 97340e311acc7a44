package feed

import (
	"context"
	stderrors "errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/hpungsan/fetchnfeed/internal/errors"
)

// MaxBodyBytes caps how much of a feed response is read.
const MaxBodyBytes = 10 << 20

const (
	defaultTitle     = "Untitled Feed"
	defaultItemTitle = "Untitled"
)

var (
	textPolicy = bluemonday.StrictPolicy()
	spaceRegex = regexp.MustCompile(`\s+`)
)

// Options configures a Client.
type Options struct {
	// Timeout bounds a whole fetch including the body. Zero means 30s.
	Timeout time.Duration

	UserAgent string

	// HostInterval is the minimum spacing between requests to one host.
	HostInterval time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client is the HTTP-backed Fetcher.
type Client struct {
	http      *http.Client
	parser    *gofeed.Parser
	limiter   *HostLimiter
	userAgent string
	log       *slog.Logger
}

// NewClient returns a Client configured by opts.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:      httpClient,
		parser:    gofeed.NewParser(),
		limiter:   NewHostLimiter(opts.HostInterval),
		userAgent: opts.UserAgent,
		log:       logger,
	}
}

// Fetch downloads and parses the feed at url.
// A cancelled ctx yields CANCELLED; every other failure is FETCH_FAILED.
func (c *Client) Fetch(ctx context.Context, url string) (*Parsed, error) {
	if err := c.limiter.Wait(ctx, url); err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("fetch")
		}
		return nil, errors.NewFetchFailed(url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewFetchFailed(url, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, */*;q=0.8")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, errors.NewFetchFailed(url, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	parsed, err := c.parser.Parse(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		if stderrors.Is(err, gofeed.ErrFeedTypeNotDetected) {
			return nil, errors.NewFetchFailed(url, fmt.Errorf("unknown feed format"))
		}
		if ctx.Err() != nil || isTimeout(err) {
			return nil, c.transportError(ctx, url, err)
		}
		return nil, errors.NewFetchFailed(url, fmt.Errorf("invalid feed: %w", err))
	}

	out := fromGofeed(parsed)
	c.log.Debug("fetched feed", "url", url, "items", len(out.Items), "took", time.Since(start))
	return out, nil
}

func (c *Client) transportError(ctx context.Context, url string, err error) error {
	if stderrors.Is(ctx.Err(), context.Canceled) {
		return errors.NewCancelled("fetch")
	}
	if isTimeout(err) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewFetchFailed(url, fmt.Errorf("timed out: %w", err))
	}
	return errors.NewFetchFailed(url, err)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

// fromGofeed maps a gofeed document onto Parsed, applying the reader's
// defaults for missing titles.
func fromGofeed(f *gofeed.Feed) *Parsed {
	out := &Parsed{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		SiteURL:     strings.TrimSpace(f.Link),
		Items:       make([]Item, 0, len(f.Items)),
	}
	if out.Title == "" {
		out.Title = defaultTitle
	}

	for _, it := range f.Items {
		if it == nil {
			continue
		}
		item := Item{
			Title:   strings.TrimSpace(it.Title),
			URL:     itemLink(it),
			Author:  itemAuthor(it),
			Summary: PlainText(it.Description),
			Content: it.Content,
		}
		if item.Title == "" {
			item.Title = defaultItemTitle
		}
		if item.Content == "" {
			item.Content = it.Description
		}

		switch {
		case it.PublishedParsed != nil:
			t := it.PublishedParsed.UTC()
			item.PublishedAt = &t
		case it.UpdatedParsed != nil:
			t := it.UpdatedParsed.UTC()
			item.PublishedAt = &t
		}

		out.Items = append(out.Items, item)
	}
	return out
}

// itemLink prefers the entry link and falls back to a GUID that is a URL.
func itemLink(it *gofeed.Item) string {
	if link := strings.TrimSpace(it.Link); link != "" {
		return link
	}
	if strings.HasPrefix(it.GUID, "http") {
		return strings.TrimSpace(it.GUID)
	}
	return ""
}

func itemAuthor(it *gofeed.Item) string {
	for _, p := range it.Authors {
		if p != nil && p.Name != "" {
			return strings.TrimSpace(p.Name)
		}
	}
	if it.Author != nil {
		if it.Author.Name != "" {
			return strings.TrimSpace(it.Author.Name)
		}
		return strings.TrimSpace(it.Author.Email)
	}
	return ""
}

// PlainText strips markup from s and collapses whitespace.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	text := html.UnescapeString(textPolicy.Sanitize(s))
	return strings.TrimSpace(spaceRegex.ReplaceAllString(text, " "))
}
