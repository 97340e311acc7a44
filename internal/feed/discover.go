package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/fetchnfeed/internal/errors"
)

// candidatePaths are tried in order by Discover.
var candidatePaths = []string{
	"/feed",
	"/feed.xml",
	"/rss",
	"/rss.xml",
	"/atom.xml",
	"/index.xml",
}

// CandidateURLs lists the conventional feed locations under siteURL.
func CandidateURLs(siteURL string) []string {
	base := strings.TrimRight(strings.TrimSpace(siteURL), "/")
	out := make([]string, 0, len(candidatePaths))
	for _, p := range candidatePaths {
		out = append(out, base+p)
	}
	return out
}

// Discover fetches each candidate URL in turn and returns the first one that
// parses as a feed. A cancelled ctx stops the search.
func Discover(ctx context.Context, f Fetcher, siteURL string) (string, *Parsed, error) {
	if strings.TrimSpace(siteURL) == "" {
		return "", nil, errors.NewInvalidRequest("site url is required")
	}

	for _, candidate := range CandidateURLs(siteURL) {
		parsed, err := f.Fetch(ctx, candidate)
		if err == nil {
			return candidate, parsed, nil
		}
		if errors.Is(err, errors.ErrCancelled) || ctx.Err() != nil {
			return "", nil, errors.NewCancelled("discover")
		}
	}
	return "", nil, errors.NewFetchFailed(siteURL, fmt.Errorf("no feed found at common locations"))
}
