package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/fetchnfeed/internal/errors"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
  <title>Example Blog</title>
  <link>https://a.example/</link>
  <description>Posts about things</description>
  <item>
    <title>First</title>
    <link>https://a.example/1</link>
    <dc:creator>Ada</dc:creator>
    <description><![CDATA[<p>Hello <b>world</b> &amp; friends</p>]]></description>
    <content:encoded><![CDATA[<p>Full body</p>]]></content:encoded>
    <pubDate>Mon, 01 Jan 2024 10:00:00 GMT</pubDate>
  </item>
  <item>
    <link>https://a.example/2</link>
    <description>Plain</description>
  </item>
  <item>
    <title>Guid only</title>
    <guid>https://a.example/3</guid>
  </item>
</channel>
</rss>`

const atomFixture = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Example</title>
  <subtitle>Sub</subtitle>
  <link rel="alternate" href="https://b.example/"/>
  <link rel="self" href="https://b.example/atom.xml"/>
  <id>urn:feed</id>
  <updated>2024-01-02T00:00:00Z</updated>
  <entry>
    <title>Entry One</title>
    <link rel="alternate" href="https://b.example/e1"/>
    <id>urn:e1</id>
    <updated>2024-01-02T00:00:00Z</updated>
    <author><name>Grace</name></author>
    <summary>Short</summary>
    <content type="html">&lt;p&gt;Long&lt;/p&gt;</content>
  </entry>
</feed>`

func serve(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_FetchRSS(t *testing.T) {
	srv := serve(t, rssFixture, http.StatusOK)
	c := NewClient(Options{})

	got, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	require.Equal(t, "Example Blog", got.Title)
	require.Equal(t, "Posts about things", got.Description)
	require.Equal(t, "https://a.example/", got.SiteURL)
	require.Len(t, got.Items, 3)

	first := got.Items[0]
	require.Equal(t, "First", first.Title)
	require.Equal(t, "https://a.example/1", first.URL)
	require.Equal(t, "Ada", first.Author)
	require.Equal(t, "Hello world & friends", first.Summary)
	require.Equal(t, "<p>Full body</p>", first.Content)
	require.NotNil(t, first.PublishedAt)
	require.True(t, first.PublishedAt.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)), "got %v", first.PublishedAt)

	second := got.Items[1]
	require.Equal(t, "Untitled", second.Title)
	require.Equal(t, "Plain", second.Content, "content falls back to description")
	require.Nil(t, second.PublishedAt)

	require.Equal(t, "https://a.example/3", got.Items[2].URL)
}

func TestClient_FetchAtom(t *testing.T) {
	srv := serve(t, atomFixture, http.StatusOK)
	c := NewClient(Options{})

	got, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	require.Equal(t, "Atom Example", got.Title)
	require.Equal(t, "Sub", got.Description)
	require.Equal(t, "https://b.example/", got.SiteURL)
	require.Len(t, got.Items, 1)

	entry := got.Items[0]
	require.Equal(t, "https://b.example/e1", entry.URL)
	require.Equal(t, "Grace", entry.Author)
	require.Equal(t, "Short", entry.Summary)
	require.Contains(t, entry.Content, "Long")
	require.NotNil(t, entry.PublishedAt, "updated is used when published is missing")
	require.True(t, entry.PublishedAt.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)), "got %v", entry.PublishedAt)
}

func TestClient_HTTPError(t *testing.T) {
	srv := serve(t, "gone", http.StatusNotFound)
	c := NewClient(Options{})

	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrFetchFailed))
	require.Equal(t, "FETCH_FAILED: HTTP 404", err.Error())
}

func TestClient_UnknownFormat(t *testing.T) {
	srv := serve(t, "hello, this is not a feed", http.StatusOK)
	c := NewClient(Options{})

	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrFetchFailed))
	require.Contains(t, err.Error(), "unknown feed format")
}

func TestClient_SendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	c := NewClient(Options{UserAgent: "fetchnfeed-test/1.0"})
	_, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "fetchnfeed-test/1.0", gotUA)
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
		_, _ = w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	c := NewClient(Options{Timeout: 50 * time.Millisecond})
	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrFetchFailed))
	require.True(t, strings.Contains(err.Error(), "timed out"), "got %v", err)
}

func TestClient_CancelledContext(t *testing.T) {
	srv := serve(t, rssFixture, http.StatusOK)
	c := NewClient(Options{HostInterval: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fetch(ctx, srv.URL)
	require.True(t, errors.Is(err, errors.ErrCancelled))
}

func TestClient_BadURL(t *testing.T) {
	c := NewClient(Options{})

	_, err := c.Fetch(context.Background(), "not a url")
	require.True(t, errors.Is(err, errors.ErrFetchFailed))
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "plain", input: "just text", want: "just text"},
		{name: "tags stripped", input: "<p>Hello <em>there</em></p>", want: "Hello there"},
		{name: "entities decoded", input: "Fish &amp; chips", want: "Fish & chips"},
		{name: "scripts dropped", input: "ok<script>alert(1)</script>", want: "ok"},
		{name: "whitespace collapsed", input: "<p>a</p>\n\n<p>b</p>", want: "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.input); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
