// Package opml reads and writes OPML 2.0 subscription lists.
package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
)

// DefaultTitle is the head title written by Export when none is given.
const DefaultTitle = "Fetch N Feed Subscriptions"

// OPML represents the root of an OPML document.
type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    Head     `xml:"head"`
	Body    Body     `xml:"body"`
}

// Head contains OPML metadata.
type Head struct {
	Title       string `xml:"title,omitempty"`
	DateCreated string `xml:"dateCreated,omitempty"`
}

// Body contains the outlines.
type Body struct {
	Outlines []Outline `xml:"outline"`
}

// Outline is a single outline element: a feed when XMLURL is set, else a folder.
type Outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	XMLURL   string    `xml:"xmlUrl,attr,omitempty"`
	HTMLURL  string    `xml:"htmlUrl,attr,omitempty"`
	Outlines []Outline `xml:"outline,omitempty"`
}

// UnmarshalXML reads outline attributes without regard to case, so
// xmlUrl, xmlurl and XMLURL are all accepted.
func (o *Outline) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, a := range start.Attr {
		switch strings.ToLower(a.Name.Local) {
		case "text":
			o.Text = a.Value
		case "title":
			o.Title = a.Value
		case "type":
			o.Type = a.Value
		case "xmlurl":
			o.XMLURL = strings.TrimSpace(a.Value)
		case "htmlurl":
			o.HTMLURL = strings.TrimSpace(a.Value)
		}
	}

	var children struct {
		Outlines []Outline `xml:"outline"`
	}
	if err := d.DecodeElement(&children, &start); err != nil {
		return err
	}
	o.Outlines = children.Outlines
	return nil
}

// Entry is a feed flattened out of the outline tree.
type Entry struct {
	// FolderPath lists enclosing folder names, outermost first
	FolderPath []string
	Title      string
	URL        string
	SiteURL    string
}

// Parse reads an OPML document and returns its feeds in document order.
// Malformed XML is an error.
func Parse(r io.Reader) ([]Entry, error) {
	var doc OPML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode opml: %w", err)
	}

	entries := []Entry{}
	var walk func(outlines []Outline, path []string)
	walk = func(outlines []Outline, path []string) {
		for _, o := range outlines {
			if o.XMLURL != "" {
				title := firstNonEmpty(o.Title, o.Text, o.XMLURL)
				entries = append(entries, Entry{
					FolderPath: append([]string{}, path...),
					Title:      title,
					URL:        o.XMLURL,
					SiteURL:    o.HTMLURL,
				})
				continue
			}
			if len(o.Outlines) > 0 {
				name := firstNonEmpty(o.Text, o.Title)
				walk(o.Outlines, append(append([]string{}, path...), name))
			}
		}
	}
	walk(doc.Body.Outlines, nil)
	return entries, nil
}

// Group is one folder of feeds for Export. An empty Name places the
// feeds at the top level.
type Group struct {
	Name    string
	Entries []Entry
	// Groups are nested folders, rendered after the feeds
	Groups []Group
}

// Export renders groups as an OPML 2.0 document, keeping the given order.
func Export(title string, created time.Time, groups []Group) ([]byte, error) {
	if title == "" {
		title = DefaultTitle
	}
	doc := OPML{
		Version: "2.0",
		Head: Head{
			Title:       title,
			DateCreated: created.UTC().Format(time.RFC1123),
		},
	}

	for _, g := range groups {
		if g.Name == "" {
			doc.Body.Outlines = append(doc.Body.Outlines, groupOutlines(g)...)
			continue
		}
		doc.Body.Outlines = append(doc.Body.Outlines, folderOutline(g))
	}

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), output...), nil
}

func groupOutlines(g Group) []Outline {
	outlines := make([]Outline, 0, len(g.Entries)+len(g.Groups))
	for _, e := range g.Entries {
		outlines = append(outlines, feedOutline(e))
	}
	for _, sub := range g.Groups {
		outlines = append(outlines, folderOutline(sub))
	}
	return outlines
}

func folderOutline(g Group) Outline {
	return Outline{
		Text:     g.Name,
		Title:    g.Name,
		Outlines: groupOutlines(g),
	}
}

func feedOutline(e Entry) Outline {
	title := firstNonEmpty(e.Title, e.URL)
	return Outline{
		Text:    title,
		Title:   title,
		Type:    "rss",
		XMLURL:  e.URL,
		HTMLURL: e.SiteURL,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
