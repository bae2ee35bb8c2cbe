// Package opml reads and writes OPML feed lists for subscription
// interchange with other podcast clients.
package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"
)

// OPML is the root of an OPML document.
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

// Outline is a single outline element, either a feed or a grouping.
type Outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	XMLURL   string    `xml:"xmlUrl,attr,omitempty"`
	HTMLURL  string    `xml:"htmlUrl,attr,omitempty"`
	Outlines []Outline `xml:"outline,omitempty"`
}

// Feed is one flattened feed entry. Grouping outlines are walked but
// the grouping itself is discarded; subscriptions carry no hierarchy.
type Feed struct {
	Title   string
	FeedURL string
}

// Parse reads an OPML document and returns its feeds, flattened.
func Parse(r io.Reader) ([]Feed, error) {
	var doc OPML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode opml: %w", err)
	}
	var feeds []Feed
	var walk func(outlines []Outline)
	walk = func(outlines []Outline) {
		for _, o := range outlines {
			if o.XMLURL != "" {
				title := o.Title
				if title == "" {
					title = o.Text
				}
				feeds = append(feeds, Feed{Title: title, FeedURL: o.XMLURL})
			}
			if len(o.Outlines) > 0 {
				walk(o.Outlines)
			}
		}
	}
	walk(doc.Body.Outlines)
	return feeds, nil
}

// Export generates a flat OPML 2.0 document from the feed list.
func Export(title string, feeds []Feed) ([]byte, error) {
	doc := OPML{
		Version: "2.0",
		Head: Head{
			Title:       title,
			DateCreated: time.Now().Format(time.RFC1123Z),
		},
	}
	for _, f := range feeds {
		doc.Body.Outlines = append(doc.Body.Outlines, Outline{
			Text:   f.Title,
			Title:  f.Title,
			Type:   "rss",
			XMLURL: f.FeedURL,
		})
	}

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), output...), nil
}
