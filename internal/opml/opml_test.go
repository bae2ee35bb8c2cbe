package opml

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseFlattensGroups(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
  <head><title>Feeds</title></head>
  <body>
    <outline text="Go Time" type="rss" xmlUrl="https://example.com/gotime.xml"/>
    <outline text="Tech">
      <outline text="The Changelog" title="The Changelog" type="rss" xmlUrl="https://example.com/changelog.xml"/>
      <outline text="Nested">
        <outline text="Deep Feed" type="rss" xmlUrl="https://example.com/deep.xml"/>
      </outline>
    </outline>
  </body>
</opml>`

	feeds, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(feeds) != 3 {
		t.Fatalf("expected 3 feeds, got %d", len(feeds))
	}
	if feeds[0].Title != "Go Time" || feeds[0].FeedURL != "https://example.com/gotime.xml" {
		t.Errorf("unexpected first feed: %+v", feeds[0])
	}
	// title attribute wins over text when present
	if feeds[1].Title != "The Changelog" {
		t.Errorf("unexpected second feed title: %s", feeds[1].Title)
	}
	if feeds[2].FeedURL != "https://example.com/deep.xml" {
		t.Errorf("expected nested feed to be found, got %+v", feeds[2])
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse(strings.NewReader("not xml at all")); err == nil {
		t.Error("expected parse error")
	}
}

func TestExportRoundTrip(t *testing.T) {
	feeds := []Feed{
		{Title: "Show A", FeedURL: "https://example.com/a.xml"},
		{Title: "Show B", FeedURL: "https://example.com/b.xml"},
	}

	data, err := Export("my subscriptions", feeds)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !bytes.Contains(data, []byte("my subscriptions")) {
		t.Error("expected title in output")
	}

	parsed, err := Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("re-parse failed: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 feeds, got %d", len(parsed))
	}
	if parsed[0] != feeds[0] || parsed[1] != feeds[1] {
		t.Errorf("round trip mismatch: %+v", parsed)
	}
}
