package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

func testGenerator() *Generator {
	return NewGenerator(GeneratorConfig{
		Title:       "Community News",
		Description: "Mirrored announcements",
		Link:        "https://example.com",
		SelfURL:     "http://localhost:3000/news.rss",
		Version:     "test",
	})
}

func TestGenerateRSS(t *testing.T) {
	generator := testGenerator()

	refreshedAt := time.Date(2023, 7, 3, 12, 0, 0, 0, time.UTC)
	postedAt := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)

	snapshot := &Snapshot{
		RefreshedAt: refreshedAt,
		Items: []Item{
			{
				Title:       "alice",
				Description: "New build is out https://example.com/build",
				URL:         "https://discord.com/channels/1/2/3",
				MessageID:   "3",
				Timestamp:   postedAt,
				Attachments: []Attachment{{URL: "https://cdn.example.com/shot.png", Type: MediaKindImage, MIMEType: "image/png"}},
				Embed: &Embed{
					Title:       "Build 42",
					Description: "Release notes",
					Image:       "https://example.com/build.png",
					URL:         "https://example.com/build",
				},
			},
			{
				Title:       "bob",
				Description: "",
				URL:         "https://discord.com/channels/1/2/4",
				MessageID:   "4",
				Attachments: []Attachment{},
			},
		},
	}

	rss, err := generator.Run(snapshot)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(rss, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Error("RSS should contain XML declaration")
	}

	if !strings.Contains(rss, "<title>Community News</title>") {
		t.Error("RSS should contain channel title")
	}

	if !strings.Contains(rss, `<atom:link href="http://localhost:3000/news.rss" rel="self" type="application/rss+xml" />`) {
		t.Error("RSS should contain atom:link self reference")
	}

	if !strings.Contains(rss, "<lastBuildDate>Mon, 03 Jul 2023 12:00:00 +0000</lastBuildDate>") {
		t.Error("RSS should use the snapshot refresh time as lastBuildDate")
	}

	if !strings.Contains(rss, `<guid isPermaLink="false">3</guid>`) {
		t.Error("RSS should contain message id as guid")
	}

	if !strings.Contains(rss, `<enclosure url="https://cdn.example.com/shot.png" length="0" type="image/png" />`) {
		t.Error("RSS should contain attachment enclosure")
	}

	if !strings.Contains(rss, "<description>No description available</description>") {
		t.Error("RSS should contain placeholder description for empty messages")
	}

	// Round trip through a real feed parser
	parsed, err := gofeed.NewParser().ParseString(rss)
	if err != nil {
		t.Fatalf("Generated RSS should parse, got: %v", err)
	}

	if parsed.Title != "Community News" {
		t.Errorf("Expected parsed title 'Community News', got '%s'", parsed.Title)
	}
	if len(parsed.Items) != 2 {
		t.Fatalf("Expected 2 parsed items, got %d", len(parsed.Items))
	}
	if parsed.Items[0].GUID != "3" || parsed.Items[1].GUID != "4" {
		t.Errorf("Expected items in snapshot order, got %s, %s", parsed.Items[0].GUID, parsed.Items[1].GUID)
	}
	if parsed.Items[0].Link != "https://discord.com/channels/1/2/3" {
		t.Errorf("Unexpected item link: %s", parsed.Items[0].Link)
	}
	if parsed.Items[0].PublishedParsed == nil || !parsed.Items[0].PublishedParsed.Equal(postedAt) {
		t.Errorf("Expected published date %v, got %v", postedAt, parsed.Items[0].PublishedParsed)
	}
	if !strings.Contains(parsed.Items[0].Content, `<a href="https://example.com/build">Build 42</a>`) {
		t.Errorf("Expected embed link in content, got %s", parsed.Items[0].Content)
	}
	if len(parsed.Items[0].Enclosures) != 1 {
		t.Errorf("Expected 1 enclosure, got %d", len(parsed.Items[0].Enclosures))
	}
}

func TestGenerateEscapesContent(t *testing.T) {
	generator := testGenerator()

	snapshot := &Snapshot{
		RefreshedAt: time.Now(),
		Items: []Item{
			{
				Title:       "<script>",
				Description: "a & b ]]> c",
				MessageID:   "1",
				Embed:       &Embed{Title: "x ]]> y", URL: "https://example.com/?a=1&b=2"},
			},
		},
	}

	rss, err := generator.Run(snapshot)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if strings.Contains(rss, "<title><script></title>") {
		t.Error("Title should be escaped")
	}
	if strings.Count(rss, "]]>") != 1 {
		t.Error("CDATA terminator should only appear once")
	}

	if _, err := gofeed.NewParser().ParseString(rss); err != nil {
		t.Errorf("Escaped RSS should parse, got: %v", err)
	}
}

func TestGenerateEmptySnapshot(t *testing.T) {
	generator := NewGenerator(GeneratorConfig{})

	rss, err := generator.Run(&Snapshot{Items: []Item{}})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(rss, "<title>News</title>") {
		t.Error("RSS should fall back to default title")
	}
	if strings.Contains(rss, "<item>") {
		t.Error("Empty snapshot should render no items")
	}
	if !strings.Contains(rss, "<generator>News-Mirror/dev</generator>") {
		t.Error("RSS should contain generator with default version")
	}

	if _, err := generator.Run(nil); err == nil {
		t.Error("Expected error for nil snapshot")
	}
}
