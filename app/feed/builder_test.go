package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePreviewer struct {
	mu       sync.Mutex
	previews map[string]*Preview
	delays   map[string]time.Duration
	block    map[string]bool
	calls    []string
}

func (f *fakePreviewer) Fetch(ctx context.Context, url string) (*Preview, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	delay := f.delays[url]
	block := f.block[url]
	preview, ok := f.previews[url]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if !ok {
		return nil, errors.New("no preview")
	}
	return preview, nil
}

func (f *fakePreviewer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestBuilder_Scenario(t *testing.T) {
	previewer := &fakePreviewer{
		previews: map[string]*Preview{
			"https://example.com": {
				OGTitle: "Example",
				OGImage: "https://example.com/img.png",
			},
		},
	}
	builder := NewBuilder(previewer, 4, time.Second)

	messages := []Message{
		{ID: "1", ChannelID: "c", GuildID: "g", AuthorName: "alice", Content: "plain text"},
		{ID: "2", ChannelID: "c", GuildID: "g", AuthorName: "bob", Content: "look at https://example.com"},
		{ID: "3", ChannelID: "c", GuildID: "g", AuthorName: "carol", Content: "a picture",
			Attachments: []MessageAttachment{{URL: "https://x/y.png", ContentType: "image/png"}}},
	}

	items := builder.Run(context.Background(), messages)

	require.Len(t, items, 3)
	assert.Equal(t, "1", items[0].MessageID)
	assert.Equal(t, "2", items[1].MessageID)
	assert.Equal(t, "3", items[2].MessageID)

	assert.Nil(t, items[0].Embed)
	assert.Equal(t, []Attachment{}, items[0].Attachments)

	require.NotNil(t, items[1].Embed)
	assert.Equal(t, "Example", items[1].Embed.Title)
	assert.Equal(t, "https://example.com/img.png", items[1].Embed.Image)
	assert.Equal(t, "https://example.com", items[1].Embed.URL)

	require.Len(t, items[2].Attachments, 1)
	assert.Equal(t, "https://x/y.png", items[2].Attachments[0].URL)
	assert.Equal(t, MediaKindImage, items[2].Attachments[0].Type)
	assert.Nil(t, items[2].Embed)
}

func TestBuilder_PreservesOrderWithSlowPreviews(t *testing.T) {
	previewer := &fakePreviewer{
		previews: map[string]*Preview{},
		delays:   map[string]time.Duration{},
	}

	var messages []Message
	for i := 0; i < 8; i++ {
		url := "https://example.com/" + string(rune('a'+i))
		previewer.previews[url] = &Preview{OGTitle: url}
		// earlier messages finish last
		previewer.delays[url] = time.Duration(8-i) * 5 * time.Millisecond
		messages = append(messages, Message{ID: string(rune('a' + i)), Content: "see " + url})
	}

	builder := NewBuilder(previewer, 8, time.Second)
	items := builder.Run(context.Background(), messages)

	require.Len(t, items, len(messages))
	for i, item := range items {
		assert.Equal(t, messages[i].ID, item.MessageID)
		require.NotNil(t, item.Embed)
		assert.Equal(t, "https://example.com/"+messages[i].ID, item.Embed.Title)
	}
}

func TestBuilder_OnlyFirstURLIsPreviewed(t *testing.T) {
	previewer := &fakePreviewer{
		previews: map[string]*Preview{
			"https://first.example":  {Title: "First"},
			"https://second.example": {Title: "Second"},
		},
	}
	builder := NewBuilder(previewer, 2, time.Second)

	items := builder.Run(context.Background(), []Message{
		{ID: "1", Content: "https://first.example and https://second.example"},
	})

	require.Len(t, items, 1)
	require.NotNil(t, items[0].Embed)
	assert.Equal(t, "First", items[0].Embed.Title)
	assert.Equal(t, []string{"https://first.example"}, previewer.Calls())
}

func TestBuilder_PreviewTimeoutLeavesEmbedEmpty(t *testing.T) {
	previewer := &fakePreviewer{
		previews: map[string]*Preview{"https://ok.example": {OGTitle: "OK"}},
		block:    map[string]bool{"https://hang.example": true},
	}
	builder := NewBuilder(previewer, 2, 20*time.Millisecond)

	messages := []Message{
		{ID: "1", AuthorName: "alice", Content: "https://hang.example", URL: "https://discord.com/channels/g/c/1",
			Attachments: []MessageAttachment{{URL: "https://cdn/v.mp4", ContentType: "video/mp4"}}},
		{ID: "2", AuthorName: "bob", Content: "https://ok.example"},
	}

	done := make(chan []Item)
	go func() { done <- builder.Run(context.Background(), messages) }()

	var items []Item
	select {
	case items = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("builder did not finish after preview timeout")
	}

	require.Len(t, items, 2)
	assert.Nil(t, items[0].Embed)
	assert.Equal(t, "alice", items[0].Title)
	assert.Equal(t, "https://hang.example", items[0].Description)
	assert.Equal(t, "https://discord.com/channels/g/c/1", items[0].URL)
	assert.Equal(t, []Attachment{{URL: "https://cdn/v.mp4", Type: MediaKindVideo, MIMEType: "video/mp4"}}, items[0].Attachments)

	require.NotNil(t, items[1].Embed)
	assert.Equal(t, "OK", items[1].Embed.Title)
}

func TestBuilder_EmbedFallbacks(t *testing.T) {
	previewer := &fakePreviewer{
		previews: map[string]*Preview{
			"https://example.com/page": {
				Title:         "Plain title",
				OGDescription: "OG description",
				Description:   "Plain description",
				Image:         "https://example.com/fallback.png",
				OGURL:         "https://example.com/canonical",
			},
		},
	}
	builder := NewBuilder(previewer, 1, time.Second)

	items := builder.Run(context.Background(), []Message{{ID: "1", Content: "https://example.com/page"}})

	require.NotNil(t, items[0].Embed)
	assert.Equal(t, &Embed{
		Title:       "Plain title",
		Description: "OG description",
		Image:       "https://example.com/fallback.png",
		URL:         "https://example.com/canonical",
	}, items[0].Embed)
}

func TestBuilder_AttachmentsNeverNull(t *testing.T) {
	builder := NewBuilder(nil, 1, 0)

	items := builder.Run(context.Background(), []Message{
		{ID: "1", Content: "nothing here"},
		{ID: "2", Attachments: []MessageAttachment{{URL: "", ContentType: "image/png"}}},
	})

	for _, item := range items {
		assert.NotNil(t, item.Attachments)
		assert.Empty(t, item.Attachments)
	}

	data, err := json.Marshal(items[0])
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []any{}, decoded["attachments"])
	assert.Nil(t, decoded["embed"])
}

func TestBuilder_EmptyInput(t *testing.T) {
	builder := NewBuilder(nil, 1, 0)

	items := builder.Run(context.Background(), nil)

	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestClassifyMedia(t *testing.T) {
	tests := []struct {
		contentType string
		expected    MediaKind
	}{
		{"image/png", MediaKindImage},
		{"image/gif", MediaKindImage},
		{"video/mp4", MediaKindVideo},
		{"application/pdf", MediaKindVideo},
		{"", MediaKindVideo},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyMedia(tt.contentType))
		})
	}
}

func TestFirstURL(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"no url", "just words", ""},
		{"single", "go to https://example.com now", "https://example.com"},
		{"http", "http://example.org/a?b=c", "http://example.org/a?b=c"},
		{"two urls", "https://a.example https://b.example", "https://a.example"},
		{"uppercase scheme", "HTTPS://EXAMPLE.COM/X", "HTTPS://EXAMPLE.COM/X"},
		{"not a scheme", "ftp://example.com", ""},
		{"glued to word", "xhttps://example.com", ""},
		{"newline terminated", "https://example.com/path\nnext line", "https://example.com/path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FirstURL(tt.text))
		})
	}
}
