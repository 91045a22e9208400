package feed

import (
	"cmp"
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
)

var urlPattern = regexp.MustCompile(`(?i)\bhttps?://\S+`)

type Previewer interface {
	Fetch(ctx context.Context, url string) (*Preview, error)
}

// Builder turns upstream messages into feed items, looking up link previews
// in parallel while keeping the upstream order.
type Builder struct {
	previewer      Previewer
	workerCount    int
	previewTimeout time.Duration
}

func NewBuilder(previewer Previewer, workerCount int, previewTimeout time.Duration) *Builder {
	return &Builder{
		previewer:      previewer,
		workerCount:    max(workerCount, 1),
		previewTimeout: previewTimeout,
	}
}

func (b *Builder) Run(ctx context.Context, messages []Message) []Item {
	items := make([]Item, len(messages))
	if len(messages) == 0 {
		return items
	}

	sem := make(chan struct{}, b.workerCount)
	var wg sync.WaitGroup

	for i, message := range messages {
		wg.Add(1)
		go func() {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			items[i] = b.buildItem(ctx, message)
		}()
	}

	wg.Wait()

	return items
}

func (b *Builder) buildItem(ctx context.Context, message Message) Item {
	item := Item{
		Title:       message.AuthorName,
		Description: message.Content,
		URL:         message.URL,
		MessageID:   message.ID,
		ChannelID:   message.ChannelID,
		GuildID:     message.GuildID,
		Timestamp:   message.Timestamp,
		Attachments: buildAttachments(message),
	}

	link := FirstURL(message.Content)
	if link == "" || b.previewer == nil {
		return item
	}

	previewCtx := ctx
	if b.previewTimeout > 0 {
		var cancel context.CancelFunc
		previewCtx, cancel = context.WithTimeout(ctx, b.previewTimeout)
		defer cancel()
	}

	preview, err := b.previewer.Fetch(previewCtx, link)
	if err != nil {
		slog.Warn("Link preview failed", "message_id", message.ID, "url", link, "error", err)
		return item
	}
	if preview == nil {
		return item
	}

	item.Embed = &Embed{
		Title:       cmp.Or(preview.OGTitle, preview.Title),
		Description: cmp.Or(preview.OGDescription, preview.Description),
		Image:       cmp.Or(preview.OGImage, preview.Image),
		URL:         cmp.Or(preview.OGURL, link),
	}

	return item
}

func buildAttachments(message Message) []Attachment {
	attachments := lo.FilterMap(message.Attachments, func(a MessageAttachment, _ int) (Attachment, bool) {
		if a.URL == "" {
			slog.Debug("Skipping attachment without URL", "message_id", message.ID)
			return Attachment{}, false
		}
		return Attachment{
			URL:      a.URL,
			Type:     ClassifyMedia(a.ContentType),
			MIMEType: a.ContentType,
		}, true
	})

	if attachments == nil {
		return []Attachment{}
	}
	return attachments
}

// ClassifyMedia maps a declared content type to a media kind. Anything that
// is not an image is served as video.
func ClassifyMedia(contentType string) MediaKind {
	if strings.HasPrefix(contentType, "image/") {
		return MediaKindImage
	}
	return MediaKindVideo
}

// FirstURL returns the first http(s) URL in text, or "".
func FirstURL(text string) string {
	return urlPattern.FindString(text)
}
