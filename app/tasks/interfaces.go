package tasks

import (
	"context"

	"github.com/3dxone/news-mirror/app/feed"
)

// MessageSource is the upstream channel history.
type MessageSource interface {
	RecentMessages(ctx context.Context, limit int) ([]feed.Message, error)
}

type ItemBuilder interface {
	Run(ctx context.Context, messages []feed.Message) []feed.Item
}
