package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/3dxone/news-mirror/app/feed"
)

type RefreshNewsTask struct {
	Task
	source        MessageSource
	builder       ItemBuilder
	filterer      *feed.Filterer
	store         *feed.Store
	channelConfig *feed.ChannelConfig
	messageLimit  int
}

func NewRefreshNewsTask(source MessageSource, builder ItemBuilder, filterer *feed.Filterer,
	store *feed.Store, channelConfig *feed.ChannelConfig, messageLimit int) *RefreshNewsTask {
	return &RefreshNewsTask{
		Task:          NewTask(TaskTypeRefreshNews),
		source:        source,
		builder:       builder,
		filterer:      filterer,
		store:         store,
		channelConfig: channelConfig,
		messageLimit:  messageLimit,
	}
}

// Execute runs one refresh cycle. On failure the store keeps serving the
// previous snapshot.
func (t *RefreshNewsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	messages, err := t.source.RecentMessages(ctx, t.messageLimit)
	if err != nil {
		err = fmt.Errorf("failed to fetch channel messages: %w", err)
		t.store.RecordFailure(err, time.Now().UTC())
		return err
	}

	items := t.builder.Run(ctx, messages)

	if t.filterer != nil {
		items = t.filterer.Run(items, t.channelConfig)
	}

	// A cancelled cycle may hold partially enriched items; keep the old snapshot
	if err := ctx.Err(); err != nil {
		t.store.RecordFailure(err, time.Now().UTC())
		return err
	}

	snapshot := t.store.Replace(items, time.Now().UTC())

	slog.Info("News refreshed",
		"messages", len(messages),
		"items", len(snapshot.Items),
		"previews", lo.CountBy(snapshot.Items, func(item feed.Item) bool { return item.Embed != nil }),
		"duration", t.GetDuration())

	return nil
}
