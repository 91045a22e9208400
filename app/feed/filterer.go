package feed

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"
)

var filterFields = map[string]bool{
	"title":       true,
	"description": true,
	"url":         true,
	"embed":       true,
	"attachments": true,
}

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run drops the items rejected by the channel filters. The relative order of
// the remaining items is unchanged.
func (f *Filterer) Run(items []Item, channelConfig *ChannelConfig) []Item {
	if channelConfig == nil || len(channelConfig.Filters) == 0 {
		return items
	}

	kept := make([]Item, 0, len(items))
	for _, item := range items {
		if filtered, reason := f.applyFilters(item, channelConfig.Filters); filtered {
			slog.Debug("Item filtered", "message_id", item.MessageID, "reason", reason)
			continue
		}
		kept = append(kept, item)
	}

	return kept
}

func (f *Filterer) applyFilters(item Item, filters []ConfigFilter) (bool, string) {
	for _, filter := range filters {
		value := f.getFieldValue(item, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := lo.ContainsBy(filter.Includes, func(include string) bool {
				return f.matchesFilter(value, include)
			})
			if !matched {
				return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(item Item, field string) string {
	switch field {
	case "title":
		return item.Title
	case "description":
		return item.Description
	case "url":
		return item.URL
	case "embed":
		if item.Embed == nil {
			return ""
		}
		return item.Embed.Title + " " + item.Embed.Description
	case "attachments":
		return strings.Join(lo.Map(item.Attachments, func(a Attachment, _ int) string {
			return string(a.Type) + " " + a.URL
		}), " ")
	default:
		return ""
	}
}
