package feed

import (
	"time"
)

// Upstream types

// Message is a chat message as returned by the upstream channel history,
// already stripped of platform specifics.
type Message struct {
	ID          string
	ChannelID   string
	GuildID     string
	AuthorName  string
	Content     string
	URL         string // canonical link back to the message
	Timestamp   time.Time
	Attachments []MessageAttachment
}

type MessageAttachment struct {
	URL         string
	ContentType string
}

// Preview holds the raw page metadata returned by a preview lookup.
// Builder decides which of the og/bare pairs wins.
type Preview struct {
	OGTitle       string
	Title         string
	OGDescription string
	Description   string
	OGImage       string
	Image         string
	OGURL         string
}

// Served types

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// Item is one normalized news entry. JSON names are what the desktop client reads.
type Item struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	URL         string       `json:"url"`
	MessageID   string       `json:"messageID"`
	ChannelID   string       `json:"channelID"`
	GuildID     string       `json:"guildID"`
	Timestamp   time.Time    `json:"timestamp"`
	Attachments []Attachment `json:"attachments"`
	Embed       *Embed       `json:"embed"`
}

type Attachment struct {
	URL      string    `json:"url"`
	Type     MediaKind `json:"type"`
	MIMEType string    `json:"-"`
}

// Embed is the link preview of the first URL in a message.
type Embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	URL         string `json:"url"`
}

// Configuration types

type ChannelConfig struct {
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Link        string         `yaml:"link"`
	Filters     []ConfigFilter `yaml:"filters"`
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
