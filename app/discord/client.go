package discord

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v4"
	"github.com/samber/lo"

	"github.com/3dxone/news-mirror/app/feed"
)

var (
	ErrUnauthorized    = errors.New("discord rejected the bot token")
	ErrChannelNotFound = errors.New("discord channel not found")
)

// API is the part of *discordgo.Session the mirror needs.
type API interface {
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
}

var _ API = (*discordgo.Session)(nil)

type Client struct {
	api        API
	channelID  string
	guildID    string
	timeout    time.Duration
	newBackOff func() backoff.BackOff
}

func NewClient(token, channelID string, timeout time.Duration) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("discord token is required")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Client = &http.Client{Timeout: timeout}

	return NewClientWithAPI(session, channelID, timeout), nil
}

func NewClientWithAPI(api API, channelID string, timeout time.Duration) *Client {
	return &Client{
		api:       api,
		channelID: channelID,
		timeout:   timeout,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			b.MaxElapsedTime = time.Minute
			return b
		},
	}
}

// Verify checks the bot token and the configured channel. Transient errors
// are retried; a rejected token or a missing channel fail immediately.
func (c *Client) Verify(ctx context.Context) error {
	attempt := 0
	operation := func() error {
		attempt++

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		user, err := c.api.User("@me", discordgo.WithContext(callCtx))
		if err != nil {
			return classifyError(err, "failed to authenticate bot")
		}

		channel, err := c.api.Channel(c.channelID, discordgo.WithContext(callCtx))
		if err != nil {
			return classifyError(err, fmt.Sprintf("failed to load channel %s", c.channelID))
		}

		c.guildID = channel.GuildID

		slog.Info("Connected to Discord", "bot", user.Username, "channel", channel.Name, "channel_id", channel.ID, "guild_id", channel.GuildID)
		return nil
	}

	notify := func(err error, wait time.Duration) {
		slog.Warn("Discord verification failed, retrying", "attempt", attempt, "delay", wait.String(), "error", err)
	}

	return backoff.RetryNotify(operation, backoff.WithContext(c.newBackOff(), ctx), notify)
}

// RecentMessages returns up to limit messages, newest first.
func (c *Client) RecentMessages(ctx context.Context, limit int) ([]feed.Message, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages, err := c.api.ChannelMessages(c.channelID, limit, "", "", "", discordgo.WithContext(callCtx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages from channel %s: %w", c.channelID, err)
	}

	result := make([]feed.Message, 0, len(messages))
	for _, message := range messages {
		if message == nil {
			continue
		}
		result = append(result, c.convertMessage(message))
	}

	return result, nil
}

func (c *Client) convertMessage(message *discordgo.Message) feed.Message {
	channelID := cmp.Or(message.ChannelID, c.channelID)
	guildID := cmp.Or(message.GuildID, c.guildID)

	var authorName string
	if message.Author != nil {
		authorName = cmp.Or(message.Author.GlobalName, message.Author.Username)
	}

	attachments := lo.FilterMap(message.Attachments, func(a *discordgo.MessageAttachment, _ int) (feed.MessageAttachment, bool) {
		if a == nil {
			return feed.MessageAttachment{}, false
		}
		return feed.MessageAttachment{URL: a.URL, ContentType: a.ContentType}, true
	})

	return feed.Message{
		ID:          message.ID,
		ChannelID:   channelID,
		GuildID:     guildID,
		AuthorName:  authorName,
		Content:     message.Content,
		URL:         MessageURL(guildID, channelID, message.ID),
		Timestamp:   message.Timestamp,
		Attachments: attachments,
	}
}

// MessageURL builds the jump link Discord clients use for a message.
func MessageURL(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", cmp.Or(guildID, "@me"), channelID, messageID)
}

func classifyError(err error, message string) error {
	if errors.Is(err, discordgo.ErrUnauthorized) {
		return backoff.Permanent(fmt.Errorf("%s: %w: %w", message, ErrUnauthorized, err))
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return backoff.Permanent(fmt.Errorf("%s: %w: %w", message, ErrUnauthorized, err))
		case http.StatusNotFound:
			return backoff.Permanent(fmt.Errorf("%s: %w: %w", message, ErrChannelNotFound, err))
		}
	}

	return fmt.Errorf("%s: %w", message, err)
}
