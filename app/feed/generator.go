package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"time"
)

type GeneratorConfig struct {
	Title       string
	Description string
	Link        string
	SelfURL     string
	Version     string
}

// Generator renders a snapshot as RSS 2.0.
type Generator struct {
	config GeneratorConfig
}

func NewGenerator(config GeneratorConfig) *Generator {
	return &Generator{config: config}
}

func (g *Generator) Run(snapshot *Snapshot) (string, error) {
	if snapshot == nil {
		return "", fmt.Errorf("snapshot is nil")
	}

	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", cmp.Or(g.config.Title, "News"), 4)
	g.writeElement(&buf, "link", cmp.Or(g.config.Link, g.config.SelfURL), 4)
	g.writeElement(&buf, "description", cmp.Or(g.config.Description, "Mirrored channel news"), 4)

	if g.config.SelfURL != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(g.config.SelfURL)))
	}

	lastBuildDate := cmp.Or(snapshot.RefreshedAt, time.Now().In(time.Local))
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("News-Mirror/%s", cmp.Or(g.config.Version, "dev")), 4)

	for _, item := range snapshot.Items {
		g.writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, item Item) {
	buf.WriteString("    <item>\n")

	if item.MessageID != "" {
		buf.WriteString("      <guid isPermaLink=\"false\">")
		xml.EscapeText(buf, []byte(item.MessageID))
		buf.WriteString("</guid>\n")
	}

	g.writeElement(buf, "title", item.Title, 6)
	g.writeElement(buf, "link", item.URL, 6)
	g.writeElement(buf, "description", cmp.Or(item.Description, "No description available"), 6)

	if item.Embed != nil {
		buf.WriteString("      <content:encoded><![CDATA[")
		buf.WriteString(g.embedHTML(item))
		buf.WriteString("]]></content:encoded>\n")
	}

	if !item.Timestamp.IsZero() {
		g.writeElement(buf, "pubDate", item.Timestamp.Format(time.RFC1123Z), 6)
	}

	// RSS 2.0 allows a single enclosure per item
	for _, attachment := range item.Attachments {
		if attachment.URL == "" || attachment.MIMEType == "" {
			continue
		}
		buf.WriteString(fmt.Sprintf("      <enclosure url=\"%s\" length=\"0\" type=\"%s\" />\n",
			html.EscapeString(attachment.URL),
			html.EscapeString(attachment.MIMEType)))
		break
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) embedHTML(item Item) string {
	var buf bytes.Buffer

	if item.Description != "" {
		buf.WriteString("<p>" + html.EscapeString(item.Description) + "</p>")
	}

	embed := item.Embed
	buf.WriteString("<blockquote>")
	buf.WriteString(fmt.Sprintf("<a href=\"%s\">%s</a>",
		html.EscapeString(embed.URL), html.EscapeString(cmp.Or(embed.Title, embed.URL))))
	if embed.Description != "" {
		buf.WriteString("<p>" + html.EscapeString(embed.Description) + "</p>")
	}
	if embed.Image != "" {
		buf.WriteString(fmt.Sprintf("<img src=\"%s\" />", html.EscapeString(embed.Image)))
	}
	buf.WriteString("</blockquote>")

	return buf.String()
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
