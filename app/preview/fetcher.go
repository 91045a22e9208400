package preview

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/3dxone/news-mirror/app/feed"
)

const maxBodySize = 2 << 20

var _ feed.Previewer = (*Fetcher)(nil)

// Fetcher resolves link previews by downloading the page and reading its
// Open Graph tags, falling back to plain HTML metadata.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
}

func NewFetcher(httpClient *http.Client, userAgent string) *Fetcher {
	return &Fetcher{
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, link string) (*feed.Preview, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType) {
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}

	body, err := decodeBody(io.LimitReader(resp.Body, maxBodySize), contentType)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// Redirects change the base for relative image links
	if resp.Request != nil && resp.Request.URL != nil {
		pageURL = resp.Request.URL
	}

	return Parse(data, pageURL)
}

// Parse extracts preview metadata from an HTML document.
func Parse(data []byte, pageURL *url.URL) (*feed.Preview, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	preview := &feed.Preview{
		OGTitle:       metaContent(doc, "og:title"),
		OGDescription: metaContent(doc, "og:description"),
		OGImage:       cmp.Or(metaContent(doc, "og:image"), metaContent(doc, "og:image:url"), metaContent(doc, "og:image:secure_url")),
		OGURL:         metaContent(doc, "og:url"),
		Title:         strings.TrimSpace(doc.Find("head title").First().Text()),
		Description:   metaContent(doc, "description"),
	}

	if href, ok := doc.Find(`link[rel="image_src"]`).First().Attr("href"); ok {
		preview.Image = strings.TrimSpace(href)
	}

	if needsFallback(preview) {
		applyReadability(preview, data, pageURL)
	}

	preview.OGImage = resolve(pageURL, preview.OGImage)
	preview.Image = resolve(pageURL, preview.Image)
	preview.OGURL = resolve(pageURL, preview.OGURL)

	return preview, nil
}

func needsFallback(p *feed.Preview) bool {
	return cmp.Or(p.OGTitle, p.Title) == "" ||
		cmp.Or(p.OGDescription, p.Description) == "" ||
		cmp.Or(p.OGImage, p.Image) == ""
}

func applyReadability(p *feed.Preview, data []byte, pageURL *url.URL) {
	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		slog.Debug("Readability fallback failed", "url", pageURL, "error", err)
		return
	}

	p.Title = cmp.Or(p.Title, strings.TrimSpace(article.Title))
	p.Description = cmp.Or(p.Description, strings.TrimSpace(article.Excerpt))
	p.Image = cmp.Or(p.Image, strings.TrimSpace(article.Image))
}

func metaContent(doc *goquery.Document, key string) string {
	var content string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name := cmp.Or(s.AttrOr("property", ""), s.AttrOr("name", ""))
		if !strings.EqualFold(strings.TrimSpace(name), key) {
			return true
		}
		content = strings.TrimSpace(s.AttrOr("content", ""))
		return content == ""
	})
	return content
}

func resolve(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// decodeBody converts the body to UTF-8. A charset in the Content-Type header
// wins; otherwise the document's own meta charset is sniffed.
func decodeBody(r io.Reader, contentType string) (io.Reader, error) {
	var name string
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		name = strings.TrimSpace(params["charset"])
	}

	if name == "" {
		decoded, err := charset.NewReader(r, contentType)
		if err != nil {
			return nil, fmt.Errorf("failed to detect charset: %w", err)
		}
		return decoded, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", name, err)
	}

	return transform.NewReader(r, enc.NewDecoder()), nil
}
