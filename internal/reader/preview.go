package reader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
)

const (
	DefaultFetchTimeout  = 12 * time.Second
	DefaultBodyByteLimit = 2 * 1024 * 1024
	DefaultExcerptChars  = 280

	defaultUserAgent = "QuillLinkPreview/1.0 (+https://github.com/quilldesk/quill)"
)

// FetchOptions controls HTTP behavior for link preview extraction.
type FetchOptions struct {
	Timeout       time.Duration
	BodyByteLimit int64
	ExcerptChars  int
	UserAgent     string
	HTTPClient    *http.Client
}

// Preview is the readable summary of one link found in a message body.
type Preview struct {
	URL       string `json:"url"`
	Excerpt   string `json:"excerpt"`
	Truncated bool   `json:"truncated"`
}

var linkPattern = regexp.MustCompile(`https?://[^\s<>"'\)\]]+`)

// ExtractLinks pulls http(s) URLs out of a visible message body, in order
// of first appearance, deduplicated, capped at max.
func ExtractLinks(body string, max int) []string {
	if max <= 0 {
		return nil
	}

	matches := linkPattern.FindAllString(body, -1)
	links := make([]string, 0, min(len(matches), max))
	seen := make(map[string]struct{}, len(matches))
	for _, match := range matches {
		link := strings.TrimRight(match, ".,;:!?")
		if link == "" {
			continue
		}
		if _, exists := seen[link]; exists {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, link)
		if len(links) == max {
			break
		}
	}
	return links
}

// FetchPreview retrieves a URL and extracts a readable excerpt for the
// conversation link-preview endpoint.
func FetchPreview(ctx context.Context, rawURL string, opts FetchOptions) (*Preview, error) {
	page := strings.TrimSpace(rawURL)
	if page == "" {
		return nil, fmt.Errorf("url is required")
	}

	pageURL, err := url.Parse(page)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if pageURL.Scheme != "http" && pageURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", pageURL.Scheme)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	bodyLimit := opts.BodyByteLimit
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyByteLimit
	}

	excerptChars := opts.ExcerptChars
	if excerptChars <= 0 {
		excerptChars = DefaultExcerptChars
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, page, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, bodyLimit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	contentType := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Type")))
	var text string
	if strings.HasPrefix(contentType, "text/plain") {
		text = CleanText(string(body))
	} else {
		article, err := readability.FromReader(bytes.NewReader(body), pageURL)
		if err != nil {
			return nil, fmt.Errorf("readability parse: %w", err)
		}

		var renderedText bytes.Buffer
		if err := article.RenderText(&renderedText); err != nil {
			return nil, fmt.Errorf("render readability text: %w", err)
		}

		text = CleanText(renderedText.String())
		if text == "" {
			text = CleanText(article.Excerpt())
		}
	}

	if text == "" {
		return nil, fmt.Errorf("reader extracted empty content")
	}

	excerpt, truncated := TruncateText(text, excerptChars)
	return &Preview{
		URL:       page,
		Excerpt:   excerpt,
		Truncated: truncated,
	}, nil
}

// CleanText normalizes line endings and collapses extra in-line whitespace.
func CleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(strings.TrimSpace(line)), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}

// TruncateText clips text to maxChars runes and appends a single ellipsis rune when truncated.
func TruncateText(raw string, maxChars int) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if maxChars <= 0 {
		return trimmed, false
	}

	runes := []rune(trimmed)
	if len(runes) <= maxChars {
		return trimmed, false
	}
	if maxChars == 1 {
		return "…", true
	}

	clipped := strings.TrimSpace(string(runes[:maxChars-1]))
	if clipped == "" {
		return "…", true
	}

	return clipped + "…", true
}
