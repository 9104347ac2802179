package message

import (
	"html"
	"regexp"
	"strings"
)

var (
	htmlHiddenBlockPattern = regexp.MustCompile(`(?is)<(script|style|head)\b[^>]*>.*?</\s*(?:script|style|head)\s*>`)
	htmlLineBreakPattern   = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>|</tr>|</li>|</blockquote>`)
	htmlTagPattern         = regexp.MustCompile(`<[^>]*>`)
	htmlCommentPattern     = regexp.MustCompile(`(?s)<!--.*?-->`)
)

// DisplayBody is the default visible-body transformation: HTML bodies are
// stripped to text, plain text is whitespace-normalized. Deterministic for
// identical input; identity and hashing always operate on the raw content,
// never on this output.
func DisplayBody(content string, contentType ContentType) string {
	if contentType == ContentHTML {
		return cleanText(stripHTML(content))
	}
	return cleanText(content)
}

func stripHTML(raw string) string {
	text := htmlCommentPattern.ReplaceAllString(raw, "")
	text = htmlHiddenBlockPattern.ReplaceAllString(text, "")
	text = htmlLineBreakPattern.ReplaceAllString(text, "\n")
	text = htmlTagPattern.ReplaceAllString(text, "")
	return html.UnescapeString(text)
}

// cleanText normalizes line endings, collapses in-line whitespace, and
// drops empty lines.
func cleanText(raw string) string {
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

	return strings.TrimSpace(strings.Join(paragraphs, "\n"))
}
