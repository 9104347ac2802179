package reader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestCleanTextCollapsesWhitespaceAndPreservesParagraphs(t *testing.T) {
	t.Parallel()

	input := "  First   paragraph \n\n Second\tparagraph \r\n\r\nThird line "
	got := CleanText(input)
	want := "First paragraph\n\nSecond paragraph\n\nThird line"
	if got != want {
		t.Fatalf("CleanText mismatch\nwant: %q\ngot:  %q", want, got)
	}
}

func TestTruncateText(t *testing.T) {
	t.Parallel()

	input := "abcdefghijklmnopqrstuvwxyz"

	got, truncated := TruncateText(input, 10)
	if !truncated {
		t.Fatalf("expected truncated=true")
	}
	if got != "abcdefghi…" {
		t.Fatalf("unexpected truncated text: %q", got)
	}

	full, wasTruncated := TruncateText("short", 10)
	if wasTruncated {
		t.Fatalf("expected truncated=false for short text")
	}
	if full != "short" {
		t.Fatalf("unexpected short text: %q", full)
	}
}

func TestExtractLinks(t *testing.T) {
	t.Parallel()

	body := "See https://example.com/docs, then https://example.com/docs again,\n" +
		"and finally http://status.example.com/incident/7."
	got := ExtractLinks(body, 5)
	want := []string{
		"https://example.com/docs",
		"http://status.example.com/incident/7",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected links\nwant: %v\ngot:  %v", want, got)
	}
}

func TestExtractLinksCapsResults(t *testing.T) {
	t.Parallel()

	body := "https://a.example https://b.example https://c.example"
	got := ExtractLinks(body, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 links, got %v", got)
	}
}

func TestFetchPreviewPlainText(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Scheduled maintenance\n\nThe portal is down  until   further notice."))
	}))
	defer server.Close()

	preview, err := FetchPreview(context.Background(), server.URL, FetchOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Scheduled maintenance\n\nThe portal is down until further notice."
	if preview.Excerpt != want {
		t.Fatalf("unexpected excerpt\nwant: %q\ngot:  %q", want, preview.Excerpt)
	}
	if preview.Truncated {
		t.Fatalf("expected short excerpt to not be truncated")
	}
}

func TestFetchPreviewTruncatesLongText(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("status update ", 100)))
	}))
	defer server.Close()

	preview, err := FetchPreview(context.Background(), server.URL, FetchOptions{ExcerptChars: 40})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !preview.Truncated {
		t.Fatalf("expected truncation for long body")
	}
	if got := len([]rune(preview.Excerpt)); got > 40 {
		t.Fatalf("excerpt exceeds limit: %d runes", got)
	}
}

func TestFetchPreviewRejectsNonHTTPScheme(t *testing.T) {
	t.Parallel()

	if _, err := FetchPreview(context.Background(), "ftp://example.com/file", FetchOptions{}); err == nil {
		t.Fatalf("expected error for ftp scheme")
	}
}

func TestFetchPreviewErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	if _, err := FetchPreview(context.Background(), server.URL, FetchOptions{}); err == nil {
		t.Fatalf("expected error for non-2xx status")
	}
}
