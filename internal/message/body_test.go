package message

import "testing"

func TestDisplayBodyPlainTextCollapsesWhitespace(t *testing.T) {
	t.Parallel()

	got := DisplayBody("  hello   world \r\n\r\n second   line ", ContentText)
	if got != "hello world\nsecond line" {
		t.Fatalf("unexpected body: %q", got)
	}
}

func TestDisplayBodyStripsHTML(t *testing.T) {
	t.Parallel()

	input := `<html><head><style>p{color:red}</style></head><body><p>Hi there,</p><p>Thanks &amp; regards<br>Anna</p><!-- sig --></body></html>`
	got := DisplayBody(input, ContentHTML)
	if got != "Hi there,\nThanks & regards\nAnna" {
		t.Fatalf("unexpected body: %q", got)
	}
}

func TestDisplayBodyDeterministic(t *testing.T) {
	t.Parallel()

	input := `<div>Same <b>input</b></div>`
	if DisplayBody(input, ContentHTML) != DisplayBody(input, ContentHTML) {
		t.Fatalf("expected identical output for identical input")
	}
}

func TestDisplayBodyEmpty(t *testing.T) {
	t.Parallel()

	if got := DisplayBody("", ContentHTML); got != "" {
		t.Fatalf("expected empty body, got %q", got)
	}
}
