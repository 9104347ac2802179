package message

import (
	"testing"
	"time"
)

func TestHashContentDeterministic(t *testing.T) {
	t.Parallel()

	if HashContent("Hello world") != HashContent("Hello world") {
		t.Fatalf("expected identical input to hash identically")
	}
}

func TestHashContentCaseSensitive(t *testing.T) {
	t.Parallel()

	if HashContent("Hello world") == HashContent("Hello World") {
		t.Fatalf("expected case difference to change the hash")
	}
}

func TestSoftKeySameSenderSameDay(t *testing.T) {
	t.Parallel()

	first := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	second := time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)

	if SoftKey("hello", "anna@example.com", first) != SoftKey("hello", "anna@example.com", second) {
		t.Fatalf("expected identical content/sender/day to share a soft key")
	}
}

func TestSoftKeySeparatesSenders(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	if SoftKey("hello", "anna@example.com", at) == SoftKey("hello", "ben@example.com", at) {
		t.Fatalf("expected different senders to produce different soft keys")
	}
}

func TestSoftKeySeparatesDays(t *testing.T) {
	t.Parallel()

	day1 := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC)

	if SoftKey("hello", "anna@example.com", day1) == SoftKey("hello", "anna@example.com", day2) {
		t.Fatalf("expected different calendar days to produce different soft keys")
	}
}

func TestSoftKeyTruncatesToUTCDay(t *testing.T) {
	t.Parallel()

	berlin := time.FixedZone("CET", 1*60*60)
	local := time.Date(2024, 1, 2, 0, 30, 0, 0, berlin)
	utc := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)

	if SoftKey("hello", "anna@example.com", local) != SoftKey("hello", "anna@example.com", utc) {
		t.Fatalf("expected day truncation to happen in UTC")
	}
}

func TestPrimaryKeyUsesRowID(t *testing.T) {
	t.Parallel()

	if PrimaryKey("msg-1") == PrimaryKey("msg-2") {
		t.Fatalf("expected distinct row ids to produce distinct primary keys")
	}
	if PrimaryKey("msg-1") != PrimaryKey("msg-1") {
		t.Fatalf("expected the primary key to be stable per row id")
	}
}
