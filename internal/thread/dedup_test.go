package thread

import (
	"testing"

	"github.com/quilldesk/quill/internal/message"
)

func normalize(t *testing.T, raws ...message.RawMessage) []message.NormalizedMessage {
	t.Helper()

	nctx := message.NewNormalizeContext("", nil, nil)
	page := make([]message.NormalizedMessage, 0, len(raws))
	for _, raw := range raws {
		page = append(page, message.Normalize(raw, nctx))
	}
	return page
}

func emailRow(id, content, createdAt, fromEmail string) message.RawMessage {
	return message.RawMessage{
		ID:             id,
		ConversationID: "conv-1",
		Content:        content,
		ContentType:    message.ContentText,
		SenderType:     message.SenderCustomer,
		CreatedAt:      createdAt,
		EmailHeaders:   &message.EmailHeaders{From: fromEmail},
	}
}

func TestDedupSortPrimaryIDCollapse(t *testing.T) {
	t.Parallel()

	// The same stored record fetched twice across overlapping pages, with
	// drifted content and timestamps one minute apart.
	page := normalize(t,
		emailRow("msg-1", "original content", "2024-01-01T10:01:00Z", "anna@example.com"),
		emailRow("msg-1", "earlier content", "2024-01-01T10:00:00Z", "anna@example.com"),
	)

	got := DedupSort([][]message.NormalizedMessage{page}, false)
	if len(got) != 1 {
		t.Fatalf("expected 1 message after dedup, got %d", len(got))
	}
	if got[0].ID != "msg-1" {
		t.Fatalf("unexpected surviving id: %q", got[0].ID)
	}
	if got[0].Content != "earlier content" {
		t.Fatalf("expected the earlier-timestamped instance to survive, got %q", got[0].Content)
	}
}

func TestDedupSortSoftKeySameDay(t *testing.T) {
	t.Parallel()

	page := normalize(t,
		emailRow("msg-2", "Please reset my password", "2024-01-01T11:00:00Z", "anna@example.com"),
		emailRow("msg-1", "Please reset my password", "2024-01-01T10:00:00Z", "anna@example.com"),
	)

	got := DedupSort([][]message.NormalizedMessage{page}, false)
	if len(got) != 1 {
		t.Fatalf("expected soft-key duplicates to collapse, got %d messages", len(got))
	}
	if got[0].ID != "msg-1" {
		t.Fatalf("expected the earlier-timestamped id to survive, got %q", got[0].ID)
	}
}

func TestDedupSortKeepsDistinctSenders(t *testing.T) {
	t.Parallel()

	page := normalize(t,
		emailRow("msg-2", "Thanks!", "2024-01-01T11:00:00Z", "ben@example.com"),
		emailRow("msg-1", "Thanks!", "2024-01-01T10:00:00Z", "anna@example.com"),
	)

	got := DedupSort([][]message.NormalizedMessage{page}, false)
	if len(got) != 2 {
		t.Fatalf("expected same content from different senders to stay distinct, got %d", len(got))
	}
	if got[0].From.Email == got[1].From.Email {
		t.Fatalf("expected distinct sender emails, both %q", got[0].From.Email)
	}
}

func TestDedupSortKeepsDistinctDays(t *testing.T) {
	t.Parallel()

	page := normalize(t,
		emailRow("msg-2", "Any update?", "2024-01-02T10:00:00Z", "anna@example.com"),
		emailRow("msg-1", "Any update?", "2024-01-01T10:00:00Z", "anna@example.com"),
	)

	if got := DedupSort([][]message.NormalizedMessage{page}, false); len(got) != 2 {
		t.Fatalf("expected same content on different days to stay distinct, got %d", len(got))
	}
}

func TestDedupSortChronologicalOrder(t *testing.T) {
	t.Parallel()

	// Arrival order deliberately scrambled.
	page := normalize(t,
		emailRow("msg-3", "third", "2024-01-01T12:00:00Z", "anna@example.com"),
		emailRow("msg-1", "first", "2024-01-01T10:00:00Z", "anna@example.com"),
		emailRow("msg-2", "second", "2024-01-01T11:00:00Z", "anna@example.com"),
	)

	got := DedupSort([][]message.NormalizedMessage{page}, false)
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	for i, wantID := range []string{"msg-1", "msg-2", "msg-3"} {
		if got[i].ID != wantID {
			t.Fatalf("position %d: got %q want %q", i, got[i].ID, wantID)
		}
	}
	for i := 0; i+1 < len(got); i++ {
		if got[i].Timestamp.After(got[i+1].Timestamp) {
			t.Fatalf("ordering invariant violated at %d", i)
		}
	}
}

func TestDedupSortTimestampTieBreaksOnID(t *testing.T) {
	t.Parallel()

	page := normalize(t,
		emailRow("msg-b", "beta", "2024-01-01T10:00:00Z", "ben@example.com"),
		emailRow("msg-a", "alpha", "2024-01-01T10:00:00Z", "anna@example.com"),
	)

	got := DedupSort([][]message.NormalizedMessage{page}, false)
	if len(got) != 2 || got[0].ID != "msg-a" || got[1].ID != "msg-b" {
		t.Fatalf("expected lexicographic id tiebreak for equal timestamps, got %+v", idsOf(got))
	}
}

func TestDedupSortCollisionSurvivorAcrossPages(t *testing.T) {
	t.Parallel()

	// Newest page arrives first; the colliding row on the later-fetched
	// page carries the earlier timestamp and must still win the collapse,
	// even though the final array is re-sorted afterward.
	newest := normalize(t,
		emailRow("msg-9", "unrelated", "2024-01-01T12:00:00Z", "ben@example.com"),
		emailRow("msg-2", "Please reset my password", "2024-01-01T11:00:00Z", "anna@example.com"),
	)
	older := normalize(t,
		emailRow("msg-1", "Please reset my password", "2024-01-01T10:00:00Z", "anna@example.com"),
	)

	got := DedupSort([][]message.NormalizedMessage{newest, older}, false)
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d: %v", len(got), idsOf(got))
	}
	if got[0].ID != "msg-1" {
		t.Fatalf("expected the earlier instance to survive the collapse, got %v", idsOf(got))
	}
}

func TestDedupSortExcludesInternalNotes(t *testing.T) {
	t.Parallel()

	internal := emailRow("msg-2", "internal note", "2024-01-01T11:00:00Z", "me@support.example.com")
	internal.IsInternal = true
	page := normalize(t,
		internal,
		emailRow("msg-1", "visible", "2024-01-01T10:00:00Z", "anna@example.com"),
	)

	if got := DedupSort([][]message.NormalizedMessage{page}, true); len(got) != 1 || got[0].ID != "msg-1" {
		t.Fatalf("expected internal note filtered, got %v", idsOf(got))
	}
	if got := DedupSort([][]message.NormalizedMessage{page}, false); len(got) != 2 {
		t.Fatalf("expected internal note kept for agent view, got %v", idsOf(got))
	}
}

func TestDedupSortEmptyInput(t *testing.T) {
	t.Parallel()

	if got := DedupSort(nil, false); len(got) != 0 {
		t.Fatalf("expected empty output, got %d", len(got))
	}
}

func idsOf(msgs []message.NormalizedMessage) []string {
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	return ids
}
