package message

import (
	"strings"
	"time"

	payloadschema "github.com/quilldesk/quill/schema"
)

// FromIngestEvent maps a validated v1 ingest payload onto a raw message.
// CreatedAt is re-encoded as RFC3339Nano UTC; the store fills it in when
// the payload carries none.
func FromIngestEvent(event *payloadschema.MessageEvent) RawMessage {
	raw := RawMessage{
		ConversationID: event.ConversationID,
		Content:        event.Content,
		ContentType:    ContentText,
		SenderType:     SenderType(event.SenderType),
		SenderID:       event.SenderID,
		IsInternal:     event.IsInternal,
		EmailSubject:   event.EmailSubject,
		ExternalID:     event.ExternalID,
		EmailMessageID: event.EmailMessageID,
	}

	if event.MessageID != nil {
		raw.ID = strings.TrimSpace(*event.MessageID)
	}
	if event.ContentType != nil {
		raw.ContentType = ContentType(*event.ContentType)
	}
	if event.CreatedAt != nil {
		if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(*event.CreatedAt)); err == nil {
			raw.CreatedAt = ts.UTC().Format(time.RFC3339Nano)
		}
	}

	if len(event.Attachments) > 0 {
		raw.Attachments = make([]Attachment, 0, len(event.Attachments))
		for _, attachment := range event.Attachments {
			raw.Attachments = append(raw.Attachments, Attachment{
				Name:     attachment.Name,
				URL:      attachment.URL,
				MimeType: attachment.MimeType,
				Size:     attachment.Size,
			})
		}
	}
	if event.EmailHeaders != nil {
		raw.EmailHeaders = &EmailHeaders{
			From:    event.EmailHeaders.From,
			To:      event.EmailHeaders.To,
			Cc:      event.EmailHeaders.Cc,
			ReplyTo: event.EmailHeaders.ReplyTo,
		}
	}

	return raw
}
