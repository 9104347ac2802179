package message

import (
	"net/mail"
	"strings"
	"time"

	"github.com/quilldesk/quill/internal/globaltime"
)

// Normalize converts one raw message row into its canonical form. Pure and
// total: malformed rows degrade (unparsable createdAt becomes the current
// time) rather than failing, since dropping a message costs a support agent
// more than slightly mis-ordering one.
func Normalize(raw RawMessage, nctx NormalizeContext) NormalizedMessage {
	from := resolveSender(raw, nctx)

	normalized := NormalizedMessage{
		RawMessage:  raw,
		DedupKey:    PrimaryKey(raw.ID),
		VisibleBody: visibleBody(raw, nctx),
		From:        from,
		Timestamp:   parseCreatedAt(raw.CreatedAt),
	}
	normalized.SoftKey = SoftKey(raw.Content, senderIdentity(raw, from), normalized.Timestamp)

	if nctx.DetectLanguage != nil {
		normalized.Language = nctx.DetectLanguage(normalized.VisibleBody)
	}

	return normalized
}

// resolveSender picks the sender identity in priority order: a parseable
// email header From, then the stored sender id, then the bare sender type.
// A sender whose email or phone is in the agent directory is classified as
// an agent even when the raw row says customer; shared-mailbox replies and
// forwarded mail routinely mislabel sender_type.
func resolveSender(raw RawMessage, nctx NormalizeContext) Sender {
	sender := Sender{Type: raw.SenderType}
	if sender.Type != SenderAgent {
		sender.Type = SenderCustomer
	}

	if raw.EmailHeaders != nil {
		if address, err := mail.ParseAddress(strings.TrimSpace(raw.EmailHeaders.From)); err == nil {
			sender.Email = normalizeEmail(address.Address)
			sender.DisplayName = strings.TrimSpace(address.Name)
		}
	}

	if sender.Email == "" && raw.SenderID != nil {
		identity := strings.TrimSpace(*raw.SenderID)
		if strings.Contains(identity, "@") {
			if address, err := mail.ParseAddress(identity); err == nil {
				sender.Email = normalizeEmail(address.Address)
			} else {
				sender.Email = normalizeEmail(identity)
			}
		} else if nctx.IsAgentPhone(identity) {
			sender.Type = SenderAgent
		}
	}

	if sender.Email != "" && nctx.IsAgentEmail(sender.Email) {
		sender.Type = SenderAgent
	}

	return sender
}

// senderIdentity is the identity string fed into the soft dedup key. The
// resolved email wins; without one we fall back to the sender id, then the
// sender type, so two identity-less senders still separate on whatever
// signal exists.
func senderIdentity(raw RawMessage, from Sender) string {
	if from.Email != "" {
		return from.Email
	}
	if raw.SenderID != nil && strings.TrimSpace(*raw.SenderID) != "" {
		return strings.TrimSpace(*raw.SenderID)
	}
	return string(from.Type)
}

func parseCreatedAt(raw string) time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
			if ts, err := time.Parse(layout, trimmed); err == nil {
				return ts.UTC()
			}
		}
	}
	return globaltime.UTC()
}

func visibleBody(raw RawMessage, nctx NormalizeContext) string {
	if nctx.BodyFunc != nil {
		return nctx.BodyFunc(raw.Content, raw.ContentType)
	}
	return DisplayBody(raw.Content, raw.ContentType)
}
