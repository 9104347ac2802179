package message

import (
	"strings"
	"time"
)

// SenderType labels which side of the conversation authored a message.
type SenderType string

const (
	SenderCustomer SenderType = "customer"
	SenderAgent    SenderType = "agent"
)

// ContentType labels the encoding of a raw message body.
type ContentType string

const (
	ContentText ContentType = "text/plain"
	ContentHTML ContentType = "html"
)

// Attachment describes a file attached to a message. The normalization
// engine carries attachments through untouched.
type Attachment struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// EmailHeaders is the structured header bag captured for messages that
// arrived over email. Only From participates in sender resolution.
type EmailHeaders struct {
	From    string   `json:"from,omitempty"`
	To      []string `json:"to,omitempty"`
	Cc      []string `json:"cc,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// RawMessage is one stored message row exactly as the paginated store
// returns it. CreatedAt stays a string here: a malformed timestamp on a
// single row must degrade that row, not fail the page.
type RawMessage struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	Content        string        `json:"content"`
	ContentType    ContentType   `json:"content_type"`
	SenderType     SenderType    `json:"sender_type"`
	SenderID       *string       `json:"sender_id,omitempty"`
	IsInternal     bool          `json:"is_internal"`
	Attachments    []Attachment  `json:"attachments,omitempty"`
	CreatedAt      string        `json:"created_at"`
	EmailHeaders   *EmailHeaders `json:"email_headers,omitempty"`
	EmailSubject   *string       `json:"email_subject,omitempty"`
	ExternalID     *string       `json:"external_id,omitempty"`
	EmailMessageID *string       `json:"email_message_id,omitempty"`
}

// Sender is the resolved identity of the party that authored a message.
type Sender struct {
	Email       string     `json:"email,omitempty"`
	DisplayName string     `json:"display_name,omitempty"`
	Type        SenderType `json:"type"`
}

// NormalizedMessage is the canonical form of one raw message. All raw
// fields are carried through for downstream consumers.
type NormalizedMessage struct {
	RawMessage

	// DedupKey is the primary identity, derived from the row id. Two
	// physical fetches of the same stored record always share it.
	DedupKey string `json:"dedup_key"`
	// SoftKey is the fallback identity (content hash + sender + UTC day)
	// applied only when primary ids differ.
	SoftKey string `json:"soft_key"`

	VisibleBody string    `json:"visible_body"`
	From        Sender    `json:"from"`
	Timestamp   time.Time `json:"timestamp"`
	Language    string    `json:"language,omitempty"`
}

// NormalizeContext carries the per-viewing-session identity knowledge used
// to resolve senders. Construct it once at the call boundary and pass it
// into every Normalize call; it is never ambient state.
type NormalizeContext struct {
	CurrentUserEmail string
	agentEmails      map[string]struct{}
	agentPhones      map[string]struct{}

	// BodyFunc overrides the visible-body transformation. Must be
	// deterministic for identical input. Nil means the default.
	BodyFunc func(content string, contentType ContentType) string
	// DetectLanguage tags the normalized message with an ISO-639-1 code.
	// Nil disables language tagging.
	DetectLanguage func(text string) string
}

// NewNormalizeContext builds a context from the current agent's email and
// the known agent directory. Emails are compared case-insensitively,
// phones digit-for-digit.
func NewNormalizeContext(currentUserEmail string, agentEmails, agentPhones []string) NormalizeContext {
	nctx := NormalizeContext{
		CurrentUserEmail: normalizeEmail(currentUserEmail),
		agentEmails:      make(map[string]struct{}, len(agentEmails)),
		agentPhones:      make(map[string]struct{}, len(agentPhones)),
	}
	for _, email := range agentEmails {
		if normalized := normalizeEmail(email); normalized != "" {
			nctx.agentEmails[normalized] = struct{}{}
		}
	}
	for _, phone := range agentPhones {
		if normalized := normalizePhone(phone); normalized != "" {
			nctx.agentPhones[normalized] = struct{}{}
		}
	}
	return nctx
}

// IsAgentEmail reports whether the email belongs to the current agent or
// the agent directory.
func (c NormalizeContext) IsAgentEmail(email string) bool {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return false
	}
	if c.CurrentUserEmail != "" && normalized == c.CurrentUserEmail {
		return true
	}
	_, ok := c.agentEmails[normalized]
	return ok
}

// IsAgentPhone reports whether the phone number belongs to a known agent.
func (c NormalizeContext) IsAgentPhone(phone string) bool {
	normalized := normalizePhone(phone)
	if normalized == "" {
		return false
	}
	_, ok := c.agentPhones[normalized]
	return ok
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func normalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
