package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed message_event.schema.json
var messageEventSchemaJSON string

// MessageAttachment is one attachment entry in an ingest payload.
type MessageAttachment struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// MessageEmailHeaders is the structured header bag of an email-sourced
// ingest payload.
type MessageEmailHeaders struct {
	From    string   `json:"from,omitempty"`
	To      []string `json:"to,omitempty"`
	Cc      []string `json:"cc,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// MessageEvent is a validated v1 ingest payload for one support message.
type MessageEvent struct {
	PayloadVersion string               `json:"payload_version"`
	MessageID      *string              `json:"message_id,omitempty"`
	ConversationID string               `json:"conversation_id"`
	Content        string               `json:"content"`
	ContentType    *string              `json:"content_type,omitempty"`
	SenderType     string               `json:"sender_type"`
	SenderID       *string              `json:"sender_id,omitempty"`
	IsInternal     bool                 `json:"is_internal,omitempty"`
	CreatedAt      *string              `json:"created_at,omitempty"`
	Attachments    []MessageAttachment  `json:"attachments,omitempty"`
	EmailHeaders   *MessageEmailHeaders `json:"email_headers,omitempty"`
	EmailSubject   *string              `json:"email_subject,omitempty"`
	ExternalID     *string              `json:"external_id,omitempty"`
	EmailMessageID *string              `json:"email_message_id,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateMessageEventPayload checks an ingest payload against the v1
// message-event schema plus the semantic rules the schema cannot express,
// and decodes it.
func ValidateMessageEventPayload(payload json.RawMessage) (*MessageEvent, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var event MessageEvent
	if err := json.Unmarshal(normalized, &event); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&event); err != nil {
		return nil, err
	}

	return &event, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("message_event.schema.json", strings.NewReader(messageEventSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("message_event.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(event *MessageEvent) error {
	if event == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(event.PayloadVersion) != "v1" {
		return fmt.Errorf("payload_version must be v1")
	}
	if strings.TrimSpace(event.ConversationID) == "" {
		return fmt.Errorf("conversation_id must not be empty")
	}
	if event.MessageID != nil && strings.TrimSpace(*event.MessageID) == "" {
		return fmt.Errorf("message_id must not be blank when present")
	}

	if event.CreatedAt != nil {
		if _, err := time.Parse(time.RFC3339, strings.TrimSpace(*event.CreatedAt)); err != nil {
			return fmt.Errorf("created_at must be RFC3339: %w", err)
		}
	}

	for i, attachment := range event.Attachments {
		if strings.TrimSpace(attachment.Name) == "" {
			return fmt.Errorf("attachments[%d].name must not be empty", i)
		}
		if err := validateURI(fmt.Sprintf("attachments[%d].url", i), attachment.URL); err != nil {
			return err
		}
	}

	// email_headers.from is deliberately not parsed here: a malformed
	// header degrades sender resolution downstream, it does not reject
	// the payload.

	return nil
}

func validateURI(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	return nil
}
