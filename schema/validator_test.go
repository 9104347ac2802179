package payloadschema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidateMessageEventPayload_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"message_id":"msg-20260214-001",
		"conversation_id":"conv-42",
		"content":"Hi, my invoice is wrong.",
		"content_type":"text/plain",
		"sender_type":"customer",
		"created_at":"2026-02-14T10:00:00Z",
		"email_headers":{
			"from":"Jane Doe <jane@example.com>",
			"to":["support@quilldesk.example"]
		},
		"email_subject":"Invoice problem",
		"external_id":"zendesk:991"
	}`)

	event, err := ValidateMessageEventPayload(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}

	if event.ConversationID != "conv-42" {
		t.Fatalf("expected conversation_id=conv-42, got %q", event.ConversationID)
	}
	if event.SenderType != "customer" {
		t.Fatalf("expected sender_type=customer, got %q", event.SenderType)
	}
	if event.EmailHeaders == nil || event.EmailHeaders.From != "Jane Doe <jane@example.com>" {
		t.Fatalf("expected email_headers.from to survive decoding, got %+v", event.EmailHeaders)
	}
}

func TestValidateMessageEventPayload_MissingConversationID(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"content":"orphan message",
		"sender_type":"agent"
	}`)

	_, err := ValidateMessageEventPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for missing conversation_id")
	}
}

func TestValidateMessageEventPayload_BadSenderType(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"conversation_id":"conv-1",
		"content":"hello",
		"sender_type":"robot"
	}`)

	_, err := ValidateMessageEventPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for unknown sender_type")
	}
}

func TestValidateMessageEventPayload_BadPayloadVersion(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v2",
		"conversation_id":"conv-1",
		"content":"hello",
		"sender_type":"customer"
	}`)

	_, err := ValidateMessageEventPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for payload_version v2")
	}
}

func TestValidateMessageEventPayload_InvalidCreatedAt(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"conversation_id":"conv-1",
		"content":"hello",
		"sender_type":"customer",
		"created_at":"yesterday around noon"
	}`)

	_, err := ValidateMessageEventPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for invalid created_at")
	}
}

func TestValidateMessageEventPayload_AttachmentURLRequired(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"conversation_id":"conv-1",
		"content":"see attached",
		"sender_type":"customer",
		"attachments":[{"name":"receipt.pdf","url":"   "}]
	}`)

	_, err := ValidateMessageEventPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for blank attachment url")
	}
	if !strings.Contains(err.Error(), "attachments[0].url") {
		t.Fatalf("expected attachment url semantic error, got: %v", err)
	}
}

func TestValidateMessageEventPayload_MalformedFromIsAccepted(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"conversation_id":"conv-1",
		"content":"hello",
		"sender_type":"customer",
		"email_headers":{"from":"not an address at all"}
	}`)

	if _, err := ValidateMessageEventPayload(payload); err != nil {
		t.Fatalf("malformed from header must degrade downstream, not reject the payload: %v", err)
	}
}

func TestValidateMessageEventPayload_TrailingContentRejected(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"conversation_id":"conv-1",
		"content":"hello",
		"sender_type":"customer"
	}{"extra":true}`)

	_, err := ValidateMessageEventPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for trailing JSON content")
	}
}

func TestValidateMessageEventPayload_UnknownFieldRejected(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"conversation_id":"conv-1",
		"content":"hello",
		"sender_type":"customer",
		"priority":"high"
	}`)

	_, err := ValidateMessageEventPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for unknown top-level field")
	}
}
