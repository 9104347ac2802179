package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quilldesk/quill/internal/globaltime"
	"github.com/quilldesk/quill/internal/message"
	"github.com/quilldesk/quill/internal/thread"
)

// ErrDuplicateMessage signals an ingest payload whose message id is
// already stored.
var ErrDuplicateMessage = errors.New("message already exists")

const messageColumns = `
	m.message_id,
	m.conversation_id,
	m.content,
	m.content_type,
	m.sender_type,
	m.sender_id,
	m.is_internal,
	m.attachments,
	m.email_headers,
	m.email_subject,
	m.external_id,
	m.email_message_id,
	m.created_at
`

// FetchPage returns one page of raw messages for a conversation, newest
// first. Rows at or after olderThan are excluded when a cursor is set.
// TotalCount is populated only on cursor-less fetches.
func (p *Pool) FetchPage(ctx context.Context, conversationID string, olderThan *time.Time, limit int) (thread.Page, error) {
	if strings.TrimSpace(conversationID) == "" {
		return thread.Page{}, fmt.Errorf("conversation id is required")
	}
	if limit < 1 {
		return thread.Page{}, fmt.Errorf("limit must be >= 1, got %d", limit)
	}

	var page thread.Page

	query := `
SELECT ` + messageColumns + `
FROM support.messages m
WHERE m.conversation_id = $1
`
	args := []any{conversationID}
	if olderThan != nil {
		query += "	AND m.created_at < $2\n"
		args = append(args, olderThan.UTC())
	}
	query += fmt.Sprintf("ORDER BY m.created_at DESC, m.message_id DESC\nLIMIT %d", limit)

	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return thread.Page{}, fmt.Errorf("query message page: %w", err)
	}
	defer rows.Close()

	page.Rows = make([]message.RawMessage, 0, limit)
	for rows.Next() {
		raw, err := scanRawMessage(rows)
		if err != nil {
			return thread.Page{}, fmt.Errorf("scan message row: %w", err)
		}
		page.Rows = append(page.Rows, raw)
	}
	if err := rows.Err(); err != nil {
		return thread.Page{}, fmt.Errorf("iterate message rows: %w", err)
	}

	if olderThan == nil {
		var total int
		countQuery := `SELECT COUNT(*) FROM support.messages m WHERE m.conversation_id = $1`
		if err := p.QueryRow(ctx, countQuery, conversationID).Scan(&total); err != nil {
			return thread.Page{}, fmt.Errorf("count conversation messages: %w", err)
		}
		page.TotalCount = &total
	}

	return page, nil
}

func scanRawMessage(rows *Rows) (message.RawMessage, error) {
	var (
		raw             message.RawMessage
		contentType     string
		senderType      string
		attachmentsJSON []byte
		headersJSON     []byte
		createdAt       time.Time
	)
	if err := rows.Scan(
		&raw.ID,
		&raw.ConversationID,
		&raw.Content,
		&contentType,
		&senderType,
		&raw.SenderID,
		&raw.IsInternal,
		&attachmentsJSON,
		&headersJSON,
		&raw.EmailSubject,
		&raw.ExternalID,
		&raw.EmailMessageID,
		&createdAt,
	); err != nil {
		return message.RawMessage{}, err
	}

	raw.ContentType = message.ContentType(contentType)
	raw.SenderType = message.SenderType(senderType)
	raw.CreatedAt = createdAt.UTC().Format(time.RFC3339Nano)

	// Malformed jsonb degrades the field, never the page.
	if len(attachmentsJSON) > 0 {
		var attachments []message.Attachment
		if err := json.Unmarshal(attachmentsJSON, &attachments); err == nil {
			raw.Attachments = attachments
		}
	}
	if len(headersJSON) > 0 {
		var headers message.EmailHeaders
		if err := json.Unmarshal(headersJSON, &headers); err == nil {
			raw.EmailHeaders = &headers
		}
	}

	return raw, nil
}

// InsertMessage stores one raw message and upserts its conversation in a
// single transaction. A missing id gets a fresh uuid; a missing or
// malformed created_at gets the current time.
func (p *Pool) InsertMessage(ctx context.Context, raw message.RawMessage) (message.RawMessage, error) {
	if strings.TrimSpace(raw.ConversationID) == "" {
		return message.RawMessage{}, fmt.Errorf("conversation id is required")
	}
	if strings.TrimSpace(raw.ID) == "" {
		raw.ID = uuid.NewString()
	}
	if raw.ContentType == "" {
		raw.ContentType = message.ContentText
	}

	createdAt := globaltime.UTC()
	if trimmed := strings.TrimSpace(raw.CreatedAt); trimmed != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
			createdAt = parsed.UTC()
		} else if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
			createdAt = parsed.UTC()
		}
	}
	raw.CreatedAt = createdAt.Format(time.RFC3339Nano)

	var attachmentsJSON, headersJSON []byte
	if len(raw.Attachments) > 0 {
		encoded, err := json.Marshal(raw.Attachments)
		if err != nil {
			return message.RawMessage{}, fmt.Errorf("encode attachments: %w", err)
		}
		attachmentsJSON = encoded
	}
	if raw.EmailHeaders != nil {
		encoded, err := json.Marshal(raw.EmailHeaders)
		if err != nil {
			return message.RawMessage{}, fmt.Errorf("encode email headers: %w", err)
		}
		headersJSON = encoded
	}

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return message.RawMessage{}, fmt.Errorf("begin insert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upsertConversation = `
INSERT INTO support.conversations (conversation_id, last_message_at, created_at, updated_at)
VALUES ($1, $2, now(), now())
ON CONFLICT (conversation_id) DO UPDATE
SET last_message_at = GREATEST(COALESCE(support.conversations.last_message_at, $2), $2),
	updated_at = now()
`
	if _, err := tx.Exec(ctx, upsertConversation, raw.ConversationID, createdAt); err != nil {
		return message.RawMessage{}, fmt.Errorf("upsert conversation: %w", err)
	}

	const insertMessage = `
INSERT INTO support.messages (
	message_id, conversation_id, content, content_type, sender_type, sender_id,
	is_internal, attachments, email_headers, email_subject, external_id,
	email_message_id, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (message_id) DO NOTHING
`
	tag, err := tx.Exec(ctx, insertMessage,
		raw.ID,
		raw.ConversationID,
		raw.Content,
		string(raw.ContentType),
		string(raw.SenderType),
		raw.SenderID,
		raw.IsInternal,
		attachmentsJSON,
		headersJSON,
		raw.EmailSubject,
		raw.ExternalID,
		raw.EmailMessageID,
		createdAt,
	)
	if err != nil {
		return message.RawMessage{}, fmt.Errorf("insert message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return message.RawMessage{}, fmt.Errorf("message %s: %w", raw.ID, ErrDuplicateMessage)
	}

	if err := tx.Commit(ctx); err != nil {
		return message.RawMessage{}, fmt.Errorf("commit insert transaction: %w", err)
	}

	return raw, nil
}

// AgentDirectory returns the active agent emails and phones used to build
// a normalize context.
func (p *Pool) AgentDirectory(ctx context.Context) (emails, phones []string, err error) {
	const query = `
SELECT a.email, a.phone
FROM support.agents a
WHERE a.active
ORDER BY a.email
`
	rows, err := p.Query(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("query agent directory: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			email string
			phone *string
		)
		if err := rows.Scan(&email, &phone); err != nil {
			return nil, nil, fmt.Errorf("scan agent row: %w", err)
		}
		emails = append(emails, email)
		if phone != nil && strings.TrimSpace(*phone) != "" {
			phones = append(phones, *phone)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate agent rows: %w", err)
	}

	return emails, phones, nil
}

// SupportTotals stores store-wide counters.
type SupportTotals struct {
	Conversations int64 `json:"conversations"`
	Messages      int64 `json:"messages"`
	InternalNotes int64 `json:"internal_notes"`
	ActiveAgents  int64 `json:"active_agents"`
}

// SupportThroughput stores daily ingest counters.
type SupportThroughput struct {
	MessagesIngestedToday     int64 `json:"messages_ingested_today"`
	ConversationsTouchedToday int64 `json:"conversations_touched_today"`
}

// SupportStats is the read model returned by the stats endpoint.
type SupportStats struct {
	Day        string            `json:"day"`
	Totals     SupportTotals     `json:"totals"`
	Throughput SupportThroughput `json:"throughput"`
}

// QuerySupportStats returns store totals plus ingest throughput for the
// given UTC day window.
func (p *Pool) QuerySupportStats(ctx context.Context, dayStart, dayEnd time.Time) (*SupportStats, error) {
	startUTC := dayStart.UTC()
	endUTC := dayEnd.UTC()
	if !startUTC.Before(endUTC) {
		return nil, fmt.Errorf("dayStart must be before dayEnd")
	}

	stats := &SupportStats{Day: startUTC.Format("2006-01-02")}

	const totalsQuery = `
SELECT
	(SELECT COUNT(*) FROM support.conversations) AS conversations,
	(SELECT COUNT(*) FROM support.messages) AS messages,
	(SELECT COUNT(*) FROM support.messages m WHERE m.is_internal) AS internal_notes,
	(SELECT COUNT(*) FROM support.agents a WHERE a.active) AS active_agents
`
	if err := p.QueryRow(ctx, totalsQuery).Scan(
		&stats.Totals.Conversations,
		&stats.Totals.Messages,
		&stats.Totals.InternalNotes,
		&stats.Totals.ActiveAgents,
	); err != nil {
		return nil, fmt.Errorf("query support totals: %w", err)
	}

	const throughputQuery = `
SELECT
	(SELECT COUNT(*) FROM support.messages m WHERE m.ingested_at >= $1 AND m.ingested_at < $2) AS messages_ingested_today,
	(SELECT COUNT(DISTINCT m.conversation_id) FROM support.messages m WHERE m.ingested_at >= $1 AND m.ingested_at < $2) AS conversations_touched_today
`
	if err := p.QueryRow(ctx, throughputQuery, startUTC, endUTC).Scan(
		&stats.Throughput.MessagesIngestedToday,
		&stats.Throughput.ConversationsTouchedToday,
	); err != nil {
		return nil, fmt.Errorf("query support throughput: %w", err)
	}

	return stats, nil
}
