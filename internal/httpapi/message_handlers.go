package httpapi

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/quilldesk/quill/internal/db"
	"github.com/quilldesk/quill/internal/message"
	payloadschema "github.com/quilldesk/quill/schema"
)

// handleListMessages returns one raw store page for a conversation, newest
// first, without normalization. Mainly a debugging surface; the widget
// consumes the thread endpoint.
func (s *Server) handleListMessages(c echo.Context) error {
	conversationID := strings.TrimSpace(c.Param("conversation_id"))
	if conversationID == "" {
		return failValidation(c, map[string]string{"conversation_id": "is required"})
	}

	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultPageLimit, 1, maxPageLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	cursor, err := parseCursorParam(c.QueryParam("cursor"))
	if err != nil {
		return failValidation(c, map[string]string{"cursor": err.Error()})
	}

	page, err := s.store.FetchPage(c.Request().Context(), conversationID, cursor, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("fetch message page failed")
		return internalError(c, "Failed to load messages")
	}

	response := map[string]any{
		"conversation_id": conversationID,
		"messages":        page.Rows,
	}
	if page.TotalCount != nil {
		response["total_count"] = *page.TotalCount
	}
	if len(page.Rows) == limit {
		oldest := page.Rows[len(page.Rows)-1]
		response["next_cursor"] = oldest.CreatedAt
	}

	return success(c, response)
}

// handleIngestMessage validates a v1 message-event payload and stores it.
func (s *Server) handleIngestMessage(c echo.Context) error {
	conversationID := strings.TrimSpace(c.Param("conversation_id"))
	if conversationID == "" {
		return failValidation(c, map[string]string{"conversation_id": "is required"})
	}

	body, err := readRequestBody(c)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	event, err := payloadschema.ValidateMessageEventPayload(body)
	if err != nil {
		return failValidation(c, map[string]string{"payload": err.Error()})
	}
	if event.ConversationID != conversationID {
		return failValidation(c, map[string]string{
			"conversation_id": "payload conversation_id must match the path",
		})
	}

	raw := message.FromIngestEvent(event)

	stored, err := s.store.InsertMessage(c.Request().Context(), raw)
	if err != nil {
		if errors.Is(err, db.ErrDuplicateMessage) {
			return failConflict(c, "Message already exists")
		}
		s.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("insert message failed")
		return internalError(c, "Failed to store message")
	}

	return created(c, stored)
}
