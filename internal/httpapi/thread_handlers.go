package httpapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/quilldesk/quill/internal/message"
	"github.com/quilldesk/quill/internal/reader"
	"github.com/quilldesk/quill/internal/thread"
)

// handleThread assembles the deduplicated, chronologically sorted view of
// one conversation. The pages parameter controls how many store pages are
// accumulated before the snapshot is taken.
func (s *Server) handleThread(c echo.Context) error {
	conversationID := strings.TrimSpace(c.Param("conversation_id"))
	if conversationID == "" {
		return failValidation(c, map[string]string{"conversation_id": "is required"})
	}

	pages, err := parsePositiveInt(c.QueryParam("pages"), 1, 1, maxThreadPages)
	if err != nil {
		return failValidation(c, map[string]string{"pages": err.Error()})
	}

	includeInternal, err := parseBoolParam(c.QueryParam("include_internal"), false)
	if err != nil {
		return failValidation(c, map[string]string{"include_internal": err.Error()})
	}

	viewerEmail := strings.TrimSpace(c.QueryParam("viewer_email"))

	ctx := c.Request().Context()

	agentEmails, agentPhones, err := s.store.AgentDirectory(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("load agent directory failed")
		return internalError(c, "Failed to load agent directory")
	}

	nctx := message.NewNormalizeContext(viewerEmail, agentEmails, agentPhones)
	if s.cfg != nil && s.cfg.DetectLanguage {
		nctx.DetectLanguage = message.DetectLanguage
	}

	opts := thread.Options{ExcludeInternal: !includeInternal}
	if s.cfg != nil {
		opts.InitialPageSize = s.cfg.InitialPageSize
		opts.LoadMorePageSize = s.cfg.LoadMorePageSize
		opts.ConfidenceMinSample = s.cfg.ConfidenceMinSample
		opts.ConfidenceMinRatio = s.cfg.ConfidenceMinRatio
		opts.ConfidenceMaxRatio = s.cfg.ConfidenceMaxRatio
	}

	assembler := thread.NewAssembler(s.store, conversationID, nctx, opts, s.logger)

	var fetchErr error
	pagesFetched := 0
	for i := 0; i < pages; i++ {
		if err := assembler.FetchNext(ctx); err != nil {
			fetchErr = err
			break
		}
		pagesFetched++
		if !assembler.Snapshot().HasNextPage {
			break
		}
	}

	view := assembler.Snapshot()
	if fetchErr != nil && pagesFetched == 0 {
		s.logger.Error().Err(fetchErr).Str("conversation_id", conversationID).Msg("thread first page fetch failed")
		return internalError(c, "Failed to load thread")
	}

	response := map[string]any{
		"view":          view,
		"pages_fetched": pagesFetched,
	}
	if fetchErr != nil {
		// Accumulated pages stay valid; the consumer can retry load-more.
		response["fetch_error"] = fetchErr.Error()
	}

	return success(c, response)
}

// handleLinkPreview extracts a readable excerpt for a URL pasted into a
// conversation.
func (s *Server) handleLinkPreview(c echo.Context) error {
	rawURL := strings.TrimSpace(c.QueryParam("url"))
	if rawURL == "" {
		return failValidation(c, map[string]string{"url": "is required"})
	}

	preview, err := reader.FetchPreview(c.Request().Context(), rawURL, reader.FetchOptions{})
	if err != nil {
		s.logger.Warn().Err(err).Str("url", rawURL).Msg("link preview fetch failed")
		return fail(c, http.StatusBadGateway, "Failed to fetch preview", nil)
	}

	return success(c, preview)
}
