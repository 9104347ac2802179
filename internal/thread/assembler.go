package thread

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quilldesk/quill/internal/message"
)

// ErrStale marks a fetch whose result arrived after the assembler switched
// to a different conversation. The result was discarded; accumulated state
// for the new conversation is untouched.
var ErrStale = errors.New("thread: fetch superseded by conversation switch")

// Assembler accumulates cursor-based pages for one conversation, normalizes
// every raw row, and exposes a globally deduplicated, chronologically
// sorted view. State is scoped to a single conversation id; switching
// conversations discards everything, since dedup keys from different
// conversations live in different universes.
type Assembler struct {
	fetcher Fetcher
	nctx    message.NormalizeContext
	opts    Options
	logger  zerolog.Logger

	mu             sync.Mutex
	conversationID string
	generation     uint64
	pages          [][]message.NormalizedMessage
	totalCount     int
	firstPageRaw   int
	loaded         bool
	hasMore        bool
	cursor         *time.Time
	inflight       int
	lastErr        error
}

func NewAssembler(fetcher Fetcher, conversationID string, nctx message.NormalizeContext, opts Options, logger zerolog.Logger) *Assembler {
	return &Assembler{
		fetcher:        fetcher,
		nctx:           nctx,
		opts:           opts.withDefaults(),
		logger:         logger,
		conversationID: conversationID,
	}
}

// Reset switches the assembler to another conversation, discarding all
// accumulated pages. In-flight fetches for the previous conversation
// resolve to ErrStale.
func (a *Assembler) Reset(conversationID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.generation++
	a.conversationID = conversationID
	a.pages = nil
	a.totalCount = 0
	a.firstPageRaw = 0
	a.loaded = false
	a.hasMore = false
	a.cursor = nil
	a.lastErr = nil
}

// FetchNext loads the next page: the small initial page on the first call,
// then strictly-older load-more pages from the current oldest cursor.
// A fetch failure surfaces the error and leaves accumulated pages valid.
func (a *Assembler) FetchNext(ctx context.Context) error {
	a.mu.Lock()
	if a.fetcher == nil {
		a.mu.Unlock()
		return fmt.Errorf("thread: assembler has no fetcher")
	}
	if a.loaded && !a.hasMore {
		a.mu.Unlock()
		return nil
	}

	generation := a.generation
	conversationID := a.conversationID
	firstPage := !a.loaded

	take := a.opts.LoadMorePageSize
	var olderThan *time.Time
	if firstPage {
		take = a.opts.InitialPageSize
	} else if a.cursor != nil {
		cursorCopy := *a.cursor
		olderThan = &cursorCopy
	}
	a.inflight++
	a.mu.Unlock()

	// Overfetch one row to detect a further page without a count query.
	page, err := a.fetcher.FetchPage(ctx, conversationID, olderThan, take+1)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.inflight--

	if a.generation != generation {
		return ErrStale
	}
	if err != nil {
		a.lastErr = err
		a.logger.Warn().
			Err(err).
			Str("conversation_id", conversationID).
			Bool("first_page", firstPage).
			Msg("thread page fetch failed")
		return err
	}
	a.lastErr = nil

	rows := page.Rows
	pageHasMore := len(rows) > take
	if pageHasMore {
		rows = rows[:take]
	}

	normalized := make([]message.NormalizedMessage, 0, len(rows))
	for _, raw := range rows {
		normalized = append(normalized, message.Normalize(raw, a.nctx))
	}

	if firstPage {
		a.loaded = true
		a.firstPageRaw = len(rows)
		if page.TotalCount != nil {
			a.totalCount = *page.TotalCount
		}
	}

	a.pages = append(a.pages, normalized)

	if len(normalized) == 0 {
		a.hasMore = false
		return nil
	}

	// The cursor comes from the last kept row of the page, never from the
	// trimmed overfetch row. Only advance the frontier; a concurrent
	// duplicate fetch of the same page must not move it backwards.
	oldest := normalized[len(normalized)-1].Timestamp
	if a.cursor == nil || oldest.Before(*a.cursor) {
		cursorCopy := oldest
		a.cursor = &cursorCopy
		a.hasMore = pageHasMore
	}

	return nil
}

// Snapshot assembles the current view: all pages flattened, globally
// deduplicated, sorted ascending by timestamp.
func (a *Assembler) Snapshot() View {
	a.mu.Lock()
	defer a.mu.Unlock()

	messages := DedupSort(a.pages, a.opts.ExcludeInternal)
	ratio := a.keptRatioLocked()

	view := View{
		ConversationID:        a.conversationID,
		Messages:              messages,
		TotalCount:            a.totalCount,
		NormalizedCountLoaded: len(messages),
		Confidence:            ConfidenceLow,
		HasNextPage:           a.hasMore,
		IsFetchingNextPage:    a.inflight > 0 && a.loaded,
		IsLoading:             !a.loaded,
		Err:                   a.lastErr,
	}

	view.TotalNormalizedEstimated = int(math.Round(float64(a.totalCount) * ratio))
	if a.firstPageRaw >= a.opts.ConfidenceMinSample &&
		ratio >= a.opts.ConfidenceMinRatio &&
		ratio <= a.opts.ConfidenceMaxRatio {
		view.Confidence = ConfidenceHigh
	}

	return view
}

// OldestCursor exposes the current pagination frontier, mainly for callers
// that surface raw paging alongside the assembled view.
func (a *Assembler) OldestCursor() *time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cursor == nil {
		return nil
	}
	cursorCopy := *a.cursor
	return &cursorCopy
}

// keptRatioLocked is the kept/fetched ratio of the first page alone: the
// share of raw rows that survived normalization and dedup. Callers hold mu.
func (a *Assembler) keptRatioLocked() float64 {
	if a.firstPageRaw == 0 || len(a.pages) == 0 {
		return 1
	}
	firstKept := DedupSort(a.pages[:1], a.opts.ExcludeInternal)
	return float64(len(firstKept)) / float64(a.firstPageRaw)
}
